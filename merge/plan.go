package merge

import (
	"fmt"
	"strings"
)

// silentSource is the lavfi input used to pad clips that have no voiceover.
// Heterogeneous audio presence cannot be concatenated stream-for-stream, so
// every video input gets a paired audio input of matching format.
const silentSource = "anullsrc=channel_layout=mono:sample_rate=24000"

// BuildFilterGraph constructs the filter_complex for concatenating n clips.
// Input layout: video streams occupy inputs 0..n-1 and, when hasAudio is
// set, audio streams occupy inputs n..2n-1 in the same clip order — input
// n+i is clip i's audio (real voiceover or silent pad). Each stream's
// timestamps are rebased to zero before concatenation; concatenating streams
// whose timestamps do not start at zero produces gaps or overlaps.
func BuildFilterGraph(n int, hasAudio bool) string {
	var parts []string

	videoSetpts := make([]string, n)
	for i := 0; i < n; i++ {
		videoSetpts[i] = fmt.Sprintf("[%d:v]setpts=PTS-STARTPTS[v%d]", i, i)
	}
	parts = append(parts, strings.Join(videoSetpts, "; "))

	if hasAudio {
		audioSetpts := make([]string, n)
		for i := 0; i < n; i++ {
			audioSetpts[i] = fmt.Sprintf("[%d:a]asetpts=PTS-STARTPTS[a%d]", n+i, i)
		}
		parts = append(parts, strings.Join(audioSetpts, "; "))
	}

	var videoLabels strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&videoLabels, "[v%d]", i)
	}
	parts = append(parts, fmt.Sprintf("%sconcat=n=%d:v=1:a=0[v]", videoLabels.String(), n))

	if hasAudio {
		var audioLabels strings.Builder
		for i := 0; i < n; i++ {
			fmt.Fprintf(&audioLabels, "[a%d]", i)
		}
		parts = append(parts, fmt.Sprintf("%sconcat=n=%d:v=0:a=1[a]", audioLabels.String(), n))
	}

	return strings.Join(parts, "; ")
}

// MapArgs returns the -map arguments matching BuildFilterGraph's outputs.
func MapArgs(hasAudio bool) []string {
	if hasAudio {
		return []string{"-map", "[v]", "-map", "[a]"}
	}
	return []string{"-map", "[v]"}
}
