package merge

import (
	"fmt"
	"strings"
	"testing"
)

func TestBuildFilterGraphVideoOnly(t *testing.T) {
	graph := BuildFilterGraph(2, false)

	want := "[0:v]setpts=PTS-STARTPTS[v0]; [1:v]setpts=PTS-STARTPTS[v1]; [v0][v1]concat=n=2:v=1:a=0[v]"
	if graph != want {
		t.Errorf("Graph mismatch.\n got: %s\nwant: %s", graph, want)
	}
	if strings.Contains(graph, "asetpts") || strings.Contains(graph, "a=1") {
		t.Error("Video-only graph must not reference audio streams")
	}
}

func TestBuildFilterGraphWithAudioPairsStreamsByClip(t *testing.T) {
	// Three clips: video inputs 0..2, audio inputs 3..5. Clip i's audio
	// must enter the graph as input 3+i — an off-by-one here plays the
	// wrong voiceover under a clip without any detectable error.
	graph := BuildFilterGraph(3, true)

	for i := 0; i < 3; i++ {
		videoFilter := fmt.Sprintf("[%d:v]setpts=PTS-STARTPTS[v%d]", i, i)
		if !strings.Contains(graph, videoFilter) {
			t.Errorf("Missing video rebase for clip %d: %s", i, videoFilter)
		}
		audioFilter := fmt.Sprintf("[%d:a]asetpts=PTS-STARTPTS[a%d]", 3+i, i)
		if !strings.Contains(graph, audioFilter) {
			t.Errorf("Clip %d audio must come from input %d: %s", i, 3+i, audioFilter)
		}
	}

	if !strings.Contains(graph, "[v0][v1][v2]concat=n=3:v=1:a=0[v]") {
		t.Errorf("Video concat order must match storyboard order: %s", graph)
	}
	if !strings.Contains(graph, "[a0][a1][a2]concat=n=3:v=0:a=1[a]") {
		t.Errorf("Audio concat order must match storyboard order: %s", graph)
	}
}

func TestBuildFilterGraphSingleClip(t *testing.T) {
	graph := BuildFilterGraph(1, true)
	if !strings.Contains(graph, "[1:a]asetpts=PTS-STARTPTS[a0]") {
		t.Errorf("Single clip audio should be input 1: %s", graph)
	}
	if !strings.Contains(graph, "concat=n=1:v=1:a=0[v]") {
		t.Errorf("Expected n=1 video concat: %s", graph)
	}
}

func TestMapArgs(t *testing.T) {
	if got := strings.Join(MapArgs(false), " "); got != "-map [v]" {
		t.Errorf("Video-only map args wrong: %s", got)
	}
	if got := strings.Join(MapArgs(true), " "); got != "-map [v] -map [a]" {
		t.Errorf("Audio map args wrong: %s", got)
	}
}
