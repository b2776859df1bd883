package session

import "ideagen-pipeline/types"

// DemoClips is a short pre-populated storyboard for trying the studio
// without typing prompts. Two of the four clips carry a voiceover, so a demo
// merge exercises the silent-pad path as well.
func DemoClips() []types.Clip {
	landscape := types.VideoConfig{AspectRatio: "16:9", Resolution: "720p"}
	return []types.Clip{
		{
			Prompt:      "Cosmic nebula forming into data streams. Stars transform into glowing binary code. Ethereal and futuristic visuals.",
			VideoConfig: landscape,
			VoiceoverConfig: types.VoiceoverConfig{
				Script: "We have watched your world for eons. We called you... the anomalies.",
				Voice:  "Charon",
			},
		},
		{
			Prompt:          "Quick cuts showing Earth from space, then zooming dramatically to a beautiful tropical island at dusk.",
			VideoConfig:     landscape,
			VoiceoverConfig: types.VoiceoverConfig{Voice: "Kore"},
		},
		{
			Prompt:      "Inside a sterile, futuristic chamber. A perfect replica of a young woman materializes out of light and data particles.",
			VideoConfig: landscape,
			VoiceoverConfig: types.VoiceoverConfig{
				Script: "Systems nominal. Memory integration complete.",
				Voice:  "Kore",
			},
		},
		{
			Prompt:          "Final shot: the woman looking up at the night sky from her island home, golden patterns dancing in her eyes.",
			VideoConfig:     landscape,
			VoiceoverConfig: types.VoiceoverConfig{Voice: "Kore"},
		},
	}
}
