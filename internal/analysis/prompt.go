package analysis

import (
	"strings"

	"github.com/anime-shed/snaptune-go/pkg/models"
)

const systemInstruction = `You recommend music for social media photos. Output ONLY valid JSON, no other text.`

// BuildPrompt returns the instruction sent alongside the photo. Story posts
// never ask for a caption; regeneration targets are passed as a hint only.
func BuildPrompt(mode models.PostMode, regenerate models.RegenerateTarget) string {
	var sb strings.Builder

	sb.WriteString("Analyze the photo and recommend one existing song whose mood matches it. ")
	sb.WriteString("Set customSong to true only when no released song fits and a custom snippet should be synthesized instead.\n")

	if mode.WantsCaption() {
		sb.WriteString("This photo is for an Instagram post, so also write a short caption.\n")
		sb.WriteString("Respond with JSON matching exactly this schema:\n")
		sb.WriteString(`{"recommendedSong": {"title": "string", "artist": "string"}, "customSong": false, "caption": "string"}`)
	} else {
		sb.WriteString("This photo is for an Instagram story. Do not write a caption.\n")
		sb.WriteString("Respond with JSON matching exactly this schema:\n")
		sb.WriteString(`{"recommendedSong": {"title": "string", "artist": "string"}, "customSong": false}`)
	}
	sb.WriteString("\n")

	switch regenerate {
	case models.RegenerateSong:
		sb.WriteString("The user asked for a different song than last time; pick something fresh.\n")
	case models.RegenerateCaption:
		if mode.WantsCaption() {
			sb.WriteString("The user asked for a new caption; write a different one than before.\n")
		}
	}

	return sb.String()
}
