package models

import (
	"fmt"
	"strings"
)

// DefaultFallbackAudioURL is the always-available clip used when no other
// audio source yields a snippet
const DefaultFallbackAudioURL = "https://www.sample-videos.com/audio/mp3/crowd-cheering.mp3"

// PostMode is the kind of social post the photo is meant for
type PostMode string

const (
	ModePost  PostMode = "post"
	ModeStory PostMode = "story"
)

// ParsePostMode accepts the form value of postType, case-insensitively
func ParsePostMode(value string) (PostMode, error) {
	switch PostMode(strings.ToLower(strings.TrimSpace(value))) {
	case ModePost:
		return ModePost, nil
	case ModeStory:
		return ModeStory, nil
	default:
		return "", fmt.Errorf("unknown post type %q", value)
	}
}

// WantsCaption reports whether a caption is part of the result for this mode
func (m PostMode) WantsCaption() bool {
	return m == ModePost
}

// RegenerateTarget names the part of a previous result the client wants refreshed
type RegenerateTarget string

const (
	RegenerateNone    RegenerateTarget = ""
	RegenerateSong    RegenerateTarget = "song"
	RegenerateCaption RegenerateTarget = "caption"
)

// ParseRegenerateTarget accepts an absent/empty value as RegenerateNone
func ParseRegenerateTarget(value string) (RegenerateTarget, error) {
	switch RegenerateTarget(strings.ToLower(strings.TrimSpace(value))) {
	case RegenerateNone:
		return RegenerateNone, nil
	case RegenerateSong:
		return RegenerateSong, nil
	case RegenerateCaption:
		return RegenerateCaption, nil
	default:
		return "", fmt.Errorf("unknown regenerate target %q", value)
	}
}

// AnalysisRequest is built once per inbound call and never persisted
type AnalysisRequest struct {
	Image      []byte
	MIMEType   string
	Mode       PostMode
	Regenerate RegenerateTarget
}

// SongRecommendation is the song chosen for a photo. PreviewURL stays empty
// until audio resolution has run.
type SongRecommendation struct {
	Title          string `json:"title"`
	Artist         string `json:"artist"`
	UseCustomAudio bool   `json:"useCustomAudio"`
	PreviewURL     string `json:"previewUrl,omitempty"`
}

// Valid reports whether both title and artist are present
func (s SongRecommendation) Valid() bool {
	return strings.TrimSpace(s.Title) != "" && strings.TrimSpace(s.Artist) != ""
}

// AnalysisOutcome is what the analysis service produced for one request.
// Caption is nil when no caption was requested.
type AnalysisOutcome struct {
	Recommendation SongRecommendation
	Caption        *string
}
