package analysis

import (
	"encoding/json"
	"strings"
	"unicode/utf8"

	apperrors "github.com/anime-shed/snaptune-go/internal/errors"
	"github.com/anime-shed/snaptune-go/pkg/models"
)

// payload is the JSON contract the analysis service is asked to honour
type payload struct {
	RecommendedSong *struct {
		Title  string `json:"title"`
		Artist string `json:"artist"`
	} `json:"recommendedSong"`
	CustomSong bool    `json:"customSong"`
	Caption    *string `json:"caption"`
}

// cleanJSON strips markdown fences that models like to wrap JSON in
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}
	return strings.TrimSpace(text)
}

// ParseOutcome validates a raw reply against the contract. A caption is only
// kept for modes that want one.
func ParseOutcome(raw string, mode models.PostMode) (*models.AnalysisOutcome, error) {
	body := cleanJSON(raw)
	if body == "" {
		return nil, apperrors.NewContractViolation("analysis service returned an empty reply", nil)
	}

	var p payload
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		return nil, apperrors.NewContractViolation("analysis reply is not valid JSON", err).
			WithDetails(truncate(body, 200))
	}

	if p.RecommendedSong == nil {
		return nil, apperrors.NewContractViolation("analysis reply has no recommendedSong", nil).
			WithDetails(truncate(body, 200))
	}

	rec := models.SongRecommendation{
		Title:          strings.TrimSpace(p.RecommendedSong.Title),
		Artist:         strings.TrimSpace(p.RecommendedSong.Artist),
		UseCustomAudio: p.CustomSong,
	}
	if !rec.Valid() {
		return nil, apperrors.NewContractViolation("analysis reply is missing song title or artist", nil).
			WithDetails(truncate(body, 200))
	}

	outcome := &models.AnalysisOutcome{Recommendation: rec}
	if mode.WantsCaption() && p.Caption != nil {
		if caption := strings.TrimSpace(*p.Caption); caption != "" {
			outcome.Caption = &caption
		}
	}
	return outcome, nil
}

// truncate shortens s to at most n bytes without splitting a rune
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
