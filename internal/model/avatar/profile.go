package avatar

import "github.com/zhouzirui/avatar-interview/backend/internal/model/interview"

// DefaultAvatarID is used when a session request names no avatar.
const DefaultAvatarID = "Ann_Therapist"

// Profile captures the interviewer presets exposed to the frontend.
type Profile struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Title       string          `json:"title"`
	Language    string          `json:"language"`
	Quality     string          `json:"quality"`
	Voice       interview.Voice `json:"voice"`
	OpeningLine string          `json:"openingLine,omitempty"`
	Description string          `json:"description,omitempty"`
}

// Seed provides the default interviewer avatars.
func Seed() []Profile {
	return []Profile{
		{
			ID:          "Ann_Therapist",
			Name:        "Ann",
			Title:       "Warm screening interviewer",
			Language:    "en",
			Quality:     "low",
			Voice:       interview.Voice{Rate: 1.0, Emotion: "FRIENDLY"},
			OpeningLine: "Hi, I'm Ann. Thanks for joining, let's start whenever you're ready.",
			Description: "Calm, friendly interviewer used for first-round screening calls.",
		},
		{
			ID:          "Shawn_Therapist",
			Name:        "Shawn",
			Title:       "Structured technical interviewer",
			Language:    "en",
			Quality:     "medium",
			Voice:       interview.Voice{Rate: 1.0, Emotion: "SERIOUS"},
			OpeningLine: "Hello, I'm Shawn. I'll walk you through a few technical questions today.",
			Description: "Keeps a steady pace and follows the question plan closely.",
		},
		{
			ID:          "Dexter_Lawyer",
			Name:        "Dexter",
			Title:       "Bahasa Indonesia interviewer",
			Language:    "id",
			Quality:     "low",
			Voice:       interview.Voice{Rate: 0.9, Emotion: "SOOTHING"},
			OpeningLine: "Halo, saya Dexter. Mari kita mulai wawancaranya.",
			Description: "Slower delivery for interviews held in Bahasa Indonesia.",
		},
	}
}

// ApplyDefaults fills the zero fields of cfg from the profile.
func (p Profile) ApplyDefaults(cfg interview.Config) interview.Config {
	if cfg.Language == "" {
		cfg.Language = p.Language
	}
	if cfg.Quality == "" {
		cfg.Quality = p.Quality
	}
	if cfg.Voice.Rate == 0 {
		cfg.Voice.Rate = p.Voice.Rate
	}
	if cfg.Voice.Emotion == "" {
		cfg.Voice.Emotion = p.Voice.Emotion
	}
	return cfg
}
