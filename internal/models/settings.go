package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

const (
	DefaultCharLimit = 500
	MaxCharLimit     = 5000
	DefaultScaleMax  = 5
	MinScaleMax      = 2
	MaxScaleMax      = 10
)

// Settings is the per-variant configuration of an interaction.
// Concrete types share BaseSettings; keys that do not belong to a variant are rejected.
type Settings interface {
	Variant() Variant
	Common() BaseSettings
	normalize() error
}

// BaseSettings are recognised by every variant.
type BaseSettings struct {
	AllowLate              bool `json:"allow_late"`
	ShowResultsImmediately bool `json:"show_results_immediately"`
	Anonymous              bool `json:"anonymous"`
}

// Common returns the shared settings.
func (b BaseSettings) Common() BaseSettings { return b }

type PollSettings struct {
	BaseSettings
}

func (*PollSettings) Variant() Variant  { return VariantPoll }
func (*PollSettings) normalize() error { return nil }

// QuizSettings adds the advisory countdown and speed-based points.
type QuizSettings struct {
	BaseSettings
	TimerDuration int  `json:"timer_duration"`
	PointsEnabled bool `json:"points_enabled"`
}

func (*QuizSettings) Variant() Variant { return VariantQuiz }

func (s *QuizSettings) normalize() error {
	if s.TimerDuration < 0 {
		return fmt.Errorf("%w: timer_duration must not be negative", ErrValidation)
	}
	if s.PointsEnabled && s.TimerDuration == 0 {
		return fmt.Errorf("%w: points_enabled requires timer_duration", ErrValidation)
	}
	return nil
}

type CheckinSettings struct {
	BaseSettings
}

func (*CheckinSettings) Variant() Variant  { return VariantCheckin }
func (*CheckinSettings) normalize() error { return nil }

// TaskSettings configures free-text answers.
type TaskSettings struct {
	BaseSettings
	CharLimit int `json:"char_limit"`
}

func (*TaskSettings) Variant() Variant { return VariantTask }

func (s *TaskSettings) normalize() error {
	if s.CharLimit == 0 {
		s.CharLimit = DefaultCharLimit
	}
	if s.CharLimit < 0 || s.CharLimit > MaxCharLimit {
		return fmt.Errorf("%w: char_limit must be between 1 and %d", ErrValidation, MaxCharLimit)
	}
	return nil
}

// ScaleSettings configures 1..ScaleMax rating answers.
type ScaleSettings struct {
	BaseSettings
	ScaleMax int `json:"scale_max"`
}

func (*ScaleSettings) Variant() Variant { return VariantScale }

func (s *ScaleSettings) normalize() error {
	if s.ScaleMax == 0 {
		s.ScaleMax = DefaultScaleMax
	}
	if s.ScaleMax < MinScaleMax || s.ScaleMax > MaxScaleMax {
		return fmt.Errorf("%w: scale_max must be between %d and %d", ErrValidation, MinScaleMax, MaxScaleMax)
	}
	return nil
}

// CTASettings points participants at a link.
type CTASettings struct {
	BaseSettings
	URL        string `json:"url"`
	ButtonText string `json:"button_text,omitempty"`
}

func (*CTASettings) Variant() Variant { return VariantCTA }

func (s *CTASettings) normalize() error {
	s.URL = strings.TrimSpace(s.URL)
	u, err := url.Parse(s.URL)
	if s.URL == "" || err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%w: cta needs an http(s) url", ErrValidation)
	}
	return nil
}

type ReactionSettings struct {
	BaseSettings
}

func (*ReactionSettings) Variant() Variant  { return VariantReaction }
func (*ReactionSettings) normalize() error { return nil }

// ParseSettings decodes raw settings for the given variant on top of base.
// Keys missing from raw keep the values from base.
func ParseSettings(v Variant, raw json.RawMessage, base BaseSettings) (Settings, error) {
	var s Settings
	switch v {
	case VariantPoll:
		s = &PollSettings{BaseSettings: base}
	case VariantQuiz:
		s = &QuizSettings{BaseSettings: base}
	case VariantCheckin:
		s = &CheckinSettings{BaseSettings: base}
	case VariantTask:
		s = &TaskSettings{BaseSettings: base}
	case VariantScale:
		s = &ScaleSettings{BaseSettings: base}
	case VariantCTA:
		s = &CTASettings{BaseSettings: base}
	case VariantReaction:
		s = &ReactionSettings{BaseSettings: base}
	default:
		return nil, fmt.Errorf("%w: unknown variant %q", ErrValidation, v)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && !bytes.Equal(raw, []byte("null")) {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		if err := dec.Decode(s); err != nil {
			return nil, fmt.Errorf("%w: %s settings: %v", ErrValidation, v, err)
		}
	}
	if err := s.normalize(); err != nil {
		return nil, err
	}
	return s, nil
}
