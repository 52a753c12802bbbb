package models

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Variant is the kind of audience activity an interaction runs.
type Variant string

const (
	VariantPoll     Variant = "poll"
	VariantQuiz     Variant = "quiz"
	VariantCheckin  Variant = "checkin"
	VariantTask     Variant = "task"
	VariantCTA      Variant = "cta"
	VariantReaction Variant = "reaction"
	VariantScale    Variant = "scale"
)

// Valid reports whether v is a known variant.
func (v Variant) Valid() bool {
	switch v {
	case VariantPoll, VariantQuiz, VariantCheckin, VariantTask, VariantCTA, VariantReaction, VariantScale:
		return true
	}
	return false
}

// HasOptions reports whether responses select one of the interaction's options.
func (v Variant) HasOptions() bool {
	return v == VariantPoll || v == VariantQuiz
}

// InteractionStatus is the lifecycle state: draft -> active -> ended.
type InteractionStatus string

const (
	StatusDraft  InteractionStatus = "draft"
	StatusActive InteractionStatus = "active"
	StatusEnded  InteractionStatus = "ended"
)

const (
	MinOptions     = 2
	MaxOptions     = 4
	MaxTitleLength = 200
)

// optionIDs are assigned to options in order, matching the A/B/C/D answer keys.
var optionIDs = [MaxOptions]string{"A", "B", "C", "D"}

// Option is one choice of a poll or quiz. Options are embedded in the interaction.
type Option struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct"`
}

// OptionInput is the host-supplied shape of an option at create time.
type OptionInput struct {
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct"`
}

// Interaction is one discrete audience activity within a webinar.
type Interaction struct {
	ID          uuid.UUID         `json:"id"`
	WebinarID   uuid.UUID         `json:"webinar_id"`
	Variant     Variant           `json:"variant"`
	Title       string            `json:"title"`
	Prompt      string            `json:"prompt"`
	Options     []Option          `json:"options,omitempty"`
	Settings    Settings          `json:"settings"`
	Status      InteractionStatus `json:"status"`
	OrderIndex  int               `json:"order_index"`
	CreatedAt   time.Time         `json:"created_at"`
	ActivatedAt *time.Time        `json:"activated_at,omitempty"`
	EndedAt     *time.Time        `json:"ended_at,omitempty"`
}

// NewDraft validates the create request and returns an unsaved draft interaction.
func NewDraft(webinarID uuid.UUID, variant Variant, title, prompt string, options []OptionInput, settings Settings) (*Interaction, error) {
	if !variant.Valid() {
		return nil, fmt.Errorf("%w: unknown variant %q", ErrValidation, variant)
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return nil, fmt.Errorf("%w: title exceeds %d characters", ErrValidation, MaxTitleLength)
	}
	if settings == nil {
		return nil, fmt.Errorf("%w: settings are required", ErrValidation)
	}
	if settings.Variant() != variant {
		return nil, fmt.Errorf("%w: %s settings given for a %s", ErrValidation, settings.Variant(), variant)
	}

	var opts []Option
	if variant.HasOptions() {
		if len(options) < MinOptions || len(options) > MaxOptions {
			return nil, fmt.Errorf("%w: %s needs %d-%d options, got %d", ErrValidation, variant, MinOptions, MaxOptions, len(options))
		}
		hasCorrect := false
		opts = make([]Option, 0, len(options))
		for i, in := range options {
			text := strings.TrimSpace(in.Text)
			if text == "" {
				return nil, fmt.Errorf("%w: option %d has no text", ErrValidation, i+1)
			}
			correct := variant == VariantQuiz && in.IsCorrect
			hasCorrect = hasCorrect || correct
			opts = append(opts, Option{ID: optionIDs[i], Text: text, IsCorrect: correct})
		}
		if variant == VariantQuiz && !hasCorrect {
			return nil, fmt.Errorf("%w: quiz needs at least one correct option", ErrValidation)
		}
	} else if len(options) > 0 {
		return nil, fmt.Errorf("%w: %s does not take options", ErrValidation, variant)
	}

	return &Interaction{
		WebinarID: webinarID,
		Variant:   variant,
		Title:     title,
		Prompt:    strings.TrimSpace(prompt),
		Options:   opts,
		Settings:  settings,
		Status:    StatusDraft,
	}, nil
}

// Option returns the option with the given id.
func (i *Interaction) Option(id string) (Option, bool) {
	for _, o := range i.Options {
		if o.ID == id {
			return o, true
		}
	}
	return Option{}, false
}

// Clone returns a copy that shares no mutable state with i. Settings are immutable after creation.
func (i *Interaction) Clone() *Interaction {
	c := *i
	if i.Options != nil {
		c.Options = append([]Option(nil), i.Options...)
	}
	if i.ActivatedAt != nil {
		t := *i.ActivatedAt
		c.ActivatedAt = &t
	}
	if i.EndedAt != nil {
		t := *i.EndedAt
		c.EndedAt = &t
	}
	return &c
}

// ForParticipant hides quiz answers until the interaction has ended.
func (i *Interaction) ForParticipant() *Interaction {
	c := i.Clone()
	if c.Status != StatusEnded {
		for idx := range c.Options {
			c.Options[idx].IsCorrect = false
		}
	}
	return c
}

// ResultsVisibleToParticipants applies the participant visibility rule for tallies.
func (i *Interaction) ResultsVisibleToParticipants() bool {
	return i.Status == StatusEnded || i.Settings.Common().ShowResultsImmediately
}
