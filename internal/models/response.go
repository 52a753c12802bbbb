package models

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Answer is the participant payload. Which field is used depends on the variant.
type Answer struct {
	OptionID string `json:"option_id,omitempty"`
	Text     string `json:"text,omitempty"`
	Value    *int   `json:"value,omitempty"`
}

// Response is one participant's answer to one interaction.
type Response struct {
	InteractionID uuid.UUID `json:"interaction_id"`
	ParticipantID uuid.UUID `json:"participant_id"`
	Answer        Answer    `json:"answer"`
	SubmittedAt   time.Time `json:"submitted_at"`
	Correct       *bool     `json:"correct,omitempty"`
	Points        int       `json:"points"`
}

// NormalizeAnswer checks the payload shape against the interaction and returns the
// canonical answer that will be stored.
func NormalizeAnswer(i *Interaction, a Answer) (Answer, error) {
	switch i.Variant {
	case VariantPoll, VariantQuiz:
		id := strings.ToUpper(strings.TrimSpace(a.OptionID))
		if _, ok := i.Option(id); !ok {
			return Answer{}, fmt.Errorf("%w: unknown option %q", ErrValidation, a.OptionID)
		}
		return Answer{OptionID: id}, nil
	case VariantTask:
		text := strings.TrimSpace(a.Text)
		if text == "" {
			return Answer{}, fmt.Errorf("%w: answer text is required", ErrValidation)
		}
		limit := DefaultCharLimit
		if s, ok := i.Settings.(*TaskSettings); ok {
			limit = s.CharLimit
		}
		if utf8.RuneCountInString(text) > limit {
			return Answer{}, fmt.Errorf("%w: answer exceeds %d characters", ErrValidation, limit)
		}
		return Answer{Text: text}, nil
	case VariantScale:
		max := DefaultScaleMax
		if s, ok := i.Settings.(*ScaleSettings); ok {
			max = s.ScaleMax
		}
		if a.Value == nil || *a.Value < 1 || *a.Value > max {
			return Answer{}, fmt.Errorf("%w: value must be between 1 and %d", ErrValidation, max)
		}
		v := *a.Value
		return Answer{Value: &v}, nil
	default:
		// checkin, cta and reaction acknowledgements carry no payload
		return Answer{}, nil
	}
}
