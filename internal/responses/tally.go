package responses

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/google/uuid"

	"github.com/aura-webinar/live-engine/internal/models"
)

// Tally is the aggregate of all responses to one interaction. Total is the number of
// responses, which is the whole result for checkin, cta and reaction interactions.
type Tally struct {
	InteractionID uuid.UUID                `json:"interaction_id"`
	WebinarID     uuid.UUID                `json:"webinar_id"`
	Variant       models.Variant           `json:"variant"`
	Status        models.InteractionStatus `json:"status"`
	Total         int                      `json:"total"`
	Counts        map[string]int           `json:"counts,omitempty"`
	Percentages   map[string]int           `json:"percentages,omitempty"`
	Correct       *int                     `json:"correct,omitempty"`
	Average       *float64                 `json:"average,omitempty"`
	Texts         []string                 `json:"texts,omitempty"`
	Points        []ParticipantPoints      `json:"points,omitempty"`
}

// ParticipantPoints is one quiz score. Only hosts see these.
type ParticipantPoints struct {
	ParticipantID uuid.UUID `json:"participant_id"`
	Correct       bool      `json:"correct"`
	Points        int       `json:"points"`
}

// Percent rounds count/total to an integer percentage; 0 when total is 0.
func Percent(count, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(count) / float64(total) * 100))
}

// ComputeTally aggregates responses. Every option (or scale value) has an entry in
// Counts even when nobody picked it.
func ComputeTally(i *models.Interaction, responses []models.Response) *Tally {
	t := &Tally{
		InteractionID: i.ID,
		WebinarID:     i.WebinarID,
		Variant:       i.Variant,
		Status:        i.Status,
		Total:         len(responses),
	}

	switch i.Variant {
	case models.VariantPoll, models.VariantQuiz:
		t.Counts = make(map[string]int, len(i.Options))
		for _, o := range i.Options {
			t.Counts[o.ID] = 0
		}
		correct := 0
		for _, r := range responses {
			t.Counts[r.Answer.OptionID]++
			if r.Correct != nil && *r.Correct {
				correct++
			}
		}
		t.Percentages = percentages(t.Counts, t.Total)
		if i.Variant == models.VariantQuiz {
			t.Correct = &correct
			if s, ok := i.Settings.(*models.QuizSettings); ok && s.PointsEnabled {
				t.Points = quizPoints(responses)
			}
		}

	case models.VariantScale:
		max := models.DefaultScaleMax
		if s, ok := i.Settings.(*models.ScaleSettings); ok {
			max = s.ScaleMax
		}
		t.Counts = make(map[string]int, max)
		for v := 1; v <= max; v++ {
			t.Counts[strconv.Itoa(v)] = 0
		}
		sum := 0
		for _, r := range responses {
			if r.Answer.Value == nil {
				continue
			}
			t.Counts[strconv.Itoa(*r.Answer.Value)]++
			sum += *r.Answer.Value
		}
		t.Percentages = percentages(t.Counts, t.Total)
		avg := 0.0
		if t.Total > 0 {
			avg = math.Round(float64(sum)/float64(t.Total)*100) / 100
		}
		t.Average = &avg

	case models.VariantTask:
		if !i.Settings.Common().Anonymous {
			t.Texts = make([]string, 0, len(responses))
			for _, r := range responses {
				t.Texts = append(t.Texts, r.Answer.Text)
			}
		}
	}
	return t
}

func percentages(counts map[string]int, total int) map[string]int {
	p := make(map[string]int, len(counts))
	for k, c := range counts {
		p[k] = Percent(c, total)
	}
	return p
}

func quizPoints(responses []models.Response) []ParticipantPoints {
	out := make([]ParticipantPoints, 0, len(responses))
	for _, r := range responses {
		out = append(out, ParticipantPoints{
			ParticipantID: r.ParticipantID,
			Correct:       r.Correct != nil && *r.Correct,
			Points:        r.Points,
		})
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Points > out[b].Points })
	return out
}

// Public strips per-participant data so the tally can go to participants.
func (t *Tally) Public() *Tally {
	c := *t
	c.Points = nil
	return &c
}

func marshalTally(t *Tally) (json.RawMessage, error) {
	b, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("encode tally: %w", err)
	}
	return b, nil
}
