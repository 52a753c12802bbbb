package responses

import (
	"math"
	"time"

	"github.com/aura-webinar/live-engine/internal/models"
)

// MaxPoints is awarded for a correct quiz answer inside the first third of the timer.
const MaxPoints = 1000

// QuizPoints scores a quiz answer. Correct answers earn MaxPoints up to a third of
// the timer, then linearly less until zero at timer expiry. Incorrect answers earn 0.
func QuizPoints(correct bool, elapsed, timer time.Duration) int {
	if !correct || timer <= 0 {
		return 0
	}
	if elapsed < 0 {
		elapsed = 0
	}
	full := timer / 3
	switch {
	case elapsed <= full:
		return MaxPoints
	case elapsed >= timer:
		return 0
	}
	remaining := float64(timer-elapsed) / float64(timer-full)
	return int(math.Round(MaxPoints * remaining))
}

// scoreQuiz fills Correct and Points of a new quiz response.
func scoreQuiz(i *models.Interaction, r *models.Response) {
	opt, _ := i.Option(r.Answer.OptionID)
	correct := opt.IsCorrect
	r.Correct = &correct
	r.Points = 0

	s, ok := i.Settings.(*models.QuizSettings)
	if !ok || !s.PointsEnabled || i.ActivatedAt == nil {
		return
	}
	elapsed := r.SubmittedAt.Sub(*i.ActivatedAt)
	r.Points = QuizPoints(correct, elapsed, time.Duration(s.TimerDuration)*time.Second)
}
