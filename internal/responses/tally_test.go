package responses

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPercent(t *testing.T) {
	tests := []struct {
		count, total, want int
	}{
		{0, 0, 0},
		{2, 3, 67},
		{1, 3, 33},
		{1, 8, 13},
		{3, 3, 100},
		{1, 200, 1},
		{1, 201, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Percent(tt.count, tt.total), "%d/%d", tt.count, tt.total)
	}
}

func TestQuizPoints(t *testing.T) {
	timer := 30 * time.Second
	tests := []struct {
		name    string
		correct bool
		elapsed time.Duration
		want    int
	}{
		{"instant", true, 0, MaxPoints},
		{"end of first third", true, 10 * time.Second, MaxPoints},
		{"halfway through decay", true, 20 * time.Second, 500},
		{"at expiry", true, 30 * time.Second, 0},
		{"after expiry", true, time.Minute, 0},
		{"incorrect", false, 0, 0},
		{"clock skew", true, -time.Second, MaxPoints},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, QuizPoints(tt.correct, tt.elapsed, timer))
		})
	}
	assert.Equal(t, 0, QuizPoints(true, 0, 0))
}
