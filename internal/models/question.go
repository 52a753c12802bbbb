package models

import (
	"time"

	"github.com/google/uuid"
)

// QuestionStatus is the moderation state of a Q&A question.
type QuestionStatus string

const (
	QuestionPending  QuestionStatus = "pending"
	QuestionAnswered QuestionStatus = "answered"
	QuestionHidden   QuestionStatus = "hidden"
)

// MaxQuestionLength is the fixed limit on question text, in characters.
const MaxQuestionLength = 500

// Question represents an audience question in a webinar.
type Question struct {
	ID          uuid.UUID      `json:"id"`
	WebinarID   uuid.UUID      `json:"webinar_id"`
	AuthorID    *uuid.UUID     `json:"author_id,omitempty"`
	Text        string         `json:"text"`
	Upvotes     int            `json:"upvotes"`
	Status      QuestionStatus `json:"status"`
	Highlighted bool           `json:"highlighted"`
	CreatedAt   time.Time      `json:"created_at"`
}

// QuestionLess orders questions for display: most upvoted first, oldest first on ties.
func QuestionLess(a, b Question) bool {
	if a.Upvotes != b.Upvotes {
		return a.Upvotes > b.Upvotes
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID.String() < b.ID.String()
}

// ForParticipant hides the author, and the text of hidden questions.
func (q Question) ForParticipant() Question {
	q.AuthorID = nil
	if q.Status == QuestionHidden {
		q.Text = ""
	}
	return q
}
