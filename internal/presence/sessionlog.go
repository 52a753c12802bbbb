package presence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-webinar/live-engine/internal/models"
)

// SessionLog records participant presence windows in participant_sessions.
type SessionLog struct {
	pool *pgxpool.Pool
}

// NewSessionLog creates a session log repository.
func NewSessionLog(pool *pgxpool.Pool) *SessionLog {
	return &SessionLog{pool: pool}
}

// LogJoin opens a session row when a participant joins a webinar.
func (s *SessionLog) LogJoin(ctx context.Context, webinarID, participantID uuid.UUID, at time.Time) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO participant_sessions (webinar_id, participant_id, connected_at) VALUES ($1, $2, $3)`,
		webinarID, participantID, at)
	return err
}

// LogLeave closes the most recent open session of this participant in this webinar.
func (s *SessionLog) LogLeave(ctx context.Context, webinarID, participantID uuid.UUID, at time.Time) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE participant_sessions p SET disconnected_at = $3
		 FROM (SELECT id FROM participant_sessions WHERE webinar_id = $1 AND participant_id = $2 AND disconnected_at IS NULL
		       ORDER BY connected_at DESC LIMIT 1) AS sub
		 WHERE p.id = sub.id`,
		webinarID, participantID, at)
	return err
}

// List returns a webinar's sessions, newest first.
func (s *SessionLog) List(ctx context.Context, webinarID uuid.UUID) ([]models.ParticipantSession, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, webinar_id, participant_id, connected_at, disconnected_at
		 FROM participant_sessions WHERE webinar_id = $1 ORDER BY connected_at DESC`,
		webinarID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.ParticipantSession
	for rows.Next() {
		var row models.ParticipantSession
		if err := rows.Scan(&row.ID, &row.WebinarID, &row.ParticipantID, &row.ConnectedAt, &row.DisconnectedAt); err != nil {
			return nil, err
		}
		list = append(list, row)
	}
	return list, rows.Err()
}

// DistinctParticipants counts everyone who joined the webinar at least once.
func (s *SessionLog) DistinctParticipants(ctx context.Context, webinarID uuid.UUID) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(DISTINCT participant_id) FROM participant_sessions WHERE webinar_id = $1`, webinarID).Scan(&n)
	return n, err
}
