package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/set-night/tokobot/internal/domain"
)

func (s *Store) SaveInteraction(ctx context.Context, r domain.InteractionRecord) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO interactions (created_at, conversation_id, question, answer, duration_ms, question_bytes, answer_bytes)
		VALUES (?, ?, ?, ?, ?, ?, ?)`),
		r.Timestamp.UTC(), r.ConversationID, r.Question, r.Answer,
		r.Duration.Milliseconds(), r.QuestionBytes, r.AnswerBytes,
	)
	if err != nil {
		return fmt.Errorf("save interaction: %w", err)
	}
	return nil
}

// ListInteractions returns the most recent interactions first.
func (s *Store) ListInteractions(ctx context.Context, limit, offset int) ([]domain.InteractionRecord, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT created_at, conversation_id, question, answer, duration_ms, question_bytes, answer_bytes
		FROM interactions ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`),
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list interactions: %w", err)
	}
	defer rows.Close()

	var out []domain.InteractionRecord
	for rows.Next() {
		var r domain.InteractionRecord
		var durationMs int64
		if err := rows.Scan(&r.Timestamp, &r.ConversationID, &r.Question, &r.Answer, &durationMs, &r.QuestionBytes, &r.AnswerBytes); err != nil {
			return nil, fmt.Errorf("scan interaction: %w", err)
		}
		r.Duration = time.Duration(durationMs) * time.Millisecond
		out = append(out, r)
	}
	return out, rows.Err()
}
