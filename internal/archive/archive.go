// Package archive persists final reports to Postgres as an audit trail.
// The in-memory engine is authoritative; the archive is best-effort and
// entirely optional — without DATABASE_URL the service runs memory-only.
package archive

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/trapline/trapline/internal/report"
)

type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

// SaveReport writes one row per dispatched report into the reports table:
// (id, session_id, scam_detected, total_messages, delivered, intelligence
// jsonb, agent_notes, created_at).
func (s *Store) SaveReport(ctx context.Context, rep report.FinalReport, delivered bool) error {
	intelJSON, err := json.Marshal(rep.ExtractedIntelligence)
	if err != nil {
		return fmt.Errorf("marshal intelligence: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO reports (id, session_id, scam_detected, total_messages, delivered, intelligence, agent_notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())`,
		uuid.New(), rep.SessionID, rep.ScamDetected, rep.TotalMessagesExchanged, delivered, intelJSON, rep.AgentNotes,
	)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}
