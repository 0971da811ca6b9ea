package pgstore

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/entitlekit/svc/usage"
)

func (s *Store) AppendUsage(ctx context.Context, e usage.Event) (bool, error) {
	ct, err := s.conn(ctx).Exec(ctx, `
		INSERT INTO usage_events (id, account_id, kind, quantity, artifact_id, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (account_id, kind, artifact_id) WHERE artifact_id <> '' DO NOTHING`,
		e.ID, e.AccountID, string(e.Kind), e.Quantity, e.ArtifactID, e.OccurredAt,
	)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

func (s *Store) AggregateUsage(ctx context.Context, accountID uuid.UUID, start, end time.Time) (usage.Snapshot, error) {
	var snap usage.Snapshot
	err := s.conn(ctx).QueryRow(ctx, `
		SELECT
			COALESCE(SUM(quantity) FILTER (WHERE kind = $4), 0),
			COALESCE(SUM(quantity) FILTER (WHERE kind = $5), 0)
		FROM usage_events
		WHERE account_id = $1 AND occurred_at >= $2 AND occurred_at < $3`,
		accountID, start, end, string(usage.KindOperation), string(usage.KindMeteredMinutes),
	).Scan(&snap.OperationCount, &snap.MeteredMinutes)
	return snap, err
}

func (s *Store) UsageRecorded(ctx context.Context, accountID uuid.UUID, kind usage.Kind, artifactID string) (bool, error) {
	var seen bool
	err := s.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM usage_events WHERE account_id = $1 AND kind = $2 AND artifact_id = $3
		)`, accountID, string(kind), artifactID,
	).Scan(&seen)
	return seen, err
}
