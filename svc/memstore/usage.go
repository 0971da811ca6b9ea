package memstore

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/entitlekit/svc/usage"
)

func (s *Store) AppendUsage(ctx context.Context, e usage.Event) (bool, error) {
	var inserted bool
	err := s.do(ctx, func(st *state) error {
		if e.ArtifactID != "" && st.usageRecorded(e.AccountID, e.Kind, e.ArtifactID) {
			return nil
		}
		st.usage = append(st.usage, e)
		inserted = true
		return nil
	})
	return inserted, err
}

func (s *Store) AggregateUsage(ctx context.Context, accountID uuid.UUID, start, end time.Time) (usage.Snapshot, error) {
	var snap usage.Snapshot
	err := s.do(ctx, func(st *state) error {
		for _, e := range st.usage {
			if e.AccountID != accountID || e.OccurredAt.Before(start) || !e.OccurredAt.Before(end) {
				continue
			}
			switch e.Kind {
			case usage.KindOperation:
				snap.OperationCount += e.Quantity
			case usage.KindMeteredMinutes:
				snap.MeteredMinutes += e.Quantity
			}
		}
		return nil
	})
	return snap, err
}

func (s *Store) UsageRecorded(ctx context.Context, accountID uuid.UUID, kind usage.Kind, artifactID string) (bool, error) {
	var seen bool
	err := s.do(ctx, func(st *state) error {
		seen = st.usageRecorded(accountID, kind, artifactID)
		return nil
	})
	return seen, err
}

// UsageEvents returns the number of stored events for an account.
func (s *Store) UsageEvents(accountID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.data.usage {
		if e.AccountID == accountID {
			n++
		}
	}
	return n
}

func (st *state) usageRecorded(accountID uuid.UUID, kind usage.Kind, artifactID string) bool {
	for _, e := range st.usage {
		if e.AccountID == accountID && e.Kind == kind && e.ArtifactID == artifactID {
			return true
		}
	}
	return false
}
