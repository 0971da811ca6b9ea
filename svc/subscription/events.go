package subscription

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/entitlekit/pkg/broadcast"
	"github.com/dmitrymomot/entitlekit/pkg/logger"
	"github.com/dmitrymomot/entitlekit/pkg/txn"
)

// Changed is fanned out after a subscription write commits.
type Changed struct {
	AccountID uuid.UUID `json:"account_id"`
	PlanID    string    `json:"plan_id"`
	Event     Event     `json:"event"`
	From      Status    `json:"from"`
	To        Status    `json:"to"`
	Source    string    `json:"source,omitempty"`
	At        time.Time `json:"at"`
}

func (s *Service) publish(ctx context.Context, msg Changed) {
	if s.changes == nil {
		return
	}
	txn.AfterCommit(ctx, func(ctx context.Context) {
		if err := s.changes.Broadcast(ctx, broadcast.Message[Changed]{Data: msg}); err != nil {
			s.log.WarnContext(ctx, "failed to publish subscription change",
				logger.AccountID(msg.AccountID), logger.Event(string(msg.Event)), logger.Error(err))
		}
	})
}
