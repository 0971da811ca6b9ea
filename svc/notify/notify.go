// Package notify reacts to committed subscription changes: it e-mails the
// account on cancellation and expiry and optionally forwards every change to
// an outbound webhook. Delivery is best effort and never affects the
// subscription state.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/a-h/templ"
	"github.com/google/uuid"

	"github.com/dmitrymomot/entitlekit/pkg/broadcast"
	"github.com/dmitrymomot/entitlekit/pkg/email"
	"github.com/dmitrymomot/entitlekit/pkg/email/templates"
	"github.com/dmitrymomot/entitlekit/pkg/logger"
	"github.com/dmitrymomot/entitlekit/pkg/webhook"
	"github.com/dmitrymomot/entitlekit/svc/account"
	"github.com/dmitrymomot/entitlekit/svc/subscription"
)

type Config struct {
	AppURL        string `env:"APP_URL" envDefault:"http://localhost:8080"`
	WebhookURL    string `env:"NOTIFY_WEBHOOK_URL"`
	WebhookSecret string `env:"NOTIFY_WEBHOOK_SECRET"`
}

type Accounts interface {
	Get(ctx context.Context, id uuid.UUID) (*account.Account, error)
}

type Notifier struct {
	accounts Accounts
	mailer   email.Sender
	hooks    *webhook.Sender
	cfg      Config
	log      *slog.Logger
}

type Option func(*Notifier)

func WithLogger(l *slog.Logger) Option {
	return func(n *Notifier) { n.log = l }
}

// WithWebhookSender replaces the outbound webhook client.
func WithWebhookSender(s *webhook.Sender) Option {
	return func(n *Notifier) { n.hooks = s }
}

func New(accounts Accounts, mailer email.Sender, cfg Config, opts ...Option) *Notifier {
	n := &Notifier{
		accounts: accounts,
		mailer:   mailer,
		hooks:    webhook.NewSender(),
		cfg:      cfg,
		log:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(n)
	}
	n.log = n.log.With(logger.Component("notify"))
	return n
}

// Run consumes changes from b until ctx is done.
func (n *Notifier) Run(ctx context.Context, b broadcast.Broadcaster[subscription.Changed]) error {
	sub := b.Subscribe(ctx)
	defer func() { _ = sub.Close() }()

	ch := sub.Receive(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			if err := n.Handle(ctx, msg.Data); err != nil {
				n.log.WarnContext(ctx, "notification failed",
					logger.AccountID(msg.Data.AccountID), logger.Event(string(msg.Data.Event)), logger.Error(err))
			}
		}
	}
}

// Handle delivers the notifications for one change.
func (n *Notifier) Handle(ctx context.Context, c subscription.Changed) error {
	var errs []error
	if n.cfg.WebhookURL != "" {
		var opts []webhook.Option
		if n.cfg.WebhookSecret != "" {
			opts = append(opts, webhook.WithSignature(n.cfg.WebhookSecret))
		}
		if err := n.hooks.Send(ctx, n.cfg.WebhookURL, c, opts...); err != nil {
			errs = append(errs, fmt.Errorf("webhook: %w", err))
		}
	}
	if msg, ok := n.compose(ctx, c); ok {
		if err := n.mail(ctx, c.AccountID, msg); err != nil {
			errs = append(errs, fmt.Errorf("email: %w", err))
		}
	}
	return errors.Join(errs...)
}

type notice struct {
	subject string
	lines   []string
	tag     string
}

func (n *Notifier) compose(_ context.Context, c subscription.Changed) (notice, bool) {
	switch {
	case c.Event == subscription.EventCancel && c.To == subscription.StatusCanceled:
		return notice{
			subject: "Your subscription was canceled",
			lines: []string{
				"Your subscription will not renew.",
				"You keep every feature of your current plan until the end of the billing period.",
			},
			tag: "subscription-canceled",
		}, true
	case c.Event == subscription.EventExpire && c.To == subscription.StatusExpired:
		return notice{
			subject: "Your plan has ended",
			lines: []string{
				"Your paid period is over and your account is now on the free plan.",
				"Upgrade at any time to restore your limits.",
			},
			tag: "subscription-expired",
		}, true
	}
	return notice{}, false
}

func (n *Notifier) mail(ctx context.Context, accountID uuid.UUID, msg notice) error {
	if n.mailer == nil {
		return nil
	}
	a, err := n.accounts.Get(ctx, accountID)
	if err != nil {
		return err
	}

	parts := make([]templ.Component, 0, len(msg.lines)+1)
	for _, l := range msg.lines {
		parts = append(parts, templates.Text(l))
	}
	parts = append(parts, templates.Button("Manage subscription", n.cfg.AppURL+"/subscription"))

	body, err := templates.Render(ctx, templates.Layout(msg.subject, parts...))
	if err != nil {
		return err
	}
	return n.mailer.SendEmail(ctx, email.Message{
		SendTo:   a.Email,
		Subject:  msg.subject,
		BodyHTML: body,
		Tag:      msg.tag,
	})
}
