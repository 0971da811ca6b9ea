package email_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/entitlekit/pkg/email"
	"github.com/dmitrymomot/entitlekit/pkg/email/templates"
)

func validMessage() email.Message {
	return email.Message{
		SendTo:   "user@example.com",
		Subject:  "Your plan expired",
		BodyHTML: "<p>hi</p>",
		Tag:      "plan-expired",
	}
}

func TestMessage_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*email.Message)
		ok     bool
	}{
		{"valid", func(*email.Message) {}, true},
		{"missing recipient", func(m *email.Message) { m.SendTo = "" }, false},
		{"bad recipient", func(m *email.Message) { m.SendTo = "not-an-email" }, false},
		{"missing subject", func(m *email.Message) { m.Subject = "" }, false},
		{"missing body", func(m *email.Message) { m.BodyHTML = "" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := validMessage()
			tt.mutate(&m)
			err := m.Validate()
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, email.ErrInvalidParams)
		})
	}
}

func TestDevSender(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	s := email.NewDevSender(dir)
	require.NoError(t, s.SendEmail(context.Background(), validMessage()))

	files, err := filepath.Glob(filepath.Join(dir, "*_plan-expired.*"))
	require.NoError(t, err)
	require.Len(t, files, 2)

	for _, f := range files {
		if !strings.HasSuffix(f, ".json") {
			continue
		}
		raw, err := os.ReadFile(f)
		require.NoError(t, err)
		var meta map[string]string
		require.NoError(t, json.Unmarshal(raw, &meta))
		assert.Equal(t, "user@example.com", meta["send_to"])
		assert.Equal(t, "Your plan expired", meta["subject"])
	}

	assert.ErrorIs(t, s.SendEmail(context.Background(), email.Message{}), email.ErrInvalidParams)
}

func TestNew(t *testing.T) {
	t.Parallel()

	s, err := email.New(email.Config{DevDir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &email.DevSender{}, s)

	s, err = email.New(email.Config{
		PostmarkServerToken:  "server",
		PostmarkAccountToken: "account",
		SenderEmail:          "billing@example.com",
		SupportEmail:         "support@example.com",
	})
	require.NoError(t, err)
	assert.NotNil(t, s)

	_, err = email.New(email.Config{
		PostmarkServerToken:  "server",
		PostmarkAccountToken: "account",
		SenderEmail:          "broken",
		SupportEmail:         "support@example.com",
	})
	assert.ErrorIs(t, err, email.ErrInvalidConfig)
}

func TestTemplates(t *testing.T) {
	t.Parallel()
	html, err := templates.Render(context.Background(), templates.Layout("Plan <expired>",
		templates.Text("Access ends & resets."),
		templates.Button("Renew", "https://example.com/billing"),
	))
	require.NoError(t, err)
	assert.Contains(t, html, "Plan &lt;expired&gt;")
	assert.Contains(t, html, "Access ends &amp; resets.")
	assert.Contains(t, html, `href="https://example.com/billing"`)
}
