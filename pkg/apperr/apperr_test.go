package apperr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/entitlekit/pkg/apperr"
)

var errUnknownPlan = apperr.New(apperr.ErrValidation, "unknown_plan", "unknown plan")

func TestSentinel(t *testing.T) {
	t.Parallel()

	wrapped := apperr.Wrapf(errUnknownPlan, "plan %q", "gold")
	assert.ErrorIs(t, wrapped, errUnknownPlan)
	assert.ErrorIs(t, wrapped, apperr.ErrValidation)
	assert.NotErrorIs(t, wrapped, apperr.ErrConflict)
	assert.Equal(t, "unknown_plan", apperr.CodeOf(wrapped))
	assert.Equal(t, `unknown plan: plan "gold"`, wrapped.Error())
}

func TestCodeOf_Kinds(t *testing.T) {
	t.Parallel()

	cases := map[string]error{
		"unauthorized":         apperr.ErrUnauthorized,
		"not_configured":       fmt.Errorf("gateway: %w", apperr.ErrNotConfigured),
		"upstream_unavailable": errors.Join(apperr.ErrUpstreamUnavailable, errors.New("dial tcp")),
		"internal_error":       errors.New("plain"),
	}
	for code, err := range cases {
		assert.Equal(t, code, apperr.CodeOf(err))
	}
}

func TestValidationError(t *testing.T) {
	t.Parallel()

	v := apperr.NewValidationError()
	assert.NoError(t, v.Err())

	v.Add("plan_id", "is required")
	v.Add("amount", "must be positive")
	err := v.Err()

	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.True(t, v.Has("plan_id"))
	assert.Equal(t, "validation error: amount: must be positive; plan_id: is required", err.Error())
	assert.Equal(t, "validation_error", apperr.CodeOf(err))
}
