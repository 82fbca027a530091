package services

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/glovia/internal/models"
)

func TestCheckoutGateThresholdBoundary(t *testing.T) {
	db := newTestDB(t)
	gate := NewCheckoutGate(db)
	user := createTestUser(t, db)

	require.NoError(t, db.Model(user).Updates(map[string]interface{}{
		"trust_score":       59,
		"is_email_verified": true,
		"is_phone_verified": false,
	}).Error)

	err := gate.Authorize(user.ID)
	var trustErr *InsufficientTrustError
	require.True(t, errors.As(err, &trustErr))
	assert.Equal(t, 59, trustErr.Score)
	assert.Equal(t, CheckoutTrustThreshold, trustErr.Required)
	assert.Equal(t, []string{"phone verification"}, trustErr.Missing)

	require.NoError(t, db.Model(user).Update("trust_score", 60).Error)
	assert.NoError(t, gate.Authorize(user.ID))
}

func TestCheckoutGateReportsAllMissingVerifications(t *testing.T) {
	db := newTestDB(t)
	gate := NewCheckoutGate(db)
	user := createTestUser(t, db)

	err := gate.Authorize(user.ID)
	var trustErr *InsufficientTrustError
	require.True(t, errors.As(err, &trustErr))
	assert.Equal(t, 0, trustErr.Score)
	assert.Equal(t, []string{"email verification", "phone verification"}, trustErr.Missing)
}

func TestCheckoutGateBlockedUser(t *testing.T) {
	db := newTestDB(t)
	gate := NewCheckoutGate(db)
	user := createTestUser(t, db)

	// A blocked account is denied even with a perfect score.
	require.NoError(t, db.Model(user).Updates(map[string]interface{}{
		"trust_score": 100,
		"is_blocked":  true,
	}).Error)

	assert.ErrorIs(t, gate.Authorize(user.ID), ErrBlocked)
}

func TestCheckoutGateUnknownUser(t *testing.T) {
	db := newTestDB(t)
	gate := NewCheckoutGate(db)

	assert.ErrorIs(t, gate.Authorize(uuid.New()), ErrNotFound)
}

func TestCheckoutGateKeepsUserUntouched(t *testing.T) {
	db := newTestDB(t)
	gate := NewCheckoutGate(db)
	user := createTestUser(t, db)

	_ = gate.Authorize(user.ID)

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, "id = ?", user.ID).Error)
	assert.Equal(t, 0, reloaded.TrustScore)
	assert.Equal(t, 0, reloaded.FailedAttempts)
}
