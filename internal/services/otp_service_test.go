package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/glovia/internal/models"
)

func wrongCodeFor(code string) string {
	if code == "000000" {
		return "111111"
	}
	return "000000"
}

func TestOTPIssueAndVerifyPhone(t *testing.T) {
	db := newTestDB(t)
	trust := NewTrustService(db)
	sms := &fakeSender{ok: true}
	email := &fakeSender{ok: true}
	otp := NewOTPService(db, trust, sms, email)
	user := createTestUser(t, db)

	require.NoError(t, otp.Issue(user.ID, *user.Phone, models.OtpPurposePhoneVerification))
	require.Len(t, sms.sent, 1)
	assert.Empty(t, email.sent)

	challenge := latestChallenge(t, db, user.ID)
	assert.Len(t, challenge.Code, 6)
	assert.WithinDuration(t, time.Now().Add(5*time.Minute), challenge.ExpiresAt, 10*time.Second)

	require.NoError(t, otp.Verify(user.ID, *user.Phone, models.OtpPurposePhoneVerification, challenge.Code))

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, "id = ?", user.ID).Error)
	assert.True(t, reloaded.IsPhoneVerified)
	assert.Equal(t, TrustPointsPhone, reloaded.TrustScore)

	// A verified challenge cannot be replayed.
	err := otp.Verify(user.ID, *user.Phone, models.OtpPurposePhoneVerification, challenge.Code)
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func TestOTPEmailVerificationRewardsTrust(t *testing.T) {
	db := newTestDB(t)
	trust := NewTrustService(db)
	otp := NewOTPService(db, trust, &fakeSender{ok: true}, &fakeSender{ok: true})
	user := createTestUser(t, db)

	require.NoError(t, otp.Issue(user.ID, user.Email, models.OtpPurposeEmailVerification))
	challenge := latestChallenge(t, db, user.ID)
	require.NoError(t, otp.Verify(user.ID, user.Email, models.OtpPurposeEmailVerification, challenge.Code))

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, "id = ?", user.ID).Error)
	assert.True(t, reloaded.IsEmailVerified)
	assert.Equal(t, TrustPointsEmail, reloaded.TrustScore)
}

func TestOTPResendRateLimit(t *testing.T) {
	db := newTestDB(t)
	otp := NewOTPService(db, NewTrustService(db), &fakeSender{ok: true}, &fakeSender{ok: true})
	user := createTestUser(t, db)

	require.NoError(t, otp.Issue(user.ID, *user.Phone, models.OtpPurposePhoneVerification))
	err := otp.Issue(user.ID, *user.Phone, models.OtpPurposePhoneVerification)
	assert.ErrorIs(t, err, ErrRateLimited)

	// Backdating the challenge past the window lets a new issue through.
	challenge := latestChallenge(t, db, user.ID)
	require.NoError(t, db.Model(challenge).
		UpdateColumn("created_at", time.Now().Add(-2*time.Minute)).Error)
	assert.NoError(t, otp.Issue(user.ID, *user.Phone, models.OtpPurposePhoneVerification))
}

func TestOTPDeliveryFailure(t *testing.T) {
	db := newTestDB(t)
	otp := NewOTPService(db, NewTrustService(db), &fakeSender{ok: false}, &fakeSender{ok: true})
	user := createTestUser(t, db)

	err := otp.Issue(user.ID, *user.Phone, models.OtpPurposePhoneVerification)
	assert.ErrorIs(t, err, ErrDeliveryFailed)

	// The challenge row stays behind and expires unused.
	var count int64
	require.NoError(t, db.Model(&models.OtpChallenge{}).
		Where("user_id = ?", user.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestOTPAttemptCap(t *testing.T) {
	db := newTestDB(t)
	otp := NewOTPService(db, NewTrustService(db), &fakeSender{ok: true}, &fakeSender{ok: true})
	user := createTestUser(t, db)

	require.NoError(t, otp.Issue(user.ID, *user.Phone, models.OtpPurposePhoneVerification))
	challenge := latestChallenge(t, db, user.ID)
	wrong := wrongCodeFor(challenge.Code)

	for i := 0; i < 5; i++ {
		err := otp.Verify(user.ID, *user.Phone, models.OtpPurposePhoneVerification, wrong)
		assert.ErrorIs(t, err, ErrInvalidCode, "attempt %d", i+1)
	}

	// The sixth attempt is rejected before the code is even compared, so the
	// correct code no longer helps.
	err := otp.Verify(user.ID, *user.Phone, models.OtpPurposePhoneVerification, challenge.Code)
	assert.ErrorIs(t, err, ErrAttemptsExceeded)

	challenge = latestChallenge(t, db, user.ID)
	assert.Equal(t, 5, challenge.Attempts)
	assert.False(t, challenge.IsVerified)
}

func TestOTPAsymmetricFailurePenalty(t *testing.T) {
	db := newTestDB(t)
	otp := NewOTPService(db, NewTrustService(db), &fakeSender{ok: true}, &fakeSender{ok: true})

	t.Run("phone verification penalizes the challenge", func(t *testing.T) {
		user := createTestUser(t, db)
		require.NoError(t, otp.Issue(user.ID, *user.Phone, models.OtpPurposePhoneVerification))
		challenge := latestChallenge(t, db, user.ID)

		err := otp.Verify(user.ID, *user.Phone, models.OtpPurposePhoneVerification, wrongCodeFor(challenge.Code))
		assert.ErrorIs(t, err, ErrInvalidCode)

		challenge = latestChallenge(t, db, user.ID)
		assert.Equal(t, 1, challenge.Attempts)

		var reloaded models.User
		require.NoError(t, db.First(&reloaded, "id = ?", user.ID).Error)
		assert.Equal(t, 0, reloaded.FailedAttempts)
	})

	t.Run("email verification penalizes the account", func(t *testing.T) {
		user := createTestUser(t, db)
		require.NoError(t, otp.Issue(user.ID, user.Email, models.OtpPurposeEmailVerification))
		challenge := latestChallenge(t, db, user.ID)

		err := otp.Verify(user.ID, user.Email, models.OtpPurposeEmailVerification, wrongCodeFor(challenge.Code))
		assert.ErrorIs(t, err, ErrInvalidCode)

		challenge = latestChallenge(t, db, user.ID)
		assert.Equal(t, 0, challenge.Attempts)

		var reloaded models.User
		require.NoError(t, db.First(&reloaded, "id = ?", user.ID).Error)
		assert.Equal(t, 1, reloaded.FailedAttempts)
	})
}

func TestOTPExpiredChallenge(t *testing.T) {
	db := newTestDB(t)
	otp := NewOTPService(db, NewTrustService(db), &fakeSender{ok: true}, &fakeSender{ok: true})
	user := createTestUser(t, db)

	require.NoError(t, otp.Issue(user.ID, *user.Phone, models.OtpPurposePhoneVerification))
	challenge := latestChallenge(t, db, user.ID)
	require.NoError(t, db.Model(challenge).
		UpdateColumn("expires_at", time.Now().Add(-time.Minute)).Error)

	err := otp.Verify(user.ID, *user.Phone, models.OtpPurposePhoneVerification, challenge.Code)
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func TestOTPPhoneVerifyResetsFailedAttempts(t *testing.T) {
	db := newTestDB(t)
	otp := NewOTPService(db, NewTrustService(db), &fakeSender{ok: true}, &fakeSender{ok: true})
	user := createTestUser(t, db)
	require.NoError(t, db.Model(user).Update("failed_attempts", 3).Error)

	require.NoError(t, otp.Issue(user.ID, *user.Phone, models.OtpPurposePhoneVerification))
	challenge := latestChallenge(t, db, user.ID)
	require.NoError(t, otp.Verify(user.ID, *user.Phone, models.OtpPurposePhoneVerification, challenge.Code))

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, "id = ?", user.ID).Error)
	assert.Equal(t, 0, reloaded.FailedAttempts)
}

func TestOTPLoginPurposeGrantsNoReward(t *testing.T) {
	db := newTestDB(t)
	otp := NewOTPService(db, NewTrustService(db), &fakeSender{ok: true}, &fakeSender{ok: true})
	user := createTestUser(t, db)

	require.NoError(t, otp.Issue(user.ID, *user.Phone, models.OtpPurposeLogin))
	challenge := latestChallenge(t, db, user.ID)
	require.NoError(t, otp.Verify(user.ID, *user.Phone, models.OtpPurposeLogin, challenge.Code))

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, "id = ?", user.ID).Error)
	assert.Equal(t, 0, reloaded.TrustScore)
	assert.False(t, reloaded.IsPhoneVerified)
}
