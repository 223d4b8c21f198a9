package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/pricing-engine/pkg/config"
	"github.com/angelmondragon/pricing-engine/pkg/enums"
)

func newTestVerifier(t *testing.T, minutes int) *Verifier {
	t.Helper()
	v, err := NewVerifier(config.JWTConfig{Secret: "secret", Issuer: "pricing-engine", ExpirationMinutes: minutes})
	require.NoError(t, err)
	return v
}

func TestIssueAndVerify(t *testing.T) {
	v := newTestVerifier(t, 30)
	actor := Actor{UserID: uuid.New(), Role: enums.AdminRolePricingAdmin, TokenID: "jti-1"}

	token, err := v.Issue(time.Now(), actor)
	require.NoError(t, err)

	got, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, actor, got)
}

func TestIssueGeneratesTokenID(t *testing.T) {
	v := newTestVerifier(t, 30)
	token, err := v.Issue(time.Now(), Actor{UserID: uuid.New(), Role: enums.AdminRolePricingViewer})
	require.NoError(t, err)

	got, err := v.Verify(token)
	require.NoError(t, err)
	assert.NotEmpty(t, got.TokenID)
}

func TestVerifyRejectsTampering(t *testing.T) {
	v := newTestVerifier(t, 10)
	token, err := v.Issue(time.Now(), Actor{UserID: uuid.New(), Role: enums.AdminRolePricingViewer})
	require.NoError(t, err)

	_, err = v.Verify(token + "x")
	assert.Error(t, err, "signature")

	other, err := NewVerifier(config.JWTConfig{Secret: "secret", Issuer: "someone-else", ExpirationMinutes: 10})
	require.NoError(t, err)
	_, err = other.Verify(token)
	assert.ErrorIs(t, err, jwt.ErrTokenInvalidIssuer)
}

func TestVerifyExpiry(t *testing.T) {
	v := newTestVerifier(t, 15)

	expired, err := v.Issue(time.Now().Add(-time.Hour), Actor{UserID: uuid.New(), Role: enums.AdminRolePricingAdmin})
	require.NoError(t, err)
	_, err = v.Verify(expired)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	// within clock skew
	recent, err := v.Issue(time.Now().Add(-15*time.Minute-10*time.Second), Actor{UserID: uuid.New(), Role: enums.AdminRolePricingAdmin})
	require.NoError(t, err)
	_, err = v.Verify(recent)
	assert.NoError(t, err)
}

func TestVerifyRejectsBadClaims(t *testing.T) {
	v := newTestVerifier(t, 15)
	now := time.Now()
	sign := func(c Claims) string {
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte("secret"))
		require.NoError(t, err)
		return signed
	}
	registered := jwt.RegisteredClaims{
		Subject:   uuid.NewString(),
		Issuer:    "pricing-engine",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
	}

	_, err := v.Verify(sign(Claims{Role: enums.AdminRole("store_owner"), RegisteredClaims: registered}))
	assert.Error(t, err, "unknown role")

	noSubject := registered
	noSubject.Subject = "not-a-uuid"
	_, err = v.Verify(sign(Claims{Role: enums.AdminRolePricingAdmin, RegisteredClaims: noSubject}))
	assert.Error(t, err, "subject")

	noExpiry := registered
	noExpiry.ExpiresAt = nil
	_, err = v.Verify(sign(Claims{Role: enums.AdminRolePricingAdmin, RegisteredClaims: noExpiry}))
	assert.Error(t, err, "expiry required")
}

func TestIssueRejectsInvalidActor(t *testing.T) {
	v := newTestVerifier(t, 5)
	_, err := v.Issue(time.Now(), Actor{UserID: uuid.New()})
	assert.Error(t, err)
	_, err = v.Issue(time.Now(), Actor{Role: enums.AdminRolePricingAdmin})
	assert.Error(t, err)

	noTTL := newTestVerifier(t, 0)
	_, err = noTTL.Issue(time.Now(), Actor{UserID: uuid.New(), Role: enums.AdminRolePricingAdmin})
	assert.Error(t, err)
}

func TestNewVerifierRequiresSecretAndIssuer(t *testing.T) {
	_, err := NewVerifier(config.JWTConfig{Issuer: "x"})
	assert.Error(t, err)
	_, err = NewVerifier(config.JWTConfig{Secret: "x"})
	assert.Error(t, err)
}

func TestActorCan(t *testing.T) {
	viewer := Actor{Role: enums.AdminRolePricingViewer}
	assert.True(t, viewer.Can(enums.AdminRolePricingAdmin, enums.AdminRolePricingViewer))
	assert.False(t, viewer.Can(enums.AdminRolePricingAdmin))
	assert.False(t, Actor{}.Can())
}
