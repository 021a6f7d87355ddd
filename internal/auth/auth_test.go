package auth_test

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifemosaic/negotiator/internal/auth"
)

func TestJWTIssueAndValidate(t *testing.T) {
	mgr, err := auth.NewJWTManager("", "", time.Hour)
	require.NoError(t, err)

	token, expiresAt, err := mgr.IssueToken("ana.lopez@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.True(t, expiresAt.After(time.Now()))

	claims, err := mgr.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "ana.lopez@example.com", claims.UserID())
}

func TestIssueToken_RejectsBadUserID(t *testing.T) {
	mgr, err := auth.NewJWTManager("", "", time.Hour)
	require.NoError(t, err)

	_, _, err = mgr.IssueToken("")
	assert.Error(t, err)
	_, _, err = mgr.IssueToken("two words")
	assert.Error(t, err)
}

func TestValidateToken_Expired(t *testing.T) {
	mgr, err := auth.NewJWTManager("", "", -time.Minute)
	require.NoError(t, err)

	token, _, err := mgr.IssueToken("u1")
	require.NoError(t, err)
	_, err = mgr.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateToken_OtherKey(t *testing.T) {
	a, err := auth.NewJWTManager("", "", time.Hour)
	require.NoError(t, err)
	b, err := auth.NewJWTManager("", "", time.Hour)
	require.NoError(t, err)

	token, _, err := a.IssueToken("u1")
	require.NoError(t, err)
	_, err = b.ValidateToken(token)
	assert.Error(t, err)
}

// newTestJWTManagerWithKey creates a JWTManager backed by a real Ed25519 key pair
// written to temp PEM files, and returns the raw private key for forging tokens.
func newTestJWTManagerWithKey(t *testing.T) (*auth.JWTManager, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	privPath, pubPath := writeKeys(t, priv, pub)
	mgr, err := auth.NewJWTManager(privPath, pubPath, time.Hour)
	require.NoError(t, err)
	return mgr, priv
}

func writeKeys(t *testing.T, priv ed25519.PrivateKey, pub ed25519.PublicKey) (string, string) {
	t.Helper()
	dir := t.TempDir()

	privBytes, err := x509.MarshalPKCS8PrivateKey(priv)
	require.NoError(t, err)
	privPath := filepath.Join(dir, "priv.pem")
	require.NoError(t, os.WriteFile(privPath, pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privBytes}), 0o600))

	pubBytes, err := x509.MarshalPKIXPublicKey(pub)
	require.NoError(t, err)
	pubPath := filepath.Join(dir, "pub.pem")
	require.NoError(t, os.WriteFile(pubPath, pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubBytes}), 0o600))
	return privPath, pubPath
}

func forgeToken(t *testing.T, key ed25519.PrivateKey, claims jwt.Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func TestValidateToken_ForgedClaims(t *testing.T) {
	mgr, priv := newTestJWTManagerWithKey(t)
	exp := jwt.NewNumericDate(time.Now().Add(time.Hour))

	tests := []struct {
		name   string
		claims jwt.RegisteredClaims
	}{
		{"wrong issuer", jwt.RegisteredClaims{Subject: "u1", Issuer: "someone-else", Audience: jwt.ClaimStrings{"negotiator"}, ExpiresAt: exp}},
		{"empty issuer", jwt.RegisteredClaims{Subject: "u1", Audience: jwt.ClaimStrings{"negotiator"}, ExpiresAt: exp}},
		{"wrong audience", jwt.RegisteredClaims{Subject: "u1", Issuer: "negotiator", Audience: jwt.ClaimStrings{"other"}, ExpiresAt: exp}},
		{"no expiry", jwt.RegisteredClaims{Subject: "u1", Issuer: "negotiator", Audience: jwt.ClaimStrings{"negotiator"}}},
		{"malformed subject", jwt.RegisteredClaims{Subject: "drop table;", Issuer: "negotiator", Audience: jwt.ClaimStrings{"negotiator"}, ExpiresAt: exp}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := mgr.ValidateToken(forgeToken(t, priv, tt.claims))
			assert.Error(t, err)
		})
	}

	ok := forgeToken(t, priv, jwt.RegisteredClaims{Subject: "u1", Issuer: "negotiator", Audience: jwt.ClaimStrings{"negotiator"}, ExpiresAt: exp})
	claims, err := mgr.ValidateToken(ok)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID())
}

func TestNewJWTManager_MismatchedKeys(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	otherPub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	privPath, pubPath := writeKeys(t, priv, otherPub)
	_, err = auth.NewJWTManager(privPath, pubPath, time.Hour)
	assert.ErrorContains(t, err, "does not match")
}

func TestNewJWTManager_MissingFile(t *testing.T) {
	_, err := auth.NewJWTManager(filepath.Join(t.TempDir(), "nope.pem"), "pub.pem", time.Hour)
	assert.Error(t, err)
}
