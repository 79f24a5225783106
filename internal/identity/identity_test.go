package identity

import (
	"strings"
	"testing"
	"time"

	"inkwell/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testJWTSecret = "test-secret-at-least-32-characters-long"

func newTestAuthenticator(t *testing.T, cfg AuthenticatorConfig) (*Authenticator, *TokenIssuer) {
	t.Helper()
	tokens := NewTokenIssuer(testJWTSecret)
	return NewAuthenticator(cfg, tokens), tokens
}

func TestNewClientID(t *testing.T) {
	t.Parallel()
	now := time.UnixMilli(1767225600123)

	id := NewClientID(now)
	assert.True(t, strings.HasPrefix(id, "client_1767225600123_"))
	assert.Len(t, strings.TrimPrefix(id, "client_1767225600123_"), 9)
	assert.True(t, ValidClientID(id))
	assert.NotEqual(t, id, NewClientID(now))
}

func TestValidClientID(t *testing.T) {
	t.Parallel()
	assert.True(t, ValidClientID("client_abc123"))
	assert.False(t, ValidClientID("short"))
	assert.False(t, ValidClientID("has spaces in it"))
	assert.False(t, ValidClientID(strings.Repeat("a", 129)))
}

func TestTokenIssuer_RoundTrip(t *testing.T) {
	t.Parallel()
	tokens := NewTokenIssuer(testJWTSecret)

	token, exp, err := tokens.Issue("user-7", false, time.Hour)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := tokens.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "user-7", claims.Subject)
	assert.False(t, claims.Admin)

	_, err = NewTokenIssuer("another-secret-that-is-long-enough!!").Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenIssuer_Expired(t *testing.T) {
	t.Parallel()
	tokens := NewTokenIssuer(testJWTSecret)
	tokens.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _, err := tokens.Issue("user-7", false, time.Hour)
	require.NoError(t, err)

	tokens.now = time.Now
	_, err = tokens.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthenticator_Resolve(t *testing.T) {
	t.Parallel()
	auth, tokens := newTestAuthenticator(t, AuthenticatorConfig{
		AdminSecret:  "s3cret",
		AdminUserIDs: []string{"owner"},
	})
	userToken, _, err := tokens.Issue("user-1", false, time.Hour)
	require.NoError(t, err)
	ownerToken, _, err := tokens.Issue("owner", false, time.Hour)
	require.NoError(t, err)
	adminToken, _, err := tokens.Issue(AdminSubject, true, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name      string
		creds     Credentials
		wantActor *models.Actor
		wantAdmin bool
	}{
		{"Nothing", Credentials{}, nil, false},
		{"Client Only", Credentials{ClientID: "client_abc123"}, &models.Actor{Kind: models.ActorClient, ID: "client_abc123"}, false},
		{"Invalid Client Ignored", Credentials{ClientID: "bad id"}, nil, false},
		{"User Wins Over Client", Credentials{Authorization: "Bearer " + userToken, ClientID: "client_abc123"}, &models.Actor{Kind: models.ActorUser, ID: "user-1"}, false},
		{"Designated Admin User", Credentials{Authorization: "Bearer " + ownerToken}, &models.Actor{Kind: models.ActorUser, ID: "owner"}, true},
		{"Admin Session", Credentials{Authorization: "Bearer " + adminToken, ClientID: "client_abc123"}, &models.Actor{Kind: models.ActorClient, ID: "client_abc123"}, true},
		{"Admin Secret", Credentials{AdminSecret: "s3cret"}, nil, true},
		{"Wrong Admin Secret", Credentials{AdminSecret: "nope"}, nil, false},
		{"Garbage Bearer", Credentials{Authorization: "Bearer not.a.jwt", ClientID: "client_abc123"}, &models.Actor{Kind: models.ActorClient, ID: "client_abc123"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := auth.Resolve(tt.creds)
			assert.Equal(t, tt.wantAdmin, p.Admin)
			if tt.wantActor == nil {
				assert.Nil(t, p.Actor)
				return
			}
			require.NotNil(t, p.Actor)
			assert.Equal(t, *tt.wantActor, *p.Actor)
			assert.Equal(t, strings.TrimSpace(tt.creds.ClientID) != "" && ValidClientID(tt.creds.ClientID), p.ClientID != "")
		})
	}
}

func TestAuthenticator_CheckSecretUnset(t *testing.T) {
	t.Parallel()
	auth, _ := newTestAuthenticator(t, AuthenticatorConfig{})
	assert.False(t, auth.CheckSecret(""))
	assert.False(t, auth.CheckSecret("anything"))
}

func TestAuthenticator_LoginPlain(t *testing.T) {
	t.Parallel()
	auth, tokens := newTestAuthenticator(t, AuthenticatorConfig{AdminPassword: "hunter2", SessionTTL: time.Minute})

	_, _, err := auth.Login("wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = auth.Login("")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	token, _, err := auth.Login("hunter2")
	require.NoError(t, err)
	claims, err := tokens.Parse(token)
	require.NoError(t, err)
	assert.True(t, claims.Admin)
	assert.Equal(t, AdminSubject, claims.Subject)
}

func TestAuthenticator_LoginHash(t *testing.T) {
	t.Parallel()
	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	require.NoError(t, err)
	auth, _ := newTestAuthenticator(t, AuthenticatorConfig{AdminPassword: "ignored", AdminPasswordHash: string(hash)})

	_, _, err = auth.Login("ignored")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = auth.Login("correct horse")
	assert.NoError(t, err)
}

func TestPrincipal_Owns(t *testing.T) {
	t.Parallel()
	p := Anonymous.WithClientID("client_owner1")
	assert.True(t, p.Owns(models.ClientActor("client_owner1")))
	assert.False(t, p.Owns(models.ClientActor("client_other1")))
	assert.False(t, p.Owns(models.UserActor("client_owner1")))
	assert.False(t, Anonymous.Owns(models.ClientActor("client_owner1")))
}

func TestPrincipal_SessionKeepsClientID(t *testing.T) {
	t.Parallel()
	u := models.UserActor("42")
	p := Principal{Actor: &u}.WithClientID("client_1_abcdef012")

	require.NotNil(t, p.Actor)
	assert.Equal(t, models.ActorUser, p.Actor.Kind, "the session stays the actor")
	assert.Equal(t, "client_1_abcdef012", p.ClientID)
	assert.True(t, p.OwnsAsClient(models.ClientActor("client_1_abcdef012")))
	assert.True(t, p.Owns(models.ClientActor("client_1_abcdef012")))
	assert.False(t, p.OwnsAsClient(models.UserActor("client_1_abcdef012")))
	assert.False(t, p.Owns(models.ClientActor("client_2_abcdef012")))
}
