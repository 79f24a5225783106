package identity

import (
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"inkwell/internal/models"

	"golang.org/x/crypto/bcrypt"
)

// AdminSubject is the token subject of admin sessions opened with the admin password.
const AdminSubject = "admin"

// ErrInvalidCredentials is returned when an admin login fails.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Credentials are the raw identity inputs of one request.
type Credentials struct {
	Authorization string
	AdminSecret   string
	ClientID      string
}

// AuthenticatorConfig configures an Authenticator.
type AuthenticatorConfig struct {
	AdminSecret       string
	AdminPassword     string
	AdminPasswordHash string
	AdminUserIDs      []string
	SessionTTL        time.Duration
}

// Authenticator resolves principals and opens admin sessions.
type Authenticator struct {
	cfg      AuthenticatorConfig
	tokens   *TokenIssuer
	adminIDs map[string]struct{}
}

// NewAuthenticator returns an Authenticator using tokens to verify bearer sessions.
func NewAuthenticator(cfg AuthenticatorConfig, tokens *TokenIssuer) *Authenticator {
	ids := make(map[string]struct{}, len(cfg.AdminUserIDs))
	for _, id := range cfg.AdminUserIDs {
		ids[id] = struct{}{}
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 12 * time.Hour
	}
	return &Authenticator{cfg: cfg, tokens: tokens, adminIDs: ids}
}

// Resolve turns raw credentials into a principal. A bad bearer token is ignored rather
// than rejected; routes that need a session enforce it themselves.
func (a *Authenticator) Resolve(creds Credentials) Principal {
	p := Principal{}

	if token, ok := bearerToken(creds.Authorization); ok {
		if claims, err := a.tokens.Parse(token); err == nil {
			if claims.Admin {
				p.Admin = true
			}
			if claims.Subject != AdminSubject {
				actor := models.UserActor(claims.Subject)
				p.Actor = &actor
				if a.IsAdminUser(claims.Subject) {
					p.Admin = true
				}
			}
		}
	}

	if creds.AdminSecret != "" && a.CheckSecret(creds.AdminSecret) {
		p.Admin = true
	}

	return p.WithClientID(strings.TrimSpace(creds.ClientID))
}

// CheckSecret compares secret with the configured admin secret in constant time.
// An unset secret never matches.
func (a *Authenticator) CheckSecret(secret string) bool {
	if a.cfg.AdminSecret == "" || secret == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(secret), []byte(a.cfg.AdminSecret)) == 1
}

// IsAdminUser reports whether userID is a designated site administrator.
func (a *Authenticator) IsAdminUser(userID string) bool {
	_, ok := a.adminIDs[userID]
	return ok
}

// Login verifies the admin password and issues an admin session token.
func (a *Authenticator) Login(password string) (string, time.Time, error) {
	if password == "" || !a.checkPassword(password) {
		return "", time.Time{}, ErrInvalidCredentials
	}
	return a.tokens.Issue(AdminSubject, true, a.cfg.SessionTTL)
}

func (a *Authenticator) checkPassword(password string) bool {
	if a.cfg.AdminPasswordHash != "" {
		return bcrypt.CompareHashAndPassword([]byte(a.cfg.AdminPasswordHash), []byte(password)) == nil
	}
	if a.cfg.AdminPassword == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(password), []byte(a.cfg.AdminPassword)) == 1
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}
