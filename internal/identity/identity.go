// Package identity implements the auth collaborator boundary: signing in an
// account, minting a session token, and resolving a token back into an
// explicit Session that is passed to every core operation. The core never
// reads the current account from ambient state.
//
// Credential verification itself is external (the hosting platform owns
// passwords); this package only binds a verified credential to the profile
// reference data and encodes the result as a signed JWT.
package identity

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"

	"github.com/arcornucopia-stack/cornucopia-portal/internal/domain"
	"github.com/arcornucopia-stack/cornucopia-portal/internal/repo"
)

var (
	// ErrInvalidCredential is returned when the external verifier rejects
	// the presented credential.
	ErrInvalidCredential = errors.New("invalid credential")

	// ErrNoProfile is returned when an authenticated account has no profile
	// row, mirroring the portal's "no user role found" condition.
	ErrNoProfile = errors.New("no profile found for account")

	// ErrInvalidToken is returned for malformed, forged, or expired tokens.
	ErrInvalidToken = errors.New("invalid or expired session token")
)

// Session is the resolved caller identity handed to core operations.
type Session struct {
	UID          string
	Role         domain.Role
	BusinessID   string
	BusinessName string
	DisplayName  string
}

// IsAdmin reports whether the session may perform admin-only transitions.
func (s Session) IsAdmin() bool { return s.Role == domain.RoleAdmin }

// Business returns the business the session acts for. Partners without an
// explicit businessId fall back to their own UID, the same default the
// portal applied.
func (s Session) Business() string {
	if s.BusinessID != "" {
		return s.BusinessID
	}
	return s.UID
}

// VerifyCredential checks a (uid, secret) pair against the external
// credential store. Implementations must not mutate any state.
type VerifyCredential func(ctx context.Context, uid, secret string) error

// Service signs accounts in and round-trips sessions through signed JWTs.
type Service struct {
	DB     *gorm.DB
	Verify VerifyCredential
	Secret []byte
	TTL    time.Duration
}

// SignIn verifies the credential, loads the account profile, and returns the
// session plus a bearer token for subsequent requests. An account without a
// profile row cannot be signed in.
func (s *Service) SignIn(ctx context.Context, uid, secret string) (*Session, string, error) {
	if s.Verify != nil {
		if err := s.Verify(ctx, uid, secret); err != nil {
			return nil, "", ErrInvalidCredential
		}
	}

	acc, err := repo.GetAccount(ctx, s.DB, uid)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, "", ErrNoProfile
		}
		return nil, "", err
	}

	sess := sessionFromAccount(acc)
	tok, err := s.mint(sess)
	if err != nil {
		return nil, "", err
	}
	return &sess, tok, nil
}

// Resolve validates a bearer token and rebuilds the Session from its claims.
func (s *Service) Resolve(token string) (*Session, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	uid, _ := claims["sub"].(string)
	if uid == "" {
		return nil, ErrInvalidToken
	}
	role, _ := claims["role"].(string)
	businessID, _ := claims["businessId"].(string)
	businessName, _ := claims["businessName"].(string)
	displayName, _ := claims["displayName"].(string)

	return &Session{
		UID:          uid,
		Role:         domain.ParseRole(role),
		BusinessID:   businessID,
		BusinessName: businessName,
		DisplayName:  displayName,
	}, nil
}

func (s *Service) mint(sess Session) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":          sess.UID,
		"role":         string(sess.Role),
		"businessId":   sess.BusinessID,
		"businessName": sess.BusinessName,
		"displayName":  sess.DisplayName,
		"iat":          now.Unix(),
		"exp":          now.Add(s.TTL).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.Secret)
}

func sessionFromAccount(acc *domain.Account) Session {
	return Session{
		UID:          acc.UID,
		Role:         domain.ParseRole(acc.Role),
		BusinessID:   acc.BusinessID,
		BusinessName: acc.BusinessName,
		DisplayName:  acc.DisplayName,
	}
}
