package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/joseph-ayodele/docintake/internal/common"
)

// MinSecretLen is the shortest HS256 secret accepted.
const MinSecretLen = 32

func checkSecret(secret []byte) error {
	if len(secret) < MinSecretLen {
		return fmt.Errorf("%w: jwt secret must be at least %d bytes", common.ErrInvalidInput, MinSecretLen)
	}
	return nil
}

// Verifier validates HS256 bearer tokens.
type Verifier struct {
	secret []byte
	issuer string
	leeway time.Duration
}

func NewVerifier(secret []byte, issuer string) (*Verifier, error) {
	if err := checkSecret(secret); err != nil {
		return nil, err
	}
	return &Verifier{secret: secret, issuer: issuer, leeway: 30 * time.Second}, nil
}

// Verify parses the token and returns its claims. Every failure wraps
// common.ErrUnauthorized. Disabled accounts are reported by the caller
// through Claims.IsActive, not here.
func (v *Verifier) Verify(tokenStr string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(v.leeway),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrUnauthorized, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%w: invalid token", common.ErrUnauthorized)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, fmt.Errorf("%w: token has no subject", common.ErrUnauthorized)
	}
	return claims, nil
}

// FromHeader extracts the token from an "Authorization: Bearer <jwt>" value.
func FromHeader(header string) (string, error) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", errors.Join(common.ErrUnauthorized, errors.New("no authorization token provided"))
	}
	return strings.TrimSpace(header[len(prefix):]), nil
}

// Issuer mints tokens for the CLI and tests.
type Issuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret []byte, issuer string, ttl time.Duration) (*Issuer, error) {
	if err := checkSecret(secret); err != nil {
		return nil, err
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Issuer{secret: secret, issuer: issuer, ttl: ttl, now: time.Now}, nil
}

// Issue signs a token for the given user.
func (i *Issuer) Issue(subject, email, role string, active bool) (string, error) {
	if strings.TrimSpace(subject) == "" {
		return "", fmt.Errorf("%w: subject is required", common.ErrInvalidInput)
	}
	if role != RoleAdmin && role != RoleUser {
		return "", fmt.Errorf("%w: role must be %s or %s", common.ErrInvalidInput, RoleAdmin, RoleUser)
	}
	now := i.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
		Email:  email,
		Role:   role,
		Active: &active,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}
