package token

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"shoplite/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken   = fmt.Errorf("%w: missing token", domain.ErrUnauthorized)
	ErrInvalidToken   = fmt.Errorf("%w: invalid token", domain.ErrUnauthorized)
	ErrInvalidPayload = fmt.Errorf("%w: invalid token payload", domain.ErrUnauthorized)
)

// identifierClaims lists the payload keys that may carry the user id, in
// lookup order.
var identifierClaims = []string{"id", "_id", "userId", "sub"}

// Claims is the verified content of a session token.
type Claims struct {
	UserID string
	Admin  bool
}

// Service issues and verifies stateless HS256 session tokens.
type Service struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// New creates a Service. A zero ttl issues tokens without an exp claim.
func New(secret string, ttl time.Duration) *Service {
	return &Service{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs a token for u.
func (s *Service) Issue(u domain.User) (string, error) {
	if u.ID == "" {
		return "", errors.New("token: user id required")
	}
	now := s.now()
	claims := jwt.MapClaims{
		"sub": u.ID,
		"id":  u.ID,
		"iat": now.Unix(),
	}
	if u.IsAdmin {
		claims["admin"] = true
	}
	if s.ttl > 0 {
		claims["exp"] = now.Add(s.ttl).Unix()
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("token: sign: %w", err)
	}
	return signed, nil
}

// Verify validates raw and extracts its claims. Every failure wraps
// domain.ErrUnauthorized through one of the sentinels above.
func (s *Service) Verify(raw string) (Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Claims{}, ErrMissingToken
	}
	parsed, err := jwt.Parse(raw, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	mc, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, ErrInvalidPayload
	}
	id := userIDFrom(mc)
	if id == "" {
		return Claims{}, ErrInvalidPayload
	}
	admin, _ := mc["admin"].(bool)
	return Claims{UserID: id, Admin: admin}, nil
}

func userIDFrom(mc jwt.MapClaims) string {
	for _, key := range identifierClaims {
		switch v := mc[key].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	const prefix = "bearer "
	header = strings.TrimSpace(header)
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
