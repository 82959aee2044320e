package identity

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"evledger/backend/services/ledger-service/internal/ledger"
)

var (
	ErrMissingIdentity = errors.New("token: identity is required")
	ErrInvalidToken    = errors.New("token: invalid token")
)

// Claims is the JWT payload naming the caller of ledger operations.
type Claims struct {
	Identity string `json:"identity"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies HS256 caller tokens.
type TokenService struct {
	secret    []byte
	expiresIn time.Duration
	now       func() time.Time
}

// NewTokenService returns configured token service.
func NewTokenService(secret string, expiresIn time.Duration) *TokenService {
	if expiresIn <= 0 {
		expiresIn = time.Hour
	}
	return &TokenService{secret: []byte(secret), expiresIn: expiresIn, now: time.Now}
}

// GenerateToken issues a token for caller.
func (t *TokenService) GenerateToken(caller ledger.Identity) (string, error) {
	caller = Normalize(string(caller))
	if caller.IsZero() {
		return "", ErrMissingIdentity
	}

	now := t.now().UTC()
	claims := Claims{
		Identity: string(caller),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(caller),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.expiresIn)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// ValidateToken verifies tokenString and returns the caller it names.
func (t *TokenService) ValidateToken(tokenString string) (ledger.Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("token: unexpected signing method")
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(t.now))
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return "", ErrInvalidToken
	}
	caller := Normalize(claims.Identity)
	if caller.IsZero() {
		return "", ErrMissingIdentity
	}
	return caller, nil
}

// Normalize trims raw and lowercases hex addresses so the same account always maps to one identity.
func Normalize(raw string) ledger.Identity {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "0x") || strings.HasPrefix(raw, "0X") {
		raw = "0x" + strings.ToLower(raw[2:])
	}
	return ledger.Identity(raw)
}
