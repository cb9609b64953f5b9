package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	PurposeSession        = "session"
	PurposePasswordChange = "password_change"

	SessionTokenTTL        = 2 * time.Hour
	PasswordChangeTokenTTL = 5 * time.Minute
)

var ErrInvalidToken = errors.New("invalid or expired token")

type CustomClaims struct {
	UserID  string `json:"user_id"`
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// TokenManager signs and verifies HS256 tokens. A token minted for one
// purpose is never accepted for another.
type TokenManager struct {
	secret []byte
	issuer string
	now    func() time.Time
}

func NewTokenManager(secret string) *TokenManager {
	return &TokenManager{
		secret: []byte(secret),
		issuer: "TableOrder",
		now:    time.Now,
	}
}

// WithClock replaces the time source, for tests.
func (tm *TokenManager) WithClock(now func() time.Time) *TokenManager {
	tm.now = now
	return tm
}

func (tm *TokenManager) GenerateSessionToken(userID string) (string, error) {
	return tm.generate(userID, PurposeSession, "", SessionTokenTTL)
}

func (tm *TokenManager) ParseSessionToken(tokenString string) (*CustomClaims, error) {
	return tm.parse(tokenString, PurposeSession)
}

// GeneratePasswordChangeToken mints a capability for one password change.
// The nonce travels as the token id and must match the one stored for the
// user when the token is spent.
func (tm *TokenManager) GeneratePasswordChangeToken(userID, nonce string) (string, error) {
	if nonce == "" {
		return "", errors.New("password change token needs a nonce")
	}
	return tm.generate(userID, PurposePasswordChange, nonce, PasswordChangeTokenTTL)
}

func (tm *TokenManager) ParsePasswordChangeToken(tokenString string) (*CustomClaims, error) {
	claims, err := tm.parse(tokenString, PurposePasswordChange)
	if err != nil {
		return nil, err
	}
	if claims.ID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (tm *TokenManager) generate(userID, purpose, id string, ttl time.Duration) (string, error) {
	now := tm.now()
	claims := &CustomClaims{
		UserID:  userID,
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tm.issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(tm.secret)
}

func (tm *TokenManager) parse(tokenString, purpose string) (*CustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		return tm.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tm.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(tm.now),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok || claims.Purpose != purpose || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
