// Package auth issues and verifies the tokens that bind a console viewer to
// the session user.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"dashboard-console/internal/model"
)

var (
	ErrMissingSecret = errors.New("auth: missing secret")
	ErrMissingUser   = errors.New("auth: missing user id")
	ErrInvalidExpiry = errors.New("auth: invalid expiry")
)

// Claims identify the session user a viewer acts for.
type Claims struct {
	UserID    model.ID `json:"sub"`
	AccountID model.ID `json:"acc,omitempty"`
	jwt.RegisteredClaims
}

type TokenConfig struct {
	Secret string
	Expiry time.Duration
	Issuer string
}

func DefaultTokenConfig(secret string) TokenConfig {
	return TokenConfig{
		Secret: secret,
		Expiry: 7 * 24 * time.Hour,
		Issuer: "dashboard-console",
	}
}

// CreateToken signs a viewer token for user.
func CreateToken(user model.User, cfg TokenConfig) (string, error) {
	if cfg.Secret == "" {
		return "", ErrMissingSecret
	}
	if user.ID == "" {
		return "", ErrMissingUser
	}
	if cfg.Expiry <= 0 {
		return "", ErrInvalidExpiry
	}

	jtiBytes := make([]byte, 16)
	if _, err := rand.Read(jtiBytes); err != nil {
		return "", err
	}

	now := time.Now()
	claims := Claims{
		UserID:    user.ID,
		AccountID: user.AccountID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.Expiry)),
			ID:        hex.EncodeToString(jtiBytes),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.Secret))
}

func VerifyToken(tokenString string, cfg TokenConfig) (*Claims, error) {
	if cfg.Secret == "" {
		return nil, ErrMissingSecret
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte(cfg.Secret), nil
	}, opts...)
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.UserID == "" {
		return nil, jwt.ErrSignatureInvalid
	}
	return claims, nil
}
