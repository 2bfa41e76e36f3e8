package middleware

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v4"

	"github.com/Srujan0798/Rest-iN-U-sub003/internal/domain"
)

// TokenVerifier resolves bearer credentials into identities. Token issuance
// lives in the account service; this side only verifies.
type TokenVerifier struct {
	secret []byte
}

func NewTokenVerifier(jwtSecret string) (*TokenVerifier, error) {
	if jwtSecret == "" {
		return nil, errors.New("JWT secret cannot be empty")
	}
	return &TokenVerifier{secret: []byte(jwtSecret)}, nil
}

// Verify parses and validates a token and returns the identity it carries:
// the subject claim plus any capability strings.
func (v *TokenVerifier) Verify(tokenStr string) (domain.Identity, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return domain.Identity{}, fmt.Errorf("token validation failed: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return domain.Identity{}, errors.New("invalid token or claims type")
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return domain.Identity{}, errors.New("token missing subject claim")
	}

	identity := domain.Identity{ID: sub}
	if rawCaps, ok := claims["capabilities"].([]interface{}); ok {
		for _, rc := range rawCaps {
			if cap, ok := rc.(string); ok {
				identity.Capabilities = append(identity.Capabilities, cap)
			}
		}
	}
	return identity, nil
}
