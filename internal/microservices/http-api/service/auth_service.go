package service

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrMissingUser  = errors.New("token has no user_id claim")
)

// Claims is what the circle engine needs from an identity provider token.
type Claims struct {
	UserID   string
	Username string
}

// TokenVerifier validates bearer tokens issued by the identity provider.
// Credentials are never handled here.
type TokenVerifier interface {
	ValidateToken(tokenString string) (*Claims, error)
}

type jwtVerifier struct {
	secret []byte
}

func NewTokenVerifier(secret string) TokenVerifier {
	return &jwtVerifier{secret: []byte(secret)}
}

func (v *jwtVerifier) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	// access tokens only; refresh tokens carry type=refresh
	if typ, ok := mc["type"].(string); ok && typ != "access" {
		return nil, ErrInvalidToken
	}

	userID, _ := mc["user_id"].(string)
	if userID == "" {
		return nil, ErrMissingUser
	}
	if _, err := uuid.Parse(userID); err != nil {
		return nil, fmt.Errorf("%w: user_id is not a uuid", ErrInvalidToken)
	}

	username, _ := mc["username"].(string)
	return &Claims{UserID: userID, Username: username}, nil
}
