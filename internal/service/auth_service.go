package service

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"skillduel/internal/model"
)

// AuthService issues and validates duel-scoped user tokens. Account
// management lives in the main product; this service only needs a stable
// user identity per token.
type AuthService struct {
	jwtSecret []byte
	tokenTTL  time.Duration
}

// NewAuthService creates a new auth service
func NewAuthService(secret string) *AuthService {
	return &AuthService{
		jwtSecret: []byte(secret),
		tokenTTL:  24 * time.Hour,
	}
}

// IssueGuest mints a fresh user identity and a signed token for it.
func (s *AuthService) IssueGuest(displayName string) (*model.GuestResponse, error) {
	userID := "u_" + uuid.New().String()[:8]
	if displayName == "" {
		displayName = userID
	}

	claims := &model.UserClaims{
		UserID:      userID,
		DisplayName: displayName,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.tokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return nil, err
	}

	return &model.GuestResponse{
		Token:       tokenString,
		UserID:      userID,
		DisplayName: displayName,
	}, nil
}

// ValidateUserToken validates a user JWT and returns its claims.
func (s *AuthService) ValidateUserToken(tokenString string) (*model.UserClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &model.UserClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*model.UserClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
