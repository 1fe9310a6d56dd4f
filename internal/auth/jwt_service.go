package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"formini/internal/model"
)

const (
	// SessionTokenExpiry is the lifetime of tokens issued by password and MFA logins.
	SessionTokenExpiry = 24 * time.Hour
	// ExternalSessionTokenExpiry is the lifetime of tokens issued by the Google flow.
	ExternalSessionTokenExpiry = 7 * 24 * time.Hour
	// ProfileCompletionExpiry is the lifetime of profile completion tokens.
	ProfileCompletionExpiry = 15 * time.Minute
)

// Token purposes.
const (
	PurposeSession           = "session"
	PurposeProfileCompletion = "profile_completion"
)

// Claims represents JWT claims.
type Claims struct {
	UserID  string     `json:"user_id"`
	Role    model.Role `json:"role"`
	Purpose string     `json:"purpose"`
	jwt.RegisteredClaims
}

// JWTService handles JWT token generation and validation.
type JWTService struct {
	secret []byte
	now    func() time.Time
}

// NewJWTService creates a new JWT service with the given secret.
func NewJWTService(secret string) *JWTService {
	return &JWTService{
		secret: []byte(secret),
		now:    time.Now,
	}
}

// NewJWTServiceWithClock creates a JWT service that signs and validates against clock.
func NewJWTServiceWithClock(secret string, clock func() time.Time) *JWTService {
	return &JWTService{
		secret: []byte(secret),
		now:    clock,
	}
}

// Secret returns the signing key, for middleware that verifies tokens itself.
func (s *JWTService) Secret() []byte {
	return s.secret
}

// GenerateSessionToken generates a session token bound to the user's id and role.
func (s *JWTService) GenerateSessionToken(user *model.User, ttl time.Duration) (string, error) {
	return s.sign(user, PurposeSession, ttl)
}

// GenerateProfileCompletionToken generates a short-lived token that only allows
// completing the profile of an externally created account.
func (s *JWTService) GenerateProfileCompletionToken(user *model.User) (string, error) {
	return s.sign(user, PurposeProfileCompletion, ProfileCompletionExpiry)
}

func (s *JWTService) sign(user *model.User, purpose string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := &Claims{
		UserID:  user.ID,
		Role:    user.Role,
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ValidateToken validates a JWT token and returns the claims.
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, s.KeyFunc, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.UserID == "" {
		return nil, errors.New("missing subject")
	}

	return claims, nil
}

// ValidatePurpose validates a token and requires the given purpose.
func (s *JWTService) ValidatePurpose(tokenString, purpose string) (*Claims, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Purpose != purpose {
		return nil, errors.New("unexpected token purpose")
	}
	return claims, nil
}

// KeyFunc resolves the HMAC key and rejects other signing methods.
func (s *JWTService) KeyFunc(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, errors.New("unexpected signing method")
	}
	return s.secret, nil
}
