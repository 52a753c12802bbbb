// Package auth validates the bearer tokens issued by the platform's identity service.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/aura-webinar/live-engine/internal/realtime"
)

var (
	ErrInvalidToken = errors.New("invalid token")
)

// Platform roles carried in the token. Admins and speakers run webinars; everyone
// else joins as an attendee.
const (
	RoleAdmin    = "admin"
	RoleSpeaker  = "speaker"
	RoleAttendee = "attendee"
)

// HostRoles may use the host control API.
var HostRoles = []string{RoleAdmin, RoleSpeaker}

// IsHost reports whether role may control a webinar.
func IsHost(role string) bool {
	for _, r := range HostRoles {
		if r == role {
			return true
		}
	}
	return false
}

// RealtimeRole maps a platform role to the event stream role.
func RealtimeRole(role string) realtime.Role {
	if IsHost(role) {
		return realtime.RoleHost
	}
	return realtime.RoleParticipant
}

// Claims holds JWT claims including user ID and role.
type Claims struct {
	UserID uuid.UUID `json:"user_id"`
	Role   string    `json:"role"`
	jwt.RegisteredClaims
}

// JWTService handles token generation and validation.
type JWTService struct {
	secret      []byte
	expireHours int
}

// NewJWTService creates a JWT service.
func NewJWTService(secret string, expireHours int) *JWTService {
	return &JWTService{
		secret:      []byte(secret),
		expireHours: expireHours,
	}
}

// Generate signs a token for the user. The engine only validates tokens; this is
// used by tests and local tooling.
func (s *JWTService) Generate(userID uuid.UUID, role string) (string, error) {
	claims := Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Duration(s.expireHours) * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ID:        uuid.New().String(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Validate parses and validates a JWT, returning claims or error.
func (s *JWTService) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == uuid.Nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// SocketValidator resolves the token passed on the WebSocket query string.
func (s *JWTService) SocketValidator() realtime.TokenValidator {
	return func(token string) (uuid.UUID, realtime.Role, error) {
		claims, err := s.Validate(token)
		if err != nil {
			return uuid.Nil, "", err
		}
		return claims.UserID, RealtimeRole(claims.Role), nil
	}
}
