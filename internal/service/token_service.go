package service

import (
	"fmt"
	"time"

	"revenue-ledger/internal/core/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// JWTTokenService implements ports.TokenService using HS256 JWT. Tokens
// are minted by the platform's authentication service; this side mostly
// validates them.
type JWTTokenService struct {
	secret []byte
	issuer string
}

// NewJWTTokenService creates a new JWT token service.
func NewJWTTokenService(secret string, issuer string) *JWTTokenService {
	return &JWTTokenService{
		secret: []byte(secret),
		issuer: issuer,
	}
}

// Generate creates a signed JWT carrying the actor's identity and role.
func (s *JWTTokenService) Generate(actor domain.Actor, expiry time.Duration) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(expiry)

	claims := jwt.MapClaims{
		"sub":  actor.ID.String(),
		"role": string(actor.Role),
		"iat":  now.Unix(),
		"exp":  expiresAt.Unix(),
		"iss":  s.issuer,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing token: %w", err)
	}

	return tokenString, expiresAt, nil
}

// Validate parses and validates a JWT token, returning the actor.
func (s *JWTTokenService) Validate(tokenString string) (*domain.Actor, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return nil, fmt.Errorf("missing subject claim")
	}
	actorID, err := uuid.Parse(sub)
	if err != nil {
		return nil, fmt.Errorf("invalid actor ID in token: %w", err)
	}

	roleStr, ok := claims["role"].(string)
	if !ok {
		return nil, fmt.Errorf("missing role claim")
	}
	role := domain.Role(roleStr)
	switch role {
	case domain.RoleAdmin, domain.RoleStaff, domain.RoleInstructor:
	default:
		return nil, fmt.Errorf("unknown role %q in token", roleStr)
	}

	return &domain.Actor{ID: actorID, Role: role}, nil
}
