package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// Service handles authentication for the admin token API
type Service struct {
	jwtSecret         string
	adminPasswordHash string
}

// NewService creates a new authentication service
func NewService(jwtSecret, adminPasswordHash string) *Service {
	return &Service{
		jwtSecret:         jwtSecret,
		adminPasswordHash: adminPasswordHash,
	}
}

// CheckAdminPassword verifies the admin password against the configured hash
func (s *Service) CheckAdminPassword(password string) error {
	if s.adminPasswordHash == "" {
		return errors.New("admin access not configured")
	}
	return bcrypt.CompareHashAndPassword([]byte(s.adminPasswordHash), []byte(password))
}

// GenerateToken creates a new admin JWT token
func (s *Service) GenerateToken() (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"is_admin": true,
		"exp":      time.Now().Add(24 * time.Hour).Unix(),
	})

	return token.SignedString([]byte(s.jwtSecret))
}

// VerifyToken validates a JWT token and returns the claims
func (s *Service) VerifyToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})

	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}

	return claims, nil
}
