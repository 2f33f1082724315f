package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Service struct {
	jwtSecret string
}

func New(jwtSecret string) *Service { return &Service{jwtSecret: jwtSecret} }

// Claims are issued by the application that owns the attachments. An empty
// Aliases list grants every alias.
type Claims struct {
	Aliases []string `json:"aliases,omitempty"`
	jwt.RegisteredClaims
}

func (c *Claims) Allows(alias string) bool {
	if len(c.Aliases) == 0 {
		return true
	}
	for _, a := range c.Aliases {
		if a == alias {
			return true
		}
	}
	return false
}

func (s *Service) GenerateJWT(subject string, aliases []string, expiresIn time.Duration) (string, error) {
	claims := Claims{
		Aliases: aliases,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString([]byte(s.jwtSecret))
}

func (s *Service) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.jwtSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, errors.New("invalid claims")
	}
	return claims, nil
}
