package jwthelper

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/vietanh2810/fuelticket-api/internal/domain"
)

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrInvalidSubject = errors.New("invalid token subject")
)

// Claims carries the identity the auth service puts in every access token.
type Claims struct {
	jwt.RegisteredClaims
	Role      domain.Role `json:"role"`
	Email     string      `json:"email"`
	FirstName string      `json:"first_name,omitempty"`
	LastName  string      `json:"last_name,omitempty"`
	Phone     string      `json:"phone,omitempty"`
	Stations  []uint      `json:"stations,omitempty"`
	UserAgent string      `json:"user_agent,omitempty"`
}

func (c Claims) Actor() (domain.Actor, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil || id == 0 {
		return domain.Actor{}, ErrInvalidSubject
	}

	return domain.Actor{
		UserID:     uint(id),
		Role:       c.Role,
		Email:      c.Email,
		FirstName:  c.FirstName,
		LastName:   c.LastName,
		Phone:      c.Phone,
		StationIDs: c.Stations,
	}, nil
}

func GenerateToken(key []byte, actor domain.Actor, userAgent string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(actor.UserID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Role:      actor.Role,
		Email:     actor.Email,
		FirstName: actor.FirstName,
		LastName:  actor.LastName,
		Phone:     actor.Phone,
		Stations:  actor.StationIDs,
		UserAgent: userAgent,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("token.SignedString -> %w", err)
	}

	return token, nil
}

func ParseToken(key []byte, tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("jwt.ParseWithClaims -> %w", err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
