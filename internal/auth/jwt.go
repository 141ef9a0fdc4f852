// Package auth resolves the caller identity carried in HS256 bearer tokens.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"docrepo/internal/model"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims is the identity payload. Subject mirrors UID for generic JWT tooling.
type Claims struct {
	UID          int64      `json:"uid"`
	Role         model.Role `json:"role"`
	DepartmentID int64      `json:"department_id"`
	jwt.RegisteredClaims
}

// Caller converts the claims into the identity policy decisions are made for.
func (c *Claims) Caller() model.Caller {
	return model.Caller{ID: c.UID, Role: c.Role, DepartmentID: c.DepartmentID}
}

type JWTer struct {
	Secret []byte
	Issuer string
	TTL    time.Duration
}

// Issue signs a token for caller. Login is handled elsewhere; this serves operators and tests.
func (j *JWTer) Issue(caller model.Caller) (string, error) {
	now := time.Now()
	claims := Claims{
		UID:          caller.ID,
		Role:         caller.Role,
		DepartmentID: caller.DepartmentID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    j.Issuer,
			Subject:   strconv.FormatInt(caller.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.TTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.Secret)
}

// Parse verifies signature, issuer and expiry, and rejects tokens without a usable identity.
func (j *JWTer) Parse(tokenStr string) (*Claims, error) {
	t, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected alg %v", token.Header["alg"])
		}
		return j.Secret, nil
	}, jwt.WithIssuer(j.Issuer), jwt.WithExpirationRequired(), jwt.WithLeeway(60*time.Second))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	c, ok := t.Claims.(*Claims)
	if !ok || !t.Valid {
		return nil, ErrInvalidToken
	}
	if c.UID <= 0 || c.Role == "" {
		return nil, fmt.Errorf("%w: missing identity claims", ErrInvalidToken)
	}
	return c, nil
}
