// Copyright (c) 2026 Parley. All rights reserved.
// Author: Parley Authors

// Package sec provides cryptographic primitives and token management.
//
// # Architecture
//
// This package isolates security-sensitive code (Hashing, JWT Signing) from
// the domain logic. Its types are injected into the services that need them;
// nothing here reads configuration or globals.
package sec

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrTokenExpired is returned for a well-formed token past its expiry.
	ErrTokenExpired = errors.New("sec: token expired")

	// ErrTokenInvalid is returned for malformed tokens and bad signatures.
	ErrTokenInvalid = errors.New("sec: token invalid")

	// ErrTokenRevoked is returned for tokens issued before a revocation mark.
	ErrTokenRevoked = errors.New("sec: token revoked")

	// ErrMissingSecret is returned when the signing secret is empty.
	ErrMissingSecret = errors.New("sec: signing secret is empty")
)

// AuthClaims represents the payload embedded inside an access token.
//
// The user id and username are carried in the token so the authenticate
// middleware can rebuild the caller identity without a database round trip.
type AuthClaims struct {
	jwt.RegisteredClaims

	UserID   int64  `json:"uid"`
	Username string `json:"username"`

	// IssuedAtMillis is the issue instant in unix milliseconds. The registered
	// iat claim has whole-second precision, too coarse to order a login against
	// a password change made in the same second.
	IssuedAtMillis int64 `json:"iat_ms"`
}

// IssuedAtTime returns the issue instant at millisecond precision, falling
// back to iat. The zero time means the token carries neither.
func (claims *AuthClaims) IssuedAtTime() time.Time {
	if claims.IssuedAtMillis > 0 {
		return time.UnixMilli(claims.IssuedAtMillis)
	}
	if claims.IssuedAt != nil {
		return claims.IssuedAt.Time
	}
	return time.Time{}
}

// TokenService issues and verifies HS256 access tokens.
type TokenService struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService creates a [TokenService] signing with secret.
func NewTokenService(secret, issuer string, ttl time.Duration) (*TokenService, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, ErrMissingSecret
	}
	return &TokenService{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// TTL returns the lifetime of issued tokens.
func (service *TokenService) TTL() time.Duration {
	return service.ttl
}

// Issue creates a signed token bound to the given account.
func (service *TokenService) Issue(userID int64, username string) (string, time.Time, error) {
	currentTime := service.now()
	expiresAt := currentTime.Add(service.ttl)

	claims := AuthClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			Issuer:    service.issuer,
			IssuedAt:  jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserID:         userID,
		Username:       username,
		IssuedAtMillis: currentTime.UnixMilli(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(service.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sec: failed to sign token: %w", err)
	}

	return signedToken, expiresAt, nil
}

// Verify checks the signature and validity of a token string.
//
// It returns [ErrTokenExpired] or [ErrTokenInvalid]; revocation is checked by
// the caller against its own store.
func (service *TokenService) Verify(tokenString string) (*AuthClaims, error) {
	claims := &AuthClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return service.secret, nil
	},
		jwt.WithIssuer(service.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(service.now),
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	if !token.Valid || claims.UserID <= 0 || claims.Username == "" {
		return nil, fmt.Errorf("%w: incomplete claims", ErrTokenInvalid)
	}

	return claims, nil
}
