/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package jose

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sign(t *testing.T, secret []byte, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := tok.SignedString(secret)
	require.NoError(t, err)
	return s
}

func TestHMACVerifierAcceptsValidToken(t *testing.T) {
	secret := []byte("s3cr3t")
	v := NewHMACVerifier(secret)
	token := sign(t, secret, jwt.MapClaims{
		"sub": "user-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	claims, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.False(t, claims.Expired)
}

func TestHMACVerifierReportsExpiredToken(t *testing.T) {
	secret := []byte("s3cr3t")
	v := NewHMACVerifier(secret)
	token := sign(t, secret, jwt.MapClaims{
		"sub": "user-1",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})

	claims, err := v.Verify(token)
	require.NoError(t, err)
	assert.True(t, claims.Expired)
}

func TestHMACVerifierRejectsMalformedToken(t *testing.T) {
	v := NewHMACVerifier([]byte("s3cr3t"))
	_, err := v.Verify("not-a-jwt")
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestHMACVerifierRejectsWrongSecret(t *testing.T) {
	token := sign(t, []byte("one-secret"), jwt.MapClaims{"sub": "user-1"})
	v := NewHMACVerifier([]byte("other-secret"))
	_, err := v.Verify(token)
	assert.Error(t, err)
}
