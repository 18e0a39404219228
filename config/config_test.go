/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package config

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/badu/exchange/negotiate"
)

func TestLoadDefaults(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(fs)

	cfg, err := Load(fs)
	require.NoError(t, err)
	assert.Equal(t, ":8443", cfg.Addr)
	assert.Equal(t, 30*time.Second, cfg.ReadTimeout)
	assert.Equal(t, []negotiate.Protocol{negotiate.HTTP2, negotiate.HTTP1}, cfg.ALPNProtocols)
}

func TestLoadFlagOverrides(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(fs)
	require.NoError(t, fs.Parse([]string{"--addr", ":9000", "--alpn", "http/1.1", "--idle-timeout", "45s"}))

	cfg, err := Load(fs)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Addr)
	assert.Equal(t, 45*time.Second, cfg.IdleTimeout)
	assert.Equal(t, []negotiate.Protocol{negotiate.HTTP1}, cfg.ALPNProtocols)
}

func TestLoadIgnoresUnknownALPNTokens(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(fs)
	require.NoError(t, fs.Parse([]string{"--alpn", "spdy/3.1"}))

	cfg, err := Load(fs)
	require.NoError(t, err)
	assert.Equal(t, []negotiate.Protocol{negotiate.HTTP2, negotiate.HTTP1}, cfg.ALPNProtocols,
		"unknown tokens fall back to the defaults")
}
