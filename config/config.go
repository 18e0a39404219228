/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

// Package config loads the listener and timeout configuration for
// cmd/exchanged from flags and EXCHANGED_-prefixed environment
// variables via github.com/spf13/viper.
package config

import (
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/badu/exchange/log"
	"github.com/badu/exchange/negotiate"
)

// Config is the fully resolved set of knobs server.Config and the ALPN
// negotiator need to run a connection.
type Config struct {
	Addr           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int64
	MaxBodyBytes   int64
	ALPNProtocols  []negotiate.Protocol
	LogLevel       log.Level
	LogDevelopment bool
}

// defaults are the demo binary's safe floor; a zero timeout means "no
// deadline".
func defaults() Config {
	return Config{
		Addr:           ":8443",
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		IdleTimeout:    2 * time.Minute,
		MaxHeaderBytes: 1 << 20,
		MaxBodyBytes:   10 << 20,
		ALPNProtocols:  []negotiate.Protocol{negotiate.HTTP2, negotiate.HTTP1},
		LogLevel:       log.LevelInfo,
		LogDevelopment: false,
	}
}

// BindFlags registers this package's flags on fs (typically a cobra
// command's *pflag.FlagSet).
func BindFlags(fs *pflag.FlagSet) {
	d := defaults()
	fs.String("addr", d.Addr, "listen address")
	fs.Duration("read-timeout", d.ReadTimeout, "per-request read deadline")
	fs.Duration("write-timeout", d.WriteTimeout, "per-request write deadline")
	fs.Duration("idle-timeout", d.IdleTimeout, "keep-alive idle deadline")
	fs.Int64("max-header-bytes", d.MaxHeaderBytes, "maximum request header block size")
	fs.Int64("max-body-bytes", d.MaxBodyBytes, "maximum request body size")
	fs.StringSlice("alpn", []string{"h2", "http/1.1"}, "ALPN protocols offered, most preferred first")
	fs.String("log-level", string(d.LogLevel), "debug, info, warn, or error")
	fs.Bool("log-development", d.LogDevelopment, "use a human-readable console logger instead of JSON")
}

// Load reads bound flags and EXCHANGED_-prefixed environment variables
// into a Config via viper, falling back to defaults for anything unset.
func Load(fs *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("exchanged")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return Config{}, err
	}

	cfg := defaults()
	cfg.Addr = v.GetString("addr")
	cfg.ReadTimeout = v.GetDuration("read-timeout")
	cfg.WriteTimeout = v.GetDuration("write-timeout")
	cfg.IdleTimeout = v.GetDuration("idle-timeout")
	cfg.MaxHeaderBytes = v.GetInt64("max-header-bytes")
	cfg.MaxBodyBytes = v.GetInt64("max-body-bytes")
	cfg.LogLevel = log.Level(v.GetString("log-level"))
	cfg.LogDevelopment = v.GetBool("log-development")

	if tokens := v.GetStringSlice("alpn"); len(tokens) > 0 {
		protos := make([]negotiate.Protocol, 0, len(tokens))
		for _, t := range tokens {
			switch t {
			case "h2":
				protos = append(protos, negotiate.HTTP2)
			case "http/1.1":
				protos = append(protos, negotiate.HTTP1)
			}
		}
		if len(protos) > 0 {
			cfg.ALPNProtocols = protos
		}
	}
	return cfg, nil
}
