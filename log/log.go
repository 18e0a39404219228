/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

// Package log builds the structured logger threaded explicitly through
// server and errorex. There is no
// process-wide singleton; every component takes its *zap.Logger as a
// constructor argument.
package log

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level selects a logger's minimum severity.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

func (l Level) zapLevel() zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// New builds a production JSON logger at the given level. development
// selects a human-readable console encoder instead, for local runs of
// cmd/exchanged.
func New(level Level, development bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(level.zapLevel())
	return cfg.Build()
}
