// Copyright 2026 The simple-pow-chain Authors
// This file is part of simple-pow-chain.
//
// simple-pow-chain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// simple-pow-chain is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with simple-pow-chain. If not, see <http://www.gnu.org/licenses/>.

// Package log is a thin module-tagged wrapper around zap, following the
// teacher's log.NewModuleLogger(log.CMDKCN) call convention.
package log

import (
	"go.uber.org/zap"
)

// Module names components use to tag their logger.
const (
	ModuleChain = "chain"
	ModuleP2P   = "p2p"
	ModuleMiner = "miner"
	ModuleSeed  = "seed"
	ModuleCLI   = "cli"
)

var base = mustBuild()

func mustBuild() *zap.SugaredLogger {
	cfg := zap.NewDevelopmentConfig()
	cfg.DisableStacktrace = true
	logger, err := cfg.Build()
	if err != nil {
		// Logging configuration is static and can't fail at runtime in
		// practice; fall back to a no-op logger rather than panic so a
		// logging bug never takes the chain down.
		logger = zap.NewNop()
	}
	return logger.Sugar()
}

// Logger is a module-tagged logger; its methods accept the familiar
// key/value varargs style (msg, "key", value, "key", value, ...).
type Logger struct {
	module string
	sugar  *zap.SugaredLogger
}

// NewModuleLogger returns a Logger tagged with module, which is
// attached to every line it emits.
func NewModuleLogger(module string) *Logger {
	return &Logger{module: module, sugar: base.With("module", module)}
}

func (l *Logger) Debug(msg string, kv ...interface{}) { l.sugar.Debugw(msg, kv...) }
func (l *Logger) Info(msg string, kv ...interface{})  { l.sugar.Infow(msg, kv...) }
func (l *Logger) Warn(msg string, kv ...interface{})  { l.sugar.Warnw(msg, kv...) }
func (l *Logger) Error(msg string, kv ...interface{}) { l.sugar.Errorw(msg, kv...) }

// Fatal logs at fatal level then exits the process with a non-zero
// status, used by cmd/* for bind/config failures (spec §7 fatal
// errors).
func (l *Logger) Fatal(msg string, kv ...interface{}) { l.sugar.Fatalw(msg, kv...) }
