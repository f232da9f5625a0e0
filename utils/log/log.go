// Copyright (c) 2016-2019 Uber Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package log provides a package-level sugared zap logger, used instead of
// the standard library log package throughout the engine.
package log

import (
	"sync"

	"go.uber.org/zap"
)

var (
	mu     sync.RWMutex
	logger = mustBuild()
)

func mustBuild() *zap.SugaredLogger {
	l, err := zap.NewProduction()
	if err != nil {
		l = zap.NewNop()
	}
	return l.Sugar()
}

// SetLogger overrides the package-level logger. Intended for tests and for
// binaries that want custom zap configuration.
func SetLogger(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	logger = l.Sugar()
}

func current() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Logger returns the current package-level zap.Logger, e.g. so a test can
// save and restore it around a call to SetLogger.
func Logger() *zap.Logger {
	return current().Desugar()
}

// With returns a sub-logger with the given key/value fields attached.
func With(args ...interface{}) *zap.SugaredLogger {
	return current().With(args...)
}

// Debugf logs at debug level.
func Debugf(template string, args ...interface{}) { current().Debugf(template, args...) }

// Infof logs at info level.
func Infof(template string, args ...interface{}) { current().Infof(template, args...) }

// Info logs at info level.
func Info(args ...interface{}) { current().Info(args...) }

// Warnf logs at warn level.
func Warnf(template string, args ...interface{}) { current().Warnf(template, args...) }

// Errorf logs at error level.
func Errorf(template string, args ...interface{}) { current().Errorf(template, args...) }

// Error logs at error level.
func Error(args ...interface{}) { current().Error(args...) }

// Fatalf logs at fatal level and exits the process.
func Fatalf(template string, args ...interface{}) { current().Fatalf(template, args...) }

// Fatal logs at fatal level and exits the process.
func Fatal(args ...interface{}) { current().Fatal(args...) }
