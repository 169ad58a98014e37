/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/tomoncle/mongeasy/utils"
)

var (
	globalLogger   Logger
	globalLoggerMu sync.RWMutex
)

type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

func (l LogLevel) String() string {
	switch l {
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	default:
		return "DEBUG"
	}
}

// Logger is the key/value logging contract used across the module:
//
//	logger.Info("connected", "database", name, "took", d)
type Logger interface {
	SetLevel(LogLevel)
	Debug(msg string, fields ...any)
	Info(msg string, fields ...any)
	Warn(msg string, fields ...any)
	Error(msg string, fields ...any)
}

// InitLogger installs log as the package logger. Only the first call wins.
func InitLogger(log Logger) {
	if log == nil {
		return
	}
	globalLoggerMu.Lock()
	defer globalLoggerMu.Unlock()
	if globalLogger == nil {
		globalLogger = log
	}
}

func GetLogger() Logger {
	globalLoggerMu.RLock()
	l := globalLogger
	globalLoggerMu.RUnlock()
	if l != nil {
		return l
	}

	globalLoggerMu.Lock()
	defer globalLoggerMu.Unlock()
	if globalLogger == nil {
		globalLogger = NewNamedLogger("DATABASE")
	}
	return globalLogger
}

// DefaultLogger adapts a named logrus logger to Logger. Key/value pairs become
// logrus fields.
type DefaultLogger struct {
	name   string
	logger *utils.Logger
}

// NewNamedLogger returns a DefaultLogger backed by utils.NewLogger(name).
func NewNamedLogger(name string) *DefaultLogger {
	return &DefaultLogger{name: name, logger: utils.NewLogger(name)}
}

func (l *DefaultLogger) Debug(msg string, fields ...any) { l.entry(fields).Debug(msg) }

func (l *DefaultLogger) Info(msg string, fields ...any) { l.entry(fields).Info(msg) }

func (l *DefaultLogger) Warn(msg string, fields ...any) { l.entry(fields).Warn(msg) }

func (l *DefaultLogger) Error(msg string, fields ...any) { l.entry(fields).Error(msg) }

func (l *DefaultLogger) SetLevel(level LogLevel) {
	utils.SetLoggerLevel(l.name, strings.ToLower(level.String()))
}

func (l *DefaultLogger) entry(kv []any) *logrus.Entry {
	return l.logger.WithFields(Fields(kv...))
}

// Fields turns alternating key/value arguments into logrus fields. A trailing
// key without a value is kept under "!BADKEY".
func Fields(kv ...any) logrus.Fields {
	f := make(logrus.Fields, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = "!BADKEY"
		}
		if i+1 >= len(kv) {
			f["!BADKEY"] = kv[i]
			break
		}
		f[key] = kv[i+1]
	}
	return f
}
