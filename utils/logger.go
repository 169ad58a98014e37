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

package utils

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
)

type Logger = logrus.Logger

const defaultTimestampFormat = "2006-01-02 15:04:05.000"

var (
	consoleLevel     = ParseLogLevel(EnvDefaultString("LOG_LEVEL", "debug"))
	fileLevel        = logrus.TraceLevel
	consoleLogFormat = EnvDefaultString("CONSOLE_LOG_FORMAT", "text")
	fileLogFormat    = EnvDefaultString("FILE_LOG_FORMAT", "text")
	fileLogEnabled   = EnvDefaultBool("FILE_LOG_ENABLED", false)
	fileLogDir       = EnvDefaultString("FILE_LOG_DIR", "logs")
	fileLogMaxAge    = EnvDefaultInt("FILE_LOG_MAX_AGE_DAYS", 7)

	outputMu      sync.RWMutex
	consoleOutput io.Writer = os.Stdout

	registryMu sync.RWMutex
	registry   = map[string]*logrus.Logger{}
)

// ConfigureFileLog enables daily rolling log files under dir. Directories
// older than maxAgeDays are removed on rollover; a negative value keeps them.
// Only loggers created afterwards are affected.
func ConfigureFileLog(dir string, maxAgeDays int) {
	if dir != "" {
		fileLogDir = dir
	}
	fileLogMaxAge = maxAgeDays
	fileLogEnabled = true
}

func ConfigureConsoleLogFormat(format string) { consoleLogFormat = normalizeFormat(format) }

func ConfigureFileLogFormat(format string) { fileLogFormat = normalizeFormat(format) }

// SetConsoleOutput redirects console output of every logger, os.Stdout by default.
func SetConsoleOutput(w io.Writer) {
	outputMu.Lock()
	defer outputMu.Unlock()
	if w == nil {
		w = os.Stdout
	}
	consoleOutput = w
}

func normalizeFormat(format string) string {
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		return "json"
	}
	return "text"
}

// ParseLogLevel maps a level name to a logrus level; unknown names are info.
func ParseLogLevel(s string) logrus.Level {
	lvl, err := logrus.ParseLevel(strings.TrimSpace(s))
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

// ConfigureLogLevel sets the console and file level of all loggers.
func ConfigureLogLevel(level string) {
	lvl := ParseLogLevel(level)
	consoleLevel, fileLevel = lvl, lvl
	applyLevel(lvl)
}

func ConfigureConsoleLogLevel(level string) {
	consoleLevel = ParseLogLevel(level)
	applyLevel(maxLevel(consoleLevel, fileLevel))
}

func ConfigureFileLogLevel(level string) {
	fileLevel = ParseLogLevel(level)
	applyLevel(maxLevel(consoleLevel, fileLevel))
}

// SetLoggerLevel changes the level of one named logger.
func SetLoggerLevel(name string, level string) bool {
	registryMu.RLock()
	l, ok := registry[name]
	registryMu.RUnlock()
	if ok {
		l.SetLevel(ParseLogLevel(level))
	}
	return ok
}

// GetNamedLogger returns a logger created by NewLogger.
func GetNamedLogger(name string) (*logrus.Logger, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	l, ok := registry[name]
	return l, ok
}

func applyLevel(lvl logrus.Level) {
	registryMu.RLock()
	for _, l := range registry {
		l.SetLevel(lvl)
	}
	registryMu.RUnlock()
}

func maxLevel(a, b logrus.Level) logrus.Level {
	if a > b {
		return a
	}
	return b
}

// NewLogger creates a named logger writing to the console and, when file
// logging is enabled, to daily rolling files. Calling it twice with the same
// name returns the same logger.
func NewLogger(name string) *logrus.Logger {
	registryMu.Lock()
	defer registryMu.Unlock()
	if l, ok := registry[name]; ok {
		return l
	}

	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetLevel(maxLevel(consoleLevel, fileLevel))
	l.SetReportCaller(true)
	l.SetFormatter(newFormatter(consoleLogFormat, name, true))
	l.AddHook(&consoleHook{formatter: l.Formatter})
	if fileLogEnabled {
		l.AddHook(&fileHook{
			formatter: newFormatter(fileLogFormat, name, false),
			writer:    newDailyWriter(fileLogDir, name, fileLogMaxAge),
		})
	}
	registry[name] = l
	return l
}

func newFormatter(format, name string, console bool) logrus.Formatter {
	if format == "json" {
		return &JSONFormatter{LoggerName: name}
	}
	return &ConsoleFormatter{LoggerName: name, Color: console, NameWidth: 10, CallerWidth: 28}
}

type consoleHook struct {
	formatter logrus.Formatter
}

func (h *consoleHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h *consoleHook) Fire(e *logrus.Entry) error {
	if e.Level > consoleLevel {
		return nil
	}
	b, err := h.formatter.Format(e)
	if err != nil {
		return err
	}
	outputMu.RLock()
	defer outputMu.RUnlock()
	_, err = consoleOutput.Write(b)
	return err
}

type fileHook struct {
	formatter logrus.Formatter
	writer    io.Writer
}

func (h *fileHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h *fileHook) Fire(e *logrus.Entry) error {
	if e.Level > fileLevel {
		return nil
	}
	b, err := h.formatter.Format(e)
	if err != nil {
		return err
	}
	_, err = h.writer.Write(b)
	return err
}

// dailyWriter appends to <dir>/<yyyy-mm-dd>/<name>.log, switching files at
// midnight and pruning day directories older than maxAgeDays.
type dailyWriter struct {
	dir        string
	name       string
	maxAgeDays int

	mu   sync.Mutex
	date string
	file *os.File
}

func newDailyWriter(dir, name string, maxAgeDays int) *dailyWriter {
	return &dailyWriter{dir: dir, name: strings.ToLower(name), maxAgeDays: maxAgeDays}
}

func (w *dailyWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	today := time.Now().Format(time.DateOnly)
	if w.file == nil || w.date != today {
		if w.file != nil {
			_ = w.file.Close()
			w.file = nil
		}
		dayDir := filepath.Join(w.dir, today)
		if err := os.MkdirAll(dayDir, 0o755); err != nil {
			return 0, err
		}
		f, err := os.OpenFile(filepath.Join(dayDir, w.name+".log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return 0, err
		}
		w.file, w.date = f, today
		w.prune()
	}
	return w.file.Write(p)
}

func (w *dailyWriter) prune() {
	if w.maxAgeDays < 0 {
		return
	}
	cutoff := time.Now().AddDate(0, 0, -w.maxAgeDays).Format(time.DateOnly)
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := time.Parse(time.DateOnly, e.Name()); err != nil {
			continue
		}
		// ISO dates sort lexically
		if e.Name() < cutoff {
			_ = os.RemoveAll(filepath.Join(w.dir, e.Name()))
		}
	}
}

// ConsoleFormatter renders log4j style lines:
//
//	2025-01-02 15:04:05.000   INFO 4242   --- [  DATABASE] database/manager.go:88 : connected
type ConsoleFormatter struct {
	LoggerName      string
	TimestampFormat string
	Color           bool
	NameWidth       int
	CallerWidth     int
}

var (
	faint   = color.New(color.Faint)
	cyan    = color.New(color.FgCyan)
	magenta = color.New(color.FgMagenta)
	levels  = map[logrus.Level]*color.Color{
		logrus.PanicLevel: color.New(color.FgRed, color.Bold),
		logrus.FatalLevel: color.New(color.FgRed, color.Bold),
		logrus.ErrorLevel: color.New(color.FgRed),
		logrus.WarnLevel:  color.New(color.FgYellow),
		logrus.InfoLevel:  color.New(color.FgGreen),
		logrus.DebugLevel: color.New(color.FgBlue),
		logrus.TraceLevel: color.New(color.FgMagenta),
	}
)

func (f *ConsoleFormatter) Format(e *logrus.Entry) ([]byte, error) {
	ts := e.Time.Format(timestampFormat(f.TimestampFormat))
	lvl := fmt.Sprintf("%7s", strings.ToUpper(e.Level.String()))
	pid := fmt.Sprintf("%-6d", os.Getpid())
	name := fmt.Sprintf("[%*s]", f.NameWidth, truncate(f.LoggerName, f.NameWidth))
	caller := callerOf(e)
	if f.CallerWidth > 0 {
		caller = fmt.Sprintf("%-*s", f.CallerWidth, shortenPath(caller, f.CallerWidth))
	}

	if f.Color {
		lvl = levels[e.Level].Sprint(lvl)
		pid = magenta.Sprint(pid)
		name = cyan.Sprint(name)
		caller = faint.Sprint(caller)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %s --- %s %s : %s", ts, lvl, pid, name, caller, e.Message)
	for _, k := range sortedKeys(e.Data) {
		fmt.Fprintf(&b, " %s=%v", k, e.Data[k])
	}
	b.WriteByte('\n')
	return []byte(b.String()), nil
}

// JSONFormatter writes one JSON object per line. Entry fields are nested
// under "fields".
type JSONFormatter struct {
	LoggerName      string
	TimestampFormat string
}

type jsonRecord struct {
	Time    string         `json:"time"`
	Level   string         `json:"level"`
	Logger  string         `json:"logger"`
	Caller  string         `json:"caller,omitempty"`
	Message string         `json:"message"`
	Fields  map[string]any `json:"fields,omitempty"`
}

func (f *JSONFormatter) Format(e *logrus.Entry) ([]byte, error) {
	rec := jsonRecord{
		Time:    e.Time.Format(timestampFormat(f.TimestampFormat)),
		Level:   e.Level.String(),
		Logger:  f.LoggerName,
		Caller:  callerOf(e),
		Message: e.Message,
	}
	if len(e.Data) > 0 {
		rec.Fields = make(map[string]any, len(e.Data))
		for k, v := range e.Data {
			if err, ok := v.(error); ok {
				v = err.Error()
			}
			rec.Fields[k] = v
		}
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

func timestampFormat(f string) string {
	if f != "" {
		return f
	}
	return defaultTimestampFormat
}

func callerOf(e *logrus.Entry) string {
	if e.Caller == nil {
		return ""
	}
	return fmt.Sprintf("%s:%d", relativeToModule(e.Caller), e.Caller.Line)
}

// relativeToModule trims the file path down to "<package dir>/<file>".
func relativeToModule(frame *runtime.Frame) string {
	file := filepath.ToSlash(frame.File)
	dir, base := filepath.Split(file)
	return filepath.Base(dir) + "/" + base
}

// shortenPath abbreviates leading directories until p fits in width.
func shortenPath(p string, width int) string {
	if len(p) <= width {
		return p
	}
	parts := strings.Split(p, "/")
	for i := 0; i < len(parts)-1 && len(strings.Join(parts, "/")) > width; i++ {
		if parts[i] != "" {
			parts[i] = parts[i][:1]
		}
	}
	out := strings.Join(parts, "/")
	if len(out) > width {
		out = out[len(out)-width:]
	}
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	return string(r[:n])
}

func sortedKeys(m logrus.Fields) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
