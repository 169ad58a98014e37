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
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"go.mongodb.org/mongo-driver/event"
)

// CommandHook observes driver commands. Hooks are combined into one
// event.CommandMonitor by NewCommandMonitor.
type CommandHook interface {
	Started(ctx context.Context, evt *event.CommandStartedEvent)
	Succeeded(ctx context.Context, evt *event.CommandSucceededEvent)
	Failed(ctx context.Context, evt *event.CommandFailedEvent)
}

// NewCommandMonitor fans command events out to hooks. Nil hooks are skipped.
func NewCommandMonitor(hooks ...CommandHook) *event.CommandMonitor {
	active := make([]CommandHook, 0, len(hooks))
	for _, h := range hooks {
		if h != nil {
			active = append(active, h)
		}
	}
	return &event.CommandMonitor{
		Started: func(ctx context.Context, evt *event.CommandStartedEvent) {
			for _, h := range active {
				h.Started(ctx, evt)
			}
		},
		Succeeded: func(ctx context.Context, evt *event.CommandSucceededEvent) {
			for _, h := range active {
				h.Succeeded(ctx, evt)
			}
		},
		Failed: func(ctx context.Context, evt *event.CommandFailedEvent) {
			for _, h := range active {
				h.Failed(ctx, evt)
			}
		},
	}
}

var commandLogSilent bool

// EnableCommandLogSilent mutes every command and slow command hook.
func EnableCommandLogSilent(b bool) {
	commandLogSilent = b
}

const maxCommandLogLen = 512

type startedCommand struct {
	target  string
	command string
}

// commandCache remembers started commands until their outcome arrives, keyed
// by request id.
type commandCache struct {
	m sync.Map
}

func (c *commandCache) put(evt *event.CommandStartedEvent) {
	target := evt.DatabaseName
	if v, err := evt.Command.IndexErr(0); err == nil {
		if coll, ok := v.Value().StringValueOK(); ok {
			target += "." + coll
		}
	}
	cmd := evt.Command.String()
	if len(cmd) > maxCommandLogLen {
		cmd = cmd[:maxCommandLogLen] + "..."
	}
	c.m.Store(evt.RequestID, startedCommand{target: target, command: cmd})
}

func (c *commandCache) take(requestID int64) startedCommand {
	v, ok := c.m.LoadAndDelete(requestID)
	if !ok {
		return startedCommand{}
	}
	return v.(startedCommand)
}

var (
	readColor    = color.New(color.FgGreen)
	insertColor  = color.New(color.FgBlue)
	updateColor  = color.New(color.FgYellow)
	deleteColor  = color.New(color.FgMagenta)
	otherColor   = color.New(color.FgRed)
	tagColor     = color.New(color.FgCyan)
	slowTagColor = color.New(color.FgYellow)
	failColor    = color.New(color.BgRed, color.FgHiWhite)
	slowColor    = color.New(color.BgYellow, color.FgHiWhite)
)

func commandColor(name string) *color.Color {
	switch name {
	case "find", "aggregate", "count", "distinct", "getMore", "listCollections", "listIndexes":
		return readColor
	case "insert":
		return insertColor
	case "update", "findAndModify", "collMod":
		return updateColor
	case "delete", "drop", "dropIndexes":
		return deleteColor
	}
	return otherColor
}

// CommandLogHook prints one line per command. The environment variable named
// by envName overrides the flags: "0" or empty disables, "1" prints failed
// commands only, "2" prints everything.
type CommandLogHook struct {
	envName string
	enabled bool
	verbose bool
	writer  io.Writer
	cache   commandCache
}

var _ CommandHook = (*CommandLogHook)(nil)

func NewCommandLogHook(enabled, verbose bool, w io.Writer) *CommandLogHook {
	if w == nil {
		w = os.Stdout
	}
	return &CommandLogHook{envName: "MONGEASY_DEBUG", enabled: enabled, verbose: verbose, writer: w}
}

func (h *CommandLogHook) mode() (enabled, verbose bool) {
	enabled, verbose = h.enabled, h.verbose
	if env, ok := os.LookupEnv(h.envName); ok {
		env = strings.TrimSpace(env)
		enabled = env != "" && env != "0"
		verbose = env == "2"
	}
	return enabled && !commandLogSilent, verbose
}

func (h *CommandLogHook) Started(_ context.Context, evt *event.CommandStartedEvent) {
	if enabled, _ := h.mode(); enabled {
		h.cache.put(evt)
	}
}

func (h *CommandLogHook) Succeeded(_ context.Context, evt *event.CommandSucceededEvent) {
	started := h.cache.take(evt.RequestID)
	enabled, verbose := h.mode()
	if !enabled || !verbose {
		return
	}
	h.print("✅", evt.CommandName, evt.Duration, started, "")
}

func (h *CommandLogHook) Failed(_ context.Context, evt *event.CommandFailedEvent) {
	started := h.cache.take(evt.RequestID)
	if enabled, _ := h.mode(); !enabled {
		return
	}
	h.print("❌", evt.CommandName, evt.Duration, started, evt.Failure)
}

func (h *CommandLogHook) print(mark, name string, d time.Duration, started startedCommand, failure string) {
	args := []any{
		time.Now().Format("2006-01-02 15:04:05.000"),
		tagColor.Sprintf("%15s", "[MONGO] "+mark),
		fmt.Sprintf("%17s", d.Round(time.Microsecond)),
		"  ", commandColor(name).Sprintf("%s %s %s", started.target, name, started.command),
	}
	if failure != "" {
		args = append(args, "\t", failColor.Sprintf(" %s ", failure))
	}
	_, _ = fmt.Fprintln(h.writer, args...)
}

// SlowCommandHook prints successful commands slower than slowTime. The
// environment variable named by envName overrides enabled: "1" enables.
type SlowCommandHook struct {
	envName  string
	enabled  bool
	slowTime time.Duration
	writer   io.Writer
	cache    commandCache
}

var _ CommandHook = (*SlowCommandHook)(nil)

func NewSlowCommandHook(enabled bool, slowTime time.Duration, w io.Writer) *SlowCommandHook {
	if w == nil {
		w = os.Stdout
	}
	return &SlowCommandHook{envName: "MONGEASY_SLOW_LOG", enabled: enabled, slowTime: slowTime, writer: w}
}

func (h *SlowCommandHook) isEnabled() bool {
	enabled := h.enabled
	if env, ok := os.LookupEnv(h.envName); ok {
		enabled = strings.TrimSpace(env) == "1"
	}
	return enabled && !commandLogSilent && h.slowTime > 0
}

func (h *SlowCommandHook) Started(_ context.Context, evt *event.CommandStartedEvent) {
	if h.isEnabled() {
		h.cache.put(evt)
	}
}

func (h *SlowCommandHook) Succeeded(_ context.Context, evt *event.CommandSucceededEvent) {
	started := h.cache.take(evt.RequestID)
	if !h.isEnabled() || evt.Duration <= h.slowTime {
		return
	}
	args := []any{
		time.Now().Format("2006-01-02 15:04:05.000"),
		slowTagColor.Sprintf("%15s", "[MONGO_SLOW] 🔴"),
		fmt.Sprintf("%17s", evt.Duration.Round(time.Microsecond)),
		"  ", slowColor.Sprintf("%s %s %s", started.target, evt.CommandName, started.command),
	}
	_, _ = fmt.Fprintln(h.writer, args...)
}

func (h *SlowCommandHook) Failed(_ context.Context, evt *event.CommandFailedEvent) {
	h.cache.take(evt.RequestID)
}
