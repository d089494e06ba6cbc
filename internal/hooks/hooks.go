// Package hooks runs extension points around workspace operations.
// Hooks come from two sources: built-ins registered by commands, and
// executable scripts discovered under <hookdir>/hooks/<event>/, run in
// lexical order so numbered prefixes control sequencing.
package hooks

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
)

// Event names an extension point.
type Event string

const (
	// PostSync fires after a synchronization run completes.
	PostSync Event = "post-sync"
	// PostRemove fires after a removal run completes.
	PostRemove Event = "post-remove"
	// PostClean fires after build artifacts are cleaned.
	PostClean Event = "post-clean"
	// Update is the extension point behind "teire update".
	Update Event = "update"
	// Diagnose is the extension point behind "teire doctor".
	Diagnose Event = "doctor"
)

// Hook is one runnable extension.
type Hook interface {
	Name() string
	Run(ctx context.Context) error
}

// Func adapts a function to the Hook interface.
type Func struct {
	HookName string
	Fn       func(ctx context.Context) error
}

func (f Func) Name() string                  { return f.HookName }
func (f Func) Run(ctx context.Context) error { return f.Fn(ctx) }

// Runner collects hooks for events and runs them.
type Runner struct {
	out      io.Writer
	hookDirs []string
	env      []string
	builtins map[Event][]Hook
}

// NewRunner creates a runner that discovers scripts under the given
// hook directories. env entries (KEY=VALUE) are appended to the script
// environment.
func NewRunner(out io.Writer, hookDirs []string, env []string) *Runner {
	return &Runner{
		out:      out,
		hookDirs: hookDirs,
		env:      env,
		builtins: make(map[Event][]Hook),
	}
}

// Register adds a built-in hook for an event. Built-ins run before any
// discovered scripts, in registration order.
func (r *Runner) Register(event Event, h Hook) {
	r.builtins[event] = append(r.builtins[event], h)
}

// Run executes all hooks for the event. Hook failures are logged and
// collected; they never stop the remaining hooks.
func (r *Runner) Run(ctx context.Context, event Event) error {
	var failed int
	for _, h := range r.builtins[event] {
		if err := h.Run(ctx); err != nil {
			slog.Warn("hook failed", "event", string(event), "hook", h.Name(), "error", err)
			failed++
		}
	}
	for _, script := range r.discover(event) {
		if err := r.runScript(ctx, script); err != nil {
			slog.Warn("hook script failed", "event", string(event), "script", script, "error", err)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d hook(s) failed for %s", failed, event)
	}
	return nil
}

// discover lists executable scripts for the event across all hook
// directories, each directory's scripts in lexical order.
func (r *Runner) discover(event Event) []string {
	var scripts []string
	for _, dir := range r.hookDirs {
		eventDir := filepath.Join(dir, "hooks", string(event))
		entries, err := os.ReadDir(eventDir)
		if err != nil {
			continue
		}
		var names []string
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			info, err := entry.Info()
			if err != nil || !isExecutable(info) {
				continue
			}
			names = append(names, entry.Name())
		}
		sort.Strings(names)
		for _, name := range names {
			scripts = append(scripts, filepath.Join(eventDir, name))
		}
	}
	return scripts
}

func (r *Runner) runScript(ctx context.Context, script string) error {
	cmd := exec.CommandContext(ctx, script)
	cmd.Stdout = r.out
	cmd.Stderr = r.out
	cmd.Env = append(os.Environ(), r.env...)
	return cmd.Run()
}

func isExecutable(info fs.FileInfo) bool {
	return info.Mode()&0o111 != 0
}
