// Package command defines the dispatch boundary of the server: named,
// schema-declared commands, the registry that validates and runs them,
// and the normalized result every caller sees.
//
// The contract has one hard rule: no error, panic, or validation
// failure ever crosses Dispatch as anything but a
// {success:false, error} result. Internal layers are free to return
// native errors for unwind convenience; the registry is the single
// point that normalizes them.
package command

import (
	"context"

	"github.com/avilab/fscmd/internal/container"
	"github.com/spf13/cast"
)

// Args is the validated, coerced argument bag handed to Execute.
type Args map[string]any

// String returns the named argument or def when absent.
func (a Args) String(key, def string) string {
	v, ok := a[key]
	if !ok {
		return def
	}
	return cast.ToString(v)
}

// Int returns the named argument or def when absent.
func (a Args) Int(key string, def int) int {
	v, ok := a[key]
	if !ok {
		return def
	}
	return cast.ToInt(v)
}

// Bool returns the named argument or def when absent.
func (a Args) Bool(key string, def bool) bool {
	v, ok := a[key]
	if !ok {
		return def
	}
	return cast.ToBool(v)
}

// Context carries everything a command execution may touch: its
// validated arguments and a handle to resolve backend services.
// Created per-dispatch, discarded after execution.
type Context struct {
	Args     Args
	Services *container.Container
}

// Command is a named unit of work dispatched by external callers.
// Commands are created once at startup and owned by the registry for
// its lifetime.
type Command struct {
	Name        string
	Description string
	Schema      Schema

	// Validate runs after schema validation for constraints the
	// schema cannot express (cross-field rules, payload shape).
	// Optional; it returns field errors as data, never panics.
	Validate func(args Args) []FieldError

	// Execute performs the work. Any returned error or panic is
	// converted by the registry into a failure result.
	Execute func(ctx context.Context, cc *Context) (any, error)
}

// Result is the normalized outcome of a dispatch. Exactly one of Data
// and Error is meaningful, keyed by Success.
type Result struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func failure(msg string) Result { return Result{Success: false, Error: msg} }
