package command

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/avilab/fscmd/internal/container"
	"github.com/rs/zerolog"
)

// ErrDuplicateCommand is returned by Register when a command name is
// already taken. Registration never silently overwrites.
var ErrDuplicateCommand = errors.New("command already registered")

// Observer is notified after every dispatch with the command name,
// its normalized result, and how long execution took. Observer
// failures are logged and swallowed; they can never fail a dispatch.
type Observer func(name string, res Result, elapsed time.Duration)

// Info is the introspection view of a registered command.
type Info struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Schema      Schema `json:"schema"`
}

// Registry owns the command set and is the single dispatch boundary.
type Registry struct {
	services *container.Container
	log      zerolog.Logger
	observer Observer

	mu       sync.RWMutex
	commands map[string]*Command
}

// Option configures a Registry.
type Option func(*Registry)

// WithObserver installs a post-dispatch hook, e.g. an audit log.
func WithObserver(o Observer) Option {
	return func(r *Registry) { r.observer = o }
}

// WithLogger sets the registry logger.
func WithLogger(log zerolog.Logger) Option {
	return func(r *Registry) { r.log = log }
}

// NewRegistry creates an empty registry resolving services from the
// given container.
func NewRegistry(services *container.Container, opts ...Option) *Registry {
	r := &Registry{
		services: services,
		log:      zerolog.Nop(),
		commands: make(map[string]*Command),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a command. Fails with ErrDuplicateCommand on a name
// collision and rejects structurally broken commands outright.
func (r *Registry) Register(cmd *Command) error {
	if cmd == nil || cmd.Name == "" {
		return fmt.Errorf("command must have a name")
	}
	if cmd.Execute == nil {
		return fmt.Errorf("command %q has no execute function", cmd.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.commands[cmd.Name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateCommand, cmd.Name)
	}
	r.commands[cmd.Name] = cmd
	return nil
}

// List returns name/description/schema triples for every registered
// command, sorted by name. Pure; no side effects.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]Info, 0, len(r.commands))
	for _, cmd := range r.commands {
		infos = append(infos, Info{Name: cmd.Name, Description: cmd.Description, Schema: cmd.Schema})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// Dispatch validates rawArgs against the command's schema and custom
// validator, then executes it. Every failure mode — unknown command,
// validation error, execution error, panic — comes back as a
// {success:false, error} result; nothing escapes as an exception.
func (r *Registry) Dispatch(ctx context.Context, name string, rawArgs map[string]any) Result {
	start := time.Now()

	r.mu.RLock()
	cmd, ok := r.commands[name]
	r.mu.RUnlock()

	var res Result
	switch {
	case !ok:
		res = failure(fmt.Sprintf("unknown command %q", name))
	default:
		res = r.run(ctx, cmd, rawArgs)
	}

	r.notify(name, res, time.Since(start))
	return res
}

func (r *Registry) run(ctx context.Context, cmd *Command, rawArgs map[string]any) (res Result) {
	// The boundary: a panicking command must not take the server down.
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error().Str("command", cmd.Name).Any("panic", rec).Msg("command panicked")
			res = failure(fmt.Sprintf("command %q panicked: %v", cmd.Name, rec))
		}
	}()

	if rawArgs == nil {
		rawArgs = map[string]any{}
	}

	args, fieldErrs := cmd.Schema.Validate(rawArgs)
	if len(fieldErrs) == 0 && cmd.Validate != nil {
		fieldErrs = cmd.Validate(args)
	}
	if len(fieldErrs) > 0 {
		return failure(joinFieldErrors(fieldErrs))
	}

	data, err := cmd.Execute(ctx, &Context{Args: args, Services: r.services})
	if err != nil {
		return failure(err.Error())
	}
	return Result{Success: true, Data: data}
}

func (r *Registry) notify(name string, res Result, elapsed time.Duration) {
	if r.observer == nil {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Warn().Str("command", name).Any("panic", rec).Msg("dispatch observer panicked")
		}
	}()
	r.observer(name, res, elapsed)
}

func joinFieldErrors(errs []FieldError) string {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return "invalid arguments: " + strings.Join(msgs, "; ")
}
