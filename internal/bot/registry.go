package bot

import (
	"context"
	"fmt"
	"regexp"
	"sync"

	domerrors "github.com/tulul/tululbot/internal/errors"
)

// HandlerFunc answers a matched command.
type HandlerFunc func(ctx context.Context, args Args) (Result, error)

// Middleware wraps the handler of the named command.
type Middleware func(name string, next HandlerFunc) HandlerFunc

type command struct {
	name    string
	pattern *regexp.Regexp
	handler HandlerFunc
}

// Registry is an ordered table of commands. Dispatch tries patterns in
// registration order and the first one that matches wins.
type Registry struct {
	mu          sync.RWMutex
	commands    []command
	middlewares []Middleware
}

// Option configures a Registry.
type Option func(*Registry)

// WithMiddleware wraps every handler registered afterwards. The first
// middleware is the outermost.
func WithMiddleware(mws ...Middleware) Option {
	return func(r *Registry) {
		r.middlewares = append(r.middlewares, mws...)
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register compiles pattern and appends it to the end of the table.
// An invalid pattern returns *errors.PatternError and registers nothing.
func (r *Registry) Register(name, pattern string, h HandlerFunc) error {
	if h == nil {
		return fmt.Errorf("register %s: nil handler", name)
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return &domerrors.PatternError{Pattern: pattern, Err: err}
	}
	if name == "" {
		name = pattern
	}

	for i := len(r.middlewares) - 1; i >= 0; i-- {
		h = r.middlewares[i](name, h)
	}

	r.mu.Lock()
	r.commands = append(r.commands, command{name: name, pattern: re, handler: h})
	r.mu.Unlock()
	return nil
}

// MustRegister is like Register but panics on error. Use it while wiring
// the command table at startup.
func (r *Registry) MustRegister(name, pattern string, h HandlerFunc) {
	if err := r.Register(name, pattern, h); err != nil {
		panic(err)
	}
}

// Len returns the number of registered commands.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.commands)
}

// Run dispatches input to the first command whose pattern matches anywhere
// in it and returns the handler's result unchanged. Handler errors and
// panics propagate to the caller. When nothing matches it returns an error
// wrapping errors.ErrCommandNotFound without calling any handler.
func (r *Registry) Run(ctx context.Context, input string) (Result, error) {
	cmd, args, ok := r.match(input)
	if !ok {
		return nil, fmt.Errorf("%w: %q", domerrors.ErrCommandNotFound, input)
	}
	return cmd.handler(ctx, args)
}

// Match reports which command input would dispatch to, without running it.
func (r *Registry) Match(input string) (string, Args, bool) {
	cmd, args, ok := r.match(input)
	if !ok {
		return "", nil, false
	}
	return cmd.name, args, true
}

func (r *Registry) match(input string) (command, Args, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, cmd := range r.commands {
		if loc := cmd.pattern.FindStringSubmatchIndex(input); loc != nil {
			return cmd, bindArgs(cmd.pattern, input, loc), true
		}
	}
	return command{}, nil, false
}
