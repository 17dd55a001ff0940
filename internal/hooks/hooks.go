// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package hooks is a small synchronous publish/subscribe registry used to
// announce committed writes to interested subscribers.
package hooks

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Hook names.
const (
	// MutationCommitted carries a model.Mutation after the write commits.
	MutationCommitted = "mutation.committed"
)

// Func handles one emitted hook.
type Func func(ctx context.Context, data any) error

// Handler wraps a Func with metadata.
type Handler struct {
	Name     string // for logs
	Priority int    // lower runs first
	Fn       Func
}

// Registry manages hook registration and execution.
type Registry struct {
	hooks  map[string][]Handler
	logger *slog.Logger
	mu     sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		hooks:  make(map[string][]Handler),
		logger: logger,
	}
}

// Register adds a handler for hookName.
func (r *Registry) Register(hookName string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// copy so in-flight Emit calls keep their snapshot
	existing := r.hooks[hookName]
	handlers := make([]Handler, 0, len(existing)+1)
	handlers = append(handlers, existing...)
	handlers = append(handlers, h)
	sort.SliceStable(handlers, func(i, j int) bool {
		return handlers[i].Priority < handlers[j].Priority
	})
	r.hooks[hookName] = handlers

	r.logger.Debug("hook registered", "hook", hookName, "handler", h.Name, "priority", h.Priority)
}

// RegisterFunc registers fn with priority 0.
func (r *Registry) RegisterFunc(hookName, handlerName string, fn Func) {
	r.Register(hookName, Handler{Name: handlerName, Fn: fn})
}

// Emit runs every handler for hookName in priority order. Handler errors
// and panics are logged and never reach the caller, so emitting cannot
// change the outcome of the operation that triggered it.
func (r *Registry) Emit(ctx context.Context, hookName string, data any) {
	r.mu.RLock()
	handlers := r.hooks[hookName]
	r.mu.RUnlock()

	for _, h := range handlers {
		if err := r.run(ctx, h, data); err != nil {
			r.logger.Error("hook handler failed",
				"hook", hookName,
				"handler", h.Name,
				"error", err,
			)
		}
	}
}

func (r *Registry) run(ctx context.Context, h Handler, data any) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return h.Fn(ctx, data)
}

// HandlerCount returns the number of handlers registered for a hook.
func (r *Registry) HandlerCount(hookName string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.hooks[hookName])
}
