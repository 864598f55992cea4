// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package task

import (
	"github.com/joeycumines/go-kexec/cpu"
	"github.com/joeycumines/logiface"
)

// DefaultTaskCapacity is the default bound on live tasks, and the size of
// the ready queue.
const DefaultTaskCapacity = 100

// executorOptions holds configuration options for Executor creation.
type executorOptions struct {
	core           *cpu.Core
	logger         *logiface.Logger[logiface.Event]
	taskCapacity   int
	metricsEnabled bool
	returnWhenIdle bool
}

// --- Executor Options ---

// Option configures an Executor instance.
type Option interface {
	applyExecutor(*executorOptions) error
}

// executorOptionImpl implements Option.
type executorOptionImpl struct {
	applyExecutorFunc func(*executorOptions) error
}

func (e *executorOptionImpl) applyExecutor(opts *executorOptions) error {
	return e.applyExecutorFunc(opts)
}

// WithCore sets the core the executor halts on while idle. When omitted,
// New creates a private core, in which case only wakers can resume it.
func WithCore(core *cpu.Core) Option {
	return &executorOptionImpl{func(opts *executorOptions) error {
		opts.core = core
		return nil
	}}
}

// WithTaskCapacity bounds the number of live (spawned, not yet completed)
// tasks. Spawn fails with ErrTaskCapacity beyond it.
func WithTaskCapacity(n int) Option {
	return &executorOptionImpl{func(opts *executorOptions) error {
		if n < 1 {
			return ErrInvalidTaskCapacity
		}
		opts.taskCapacity = n
		return nil
	}}
}

// WithLogger sets the logger. A nil logger disables logging.
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return &executorOptionImpl{func(opts *executorOptions) error {
		opts.logger = logger
		return nil
	}}
}

// WithMetrics enables runtime counters, accessible via Executor.Metrics.
func WithMetrics(enabled bool) Option {
	return &executorOptionImpl{func(opts *executorOptions) error {
		opts.metricsEnabled = enabled
		return nil
	}}
}

// WithReturnWhenIdle makes Run return nil once every spawned task has
// completed, instead of halting forever. Mostly useful for tests and
// batch-style programs.
func WithReturnWhenIdle(enabled bool) Option {
	return &executorOptionImpl{func(opts *executorOptions) error {
		opts.returnWhenIdle = enabled
		return nil
	}}
}

// resolveOptions applies Option instances to executorOptions.
func resolveOptions(opts []Option) (*executorOptions, error) {
	cfg := &executorOptions{
		taskCapacity: DefaultTaskCapacity,
	}
	for _, opt := range opts {
		if opt == nil {
			continue // Skip nil options gracefully
		}
		if err := opt.applyExecutor(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
