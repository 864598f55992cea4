// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package cpu

import (
	"errors"

	"github.com/joeycumines/logiface"
)

// ErrInvalidAffinity is returned by WithAffinity for negative CPU indexes
// other than -1.
var ErrInvalidAffinity = errors.New("cpu: invalid affinity")

// coreOptions holds configuration options for Core creation.
type coreOptions struct {
	logger   *logiface.Logger[logiface.Event]
	affinity int
}

// Option configures a Core instance.
type Option interface {
	applyCore(*coreOptions) error
}

// coreOptionImpl implements Option.
type coreOptionImpl struct {
	applyCoreFunc func(*coreOptions) error
}

func (c *coreOptionImpl) applyCore(opts *coreOptions) error {
	return c.applyCoreFunc(opts)
}

// WithLogger sets the logger used to report faults in interrupt handlers.
// A nil logger disables logging.
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return &coreOptionImpl{func(opts *coreOptions) error {
		opts.logger = logger
		return nil
	}}
}

// WithAffinity pins the thread that calls Core.Bind to the given CPU index.
// -1 (default) leaves scheduling to the OS.
func WithAffinity(cpu int) Option {
	return &coreOptionImpl{func(opts *coreOptions) error {
		if cpu < -1 {
			return ErrInvalidAffinity
		}
		opts.affinity = cpu
		return nil
	}}
}

// resolveOptions applies Option instances to coreOptions.
func resolveOptions(opts []Option) (*coreOptions, error) {
	cfg := &coreOptions{
		affinity: -1,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyCore(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
