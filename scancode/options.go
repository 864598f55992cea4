// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package scancode

import (
	"time"

	"github.com/joeycumines/logiface"
)

// portOptions holds configuration options for Port creation.
type portOptions struct {
	logger    *logiface.Logger[logiface.Event]
	warnRates map[time.Duration]int
	capacity  int
}

// PortOption configures a Port instance.
type PortOption interface {
	applyPort(*portOptions) error
}

// portOptionImpl implements PortOption.
type portOptionImpl struct {
	applyPortFunc func(*portOptions) error
}

func (p *portOptionImpl) applyPort(opts *portOptions) error {
	return p.applyPortFunc(opts)
}

// WithCapacity sets the capacity of the queue created by NewStream.
func WithCapacity(capacity int) PortOption {
	return &portOptionImpl{func(opts *portOptions) error {
		if capacity < 1 {
			return ErrInvalidCapacity
		}
		opts.capacity = capacity
		return nil
	}}
}

// WithLogger sets the logger used for dropped input diagnostics.
func WithLogger(logger *logiface.Logger[logiface.Event]) PortOption {
	return &portOptionImpl{func(opts *portOptions) error {
		opts.logger = logger
		return nil
	}}
}

// WithWarnRates replaces DefaultWarnRates, see catrate.NewLimiter for the
// format. An empty map disables rate limiting.
func WithWarnRates(rates map[time.Duration]int) PortOption {
	return &portOptionImpl{func(opts *portOptions) error {
		opts.warnRates = rates
		return nil
	}}
}

// resolvePortOptions applies PortOption instances to portOptions.
func resolvePortOptions(opts []PortOption) (*portOptions, error) {
	cfg := &portOptions{
		capacity:  DefaultCapacity,
		warnRates: DefaultWarnRates,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyPort(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
