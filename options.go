// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package pollmux

import (
	"fmt"

	"github.com/joeycumines/logiface"
)

// defaultBatchSize is the default bulk-flush capacity for driver writes.
const defaultBatchSize = 64

// muxOptions holds configuration options for Multiplexer creation.
type muxOptions struct {
	driver    Driver
	logger    *logiface.Logger[logiface.Event]
	batchSize int
	metrics   bool
}

// Option configures a Multiplexer instance.
type Option interface {
	applyMux(*muxOptions) error
}

// optionImpl implements Option.
type optionImpl struct {
	applyMuxFunc func(*muxOptions) error
}

func (o *optionImpl) applyMux(opts *muxOptions) error {
	return o.applyMuxFunc(opts)
}

// WithDriver sets the readiness driver. The default is the platform driver
// (epoll on Linux, kqueue on Darwin). The multiplexer takes ownership: the
// driver is closed by [Multiplexer.Close].
func WithDriver(d Driver) Option {
	return &optionImpl{func(opts *muxOptions) error {
		if d == nil {
			return fmt.Errorf("pollmux: nil driver")
		}
		opts.driver = d
		return nil
	}}
}

// WithBatchSize sets the capacity of the bulk-write buffer for interest
// changes. A cycle flushes to the driver whenever the buffer comes within
// one remove/add pair of this capacity, and once more for any remainder.
// The minimum is 2 (one remove/add pair); the default is 64.
func WithBatchSize(n int) Option {
	return &optionImpl{func(opts *muxOptions) error {
		if n < 2 {
			return fmt.Errorf("pollmux: batch size %d out of range (min 2)", n)
		}
		opts.batchSize = n
		return nil
	}}
}

// WithLogger sets the structured logger used for lifecycle and cycle
// diagnostics. A nil logger (the default) disables logging.
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return &optionImpl{func(opts *muxOptions) error {
		opts.logger = logger
		return nil
	}}
}

// WithMetrics enables runtime counter collection, accessible via
// [Multiplexer.Metrics]. Disabled by default; the overhead when enabled is
// one atomic add per recorded event.
func WithMetrics(enabled bool) Option {
	return &optionImpl{func(opts *muxOptions) error {
		opts.metrics = enabled
		return nil
	}}
}
