package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rdegges/batfi/internal/estimate"
	"github.com/rdegges/batfi/internal/metrics"
	"github.com/rdegges/batfi/internal/power"
	"github.com/rdegges/batfi/internal/report"
	"github.com/rdegges/batfi/internal/server"
)

// readTimeout bounds a single monitor read.
const readTimeout = 5 * time.Second

// pipeline reads the monitor, feeds the estimator and fans the result out to
// the optional metrics and HTTP server. It is driven from one goroutine.
type pipeline struct {
	monitor   power.Monitor
	estimator *estimate.Estimator
	info      power.DeviceInfo
	log       logrus.FieldLogger

	metrics *metrics.Metrics
	server  *server.Server
}

func newPipeline(monitor power.Monitor, est *estimate.Estimator, log logrus.FieldLogger) *pipeline {
	p := &pipeline{monitor: monitor, estimator: est, log: log}
	if ip, ok := monitor.(power.InfoProvider); ok {
		p.info = ip.Info()
	}
	return p
}

// tick performs one read and estimate.
func (p *pipeline) tick(ctx context.Context) (estimate.Estimate, error) {
	readCtx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	b, err := p.monitor.Read(readCtx)
	if err != nil {
		p.reject("read_error")
		return estimate.Estimate{}, fmt.Errorf("read battery: %w", err)
	}

	est, err := p.estimator.Tick(b)
	if err != nil {
		p.reject("out_of_order")
		return estimate.Estimate{}, err
	}
	p.publish(est)
	return est, nil
}

func (p *pipeline) snapshot(est estimate.Estimate) report.Snapshot {
	return report.New(est, p.info, p.monitor.Name())
}

// publish hands an accepted estimate to metrics and the HTTP server.
func (p *pipeline) publish(est estimate.Estimate) {
	if p.metrics != nil {
		p.metrics.Observe(est)
	}
	if p.server != nil {
		p.server.Publish(p.snapshot(est))
	}
}

func (p *pipeline) reject(reason string) {
	if p.metrics != nil {
		p.metrics.Reject(reason)
	}
}

type headlessOptions struct {
	Interval time.Duration
	Once     bool
	JSON     bool
	Out      io.Writer
}

// runHeadless prints one snapshot per interval until ctx is done. With Once
// it prints a single snapshot and returns.
func runHeadless(ctx context.Context, p *pipeline, opts headlessOptions) error {
	write := func(est estimate.Estimate) error {
		snap := p.snapshot(est)
		if opts.JSON {
			return report.Encode(opts.Out, snap, opts.Once)
		}
		return report.WriteText(opts.Out, snap)
	}

	step := func() error {
		est, err := p.tick(ctx)
		switch {
		case errors.Is(err, estimate.ErrOutOfOrder):
			p.log.Debug("Skipping out of order batch")
			return nil
		case errors.Is(err, power.ErrNoBattery), opts.Once && err != nil:
			return err
		case err != nil:
			p.log.Warn(err)
			return nil
		}
		return write(est)
	}

	if err := step(); err != nil || opts.Once {
		return err
	}

	ticker := time.NewTicker(opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.log.Debug("Stopping: ", context.Cause(ctx))
			return nil
		case <-ticker.C:
			if err := step(); err != nil {
				return err
			}
		}
	}
}
