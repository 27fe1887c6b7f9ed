// Package simulation assembles the components of a memory simulation and
// runs instruction traces through them.
package simulation

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/sarchlab/memsym/cpu"
	"github.com/sarchlab/memsym/datarecording"
	"github.com/sarchlab/memsym/mem/vm/tlb"
	"github.com/sarchlab/memsym/monitoring"
	"github.com/sarchlab/memsym/sim"
	"github.com/sarchlab/memsym/trace"
	"github.com/sarchlab/memsym/tracing"
)

// A Simulation owns one core with its TLB and the services around it.
type Simulation struct {
	id     string
	logger *slog.Logger

	clock *sim.Clock
	tlb   *tlb.Comp
	core  *cpu.Core

	logTracer    *tracing.LogTracer
	stats        *tracing.StatsTracer
	dbTracer     *tracing.DBTracer
	dataRecorder datarecording.DataRecorder
	dbFile       string
	records      datarecording.DataReader
	monitor      *monitoring.Monitor

	components    []sim.Component
	compNameIndex map[string]int
}

// ID returns the unique name of the run.
func (s *Simulation) ID() string {
	return s.id
}

// Core returns the core that interprets the trace.
func (s *Simulation) Core() *cpu.Core {
	return s.core
}

// TLB returns the translation cache.
func (s *Simulation) TLB() *tlb.Comp {
	return s.tlb
}

// Stats returns the counters collected so far.
func (s *Simulation) Stats() tracing.Stats {
	return s.stats.Stats()
}

// GetDataRecorder returns the data recorder, or nil if recording is off.
func (s *Simulation) GetDataRecorder() datarecording.DataRecorder {
	return s.dataRecorder
}

// GetMonitor returns the monitor, or nil if monitoring is off.
func (s *Simulation) GetMonitor() *monitoring.Monitor {
	return s.monitor
}

// RegisterComponent registers a component with the simulation.
func (s *Simulation) RegisterComponent(c sim.Component) {
	compName := c.Name()
	if _, ok := s.compNameIndex[compName]; ok {
		panic("component " + compName + " already registered")
	}

	s.components = append(s.components, c)
	s.compNameIndex[compName] = len(s.components) - 1
}

// GetComponentByName returns the component with the given name.
func (s *Simulation) GetComponentByName(name string) sim.Component {
	i, ok := s.compNameIndex[name]
	if !ok {
		return nil
	}

	return s.components[i]
}

// Components returns all registered components.
func (s *Simulation) Components() []sim.Component {
	return s.components
}

// Run feeds the trace to the core until the trace ends or the core halts.
// The output trace is flushed either way. A halting instruction is returned
// as a *cpu.HaltError.
func (s *Simulation) Run(input io.Reader) error {
	start := time.Now()

	s.logger.Info("simulation started",
		"id", s.id,
		"policy", s.tlb.Policy().String(),
		"tlb_entries", s.tlb.NumEntries())

	runErr := s.core.Run(trace.NewReader(input))

	if err := s.logTracer.Flush(); err != nil {
		return err
	}

	stats := s.stats.Stats()
	s.logger.Info("simulation finished",
		"instructions", s.core.Now(),
		"tlb_hits", stats.TLBHits,
		"tlb_misses", stats.TLBMisses,
		"page_faults", stats.PageFaults,
		"evictions", stats.Evictions,
		"elapsed", time.Since(start))

	var haltErr *cpu.HaltError
	if errors.As(runErr, &haltErr) {
		s.logger.Warn("simulation halted",
			"line", haltErr.Inst.Line,
			"clock", haltErr.Time,
			"reason", haltErr.Err)
	}

	return runErr
}

// Serve serves the state of the simulation until ctx is done. It returns
// immediately if monitoring is off.
func (s *Simulation) Serve(ctx context.Context) error {
	if s.monitor == nil {
		return nil
	}

	s.monitor.StartServer()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := s.monitor.StopServer(shutdownCtx)

	if s.records != nil {
		err = errors.Join(err, s.records.Close())
		s.records = nil
	}

	return err
}

// Terminate flushes and closes the recording database. If monitoring is on,
// the finished database is reopened read-only and served by the monitor.
func (s *Simulation) Terminate() error {
	if s.dataRecorder == nil {
		return nil
	}

	s.dbTracer.Terminate()

	if err := s.dataRecorder.Close(); err != nil {
		return err
	}

	if s.monitor == nil {
		return nil
	}

	reader, err := datarecording.NewReader(s.dbFile)
	if err != nil {
		return err
	}

	tracing.MapTables(reader)
	s.monitor.RegisterDataReader(reader)
	s.records = reader

	return nil
}
