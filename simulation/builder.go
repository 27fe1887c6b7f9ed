package simulation

import (
	"context"
	"io"
	"log/slog"

	"github.com/sarchlab/memsym/cpu"
	"github.com/sarchlab/memsym/datarecording"
	"github.com/sarchlab/memsym/mem/vm/tlb"
	"github.com/sarchlab/memsym/monitoring"
	"github.com/sarchlab/memsym/sim"
	"github.com/sarchlab/memsym/tracing"
)

// Builder can be used to build a simulation.
type Builder struct {
	output      io.Writer
	logger      *slog.Logger
	policy      tlb.Policy
	numSets     int
	numWays     int
	recordOn    bool
	dbName      string
	monitorOn   bool
	monitorPort int
	openBrowser bool
}

// MakeBuilder creates a new builder.
func MakeBuilder() Builder {
	return Builder{
		output:  io.Discard,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		policy:  tlb.FIFO,
		numSets: 1,
		numWays: 8,
	}
}

// WithOutput sets where the output trace is written.
func (b Builder) WithOutput(w io.Writer) Builder {
	b.output = w
	return b
}

// WithLogger sets the logger for operator diagnostics.
func (b Builder) WithLogger(logger *slog.Logger) Builder {
	b.logger = logger
	return b
}

// WithPolicy sets the TLB replacement policy.
func (b Builder) WithPolicy(p tlb.Policy) Builder {
	b.policy = p
	return b
}

// WithTLBGeometry sets the number of sets and ways of the TLB.
func (b Builder) WithTLBGeometry(numSets, numWays int) Builder {
	b.numSets = numSets
	b.numWays = numWays

	return b
}

// WithDataRecording records the run into name + ".sqlite3". An empty name
// lets the simulation pick one from its ID.
func (b Builder) WithDataRecording(name string) Builder {
	b.recordOn = true
	b.dbName = name

	return b
}

// WithMonitoring serves the final state over HTTP. Port 0 picks a free port.
func (b Builder) WithMonitoring(port int) Builder {
	b.monitorOn = true
	b.monitorPort = port

	return b
}

// WithBrowser opens the monitor page once the server starts.
func (b Builder) WithBrowser() Builder {
	b.openBrowser = true
	return b
}

func (b Builder) parametersMustBeValid() {
	if b.output == nil {
		panic("simulation output must be set")
	}

	if b.openBrowser && !b.monitorOn {
		panic("browser cannot be opened when monitoring is disabled")
	}
}

// Build builds the simulation.
func (b Builder) Build() (*Simulation, error) {
	b.parametersMustBeValid()

	s := &Simulation{
		id:            sim.NewRunID(),
		logger:        b.logger,
		compNameIndex: make(map[string]int),
	}

	s.clock = sim.NewClock()
	s.tlb = tlb.MakeBuilder().
		WithTimeTeller(s.clock).
		WithNumSets(b.numSets).
		WithNumWays(b.numWays).
		WithPolicy(b.policy).
		Build("TLB")
	s.core = cpu.MakeBuilder().
		WithClock(s.clock).
		WithTLB(s.tlb).
		Build("CPU")

	s.RegisterComponent(s.core)
	s.RegisterComponent(s.tlb)

	if b.logger.Enabled(context.Background(), slog.LevelDebug) {
		s.core.AcceptHook(sim.NewEventLogger(b.logger, s.clock))
	}

	s.logTracer = tracing.NewLogTracer(b.output)
	tracing.CollectTrace(s.core, s.logTracer)

	s.stats = tracing.NewStatsTracer()
	tracing.CollectTrace(s.core, s.stats)

	if b.recordOn {
		if err := s.buildDataRecording(b.dbName); err != nil {
			return nil, err
		}
	}

	if b.monitorOn {
		s.monitor = monitoring.NewMonitor().
			WithTitle(s.id).
			WithPortNumber(b.monitorPort).
			WithBrowser(b.openBrowser)
		s.monitor.RegisterCore(s.core)
		s.monitor.RegisterComponent(s.tlb)
		s.monitor.RegisterStats(s.stats)
	}

	return s, nil
}

func (s *Simulation) buildDataRecording(name string) error {
	if name == "" {
		name = "memsym_" + s.id
	}

	recorder, err := datarecording.New(name)
	if err != nil {
		return err
	}

	s.dataRecorder = recorder
	s.dbFile = datarecording.Filename(name)
	s.dbTracer = tracing.NewDBTracer(s.clock, recorder)
	tracing.CollectTrace(s.core, s.dbTracer)

	s.logger.Info("recording trace", "db", s.dbFile)

	return nil
}
