package simulation

import (
	"errors"
	"math/rand/v2"

	"github.com/rs/xid"
	"go.uber.org/zap"

	"github.com/sarchlab/cohortsim/cycle"
	"github.com/sarchlab/cohortsim/datarecording"
	"github.com/sarchlab/cohortsim/integerize"
	"github.com/sarchlab/cohortsim/monitoring"
	"github.com/sarchlab/cohortsim/output"
	"github.com/sarchlab/cohortsim/tracing"
)

// Builder can be used to build a projection run.
type Builder struct {
	monitorOn      bool
	monitorPort    int
	outputFileName string
	overwrite      bool

	baseYear    int
	launchYear  int
	horizonYear int

	seed         uint64
	policy       integerize.Policy
	maleFraction float64

	inputs cycle.Inputs
	logger *zap.Logger
}

// MakeBuilder creates a new builder.
func MakeBuilder() Builder {
	return Builder{
		monitorOn:    true,
		policy:       integerize.PolicyWeightedRandom,
		maleFraction: cycle.DefaultMaleFraction,
		logger:       zap.NewNop(),
	}
}

// WithoutMonitoring sets the run to not use monitoring.
func (b Builder) WithoutMonitoring() Builder {
	b.monitorOn = false
	return b
}

// WithMonitorPort sets the port number for the monitoring server.
func (b Builder) WithMonitorPort(port int) Builder {
	b.monitorPort = port
	return b
}

// WithOutputFileName sets the custom output file name for the data recorder.
func (b Builder) WithOutputFileName(filename string) Builder {
	b.outputFileName = filename
	return b
}

// WithOverwrite allows the run to replace an existing output file.
func (b Builder) WithOverwrite() Builder {
	b.overwrite = true
	return b
}

// WithInterval sets the base, launch, and horizon years.
func (b Builder) WithInterval(base, launch, horizon int) Builder {
	b.baseYear = base
	b.launchYear = launch
	b.horizonYear = horizon

	return b
}

// WithSeed sets the seed of the random source shared by the run.
func (b Builder) WithSeed(seed uint64) Builder {
	b.seed = seed
	return b
}

// WithPolicy sets how rounding error is removed.
func (b Builder) WithPolicy(policy integerize.Policy) Builder {
	b.policy = policy
	return b
}

// WithMaleFraction sets the share of newborns that are male.
func (b Builder) WithMaleFraction(fraction float64) Builder {
	b.maleFraction = fraction
	return b
}

// WithInputs sets the sources of the base ledger, the rates, the military,
// and the control totals.
func (b Builder) WithInputs(inputs cycle.Inputs) Builder {
	b.inputs = inputs
	return b
}

// WithLogger sets the logger shared by every part of the run.
func (b Builder) WithLogger(logger *zap.Logger) Builder {
	b.logger = logger
	return b
}

func (b Builder) parametersMustBeValid() error {
	if !b.monitorOn && b.monitorPort != 0 {
		return errors.New(
			"monitor port cannot be set when monitoring is disabled")
	}

	if b.logger == nil {
		return errors.New("logger cannot be nil")
	}

	return nil
}

// Build builds the run. The output database is created right away.
func (b Builder) Build() (*Simulation, error) {
	if err := b.parametersMustBeValid(); err != nil {
		return nil, err
	}

	s := &Simulation{
		id:     xid.New().String(),
		seed:   b.seed,
		logger: b.logger,
	}

	outputPath := b.outputFileName
	if outputPath == "" {
		outputPath = "cohortsim_" + s.id
	}

	s.outputFile = datarecording.FileName(outputPath)

	opts := []datarecording.Option{datarecording.WithoutAutoFlush()}
	if b.overwrite {
		opts = append(opts, datarecording.WithOverwrite())
	}

	recorder, err := datarecording.New(outputPath, opts...)
	if err != nil {
		return nil, err
	}

	s.dataRecorder = recorder

	if err := b.buildRun(s); err != nil {
		_ = recorder.Close()
		return nil, err
	}

	if b.monitorOn {
		if err := b.startMonitor(s); err != nil {
			_ = recorder.Close()
			return nil, err
		}
	}

	return s, nil
}

func (b Builder) buildRun(s *Simulation) error {
	var err error

	s.execRecorder, err = datarecording.NewExecRecorder(s.dataRecorder)
	if err != nil {
		return err
	}

	s.sink, err = output.NewRecorderSink(s.dataRecorder, b.logger)
	if err != nil {
		return err
	}

	s.controller, err = cycle.NewController(cycle.Config{
		BaseYear:     b.baseYear,
		LaunchYear:   b.launchYear,
		HorizonYear:  b.horizonYear,
		MaleFraction: b.maleFraction,
		Policy:       b.policy,
		Rand:         rand.New(rand.NewPCG(b.seed, b.seed)),
		Logger:       b.logger,
	}, b.inputs, s.sink)
	if err != nil {
		return err
	}

	s.tracer, err = tracing.NewDBTracer(s.dataRecorder)
	if err != nil {
		return err
	}

	s.controller.AcceptHook(s.tracer)
	s.controller.AcceptHook(cycle.NewLogHook(b.logger))

	s.execRecorder.Start()
	s.execRecorder.Set("Run ID", s.id)
	s.execRecorder.Set("Seed", uint64String(b.seed))
	s.execRecorder.Set("Policy", b.policy.String())
	s.execRecorder.Set("Base Year", intString(b.baseYear))
	s.execRecorder.Set("Launch Year", intString(b.launchYear))
	s.execRecorder.Set("Horizon Year", intString(b.horizonYear))

	return nil
}

func (b Builder) startMonitor(s *Simulation) error {
	s.monitor = monitoring.NewMonitor().
		WithLogger(b.logger).
		WithMetrics(monitoring.NewMetrics())

	if b.monitorPort > 0 {
		s.monitor.WithPortNumber(b.monitorPort)
	}

	s.monitor.RegisterController(s.controller)

	return s.monitor.StartServer()
}
