// Package simulation assembles a projection run out of its inputs, its
// output database, and its monitor.
package simulation

import (
	"context"
	"errors"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/sarchlab/cohortsim/cycle"
	"github.com/sarchlab/cohortsim/datarecording"
	"github.com/sarchlab/cohortsim/monitoring"
	"github.com/sarchlab/cohortsim/output"
	"github.com/sarchlab/cohortsim/tracing"
)

// A Simulation is a single projection run.
type Simulation struct {
	id         string
	seed       uint64
	outputFile string
	logger     *zap.Logger

	dataRecorder datarecording.DataRecorder
	execRecorder *datarecording.ExecRecorder
	sink         *output.RecorderSink
	controller   *cycle.Controller
	tracer       *tracing.DBTracer
	monitor      *monitoring.Monitor
}

// ID returns the unique id of the run.
func (s *Simulation) ID() string {
	return s.id
}

// OutputFile returns the database file the run writes into.
func (s *Simulation) OutputFile() string {
	return s.outputFile
}

// GetDataRecorder returns the data recorder used in the run.
func (s *Simulation) GetDataRecorder() datarecording.DataRecorder {
	return s.dataRecorder
}

// GetController returns the controller of the annual cycle.
func (s *Simulation) GetController() *cycle.Controller {
	return s.controller
}

// GetTracer returns the tracer that times the years and the stages.
func (s *Simulation) GetTracer() *tracing.DBTracer {
	return s.tracer
}

// GetMonitor returns the monitor used in the run. It is nil when monitoring
// is disabled.
func (s *Simulation) GetMonitor() *monitoring.Monitor {
	return s.monitor
}

// Run processes every year of the interval. The run metadata is written
// whether or not the run succeeds.
func (s *Simulation) Run(ctx context.Context) error {
	start := time.Now()
	s.logger.Info("run started",
		zap.String("run_id", s.id), zap.String("output", s.outputFile))

	runErr := errors.Join(s.controller.Run(ctx), s.tracer.Err())

	status := "completed"
	if runErr != nil {
		status = "failed: " + runErr.Error()
	}

	s.execRecorder.Set("Status", status)

	if err := s.execRecorder.End(); err != nil {
		return errors.Join(runErr, err)
	}

	s.logger.Info("run finished",
		zap.String("run_id", s.id),
		zap.Duration("elapsed", time.Since(start)),
		zap.Duration("integerize", s.tracer.TotalTime(string(cycle.StageIntegerize))),
		zap.Duration("flows", s.tracer.TotalTime(string(cycle.StageFlows))),
		zap.Error(runErr))

	return runErr
}

// Terminate stops the monitor and closes the output database.
func (s *Simulation) Terminate() error {
	var errs []error

	if s.monitor != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		errs = append(errs, s.monitor.StopServer(ctx))
	}

	errs = append(errs, s.dataRecorder.Close())

	return errors.Join(errs...)
}

func intString(v int) string {
	return strconv.Itoa(v)
}

func uint64String(v uint64) string {
	return strconv.FormatUint(v, 10)
}
