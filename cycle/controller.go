// Package cycle drives a cohort-component projection one year at a time.
package cycle

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"go.uber.org/zap"

	"github.com/sarchlab/cohortsim/integerize"
	"github.com/sarchlab/cohortsim/ledger"
	"github.com/sarchlab/cohortsim/rates"
)

var (
	// ErrNotImplemented is returned when a year after the launch year is
	// processed. Rates are never adjusted past the launch year.
	ErrNotImplemented = errors.New("post-launch rate adjustment not implemented")

	// ErrTerminal is returned when stepping a controller that has passed the
	// horizon year.
	ErrTerminal = errors.New("projection already finished")
)

// DefaultMaleFraction is the share of newborns that are male.
const DefaultMaleFraction = 0.512

// Config sets the interval and the integerization behavior of a run.
type Config struct {
	BaseYear    int
	LaunchYear  int
	HorizonYear int

	// MaleFraction defaults to DefaultMaleFraction when zero.
	MaleFraction float64

	Policy integerize.Policy

	// Rand is shared by every integerization of the run.
	Rand *rand.Rand

	Logger *zap.Logger
}

// Inputs are the collaborators that provide the data of each year.
type Inputs struct {
	Base     rates.BaseSource
	Engine   rates.Engine
	Military rates.MilitarySource
	Controls rates.Controls
}

// Controller runs the annual cycle over [BaseYear, HorizonYear].
type Controller struct {
	HookableBase

	cfg    Config
	inputs Inputs
	sink   Sink
	logger *zap.Logger
	opts   integerize.Options

	state   State
	year    int
	current *ledger.Ledger
}

// NewController creates a controller positioned at the base year.
func NewController(cfg Config, inputs Inputs, sink Sink) (*Controller, error) {
	if cfg.MaleFraction == 0 {
		cfg.MaleFraction = DefaultMaleFraction
	}

	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	if err := cfg.mustBeValid(); err != nil {
		return nil, err
	}

	if inputs.Base == nil || inputs.Engine == nil || inputs.Military == nil {
		return nil, errors.New("base, rate, and military sources are required")
	}

	if sink == nil {
		return nil, errors.New("sink is required")
	}

	c := &Controller{
		cfg:    cfg,
		inputs: inputs,
		sink:   sink,
		logger: cfg.Logger,
		opts:   integerize.Options{Policy: cfg.Policy, Rand: cfg.Rand},
		state:  StateBaseYear,
		year:   cfg.BaseYear,
	}

	return c, nil
}

func (cfg Config) mustBeValid() error {
	if cfg.BaseYear > cfg.LaunchYear || cfg.LaunchYear > cfg.HorizonYear {
		return fmt.Errorf("years must satisfy base %d <= launch %d <= horizon %d",
			cfg.BaseYear, cfg.LaunchYear, cfg.HorizonYear)
	}

	if cfg.MaleFraction <= 0 || cfg.MaleFraction >= 1 {
		return fmt.Errorf("male fraction %v must be in (0, 1)", cfg.MaleFraction)
	}

	if cfg.Policy == integerize.PolicyWeightedRandom && cfg.Rand == nil {
		return integerize.ErrMissingRand
	}

	return nil
}

// State returns the current state.
func (c *Controller) State() State {
	return c.state
}

// Year returns the year that the next Step processes.
func (c *Controller) Year() int {
	return c.year
}

// Current returns the ledger that the next Step starts from. It is nil
// before the base year has been loaded.
func (c *Controller) Current() *ledger.Ledger {
	return c.current
}

// NumYears returns the number of years in the interval.
func (c *Controller) NumYears() int {
	return c.cfg.HorizonYear - c.cfg.BaseYear + 1
}

// Run processes every remaining year until the horizon or the first error.
func (c *Controller) Run(ctx context.Context) error {
	for c.state != StateTerminal {
		if err := c.Step(ctx); err != nil {
			return err
		}
	}

	return nil
}

// Step processes one year. Nothing of the year is emitted unless the whole
// year succeeds.
func (c *Controller) Step(ctx context.Context) error {
	switch c.state {
	case StateTerminal:
		return ErrTerminal
	case StatePostLaunchIncrement:
		return fmt.Errorf("year %d after launch year %d: %w",
			c.year, c.cfg.LaunchYear, ErrNotImplemented)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	if c.current == nil {
		base, err := c.inputs.Base.Base(ctx, c.cfg.BaseYear)
		if err != nil {
			return fmt.Errorf("base year %d: %w", c.cfg.BaseYear, err)
		}

		c.current = base
	}

	c.InvokeHook(HookCtx{
		Domain: c,
		Pos:    HookPosBeforeYear,
		Year:   c.year,
		Item:   c.current,
	})

	c.logger.Info("year started",
		zap.Int("year", c.year), zap.Stringer("state", c.state))

	next, err := c.processYear(ctx)
	if err != nil {
		return fmt.Errorf("year %d: %w", c.year, err)
	}

	c.logger.Info("year finished",
		zap.Int("year", c.year),
		zap.Int64("pop", c.current.Total(ledger.Pop)),
		zap.Int64("hh", c.current.Total(ledger.HH)))

	c.InvokeHook(HookCtx{
		Domain: c,
		Pos:    HookPosAfterYear,
		Year:   c.year,
		Item:   c.current,
	})

	c.advance(next)

	return nil
}

func (c *Controller) advance(next *ledger.Ledger) {
	c.year++
	c.current = next

	switch {
	case c.year > c.cfg.HorizonYear:
		c.state = StateTerminal
	case c.year > c.cfg.LaunchYear:
		c.state = StatePostLaunchIncrement
	default:
		c.state = StatePreLaunchIncrement
	}
}

func (c *Controller) stageDone(stage Stage, item any) {
	c.InvokeHook(HookCtx{
		Domain: c,
		Pos:    HookPosAfterStage,
		Year:   c.year,
		Item:   item,
		Detail: stage,
	})
}

// processYear finalizes the current ledger and derives the ledger of the
// next year. The current ledger is replaced by its finalized copy only after
// everything has been emitted.
func (c *Controller) processYear(ctx context.Context) (*ledger.Ledger, error) {
	work := c.current.Clone()
	work.Year = c.year

	if err := c.applyMilitary(ctx, work); err != nil {
		return nil, fmt.Errorf("%s: %w", StageMilitary, err)
	}
	c.stageDone(StageMilitary, work)

	set, err := c.inputs.Engine.Rates(ctx, c.year, work)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", StageRates, err)
	}
	c.stageDone(StageRates, set)

	f := newFrame(work)
	f.estimateHouseholds(set)
	c.stageDone(StageHouseholds, f)

	controls, err := c.applyControls(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", StageControls, err)
	}
	c.stageDone(StageControls, f)

	if err := c.integerizeFrame(f, controls, work); err != nil {
		return nil, fmt.Errorf("%s: %w", StageIntegerize, err)
	}
	c.stageDone(StageIntegerize, work)

	if err := work.Validate(); err != nil {
		return nil, err
	}
	c.stageDone(StageValidate, work)

	next, comps, err := c.nextLedger(ctx, work, set)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", StageFlows, err)
	}
	c.stageDone(StageFlows, comps)

	if err := c.emit(ctx, work, set, comps); err != nil {
		return nil, fmt.Errorf("%s: %w", StageEmit, err)
	}
	c.stageDone(StageEmit, work)

	c.current = work

	return next, nil
}

func (c *Controller) emit(
	ctx context.Context,
	l *ledger.Ledger,
	set *rates.Set,
	comps []ledger.Components,
) error {
	if err := c.sink.WriteRates(ctx, set); err != nil {
		return err
	}

	if err := c.sink.WriteComponents(ctx, l.Year, comps); err != nil {
		return err
	}

	return c.sink.WriteLedger(ctx, l)
}
