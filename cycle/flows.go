package cycle

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/sarchlab/cohortsim/ledger"
	"github.com/sarchlab/cohortsim/rates"
	"github.com/sarchlab/cohortsim/realloc"
)

// flows holds the integer components of change of a year, in key order.
type flows struct {
	deaths   []int64
	births   []int64
	ins      []int64
	outs     []int64
	survived []int64
}

// nextLedger applies the flows of the year to l and ages the result by one
// year. Only population and military are carried into the new ledger. The
// other fields are rebuilt when the next year is processed.
func (c *Controller) nextLedger(
	ctx context.Context,
	l *ledger.Ledger,
	set *rates.Set,
) (*ledger.Ledger, []ledger.Components, error) {
	fl, err := c.computeFlows(ctx, l, set)
	if err != nil {
		return nil, nil, err
	}

	keys := l.Keys()
	comps := make([]ledger.Components, len(keys))
	for i, k := range keys {
		comps[i] = ledger.Components{
			Key:    k,
			Deaths: fl.deaths[i],
			Births: fl.births[i],
			Ins:    fl.ins[i],
			Outs:   fl.outs[i],
		}
	}

	newborns, err := c.newborns(l, fl.births)
	if err != nil {
		return nil, nil, err
	}

	next, err := c.age(l, fl, newborns)
	if err != nil {
		return nil, nil, err
	}

	return next, comps, nil
}

// computeFlows estimates deaths among civilians, then births and migration
// among surviving civilians. Births and migration read the same survivors and
// are estimated concurrently. All integerization happens afterwards in a
// fixed order so that the shared random sequence does not depend on
// scheduling.
func (c *Controller) computeFlows(
	ctx context.Context,
	l *ledger.Ledger,
	set *rates.Set,
) (*flows, error) {
	keys := l.Keys()
	pop := l.Column(ledger.Pop)
	mil := l.Column(ledger.PopMil)
	civ := sub(pop, mil)

	deathsF := make([]float64, len(keys))
	for i, k := range keys {
		deathsF[i] = float64(civ[i]) * set.Get(k).Death
	}

	deaths, err := c.integerize(deathsF, roundedSum(deathsF))
	if err != nil {
		return nil, err
	}

	deaths, err = realloc.CapInteger(deaths, civ)
	if err != nil {
		return nil, err
	}

	survived := sub(civ, deaths)

	var birthsF, insF, outsF []float64

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}

		birthsF = estimateBirths(keys, mil, survived, set)

		return nil
	})

	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}

		insF, outsF = estimateMigration(keys, survived, set)

		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	fl := &flows{deaths: deaths, survived: survived}

	if fl.births, err = c.integerize(birthsF, roundedSum(birthsF)); err != nil {
		return nil, err
	}

	if fl.ins, err = c.integerize(insF, roundedSum(insF)); err != nil {
		return nil, err
	}

	if fl.outs, err = c.integerize(outsF, roundedSum(outsF)); err != nil {
		return nil, err
	}

	if fl.births, err = realloc.CapInteger(fl.births, sub(pop, deaths)); err != nil {
		return nil, err
	}

	if fl.outs, err = realloc.CapInteger(fl.outs, survived); err != nil {
		return nil, err
	}

	return fl, nil
}

// estimateBirths applies the birth rate of the same age to the military and
// the birth rate of the next age to surviving civilians.
func estimateBirths(
	keys []ledger.Key,
	mil, survived []int64,
	set *rates.Set,
) []float64 {
	births := make([]float64, len(keys))
	for i, k := range keys {
		births[i] = float64(mil[i])*set.Get(k).Birth +
			float64(survived[i])*set.Get(k.Older()).Birth
	}

	return births
}

// estimateMigration applies the migration rates of the next age to
// surviving civilians.
func estimateMigration(
	keys []ledger.Key,
	survived []int64,
	set *rates.Set,
) (ins, outs []float64) {
	ins = make([]float64, len(keys))
	outs = make([]float64, len(keys))

	for i, k := range keys {
		r := set.Get(k.Older())
		ins[i] = float64(survived[i]) * r.In
		outs[i] = float64(survived[i]) * r.Out
	}

	return ins, outs
}

// newborns splits the births of each race between the sexes. The result is
// keyed by the age-zero cohorts.
func (c *Controller) newborns(
	l *ledger.Ledger,
	births []int64,
) (map[ledger.Key]int64, error) {
	byRace := make(map[string]int64)
	for i, k := range l.Keys() {
		byRace[k.Race] += births[i]
	}

	out := make(map[ledger.Key]int64)
	for _, race := range l.Races() {
		total := byRace[race]
		male := float64(total) * c.cfg.MaleFraction

		split, err := c.integerize([]float64{float64(total) - male, male}, total)
		if err != nil {
			return nil, err
		}

		out[ledger.Key{Race: race, Sex: ledger.Female}] = split[0]
		out[ledger.Key{Race: race, Sex: ledger.Male}] = split[1]
	}

	return out, nil
}

// age moves every cohort and its military one year older and adds the
// newborns at age zero with no military. The two oldest ages merge at the
// cap.
func (c *Controller) age(
	l *ledger.Ledger,
	fl *flows,
	newborns map[ledger.Key]int64,
) (*ledger.Ledger, error) {
	keys := l.Keys()
	seen := make(map[ledger.Key]bool, len(keys)+len(newborns))
	var nextKeys []ledger.Key

	add := func(k ledger.Key) {
		if !seen[k] {
			seen[k] = true
			nextKeys = append(nextKeys, k)
		}
	}

	for _, k := range keys {
		add(k)
		add(k.Older())
	}

	for k := range newborns {
		add(k)
	}

	next, err := ledger.Empty(l.Year+1, nextKeys)
	if err != nil {
		return nil, err
	}

	pop := l.Column(ledger.Pop)
	mil := l.Column(ledger.PopMil)
	nextPop := make([]int64, next.Len())
	nextMil := make([]int64, next.Len())

	for i, k := range keys {
		j := next.IndexOf(k.Older())
		nextPop[j] += pop[i] - fl.deaths[i] + fl.ins[i] - fl.outs[i]
		nextMil[j] += mil[i]
	}

	for k, n := range newborns {
		nextPop[next.IndexOf(k)] += n
	}

	if err := next.SetColumn(ledger.Pop, nextPop); err != nil {
		return nil, err
	}

	nextMil, err = realloc.CapInteger(nextMil, nextPop)
	if err != nil {
		return nil, err
	}

	if err := next.SetColumn(ledger.PopMil, nextMil); err != nil {
		return nil, err
	}

	return next, nil
}
