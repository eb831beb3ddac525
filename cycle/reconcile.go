package cycle

import (
	"fmt"

	"github.com/sarchlab/cohortsim/integerize"
	"github.com/sarchlab/cohortsim/ledger"
	"github.com/sarchlab/cohortsim/realloc"
)

func (c *Controller) integerize(values []float64, control int64) ([]int64, error) {
	return integerize.Integerize(values, &control, c.opts)
}

// integerizeFrame rounds every field of the frame into l, then enforces the
// caps and the tier sums. The passes run in a fixed order because each one
// relies on the constraints established before it.
func (c *Controller) integerizeFrame(
	f *frame,
	controls map[ledger.Field]int64,
	l *ledger.Ledger,
) error {
	for _, info := range ledger.Catalogue {
		col := f.Column(info.Field)

		target, ok := controls[info.Field]
		if !ok {
			target = roundedSum(col)
		}

		values, err := c.integerize(col, target)
		if err != nil {
			return fmt.Errorf("%s: %w", info.Name, err)
		}

		if err := l.SetColumn(info.Field, values); err != nil {
			return err
		}
	}

	return reconcile(l)
}

type capPass struct {
	subset ledger.Field
	total  func(l *ledger.Ledger) []int64
}

func column(f ledger.Field) func(l *ledger.Ledger) []int64 {
	return func(l *ledger.Ledger) []int64 {
		return l.Column(f)
	}
}

func reconcile(l *ledger.Ledger) error {
	passes := []capPass{
		{ledger.PopMil, column(ledger.Pop)},
		{ledger.GQ, column(ledger.Pop)},
		{ledger.HH, column(ledger.Pop)},
	}

	for _, f := range ledger.Characteristics() {
		passes = append(passes, capPass{f, column(ledger.HH)})
	}

	passes = append(passes, capPass{ledger.GQ, func(l *ledger.Ledger) []int64 {
		return sub(l.Column(ledger.Pop), l.Column(ledger.HH))
	}})

	for _, p := range passes {
		capped, err := realloc.CapInteger(l.Column(p.subset), p.total(l))
		if err != nil {
			return fmt.Errorf("cap %s: %w", p.subset, err)
		}

		if err := l.SetColumn(p.subset, capped); err != nil {
			return err
		}
	}

	for _, tiers := range [][]ledger.Field{ledger.SizeFields, ledger.WorkerFields} {
		if err := balance(l, tiers); err != nil {
			return err
		}
	}

	return nil
}

func balance(l *ledger.Ledger, tiers []ledger.Field) error {
	cols := make([][]int64, len(tiers))
	for i, f := range tiers {
		cols[i] = l.Column(f)
	}

	balanced, err := realloc.BalanceGroup(cols, l.Column(ledger.HH))
	if err != nil {
		return fmt.Errorf("balance %s: %w", tiers[0], err)
	}

	for i, f := range tiers {
		if err := l.SetColumn(f, balanced[i]); err != nil {
			return err
		}
	}

	return nil
}
