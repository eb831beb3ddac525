package cycle

import (
	"context"

	"go.uber.org/zap"

	"github.com/sarchlab/cohortsim/ledger"
	"github.com/sarchlab/cohortsim/realloc"
)

// applyMilitary replaces the military column with the estimate of the year,
// scaled to its control and kept within each cohort's population.
func (c *Controller) applyMilitary(ctx context.Context, l *ledger.Ledger) error {
	est, err := c.inputs.Military.Military(ctx, c.year, l)
	if err != nil {
		return err
	}

	keys := l.Keys()
	values := make([]float64, len(keys))
	for i, k := range keys {
		values[i] = est.Values[k]
	}

	for k := range est.Values {
		if l.IndexOf(k) < 0 {
			c.logger.Warn("military estimate for unknown cohort dropped",
				zap.Int("year", c.year), zap.Stringer("cohort", k))
		}
	}

	if est.Control != nil {
		total := sum(values)
		if total > 0 {
			for i := range values {
				values[i] *= *est.Control / total
			}
		}
	}

	pop := l.Column(ledger.Pop)

	capped, err := realloc.CapProportional(values, toFloat(pop))
	if err != nil {
		return err
	}

	mil, err := c.integerize(capped, roundedSum(capped))
	if err != nil {
		return err
	}

	mil, err = realloc.CapInteger(mil, pop)
	if err != nil {
		return err
	}

	return l.SetColumn(ledger.PopMil, mil)
}
