package cycle

import (
	"math"

	"go.uber.org/zap"

	"github.com/sarchlab/cohortsim/ledger"
)

// applyControls scales controlled fields to their control totals in
// catalogue order and returns the integer controls that were provided.
// Scaling total population carries the group quarters along but never the
// military. Scaling total households carries every household field along.
func (c *Controller) applyControls(f *frame) (map[ledger.Field]int64, error) {
	yc, err := c.inputs.Controls.Year(c.cfg.LaunchYear, c.year)
	if err != nil {
		return nil, err
	}

	provided := make(map[ledger.Field]int64)

	for _, info := range ledger.Catalogue {
		if info.Control == "" {
			continue
		}

		v, ok := yc.Lookup(info)
		if !ok {
			c.logger.Warn("control total absent, field left unscaled",
				zap.Int("year", c.year),
				zap.String("group", string(info.Group)),
				zap.String("field", info.Name))

			continue
		}

		provided[info.Field] = int64(math.Round(v))

		current := f.sum(info.Field)
		if current == 0 {
			continue
		}

		factor := v / current

		switch info.Field {
		case ledger.Pop:
			f.scale(factor, scaledWith(ledger.GroupPopulation)...)
		case ledger.HH:
			f.scale(factor, scaledWith(ledger.GroupHouseholds)...)
		default:
			f.scale(factor, info.Field)
		}
	}

	return provided, nil
}

// scaledWith lists the fields that follow the scaling of a group total.
func scaledWith(g ledger.Group) []ledger.Field {
	var fields []ledger.Field
	for _, info := range ledger.Catalogue {
		if info.Group == g && info.Field != ledger.PopMil {
			fields = append(fields, info.Field)
		}
	}

	return fields
}
