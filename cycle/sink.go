package cycle

import (
	"context"

	"github.com/sarchlab/cohortsim/ledger"
	"github.com/sarchlab/cohortsim/rates"
)

// Sink receives the results of each completed year. Records and components
// are passed in key order.
type Sink interface {
	WriteRates(ctx context.Context, set *rates.Set) error
	WriteComponents(ctx context.Context, year int, comps []ledger.Components) error
	WriteLedger(ctx context.Context, l *ledger.Ledger) error
}
