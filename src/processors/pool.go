package processors

import (
	"github.com/shopspring/decimal"
)

// section104Pool holds the average-cost pooled position of one security:
// everything not consumed by same-day or 30-day matching. Average cost is
// total pooled cost over total pooled quantity; both stay unrounded.
type section104Pool struct {
	quantity  decimal.Decimal
	totalCost decimal.Decimal
}

func newSection104Pool() *section104Pool {
	return &section104Pool{quantity: decimal.Zero, totalCost: decimal.Zero}
}

// add merges an acquisition remainder into the pool (weighted-mean update).
func (p *section104Pool) add(quantity, cost decimal.Decimal) {
	p.quantity = p.quantity.Add(quantity)
	p.totalCost = p.totalCost.Add(cost)
}

// remove takes quantity out of the pool at the current average cost and
// returns the allowable cost of the removed slice. Callers must check
// available() first: removing more than the pool holds is an oversell.
func (p *section104Pool) remove(quantity decimal.Decimal) decimal.Decimal {
	cost := p.totalCost.Mul(quantity).Div(p.quantity)
	p.quantity = p.quantity.Sub(quantity)
	p.totalCost = p.totalCost.Sub(cost)
	if p.quantity.IsZero() {
		// Avoid a residual cost fraction lingering on an empty pool.
		p.totalCost = decimal.Zero
	}
	return cost
}

func (p *section104Pool) available() decimal.Decimal {
	return p.quantity
}
