package processors

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/username/cgtfolio/backend/src/models"
	"github.com/username/cgtfolio/backend/src/utils"
)

// bedAndBreakfastDays is the forward window in which an acquisition
// re-matches an earlier disposal of the same security.
const bedAndBreakfastDays = 30

// lotEntry tracks how much of one transaction is still unmatched. Quantities
// are unsigned here; the sign convention only matters at the model boundary.
type lotEntry struct {
	tx        *models.Transaction
	seq       int // input order, used as tie-break and for the pool pass merge
	remaining decimal.Decimal
	matches   []models.DisposalMatch // populated on sell entries only
}

// allocCost returns the acquisition cost of a quantity slice of a buy:
// price plus the commission share, allocated pro-rata.
func (e *lotEntry) allocCost(quantity decimal.Decimal) decimal.Decimal {
	total := e.tx.AbsQuantity()
	return quantity.Mul(e.tx.Price).Add(e.tx.Commission.Mul(quantity).Div(total))
}

// allocProceeds returns the disposal proceeds of a quantity slice of a sell,
// net of the pro-rata commission share.
func (e *lotEntry) allocProceeds(quantity decimal.Decimal) decimal.Decimal {
	total := e.tx.AbsQuantity()
	return quantity.Mul(e.tx.Price).Sub(e.tx.Commission.Mul(quantity).Div(total))
}

// SecurityMatcher applies the UK share-matching rules to the transaction
// stream of a single security. Matching priority per disposal: same-day
// acquisitions, then acquisitions in the following 30 calendar days
// (bed-and-breakfast), then the Section 104 pool at average cost.
//
// A disposal's matches are only final once its 30-day window has been
// scanned, so the matcher works in explicit passes over the full stream
// instead of emitting during a linear scan. Securities are independent;
// one matcher instance holds no shared state.
type SecurityMatcher struct {
	security string
	buys     []*lotEntry
	sells    []*lotEntry
	pool     *section104Pool
}

func NewSecurityMatcher(security string) *SecurityMatcher {
	return &SecurityMatcher{security: security, pool: newSection104Pool()}
}

// Process consumes the security's trades in non-decreasing date order and
// returns one or more DisposalMatch records per sell, in disposal order.
// An oversold position fails with UnmatchedDisposalError.
func (m *SecurityMatcher) Process(txs []models.Transaction) ([]models.DisposalMatch, error) {
	m.buys = m.buys[:0]
	m.sells = m.sells[:0]
	m.pool = newSection104Pool()

	all := make([]*lotEntry, 0, len(txs))
	for i := range txs {
		tx := &txs[i]
		if tx.Type != models.TypeTrade {
			continue
		}
		entry := &lotEntry{tx: tx, seq: i, remaining: tx.AbsQuantity()}
		all = append(all, entry)
		if tx.Side == models.SideBuy {
			m.buys = append(m.buys, entry)
		} else {
			m.sells = append(m.sells, entry)
		}
	}
	sortEntries(all)
	sortEntries(m.buys)
	sortEntries(m.sells)

	m.matchSameDay()
	m.matchBedAndBreakfast()
	if err := m.matchPool(all); err != nil {
		return nil, err
	}

	var out []models.DisposalMatch
	for _, sell := range m.sells {
		out = append(out, sell.matches...)
	}
	return out, nil
}

// matchSameDay consumes acquisitions made on the disposal's calendar date,
// in the order the buys were recorded.
func (m *SecurityMatcher) matchSameDay() {
	for _, sell := range m.sells {
		for _, buy := range m.buys {
			if sell.remaining.IsZero() {
				break
			}
			if buy.remaining.IsZero() || !utils.SameDay(buy.tx.TradeDate, sell.tx.TradeDate) {
				continue
			}
			m.matchPair(sell, buy, models.MatchSameDay)
		}
	}
}

// matchBedAndBreakfast consumes acquisitions in the 30 calendar days after
// the disposal, earliest acquisition first. The effect is retroactive: the
// later buy re-matches quantity the disposal would otherwise have drawn
// from the pool.
func (m *SecurityMatcher) matchBedAndBreakfast() {
	for _, sell := range m.sells {
		for _, buy := range m.buys {
			if sell.remaining.IsZero() {
				break
			}
			if buy.remaining.IsZero() {
				continue
			}
			if buy.tx.TradeDate.After(utils.DateOnly(sell.tx.TradeDate).AddDate(0, 0, bedAndBreakfastDays)) {
				break // buys are date-ordered; nothing further can match
			}
			if !utils.WithinDaysAfter(sell.tx.TradeDate, buy.tx.TradeDate, bedAndBreakfastDays) {
				continue
			}
			m.matchPair(sell, buy, models.MatchBedAndBreakfast)
		}
	}
}

// matchPool replays the stream chronologically: buy remainders enter the
// pool at cost, sell remainders draw on it at the running average cost.
func (m *SecurityMatcher) matchPool(all []*lotEntry) error {
	for _, entry := range all {
		if entry.remaining.IsZero() {
			continue
		}
		if entry.tx.Side == models.SideBuy {
			m.pool.add(entry.remaining, entry.allocCost(entry.remaining))
			entry.remaining = decimal.Zero
			continue
		}
		if m.pool.available().LessThan(entry.remaining) {
			return &models.UnmatchedDisposalError{
				Security: m.security,
				Date:     entry.tx.TradeDate,
				Quantity: entry.remaining.Sub(m.pool.available()),
			}
		}
		quantity := entry.remaining
		cost := m.pool.remove(quantity)
		proceeds := entry.allocProceeds(quantity)
		entry.matches = append(entry.matches, models.DisposalMatch{
			Security:      m.security,
			DisposalDate:  entry.tx.TradeDate,
			MatchKind:     models.MatchSection104,
			Quantity:      quantity,
			Proceeds:      proceeds,
			AllowableCost: cost,
			Gain:          proceeds.Sub(cost),
		})
		entry.remaining = decimal.Zero
	}
	return nil
}

func (m *SecurityMatcher) matchPair(sell, buy *lotEntry, kind string) {
	quantity := decimal.Min(sell.remaining, buy.remaining)
	proceeds := sell.allocProceeds(quantity)
	cost := buy.allocCost(quantity)
	acquired := buy.tx.TradeDate
	sell.matches = append(sell.matches, models.DisposalMatch{
		Security:        m.security,
		DisposalDate:    sell.tx.TradeDate,
		AcquisitionDate: &acquired,
		MatchKind:       kind,
		Quantity:        quantity,
		Proceeds:        proceeds,
		AllowableCost:   cost,
		Gain:            proceeds.Sub(cost),
	})
	sell.remaining = sell.remaining.Sub(quantity)
	buy.remaining = buy.remaining.Sub(quantity)
}

// sortEntries orders by calendar date, keeping input order among equals.
func sortEntries(entries []*lotEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		di, dj := utils.DateOnly(entries[i].tx.TradeDate), utils.DateOnly(entries[j].tx.TradeDate)
		if !di.Equal(dj) {
			return di.Before(dj)
		}
		return entries[i].seq < entries[j].seq
	})
}

// matchPriority orders match kinds for deterministic report output.
func matchPriority(kind string) int {
	switch kind {
	case models.MatchSameDay:
		return 0
	case models.MatchBedAndBreakfast:
		return 1
	default:
		return 2
	}
}
