package processors

import (
	"sort"
	"sync"

	"github.com/username/cgtfolio/backend/src/models"
	"github.com/username/cgtfolio/backend/src/utils"
)

// Pipeline runs the full calculation: FX conversion, per-security lot
// matching, then tax-year aggregation. Securities are matched in parallel
// (they share no state); results land in a mutex-guarded collector and are
// sorted deterministically afterwards, so repeated runs over the same input
// produce byte-identical reports.
type Pipeline struct {
	fx           *FXProcessor
	aggregator   *Aggregator
	baseCurrency string
}

func NewPipeline(fx *FXProcessor, aggregator *Aggregator, baseCurrency string) *Pipeline {
	return &Pipeline{fx: fx, aggregator: aggregator, baseCurrency: baseCurrency}
}

// Run computes the full report for an ordered transaction stream. Any
// MissingFXRateError or UnmatchedDisposalError aborts the run: a partial
// report is never returned.
func (p *Pipeline) Run(txs []models.Transaction) (*models.Report, error) {
	if err := p.fx.Convert(txs); err != nil {
		return nil, err
	}

	bySecurity := make(map[string][]models.Transaction)
	var securities []string
	for _, tx := range txs {
		if tx.Type != models.TypeTrade {
			continue
		}
		if _, seen := bySecurity[tx.Security]; !seen {
			securities = append(securities, tx.Security)
		}
		bySecurity[tx.Security] = append(bySecurity[tx.Security], tx)
	}

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		matches []models.DisposalMatch
		errs    []error
	)
	for _, security := range securities {
		wg.Add(1)
		go func(security string, stream []models.Transaction) {
			defer wg.Done()
			matched, err := NewSecurityMatcher(security).Process(stream)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			matches = append(matches, matched...)
		}(security, bySecurity[security])
	}
	wg.Wait()

	if len(errs) > 0 {
		// Deterministic pick among concurrent failures.
		sort.Slice(errs, func(i, j int) bool { return errs[i].Error() < errs[j].Error() })
		return nil, errs[0]
	}

	sortMatches(matches)
	summaries, yearErrors := p.aggregator.Aggregate(matches)

	// Reports are cached and served to concurrent readers; the slices must
	// be encodable as-is, with no nil-to-empty fixups downstream.
	if matches == nil {
		matches = []models.DisposalMatch{}
	}
	if summaries == nil {
		summaries = []models.TaxYearSummary{}
	}

	return &models.Report{
		BaseCurrency: p.baseCurrency,
		TaxYears:     summaries,
		Disposals:    matches,
		YearErrors:   yearErrors,
	}, nil
}

func sortMatches(matches []models.DisposalMatch) {
	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		da, db := utils.DateOnly(a.DisposalDate), utils.DateOnly(b.DisposalDate)
		if !da.Equal(db) {
			return da.Before(db)
		}
		if a.Security != b.Security {
			return a.Security < b.Security
		}
		if pa, pb := matchPriority(a.MatchKind), matchPriority(b.MatchKind); pa != pb {
			return pa < pb
		}
		switch {
		case a.AcquisitionDate == nil:
			return false
		case b.AcquisitionDate == nil:
			return true
		default:
			return a.AcquisitionDate.Before(*b.AcquisitionDate)
		}
	})
}
