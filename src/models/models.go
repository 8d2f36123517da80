package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction type constants. FX conversion events (symbols like "EUR.GBP")
// are kept out of the equity matching pipeline.
const (
	TypeTrade        = "TRADE"
	TypeFxConversion = "FX_CONVERSION"
)

const (
	SideBuy  = "BUY"
	SideSell = "SELL"
)

// Disposal match kinds, in matching priority order.
const (
	MatchSameDay         = "SAME_DAY"
	MatchBedAndBreakfast = "BED_AND_BREAKFAST"
	MatchSection104      = "SECTION_104"
)

// Transaction is the canonical representation of one broker export row.
// Each parser is responsible for populating these fields directly from the
// source file. Quantity is signed: sells are negative. Immutable once parsed
// except for the in-place base-currency conversion done by the FX processor.
type Transaction struct {
	ID          int64           `json:"id,omitempty"`
	UserID      int64           `json:"-"`
	Security    string          `json:"security"`
	Name        string          `json:"name,omitempty"`
	TradeDate   time.Time       `json:"trade_date"`
	Side        string          `json:"side"`
	Quantity    decimal.Decimal `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	Currency    string          `json:"currency"`
	Commission  decimal.Decimal `json:"commission"`
	FXRate      decimal.Decimal `json:"fx_rate"` // feed-supplied rate to base currency; zero when absent
	Type        string          `json:"type"`
	RawText     string          `json:"raw_text,omitempty"`
	Source      string          `json:"source"`
	UploadID    string          `json:"upload_id,omitempty"`
	HashID      string          `json:"hash_id,omitempty"`
}

// AbsQuantity returns the unsigned quantity of the transaction.
func (t Transaction) AbsQuantity() decimal.Decimal {
	return t.Quantity.Abs()
}

// DisposalMatch records one matched slice of a disposal. A single SELL may
// split across several matches of different kinds. All monetary fields are
// in the base currency and unrounded; rounding happens at report time only.
type DisposalMatch struct {
	Security        string          `json:"security"`
	DisposalDate    time.Time       `json:"disposal_date"`
	AcquisitionDate *time.Time      `json:"acquisition_date,omitempty"` // nil for Section 104 pool matches
	MatchKind       string          `json:"match_kind"`
	Quantity        decimal.Decimal `json:"quantity"`
	Proceeds        decimal.Decimal `json:"proceeds"`
	AllowableCost   decimal.Decimal `json:"allowable_cost"`
	Gain            decimal.Decimal `json:"gain"`
}

// TaxYearSummary aggregates disposal matches falling inside one UK tax year
// (6 April to 5 April). All amounts are rounded to the base currency's minor
// unit. Created once per report generation, never mutated after.
type TaxYearSummary struct {
	TaxYear             string          `json:"tax_year"`
	TotalProceeds       decimal.Decimal `json:"total_proceeds"`
	TotalCosts          decimal.Decimal `json:"total_costs"`
	TotalGains          decimal.Decimal `json:"total_gains"`
	TotalLosses         decimal.Decimal `json:"total_losses"`
	NetGain             decimal.Decimal `json:"net_gain"`
	ExemptAmountApplied decimal.Decimal `json:"exempt_amount_applied"`
	TaxableGain         decimal.Decimal `json:"taxable_gain"`
	LossCarryForward    decimal.Decimal `json:"loss_carry_forward"`
	DisposalCount       int             `json:"disposal_count"`
}

// Report is the full output of one pipeline run: per-tax-year summaries plus
// the disposal match list for audit drill-down. YearErrors carries tax years
// that could not be summarised (missing exempt-amount configuration); the
// remaining years are still complete and internally consistent.
type Report struct {
	BaseCurrency string           `json:"base_currency"`
	TaxYears     []TaxYearSummary `json:"tax_years"`
	Disposals    []DisposalMatch  `json:"disposals"`
	YearErrors   []string         `json:"year_errors,omitempty"`
}

// RowError identifies a single rejected input row.
type RowError struct {
	Row    int    `json:"row"`
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ParseResult is what a parser hands back: the rows it could normalise plus
// the ones it rejected (empty unless the collect policy is active).
type ParseResult struct {
	Transactions []Transaction `json:"transactions"`
	RowErrors    []RowError    `json:"row_errors,omitempty"`
}

// UploadResult is the response payload for a processed upload.
type UploadResult struct {
	UploadID             string     `json:"upload_id"`
	TransactionsParsed   int        `json:"transactions_parsed"`
	TransactionsImported int        `json:"transactions_imported"`
	DuplicatesSkipped    int        `json:"duplicates_skipped"`
	RowErrors            []RowError `json:"row_errors,omitempty"`
	Report               *Report    `json:"report,omitempty"`
}
