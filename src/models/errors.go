package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Service boundary sentinels. Handlers map these to HTTP status codes.
var (
	ErrParsingFailed    = errors.New("parsing failed")
	ErrProcessingFailed = errors.New("processing failed")
)

// RowErrorPolicy selects what a parser does with rows it cannot normalise.
type RowErrorPolicy string

const (
	// PolicyAbort fails the whole file on the first bad row.
	PolicyAbort RowErrorPolicy = "abort"
	// PolicyCollect skips bad rows and returns them alongside the valid ones.
	PolicyCollect RowErrorPolicy = "collect"
)

// SchemaValidationError rejects a file wholesale because required columns
// are missing from its header.
type SchemaValidationError struct {
	MissingColumns []string
}

func (e *SchemaValidationError) Error() string {
	return fmt.Sprintf("schema validation failed: missing required columns: %s",
		strings.Join(e.MissingColumns, ", "))
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: field %q: %s", e.Row, e.Field, e.Reason)
}

// RowErrors is the aggregate error returned under the abort policy.
type RowErrors []RowError

func (e RowErrors) Error() string {
	if len(e) == 1 {
		return e[0].Error()
	}
	return fmt.Sprintf("%s (and %d more row errors)", e[0].Error(), len(e)-1)
}

// MissingFXRateError marks a non-base-currency transaction whose feed row
// carried no rate to the base currency.
type MissingFXRateError struct {
	Security string
	Date     time.Time
	Currency string
}

func (e *MissingFXRateError) Error() string {
	return fmt.Sprintf("missing FX rate for %s transaction on %s (%s)",
		e.Currency, e.Date.Format("2006-01-02"), e.Security)
}

// UnmatchedDisposalError marks an oversold position: a disposal quantity
// that exhausted same-day, 30-day and pool matching. Fatal, never recovered.
type UnmatchedDisposalError struct {
	Security string
	Date     time.Time
	Quantity decimal.Decimal
}

func (e *UnmatchedDisposalError) Error() string {
	return fmt.Sprintf("unmatched disposal of %s %s on %s: sold quantity exceeds holdings",
		e.Quantity.String(), e.Security, e.Date.Format("2006-01-02"))
}

// UnknownTaxYearRateError marks a disposal tax year with no configured
// annual exempt amount. Fatal for that year only; other years still report.
type UnknownTaxYearRateError struct {
	TaxYear string
}

func (e *UnknownTaxYearRateError) Error() string {
	return fmt.Sprintf("no annual exempt amount configured for tax year %s", e.TaxYear)
}
