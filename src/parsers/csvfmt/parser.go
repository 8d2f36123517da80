// Generic column-mapped CSV parser. Exact column names are a configuration
// concern: brokers are mapped onto the canonical header set via Options.
package csvfmt

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/username/cgtfolio/backend/src/models"
	"github.com/username/cgtfolio/backend/src/utils"
)

// Canonical column keys. Options.Columns maps these onto the header names
// actually present in the export.
const (
	ColSymbol     = "symbol"
	ColDate       = "date"
	ColSide       = "side"
	ColQuantity   = "quantity"
	ColPrice      = "price"
	ColCurrency   = "currency"
	ColCommission = "commission"
	ColFXRate     = "fx_rate"
	ColName       = "name"
)

// requiredColumns must all resolve to a header cell or the file is rejected
// wholesale. Side is optional: a signed quantity carries the same information.
var requiredColumns = []string{ColSymbol, ColDate, ColQuantity, ColPrice, ColCurrency, ColCommission}

type Options struct {
	Policy models.RowErrorPolicy
	// Columns overrides the expected header name for a canonical column key.
	// Keys absent from the map default to the canonical key itself.
	Columns map[string]string
}

type CSVParser struct {
	opts Options
}

func NewParser(opts Options) *CSVParser {
	if opts.Policy == "" {
		opts.Policy = models.PolicyCollect
	}
	return &CSVParser{opts: opts}
}

func (p *CSVParser) headerName(key string) string {
	if name, ok := p.opts.Columns[key]; ok {
		return name
	}
	return key
}

func (p *CSVParser) Parse(file io.Reader) (*models.ParseResult, error) {
	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	colIndex := make(map[string]int)
	for i, cell := range header {
		colIndex[strings.ToLower(strings.TrimSpace(cell))] = i
	}

	index := make(map[string]int) // canonical key -> cell index
	var missing []string
	for _, key := range append(append([]string{}, requiredColumns...), ColSide, ColFXRate, ColName) {
		i, ok := colIndex[strings.ToLower(p.headerName(key))]
		if !ok {
			if isRequired(key) {
				missing = append(missing, p.headerName(key))
			}
			continue
		}
		index[key] = i
	}
	if len(missing) > 0 {
		return nil, &models.SchemaValidationError{MissingColumns: missing}
	}

	result := &models.ParseResult{}
	rowNum := 1 // header was row 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV record: %w", err)
		}
		rowNum++

		tx, rowErr := p.parseRow(record, index, rowNum)
		if rowErr != nil {
			if p.opts.Policy == models.PolicyAbort {
				return nil, fmt.Errorf("%w: %w", models.ErrParsingFailed, models.RowErrors{*rowErr})
			}
			result.RowErrors = append(result.RowErrors, *rowErr)
			continue
		}
		result.Transactions = append(result.Transactions, *tx)
	}

	return result, nil
}

func (p *CSVParser) parseRow(record []string, index map[string]int, rowNum int) (*models.Transaction, *models.RowError) {
	cell := func(key string) string {
		i, ok := index[key]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	symbol := cell(ColSymbol)
	if symbol == "" {
		return nil, &models.RowError{Row: rowNum, Field: p.headerName(ColSymbol), Reason: "empty security identifier"}
	}

	tradeDate, err := utils.ParseTradeDate(cell(ColDate))
	if err != nil {
		return nil, &models.RowError{Row: rowNum, Field: p.headerName(ColDate), Reason: err.Error()}
	}

	quantity, err := parseDecimal(cell(ColQuantity))
	if err != nil {
		return nil, &models.RowError{Row: rowNum, Field: p.headerName(ColQuantity), Reason: err.Error()}
	}
	if quantity.IsZero() {
		return nil, &models.RowError{Row: rowNum, Field: p.headerName(ColQuantity), Reason: "zero quantity"}
	}

	price, err := parseDecimal(cell(ColPrice))
	if err != nil {
		return nil, &models.RowError{Row: rowNum, Field: p.headerName(ColPrice), Reason: err.Error()}
	}

	currency := strings.ToUpper(cell(ColCurrency))
	if !utils.IsKnownCurrency(currency) {
		return nil, &models.RowError{Row: rowNum, Field: p.headerName(ColCurrency), Reason: fmt.Sprintf("unknown currency code %q", currency)}
	}

	commission := decimal.Zero
	if s := cell(ColCommission); s != "" {
		commission, err = parseDecimal(s)
		if err != nil {
			return nil, &models.RowError{Row: rowNum, Field: p.headerName(ColCommission), Reason: err.Error()}
		}
		commission = commission.Abs()
	}

	fxRate := decimal.Zero
	if s := cell(ColFXRate); s != "" {
		fxRate, err = parseDecimal(s)
		if err != nil {
			return nil, &models.RowError{Row: rowNum, Field: p.headerName(ColFXRate), Reason: err.Error()}
		}
	}

	side, rowErr := resolveSide(cell(ColSide), quantity, p.headerName(ColSide), rowNum)
	if rowErr != nil {
		return nil, rowErr
	}
	// Canonical sign convention: sells negative, buys positive.
	if side == models.SideSell {
		quantity = quantity.Abs().Neg()
	} else {
		quantity = quantity.Abs()
	}

	txType := models.TypeTrade
	if isCurrencyPair(symbol) {
		txType = models.TypeFxConversion
	}

	return &models.Transaction{
		Security:   symbol,
		Name:       cell(ColName),
		TradeDate:  tradeDate,
		Side:       side,
		Quantity:   quantity,
		Price:      price,
		Currency:   currency,
		Commission: commission,
		FXRate:     fxRate,
		Type:       txType,
		RawText:    strings.Join(record, ","),
		Source:     "csv",
	}, nil
}

func resolveSide(raw string, quantity decimal.Decimal, field string, rowNum int) (string, *models.RowError) {
	switch strings.ToUpper(raw) {
	case models.SideBuy:
		return models.SideBuy, nil
	case models.SideSell:
		return models.SideSell, nil
	case "":
		// No side column: the quantity sign decides.
		if quantity.IsNegative() {
			return models.SideSell, nil
		}
		return models.SideBuy, nil
	default:
		return "", &models.RowError{Row: rowNum, Field: field, Reason: fmt.Sprintf("unrecognised side %q", raw)}
	}
}

func parseDecimal(s string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("non-numeric value %q", s)
	}
	return d, nil
}

// isCurrencyPair reports whether a symbol encodes a currency conversion
// (e.g. "EUR.GBP") rather than a security trade.
func isCurrencyPair(symbol string) bool {
	parts := strings.Split(symbol, ".")
	if len(parts) != 2 {
		return false
	}
	return utils.IsKnownCurrency(parts[0]) && utils.IsKnownCurrency(parts[1])
}

func isRequired(key string) bool {
	for _, r := range requiredColumns {
		if r == key {
			return true
		}
	}
	return false
}
