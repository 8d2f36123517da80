// OFX/QFX investment statement parser. OFX 1.x files are SGML: leaf elements
// have no closing tags, but aggregates (BUYSTOCK, SELLSTOCK, INVBUY...) do,
// so trade blocks can be cut out and their leaves read positionally.
package ofx

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/username/cgtfolio/backend/src/models"
	"github.com/username/cgtfolio/backend/src/utils"
)

type OFXParser struct {
	policy models.RowErrorPolicy
}

func NewParser(policy models.RowErrorPolicy) *OFXParser {
	if policy == "" {
		policy = models.PolicyCollect
	}
	return &OFXParser{policy: policy}
}

var (
	buyBlockRe  = regexp.MustCompile(`(?is)<BUYSTOCK>(.*?)</BUYSTOCK>`)
	sellBlockRe = regexp.MustCompile(`(?is)<SELLSTOCK>(.*?)</SELLSTOCK>`)
	curdefRe    = regexp.MustCompile(`(?i)<CURDEF>([A-Za-z]{3})`)
)

// leaf reads an SGML leaf element value from a block: everything after the
// tag up to the next tag or line break.
func leaf(block, tag string) string {
	re := regexp.MustCompile(`(?i)<` + tag + `>([^<\r\n]+)`)
	m := re.FindStringSubmatch(block)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

func (p *OFXParser) Parse(file io.Reader) (*models.ParseResult, error) {
	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX document: %w", err)
	}
	doc := string(raw)

	if !strings.Contains(strings.ToUpper(doc), "<OFX>") {
		return nil, &models.SchemaValidationError{MissingColumns: []string{"OFX"}}
	}

	curdef := "USD"
	if m := curdefRe.FindStringSubmatch(doc); m != nil {
		curdef = strings.ToUpper(m[1])
	}

	type block struct {
		body string
		side string
	}
	var blocks []block
	for _, m := range buyBlockRe.FindAllStringSubmatch(doc, -1) {
		blocks = append(blocks, block{body: m[1], side: models.SideBuy})
	}
	for _, m := range sellBlockRe.FindAllStringSubmatch(doc, -1) {
		blocks = append(blocks, block{body: m[1], side: models.SideSell})
	}

	result := &models.ParseResult{}
	for i, b := range blocks {
		tx, rowErr := p.parseBlock(b.body, b.side, curdef, i+1)
		if rowErr != nil {
			if p.policy == models.PolicyAbort {
				return nil, fmt.Errorf("%w: %w", models.ErrParsingFailed, models.RowErrors{*rowErr})
			}
			result.RowErrors = append(result.RowErrors, *rowErr)
			continue
		}
		result.Transactions = append(result.Transactions, *tx)
	}

	// OFX carries buys and sells in separate lists; re-establish trade order.
	sortByDate(result.Transactions)
	return result, nil
}

func (p *OFXParser) parseBlock(body, side, curdef string, blockNum int) (*models.Transaction, *models.RowError) {
	security := leaf(body, "TICKER")
	if security == "" {
		security = leaf(body, "UNIQUEID")
	}
	if security == "" {
		return nil, &models.RowError{Row: blockNum, Field: "UNIQUEID", Reason: "no security identifier in trade block"}
	}

	dateRaw := leaf(body, "DTTRADE")
	if len(dateRaw) > 8 {
		dateRaw = dateRaw[:8] // strip OFX time and timezone suffix
	}
	tradeDate, err := utils.ParseTradeDate(dateRaw)
	if err != nil {
		return nil, &models.RowError{Row: blockNum, Field: "DTTRADE", Reason: err.Error()}
	}

	units, err := decimal.NewFromString(leaf(body, "UNITS"))
	if err != nil {
		return nil, &models.RowError{Row: blockNum, Field: "UNITS", Reason: fmt.Sprintf("non-numeric value %q", leaf(body, "UNITS"))}
	}
	if units.IsZero() {
		return nil, &models.RowError{Row: blockNum, Field: "UNITS", Reason: "zero quantity"}
	}

	price, err := decimal.NewFromString(leaf(body, "UNITPRICE"))
	if err != nil {
		return nil, &models.RowError{Row: blockNum, Field: "UNITPRICE", Reason: fmt.Sprintf("non-numeric value %q", leaf(body, "UNITPRICE"))}
	}

	commission := decimal.Zero
	if s := leaf(body, "COMMISSION"); s != "" {
		commission, err = decimal.NewFromString(s)
		if err != nil {
			return nil, &models.RowError{Row: blockNum, Field: "COMMISSION", Reason: fmt.Sprintf("non-numeric value %q", s)}
		}
		commission = commission.Abs()
	}

	// Per-trade CURRENCY aggregate overrides the statement default.
	currency := curdef
	fxRate := decimal.Zero
	if s := leaf(body, "CURSYM"); s != "" {
		currency = strings.ToUpper(s)
	}
	if s := leaf(body, "CURRATE"); s != "" {
		fxRate, err = decimal.NewFromString(s)
		if err != nil {
			return nil, &models.RowError{Row: blockNum, Field: "CURRATE", Reason: fmt.Sprintf("non-numeric value %q", s)}
		}
	}
	if !utils.IsKnownCurrency(currency) {
		return nil, &models.RowError{Row: blockNum, Field: "CURSYM", Reason: fmt.Sprintf("unknown currency code %q", currency)}
	}

	quantity := units.Abs()
	if side == models.SideSell {
		quantity = quantity.Neg()
	}

	return &models.Transaction{
		Security:   security,
		TradeDate:  tradeDate,
		Side:       side,
		Quantity:   quantity,
		Price:      price,
		Currency:   currency,
		Commission: commission,
		FXRate:     fxRate,
		Type:       models.TypeTrade,
		RawText:    strings.TrimSpace(leaf(body, "FITID")),
		Source:     "ofx",
	}, nil
}

func sortByDate(txs []models.Transaction) {
	// Stable insertion sort: inputs are near-sorted and slices are small.
	for i := 1; i < len(txs); i++ {
		for j := i; j > 0 && txs[j].TradeDate.Before(txs[j-1].TradeDate); j-- {
			txs[j], txs[j-1] = txs[j-1], txs[j]
		}
	}
}
