package processors

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
)

// ExemptAmounts maps a tax year label ("2023/24") to that year's annual
// exempt amount in the base currency.
type ExemptAmounts map[string]decimal.Decimal

// LoadExemptAmounts loads the per-tax-year annual exempt amounts from a
// JSON file of the form {"2023/24": "6000", "2024/25": "3000"}.
// Call once from main after config is loaded.
func LoadExemptAmounts(filePath string) (ExemptAmounts, error) {
	raw, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("error reading exempt amounts file '%s': %w", filePath, err)
	}
	var asStrings map[string]string
	if err := json.Unmarshal(raw, &asStrings); err != nil {
		return nil, fmt.Errorf("error unmarshalling exempt amounts from '%s': %w", filePath, err)
	}
	amounts := make(ExemptAmounts, len(asStrings))
	for year, value := range asStrings {
		amount, err := decimal.NewFromString(value)
		if err != nil {
			return nil, fmt.Errorf("invalid exempt amount %q for tax year %s in '%s': %w", value, year, filePath, err)
		}
		amounts[year] = amount
	}
	return amounts, nil
}
