package parsers

import (
	"fmt"

	"github.com/username/cgtfolio/backend/src/models"
	"github.com/username/cgtfolio/backend/src/parsers/csvfmt"
	"github.com/username/cgtfolio/backend/src/parsers/ofx"
)

// GetParser returns the parser for a declared upload source.
func GetParser(source string, policy models.RowErrorPolicy) (Parser, error) {
	switch source {
	case "csv":
		return csvfmt.NewParser(csvfmt.Options{Policy: policy}), nil
	case "ofx", "qfx":
		return ofx.NewParser(policy), nil
	default:
		return nil, fmt.Errorf("no parser available for source: %s", source)
	}
}
