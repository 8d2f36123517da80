package parsers

import (
	"io"

	"github.com/username/cgtfolio/backend/src/models"
)

// Parser normalises one broker export into canonical transactions.
// Structural problems (unreadable file, missing required columns) come back
// as an error; per-row problems follow the configured RowErrorPolicy.
type Parser interface {
	Parse(file io.Reader) (*models.ParseResult, error)
}
