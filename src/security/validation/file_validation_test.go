package validation

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/cgtfolio/backend/src/logger"
)

func TestMain(m *testing.M) {
	logger.InitLogger("error")
	m.Run()
}

func TestValidateClientContentType(t *testing.T) {
	assert.NoError(t, ValidateClientContentType("text/csv"))
	assert.NoError(t, ValidateClientContentType("TEXT/CSV; charset=utf-8"))
	assert.NoError(t, ValidateClientContentType("application/x-ofx"))

	err := ValidateClientContentType("application/pdf")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestValidateFileContentByMagicBytes(t *testing.T) {
	csvFile := bytes.NewReader([]byte("symbol,date,quantity\nAAPL,2024-03-01,10\n"))
	detected, err := ValidateFileContentByMagicBytes(csvFile)
	require.NoError(t, err)
	assert.Equal(t, "text/plain", detected)

	// Reader is rewound for the parser.
	first, err := io.ReadAll(csvFile)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(first, []byte("symbol,")))

	pngFile := bytes.NewReader([]byte("\x89PNG\r\n\x1a\n0000000000"))
	_, err = ValidateFileContentByMagicBytes(pngFile)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidationFailed)

	_, err = ValidateFileContentByMagicBytes(nil)
	assert.ErrorIs(t, err, ErrValidationFailed)
}
