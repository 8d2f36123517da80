package services

import (
	"io"

	"github.com/username/cgtfolio/backend/src/models"
)

// UploadService is the core orchestration surface: accept a broker export,
// persist its canonical transactions and serve the computed CGT report.
type UploadService interface {
	ProcessUpload(fileReader io.Reader, userID int64, source string) (*models.UploadResult, error)
	GetReport(userID int64) (*models.Report, error)
	GetTransactions(userID int64) ([]models.Transaction, error)
	DeleteAllTransactions(userID int64) error
	InvalidateUserCache(userID int64)
}
