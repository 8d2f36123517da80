package services

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"github.com/username/cgtfolio/backend/src/database"
	"github.com/username/cgtfolio/backend/src/logger"
	"github.com/username/cgtfolio/backend/src/models"
	"github.com/username/cgtfolio/backend/src/parsers"
	"github.com/username/cgtfolio/backend/src/processors"
	"github.com/username/cgtfolio/backend/src/utils"
)

const (
	ckReport = "res_cgt_report_user_%d"

	DefaultCacheExpiration = 15 * time.Minute
	CacheCleanupInterval   = 30 * time.Minute
)

type uploadServiceImpl struct {
	pipeline       *processors.Pipeline
	rowErrorPolicy models.RowErrorPolicy
	reportCache    *cache.Cache
}

func NewUploadService(pipeline *processors.Pipeline, rowErrorPolicy models.RowErrorPolicy, reportCache *cache.Cache) UploadService {
	return &uploadServiceImpl{
		pipeline:       pipeline,
		rowErrorPolicy: rowErrorPolicy,
		reportCache:    reportCache,
	}
}

func (s *uploadServiceImpl) ProcessUpload(fileReader io.Reader, userID int64, source string) (*models.UploadResult, error) {
	overallStartTime := time.Now()
	logger.L.Info("ProcessUpload START", "userID", userID, "source", source)

	parser, err := parsers.GetParser(source, s.rowErrorPolicy)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrParsingFailed, err)
	}

	parseResult, err := parser.Parse(fileReader)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrParsingFailed, err)
	}

	uploadID := uuid.NewString()
	imported, duplicates, err := s.insertTransactions(parseResult.Transactions, userID, uploadID)
	if err != nil {
		return nil, err
	}

	// Any new row can change matching retroactively (the 30-day rule), so
	// the whole cached report is stale, not just the uploaded range.
	s.InvalidateUserCache(userID)

	result := &models.UploadResult{
		UploadID:             uploadID,
		TransactionsParsed:   len(parseResult.Transactions),
		TransactionsImported: imported,
		DuplicatesSkipped:    duplicates,
		RowErrors:            parseResult.RowErrors,
	}

	report, err := s.GetReport(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrProcessingFailed, err)
	}
	result.Report = report

	logger.L.Info("ProcessUpload END", "userID", userID, "imported", imported,
		"duplicates", duplicates, "rowErrors", len(parseResult.RowErrors),
		"duration", time.Since(overallStartTime))
	return result, nil
}

func (s *uploadServiceImpl) insertTransactions(txs []models.Transaction, userID int64, uploadID string) (imported, duplicates int, err error) {
	if len(txs) == 0 {
		return 0, 0, nil
	}

	dbTx, err := database.DB.Begin()
	if err != nil {
		return 0, 0, fmt.Errorf("error beginning database transaction: %w", err)
	}
	defer dbTx.Rollback()

	stmt, err := dbTx.Prepare(`INSERT INTO transactions
		(user_id, security, name, trade_date, side, quantity, price, currency, commission, fx_rate, tx_type, raw_text, source, upload_id, hash_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, 0, fmt.Errorf("error preparing insert statement: %w", err)
	}
	defer stmt.Close()

	for _, tx := range txs {
		hashID := hashTransaction(tx)
		_, err := stmt.Exec(userID, tx.Security, tx.Name, tx.TradeDate.Format(utils.DateFormat),
			tx.Side, tx.Quantity.String(), tx.Price.String(), tx.Currency,
			tx.Commission.String(), tx.FXRate.String(), tx.Type, tx.RawText, tx.Source, uploadID, hashID)
		if err != nil {
			if strings.Contains(strings.ToLower(err.Error()), "unique constraint failed") {
				logger.L.Debug("Skipping duplicate transaction on upload", "userID", userID, "hashID", hashID)
				duplicates++
				continue
			}
			return 0, 0, fmt.Errorf("error inserting transaction (%s %s): %w", tx.Security, tx.TradeDate.Format(utils.DateFormat), err)
		}
		imported++
	}

	if err := dbTx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("error committing transactions: %w", err)
	}
	return imported, duplicates, nil
}

func (s *uploadServiceImpl) GetReport(userID int64) (*models.Report, error) {
	cacheKey := fmt.Sprintf(ckReport, userID)
	if cached, found := s.reportCache.Get(cacheKey); found {
		logger.L.Debug("Cache hit for CGT report", "userID", userID)
		return cached.(*models.Report), nil
	}
	logger.L.Info("Cache miss for CGT report, recalculating from DB", "userID", userID)

	txs, err := s.GetTransactions(userID)
	if err != nil {
		return nil, err
	}

	report, err := s.pipeline.Run(txs)
	if err != nil {
		return nil, err
	}

	s.reportCache.Set(cacheKey, report, DefaultCacheExpiration)
	return report, nil
}

func (s *uploadServiceImpl) GetTransactions(userID int64) ([]models.Transaction, error) {
	logger.L.Debug("Fetching transactions from DB", "userID", userID)
	rows, err := database.DB.Query(`
		SELECT id, security, name, trade_date, side, quantity, price, currency, commission, fx_rate, tx_type, raw_text, source, upload_id, hash_id
		FROM transactions WHERE user_id = ? ORDER BY trade_date ASC, id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("error querying transactions for userID %d: %w", userID, err)
	}
	defer rows.Close()

	var transactions []models.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning transaction row for userID %d: %w", userID, err)
		}
		tx.UserID = userID
		transactions = append(transactions, *tx)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over transaction rows for userID %d: %w", userID, err)
	}
	return transactions, nil
}

func (s *uploadServiceImpl) DeleteAllTransactions(userID int64) error {
	if _, err := database.DB.Exec(`DELETE FROM transactions WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("error deleting transactions for userID %d: %w", userID, err)
	}
	s.InvalidateUserCache(userID)
	logger.L.Info("Deleted all transactions for user", "userID", userID)
	return nil
}

func (s *uploadServiceImpl) InvalidateUserCache(userID int64) {
	s.reportCache.Delete(fmt.Sprintf(ckReport, userID))
	logger.L.Info("Invalidated report cache for user", "userID", userID)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	var tx models.Transaction
	var tradeDate, quantity, price, commission, fxRate string
	err := row.Scan(&tx.ID, &tx.Security, &tx.Name, &tradeDate, &tx.Side,
		&quantity, &price, &tx.Currency, &commission, &fxRate,
		&tx.Type, &tx.RawText, &tx.Source, &tx.UploadID, &tx.HashID)
	if err != nil {
		return nil, err
	}
	if tx.TradeDate, err = time.Parse(utils.DateFormat, tradeDate); err != nil {
		return nil, fmt.Errorf("invalid stored trade date %q: %w", tradeDate, err)
	}
	if tx.Quantity, err = decimal.NewFromString(quantity); err != nil {
		return nil, fmt.Errorf("invalid stored quantity %q: %w", quantity, err)
	}
	if tx.Price, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("invalid stored price %q: %w", price, err)
	}
	if tx.Commission, err = decimal.NewFromString(commission); err != nil {
		return nil, fmt.Errorf("invalid stored commission %q: %w", commission, err)
	}
	if tx.FXRate, err = decimal.NewFromString(fxRate); err != nil {
		return nil, fmt.Errorf("invalid stored fx rate %q: %w", fxRate, err)
	}
	return &tx, nil
}

// hashTransaction fingerprints a transaction so re-uploading the same export
// is a no-op. RawText carries the broker's own row identity (order id, OFX
// FITID), so two distinct trades that agree on every canonical field still
// hash apart.
func hashTransaction(tx models.Transaction) string {
	input := fmt.Sprintf("%s|%s|%s|%s|%s|%s|%s|%s|%s",
		tx.Security, tx.TradeDate.Format(utils.DateFormat), tx.Side,
		tx.Quantity.String(), tx.Price.String(), tx.Currency,
		tx.Commission.String(), tx.Source, tx.RawText)
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:])
}
