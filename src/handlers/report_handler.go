package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/username/cgtfolio/backend/src/logger"
	"github.com/username/cgtfolio/backend/src/models"
	"github.com/username/cgtfolio/backend/src/processors"
	"github.com/username/cgtfolio/backend/src/services"
	"github.com/username/cgtfolio/backend/src/utils"
)

type ReportHandler struct {
	uploadService services.UploadService
}

func NewReportHandler(service services.UploadService) *ReportHandler {
	return &ReportHandler{uploadService: service}
}

// HandleGetReport serves the full CGT report with ETag support so the SPA
// can poll cheaply.
func (h *ReportHandler) HandleGetReport(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}

	report, err := h.uploadService.GetReport(userID)
	if err != nil {
		writeDomainError(w, userID, err)
		return
	}

	w.Header().Set("Cache-Control", "no-cache, private")
	currentETag, etagErr := utils.GenerateETag(report)
	if etagErr == nil && currentETag != "" {
		quotedETag := fmt.Sprintf("%q", currentETag)
		w.Header().Set("ETag", quotedETag)
		for _, clientETag := range strings.Split(r.Header.Get("If-None-Match"), ",") {
			if strings.TrimSpace(clientETag) == quotedETag {
				logger.L.Debug("ETag match for CGT report", "userID", userID)
				w.WriteHeader(http.StatusNotModified)
				return
			}
		}
	} else {
		logger.L.Warn("Proceeding without ETag check", "userID", userID, "error", etagErr)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(report); err != nil {
		logger.L.Error("Error encoding JSON response for CGT report", "userID", userID, "error", err)
	}
}

// HandleGetDisposals serves only the disposal match list (audit drill-down).
func (h *ReportHandler) HandleGetDisposals(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}

	report, err := h.uploadService.GetReport(userID)
	if err != nil {
		writeDomainError(w, userID, err)
		return
	}

	disposals := report.Disposals
	if disposals == nil {
		disposals = []models.DisposalMatch{}
	}
	if year := r.URL.Query().Get("tax_year"); year != "" {
		filtered := make([]models.DisposalMatch, 0, len(disposals))
		for _, d := range disposals {
			if processors.TaxYearLabel(d.DisposalDate) == year {
				filtered = append(filtered, d)
			}
		}
		disposals = filtered
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(disposals); err != nil {
		logger.L.Error("Error encoding JSON response for disposals", "userID", userID, "error", err)
	}
}
