package httpapi

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"meatledger/backend/internal/export"
	"meatledger/backend/internal/logger"
	"meatledger/backend/internal/reconcile"
)

func (a *API) handleReconciliationReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	report, err := a.reconciler.Report(r.Context(), wantsRefresh(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (a *API) handleReconciliationExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	report, err := a.reconciler.Report(r.Context(), wantsRefresh(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteReport(&buf, report); err != nil {
		a.fail(w, r, err)
		return
	}
	filename := fmt.Sprintf("reconciliation-%s.xlsx", time.Now().UTC().Format("20060102-150405"))
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (a *API) handleReconciliationFix(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	result, err := a.reconciler.FixDiscrepancies(r.Context())
	if err != nil {
		if result != nil && len(result.Corrections) > 0 {
			logger.FromContext(r.Context()).Warn("balance fix stopped part way", zap.Int("applied", len(result.Corrections)))
		}
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type purgeRequest struct {
	Confirm bool `json:"confirm"`
}

// handleOrphanPurge answers 409 with the orphan list until the caller
// resends with confirm set.
func (a *API) handleOrphanPurge(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	var req purgeRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	result, err := a.reconciler.PurgeOrphans(r.Context(), req.Confirm)
	if errors.Is(err, reconcile.ErrConfirmationRequired) {
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":   err.Error(),
			"orphans": result.Orphans,
		})
		return
	}
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func wantsRefresh(r *http.Request) bool {
	switch strings.ToLower(strings.TrimSpace(r.URL.Query().Get("refresh"))) {
	case "1", "true", "yes":
		return true
	}
	return false
}
