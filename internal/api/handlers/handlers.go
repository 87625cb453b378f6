// Package handlers exposes the ledger operations over HTTP.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dvloznov/finance-ledger/internal/api/middleware"
	"github.com/dvloznov/finance-ledger/internal/importer"
	"github.com/dvloznov/finance-ledger/internal/ledger"
	"github.com/dvloznov/finance-ledger/internal/ledgerstore"
	"github.com/dvloznov/finance-ledger/internal/logger"
	"github.com/dvloznov/finance-ledger/internal/syncerr"
)

// maxBodyBytes bounds request bodies, including statement uploads.
const maxBodyBytes = 20 << 20

// StatusFor maps an operation error to an HTTP status.
func StatusFor(err error) int {
	switch syncerr.KindOf(err) {
	case syncerr.Unauthorized:
		return http.StatusUnauthorized
	case syncerr.RemoteNotFound:
		return http.StatusNotFound
	case syncerr.MalformedPayload:
		return http.StatusUnprocessableEntity
	case syncerr.NetworkUnavailable:
		return http.StatusServiceUnavailable
	}
	switch {
	case errors.Is(err, ledger.ErrNoRemote):
		return http.StatusConflict
	case errors.Is(err, ledgerstore.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, importer.ErrNothingToImport):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// writeFailure logs err with the request logger and writes the mapped status.
func writeFailure(w http.ResponseWriter, r *http.Request, msg string, err error) {
	status := StatusFor(err)
	log := logger.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Msg(msg)
	} else {
		log.Warn().Err(err).Msg(msg)
	}
	middleware.WriteError(w, status, msg+": "+err.Error())
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// list writes items under key with a count, never as JSON null.
func list[T any](w http.ResponseWriter, key string, items []T) {
	if items == nil {
		items = []T{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		key:     items,
		"count": len(items),
	})
}

// LedgerHandler serves entity reads and writes.
type LedgerHandler struct {
	svc *ledger.Service
}

func NewLedgerHandler(svc *ledger.Service) *LedgerHandler {
	return &LedgerHandler{svc: svc}
}
