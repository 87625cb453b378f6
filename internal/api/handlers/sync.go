package handlers

import (
	"net/http"
	"time"

	"github.com/dvloznov/finance-ledger/internal/api/middleware"
)

// Push handles POST /api/sync/push
func (h *LedgerHandler) Push(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.PushToRemote(r.Context()); err != nil {
		writeFailure(w, r, "Push failed", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "pushed"})
}

// Pull handles POST /api/sync/pull
func (h *LedgerHandler) Pull(w http.ResponseWriter, r *http.Request) {
	found, err := h.svc.PullFromRemote(r.Context())
	if err != nil {
		writeFailure(w, r, "Pull failed", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]bool{"found": found})
}

// SyncNow handles POST /api/sync/now
func (h *LedgerHandler) SyncNow(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.SyncNow(r.Context()); err != nil {
		writeFailure(w, r, "Sync failed", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "synced"})
}

// Connect handles PUT /api/sync/token
func (h *LedgerHandler) Connect(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.Token == "" {
		middleware.WriteError(w, http.StatusBadRequest, "Token is required")
		return
	}
	if err := h.svc.Connect(r.Context(), req.Token); err != nil {
		writeFailure(w, r, "Connect failed", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]bool{"connected": true})
}

// Disconnect handles DELETE /api/sync/token
func (h *LedgerHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Disconnect(r.Context()); err != nil {
		writeFailure(w, r, "Disconnect failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Status handles GET /api/sync/status
func (h *LedgerHandler) Status(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"mode":      h.svc.Mode(),
		"connected": h.svc.Connected(),
	}
	if fb := h.svc.LastFallback(); fb != nil {
		resp["lastFallback"] = map[string]string{
			"op":    fb.Op,
			"error": fb.Err.Error(),
			"at":    fb.At.Format(time.RFC3339),
		}
	}
	middleware.WriteJSON(w, http.StatusOK, resp)
}
