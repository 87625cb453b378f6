package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/dvloznov/finance-ledger/internal/importer"
	"github.com/dvloznov/finance-ledger/internal/ledger"
	"github.com/dvloznov/finance-ledger/internal/ledgerstore"
	"github.com/dvloznov/finance-ledger/internal/syncerr"
	"github.com/stretchr/testify/assert"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"unauthorized", syncerr.New(syncerr.Unauthorized, "push", nil), http.StatusUnauthorized},
		{"remote missing", syncerr.New(syncerr.RemoteNotFound, "download", nil), http.StatusNotFound},
		{"malformed", fmt.Errorf("import: %w", syncerr.New(syncerr.MalformedPayload, "import", nil)), http.StatusUnprocessableEntity},
		{"network", syncerr.New(syncerr.NetworkUnavailable, "list", errors.New("timeout")), http.StatusServiceUnavailable},
		{"record missing", fmt.Errorf("UpdateAccount: %w", ledgerstore.ErrNotFound), http.StatusNotFound},
		{"nothing to import", importer.ErrNothingToImport, http.StatusBadRequest},
		{"no remote configured", fmt.Errorf("SyncNow: %w", ledger.ErrNoRemote), http.StatusConflict},
		{"other", errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.err))
		})
	}
}
