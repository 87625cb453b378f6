// Package remotefile keeps the whole ledger as one JSON document in the
// user's remote storage. The protocol is whole-document overwrite: the last
// writer wins for the entire database.
package remotefile

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/dvloznov/finance-ledger/internal/syncerr"
)

// FileName is the fixed name of the remote document.
const FileName = "finanzaflow_db_v2.json"

// Ref identifies the remote document within a backend (a Drive file ID, an
// object name).
type Ref string

// Gateway is one remote storage backend. Every call carries the caller's
// bearer token; backends that authenticate otherwise may ignore it.
type Gateway interface {
	// Find locates the document. found is false when it does not exist.
	Find(ctx context.Context, token string) (ref Ref, found bool, err error)
	Download(ctx context.Context, token string, ref Ref) ([]byte, error)
	Create(ctx context.Context, token string, doc []byte) (Ref, error)
	Overwrite(ctx context.Context, token string, ref Ref, doc []byte) error
}

// Credentials supplies the bearer token and is told when the remote rejects it.
type Credentials interface {
	Token(ctx context.Context) string
	Revoke(ctx context.Context)
}

var errNoToken = errors.New("no bearer token")

// SyncFile uploads toSave, or downloads the document when toSave is nil.
//
// Upload overwrites the existing document or creates it, and returns toSave.
// Download returns nil, nil when no document exists. Without a token nothing
// is sent and an Unauthorized error is returned. An Unauthorized answer from
// the backend revokes the token before the error is returned.
func SyncFile(ctx context.Context, gw Gateway, creds Credentials, toSave []byte) ([]byte, error) {
	token := creds.Token(ctx)
	if token == "" {
		return nil, syncerr.New(syncerr.Unauthorized, "remotefile.sync", errNoToken)
	}

	fail := func(op string, err error) error {
		err = syncerr.Classify(op, err)
		if syncerr.KindOf(err) == syncerr.Unauthorized {
			creds.Revoke(ctx)
		}
		return err
	}

	ref, found, err := gw.Find(ctx, token)
	if err != nil {
		return nil, fail("remotefile.find", err)
	}

	if toSave == nil {
		if !found {
			return nil, nil
		}
		doc, err := gw.Download(ctx, token, ref)
		if err != nil {
			err = fail("remotefile.download", err)
			if syncerr.KindOf(err) == syncerr.RemoteNotFound {
				return nil, nil
			}
			return nil, err
		}
		if !json.Valid(doc) {
			return nil, syncerr.New(syncerr.MalformedPayload, "remotefile.download", errors.New("remote document is not JSON"))
		}
		return doc, nil
	}

	if found {
		if err := gw.Overwrite(ctx, token, ref, toSave); err != nil {
			return nil, fail("remotefile.overwrite", err)
		}
		return toSave, nil
	}
	if _, err := gw.Create(ctx, token, toSave); err != nil {
		return nil, fail("remotefile.create", err)
	}
	return toSave, nil
}
