// Package remotefiletest provides an in-memory remotefile.Gateway for tests.
package remotefiletest

import (
	"context"
	"sync"

	"github.com/dvloznov/finance-ledger/internal/remotefile"
	"github.com/dvloznov/finance-ledger/internal/syncerr"
)

// Gateway stores one document in memory and records every call. Setting Err
// makes every call fail with it; setting AcceptToken rejects other tokens as
// Unauthorized.
type Gateway struct {
	mu sync.Mutex

	Doc         []byte
	Exists      bool
	Err         error
	AcceptToken string

	Finds      int
	Downloads  int
	Creates    int
	Overwrites int
	Uploads    [][]byte
}

func (g *Gateway) check(token string) error {
	if g.Err != nil {
		return g.Err
	}
	if g.AcceptToken != "" && token != g.AcceptToken {
		return syncerr.New(syncerr.Unauthorized, "fake", nil)
	}
	return nil
}

func (g *Gateway) Find(ctx context.Context, token string) (remotefile.Ref, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Finds++
	if err := g.check(token); err != nil {
		return "", false, err
	}
	if !g.Exists {
		return "", false, nil
	}
	return remotefile.FileName, true, nil
}

func (g *Gateway) Download(ctx context.Context, token string, ref remotefile.Ref) ([]byte, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Downloads++
	if err := g.check(token); err != nil {
		return nil, err
	}
	return append([]byte(nil), g.Doc...), nil
}

func (g *Gateway) Create(ctx context.Context, token string, doc []byte) (remotefile.Ref, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Creates++
	if err := g.check(token); err != nil {
		return "", err
	}
	g.store(doc)
	return remotefile.FileName, nil
}

func (g *Gateway) Overwrite(ctx context.Context, token string, ref remotefile.Ref, doc []byte) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Overwrites++
	if err := g.check(token); err != nil {
		return err
	}
	g.store(doc)
	return nil
}

func (g *Gateway) store(doc []byte) {
	g.Doc = append([]byte(nil), doc...)
	g.Exists = true
	g.Uploads = append(g.Uploads, g.Doc)
}

// Snapshot returns the stored document and the number of uploads so far.
func (g *Gateway) Snapshot() ([]byte, int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]byte(nil), g.Doc...), len(g.Uploads)
}

// Credentials is a fixed token that records revocation.
type Credentials struct {
	mu      sync.Mutex
	token   string
	Revoked int
}

// NewCredentials returns credentials holding token.
func NewCredentials(token string) *Credentials {
	return &Credentials{token: token}
}

func (c *Credentials) Token(ctx context.Context) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

func (c *Credentials) Revoke(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
	c.Revoked++
}
