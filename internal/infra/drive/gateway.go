// Package drive keeps the remote ledger document in the user's own Google
// Drive, authenticated with the user's OAuth bearer token.
package drive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/dvloznov/finance-ledger/internal/remotefile"
	"github.com/dvloznov/finance-ledger/internal/syncerr"
	"golang.org/x/oauth2"
	gdrive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const mimeJSON = "application/json"

// Gateway is a remotefile.Gateway on Drive v3. A Drive service is built for
// every call from the caller's token.
type Gateway struct {
	fileName string
	opts     []option.ClientOption
}

// NewGateway returns a gateway for the standard document name. opts are
// appended to every service (tests point them at a local endpoint).
func NewGateway(opts ...option.ClientOption) *Gateway {
	return &Gateway{fileName: remotefile.FileName, opts: opts}
}

func (g *Gateway) service(ctx context.Context, token string) (*gdrive.Service, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
	opts := append([]option.ClientOption{option.WithTokenSource(ts)}, g.opts...)
	svc, err := gdrive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	return svc, nil
}

// SearchQuery is the Drive query locating the document.
func SearchQuery(fileName string) string {
	escaped := strings.ReplaceAll(fileName, `'`, `\'`)
	return fmt.Sprintf("name='%s' and trashed = false", escaped)
}

func (g *Gateway) Find(ctx context.Context, token string) (remotefile.Ref, bool, error) {
	svc, err := g.service(ctx, token)
	if err != nil {
		return "", false, syncerr.Classify("drive.find", err)
	}

	list, err := svc.Files.List().
		Q(SearchQuery(g.fileName)).
		Fields("files(id, name)").
		Context(ctx).
		Do()
	if err != nil {
		return "", false, syncerr.Classify("drive.find", err)
	}
	if len(list.Files) == 0 {
		return "", false, nil
	}
	return remotefile.Ref(list.Files[0].Id), true, nil
}

func (g *Gateway) Download(ctx context.Context, token string, ref remotefile.Ref) ([]byte, error) {
	svc, err := g.service(ctx, token)
	if err != nil {
		return nil, syncerr.Classify("drive.download", err)
	}

	resp, err := svc.Files.Get(string(ref)).Context(ctx).Download()
	if err != nil {
		return nil, syncerr.Classify("drive.download", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, syncerr.Classify("drive.download", err)
	}
	return data, nil
}

func (g *Gateway) Create(ctx context.Context, token string, doc []byte) (remotefile.Ref, error) {
	svc, err := g.service(ctx, token)
	if err != nil {
		return "", syncerr.Classify("drive.create", err)
	}

	meta := &gdrive.File{Name: g.fileName, MimeType: mimeJSON}
	f, err := svc.Files.Create(meta).
		Media(bytes.NewReader(doc), googleapi.ContentType(mimeJSON)).
		Fields("id").
		Context(ctx).
		Do()
	if err != nil {
		return "", syncerr.Classify("drive.create", err)
	}
	return remotefile.Ref(f.Id), nil
}

func (g *Gateway) Overwrite(ctx context.Context, token string, ref remotefile.Ref, doc []byte) error {
	svc, err := g.service(ctx, token)
	if err != nil {
		return syncerr.Classify("drive.overwrite", err)
	}

	_, err = svc.Files.Update(string(ref), &gdrive.File{}).
		Media(bytes.NewReader(doc), googleapi.ContentType(mimeJSON)).
		Fields("id").
		Context(ctx).
		Do()
	if err != nil {
		return syncerr.Classify("drive.overwrite", err)
	}
	return nil
}
