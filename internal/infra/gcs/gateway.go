// Package gcs keeps the remote ledger document as an object in a Cloud
// Storage bucket and fetches statement files referenced by gs:// URIs.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/dvloznov/finance-ledger/internal/remotefile"
	"github.com/dvloznov/finance-ledger/internal/syncerr"
)

// Gateway is a remotefile.Gateway on one bucket. The client authenticates
// with Application Default Credentials, so the per-call token is not used.
type Gateway struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGateway creates a storage client and a gateway writing under prefix.
func NewGateway(ctx context.Context, bucket, prefix string) (*Gateway, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return NewGatewayWithClient(client, bucket, prefix), nil
}

// NewGatewayWithClient wraps an existing client.
func NewGatewayWithClient(client *storage.Client, bucket, prefix string) *Gateway {
	return &Gateway{client: client, bucket: bucket, prefix: prefix}
}

// Close releases the storage client.
func (g *Gateway) Close() error {
	return g.client.Close()
}

// ObjectName is the object holding the ledger document.
func (g *Gateway) ObjectName() string {
	return ObjectName(g.prefix)
}

// ObjectName joins prefix and the fixed document name.
func ObjectName(prefix string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return remotefile.FileName
	}
	return path.Join(prefix, remotefile.FileName)
}

func (g *Gateway) object(ref remotefile.Ref) *storage.ObjectHandle {
	return g.client.Bucket(g.bucket).Object(string(ref))
}

func (g *Gateway) Find(ctx context.Context, token string) (remotefile.Ref, bool, error) {
	name := g.ObjectName()
	_, err := g.object(remotefile.Ref(name)).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, classify("gcs.find", err)
	}
	return remotefile.Ref(name), true, nil
}

func (g *Gateway) Download(ctx context.Context, token string, ref remotefile.Ref) ([]byte, error) {
	r, err := g.object(ref).NewReader(ctx)
	if err != nil {
		return nil, classify("gcs.download", err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, classify("gcs.download", err)
	}
	return data, nil
}

func (g *Gateway) Create(ctx context.Context, token string, doc []byte) (remotefile.Ref, error) {
	ref := remotefile.Ref(g.ObjectName())
	if err := g.write(ctx, ref, doc); err != nil {
		return "", classify("gcs.create", err)
	}
	return ref, nil
}

func (g *Gateway) Overwrite(ctx context.Context, token string, ref remotefile.Ref, doc []byte) error {
	if err := g.write(ctx, ref, doc); err != nil {
		return classify("gcs.overwrite", err)
	}
	return nil
}

func (g *Gateway) write(ctx context.Context, ref remotefile.Ref, doc []byte) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := g.object(ref).NewWriter(ctx)
	w.ContentType = "application/json"
	if _, err := w.Write(doc); err != nil {
		_ = w.Close()
		return fmt.Errorf("write object: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize upload: %w", err)
	}
	return nil
}

func classify(op string, err error) error {
	if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
		return syncerr.New(syncerr.RemoteNotFound, op, err)
	}
	return syncerr.Classify(op, err)
}

// Fetch downloads the object behind a gs://bucket/path URI.
func (g *Gateway) Fetch(ctx context.Context, uri string) ([]byte, error) {
	bucket, object, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}

	rc, err := g.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", uri, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: reading bytes: %w", uri, err)
	}
	return data, nil
}

// ParseURI splits gs://bucket/path/to/file into bucket and object name.
func ParseURI(uri string) (bucket, object string, err error) {
	if !strings.HasPrefix(uri, "gs://") {
		return "", "", fmt.Errorf("invalid GCS URI: %s", uri)
	}
	parts := strings.SplitN(strings.TrimPrefix(uri, "gs://"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", uri)
	}
	return parts[0], parts[1], nil
}

// FileName returns the last path element of a gs:// URI.
func FileName(uri string) string {
	_, object, err := ParseURI(uri)
	if err != nil {
		return path.Base(strings.TrimPrefix(uri, "gs://"))
	}
	return path.Base(object)
}

// Upload stores a statement file under <prefix>/statements/ and returns its
// gs:// URI. The object name is prefixed with the upload date so repeated
// uploads of the same file name do not collide across days.
func (g *Gateway) Upload(ctx context.Context, fileName, contentType string, data []byte) (string, error) {
	object := StatementObject(g.prefix, time.Now(), fileName)

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := g.client.Bucket(g.bucket).Object(object).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("copy file to GCS writer: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize upload: %w", err)
	}
	return "gs://" + g.bucket + "/" + object, nil
}

// StatementObject names an uploaded statement.
func StatementObject(prefix string, at time.Time, fileName string) string {
	name := at.UTC().Format("2006-01-02") + "_" + path.Base(fileName)
	return path.Join(strings.Trim(prefix, "/"), "statements", name)
}
