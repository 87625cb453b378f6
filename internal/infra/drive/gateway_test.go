package drive

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dvloznov/finance-ledger/internal/remotefile"
	"github.com/dvloznov/finance-ledger/internal/syncerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

var _ remotefile.Gateway = (*Gateway)(nil)

func TestSearchQuery(t *testing.T) {
	assert.Equal(t, "name='finanzaflow_db_v2.json' and trashed = false", SearchQuery(remotefile.FileName))
	assert.Equal(t, `name='o\'brien.json' and trashed = false`, SearchQuery("o'brien.json"))
}

func newTestGateway(t *testing.T, h http.HandlerFunc) *Gateway {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewGateway(option.WithEndpoint(srv.URL + "/"))
}

func TestGateway_Find(t *testing.T) {
	var gotAuth, gotQuery string
	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.Query().Get("q")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"files":[{"id":"file-123","name":"finanzaflow_db_v2.json"}]}`))
	})

	ref, found, err := gw.Find(context.Background(), "tok")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, remotefile.Ref("file-123"), ref)
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, SearchQuery(remotefile.FileName), gotQuery)
}

func TestGateway_FindMissing(t *testing.T) {
	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"files":[]}`))
	})

	_, found, err := gw.Find(context.Background(), "tok")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestGateway_FindUnauthorized(t *testing.T) {
	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"code":401,"message":"Invalid Credentials"}}`))
	})

	_, _, err := gw.Find(context.Background(), "expired")
	assert.True(t, errors.Is(err, syncerr.ErrUnauthorized), "got %v", err)
}

func TestGateway_Download(t *testing.T) {
	var gotAlt string
	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		gotAlt = r.URL.Query().Get("alt")
		w.Write([]byte(`{"ff_v2_jars":[]}`))
	})

	data, err := gw.Download(context.Background(), "tok", "file-123")
	require.NoError(t, err)
	assert.Equal(t, `{"ff_v2_jars":[]}`, string(data))
	assert.Equal(t, "media", gotAlt)
}

// readMultipart splits a multipart/related upload into its metadata and
// media parts.
func readMultipart(t *testing.T, r *http.Request) (map[string]any, []byte) {
	t.Helper()
	mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	require.NoError(t, err)
	require.Equal(t, "multipart/related", mediaType)

	mr := multipart.NewReader(r.Body, params["boundary"])
	metaPart, err := mr.NextPart()
	require.NoError(t, err)
	var meta map[string]any
	require.NoError(t, json.NewDecoder(metaPart).Decode(&meta))

	mediaPart, err := mr.NextPart()
	require.NoError(t, err)
	media, err := io.ReadAll(mediaPart)
	require.NoError(t, err)
	return meta, media
}

func TestGateway_Create(t *testing.T) {
	var method, path, uploadType string
	var meta map[string]any
	var media []byte
	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		path = r.URL.Path
		uploadType = r.URL.Query().Get("uploadType")
		meta, media = readMultipart(t, r)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"file-new"}`))
	})

	ref, err := gw.Create(context.Background(), "tok", []byte(`{"ff_v2_rules":[]}`))
	require.NoError(t, err)
	assert.Equal(t, remotefile.Ref("file-new"), ref)
	assert.Equal(t, http.MethodPost, method)
	assert.True(t, strings.HasPrefix(path, "/upload/"), "got %s", path)
	assert.True(t, strings.HasSuffix(path, "/files"), "got %s", path)
	assert.Equal(t, "multipart", uploadType)
	assert.Equal(t, remotefile.FileName, meta["name"])
	assert.Equal(t, `{"ff_v2_rules":[]}`, string(media))
}

func TestGateway_Overwrite(t *testing.T) {
	var method, path string
	var media []byte
	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		path = r.URL.Path
		_, media = readMultipart(t, r)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"file-123"}`))
	})

	require.NoError(t, gw.Overwrite(context.Background(), "tok", "file-123", []byte(`{"ff_v2_jars":[]}`)))
	assert.Equal(t, http.MethodPatch, method)
	assert.True(t, strings.HasPrefix(path, "/upload/"), "got %s", path)
	assert.True(t, strings.HasSuffix(path, "/files/file-123"), "got %s", path)
	assert.Equal(t, `{"ff_v2_jars":[]}`, string(media))
}

func TestGateway_PushUnauthorized(t *testing.T) {
	unauthorized := func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"code":401,"message":"Invalid Credentials"}}`))
	}

	tests := []struct {
		name string
		push func(gw *Gateway) error
	}{
		{"create", func(gw *Gateway) error {
			_, err := gw.Create(context.Background(), "expired", []byte(`{}`))
			return err
		}},
		{"overwrite", func(gw *Gateway) error {
			return gw.Overwrite(context.Background(), "expired", "file-123", []byte(`{}`))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := newTestGateway(t, unauthorized)
			err := tt.push(gw)
			assert.True(t, errors.Is(err, syncerr.ErrUnauthorized), "got %v", err)
		})
	}
}
