package storage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/cloo-solutions/askdocs/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Method      string
	Path        string
	ContentType string
}

type fakeS3 struct {
	mu         sync.Mutex
	requests   []recordedRequest
	bucketSeen bool
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, recordedRequest{
		Method:      r.Method,
		Path:        r.URL.Path,
		ContentType: r.Header.Get("Content-Type"),
	})

	switch {
	case r.Method == http.MethodHead && r.URL.Path == "/docs":
		if !f.bucketSeen {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodPut && r.URL.Path == "/docs":
		f.bucketSeen = true
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodPut:
		w.Header().Set("ETag", `"abc"`)
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusNotImplemented)
	}
}

func (f *fakeS3) last() recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func newTestClient(t *testing.T, endpoint string) *S3Client {
	t.Helper()
	client, err := NewS3Client(context.Background(), S3ClientConfig{
		Endpoint:        endpoint,
		Region:          "us-east-1",
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
		Bucket:          "docs",
		UsePathStyle:    true,
	})
	require.NoError(t, err)
	client.newID = func() string { return "fixed-id" }
	return client
}

func TestS3Client_Archive(t *testing.T) {
	fake := &fakeS3{}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	doc := domain.NewDocument("reports/q1.txt", "text/plain", []byte("hello"))

	key, err := client.Archive(context.Background(), doc)

	require.NoError(t, err)
	assert.Equal(t, "documents/fixed-id/q1.txt", key)
	req := fake.last()
	assert.Equal(t, http.MethodPut, req.Method)
	assert.Equal(t, "/docs/documents/fixed-id/q1.txt", req.Path)
	assert.Equal(t, "text/plain", req.ContentType)
}

func TestS3Client_ArchiveNilDocument(t *testing.T) {
	client := newTestClient(t, "http://127.0.0.1:1")

	_, err := client.Archive(context.Background(), nil)

	require.Error(t, err)
}

func TestS3Client_ArchiveBackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	_, err := client.Archive(context.Background(), domain.NewDocument("a.txt", "text/plain", []byte("x")))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to put object")
}

func TestS3Client_EnsureBucketCreatesMissingBucket(t *testing.T) {
	fake := &fakeS3{}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	require.NoError(t, client.EnsureBucket(context.Background()))
	created := fake.last()
	assert.Equal(t, http.MethodPut, created.Method)
	assert.Equal(t, "/docs", created.Path)

	require.NoError(t, client.EnsureBucket(context.Background()))
	assert.Equal(t, http.MethodHead, fake.last().Method)
}

func TestObjectKey_FallsBackToDocumentName(t *testing.T) {
	client := &S3Client{newID: func() string { return "id" }}

	assert.Equal(t, "documents/id/notes.md", client.objectKey(&domain.Document{Name: "notes", Filename: "C:\\tmp\\notes.md"}))
	assert.Equal(t, "documents/id/notes", client.objectKey(&domain.Document{Name: "notes"}))
}
