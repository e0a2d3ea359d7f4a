//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cloo-solutions/askdocs/internal/api/handlers"
	"github.com/cloo-solutions/askdocs/internal/extract"
	"github.com/cloo-solutions/askdocs/internal/metrics"
	"github.com/cloo-solutions/askdocs/internal/ollama"
	"github.com/cloo-solutions/askdocs/internal/repository"
	"github.com/cloo-solutions/askdocs/internal/server"
	"github.com/cloo-solutions/askdocs/internal/service"
	"github.com/cloo-solutions/askdocs/internal/storage"
	"github.com/cloo-solutions/askdocs/internal/testutil"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// e2eDimensions matches the default all-minilm embedding size.
const e2eDimensions = 384

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T            *testing.T
	Ctx          context.Context
	PostgresC    *testutil.PostgresContainer
	RustFSC      *testutil.RustFSContainer
	Pool         *pgxpool.Pool
	Ollama       *httptest.Server
	ServerURL    string
	ServerCloser func()
	S3Client     *storage.S3Client
	BinaryDir    string
	HTTPClient   *http.Client
}

// SetupE2EEnv creates a full E2E test environment with containers and server
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	s3C := testutil.NewRustFSContainer(ctx, t)

	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        s3C.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     testutil.RustFSAccessKey,
		SecretAccessKey: testutil.RustFSSecretKey,
		Bucket:          "test-documents",
		UsePathStyle:    true,
	})
	if err != nil {
		t.Fatalf("failed to create S3 client: %v", err)
	}
	if err := s3Client.EnsureBucket(ctx); err != nil {
		t.Fatalf("failed to create bucket: %v", err)
	}

	ollamaSrv := newFakeOllama()

	port, err := getFreePort()
	if err != nil {
		t.Fatalf("failed to get free port: %v", err)
	}

	serverURL, serverCloser := startServer(t, pool, s3Client, ollamaSrv.URL, port)

	return &E2ETestEnv{
		T:            t,
		Ctx:          ctx,
		PostgresC:    pgC,
		RustFSC:      s3C,
		Pool:         pool,
		Ollama:       ollamaSrv,
		ServerURL:    serverURL,
		ServerCloser: serverCloser,
		S3Client:     s3Client,
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.ServerCloser != nil {
		e.ServerCloser()
	}
	if e.Ollama != nil {
		e.Ollama.Close()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.RustFSC != nil {
		e.RustFSC.Terminate(e.Ctx)
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
	if e.BinaryDir != "" {
		os.RemoveAll(e.BinaryDir)
	}
}

// newFakeOllama embeds text as a bag of hashed words and answers chats with
// the first context passage sharing a word with the question.
func newFakeOllama() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/embeddings", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Prompt string `json:"prompt"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"bad request"}`, http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"embedding": hashVector(req.Prompt)})
	})
	mux.HandleFunc("/api/chat", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Messages) == 0 {
			http.Error(w, `{"error":"bad request"}`, http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]string{"role": "assistant", "content": answerFromPrompt(req.Messages[len(req.Messages)-1].Content)},
		})
	})
	return httptest.NewServer(mux)
}

func words(text string) []string {
	var out []string
	for _, w := range strings.Fields(strings.ToLower(text)) {
		if w = strings.Trim(w, ".,;:!?\"'"); w != "" {
			out = append(out, w)
		}
	}
	return out
}

func hashVector(text string) []float32 {
	vec := make([]float32, e2eDimensions)
	vec[0] = 1
	for _, w := range words(text) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		vec[1+int(h.Sum32())%(e2eDimensions-1)]++
	}
	return vec
}

func answerFromPrompt(prompt string) string {
	contextStart := strings.Index(prompt, "Context:\n")
	questionStart := strings.Index(prompt, "User question:\n")
	if contextStart < 0 || questionStart < contextStart {
		return "I do not know."
	}
	contextBlock := prompt[contextStart+len("Context:\n") : questionStart]
	question := map[string]bool{}
	for _, w := range words(prompt[questionStart+len("User question:\n"):]) {
		if len(w) > 3 {
			question[w] = true
		}
	}

	for _, passage := range strings.Split(contextBlock, service.ContextSeparator) {
		for _, w := range words(passage) {
			if question[w] {
				return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(passage), "---"))
			}
		}
	}
	return "I do not know."
}

// startServer wires the real pipeline against Postgres, RustFS and the fake
// Ollama server.
func startServer(t *testing.T, pool *pgxpool.Pool, s3Client *storage.S3Client, ollamaURL string, port int) (string, func()) {
	store := repository.NewPassageRepository(pool, e2eDimensions)
	client, err := ollama.NewClient(ollama.Config{BaseURL: ollamaURL})
	if err != nil {
		t.Fatalf("failed to create ollama client: %v", err)
	}

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	gateway := service.NewEmbeddingGateway(client, service.EmbeddingGatewayConfig{
		Dimensions:  e2eDimensions,
		Timeout:     10 * time.Second,
		Concurrency: 4,
	}).WithObserver(m)
	indexer := service.NewIndexerWithConfig(gateway, store, extract.NewExtractor(), service.ChunkConfig{ChunkSize: 50}).
		WithArchive(s3Client)
	composer := service.NewAnswerComposer(client, 10*time.Second).WithObserver(m)
	askSvc := service.NewAskService(service.NewRetriever(gateway, store), composer, 3)

	router := server.NewRouter(server.RouterConfig{
		DocumentHandler: handlers.NewDocumentHandler(indexer, store).WithObserver(m),
		AskHandler:      handlers.NewAskHandler(askSvc).WithObserver(m),
		HealthHandler:   handlers.NewHealthHandler(store),
		HTTPObserver:    m,
		MetricsHandler:  promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			t.Logf("server error: %v", err)
		}
	}()

	serverURL := fmt.Sprintf("http://localhost:%d", port)
	waitForServer(t, serverURL, 10*time.Second)

	return serverURL, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
}

// BuildBinaries builds the askdocs CLI
func (e *E2ETestEnv) BuildBinaries() {
	tmpDir, err := os.MkdirTemp("", "askdocs-e2e-*")
	if err != nil {
		e.T.Fatalf("failed to create temp dir: %v", err)
	}
	e.BinaryDir = tmpDir

	cmd := exec.Command("go", "build", "-o", filepath.Join(tmpDir, "askdocs"), "./cmd/askdocs")
	cmd.Dir = "../.."
	if out, err := cmd.CombinedOutput(); err != nil {
		e.T.Fatalf("failed to build askdocs: %v\n%s", err, out)
	}
}

// RunAskdocs runs the askdocs CLI against the test server
func (e *E2ETestEnv) RunAskdocs(workDir string, args ...string) (string, error) {
	cmd := exec.Command(filepath.Join(e.BinaryDir, "askdocs"), args...)
	cmd.Dir = workDir
	cmd.Env = append(os.Environ(),
		fmt.Sprintf("ASKDOCS_API_URL=%s", e.ServerURL),
		fmt.Sprintf("XDG_CONFIG_HOME=%s", workDir),
		fmt.Sprintf("HOME=%s", workDir),
	)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// APIResponse represents a standard API response
type APIResponse struct {
	StatusCode int
	Data       json.RawMessage `json:"data"`
	Error      string          `json:"error,omitempty"`
	Code       string          `json:"code,omitempty"`
}

// Get performs a GET request
func (e *E2ETestEnv) Get(path string) (*APIResponse, error) {
	req, err := http.NewRequest(http.MethodGet, e.ServerURL+path, nil)
	if err != nil {
		return nil, err
	}
	return e.do(req)
}

// Post performs a JSON POST request
func (e *E2ETestEnv) Post(path string, body any) (*APIResponse, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal body: %w", err)
	}
	req, err := http.NewRequest(http.MethodPost, e.ServerURL+path, bytes.NewReader(jsonData))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return e.do(req)
}

// Upload sends content as the multipart "file" field of /upload-document.
func (e *E2ETestEnv) Upload(filename string, content []byte) (*APIResponse, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(content); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodPost, e.ServerURL+"/upload-document", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return e.do(req)
}

// do returns the decoded envelope for any status; callers assert on
// StatusCode.
func (e *E2ETestEnv) do(req *http.Request) (*APIResponse, error) {
	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	apiResp := &APIResponse{StatusCode: resp.StatusCode}
	if err := json.Unmarshal(respBody, apiResp); err != nil {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}
	return apiResp, nil
}

func waitForServer(t *testing.T, url string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("server did not start within %v", timeout)
}

func getFreePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
