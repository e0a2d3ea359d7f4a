package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/cloo-solutions/askdocs/internal/api"
	"github.com/cloo-solutions/askdocs/internal/domain"
)

const (
	uploadFormField = "file"
	multipartMemory = 8 << 20
	uploadedMessage = "Document processed successfully"
)

type DocumentIngester interface {
	IngestDocument(ctx context.Context, doc *domain.Document) (int, error)
}

type DocumentCatalog interface {
	Count(ctx context.Context) (int, error)
	ListDocuments(ctx context.Context) ([]domain.DocumentSummary, error)
}

// IngestionObserver is notified of every upload outcome.
type IngestionObserver interface {
	ObserveIngestion(passages int, err error)
}

type DocumentHandler struct {
	ingester DocumentIngester
	catalog  DocumentCatalog
	observer IngestionObserver
}

func NewDocumentHandler(ingester DocumentIngester, catalog DocumentCatalog) *DocumentHandler {
	return &DocumentHandler{ingester: ingester, catalog: catalog}
}

func (h *DocumentHandler) WithObserver(o IngestionObserver) *DocumentHandler {
	h.observer = o
	return h
}

type UploadDocumentResponse struct {
	Message      string `json:"message"`
	DocumentName string `json:"document_name"`
	Filename     string `json:"filename"`
	Passages     int    `json:"passages"`
}

type DocumentSummaryResponse struct {
	DocumentName string `json:"document_name"`
	Passages     int    `json:"passages"`
}

type ListDocumentsResponse struct {
	Documents     []DocumentSummaryResponse `json:"documents"`
	TotalPassages int                       `json:"total_passages"`
}

// Upload accepts a multipart upload in the "file" field, extracts its text
// and indexes it.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			api.HandleError(w, err)
			return
		}
		api.Error(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(uploadFormField)
	if err != nil {
		api.Error(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	if strings.TrimSpace(header.Filename) == "" {
		api.Error(w, http.StatusBadRequest, "filename is required")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		api.Error(w, http.StatusBadRequest, "failed to read uploaded file")
		return
	}

	doc := domain.NewDocument(header.Filename, header.Header.Get("Content-Type"), data)
	if doc.Name == "" {
		api.Error(w, http.StatusBadRequest, "filename is required")
		return
	}

	passages, err := h.ingester.IngestDocument(r.Context(), doc)
	if h.observer != nil {
		h.observer.ObserveIngestion(passages, err)
	}
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, UploadDocumentResponse{
		Message:      uploadedMessage,
		DocumentName: doc.Name,
		Filename:     header.Filename,
		Passages:     passages,
	})
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.catalog.ListDocuments(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := ListDocumentsResponse{Documents: make([]DocumentSummaryResponse, 0, len(summaries))}
	for _, s := range summaries {
		resp.Documents = append(resp.Documents, DocumentSummaryResponse{
			DocumentName: s.DocumentName,
			Passages:     s.Passages,
		})
		resp.TotalPassages += s.Passages
	}

	api.Success(w, http.StatusOK, resp)
}
