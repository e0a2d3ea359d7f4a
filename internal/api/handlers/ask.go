package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/cloo-solutions/askdocs/internal/api"
	"github.com/cloo-solutions/askdocs/internal/domain"
	"github.com/cloo-solutions/askdocs/internal/service"
)

type QuestionAnswerer interface {
	Ask(ctx context.Context, question string) (*service.AskOutput, error)
}

// QuestionObserver is notified of every question outcome.
type QuestionObserver interface {
	ObserveQuestion(err error)
}

type AskHandler struct {
	svc      QuestionAnswerer
	observer QuestionObserver
}

func NewAskHandler(svc QuestionAnswerer) *AskHandler {
	return &AskHandler{svc: svc}
}

func (h *AskHandler) WithObserver(o QuestionObserver) *AskHandler {
	h.observer = o
	return h
}

type AskRequest struct {
	Question string `json:"question"`
}

type SourceResponse struct {
	ID           int64          `json:"id"`
	Text         string         `json:"text"`
	DocumentName string         `json:"document_name"`
	ChunkIndex   int            `json:"chunk_index"`
	Score        float64        `json:"score"`
	Metadata     map[string]any `json:"metadata"`
}

type AskResponse struct {
	Question string           `json:"question"`
	Answer   string           `json:"answer"`
	Sources  []SourceResponse `json:"sources"`
}

func sourceToResponse(p domain.ScoredPassage) SourceResponse {
	idx, _ := p.Metadata.ChunkIndex()
	meta := map[string]any(p.Metadata)
	if meta == nil {
		meta = map[string]any{}
	}
	return SourceResponse{
		ID:           p.ID,
		Text:         p.Text,
		DocumentName: p.Metadata.DocumentName(),
		ChunkIndex:   idx,
		Score:        p.Score,
		Metadata:     meta,
	}
}

// Ask answers a question from the indexed documents. An empty question is
// rejected before any backend is contacted.
func (h *AskHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.Question) == "" {
		h.observe(domain.ErrEmptyQuestion)
		api.HandleError(w, domain.ErrEmptyQuestion)
		return
	}

	out, err := h.svc.Ask(r.Context(), req.Question)
	h.observe(err)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, NewAskResponse(out))
}

// NewAskResponse converts a service answer into its JSON shape.
func NewAskResponse(out *service.AskOutput) AskResponse {
	resp := AskResponse{
		Question: out.Question,
		Answer:   out.Answer,
		Sources:  make([]SourceResponse, 0, len(out.Sources)),
	}
	for _, p := range out.Sources {
		resp.Sources = append(resp.Sources, sourceToResponse(p))
	}
	return resp
}

func (h *AskHandler) observe(err error) {
	if h.observer != nil {
		h.observer.ObserveQuestion(err)
	}
}
