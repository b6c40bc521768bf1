package handler

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"gopherai-docqa/internal/app"
	"gopherai-docqa/internal/rag"
	"gopherai-docqa/internal/transport/http/response"
)

const (
	askSessionNotFoundDetail = "Session not found. Please upload PDF files first."
	sessionDeletedMessage    = "Session deleted successfully"
)

type RAGHandler struct {
	ragService     *app.RAGService
	defaults       app.GenerationConfig
	maxUploadBytes int64
	historyLimit   int
}

type AskRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	Question  string `json:"question" binding:"required"`
}

func NewRAGHandler(ragService *app.RAGService, defaults app.GenerationConfig, maxUploadBytes int64, historyLimit int) *RAGHandler {
	return &RAGHandler{
		ragService:     ragService,
		defaults:       defaults,
		maxUploadBytes: maxUploadBytes,
		historyLimit:   historyLimit,
	}
}

// Upload reads multipart "files" plus the session settings and builds the
// session index.
func (h *RAGHandler) Upload(c *gin.Context) {
	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	}
	form, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, http.StatusRequestEntityTooLarge, "upload too large")
			return
		}
		response.Error(c, http.StatusBadRequest, "invalid multipart form")
		return
	}

	files := form.File["files"]
	if len(files) == 0 {
		response.Error(c, http.StatusBadRequest, "at least one file is required (form field 'files')")
		return
	}

	cfg, err := h.generationConfig(c)
	if err != nil {
		response.FromError(c, err)
		return
	}

	docs, err := readDocuments(files)
	if err != nil {
		response.FromError(c, err)
		return
	}

	result, err := h.ragService.Upload(c.Request.Context(), app.UploadInput{
		SessionID:  c.PostForm("session_id"),
		Documents:  docs,
		Generation: cfg,
	})
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, result)
}

func (h *RAGHandler) Ask(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request payload")
		return
	}
	result, err := h.ragService.Ask(c.Request.Context(), app.AskInput{
		SessionID: req.SessionID,
		Question:  req.Question,
	})
	if err != nil {
		if errors.Is(err, rag.ErrSessionNotFound) {
			response.Error(c, http.StatusNotFound, askSessionNotFoundDetail)
			return
		}
		response.FromError(c, err)
		return
	}
	response.OK(c, result)
}

func (h *RAGHandler) DeleteSession(c *gin.Context) {
	if err := h.ragService.DeleteSession(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, rag.ErrSessionNotFound) {
			response.Error(c, http.StatusNotFound, "Session not found")
			return
		}
		response.FromError(c, err)
		return
	}
	response.OK(c, gin.H{"message": sessionDeletedMessage})
}

func (h *RAGHandler) ListSessions(c *gin.Context) {
	response.OK(c, gin.H{"sessions": h.ragService.ListSessions()})
}

func (h *RAGHandler) History(c *gin.Context) {
	limit := h.historyLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			response.Error(c, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	exchanges, err := h.ragService.History(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		response.FromError(c, err)
		return
	}

	items := make([]gin.H, len(exchanges))
	for i := range exchanges {
		e := &exchanges[i]
		items[i] = gin.H{
			"question":   e.Question,
			"answer":     e.Answer,
			"sources":    e.SourceList(),
			"model":      e.Model,
			"created_at": e.CreatedAt,
		}
	}
	response.OK(c, gin.H{"session_id": c.Param("id"), "history": items})
}

// generationConfig applies the form values over the configured defaults.
func (h *RAGHandler) generationConfig(c *gin.Context) (app.GenerationConfig, error) {
	cfg := h.defaults
	if model, ok := c.GetPostForm("model"); ok && strings.TrimSpace(model) != "" {
		cfg.Model = strings.TrimSpace(model)
	}
	if raw, ok := c.GetPostForm("max_tokens"); ok && raw != "" {
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return cfg, rag.NewError(rag.KindInvalidInput, "max_tokens must be an integer", err)
		}
		cfg.MaxTokens = n
	}
	if raw, ok := c.GetPostForm("temperature"); ok && raw != "" {
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return cfg, rag.NewError(rag.KindInvalidInput, "temperature must be a number", err)
		}
		cfg.Temperature = f
	}
	return cfg, cfg.Validate()
}

func readDocuments(files []*multipart.FileHeader) ([]rag.Document, error) {
	docs := make([]rag.Document, 0, len(files))
	for _, fh := range files {
		data, err := readFile(fh)
		if err != nil {
			return nil, rag.NewError(rag.KindInvalidInput, fmt.Sprintf("cannot read upload %s", fh.Filename), err)
		}
		docs = append(docs, rag.Document{Name: fh.Filename, Data: data})
	}
	return docs, nil
}

func readFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
