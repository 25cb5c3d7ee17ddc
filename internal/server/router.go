// Package server exposes the note repository over a local JSON HTTP API.
package server

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/zenotes/internal/editor"
	"github.com/MarcoPoloResearchLab/zenotes/internal/mindmap"
	"github.com/MarcoPoloResearchLab/zenotes/internal/notes"
	"github.com/MarcoPoloResearchLab/zenotes/internal/settings"
	"github.com/MarcoPoloResearchLab/zenotes/internal/summarize"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const (
	subjectContextKey = "zenotes_subject"
	maxImportBytes    = 5 << 20
)

var (
	errMissingRepository    = errors.New("notes repository dependency required")
	errMissingSettings      = errors.New("settings store dependency required")
	errInvalidAuthorization = errors.New("authorization header missing or invalid")
)

// TokenValidator checks bearer tokens and returns their subject.
type TokenValidator interface {
	ValidateToken(token string) (string, error)
}

// Dependencies wires the handler. Tokens and Summarizer are optional: without
// Tokens every route is open, without Summarizer the summary route reports 503.
type Dependencies struct {
	Repository        *notes.Repository
	Settings          *settings.Store
	Summarizer        editor.Summarizer
	Tokens            TokenValidator
	Realtime          *RealtimeDispatcher
	HeartbeatInterval time.Duration
	Logger            *zap.Logger
}

// NewHTTPHandler builds the gin engine. When deps.Realtime is nil a dispatcher is
// created and bridged to the repository.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.Repository == nil {
		return nil, errMissingRepository
	}
	if deps.Settings == nil {
		return nil, errMissingSettings
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	realtime := deps.Realtime
	if realtime == nil {
		realtime = NewRealtimeDispatcher()
		BridgeRepository(deps.Repository, realtime)
	}
	heartbeat := deps.HeartbeatInterval
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeatInterval
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	handler := &httpHandler{
		repository: deps.Repository,
		settings:   deps.Settings,
		summarizer: deps.Summarizer,
		tokens:     deps.Tokens,
		realtime:   realtime,
		heartbeat:  heartbeat,
		logger:     logger,
	}

	router.GET("/healthz", handler.handleHealth)

	protected := router.Group("/")
	protected.Use(handler.authorizeRequest)

	protected.GET("/notes", handler.handleListNotes)
	protected.POST("/notes", handler.handleCreateNote)
	protected.POST("/notes/import", handler.handleImportNote)
	protected.GET("/notes/:id", handler.handleGetNote)
	protected.PATCH("/notes/:id", handler.handleUpdateNote)
	protected.DELETE("/notes/:id", handler.handleDeleteNote)
	protected.POST("/notes/:id/favorite", handler.handleToggleFavorite)
	protected.POST("/notes/:id/tags", handler.handleAddTag)
	protected.DELETE("/notes/:id/tags/:tag", handler.handleRemoveTag)
	protected.GET("/notes/:id/mindmap", handler.handleMindMap)
	protected.GET("/notes/:id/export", handler.handleExport)
	protected.GET("/notes/:id/stats", handler.handleStats)
	protected.POST("/notes/:id/summary", handler.handleSummary)

	protected.GET("/search", handler.handleSearch)
	protected.GET("/tags", handler.handleListTags)
	protected.GET("/tags/:tag", handler.handleNotesByTag)
	protected.GET("/favorites", handler.handleFavorites)
	protected.GET("/templates", handler.handleTemplates)

	protected.GET("/settings", handler.handleGetSettings)
	protected.PATCH("/settings", handler.handleUpdateSettings)

	protected.GET("/events", handler.handleEvents)

	return router, nil
}

// corsMiddleware admits browser front ends served from the local machine.
func corsMiddleware() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOriginFunc: isLocalOrigin,
		AllowMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowHeaders:  []string{"Authorization", "Content-Type", "Last-Event-ID"},
		ExposeHeaders: []string{"Content-Disposition"},
		MaxAge:        12 * time.Hour,
	})
}

func isLocalOrigin(origin string) bool {
	parsed, err := url.Parse(origin)
	if err != nil {
		return false
	}
	switch parsed.Hostname() {
	case "localhost", "127.0.0.1", "::1":
		return parsed.Scheme == "http" || parsed.Scheme == "https"
	default:
		return false
	}
}

type httpHandler struct {
	repository *notes.Repository
	settings   *settings.Store
	summarizer editor.Summarizer
	tokens     TokenValidator
	realtime   *RealtimeDispatcher
	heartbeat  time.Duration
	logger     *zap.Logger
}

func (h *httpHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *httpHandler) authorizeRequest(c *gin.Context) {
	if h.tokens == nil {
		c.Next()
		return
	}
	token := ""
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		token = strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	} else if header == "" {
		// EventSource cannot set headers.
		token = strings.TrimSpace(c.Query("access_token"))
	}
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
		return
	}
	subject, err := h.tokens.ValidateToken(token)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			h.logger.Info("token validation failed", zap.Error(err))
		} else {
			h.logger.Warn("token validation failed", zap.Error(err))
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Set(subjectContextKey, subject)
	c.Next()
}

type notesResponse struct {
	Notes []notes.Note `json:"notes"`
}

type createNoteRequest struct {
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	Tags       []string `json:"tags"`
	IsFavorite bool     `json:"isFavorite"`
	Template   string   `json:"template"`
}

type updateNoteRequest struct {
	Title      *string   `json:"title"`
	Content    *string   `json:"content"`
	Tags       *[]string `json:"tags"`
	IsFavorite *bool     `json:"isFavorite"`
}

type tagRequest struct {
	Tag string `json:"tag"`
}

type importRequest struct {
	Name    string   `json:"name"`
	Content string   `json:"content"`
	Title   string   `json:"title"`
	Tags    []string `json:"tags"`
}

type summaryRequest struct {
	Append bool `json:"append"`
}

func (h *httpHandler) handleListNotes(c *gin.Context) {
	c.JSON(http.StatusOK, notesResponse{Notes: h.repository.Notes()})
}

func (h *httpHandler) handleGetNote(c *gin.Context) {
	note, ok := h.repository.GetNote(c.Param("id"))
	if !ok {
		respondNoteNotFound(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{"note": note})
}

func (h *httpHandler) handleCreateNote(c *gin.Context) {
	var request createNoteRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	var (
		id  string
		err error
	)
	if request.Template != "" {
		id, err = h.repository.AddNoteFromTemplate(c.Request.Context(), request.Template, request.Title, request.Tags)
	} else {
		id, err = h.repository.AddNote(c.Request.Context(), notes.NoteDraft{
			Title:      request.Title,
			Content:    request.Content,
			Tags:       request.Tags,
			IsFavorite: request.IsFavorite,
		})
	}
	if errors.Is(err, notes.ErrUnknownTemplate) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown_template"})
		return
	}
	if err != nil {
		h.logger.Error("failed to create note", zap.Error(err))
		respondWithServiceError(c, "note_create_failed", err)
		return
	}
	h.respondWithNote(c, http.StatusCreated, id)
}

func (h *httpHandler) handleUpdateNote(c *gin.Context) {
	var request updateNoteRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	patch := notes.NotePatch{
		Title:      request.Title,
		Content:    request.Content,
		IsFavorite: request.IsFavorite,
	}
	if request.Tags != nil {
		patch.Tags = append([]string{}, (*request.Tags)...)
	}
	id := c.Param("id")
	if !h.repository.UpdateNote(c.Request.Context(), id, patch) {
		respondNoteNotFound(c)
		return
	}
	h.respondWithNote(c, http.StatusOK, id)
}

func (h *httpHandler) handleDeleteNote(c *gin.Context) {
	if !h.repository.DeleteNote(c.Request.Context(), c.Param("id")) {
		respondNoteNotFound(c)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleToggleFavorite(c *gin.Context) {
	id := c.Param("id")
	if !h.repository.ToggleFavorite(c.Request.Context(), id) {
		respondNoteNotFound(c)
		return
	}
	h.respondWithNote(c, http.StatusOK, id)
}

func (h *httpHandler) handleAddTag(c *gin.Context) {
	var request tagRequest
	if err := c.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.Tag) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_tag"})
		return
	}
	id := c.Param("id")
	if _, ok := h.repository.GetNote(id); !ok {
		respondNoteNotFound(c)
		return
	}
	changed := h.repository.AddTag(c.Request.Context(), id, request.Tag)
	note, ok := h.repository.GetNote(id)
	if !ok {
		respondNoteNotFound(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{"note": note, "changed": changed})
}

func (h *httpHandler) handleRemoveTag(c *gin.Context) {
	id := c.Param("id")
	if _, ok := h.repository.GetNote(id); !ok {
		respondNoteNotFound(c)
		return
	}
	changed := h.repository.RemoveTag(c.Request.Context(), id, c.Param("tag"))
	note, ok := h.repository.GetNote(id)
	if !ok {
		respondNoteNotFound(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{"note": note, "changed": changed})
}

func (h *httpHandler) handleMindMap(c *gin.Context) {
	note, ok := h.repository.GetNote(c.Param("id"))
	if !ok {
		respondNoteNotFound(c)
		return
	}
	c.JSON(http.StatusOK, mindmap.Project(note.Content, note.Title))
}

func (h *httpHandler) handleExport(c *gin.Context) {
	note, ok := h.repository.GetNote(c.Param("id"))
	if !ok {
		respondNoteNotFound(c)
		return
	}
	format, err := editor.ParseFormat(c.Query("format"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_format"})
		return
	}
	document, err := editor.Export(note, format)
	if err != nil {
		h.logger.Error("failed to export note", zap.String("note_id", note.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export_failed"})
		return
	}
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": document.Filename}))
	c.Data(http.StatusOK, document.ContentType, document.Body)
}

func (h *httpHandler) handleStats(c *gin.Context) {
	stats, ok := h.repository.Stats(c.Param("id"))
	if !ok {
		respondNoteNotFound(c)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *httpHandler) handleSummary(c *gin.Context) {
	if h.summarizer == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "summarizer_unavailable"})
		return
	}
	var request summaryRequest
	if err := c.ShouldBindJSON(&request); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	id := c.Param("id")
	note, ok := h.repository.GetNote(id)
	if !ok {
		respondNoteNotFound(c)
		return
	}

	summary, err := h.summarizer.Summarize(c.Request.Context(), note.Content)
	if err != nil {
		status, code := classifySummaryError(err)
		h.logger.Warn("summary failed", zap.String("note_id", id), zap.String("reason", code), zap.Error(err))
		c.JSON(status, gin.H{"error": code, "message": summarize.Message(err)})
		return
	}

	if request.Append {
		content := note.Content + "\n\n## Summary\n\n" + summary
		if !h.repository.UpdateNote(c.Request.Context(), id, notes.NotePatch{Content: &content}) {
			respondNoteNotFound(c)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"summary": summary, "appended": request.Append})
}

func classifySummaryError(err error) (int, string) {
	switch {
	case errors.Is(err, summarize.ErrContentTooShort):
		return http.StatusBadRequest, "content_too_short"
	case errors.Is(err, summarize.ErrMissingAPIKey):
		return http.StatusServiceUnavailable, "summarizer_unavailable"
	case errors.Is(err, summarize.ErrAuthentication):
		return http.StatusBadGateway, "summarizer_unauthorized"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "summary_timeout"
	default:
		return http.StatusBadGateway, "summary_failed"
	}
}

func (h *httpHandler) handleImportNote(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxImportBytes)

	var request importRequest
	var data []byte
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fileHeader, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing_file"})
			return
		}
		file, err := fileHeader.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing_file"})
			return
		}
		defer file.Close()
		data, err = io.ReadAll(file)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_file"})
			return
		}
		request.Name = fileHeader.Filename
		request.Title = c.PostForm("title")
		request.Tags = c.PostFormArray("tags")
	} else {
		if err := c.ShouldBindJSON(&request); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
			return
		}
		data = []byte(request.Content)
	}

	imported, err := editor.Import(c.Request.Context(), h.repository, request.Name, data, editor.ImportOptions{
		Title: request.Title,
		Tags:  request.Tags,
	})
	if err != nil {
		var serviceErr *notes.ServiceError
		if errors.As(err, &serviceErr) {
			h.logger.Error("failed to import note", zap.Error(err))
			respondWithServiceError(c, "note_import_failed", err)
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_file"})
		return
	}
	h.respondWithNote(c, http.StatusCreated, imported.ID)
}

func (h *httpHandler) handleSearch(c *gin.Context) {
	c.JSON(http.StatusOK, notesResponse{Notes: h.repository.SearchNotes(c.Query("q"))})
}

func (h *httpHandler) handleListTags(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tags": notes.FilterTagCounts(h.repository.AllTags(), c.Query("q"))})
}

func (h *httpHandler) handleNotesByTag(c *gin.Context) {
	c.JSON(http.StatusOK, notesResponse{Notes: h.repository.NotesByTag(c.Param("tag"))})
}

func (h *httpHandler) handleFavorites(c *gin.Context) {
	c.JSON(http.StatusOK, notesResponse{Notes: h.repository.Favorites()})
}

func (h *httpHandler) handleTemplates(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"templates": h.repository.Templates()})
}

func (h *httpHandler) handleGetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"settings": h.settings.Current()})
}

func (h *httpHandler) handleUpdateSettings(c *gin.Context) {
	var patch settings.Patch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	updated, err := h.settings.Update(c.Request.Context(), patch)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_settings", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": updated})
}

func (h *httpHandler) handleEvents(c *gin.Context) {
	ctx := c.Request.Context()
	stream, cleanup := h.realtime.Subscribe(ctx)
	defer cleanup()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	c.SSEvent(realtimeEventReady, gin.H{"source": realtimeSourceBackend})
	c.Writer.Flush()

	c.Stream(func(io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case message, ok := <-stream:
			if !ok {
				return false
			}
			c.SSEvent(message.EventType, gin.H{
				"kind":      message.Kind,
				"noteIds":   message.NoteIDs,
				"timestamp": message.Timestamp.UTC().Format(time.RFC3339Nano),
				"source":    realtimeSourceBackend,
			})
			return true
		case tick := <-ticker.C:
			c.SSEvent(realtimeEventHeartbeat, gin.H{"timestamp": tick.UTC().Format(time.RFC3339Nano)})
			return true
		}
	})
}

func (h *httpHandler) respondWithNote(c *gin.Context, status int, id string) {
	note, ok := h.repository.GetNote(id)
	if !ok {
		respondNoteNotFound(c)
		return
	}
	c.JSON(status, gin.H{"note": note})
}

func respondNoteNotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "note_not_found"})
}

func respondWithServiceError(c *gin.Context, fallback string, err error) {
	var serviceErr *notes.ServiceError
	if errors.As(err, &serviceErr) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback, "code": serviceErr.Code()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
}
