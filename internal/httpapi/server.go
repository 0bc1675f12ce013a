// Package httpapi exposes a workspace over a JSON REST API.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"docqa/internal/domain"
	"docqa/internal/ingest"
	"docqa/internal/service"
)

// maxUploadBytes bounds uploaded files and raw text bodies.
const maxUploadBytes = 20 << 20

// Workspace is the subset of service.Workspace served over HTTP.
type Workspace interface {
	Add(ctx context.Context, doc domain.Document, onProgress func(service.Progress)) (service.DocumentState, error)
	Remove(id string) bool
	Documents() []service.DocumentState
	Stats() service.Stats
	Ask(ctx context.Context, question string, history []domain.Message) (domain.RAGResponse, error)
}

// Server holds the HTTP handlers.
type Server struct {
	ws      Workspace
	scraper ingest.Scraper
	logger  *slog.Logger
}

func NewServer(ws Workspace, scraper ingest.Scraper, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{ws: ws, scraper: scraper, logger: logger}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	v1 := r.Group("/api/v1")
	v1.GET("/documents", s.listDocuments)
	v1.POST("/documents", s.uploadDocument)
	v1.POST("/documents/url", s.addURL)
	v1.DELETE("/documents/:id", s.deleteDocument)
	v1.GET("/stats", s.stats)
	v1.POST("/query", s.query)
	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}

func (s *Server) listDocuments(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"documents": s.ws.Documents()})
}

// uploadDocument accepts a multipart "file" field (.pdf, .txt, .md) or a
// raw text body named by the "name" query parameter.
func (s *Server) uploadDocument(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)

	var doc domain.Document
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fh, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "missing file field"})
			return
		}
		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "failed to open upload"})
			return
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "failed to read upload"})
			return
		}
		switch strings.ToLower(filepath.Ext(fh.Filename)) {
		case ".pdf":
			doc, err = ingest.FromPDF(fh.Filename, data)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
				return
			}
		case ".txt", ".md":
			doc = ingest.FromText(fh.Filename, string(data))
		default:
			c.JSON(http.StatusBadRequest, gin.H{"message": ingest.ErrUnsupported.Error()})
			return
		}
	} else {
		data, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "failed to read body"})
			return
		}
		doc = ingest.FromText(c.DefaultQuery("name", "Pasted text"), string(data))
	}
	s.add(c, doc)
}

type urlRequest struct {
	URL string `json:"url" binding:"required"`
}

func (s *Server) addURL(c *gin.Context) {
	var req urlRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid json: " + err.Error()})
		return
	}
	if !ingest.ValidURL(req.URL) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "please enter a valid http or https URL"})
		return
	}
	doc, err := ingest.FromURL(c.Request.Context(), s.scraper, req.URL)
	if err != nil {
		if errors.Is(err, domain.ErrEmptyDocument) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "no content extracted from webpage"})
			return
		}
		s.logger.Warn("scrape failed", "url", req.URL, "err", err)
		c.JSON(http.StatusBadGateway, gin.H{"message": err.Error()})
		return
	}
	s.add(c, doc)
}

func (s *Server) add(c *gin.Context, doc domain.Document) {
	st, err := s.ws.Add(c.Request.Context(), doc, nil)
	if err != nil {
		if errors.Is(err, domain.ErrEmptyDocument) {
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error(), "document": st})
		return
	}
	c.JSON(http.StatusCreated, st)
}

func (s *Server) deleteDocument(c *gin.Context) {
	id := c.Param("id")
	if !s.ws.Remove(id) {
		c.JSON(http.StatusNotFound, gin.H{"message": "document " + id + " not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) stats(c *gin.Context) {
	c.JSON(http.StatusOK, s.ws.Stats())
}

type queryRequest struct {
	Question string           `json:"question" binding:"required"`
	History  []domain.Message `json:"history"`
}

func (s *Server) query(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid json: " + err.Error()})
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "question must not be empty"})
		return
	}
	for i, m := range req.History {
		if m.Role != domain.RoleUser && m.Role != domain.RoleModel {
			c.JSON(http.StatusBadRequest, gin.H{"message": fmt.Sprintf("history[%d]: role must be %q or %q", i, domain.RoleUser, domain.RoleModel)})
			return
		}
	}
	resp, err := s.ws.Ask(c.Request.Context(), req.Question, req.History)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrQueryEmbedding) || errors.Is(err, domain.ErrGeneration) {
			status = http.StatusBadGateway
		}
		s.logger.Error("query failed", "err", err)
		c.JSON(status, gin.H{"message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}
