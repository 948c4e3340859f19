package server

import (
	"context"
	"io"
	"net/http"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/agenthands/cobalt/internal/config"
	"github.com/agenthands/cobalt/internal/core"
	"github.com/agenthands/cobalt/internal/llm"
)

type Server struct {
	Reasoner *core.Reasoner
	Port     string
	log      *zap.Logger
}

func NewServer(log *zap.Logger) *Server {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config/config.toml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Warn("could not load config file, using defaults", zap.String("path", cfgPath), zap.Error(err))
		cfg = config.Default()
	}

	// Env overrides for the LLM wiring.
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		cfg.LLM.Provider = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("LLM_EMBEDDING_MODEL"); v != "" {
		cfg.LLM.EmbeddingModel = v
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}

	// Default to a local Ollama when nothing is configured.
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "ollama"
		cfg.LLM.Model = "gpt-oss:latest"
		cfg.LLM.BaseURL = "http://localhost:11434"
	}

	llmClient, embedderClient, err := llm.NewClient(context.Background(), cfg.LLM)
	if err != nil {
		log.Fatal("failed to initialize LLM client", zap.Error(err))
	}

	reasoner, err := core.NewReasoner(llmClient, embedderClient, cfg, log)
	if err != nil {
		log.Fatal("failed to initialize reasoner", zap.Error(err))
	}

	return &Server{Reasoner: reasoner, Port: cfg.Server.Port, log: log}
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.Default()

	r.POST("/documents", s.UploadDocument)
	r.GET("/documents", s.ListDocuments)
	r.POST("/documents/:doc_id/process", s.ProcessDocument)
	r.POST("/graph/build", s.BuildGraph)
	r.POST("/graph/infer", s.InferHypotheses)
	r.POST("/graph/restore", s.RestoreSnapshot)
	r.GET("/graph/stats", s.Stats)

	r.GET("/query/hypothesis-support", s.HypothesisSupport)
	r.GET("/query/entity-evolution", s.EntityEvolution)
	r.GET("/query/unvalidated", s.UnvalidatedHypotheses)
	r.GET("/query/claim-relationships", s.ClaimRelationships)

	return r
}

// UploadDocument accepts a multipart file upload plus an optional
// ordering_key form field.
func (s *Server) UploadDocument(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file field"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read upload"})
		return
	}

	var orderingKey int64
	if v := c.PostForm("ordering_key"); v != "" {
		orderingKey, err = strconv.ParseInt(v, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "ordering_key must be an integer"})
			return
		}
	}

	doc, err := s.Reasoner.IngestDocument(header.Filename, data, orderingKey)
	if err != nil {
		s.log.Error("ingest failed", zap.String("file", header.Filename), zap.Error(err))
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"doc_id": doc.DocID, "title": doc.Title})
}

func (s *Server) ListDocuments(c *gin.Context) {
	docs, err := s.Reasoner.ListDocuments()
	if err != nil {
		s.log.Error("document listing failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"documents": docs})
}

func (s *Server) ProcessDocument(c *gin.Context) {
	docID := c.Param("doc_id")
	if err := s.Reasoner.ProcessDocument(c.Request.Context(), docID); err != nil {
		s.log.Error("processing failed", zap.String("doc_id", docID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "processed", "doc_id": docID})
}

func (s *Server) BuildGraph(c *gin.Context) {
	stats, err := s.Reasoner.BuildGraph(c.Request.Context())
	if err != nil {
		s.log.Error("graph build failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "built", "stats": stats})
}

func (s *Server) InferHypotheses(c *gin.Context) {
	inferred, err := s.Reasoner.InferHypotheses(c.Request.Context())
	if err != nil {
		s.log.Error("inference failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"inferred": inferred})
}

type RestoreRequest struct {
	Path string `json:"path"`
}

func (s *Server) RestoreSnapshot(c *gin.Context) {
	var req RestoreRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Path == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing path"})
		return
	}
	if err := s.Reasoner.RestoreSnapshot(req.Path); err != nil {
		s.log.Error("snapshot restore failed", zap.String("path", req.Path), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "restored"})
}

func (s *Server) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, s.Reasoner.Stats())
}

func (s *Server) HypothesisSupport(c *gin.Context) {
	ref := c.Query("hypothesis")
	if ref == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing hypothesis parameter"})
		return
	}
	result, err := s.Reasoner.HypothesisSupport(ref)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) EntityEvolution(c *gin.Context) {
	name := c.Query("entity")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing entity parameter"})
		return
	}
	result, err := s.Reasoner.EntityEvolution(name)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) UnvalidatedHypotheses(c *gin.Context) {
	minSupport := intQuery(c, "min_support", 2)
	maxContradictions := intQuery(c, "max_contradictions", 0)
	c.JSON(http.StatusOK, gin.H{
		"hypotheses": s.Reasoner.UnvalidatedHypotheses(minSupport, maxContradictions),
	})
}

func (s *Server) ClaimRelationships(c *gin.Context) {
	ref := c.Query("claim")
	if ref == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing claim parameter"})
		return
	}
	result, err := s.Reasoner.ClaimRelationships(ref)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

func intQuery(c *gin.Context, key string, fallback int) int {
	v := c.Query(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
