// chatmeshd - durable conversational session server
package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/hupe1980/chatmesh"
	"github.com/hupe1980/chatmesh/config"
	"github.com/hupe1980/chatmesh/core"
	"github.com/hupe1980/chatmesh/gateway"
	"github.com/hupe1980/chatmesh/gateway/anthropic"
	"github.com/hupe1980/chatmesh/gateway/databricks"
	"github.com/hupe1980/chatmesh/gateway/memstore"
	"github.com/hupe1980/chatmesh/gateway/openai"
	"github.com/hupe1980/chatmesh/gateway/postgres"
	"github.com/hupe1980/chatmesh/logging"
)

func main() {
	logger := logging.NewLogger(&logging.LoggerConfig{
		Level:     logging.LogLevelInfo,
		Format:    "json",
		Output:    os.Stdout,
		Component: "chatmeshd",
	})

	if err := godotenv.Load(); err != nil {
		logger.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err.Error())
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store gateway.Store
	if cfg.DatabaseURL != "" {
		pg, err := postgres.New(ctx, cfg.DatabaseURL, func(o *postgres.Options) {
			o.MaxConns = int32(cfg.DBPoolSize)
			o.Logger = logger
		})
		if err != nil {
			logger.Error("Failed to initialize database", "error", err.Error())
			os.Exit(1)
		}
		defer pg.Close()
		if err := pg.EnsureSchema(ctx); err != nil {
			logger.Error("Failed to apply database schema", "error", err.Error())
			os.Exit(1)
		}
		logger.Info("Database connected")
		store = pg
	} else {
		logger.Warn("DATABASE_URL not set, using volatile in-memory store")
		store = memstore.New()
	}

	oai := openai.New(func(o *openai.Options) {
		o.Temperature = cfg.Temperature
		o.TopP = cfg.TopP
		o.MaxTokens = int64(cfg.MaxTokens)
		o.Logger = logger
	})

	var completer gateway.Completer = oai
	if cfg.CompletionProvider == "anthropic" {
		completer = anthropic.New(func(o *anthropic.Options) {
			o.APIKey = cfg.AnthropicAPIKey
			o.Temperature = cfg.Temperature
			o.MaxTokens = int64(cfg.MaxTokens)
		})
		logger.Info("Using Anthropic for conversation turns")
	}

	var vector gateway.VectorSearcher
	if cfg.VectorSearchEnabled() {
		vector = databricks.New(cfg.DatabricksHost, cfg.DatabricksToken, func(o *databricks.Options) {
			o.Endpoint = cfg.DatabricksEndpointName
			o.Index = cfg.DatabricksIndexName
			o.Logger = logger
		})
		logger.Info("Vector search enabled", "index", cfg.DatabricksIndexName)
	} else {
		logger.Warn("Vector search not configured, company search tool disabled")
	}

	mesh := chatmesh.New(completer, func(o *chatmesh.Options) {
		o.Decider = oai
		o.VectorSearcher = vector
		o.WebSearcher = oai
		o.VectorEndpoint = cfg.DatabricksEndpointName
		o.VectorIndex = cfg.DatabricksIndexName
		o.Store = store
		o.InactivityTimeout = cfg.InactivityTimeout
		o.Logger = logger
	})

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Post("/sessions", handleCreateSession())
	r.Route("/sessions/{key}", func(r chi.Router) {
		r.Post("/messages", handleSendMessage(mesh))
		r.Get("/history", handleGetHistory(mesh))
		r.Get("/summary", handleGetSummary(mesh))
		r.Post("/complete", handleCompleteSession(mesh))
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", "error", err.Error())
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown failed", "error", err.Error())
	}
	if !mesh.Shutdown(30 * time.Second) {
		logger.Warn("Some sessions did not finalize before the shutdown deadline")
	}
	logger.Info("Shutdown complete")
}

// handleCreateSession mints a fresh session key. Sessions start lazily on the
// first message, so this only hands out an identifier.
func handleCreateSession() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusCreated, map[string]string{"session_key": uuid.NewString()})
	}
}

type sendMessageRequest struct {
	Text    string `json:"text"`
	OwnerID *int64 `json:"owner_id,omitempty"`
}

func handleSendMessage(mesh *chatmesh.ChatMesh) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "key")
		var req sendMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if req.Text == "" {
			writeError(w, http.StatusBadRequest, "text is required")
			return
		}
		accepted := mesh.SendMessage(key, req.Text, req.OwnerID)
		status := http.StatusAccepted
		if !accepted {
			status = http.StatusConflict
		}
		writeJSON(w, status, map[string]any{"accepted": accepted})
	}
}

func handleGetHistory(mesh *chatmesh.ChatMesh) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "key")
		history := mesh.GetHistory(key)
		if history == nil {
			history = core.Transcript{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"session_key": key, "history": history})
	}
}

func handleGetSummary(mesh *chatmesh.ChatMesh) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "key")
		writeJSON(w, http.StatusOK, map[string]any{"session_key": key, "summary": mesh.GetSummary(key)})
	}
}

func handleCompleteSession(mesh *chatmesh.ChatMesh) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "key")
		mesh.CompleteSession(key)
		writeJSON(w, http.StatusAccepted, map[string]any{"session_key": key, "status": "completing"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
