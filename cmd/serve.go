package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/relata-hq/location-cli/internal/engine"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP facade for UI clients",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		// Reclaim idle sessions in the background.
		go func() {
			ticker := time.NewTicker(time.Minute)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if n := env.Engine.Sessions().Sweep(); n > 0 {
						zap.L().Debug("swept idle sessions", zap.Int("count", n))
					}
				}
			}
		}()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(env.Engine, cfg.Server.AllowedOrigins),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// newRouter builds the HTTP surface over an engine.
func newRouter(eng *engine.Engine, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":   "ok",
			"throttle": eng.ThrottleSnapshot(),
		})
	})

	r.Get("/v1/search", func(w http.ResponseWriter, req *http.Request) {
		q := req.URL.Query().Get("q")
		if q == "" {
			writeError(w, http.StatusBadRequest, "q is required")
			return
		}
		lang := req.URL.Query().Get("lang")
		limit := queryInt(req, "limit", 10)

		results := eng.Search(req.Context(), q, lang, limit)
		payload := map[string]any{"results": results}
		if len(results) == 0 {
			if wait := eng.Advisory(q).Wait; wait > 0 {
				payload["retry_after_ms"] = wait.Milliseconds()
			}
		}
		writeJSON(w, http.StatusOK, payload)
	})

	r.Get("/v1/nearby", func(w http.ResponseWriter, req *http.Request) {
		lat, latErr := strconv.ParseFloat(req.URL.Query().Get("lat"), 64)
		lon, lonErr := strconv.ParseFloat(req.URL.Query().Get("lon"), 64)
		if latErr != nil || lonErr != nil {
			writeError(w, http.StatusBadRequest, "lat and lon are required numbers")
			return
		}
		radiusKM := queryFloat(req, "radius_km", 100)
		limit := queryInt(req, "limit", 10)

		results := eng.SearchNearby(req.Context(), lat, lon, radiusKM*1000, limit)
		writeJSON(w, http.StatusOK, map[string]any{"results": results})
	})

	r.Get("/v1/popular", func(w http.ResponseWriter, req *http.Request) {
		lang := req.URL.Query().Get("lang")
		limit := queryInt(req, "limit", 8)
		writeJSON(w, http.StatusOK, map[string]any{
			"results": eng.Popular(req.Context(), lang, limit),
		})
	})

	r.Post("/v1/sessions", func(w http.ResponseWriter, req *http.Request) {
		id, _ := eng.Sessions().Create()
		writeJSON(w, http.StatusCreated, map[string]string{"session_id": id})
	})

	r.Post("/v1/sessions/{id}/input", func(w http.ResponseWriter, req *http.Request) {
		ctrl, ok := eng.Sessions().Get(chi.URLParam(req, "id"))
		if !ok {
			writeError(w, http.StatusNotFound, "unknown session")
			return
		}
		var body struct {
			Query string `json:"query"`
			Lang  string `json:"lang"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		// The debounced search fires after this handler returns; detach
		// it from the request's cancellation so providers see a live
		// context.
		ctrl.Input(context.WithoutCancel(req.Context()), body.Query, body.Lang)
		writeJSON(w, http.StatusAccepted, ctrl.Snapshot())
	})

	r.Get("/v1/sessions/{id}", func(w http.ResponseWriter, req *http.Request) {
		ctrl, ok := eng.Sessions().Get(chi.URLParam(req, "id"))
		if !ok {
			writeError(w, http.StatusNotFound, "unknown session")
			return
		}
		writeJSON(w, http.StatusOK, ctrl.Snapshot())
	})

	r.Post("/v1/sessions/{id}/more", func(w http.ResponseWriter, req *http.Request) {
		ctrl, ok := eng.Sessions().Get(chi.URLParam(req, "id"))
		if !ok {
			writeError(w, http.StatusNotFound, "unknown session")
			return
		}
		writeJSON(w, http.StatusOK, ctrl.LoadMore(req.Context()))
	})

	r.Delete("/v1/sessions/{id}", func(w http.ResponseWriter, req *http.Request) {
		eng.Sessions().Delete(chi.URLParam(req, "id"))
		w.WriteHeader(http.StatusNoContent)
	})

	r.Delete("/v1/cache", func(w http.ResponseWriter, req *http.Request) {
		if err := eng.ClearCache(req.Context()); err != nil {
			zap.L().Error("cache clear failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "cache clear failed")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func queryInt(req *http.Request, name string, fallback int) int {
	if raw := req.URL.Query().Get(name); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func queryFloat(req *http.Request, name string, fallback float64) float64 {
	if raw := req.URL.Query().Get(name); raw != "" {
		if f, err := strconv.ParseFloat(raw, 64); err == nil && f > 0 {
			return f
		}
	}
	return fallback
}
