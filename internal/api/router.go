// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jaycherian/gcp-go-video-summary/internal/core/model"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// HistoryReader reads persisted outcomes, most recent first.
type HistoryReader interface {
	History(ctx context.Context, limit int) ([]*model.VideoOutcome, error)
}

// NewRouter builds the status API. history may be nil when no outcome table is
// configured.
func NewRouter(serviceName string, outcomes *OutcomeLog, history HistoryReader, historyLimit int) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(serviceName))
	r.Use(cors.Default())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "outcomes": outcomes.Counts()})
	})

	apiV1 := r.Group("/api/v1")
	{
		OutcomeRouter(apiV1, outcomes)
		HistoryRouter(apiV1, history, historyLimit)
	}
	return r
}

// OutcomeRouter serves the outcomes kept in memory.
func OutcomeRouter(r *gin.RouterGroup, outcomes *OutcomeLog) {
	group := r.Group("/outcomes")
	{
		group.GET("", func(c *gin.Context) {
			c.JSON(http.StatusOK, outcomes.List())
		})

		group.GET("/:id", func(c *gin.Context) {
			out, ok := outcomes.Get(c.Param("id"))
			if !ok {
				c.JSON(http.StatusNotFound, gin.H{"error": "outcome not found"})
				return
			}
			c.JSON(http.StatusOK, out)
		})
	}
}

// HistoryRouter serves persisted outcomes. The limit query parameter is capped at
// maxLimit.
func HistoryRouter(r *gin.RouterGroup, history HistoryReader, maxLimit int) {
	r.GET("/history", func(c *gin.Context) {
		if history == nil {
			c.JSON(http.StatusNotImplemented, gin.H{"error": "outcome history is not configured"})
			return
		}
		limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(maxLimit)))
		if err != nil || limit <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		if maxLimit > 0 && limit > maxLimit {
			limit = maxLimit
		}
		out, err := history.History(c, limit)
		if err != nil {
			slog.ErrorContext(c, "failed to read outcome history", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read outcome history"})
			return
		}
		c.JSON(http.StatusOK, out)
	})
}

// Serve runs handler on addr until ctx is cancelled, then shuts the server down.
func Serve(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}
	errs := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
		close(errs)
	}()
	slog.InfoContext(ctx, "status server ready", "address", addr)

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
