// Package gateway serves the cached live view over local HTTP so other
// processes (dashboards, widgets) can read it without their own session
// against the backend. It is read-only: every write path goes through the
// reconciler and tracker, never through here.
package gateway

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"

	"buspulse/internal/live"
)

type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data"`
	Time    int64  `json:"time"`
}

var gzipConfig = middleware.GzipConfig{
	Level: 5,
}

type Gateway struct {
	e      *echo.Echo
	srv    *http.Server
	cache  *live.SnapshotCache
	status *live.StatusCache
}

func New(cache *live.SnapshotCache, status *live.StatusCache) *Gateway {
	g := &Gateway{e: echo.New(), cache: cache, status: status}
	g.e.Use(middleware.GzipWithConfig(gzipConfig))

	g.e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, Response{
			Code:    http.StatusOK,
			Message: "ok",
			Data:    map[string]uint64{"generation": g.cache.Generation()},
			Time:    time.Now().Unix(),
		})
	})

	g.e.GET("/live/schedules", func(c echo.Context) error {
		return c.JSON(http.StatusOK, Response{
			Code: http.StatusOK,
			Data: g.cache.Snapshot(),
			Time: time.Now().Unix(),
		})
	})

	g.e.GET("/live/schedules/:id", func(c echo.Context) error {
		id, err := strconv.Atoi(c.PathParam("id"))
		if err != nil {
			return c.JSON(http.StatusBadRequest, Response{
				Code:    http.StatusBadRequest,
				Message: "invalid schedule id",
				Time:    time.Now().Unix(),
			})
		}
		s, ok := g.cache.Find(id)
		if !ok {
			return c.JSON(http.StatusNotFound, Response{
				Code:    http.StatusNotFound,
				Message: "schedule not cached",
				Time:    time.Now().Unix(),
			})
		}
		return c.JSON(http.StatusOK, Response{
			Code: http.StatusOK,
			Data: s,
			Time: time.Now().Unix(),
		})
	})

	g.e.GET("/live/stop-status", func(c echo.Context) error {
		st, ok := g.status.Latest()
		if !ok {
			return c.JSON(http.StatusNotFound, Response{
				Code:    http.StatusNotFound,
				Message: "no live status received yet",
				Time:    time.Now().Unix(),
			})
		}
		return c.JSON(http.StatusOK, Response{
			Code: http.StatusOK,
			Data: st,
			Time: time.Now().Unix(),
		})
	})

	return g
}

// Serve starts the gateway on addr and returns the underlying server so
// the caller owns shutdown.
func (g *Gateway) Serve(addr string) *http.Server {
	g.srv = &http.Server{Addr: addr, Handler: g.e}
	go func() {
		if err := g.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("gateway server error: %v", err)
		}
	}()
	log.Printf("gateway listening on %s", addr)
	return g.srv
}

func (g *Gateway) Shutdown(ctx context.Context) error {
	if g.srv == nil {
		return nil
	}
	return g.srv.Shutdown(ctx)
}
