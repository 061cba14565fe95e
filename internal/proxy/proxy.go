// Package proxy serves the relay API under /api so browser-side clients
// can reach it from the dashboard's own origin.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const shutdownGrace = 5 * time.Second

// New builds an echo server that forwards /api/* to upstream/*.
func New(upstream string) (*echo.Echo, error) {
	target, err := url.Parse(strings.TrimRight(upstream, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse upstream %q: %w", upstream, err)
	}
	if target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("upstream %q must be an absolute http(s) URL", upstream)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Output: log.Writer(),
		Skipper: func(c echo.Context) bool {
			return c.Request().URL.Path == "/healthz"
		},
	}))
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 1024 * 4,
	}))

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":   "ok",
			"upstream": target.String(),
		})
	})

	e.Group("/api", middleware.ProxyWithConfig(middleware.ProxyConfig{
		Balancer: middleware.NewRoundRobinBalancer([]*middleware.ProxyTarget{{URL: target}}),
		Rewrite: map[string]string{
			"/api/*": "/$1",
		},
		ErrorHandler: func(c echo.Context, err error) error {
			log.Printf("proxy %s %s failed: %v", c.Request().Method, c.Request().URL.Path, err)
			return echo.NewHTTPError(http.StatusBadGateway, "relay unreachable")
		},
	}))

	return e, nil
}

// Serve runs e on listen until ctx is cancelled, then shuts it down.
func Serve(ctx context.Context, e *echo.Echo, listen string) error {
	errCh := make(chan error, 1)
	go func() {
		log.Printf("proxy listening on %s", listen)
		errCh <- e.Start(listen)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown proxy: %w", err)
	}
	return nil
}
