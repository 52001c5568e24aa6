// Package webhook serves the payment gateway's result callback.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"

	"github.com/m3rciful/callmylawyer/core/logger"
	"github.com/m3rciful/callmylawyer/internal/payment"
)

// DefaultResultPath is where the gateway posts result notifications.
const DefaultResultPath = "/robokassa-result"

// Reconciler settles gateway notifications.
type Reconciler interface {
	Reconcile(ctx context.Context, n payment.Notification) (payment.Result, error)
}

// Metrics records HTTP traffic and exposes the scrape endpoint.
type Metrics interface {
	ObserveHTTP(handler, status string, ms float64)
	Handler() http.Handler
}

// Options configures the HTTP surface.
type Options struct {
	Listen     string
	ResultPath string
	Metrics    Metrics
}

// Server is the gin-based gateway endpoint.
type Server struct {
	opts   Options
	engine *gin.Engine
	rec    Reconciler

	mu   sync.Mutex
	srv  *http.Server
	once sync.Once
}

type resultForm struct {
	OutSum         string `form:"OutSum" binding:"required"`
	InvID          string `form:"InvId" binding:"required"`
	SignatureValue string `form:"SignatureValue" binding:"required"`
}

// New builds the routes. It does not listen until Start.
func New(opts Options, rec Reconciler) *Server {
	if opts.ResultPath == "" {
		opts.ResultPath = DefaultResultPath
	}
	s := &Server{opts: opts, rec: rec}

	r := gin.New()
	r.Use(gin.Recovery(), s.requestContext())
	r.POST(opts.ResultPath, s.handleResult)
	r.GET(opts.ResultPath, s.handleResult)
	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	if opts.Metrics != nil {
		r.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}
	s.engine = r
	return s
}

// Handler exposes the engine, mainly for httptest.
func (s *Server) Handler() http.Handler { return s.engine }

// Start binds the listener synchronously and serves in the background until
// ctx is done or Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Listen)
	if err != nil {
		return fmt.Errorf("webhook: listen %s: %w", s.opts.Listen, err)
	}
	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Lock()
	s.srv = srv
	s.mu.Unlock()

	logger.Info(ctx, "webhook", "listen",
		slog.String("status", "ok"),
		slog.String("addr", ln.Addr().String()),
		slog.String("path", s.opts.ResultPath),
	)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(context.Background(), "webhook", "serve",
				slog.String("status", "fail"),
				slog.String("err", err.Error()),
			)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = s.Shutdown(shutdownCtx)
	}()
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	var err error
	s.once.Do(func() {
		err = srv.Shutdown(ctx)
		logger.Info(ctx, "webhook", "shutdown", slog.String("status", statusOf(err)))
	})
	return err
}

func (s *Server) handleResult(c *gin.Context) {
	ctx := c.Request.Context()
	var form resultForm
	if err := c.ShouldBindWith(&form, binding.Form); err != nil {
		logger.Warn(ctx, "webhook", "result.bind",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		c.String(http.StatusOK, payment.FailureToken)
		return
	}

	res, err := s.rec.Reconcile(ctx, payment.Notification{
		Amount:        form.OutSum,
		CorrelationID: form.InvID,
		Signature:     form.SignatureValue,
	})
	if err != nil && res.Response == "" {
		res.Response = payment.FailureToken
	}
	c.String(http.StatusOK, res.Response)
}

// requestContext tags every request with a fresh rid and records its metrics.
func (s *Server) requestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		rid := uuid.NewString()
		ctx := logger.WithRID(c.Request.Context(), rid)
		c.Request = c.Request.WithContext(ctx)
		c.Header("X-Request-ID", rid)

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		took := time.Since(start)
		if s.opts.Metrics != nil {
			s.opts.Metrics.ObserveHTTP(route, strconv.Itoa(c.Writer.Status()), float64(took.Microseconds())/1000)
		}
		logger.Debug(ctx, "webhook", "request",
			slog.String("status", "ok"),
			slog.String("method", c.Request.Method),
			slog.String("path", route),
			slog.Int("http_code", c.Writer.Status()),
			slog.Duration("duration", logger.RoundMS(took)),
		)
	}
}

func statusOf(err error) string {
	if err != nil {
		return "fail"
	}
	return "ok"
}
