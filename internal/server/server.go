// Package server is the HTTP illustration fixture: two routes that show
// a request being handled on a fiber, and a controller-style pair that
// contrasts fiber handling with a small fixed platform worker pool.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fiberlab/fiberlab/internal/fiber"
)

// MaxSleep caps the /sleep duration.
const MaxSleep = 10_000 * time.Millisecond

// DefaultSleep applies when /sleep is called without ms.
const DefaultSleep = 1000 * time.Millisecond

// blockingCallDelay is the fixed simulated blocking call behind the
// /api/basic endpoints.
const blockingCallDelay = time.Second

// Server wires the routes to a fiber pool and a platform worker pool.
type Server struct {
	fibers   *fiber.CarrierPool
	platform *platformPool
}

// New creates a server over the given fiber pool with a 5-worker
// platform pool, mirroring the classic fixed thread pool it contrasts
// against.
func New(pool *fiber.CarrierPool) *Server {
	return &Server{
		fibers:   pool,
		platform: newPlatformPool(5),
	}
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /hello", s.handleHello)
	mux.HandleFunc("GET /sleep", s.handleSleep)
	mux.HandleFunc("GET /api/basic/virtual", s.handleBasicVirtual)
	mux.HandleFunc("GET /api/basic/platform", s.handleBasicPlatform)
	return mux
}

// ListenAndServe runs the fixture until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler()}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

type helloResponse struct {
	Message   string `json:"message"`
	Thread    string `json:"thread"`
	ThreadID  uint64 `json:"threadId"`
	IsVirtual bool   `json:"isVirtual"`
}

type sleepResponse struct {
	Message          string `json:"message"`
	RequestedSleepMs int64  `json:"requestedSleepMs"`
	ActualDurationMs int64  `json:"actualDurationMs"`
	Thread           string `json:"thread"`
	IsVirtual        bool   `json:"isVirtual"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (s *Server) handleHello(w http.ResponseWriter, r *http.Request) {
	var resp helloResponse
	f := s.fibers.Go(r.Context(), "hello", func(ctx context.Context, f *fiber.Fiber) error {
		resp = helloResponse{
			Message:   "Hello from a fiber!",
			Thread:    fmt.Sprintf("fiber-%d", f.ID()),
			ThreadID:  f.ID(),
			IsVirtual: true,
		}
		return nil
	})
	<-f.Done()

	if err := f.Err(); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error:   "Request cancelled",
			Message: err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSleep(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	sleep := DefaultSleep
	if raw := r.URL.Query().Get("ms"); raw != "" {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{
				Error:   "Invalid sleep parameter",
				Message: "provide a whole number of milliseconds, e.g. /sleep?ms=2000",
			})
			return
		}
		sleep = time.Duration(ms) * time.Millisecond
	}
	if sleep > MaxSleep {
		sleep = MaxSleep
	}
	if sleep < 0 {
		sleep = 0
	}

	var resp sleepResponse
	f := s.fibers.Go(r.Context(), "sleep", func(ctx context.Context, f *fiber.Fiber) error {
		if err := f.Sleep(ctx, sleep); err != nil {
			return err
		}
		resp = sleepResponse{
			Message:          fmt.Sprintf("Slept for %d milliseconds", sleep.Milliseconds()),
			RequestedSleepMs: sleep.Milliseconds(),
			ActualDurationMs: time.Since(start).Milliseconds(),
			Thread:           fmt.Sprintf("fiber-%d", f.ID()),
			IsVirtual:        true,
		}
		return nil
	})
	<-f.Done()

	if err := f.Err(); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error:   "Sleep interrupted",
			Message: err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBasicVirtual(w http.ResponseWriter, r *http.Request) {
	f := s.fibers.Go(r.Context(), "basic-virtual", func(ctx context.Context, f *fiber.Fiber) error {
		return f.Sleep(ctx, blockingCallDelay)
	})
	<-f.Done()

	if err := f.Err(); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	fmt.Fprint(w, "Handled by fiber")
}

func (s *Server) handleBasicPlatform(w http.ResponseWriter, r *http.Request) {
	err := s.platform.Do(r.Context(), func(ctx context.Context) error {
		t := time.NewTimer(blockingCallDelay)
		defer t.Stop()
		select {
		case <-t.C:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	fmt.Fprint(w, "Handled by platform worker")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
