package web

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"time"

	"github.com/bytedance/sonic"

	"actcal/internal/config"
	"actcal/internal/errs"
	appLog "actcal/internal/log"
	"actcal/internal/model"
	"actcal/internal/window"
)

// Service is what the HTTP surface triggers. The scheduler implements it.
type Service interface {
	RunNow(ctx context.Context) error
	RunRange(ctx context.Context, start, end time.Time) error
	Timeline(ctx context.Context, date time.Time) (model.Timeline, error)
	DailyDigest(ctx context.Context, date time.Time) (string, error)
}

// Options configures a Server.
type Options struct {
	Listen    string
	BasicAuth *config.BasicAuthConfig
	Location  *time.Location
	// PreviewPath is the PNG served at /preview.png, written by the
	// snapshot command.
	PreviewPath string
	Now         func() time.Time
}

// Server exposes on-demand runs and the day timeline over HTTP.
type Server struct {
	svc  Service
	opts Options
	mux  *http.ServeMux
}

func NewServer(svc Service, opts Options) *Server {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	s := &Server{svc: svc, opts: opts, mux: http.NewServeMux()}
	s.registerRoutes()
	return s
}

// Handler returns the routed handler, wrapped in basic auth when
// configured.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.opts.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.opts.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		appLog.Info("HTTP server stopped")
		return nil
	}
}

func (s *Server) basicAuthEnabled() bool {
	a := s.opts.BasicAuth
	return a != nil && a.Username != "" && a.Password != ""
}

// basicAuthMiddleware protects everything but /health.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.opts.BasicAuth.Username
	password := s.opts.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}
		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="actcal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func secureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("POST /api/run", s.handleRun)
	s.mux.HandleFunc("POST /api/backfill", s.handleBackfill)
	s.mux.HandleFunc("GET /api/timeline", s.handleTimelineJSON)
	s.mux.HandleFunc("GET /api/digest", s.handleDigest)
	s.mux.HandleFunc("GET /timeline", s.handleTimelinePage)
	s.mux.HandleFunc("GET /preview.png", s.handlePreview)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

type runResponse struct {
	Status  string `json:"status"`
	Windows int    `json:"windows,omitempty"`
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.RunNow(r.Context()); err != nil {
		s.fail(w, "run", err)
		return
	}
	writeJSON(w, http.StatusOK, runResponse{Status: "ok", Windows: 1})
}

type backfillRequest struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// handleBackfill runs synchronously; the response is sent once every window
// has been posted or the first one failed.
func (s *Server) handleBackfill(w http.ResponseWriter, r *http.Request) {
	var req backfillRequest
	if err := sonic.ConfigStd.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	start, err := window.ParseInstant(req.Start, s.opts.Location)
	if err != nil {
		writeError(w, http.StatusBadRequest, "start: "+err.Error())
		return
	}
	end, err := window.ParseInstant(req.End, s.opts.Location)
	if err != nil {
		writeError(w, http.StatusBadRequest, "end: "+err.Error())
		return
	}
	windows, err := window.SplitRange(start, end)
	if err != nil {
		s.fail(w, "backfill", err)
		return
	}

	if err := s.svc.RunRange(r.Context(), start, end); err != nil {
		s.fail(w, "backfill", err)
		return
	}
	writeJSON(w, http.StatusOK, runResponse{Status: "ok", Windows: len(windows)})
}

func (s *Server) date(r *http.Request) (time.Time, error) {
	return window.ParseDate(r.URL.Query().Get("date"), s.opts.Now(), s.opts.Location)
}

func (s *Server) handleTimelineJSON(w http.ResponseWriter, r *http.Request) {
	date, err := s.date(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	tl, err := s.svc.Timeline(r.Context(), date)
	if err != nil {
		s.fail(w, "timeline", err)
		return
	}
	writeJSON(w, http.StatusOK, tl)
}

type digestResponse struct {
	Date   string `json:"date"`
	Digest string `json:"digest"`
}

func (s *Server) handleDigest(w http.ResponseWriter, r *http.Request) {
	date, err := s.date(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	d, err := s.svc.DailyDigest(r.Context(), date)
	if err != nil {
		s.fail(w, "digest", err)
		return
	}
	writeJSON(w, http.StatusOK, digestResponse{Date: date.Format("2006-01-02"), Digest: d})
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	if s.opts.PreviewPath == "" {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, s.opts.PreviewPath)
}

// fail logs err and writes it with the status its kind maps to.
func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	appLog.Error("api "+op+" failed", err, "status", status)
	writeError(w, status, err.Error())
}

// statusFor maps failure kinds onto HTTP statuses.
func statusFor(err error) int {
	if kind, ok := errs.KindOf(err); ok {
		switch kind {
		case errs.KindInvalidRange:
			return http.StatusBadRequest
		case errs.KindCredentialMissing, errs.KindCredentialExpired:
			return http.StatusUnauthorized
		case errs.KindUnavailable, errs.KindMalformed:
			return http.StatusBadGateway
		case errs.KindBusy:
			return http.StatusConflict
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := sonic.ConfigStd.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
