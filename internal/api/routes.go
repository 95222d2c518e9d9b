// Package api serves the dashboard JSON API over one Session: the KPI
// summary, the day list, day details, day maps and file upload.
package api

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/ginjaninja78/trip-dashboard/internal/converter"
	"github.com/ginjaninja78/trip-dashboard/internal/dashboard"
	"github.com/ginjaninja78/trip-dashboard/internal/logger"
)

// maxUploadBytes bounds the size of an uploaded export.
const maxUploadBytes = 32 << 20

const shutdownTimeout = 5 * time.Second

// Server holds the state behind the API handlers.
type Server struct {
	session        *dashboard.Session
	converter      *converter.Converter
	allowedOrigins []string
	logger         *slog.Logger
}

// Options configures NewServer.
type Options struct {
	Session   *dashboard.Session
	Converter *converter.Converter

	// AllowedOrigins lists CORS origins. Empty allows any origin.
	AllowedOrigins []string

	Logger *slog.Logger
}

// NewServer creates the API server.
func NewServer(opts Options) *Server {
	l := logger.OrDiscard(opts.Logger)
	conv := opts.Converter
	if conv == nil {
		conv = converter.New(l)
	}
	return &Server{
		session:        opts.Session,
		converter:      conv,
		allowedOrigins: opts.AllowedOrigins,
		logger:         l,
	}
}

// Routes builds the router with CORS, request logging and panic recovery.
func (s *Server) Routes() http.Handler {
	router := mux.NewRouter()
	api := router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", s.Health).Methods("GET")
	api.HandleFunc("/summary", s.Summary).Methods("GET")
	api.HandleFunc("/upload", s.Upload).Methods("POST")
	api.HandleFunc("/export", s.Export).Methods("GET")

	// Day endpoints
	api.HandleFunc("/days", s.ListDays).Methods("GET")
	api.HandleFunc("/days/{date}", s.GetDay).Methods("GET")
	api.HandleFunc("/days/{date}/map", s.GetDayMap).Methods("GET")
	api.HandleFunc("/days/{date}/map/nearest", s.NearestTrip).Methods("GET")
	api.HandleFunc("/days/{date}/map.kml", s.DayMapKML).Methods("GET")

	origins := s.allowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	cors := handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods([]string{"GET", "POST", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)
	recovery := handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{s.logger}),
		handlers.PrintRecoveryStack(true),
	)

	return recovery(cors(handlers.CustomLoggingHandler(io.Discard, router, s.logRequest)))
}

// ListenAndServe serves the API on addr until ctx is done or the server
// fails. In-flight requests get shutdownTimeout to finish.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		s.logger.Info("Dashboard API listening", "addr", addr)
		errs <- srv.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down dashboard API")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) logRequest(_ io.Writer, p handlers.LogFormatterParams) {
	s.logger.Debug("Handled request",
		"method", p.Request.Method,
		"path", p.URL.Path,
		"status", p.StatusCode,
		"size", p.Size,
		"duration", time.Since(p.TimeStamp),
	)
}

// recoveryLogger adapts slog to the gorilla recovery handler.
type recoveryLogger struct {
	logger *slog.Logger
}

func (l recoveryLogger) Println(args ...interface{}) {
	l.logger.Error("Recovered from panic", "detail", fmt.Sprint(args...))
}
