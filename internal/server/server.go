package server

import (
	"context"
	"embed"
	"html/template"
	"time"

	"go.uber.org/zap"

	"github.com/4lch4/repo-feed/internal/database"
	"github.com/4lch4/repo-feed/internal/feed"
	"github.com/4lch4/repo-feed/internal/simulator"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Options carries the dependencies a Server is built from.
type Options struct {
	DB        database.Service
	Simulator *simulator.Client
	Logger    *zap.Logger

	// How often websocket clients are refreshed. Defaults to 15s.
	PollInterval time.Duration
}

type Server struct {
	db           database.Service
	simulator    *simulator.Client
	logger       *zap.Logger
	pollInterval time.Duration
	now          func() time.Time
}

func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	poll := opts.PollInterval
	if poll <= 0 {
		poll = 15 * time.Second
	}
	return &Server{
		db:           opts.DB,
		simulator:    opts.Simulator,
		logger:       logger.Named("server"),
		pollInterval: poll,
		now:          time.Now,
	}
}

// recentLines loads the feed and renders it once for every presentation.
func (s *Server) recentLines(ctx context.Context) ([]string, error) {
	events, err := s.db.GetLatestEvents(ctx, feed.Size)
	if err != nil {
		return nil, err
	}
	return feed.Lines(events), nil
}
