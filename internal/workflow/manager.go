package workflow

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"av1watch/internal/config"
	"av1watch/internal/crop"
	"av1watch/internal/encodejob"
	"av1watch/internal/encoding"
	"av1watch/internal/history"
	"av1watch/internal/logging"
	"av1watch/internal/probe"
	"av1watch/internal/queue"
)

// CropDetector chooses the crop filter for a file.
type CropDetector interface {
	Detect(ctx context.Context, path string, duration float64) (crop.Result, error)
}

// Encoder runs one job to completion.
type Encoder interface {
	Run(ctx context.Context, job encodejob.Job) (encoding.Result, error)
}

// Dependencies are the collaborators the worker drives.
type Dependencies struct {
	Queue   *queue.Queue
	Prober  probe.Prober
	Crop    CropDetector
	Encoder Encoder
	// History is optional.
	History history.Recorder
}

// Manager coordinates the single encode worker.
type Manager struct {
	cfg       *config.Config
	deps      Dependencies
	logger    *slog.Logger
	sessionID string
	newID     func() string

	mu       sync.RWMutex
	running  bool
	cancel   context.CancelFunc
	done     chan struct{}
	fatalErr error
	attempts map[string]int
	current  string
	counts   map[string]int
	lastErr  error
	lastPath string
}

// ManagerOption configures optional Manager behavior.
type ManagerOption func(*Manager)

// WithSessionID tags every recorded transition with the daemon session.
func WithSessionID(id string) ManagerOption {
	return func(m *Manager) { m.sessionID = id }
}

// WithIDGenerator overrides job ID generation.
func WithIDGenerator(fn func() string) ManagerOption {
	return func(m *Manager) {
		if fn != nil {
			m.newID = fn
		}
	}
}

// NewManager constructs a workflow manager.
func NewManager(cfg *config.Config, deps Dependencies, logger *slog.Logger, opts ...ManagerOption) *Manager {
	m := &Manager{
		cfg:      cfg,
		deps:     deps,
		logger:   logging.NewComponentLogger(logger, "workflow"),
		newID:    uuid.NewString,
		attempts: make(map[string]int),
		counts:   make(map[string]int),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}
