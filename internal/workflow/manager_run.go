package workflow

import (
	"context"
	"errors"

	"av1watch/internal/logging"
	"av1watch/internal/queue"
)

// ErrNotConfigured reports a Start call without the required collaborators.
var ErrNotConfigured = errors.New("workflow dependencies not configured")

// Start launches the worker. It returns immediately.
func (m *Manager) Start(ctx context.Context) error {
	if m.cfg == nil || m.deps.Queue == nil || m.deps.Prober == nil || m.deps.Encoder == nil {
		return ErrNotConfigured
	}
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.fatalErr = nil
	m.done = make(chan struct{})
	done := m.done
	m.mu.Unlock()

	go m.runWorker(runCtx, done)
	return nil
}

// Stop asks the worker to take no further paths and waits for it to exit.
// An encode already in progress runs to completion first.
func (m *Manager) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	done := m.done
	m.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Done is closed when the worker exits. It is nil before Start.
func (m *Manager) Done() <-chan struct{} {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.done
}

// Err returns the error that stopped the worker, if it stopped on its own.
func (m *Manager) Err() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fatalErr
}

func (m *Manager) runWorker(ctx context.Context, done chan struct{}) {
	defer func() {
		m.mu.Lock()
		m.running = false
		m.cancel = nil
		m.mu.Unlock()
		close(done)
	}()
	logger := m.logger
	logger.Info("encode worker started", logging.Int("pending", m.deps.Queue.Len()))

	for {
		if ctx.Err() != nil {
			logger.Info("encode worker stopping", logging.Int("pending", m.deps.Queue.Len()))
			return
		}
		path, err := m.deps.Queue.Pop(ctx)
		if err != nil {
			if errors.Is(err, queue.ErrClosed) {
				logger.Info("queue closed; encode worker exiting")
			} else {
				logger.Info("encode worker stopping", logging.Int("pending", m.deps.Queue.Len()))
			}
			return
		}
		if err := m.processFile(ctx, path); err != nil {
			m.mu.Lock()
			m.fatalErr = err
			m.mu.Unlock()
			logging.ErrorWithContext(logger, "encode worker stopped", "worker_fatal",
				logging.Error(err),
				logging.String(logging.FieldPath, path),
				logging.String(logging.FieldErrorHint, "check that the encoder binary is installed and executable"),
			)
			return
		}
	}
}
