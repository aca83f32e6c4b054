package workflow

// StatusSummary is a snapshot of the worker.
type StatusSummary struct {
	Running   bool
	SessionID string
	Current   string
	Pending   []string
	// Outcomes counts files that reached a terminal state this session.
	Outcomes  map[string]int
	LastPath  string
	LastError string
}

// Status returns the latest workflow information.
func (m *Manager) Status() StatusSummary {
	m.mu.RLock()
	summary := StatusSummary{
		Running:   m.running,
		SessionID: m.sessionID,
		Current:   m.current,
		LastPath:  m.lastPath,
		Outcomes:  make(map[string]int, len(m.counts)),
	}
	for outcome, n := range m.counts {
		summary.Outcomes[outcome] = n
	}
	if m.lastErr != nil {
		summary.LastError = m.lastErr.Error()
	}
	m.mu.RUnlock()

	if m.deps.Queue != nil {
		summary.Pending = m.deps.Queue.Snapshot()
	}
	return summary
}

func (m *Manager) setCurrent(path string) {
	m.mu.Lock()
	m.current = path
	if path != "" {
		m.lastPath = path
	}
	m.mu.Unlock()
}

func (m *Manager) setLastError(path string, err error) {
	m.mu.Lock()
	m.lastErr = err
	m.lastPath = path
	m.mu.Unlock()
}

func (m *Manager) recordOutcome(path, outcome string) {
	if outcome == "" {
		return
	}
	m.mu.Lock()
	m.counts[outcome]++
	m.lastPath = path
	m.mu.Unlock()
}
