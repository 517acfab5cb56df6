// Package cleanup runs the background maintenance of a Grain server: purging
// records that sat in the trash past the retention period, dropping expired
// sessions and vacuuming the database.
package cleanup

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Config defines retention policies and cleanup intervals
type Config struct {
	Enabled bool
	// TrashRetentionDays is how long soft-deleted records are kept; 0 keeps them forever
	TrashRetentionDays int
	CleanupInterval    time.Duration
	VacuumInterval     time.Duration
	// InitialDelay postpones the first run after Start
	InitialDelay time.Duration
}

// DefaultConfig returns sensible defaults for cleanup
func DefaultConfig() Config {
	return Config{
		Enabled:            true,
		TrashRetentionDays: 30,
		CleanupInterval:    time.Hour,
		VacuumInterval:     7 * 24 * time.Hour,
		InitialDelay:       time.Minute,
	}
}

// Store is the part of store.Store the manager needs
type Store interface {
	PurgeDeleted(ctx context.Context, before time.Time) (map[string]int64, error)
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
	Vacuum(ctx context.Context) error
}

// Stats tracks cleanup operations
type Stats struct {
	LastCleanupTime      time.Time        `json:"lastCleanupTime"`
	LastVacuumTime       time.Time        `json:"lastVacuumTime"`
	LastCleanupDuration  time.Duration    `json:"lastCleanupDuration"`
	LastVacuumDuration   time.Duration    `json:"lastVacuumDuration"`
	TotalRecordsPurged   int64            `json:"totalRecordsPurged"`
	PurgedByTable        map[string]int64 `json:"purgedByTable"`
	TotalSessionsExpired int64            `json:"totalSessionsExpired"`
	TotalVacuumRuns      int64            `json:"totalVacuumRuns"`
	LastError            string           `json:"lastError,omitempty"`
}

// Manager handles automatic cleanup of trashed records and maintenance
type Manager struct {
	config Config
	store  Store
	log    *zap.Logger
	now    func() time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu    sync.RWMutex
	stats Stats
}

// New creates a new cleanup manager
func New(config Config, s Store, log *zap.Logger) *Manager {
	return &Manager{
		config: config,
		store:  s,
		log:    log.Named("cleanup"),
		now:    time.Now,
		stats:  Stats{PurgedByTable: make(map[string]int64)},
	}
}

// Start begins the automatic cleanup process. The loops stop when ctx is
// cancelled or Stop is called.
func (m *Manager) Start(ctx context.Context) {
	if !m.config.Enabled {
		m.log.Info("Cleanup manager disabled")
		return
	}

	ctx, m.cancel = context.WithCancel(ctx)
	m.log.Info("Starting cleanup manager",
		zap.Int("trash_retention_days", m.config.TrashRetentionDays),
		zap.Duration("interval", m.config.CleanupInterval),
		zap.Duration("vacuum_interval", m.config.VacuumInterval))

	m.wg.Add(1)
	go m.loop(ctx, m.config.CleanupInterval, m.config.InitialDelay, m.RunOnce)
	if m.config.VacuumInterval > 0 {
		m.wg.Add(1)
		go m.loop(ctx, m.config.VacuumInterval, m.config.VacuumInterval, m.Vacuum)
	}
}

// Stop gracefully stops the cleanup manager
func (m *Manager) Stop() {
	if m.cancel == nil {
		return
	}
	m.log.Info("Stopping cleanup manager")
	m.cancel()
	m.wg.Wait()
	m.log.Info("Cleanup manager stopped")
}

func (m *Manager) loop(ctx context.Context, interval, first time.Duration, run func(context.Context) error) {
	defer m.wg.Done()
	if interval <= 0 {
		return
	}

	timer := time.NewTimer(first)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			_ = run(ctx)
			timer.Reset(interval)
		}
	}
}

// RunOnce purges expired trash and sessions immediately
func (m *Manager) RunOnce(ctx context.Context) error {
	start := m.now()
	var purged map[string]int64
	var firstErr error

	if m.config.TrashRetentionDays > 0 {
		cutoff := start.Add(-time.Duration(m.config.TrashRetentionDays) * 24 * time.Hour)
		var err error
		purged, err = m.store.PurgeDeleted(ctx, cutoff)
		if err != nil {
			m.log.Error("Failed to purge trash", zap.Time("cutoff", cutoff), zap.Error(err))
			firstErr = err
		}
	}

	expired, err := m.store.DeleteExpiredSessions(ctx, start)
	if err != nil {
		m.log.Error("Failed to delete expired sessions", zap.Error(err))
		if firstErr == nil {
			firstErr = err
		}
	}

	var total int64
	m.mu.Lock()
	for table, n := range purged {
		m.stats.PurgedByTable[table] += n
		total += n
	}
	m.stats.TotalRecordsPurged += total
	m.stats.TotalSessionsExpired += expired
	m.stats.LastCleanupTime = m.now()
	m.stats.LastCleanupDuration = m.stats.LastCleanupTime.Sub(start)
	m.recordError(firstErr)
	m.mu.Unlock()

	m.log.Info("Cleanup complete",
		zap.Int64("records_purged", total),
		zap.Int64("sessions_expired", expired))
	return firstErr
}

// Vacuum performs database maintenance immediately
func (m *Manager) Vacuum(ctx context.Context) error {
	start := m.now()
	err := m.store.Vacuum(ctx)

	m.mu.Lock()
	m.recordError(err)
	if err == nil {
		m.stats.LastVacuumTime = m.now()
		m.stats.LastVacuumDuration = m.stats.LastVacuumTime.Sub(start)
		m.stats.TotalVacuumRuns++
	}
	m.mu.Unlock()

	if err != nil {
		m.log.Error("Database vacuum failed", zap.Error(err))
		return err
	}
	m.log.Info("Database vacuum complete", zap.Duration("duration", m.now().Sub(start)))
	return nil
}

// caller holds mu
func (m *Manager) recordError(err error) {
	if err != nil {
		m.stats.LastError = err.Error()
	} else {
		m.stats.LastError = ""
	}
}

// Stats returns current cleanup statistics
func (m *Manager) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := m.stats
	s.PurgedByTable = make(map[string]int64, len(m.stats.PurgedByTable))
	for k, v := range m.stats.PurgedByTable {
		s.PurgedByTable[k] = v
	}
	return s
}
