// Package migrate transfers guest-accumulated quiz progress into an
// authenticated account. The transfer runs as discrete named steps so
// a UI can render progress, and a persisted backup guarantees that a
// failed migration never drops guest data: rollback restores exactly
// the pre-migration state.
package migrate

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nstepa/quizdeck/internal/client/history"
	"github.com/nstepa/quizdeck/internal/client/secure"
	"github.com/nstepa/quizdeck/internal/client/storage"
	pkgapi "github.com/nstepa/quizdeck/pkg/api"
)

// Status is the migration state.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// step names, in execution order
var steps = []string{
	"snapshot progress",
	"transfer quiz history",
	"reassign local history",
	"clear guest data",
}

// Snapshot is one observable progress update.
type Snapshot struct {
	CurrentStep    string
	Status         Status
	Error          string
	CompletedSteps int
	TotalSteps     int
}

// APIClient is the slice of the backend API migration needs.
type APIClient interface {
	SaveQuizSession(ctx context.Context, accessToken string, req pkgapi.QuizSessionRequest) (*pkgapi.QuizSessionResponse, error)
	GetUser(ctx context.Context, accessToken, userID string) (*pkgapi.User, error)
}

// Target identifies where the guest data goes.
type Target struct {
	GuestID     string
	UserID      string
	AccessToken string
	DeviceID    string
}

// Migrator is the guest-to-account migration state machine.
type Migrator struct {
	api     APIClient
	store   *secure.Store
	history *history.Store
	logger  *slog.Logger

	mu        sync.Mutex
	status    Status
	current   string
	lastErr   string
	backup    *storage.GuestProgress
	completed int
}

// New creates an idle migrator.
func New(apiClient APIClient, store *secure.Store, hist *history.Store, logger *slog.Logger) *Migrator {
	return &Migrator{
		api:     apiClient,
		store:   store,
		history: hist,
		logger:  logger,
		status:  StatusIdle,
	}
}

// Progress returns the current state for poll-style consumers.
func (m *Migrator) Progress() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Migrator) snapshotLocked() Snapshot {
	return Snapshot{
		CompletedSteps: m.completed,
		TotalSteps:     len(steps),
		CurrentStep:    m.current,
		Status:         m.status,
		Error:          m.lastErr,
	}
}

// Run starts the migration and returns a stream of progress snapshots.
// The channel closes when a terminal state is reached or ctx is
// cancelled. Run refuses to start unless the migrator is idle; a
// failed migration must be rolled back first.
func (m *Migrator) Run(ctx context.Context, target Target) (<-chan Snapshot, error) {
	m.mu.Lock()
	if m.status != StatusIdle {
		status := m.status
		m.mu.Unlock()
		return nil, fmt.Errorf("migration cannot start from status %q", status)
	}
	m.status = StatusInProgress
	m.completed = 0
	m.lastErr = ""
	m.mu.Unlock()

	// a full run emits two snapshots per step plus the terminal one;
	// the buffer holds them all so a slow consumer never blocks the
	// worker
	updates := make(chan Snapshot, 2*len(steps)+1)

	go func() {
		defer close(updates)
		m.run(ctx, target, updates)
	}()

	return updates, nil
}

func (m *Migrator) run(ctx context.Context, target Target, updates chan<- Snapshot) {
	// step 1: snapshot the progress into the durable backup
	m.beginStep(0, updates)
	var progress storage.GuestProgress
	if !m.store.Retrieve(ctx, storage.KeyGuestProgress, &progress) {
		m.fail(fmt.Errorf("no guest progress to migrate"), updates)
		return
	}
	if err := m.store.Store(ctx, storage.KeyMigrationBackup, progress); err != nil {
		m.fail(fmt.Errorf("failed to persist backup: %w", err), updates)
		return
	}
	m.mu.Lock()
	m.backup = &progress
	m.mu.Unlock()
	m.finishStep(updates)

	// step 2: push the guest's quiz history to the account
	m.beginStep(1, updates)
	results, err := m.history.ListByOwner(ctx, target.GuestID)
	if err != nil {
		m.fail(fmt.Errorf("failed to load guest history: %w", err), updates)
		return
	}
	for _, r := range results {
		if err := ctx.Err(); err != nil {
			m.fail(fmt.Errorf("migration cancelled: %w", err), updates)
			return
		}
		if r.Synced {
			continue
		}
		req := pkgapi.QuizSessionRequest{
			UserID:         target.UserID,
			DeviceID:       target.DeviceID,
			Topic:          r.Topic,
			Score:          r.Score,
			TotalQuestions: r.TotalQuestions,
			TakenAt:        r.TakenAt,
		}
		if _, err := m.api.SaveQuizSession(ctx, target.AccessToken, req); err != nil {
			m.fail(fmt.Errorf("failed to save quiz session %q: %w", r.ID, err), updates)
			return
		}
		if err := m.history.MarkSynced(ctx, r.ID); err != nil {
			m.fail(fmt.Errorf("failed to mark %q synced: %w", r.ID, err), updates)
			return
		}
	}
	m.finishStep(updates)

	// step 3: local history rows now belong to the account
	m.beginStep(2, updates)
	moved, err := m.history.ReassignOwner(ctx, target.GuestID, target.UserID)
	if err != nil {
		m.fail(fmt.Errorf("failed to reassign history: %w", err), updates)
		return
	}
	m.logger.InfoContext(ctx, "history reassigned",
		slog.Int("rows", moved), slog.String("user_id", target.UserID))
	m.finishStep(updates)

	// step 4: guest progress and the backup are no longer needed
	m.beginStep(3, updates)
	if err := m.store.Delete(ctx, storage.KeyGuestProgress); err != nil {
		m.fail(fmt.Errorf("failed to clear guest progress: %w", err), updates)
		return
	}
	if err := m.store.Delete(ctx, storage.KeyMigrationBackup); err != nil {
		m.fail(fmt.Errorf("failed to clear backup: %w", err), updates)
		return
	}
	m.finishStep(updates)

	m.mu.Lock()
	m.status = StatusCompleted
	m.current = ""
	m.backup = nil
	snap := m.snapshotLocked()
	m.mu.Unlock()
	updates <- snap
}

// Rollback restores the guest progress from the backup and returns
// the machine to idle. Only valid from the failed state.
func (m *Migrator) Rollback(ctx context.Context) error {
	m.mu.Lock()
	if m.status != StatusFailed {
		status := m.status
		m.mu.Unlock()
		return fmt.Errorf("rollback is only valid from failed status, got %q", status)
	}
	backup := m.backup
	m.mu.Unlock()

	if backup == nil {
		// process restarted between fail and rollback
		var restored storage.GuestProgress
		if !m.store.Retrieve(ctx, storage.KeyMigrationBackup, &restored) {
			return fmt.Errorf("no backup available to roll back from")
		}
		backup = &restored
	}

	if err := m.store.Store(ctx, storage.KeyGuestProgress, *backup); err != nil {
		return fmt.Errorf("failed to restore guest progress: %w", err)
	}
	if err := m.store.Delete(ctx, storage.KeyMigrationBackup); err != nil {
		return fmt.Errorf("failed to clear backup: %w", err)
	}

	m.mu.Lock()
	m.status = StatusIdle
	m.current = ""
	m.lastErr = ""
	m.backup = nil
	m.completed = 0
	m.mu.Unlock()

	m.logger.InfoContext(ctx, "migration rolled back")
	return nil
}

func (m *Migrator) beginStep(index int, updates chan<- Snapshot) {
	m.mu.Lock()
	m.current = steps[index]
	snap := m.snapshotLocked()
	m.mu.Unlock()
	updates <- snap
}

func (m *Migrator) finishStep(updates chan<- Snapshot) {
	m.mu.Lock()
	m.completed++
	snap := m.snapshotLocked()
	m.mu.Unlock()
	updates <- snap
}

func (m *Migrator) fail(err error, updates chan<- Snapshot) {
	m.logger.Error("migration failed", slog.Any("error", err))

	m.mu.Lock()
	m.status = StatusFailed
	m.lastErr = err.Error()
	snap := m.snapshotLocked()
	m.mu.Unlock()
	updates <- snap
}
