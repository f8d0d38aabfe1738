// Package versioning owns the row version counter and the sync dirty flag.
// Every persistence write path funnels through Tracker.OnMutate inside the
// same transaction as the business mutation; nothing else may set these fields.
package versioning

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SyncStatus is the dirty-tracking flag consumed by the offline sync collaborator.
// The tracker only ever writes SyncPending; other values are written by the
// sync collaborator itself.
type SyncStatus string

const (
	SyncPending  SyncStatus = "pending"
	SyncSynced   SyncStatus = "synced"
	SyncConflict SyncStatus = "conflict"
)

// Versioned is implemented by every business entity that carries a version counter.
type Versioned interface {
	EntityID() snowflake.ID
	RowVersion() int64
	SetRowVersion(int64)
}

// SyncTracked marks the entity types that carry a sync_status column.
// The set of implementers is closed and known at compile time, which is the
// capability query the tracker dispatches on.
type SyncTracked interface {
	Versioned
	SetSyncStatus(SyncStatus)
}

// Mode selects how the tracker treats entities without a sync_status column.
type Mode string

const (
	// ModeConditional touches sync_status only on entities that carry it.
	ModeConditional Mode = "conditional"
	// ModeUnconditional is the legacy behavior: every mutation must carry a
	// sync_status column, and mutating an entity without one is an error.
	ModeUnconditional Mode = "unconditional"
)

// ErrSyncColumnMissing is returned in unconditional mode for entities that
// lack a sync_status column.
var ErrSyncColumnMissing = errors.New("sync_column_missing")

// Tracker computes the next row version and resolves the sync flag on every
// mutation. The caller supplies the stored previous version, read in the same
// transaction, never the one carried by the payload.
type Tracker struct {
	log  *zap.Logger
	mode atomic.Value
}

// NewTracker starts in the legacy unconditional mode. The conditional mode is
// installed by the evolution step that persists the sync_touch_mode setting;
// LoadMode picks it up at startup.
func NewTracker(log *zap.Logger) *Tracker {
	t := &Tracker{log: log.Named("versioning.tracker")}
	t.mode.Store(ModeUnconditional)
	return t
}

func (t *Tracker) Mode() Mode {
	return t.mode.Load().(Mode)
}

func (t *Tracker) SetMode(mode Mode) {
	t.mode.Store(mode)
}

// LoadMode refreshes the tracker mode from the persisted setting. Missing
// setting keeps the current mode.
func (t *Tracker) LoadMode(ctx context.Context, conn *gorm.DB) error {
	var setting Setting
	err := conn.WithContext(ctx).Where("key = ?", SyncTouchModeKey).First(&setting).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("load tracker mode: %w", err)
	}
	switch Mode(setting.Value) {
	case ModeConditional, ModeUnconditional:
		t.SetMode(Mode(setting.Value))
	}
	return nil
}

// OnMutate advances the row version to previousVersion+1 and, when the entity
// carries a sync_status column, forces it to pending regardless of the value
// supplied by the caller. previousVersion is the version stored immediately
// before this mutation; zero means creation.
func (t *Tracker) OnMutate(row Versioned, previousVersion int64) (int64, SyncStatus, bool, error) {
	if previousVersion < 0 {
		previousVersion = 0
	}
	next := previousVersion + 1

	tracked, hasSync := row.(SyncTracked)
	if !hasSync && t.Mode() == ModeUnconditional {
		return 0, "", false, fmt.Errorf("%w: entity %d", ErrSyncColumnMissing, row.EntityID())
	}

	row.SetRowVersion(next)
	if hasSync {
		tracked.SetSyncStatus(SyncPending)
		return next, SyncPending, true, nil
	}
	return next, "", false, nil
}
