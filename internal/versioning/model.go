package versioning

// VersionedModel is embedded by every business entity carrying a version counter.
type VersionedModel struct {
	Version int64 `gorm:"not null;default:1" json:"version"`
}

func (m *VersionedModel) RowVersion() int64     { return m.Version }
func (m *VersionedModel) SetRowVersion(v int64) { m.Version = v }

// SyncedModel is embedded by the entity types that opt into sync tracking.
type SyncedModel struct {
	SyncStatus SyncStatus `gorm:"type:varchar(16);not null;default:'pending'" json:"sync_status"`
}

func (m *SyncedModel) SetSyncStatus(s SyncStatus) { m.SyncStatus = s }
