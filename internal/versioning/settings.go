package versioning

// SyncTouchModeKey is the app_settings key holding the tracker mode.
const SyncTouchModeKey = "sync_touch_mode"

// Setting is a generic key/value application setting row.
type Setting struct {
	Key   string `gorm:"primaryKey;column:key" json:"key"`
	Value string `gorm:"not null" json:"value"`
}

func (Setting) TableName() string { return "app_settings" }
