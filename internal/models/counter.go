package models

// Counter is a named, monotonically increasing sequence.
type Counter struct {
	Name  string `gorm:"primaryKey;type:varchar(64)" json:"name"`
	Value uint64 `gorm:"not null;default:0" json:"value"`
}
