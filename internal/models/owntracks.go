package models

import "time"

// OwnTrackLog is a single location ping reported by an OwnTracks device.
// Rows are never updated after insert.
type OwnTrackLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Tid       string    `gorm:"size:100;not null;index" json:"tid"`
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	CreatedAt time.Time `gorm:"index" json:"creation_time"`
}

// TableName matches the legacy table name
func (OwnTrackLog) TableName() string {
	return "owntracks_log"
}
