package models

import "time"

// EmailSendLog records every outgoing email and whether delivery succeeded
type EmailSendLog struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	EmailTo    string    `gorm:"size:300" json:"emailto"`
	Title      string    `gorm:"size:2000" json:"title"`
	Content    string    `gorm:"type:text" json:"content"`
	SendResult bool      `gorm:"default:false" json:"send_result"`
	CreatedAt  time.Time `gorm:"index" json:"creation_time"`
}

// Command is a named shell command stored for the admin console
type Command struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"size:300;not null" json:"title"`
	Command     string    `gorm:"size:2000;not null" json:"command"`
	Description string    `gorm:"size:300" json:"describe"`
	CreatedAt   time.Time `json:"creation_time"`
	UpdatedAt   time.Time `json:"last_modify_time"`
}
