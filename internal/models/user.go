package models

import (
	"time"
)

// User sources
const (
	SourceRegister  = "Register"
	SourceAdminSite = "adminsite"
	SourceCLI       = "cli"
)

// User is a blog account. Registration creates it inactive; an emailed signed
// link activates it.
type User struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	Username     string `gorm:"uniqueIndex;size:150;not null" json:"username"`
	Email        string `gorm:"index;size:254" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"`
	Nickname     string `gorm:"size:100" json:"nickname"`

	IsActive    bool `gorm:"default:false" json:"is_active"`
	IsStaff     bool `gorm:"default:false" json:"is_staff"`
	IsSuperuser bool `gorm:"default:false" json:"is_superuser"`

	LastLogin  *time.Time `json:"last_login"`
	DateJoined time.Time  `json:"date_joined"`

	// Source records where the account was created: Register, adminsite or cli
	Source string `gorm:"size:100" json:"source"`

	CreatedAt time.Time `json:"creation_time"`
	UpdatedAt time.Time `json:"last_modify_time"`
}

// DisplayName returns the nickname, falling back to the username
func (u *User) DisplayName() string {
	if u.Nickname != "" {
		return u.Nickname
	}
	return u.Username
}

// PublicUser is the JSON shape of a user returned by the API
type PublicUser struct {
	ID          uint       `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	Nickname    string     `json:"nickname"`
	IsActive    bool       `json:"is_active"`
	IsSuperuser bool       `json:"is_superuser"`
	Source      string     `json:"source"`
	LastLogin   *time.Time `json:"last_login,omitempty"`
	DateJoined  time.Time  `json:"date_joined"`
}

// ToPublic strips credentials from a user
func (u *User) ToPublic() *PublicUser {
	return &PublicUser{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		Nickname:    u.Nickname,
		IsActive:    u.IsActive,
		IsSuperuser: u.IsSuperuser,
		Source:      u.Source,
		LastLogin:   u.LastLogin,
		DateJoined:  u.DateJoined,
	}
}
