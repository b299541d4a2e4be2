package repository

import (
	"context"
	"time"

	"github.com/quillblog/backend/internal/models"
	"gorm.io/gorm"
)

// OwnTrackRepository persists and queries location pings
type OwnTrackRepository interface {
	Create(ctx context.Context, log *models.OwnTrackLog) error
	// ListBetween returns pings with from <= creation time < to, oldest first
	ListBetween(ctx context.Context, from, to time.Time) ([]models.OwnTrackLog, error)
	// CreationTimes returns the creation time of every ping
	CreationTimes(ctx context.Context) ([]time.Time, error)
}

type ownTrackRepository struct {
	db *gorm.DB
}

// NewOwnTrackRepository creates a new location log repository
func NewOwnTrackRepository(db *gorm.DB) OwnTrackRepository {
	return &ownTrackRepository{db: db}
}

func (r *ownTrackRepository) Create(ctx context.Context, log *models.OwnTrackLog) error {
	if log == nil {
		return ErrInvalidInput
	}
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *ownTrackRepository) ListBetween(ctx context.Context, from, to time.Time) ([]models.OwnTrackLog, error) {
	var logs []models.OwnTrackLog
	err := r.db.WithContext(ctx).
		Where("created_at >= ? AND created_at < ?", from, to).
		Order("created_at ASC").
		Order("id ASC").
		Find(&logs).Error
	return logs, err
}

func (r *ownTrackRepository) CreationTimes(ctx context.Context) ([]time.Time, error) {
	var times []time.Time
	err := r.db.WithContext(ctx).
		Model(&models.OwnTrackLog{}).
		Pluck("created_at", &times).Error
	return times, err
}
