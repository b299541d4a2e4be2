package repository

import (
	"context"

	"github.com/quillblog/backend/internal/models"
	"gorm.io/gorm"
)

// ServerManagerRepository backs the admin console's email log and command lists
type ServerManagerRepository interface {
	ListEmailLogs(ctx context.Context, limit, offset int) ([]models.EmailSendLog, error)
	ListCommands(ctx context.Context) ([]models.Command, error)
	CreateCommand(ctx context.Context, cmd *models.Command) error
}

type serverManagerRepository struct {
	db *gorm.DB
}

// NewServerManagerRepository creates a new admin console repository
func NewServerManagerRepository(db *gorm.DB) ServerManagerRepository {
	return &serverManagerRepository{db: db}
}

func (r *serverManagerRepository) ListEmailLogs(ctx context.Context, limit, offset int) ([]models.EmailSendLog, error) {
	var logs []models.EmailSendLog
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&logs).Error
	return logs, err
}

func (r *serverManagerRepository) ListCommands(ctx context.Context) ([]models.Command, error) {
	var cmds []models.Command
	err := r.db.WithContext(ctx).Order("id ASC").Find(&cmds).Error
	return cmds, err
}

func (r *serverManagerRepository) CreateCommand(ctx context.Context, cmd *models.Command) error {
	if cmd == nil {
		return ErrInvalidInput
	}
	return r.db.WithContext(ctx).Create(cmd).Error
}
