package owntracks

import (
	"context"
	"fmt"
	"time"

	json "github.com/json-iterator/go"
	"github.com/quillblog/backend/internal/logger"
	"github.com/quillblog/backend/internal/storage"
	"go.uber.org/zap"
)

// ExportPrefix is the object key prefix for day exports
const ExportPrefix = "owntracks"

// ExportResult describes an uploaded day export
type ExportResult struct {
	Date   string                `json:"date"`
	Count  int                   `json:"count"`
	Object *storage.UploadResult `json:"object"`
}

// Exporter writes a day's raw pings to object storage as JSON
type Exporter struct {
	service  *Service
	uploader storage.Uploader
}

// NewExporter creates a day exporter
func NewExporter(service *Service, uploader storage.Uploader) *Exporter {
	return &Exporter{service: service, uploader: uploader}
}

// ExportDay uploads every ping of the UTC day as a JSON array
func (e *Exporter) ExportDay(ctx context.Context, day time.Time) (*ExportResult, error) {
	logs, err := e.service.Logs(ctx, day)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(logs)
	if err != nil {
		return nil, fmt.Errorf("encode export: %w", err)
	}

	date := day.UTC().Format(DateLayout)
	key := storage.ObjectKey(ExportPrefix, day.UTC(), ".json")
	obj, err := e.uploader.Upload(ctx, key, "application/json", data, map[string]string{
		"log-date":  date,
		"log-count": fmt.Sprint(len(logs)),
	})
	if err != nil {
		return nil, err
	}

	logger.Log.Info("Exported location logs",
		zap.String("date", date),
		zap.Int("count", len(logs)),
		zap.String("key", obj.Key),
	)

	return &ExportResult{Date: date, Count: len(logs), Object: obj}, nil
}
