package handlers

import (
	stderrors "errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/quillblog/backend/internal/errors"
	"github.com/quillblog/backend/internal/logger"
	"github.com/quillblog/backend/internal/owntracks"
	"github.com/quillblog/backend/internal/util"
	"go.uber.org/zap"
)

// convertAMap is the get-datas convert value selecting AMap coordinates
const convertAMap = "amap"

// IngestLocation stores a ping posted by an OwnTracks device. Anyone may
// post; bad input is a 400, never a 500.
// POST /owntracks/logs
func (h *Handlers) IngestLocation(c *gin.Context) {
	var ping owntracks.Ping
	if err := c.ShouldBindJSON(&ping); err != nil {
		util.RespondBadRequest(c, owntracks.ErrInvalidData.Error())
		return
	}

	if _, err := h.tracks.Ingest(c.Request.Context(), ping); err != nil {
		switch {
		case stderrors.Is(err, owntracks.ErrInvalidData):
			util.RespondBadRequest(c, owntracks.ErrInvalidData.Error())
		case stderrors.Is(err, owntracks.ErrOutOfRange):
			util.RespondBadRequest(c, err.Error())
		default:
			util.RespondInternalError(c, "Failed to store location", err)
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}

// parseDay reads the date query parameter, defaulting to today
func parseDay(c *gin.Context) (time.Time, bool) {
	day, err := util.ParseDate(c.Query("date"), time.Now())
	if err != nil {
		util.RespondValidationError(c, "date", "date must be YYYY-MM-DD")
		return time.Time{}, false
	}
	return day, true
}

// ShowMaps returns the map page parameters for a day
// GET /owntracks/show-maps?date=
func (h *Handlers) ShowMaps(c *gin.Context) {
	day, ok := parseDay(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"date":      day.Format(owntracks.DateLayout),
		"data_url":  "/owntracks/get-datas?date=" + day.Format(owntracks.DateLayout),
		"dates_url": "/owntracks/show-log-dates",
	})
}

// ShowLogDates lists every day that has location logs
// GET /owntracks/show-log-dates
func (h *Handlers) ShowLogDates(c *gin.Context) {
	dates, err := h.tracks.LogDates(c.Request.Context())
	if err != nil {
		util.RespondInternalError(c, "Failed to load log dates", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"dates": dates})
}

// GetDatas returns a day's pings grouped into one track per device
// GET /owntracks/get-datas?date=&convert=amap
func (h *Handlers) GetDatas(c *gin.Context) {
	day, ok := parseDay(c)
	if !ok {
		return
	}

	convert := false
	switch c.Query("convert") {
	case "":
	case convertAMap:
		convert = true
	default:
		util.RespondValidationError(c, "convert", "unsupported coordinate system")
		return
	}

	tracks, err := h.tracks.Tracks(c.Request.Context(), day, convert)
	if err != nil {
		if convert {
			logger.Log.Warn("Track conversion failed", zap.Error(err))
			util.RespondWithAPIError(c, errors.ServiceUnavailable("coordinate conversion"))
			return
		}
		util.RespondInternalError(c, "Failed to load tracks", err)
		return
	}
	c.JSON(http.StatusOK, tracks)
}

// PastDayOnly reports whether a get-datas request asks for a day that has
// ended. Ingestion stamps pings with the current time, so past days never
// change and their tracks can be cached.
func PastDayOnly(c *gin.Context) bool {
	date := c.Query("date")
	if date == "" {
		return false
	}
	day, err := time.ParseInLocation(owntracks.DateLayout, date, time.UTC)
	if err != nil {
		return false
	}
	y, m, d := time.Now().UTC().Date()
	return day.Before(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}
