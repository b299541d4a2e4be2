package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/quillblog/backend/internal/models"
	"github.com/quillblog/backend/internal/owntracks"
	"github.com/stretchr/testify/suite"
)

type OwnTracksTestSuite struct {
	apiSuite
	userToken  string
	adminToken string
}

func (s *OwnTracksTestSuite) SetupTest() {
	s.apiSuite.SetupTest()
	s.createUser("viewer", "viewer@example.com", false)
	s.createUser("root", "root@example.com", true)
	s.userToken = s.login("viewer")
	s.adminToken = s.login("root")
}

func (s *OwnTracksTestSuite) insertLog(tid string, lat, lon float64, at time.Time) {
	s.Require().NoError(s.kernel.DB().Create(&models.OwnTrackLog{Tid: tid, Lat: lat, Lon: lon, CreatedAt: at}).Error)
}

func (s *OwnTracksTestSuite) TestIngestStoresPing() {
	w := s.request(http.MethodPost, "/owntracks/logs", gin.H{"tid": "ph", "lat": 31.2, "lon": 121.5}, "")
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var logs []models.OwnTrackLog
	s.Require().NoError(s.kernel.DB().Find(&logs).Error)
	s.Require().Len(logs, 1)
	s.Equal("ph", logs[0].Tid)
	s.InDelta(31.2, logs[0].Lat, 1e-9)
	s.InDelta(121.5, logs[0].Lon, 1e-9)
}

func (s *OwnTracksTestSuite) TestIngestRejectsBadInput() {
	cases := map[string]interface{}{
		"missing tid":   gin.H{"lat": 1.0, "lon": 2.0},
		"missing lat":   gin.H{"tid": "ph", "lon": 2.0},
		"missing lon":   gin.H{"tid": "ph", "lat": 1.0},
		"empty body":    gin.H{},
		"malformed":     `{"tid": "ph", "lat":`,
		"wrong types":   `{"tid": 5, "lat": "north", "lon": 2}`,
		"out of range":  gin.H{"tid": "ph", "lat": 91.0, "lon": 2.0},
		"blank tid":     gin.H{"tid": "  ", "lat": 1.0, "lon": 2.0},
		"lon too small": gin.H{"tid": "ph", "lat": 1.0, "lon": -181.0},
	}
	for name, body := range cases {
		s.Run(name, func() {
			w := s.request(http.MethodPost, "/owntracks/logs", body, "")
			s.assertError(w, http.StatusBadRequest, "")
		})
	}

	var count int64
	s.Require().NoError(s.kernel.DB().Model(&models.OwnTrackLog{}).Count(&count).Error)
	s.Zero(count)
}

func (s *OwnTracksTestSuite) TestIngestMissingFieldSaysDataError() {
	w := s.request(http.MethodPost, "/owntracks/logs", gin.H{"tid": "ph"}, "")
	body := s.assertError(w, http.StatusBadRequest, "")
	s.Equal("data error", body.Message)
}

func (s *OwnTracksTestSuite) TestShowMapsRequiresSuperuser() {
	w := s.request(http.MethodGet, "/owntracks/show-maps", nil, "")
	s.assertError(w, http.StatusUnauthorized, "")

	w = s.request(http.MethodGet, "/owntracks/show-maps", nil, s.userToken)
	s.assertError(w, http.StatusForbidden, "")

	w = s.request(http.MethodGet, "/owntracks/show-maps?date=2024-05-01", nil, s.adminToken)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), `"date":"2024-05-01"`)

	w = s.request(http.MethodGet, "/owntracks/show-maps?date=May", nil, s.adminToken)
	s.assertError(w, http.StatusUnprocessableEntity, "date")
}

func (s *OwnTracksTestSuite) TestShowLogDates() {
	s.insertLog("a", 1, 1, time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC))
	s.insertLog("a", 1, 1, time.Date(2024, 5, 1, 23, 0, 0, 0, time.UTC))
	s.insertLog("b", 1, 1, time.Date(2024, 5, 2, 11, 0, 0, 0, time.UTC))

	w := s.request(http.MethodGet, "/owntracks/show-log-dates", nil, "")
	s.assertError(w, http.StatusUnauthorized, "")

	w = s.request(http.MethodGet, "/owntracks/show-log-dates", nil, s.userToken)
	s.Require().Equal(http.StatusOK, w.Code)
	s.JSONEq(`{"dates":["2024-05-01","2024-05-02"]}`, w.Body.String())
}

func (s *OwnTracksTestSuite) TestGetDatasGroupsByDevice() {
	day := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	s.insertLog("b", 30.5, 120.25, day.Add(2*time.Hour))
	s.insertLog("a", 31, 121, day.Add(3*time.Hour))
	s.insertLog("a", 30, 120, day.Add(1*time.Hour))
	s.insertLog("a", 0, 0, day.Add(-time.Hour))

	w := s.request(http.MethodGet, "/owntracks/get-datas?date=2024-05-02", nil, s.userToken)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var tracks []owntracks.Track
	s.decode(w, &tracks)
	s.Require().Len(tracks, 2)
	s.Equal("a", tracks[0].Name)
	s.Equal([][2]string{{"120", "30"}, {"121", "31"}}, tracks[0].Path)
	s.Equal("b", tracks[1].Name)
	s.Equal([][2]string{{"120.25", "30.5"}}, tracks[1].Path)

	w = s.request(http.MethodGet, "/owntracks/get-datas?date=2024-06-01", nil, s.userToken)
	s.Require().Equal(http.StatusOK, w.Code)
	s.JSONEq(`[]`, w.Body.String())

	w = s.request(http.MethodGet, "/owntracks/get-datas?convert=wgs", nil, s.userToken)
	s.assertError(w, http.StatusUnprocessableEntity, "convert")
}

func (s *OwnTracksTestSuite) TestGetDatasConvertsThroughAMap() {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"1","info":"ok","locations":"120.005,30.002"}`))
	}))
	defer srv.Close()

	s.kernel.SetConverter(owntracks.NewAMapClient(srv.URL, "key"))
	s.Require().NoError(s.kernel.Wire(s.kernel.Config))
	s.rebuildRouter()

	s.insertLog("a", 30, 120, time.Date(2024, 5, 2, 1, 0, 0, 0, time.UTC))

	w := s.request(http.MethodGet, "/owntracks/get-datas?date=2024-05-02&convert=amap", nil, s.userToken)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.JSONEq(`[{"name":"a","path":[["120.005","30.002"]]}]`, w.Body.String())
	s.Equal(1, calls)

	srv.Close()
	w = s.request(http.MethodGet, "/owntracks/get-datas?date=2024-05-02&convert=amap", nil, s.userToken)
	s.assertError(w, http.StatusServiceUnavailable, "")
}

func (s *OwnTracksTestSuite) TestIngestedPingVisibleToday() {
	ctx := context.Background()
	lat, lon := owntracks.RandomLocation(nil)
	_, err := s.kernel.OwnTracks().Ingest(ctx, owntracks.Ping{Tid: "demo", Lat: &lat, Lon: &lon})
	s.Require().NoError(err)

	w := s.request(http.MethodGet, "/owntracks/get-datas", nil, s.userToken)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), `"name":"demo"`)
}

func TestOwnTracksTestSuite(t *testing.T) {
	suite.Run(t, new(OwnTracksTestSuite))
}

func TestPastDayOnly(t *testing.T) {
	gin.SetMode(gin.TestMode)
	yesterday := time.Now().UTC().AddDate(0, 0, -1).Format(owntracks.DateLayout)
	today := time.Now().UTC().Format(owntracks.DateLayout)

	cases := map[string]bool{
		"":                   false,
		"?date=" + today:     false,
		"?date=" + yesterday: true,
		"?date=2020-01-01":   true,
		"?date=garbage":      false,
		"?date=2999-01-01":   false,
	}
	for query, want := range cases {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/owntracks/get-datas"+query, nil)
		if got := PastDayOnly(c); got != want {
			t.Errorf("PastDayOnly(%q) = %v, want %v", query, got, want)
		}
	}
}
