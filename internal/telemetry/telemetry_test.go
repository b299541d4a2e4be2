package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return rec
}

func TestInitTracer_Disabled(t *testing.T) {
	tp, err := InitTracer(context.Background(), Config{Enabled: false})
	require.NoError(t, err)
	assert.Nil(t, tp)
	assert.NoError(t, Shutdown(context.Background(), nil))
}

func TestTraceExternalCall(t *testing.T) {
	rec := recordSpans(t)

	_, span := TraceExternalCall(context.Background(), "s3", "put_object")
	EndSpan(span, nil)
	_, span = TraceExternalCall(context.Background(), "ses", "send_email")
	EndSpan(span, errors.New("throttled"))

	ended := rec.Ended()
	require.Len(t, ended, 2)
	assert.Equal(t, "s3.put_object", ended[0].Name())
	assert.Equal(t, codes.Ok, ended[0].Status().Code)
	assert.Equal(t, "ses.send_email", ended[1].Name())
	assert.Equal(t, codes.Error, ended[1].Status().Code)
	assert.Equal(t, "throttled", ended[1].Status().Description)
}

func TestBusinessEvents(t *testing.T) {
	rec := recordSpans(t)

	_, span := TraceSidebarBuild(context.Background(), "i")
	span.End()
	_, span = TraceAccountEvent(context.Background(), "login")
	span.End()

	ended := rec.Ended()
	require.Len(t, ended, 2)
	assert.Equal(t, "sidebar.build", ended[0].Name())
	assert.Equal(t, "account.login", ended[1].Name())
}

type traceRow struct {
	ID   uint
	Name string
}

func TestGORMTracingPlugin(t *testing.T) {
	rec := recordSpans(t)

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	defer sqlDB.Close()
	require.NoError(t, db.AutoMigrate(&traceRow{}))

	// Plugin captures the tracer at construction, after the test provider is set
	require.NoError(t, db.Use(GORMTracingPlugin()))

	ctx := context.Background()
	require.NoError(t, db.WithContext(ctx).Create(&traceRow{Name: "a"}).Error)
	var got traceRow
	require.NoError(t, db.WithContext(ctx).First(&got).Error)
	err = db.WithContext(ctx).Where("name = ?", "missing").First(&got).Error
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	ended := rec.Ended()
	require.Len(t, ended, 3)
	assert.Equal(t, "db.insert", ended[0].Name())
	assert.Equal(t, "db.select", ended[1].Name())
	// Not-found is not a failure
	assert.NotEqual(t, codes.Error, ended[2].Status().Code)

	var system string
	for _, kv := range ended[0].Attributes() {
		if kv.Key == dbSystemKey {
			system = kv.Value.AsString()
		}
	}
	assert.Equal(t, "sqlite", system)
}
