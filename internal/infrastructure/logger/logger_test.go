package logger

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func TestNew(t *testing.T) {
	t.Run("writes json to a file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "fusion.log")
		log, err := New(&Config{Level: "debug", Format: "json", Output: path})
		require.NoError(t, err)

		log.Info("profile saved", zap.String("profile_id", "p-1"))
		require.NoError(t, log.Sync())

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"msg":"profile saved"`)
		assert.Contains(t, string(data), `"profile_id":"p-1"`)
	})

	t.Run("fails on an unwritable output", func(t *testing.T) {
		_, err := New(&Config{Output: filepath.Join(t.TempDir(), "missing", "fusion.log")})
		assert.Error(t, err)
	})

	t.Run("nil config uses defaults", func(t *testing.T) {
		log, err := New(nil)
		require.NoError(t, err)
		assert.NotNil(t, log)
	})
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		" WARN ":  zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"bogus":   zapcore.InfoLevel,
		"":        zapcore.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestContextHelpers(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	ctx := context.Background()

	assert.NotNil(t, FromContext(ctx))

	ctx, _ = WithTenantID(ctx, zap.New(core), "tenant-1")
	ctx, log := WithProfileID(ctx, FromContext(ctx), "profile-9")

	assert.Equal(t, "tenant-1", GetTenantID(ctx))
	assert.Equal(t, "profile-9", GetProfileID(ctx))
	assert.Empty(t, GetRequestID(ctx))

	log.Info("pushing prices")
	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "tenant-1", fields["tenant_id"])
	assert.Equal(t, "profile-9", fields["profile_id"])
}

func TestL_AddsTraceContext(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	spanCtx := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled})

	ctx := trace.ContextWithSpanContext(WithContext(context.Background(), zap.New(core)), spanCtx)
	L(ctx).Info("traced")

	fields := logs.All()[0].ContextMap()
	assert.Equal(t, traceID.String(), fields["trace_id"])
	assert.Equal(t, spanID.String(), fields["span_id"])

	L(WithContext(context.Background(), zap.New(core))).Info("untraced")
	assert.NotContains(t, logs.All()[1].ContextMap(), "trace_id")
}

func TestGinMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.InfoLevel)

	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set("request_id", "req-1"); c.Next() })
	r.Use(GinMiddleware(zap.New(core)), Recovery(zap.New(core)))
	r.GET("/profiles/:id", func(c *gin.Context) {
		assert.Equal(t, "req-1", GetRequestID(c.Request.Context()))
		GetGinLogger(c).Info("handler ran")
		c.Status(http.StatusNotFound)
	})
	r.GET("/panic", func(*gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/profiles/42?verbose=1", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	entries := logs.FilterMessage("HTTP Request").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	fields := entries[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "/profiles/:id", fields["route"])
	assert.Equal(t, "verbose=1", fields["query"])
	assert.Equal(t, 1, logs.FilterMessage("handler ran").Len())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")
	assert.Equal(t, 1, logs.FilterMessage("Panic recovered").Len())
}

func TestGinMiddleware_RedactsCredentials(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.DebugLevel)

	r := gin.New()
	r.Use(GinMiddleware(zap.New(core)))
	r.POST("/webhooks/woocommerce/:id", func(c *gin.Context) { c.Status(http.StatusUnauthorized) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/webhooks/woocommerce/abc?secret=TOPSECRET&page=2", nil))
	require.Equal(t, http.StatusUnauthorized, w.Code)

	entries := logs.All()
	require.NotEmpty(t, entries)
	for _, e := range entries {
		assert.NotContains(t, fmt.Sprint(e.ContextMap()), "TOPSECRET")
	}
	assert.Equal(t, "page=2&secret=REDACTED", logs.FilterMessage("HTTP Request").All()[0].ContextMap()["query"])
}

func TestRedactQuery(t *testing.T) {
	assert.Equal(t, "", redactQuery(""))
	assert.Equal(t, "b=2&a=1", redactQuery("b=2&a=1"))
	assert.Equal(t, "Consumer_Secret=REDACTED", redactQuery("Consumer_Secret=cs_live"))
	assert.Equal(t, "[unparsable]", redactQuery("token=%zz"))
}

func TestGetGinLogger_Missing(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.NotNil(t, GetGinLogger(c))
}

func TestGormLogger_Trace(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	gl := NewGormLogger(zap.New(core), gormlogger.Info, WithSlowThreshold(50*time.Millisecond))
	ctx, _ := WithProfileID(context.Background(), zap.NewNop(), "profile-9")
	query := func() (string, int64) { return `SELECT * FROM "item_links"`, 3 }

	gl.Trace(ctx, time.Now(), query, nil)
	gl.Trace(ctx, time.Now().Add(-time.Second), query, nil)
	gl.Trace(ctx, time.Now(), query, gormlogger.ErrRecordNotFound)
	gl.Trace(ctx, time.Now(), query, errors.New("connection reset"))

	assert.Equal(t, 1, logs.FilterMessage("SQL query").Len())
	assert.Equal(t, 1, logs.FilterMessage("Slow SQL").Len())
	require.Equal(t, 1, logs.FilterMessage("SQL error").Len())
	assert.Equal(t, "profile-9", logs.FilterMessage("SQL error").All()[0].ContextMap()["profile_id"])

	silent := gl.LogMode(gormlogger.Silent)
	silent.Trace(ctx, time.Now(), query, errors.New("ignored"))
	assert.Equal(t, 3, logs.Len())
}

func TestMapGormLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, MapGormLogLevel("silent"))
	assert.Equal(t, gormlogger.Info, MapGormLogLevel("debug"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel("unknown"))
}
