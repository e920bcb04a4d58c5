package telemetry

import (
	"errors"
	"strings"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const dbStartKey = "fusion_db:start"

// DBQueryBuckets are bucket boundaries for query durations (seconds)
var DBQueryBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5}

// DBConfig controls GORM instrumentation
type DBConfig struct {
	TraceEnabled       bool
	LogFullSQL         bool
	SlowQueryThreshold time.Duration
	DBSystem           string
}

type dbInstrumentation struct {
	config   DBConfig
	duration *Histogram
	slow     *Counter
}

// InstrumentDB registers otelgorm spans (when enabled) and query metrics on
// db. Queries slower than the threshold are counted and flagged on their span.
func InstrumentDB(db *gorm.DB, cfg DBConfig, meter metric.Meter, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DBSystem == "" {
		cfg.DBSystem = "postgresql"
	}

	if cfg.TraceEnabled {
		opts := []otelgorm.Option{otelgorm.WithDBName(cfg.DBSystem)}
		if !cfg.LogFullSQL {
			opts = append(opts, otelgorm.WithoutQueryVariables())
		}
		if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
			return err
		}
	}

	in := &dbInstrumentation{config: cfg}
	var err error
	in.duration, err = NewHistogram(meter, HistogramOpts{
		Name:        "fusion_db_query_duration_seconds",
		Description: "Duration of database statements",
		Unit:        "s",
		Boundaries:  DBQueryBuckets,
	})
	if err != nil {
		return err
	}
	in.slow, err = NewCounter(meter, "fusion_db_slow_queries_total", "Statements slower than the slow query threshold", "{queries}")
	if err != nil {
		return err
	}

	cb := db.Callback()
	err = errors.Join(
		cb.Create().Before("gorm:create").Register("fusion_db:before_create", in.before),
		cb.Query().Before("gorm:query").Register("fusion_db:before_query", in.before),
		cb.Update().Before("gorm:update").Register("fusion_db:before_update", in.before),
		cb.Delete().Before("gorm:delete").Register("fusion_db:before_delete", in.before),
		cb.Row().Before("gorm:row").Register("fusion_db:before_row", in.before),
		cb.Raw().Before("gorm:raw").Register("fusion_db:before_raw", in.before),
		cb.Create().After("gorm:create").Register("fusion_db:after_create", in.after("INSERT")),
		cb.Query().After("gorm:query").Register("fusion_db:after_query", in.after("SELECT")),
		cb.Update().After("gorm:update").Register("fusion_db:after_update", in.after("UPDATE")),
		cb.Delete().After("gorm:delete").Register("fusion_db:after_delete", in.after("DELETE")),
		cb.Row().After("gorm:row").Register("fusion_db:after_row", in.after("")),
		cb.Raw().After("gorm:raw").Register("fusion_db:after_raw", in.after("")),
	)
	if err != nil {
		return err
	}

	logger.Info("Database instrumentation registered",
		zap.Bool("tracing", cfg.TraceEnabled),
		zap.Duration("slow_query_threshold", cfg.SlowQueryThreshold),
	)
	return nil
}

func (in *dbInstrumentation) before(db *gorm.DB) {
	db.InstanceSet(dbStartKey, time.Now())
}

// after returns the callback for an operation; "" means detect it from the SQL
func (in *dbInstrumentation) after(operation string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		v, ok := db.InstanceGet(dbStartKey)
		if !ok {
			return
		}
		start, ok := v.(time.Time)
		if !ok {
			return
		}
		elapsed := time.Since(start)

		op := operation
		if op == "" {
			op = detectOperation(db.Statement.SQL.String())
		}
		attrs := []attribute.KeyValue{
			attribute.String("db.operation", op),
			attribute.String("db.sql.table", db.Statement.Table),
			attribute.Bool("db.error", db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound)),
		}

		ctx := db.Statement.Context
		in.duration.RecordDuration(ctx, elapsed, attrs...)

		if in.config.SlowQueryThreshold > 0 && elapsed > in.config.SlowQueryThreshold {
			in.slow.Inc(ctx, attrs[:2]...)
			span := trace.SpanFromContext(ctx)
			span.SetAttributes(
				attribute.Bool("db.slow_query", true),
				attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
			)
		}
	}
}

func detectOperation(sql string) string {
	sql = strings.ToUpper(strings.TrimSpace(sql))
	for _, op := range []string{"SELECT", "INSERT", "UPDATE", "DELETE"} {
		if strings.HasPrefix(sql, op) {
			return op
		}
	}
	return "OTHER"
}
