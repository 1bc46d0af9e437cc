package postgres

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jonboulle/clockwork"
	"github.com/sonuparjapat/stocksWebsiteMain/internal/adapter/metrics"
)

const maxLoggedSQL = 200

// QueryTracer logs every statement at debug level and records its duration.
type QueryTracer struct {
	metrics *metrics.DBMetrics
	clock   clockwork.Clock
}

var _ pgx.QueryTracer = (*QueryTracer)(nil)

// NewQueryTracer returns a tracer; m may be nil to only log.
func NewQueryTracer(m *metrics.DBMetrics, clock clockwork.Clock) *QueryTracer {
	return &QueryTracer{metrics: m, clock: clock}
}

type traceKey struct{}

type traceData struct {
	start     time.Time
	operation string
	sql       string
}

func (t *QueryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, traceKey{}, traceData{
		start:     t.clock.Now(),
		operation: operationName(data.SQL),
		sql:       data.SQL,
	})
}

func (t *QueryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	td, ok := ctx.Value(traceKey{}).(traceData)
	if !ok {
		return
	}

	duration := t.clock.Since(td.start)

	if t.metrics != nil {
		t.metrics.QueryDuration.WithLabelValues(td.operation).Observe(duration.Seconds())
		if data.Err != nil {
			t.metrics.QueryErrors.WithLabelValues(td.operation).Inc()
		}
	}

	attrs := []any{
		"operation", td.operation,
		"duration", duration,
		"rows", data.CommandTag.RowsAffected(),
		"sql", truncateSQL(td.sql),
	}
	if data.Err != nil {
		slog.DebugContext(ctx, "Query failed", append(attrs, "error", data.Err)...)
		return
	}
	slog.DebugContext(ctx, "Query executed", attrs...)
}

// operationName returns the upper-cased leading verb of a statement, used as a low-cardinality label.
func operationName(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return "unknown"
	}
	verb := strings.ToUpper(fields[0])
	switch verb {
	case "SELECT", "INSERT", "UPDATE", "DELETE", "WITH", "BEGIN", "COMMIT", "ROLLBACK":
		return verb
	default:
		return "other"
	}
}

func truncateSQL(sql string) string {
	sql = strings.Join(strings.Fields(sql), " ")
	if len(sql) > maxLoggedSQL {
		return sql[:maxLoggedSQL] + "..."
	}
	return sql
}
