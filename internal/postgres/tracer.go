package postgres

import (
	"context"
	"errors"
	"net/http"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/go-core/log"
)

type ctxKey string

const (
	ctxKeySQL     ctxKey = "pgx.sql"
	ctxKeyStart   ctxKey = "pgx.start"
	ctxKeyStoreOp ctxKey = "db.store_op"
	ctxKeyOrigin  ctxKey = "db.origin"
	ctxKeyMethod  ctxKey = "http.method"
)

type statsKey struct{}

// RequestStats accumulates the database work done while serving one HTTP
// request. Middleware attaches it to the request context; the query tracer
// feeds it; Middleware emits one summary line when the request touched the
// database.
type RequestStats struct {
	mu       sync.Mutex
	queries  int
	duration time.Duration
	failures int
}

func (s *RequestStats) record(dur time.Duration, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries++
	s.duration += dur
	if err != nil {
		s.failures++
	}
}

// Snapshot returns the query count, cumulative query time, and failure
// count recorded so far.
func (s *RequestStats) Snapshot() (queries int, duration time.Duration, failures int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries, s.duration, s.failures
}

// StatsFromContext extracts the RequestStats installed by Middleware.
func StatsFromContext(ctx context.Context) (*RequestStats, bool) {
	s, ok := ctx.Value(statsKey{}).(*RequestStats)
	return s, ok
}

// Middleware prepares the request context for query instrumentation: it
// stashes the HTTP method for metric labelling, attaches a RequestStats
// accumulator, and after the handler returns logs one summary line for
// requests that hit the database.
func Middleware(l log.Logger) func(http.Handler) http.Handler {
	if l == nil {
		l = log.Nop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			stats := &RequestStats{}
			ctx := context.WithValue(r.Context(), statsKey{}, stats)
			ctx = context.WithValue(ctx, ctxKeyMethod, r.Method)

			next.ServeHTTP(w, r.WithContext(ctx))

			queries, dur, failures := stats.Snapshot()
			if queries == 0 {
				return
			}
			l.Info(ctx, "request db usage",
				"db.queries", queries,
				"db.time", dur.Seconds(),
				"db.failures", failures,
				"http.method", r.Method,
				"http.route", routePattern(ctx),
			)
		})
	}
}

// QueryObserver receives one measurement per completed query. Main wires a
// Prometheus histogram here.
type QueryObserver interface {
	ObserveQuery(ctx context.Context, method, route, outcome string, dur time.Duration)
}

// QueryObserverFunc adapts a plain function to QueryObserver.
type QueryObserverFunc func(ctx context.Context, method, route, outcome string, dur time.Duration)

// ObserveQuery implements QueryObserver.
func (f QueryObserverFunc) ObserveQuery(ctx context.Context, method, route, outcome string, dur time.Duration) {
	f(ctx, method, route, outcome, dur)
}

type queryObserverHolder struct{ QueryObserver }

var queryObserver atomic.Pointer[queryObserverHolder]

// SetQueryObserver installs the global per-query observer. Passing nil
// removes it.
func SetQueryObserver(o QueryObserver) {
	if o == nil {
		queryObserver.Store(nil)
		return
	}
	queryObserver.Store(&queryObserverHolder{QueryObserver: o})
}

func getQueryObserver() QueryObserver {
	h := queryObserver.Load()
	if h == nil {
		return nil
	}
	return h.QueryObserver
}

func httpMethodFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyMethod).(string); ok {
		return v
	}
	return ""
}

func routePattern(ctx context.Context) string {
	if rc := chi.RouteContext(ctx); rc != nil {
		return rc.RoutePattern()
	}
	return ""
}

// queryTracer wraps the otelpgx tracer and adds structured logging, the
// metrics hook, and per-request stats accounting.
type queryTracer struct {
	next pgx.QueryTracer
}

func newQueryTracer(next pgx.QueryTracer) pgx.QueryTracer {
	return queryTracer{next: next}
}

func (t queryTracer) TraceQueryStart(
	ctx context.Context,
	conn *pgx.Conn,
	data pgx.TraceQueryStartData,
) context.Context {
	sql := data.SQL
	start := time.Now()

	// Resolve attribution once, while the issuing frames are on the stack.
	storeOp, origin := attributeQuery()

	// The inner tracer (otelpgx) creates the DB span.
	if t.next != nil {
		ctx = t.next.TraceQueryStart(ctx, conn, data)
	}

	ctx = context.WithValue(ctx, ctxKeySQL, sql)
	ctx = context.WithValue(ctx, ctxKeyStart, start)
	if storeOp != "" {
		ctx = context.WithValue(ctx, ctxKeyStoreOp, storeOp)
	}
	if origin != "" {
		ctx = context.WithValue(ctx, ctxKeyOrigin, origin)
	}

	if span := trace.SpanFromContext(ctx); span != nil && span.IsRecording() {
		attrs := make([]attribute.KeyValue, 0, 2)
		if storeOp != "" {
			attrs = append(attrs, attribute.String("db.store_op", storeOp))
		}
		if origin != "" {
			attrs = append(attrs, attribute.String("db.origin", origin))
		}
		if len(attrs) > 0 {
			span.SetAttributes(attrs...)
		}
	}

	return ctx
}

func (t queryTracer) TraceQueryEnd(
	ctx context.Context,
	conn *pgx.Conn,
	data pgx.TraceQueryEndData,
) {
	// Inner tracer first so the DB span finishes correctly.
	if t.next != nil {
		t.next.TraceQueryEnd(ctx, conn, data)
	}

	sql, _ := ctx.Value(ctxKeySQL).(string)
	start, _ := ctx.Value(ctxKeyStart).(time.Time)
	storeOp, _ := ctx.Value(ctxKeyStoreOp).(string)
	origin, _ := ctx.Value(ctxKeyOrigin).(string)

	var dur time.Duration
	if !start.IsZero() {
		dur = time.Since(start)
	}

	if s, ok := StatsFromContext(ctx); ok {
		s.record(dur, data.Err)
	}

	// Metrics run for every query. Queries issued by the scheduler carry no
	// HTTP method or route; label them as such.
	if obs := getQueryObserver(); obs != nil && dur > 0 {
		method := httpMethodFromContext(ctx)
		if method == "" {
			method = "NONE"
		}
		route := routePattern(ctx)
		if route == "" {
			route = "none"
		}
		outcome := "ok"
		if data.Err != nil {
			outcome = "error"
		}
		obs.ObserveQuery(ctx, method, route, outcome, dur)
	}

	L := log.FromContext(ctx)

	// Alert content travels in query args; log the statement only.
	fields := []any{
		"db.statement", sql,
		"db.duration", dur.Seconds(),
	}

	tag := strings.TrimSpace(data.CommandTag.String())
	if tag != "" {
		if parts := strings.Fields(tag); len(parts) > 0 {
			fields = append(fields, "db.operation.name", strings.ToUpper(parts[0]))
		}
		if rows := data.CommandTag.RowsAffected(); rows >= 0 {
			fields = append(fields, "db.rows", rows)
		}
	}

	if storeOp != "" {
		fields = append(fields, "db.store_op", storeOp)
	}
	if origin != "" {
		fields = append(fields, "db.origin", origin)
	}

	if data.Err != nil {
		var pgErr *pgconn.PgError
		if errors.As(data.Err, &pgErr) {
			fields = append(fields,
				"db.error_code", pgErr.Code,
				"db.error_constraint", pgErr.ConstraintName,
			)
		}
		L.Error(ctx, data.Err, "db query failed", fields...)
		return
	}
	L.Info(ctx, "db query", fields...)
}

// attributeQuery walks the call stack to name the alert-store method that
// issued the query (store_op) and the first frame above the storage layer
// (origin) — an API handler, a pipeline phase, or main during startup.
func attributeQuery() (storeOp, origin string) {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(3, pcs)
	frames := runtime.CallersFrames(pcs[:n])

	for {
		fr, more := frames.Next()
		fn := fr.Function

		switch {
		case isInstrumentationFrame(fn):
			// skip
		case strings.Contains(fn, "/internal/alert/pgstore."):
			// Keep overwriting so helpers (row scanning, collection) resolve
			// to the exported store method that called them.
			storeOp = trimFuncName(fn)
		default:
			origin = trimFuncName(fn)
			return storeOp, origin
		}

		if !more {
			return storeOp, origin
		}
	}
}

func isInstrumentationFrame(fn string) bool {
	return strings.HasPrefix(fn, "runtime.") ||
		strings.Contains(fn, "github.com/jackc/pgx/v5") ||
		strings.Contains(fn, "github.com/exaring/otelpgx") ||
		strings.Contains(fn, "/internal/postgres.")
}

// trimFuncName reduces a fully qualified function name to receiver.Method.
func trimFuncName(fn string) string {
	if i := strings.LastIndex(fn, "/"); i >= 0 {
		fn = fn[i+1:]
	}
	if i := strings.Index(fn, "."); i >= 0 {
		fn = fn[i+1:]
	}
	return fn
}
