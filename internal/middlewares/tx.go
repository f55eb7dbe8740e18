package middlewares

import (
	"bytes"
	"context"
	"net/http"

	"github.com/jmoiron/sqlx"
	"github.com/sbilibin2017/gw-identity/internal/logger"
)

// TxMiddleware runs the handler inside a database transaction. The response
// is held back until the outcome is known: statuses below 400 commit, the
// rest roll back. Hooks registered with OnCommit run after a successful
// commit. A failed commit or hook turns the response into a 500 carrying
// only the headers set before the handler ran.
func TxMiddleware(db *sqlx.DB) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			tx, err := db.BeginTxx(ctx, nil)
			if err != nil {
				logger.Log.Errorw("failed to begin transaction", "error", err, "request_id", GetRequestID(ctx))
				writeInternalError(w)
				return
			}

			defer func() {
				if rec := recover(); rec != nil {
					_ = tx.Rollback()
					panic(rec)
				}
			}()

			header := w.Header().Clone()
			state := &txState{tx: tx}
			bw := &bufferedWriter{ResponseWriter: w}
			next.ServeHTTP(bw, r.WithContext(setTxToContext(ctx, state)))

			if bw.status >= http.StatusBadRequest {
				if err := tx.Rollback(); err != nil {
					logger.Log.Warnw("failed to roll back transaction", "error", err, "request_id", GetRequestID(ctx))
				}
				bw.flush()
				return
			}

			if err := tx.Commit(); err != nil {
				logger.Log.Errorw("failed to commit transaction", "error", err, "request_id", GetRequestID(ctx))
				resetHeader(w, header)
				writeInternalError(w)
				return
			}

			for _, hook := range state.hooks {
				if err := hook(ctx); err != nil {
					logger.Log.Errorw("commit hook failed", "error", err, "request_id", GetRequestID(ctx))
					resetHeader(w, header)
					writeInternalError(w)
					return
				}
			}
			bw.flush()
		})
	}
}

// OnCommit defers fn until the request transaction commits. Without a
// transaction in ctx fn runs at once and its error is returned.
func OnCommit(ctx context.Context, fn func(ctx context.Context) error) error {
	state, _ := ctx.Value(txKey).(*txState)
	if state == nil {
		return fn(ctx)
	}
	state.hooks = append(state.hooks, fn)
	return nil
}

func resetHeader(w http.ResponseWriter, saved http.Header) {
	h := w.Header()
	for k := range h {
		delete(h, k)
	}
	for k, v := range saved {
		h[k] = v
	}
}

// bufferedWriter keeps the status and body until flush.
type bufferedWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
}

func (w *bufferedWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
}

func (w *bufferedWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.buf.Write(b)
}

func (w *bufferedWriter) flush() {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	w.ResponseWriter.WriteHeader(w.status)
	if w.buf.Len() > 0 {
		_, _ = w.ResponseWriter.Write(w.buf.Bytes())
	}
}

func writeInternalError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = w.Write([]byte(`{"error":"Internal server error"}` + "\n"))
}

// contextKey is an unexported type for keys in context
type contextKey struct{}

var txKey = contextKey{}

// txState is the request transaction and its pending commit hooks.
type txState struct {
	tx    *sqlx.Tx
	hooks []func(ctx context.Context) error
}

// setTxToContext stores a transaction in the context
func setTxToContext(ctx context.Context, state *txState) context.Context {
	return context.WithValue(ctx, txKey, state)
}

// GetTxFromContext retrieves the transaction from the context. Returns nil if not present.
func GetTxFromContext(ctx context.Context) *sqlx.Tx {
	state, _ := ctx.Value(txKey).(*txState)
	if state == nil {
		return nil
	}
	return state.tx
}
