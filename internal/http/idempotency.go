package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/V-Shkrobatskyi/lux-clothing-portal/internal/cache"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	HeaderIdempotencyKey = "Idempotency-Key"
	HeaderReplayed       = "Idempotent-Replayed"
	maxIdempotencyKeyLen = 255
)

// Idempotency replays the stored response of a finished request carrying the
// same Idempotency-Key for the same caller. Keys are optional; a store outage
// lets the request through unprotected. Server errors and panics are not
// stored so the client can retry with the same key.
func Idempotency(store cache.IdempotencyStore, ttl time.Duration, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := strings.TrimSpace(r.Header.Get(HeaderIdempotencyKey))
			if key == "" || store == nil {
				next.ServeHTTP(w, r)
				return
			}
			if len(key) > maxIdempotencyKeyLen {
				respondError(w, http.StatusBadRequest, "invalid_idempotency_key", "Idempotency-Key is too long")
				return
			}
			caller, _ := callerFromContext(r.Context())
			scoped := fmt.Sprintf("%d:%s", caller.ID, key)
			ctx := r.Context()

			reserved, err := store.Reserve(ctx, scoped, ttl)
			if err != nil {
				log.WarnContext(ctx, "idempotency store unavailable", "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if !reserved {
				stored, err := store.Get(ctx, scoped)
				switch {
				case err == nil:
					w.Header().Set(HeaderReplayed, "true")
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(stored.Status)
					_, _ = w.Write(stored.Body)
				case errors.Is(err, cache.ErrInProgress):
					respondError(w, http.StatusConflict, "request_in_progress", err.Error())
				default:
					log.WarnContext(ctx, "idempotency lookup failed", "error", err)
					respondError(w, http.StatusConflict, "request_in_progress", "request with this idempotency key is being processed")
				}
				return
			}

			defer func() {
				if rec := recover(); rec != nil {
					if err := store.Release(context.WithoutCancel(ctx), scoped); err != nil {
						log.WarnContext(ctx, "failed to release idempotency key", "error", err)
					}
					panic(rec)
				}
			}()

			var body bytes.Buffer
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			ww.Tee(&body)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			// the request context may already be done here
			ctx = context.WithoutCancel(ctx)
			if status >= http.StatusInternalServerError {
				if err := store.Release(ctx, scoped); err != nil {
					log.WarnContext(ctx, "failed to release idempotency key", "error", err)
				}
				return
			}
			if err := store.Save(ctx, scoped, &cache.StoredResponse{Status: status, Body: body.Bytes()}, ttl); err != nil {
				log.WarnContext(ctx, "failed to store idempotent response", "error", err)
			}
		})
	}
}
