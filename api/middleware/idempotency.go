package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/angelmondragon/tablebite-backend/api/responses"
	pkgerrors "github.com/angelmondragon/tablebite-backend/pkg/errors"
	"github.com/angelmondragon/tablebite-backend/pkg/logger"
	redisclient "github.com/angelmondragon/tablebite-backend/pkg/redis"
	"github.com/angelmondragon/tablebite-backend/pkg/types"
)

const (
	idempotencyHeader     = "Idempotency-Key"
	replayedHeader        = "Idempotent-Replayed"
	maxIdempotencyKeyLen  = 128
	claimTTL              = 2 * time.Minute
	redemptionReplayTTL   = 24 * time.Hour
	checkoutReplayTTL     = 7 * 24 * time.Hour
	maxReplayableBodySize = 1 << 20
)

type idempotencyStore interface {
	Get(context.Context, string) (string, error)
	Set(context.Context, string, any, time.Duration) error
	SetNX(context.Context, string, any, time.Duration) (bool, error)
	Del(context.Context, ...string) error
	IdempotencyKey(scope, id string) string
}

// replayWindows maps a method and path.Match pattern to how long a finished
// response stays replayable. Only money- and points-moving calls are covered.
var replayWindows = []struct {
	method  string
	pattern string
	ttl     time.Duration
}{
	{http.MethodPost, "/api/v1/checkout", checkoutReplayTTL},
	{http.MethodPost, "/api/v1/rewards/discounts", redemptionReplayTTL},
	{http.MethodPost, "/api/v1/rewards/*/redeem", redemptionReplayTTL},
}

// storedResponse is what a retry gets back. A record with InFlight set is a
// claim held by the request still running.
type storedResponse struct {
	InFlight    bool   `json:"in_flight,omitempty"`
	Fingerprint string `json:"fingerprint"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

// Idempotency replays the first response to a covered request when it is
// retried with the same Idempotency-Key and body. The key is claimed before
// the handler runs so a concurrent duplicate gets CONFLICT rather than a
// second execution. 5xx and retryable error responses release the claim so
// the same key can be retried.
func Idempotency(store idempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ttl, covered := replayWindow(r.Method, r.URL.Path)
			clientKey := strings.TrimSpace(r.Header.Get(idempotencyHeader))
			if !covered || store == nil || clientKey == "" {
				next.ServeHTTP(w, r)
				return
			}
			if len(clientKey) > maxIdempotencyKeyLen {
				responses.WriteError(ctx, logg, w, pkgerrors.Newf(pkgerrors.CodeValidation, "%s must be at most %d characters", idempotencyHeader, maxIdempotencyKeyLen))
				return
			}

			body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxReplayableBodySize))
			if err != nil {
				var tooLarge *http.MaxBytesError
				if errors.As(err, &tooLarge) {
					responses.WriteError(ctx, logg, w, pkgerrors.Newf(pkgerrors.CodeValidation, "request body exceeds %d bytes", tooLarge.Limit))
					return
				}
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			fingerprint := fingerprintOf(r, body)
			key := store.IdempotencyKey(idempotencyScope(r), clientKey)
			claim, _ := json.Marshal(storedResponse{InFlight: true, Fingerprint: fingerprint})

			won, err := store.SetNX(ctx, key, string(claim), claimTTL)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim idempotency key"))
				return
			}
			if !won {
				replayStored(ctx, logg, w, store, key, fingerprint)
				return
			}

			captured := &bytes.Buffer{}
			ww, status := wrap(w, r)
			ww.Tee(captured)
			next.ServeHTTP(ww, r)

			if retryable(status(), captured.Bytes()) {
				if err := store.Del(ctx, key); err != nil {
					warn(ctx, logg, "idempotency.release_failed", err)
				}
				return
			}
			done, _ := json.Marshal(storedResponse{
				Fingerprint: fingerprint,
				Status:      status(),
				ContentType: ww.Header().Get("Content-Type"),
				Body:        captured.Bytes(),
			})
			if err := store.Set(ctx, key, string(done), ttl); err != nil {
				warn(ctx, logg, "idempotency.persist_failed", err)
			}
		})
	}
}

func replayStored(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, store idempotencyStore, key, fingerprint string) {
	raw, err := store.Get(ctx, key)
	if redisclient.IsNil(err) {
		// The claim expired between SetNX and Get.
		responses.WriteError(ctx, logg, w, inFlightConflict())
		return
	}
	if err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load idempotency record"))
		return
	}

	var stored storedResponse
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record"))
		return
	}
	switch {
	case stored.Fingerprint != fingerprint:
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with a different request"))
	case stored.InFlight:
		responses.WriteError(ctx, logg, w, inFlightConflict())
	default:
		if stored.ContentType != "" {
			w.Header().Set("Content-Type", stored.ContentType)
		}
		w.Header().Set(replayedHeader, "true")
		w.WriteHeader(stored.Status)
		_, _ = w.Write(stored.Body)
	}
}

// retryable reports whether a finished response must not be replayed: server
// failures and error envelopes flagged retryable, such as CONCURRENCY_CONFLICT.
func retryable(status int, body []byte) bool {
	if status >= http.StatusInternalServerError {
		return true
	}
	if status < http.StatusBadRequest {
		return false
	}
	var envelope types.ErrorEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return false
	}
	return envelope.Error.Retryable
}

func inFlightConflict() error {
	return pkgerrors.New(pkgerrors.CodeConflict, "a request with this Idempotency-Key is still in progress")
}

// idempotencyScope keeps keys from colliding across callers and routes.
func idempotencyScope(r *http.Request) string {
	owner := "anonymous"
	if id := UserIDFromContext(r.Context()); id != "" {
		owner = "user:" + id
	} else if visitor := VisitorFromContext(r.Context()); visitor != nil {
		owner = "visitor:" + visitor.Token
	}
	return owner + "|" + r.Method + "|" + r.URL.Path
}

func fingerprintOf(r *http.Request, body []byte) string {
	h := sha256.New()
	h.Write([]byte(r.Method + " " + r.URL.Path + "\n"))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

func replayWindow(method, urlPath string) (time.Duration, bool) {
	for _, rule := range replayWindows {
		if rule.method != method {
			continue
		}
		if ok, _ := path.Match(rule.pattern, urlPath); ok {
			return rule.ttl, true
		}
	}
	return 0, false
}

func warn(ctx context.Context, logg *logger.Logger, msg string, err error) {
	if logg != nil {
		logg.WarnErr(ctx, msg, err)
	}
}
