// Package reqctx carries a per-request id through API handlers and their logs.
package reqctx

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Header is the request/response header holding the request id.
const Header = "X-Request-ID"

type key int

const requestKey key = 0

type RequestContext struct {
	RequestID string
	StartTime time.Time
}

// WithRequestContext attaches id to ctx, generating one when id is empty.
func WithRequestContext(ctx context.Context, id string) context.Context {
	if id == "" || len(id) > 64 {
		id = generateID()
	}
	return context.WithValue(ctx, requestKey, &RequestContext{
		RequestID: id,
		StartTime: time.Now(),
	})
}

func GetRequestContext(ctx context.Context) *RequestContext {
	if rc, ok := ctx.Value(requestKey).(*RequestContext); ok {
		return rc
	}
	return &RequestContext{
		RequestID: "unknown",
		StartTime: time.Now(),
	}
}

// Logger returns the global logger tagged with the request id.
func Logger(ctx context.Context) zerolog.Logger {
	return log.With().Str("request_id", GetRequestContext(ctx).RequestID).Logger()
}

func generateID() string {
	b := make([]byte, 8)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// RequestError wraps an error with the id of the request that hit it.
type RequestError struct {
	RequestID string
	Err       error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("[%s] %v", e.RequestID, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

func NewRequestError(ctx context.Context, err error) error {
	return &RequestError{
		RequestID: GetRequestContext(ctx).RequestID,
		Err:       err,
	}
}
