// Package connect provides Connect RPC service implementations.
package connect

import (
	"context"
	"crypto/subtle"

	"connectrpc.com/connect"

	"github.com/osa030/19radio/internal/infra/config"
)

const (
	// ControlTokenHeader is the header name for the control token.
	ControlTokenHeader = "X-Control-Token"
)

// controlProcedures change player state and require the control token.
var controlProcedures = map[string]bool{
	PlayProcedure:      true,
	PauseProcedure:     true,
	SetVolumeProcedure: true,
}

// NewControlAuthInterceptor creates an interceptor that validates the control
// token from request metadata for state-changing methods. When no token is
// configured every request is accepted.
func NewControlAuthInterceptor(cfg *config.Config) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if cfg.Server.Token == "" || !controlProcedures[req.Spec().Procedure] {
				return next(ctx, req)
			}

			// Extract token from metadata
			token := req.Header().Get(ControlTokenHeader)
			if token == "" {
				return nil, connect.NewError(connect.CodeUnauthenticated, nil)
			}

			// Validate token
			if subtle.ConstantTimeCompare([]byte(token), []byte(cfg.Server.Token)) != 1 {
				return nil, connect.NewError(connect.CodeUnauthenticated, nil)
			}

			// Call next handler
			return next(ctx, req)
		}
	}
}
