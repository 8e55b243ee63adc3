package mcp

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/routine/internal/transport"
)

// protocolMethod reports whether method is part of the handshake and
// needs no user.
func protocolMethod(method string) bool {
	return method == "initialize" || method == "ping" || method == "notifications/initialized"
}

func requestHeader(req sdkmcp.Request) http.Header {
	if req == nil {
		return nil
	}
	extra := req.GetExtra()
	if extra == nil {
		return nil
	}
	return extra.Header
}

// authMiddleware implements bearer token authentication as MCP middleware.
func authMiddleware(resolver transport.UserResolver) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			if protocolMethod(method) {
				return next(ctx, method, req)
			}

			header := requestHeader(req)
			if header == nil {
				return nil, fmt.Errorf("%w: missing headers", transport.ErrUnauthorized)
			}
			token := transport.BearerToken(header.Get("Authorization"))
			if token == "" {
				return nil, fmt.Errorf("%w: missing bearer token", transport.ErrUnauthorized)
			}
			if resolver == nil {
				return nil, fmt.Errorf("%w: no key resolver", transport.ErrUnauthorized)
			}

			userID, err := resolver.ResolveUser(ctx, token)
			if err != nil || userID <= 0 {
				return nil, fmt.Errorf("%w: invalid bearer token", transport.ErrUnauthorized)
			}

			return next(transport.WithUser(ctx, userID), method, req)
		}
	}
}

// headerUserMiddleware reads the user from the X-User-ID header, falling
// back to defaultUserID.
func headerUserMiddleware(defaultUserID int64) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			userID := defaultUserID
			if header := requestHeader(req); header != nil {
				if raw := header.Get(transport.UserHeader); raw != "" {
					id, err := strconv.ParseInt(raw, 10, 64)
					if err != nil || id <= 0 {
						return nil, fmt.Errorf("%w: bad %s header", transport.ErrUnauthorized, transport.UserHeader)
					}
					userID = id
				}
			}
			return next(transport.WithUser(ctx, userID), method, req)
		}
	}
}

// defaultUserMiddleware injects a fixed user.
func defaultUserMiddleware(userID int64) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			return next(transport.WithUser(ctx, userID), method, req)
		}
	}
}
