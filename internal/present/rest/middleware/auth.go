package middleware

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/totegamma/community/internal/domain"
	"github.com/totegamma/community/internal/present/rest/presenter"
)

var tracer = otel.Tracer("auth")

// Authenticator resolves bearer tokens.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (domain.Identity, error)
}

type AuthMiddleware struct {
	auth Authenticator
}

func NewAuthMiddleware(auth Authenticator) *AuthMiddleware {
	return &AuthMiddleware{auth: auth}
}

// IdentifyIdentity resolves the bearer token, if any. It never rejects a
// request: the identity or the failure is stored in the request context and
// each handler decides how strict to be.
func (s *AuthMiddleware) IdentifyIdentity(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, span := tracer.Start(c.Request().Context(), "Auth.Middleware.IdentifyIdentity")
		defer span.End()

		authHeader := c.Request().Header.Get(domain.AuthorizationHeader)

		if authHeader != "" {
			split := strings.Split(authHeader, " ")
			if len(split) != 2 {
				err := domain.UnauthenticatedError{Reason: "invalid authentication header"}
				span.RecordError(err)
				ctx = context.WithValue(ctx, domain.AuthErrorCtxKey, error(err))
				goto skipCheckAuthorization
			}

			authType, token := split[0], split[1]
			if authType != domain.BearerScheme {
				err := domain.UnauthenticatedError{Reason: "only Bearer is acceptable"}
				span.RecordError(err)
				ctx = context.WithValue(ctx, domain.AuthErrorCtxKey, error(err))
				goto skipCheckAuthorization
			}

			identity, err := s.auth.Authenticate(ctx, token)
			if err != nil {
				span.RecordError(errors.Wrap(err, "AuthMiddleware.IdentifyIdentity: s.auth.Authenticate failed"))
				ctx = context.WithValue(ctx, domain.AuthErrorCtxKey, err)
				goto skipCheckAuthorization
			}

			ctx = context.WithValue(ctx, domain.IdentityCtxKey, identity)
			span.SetAttributes(attribute.Int64("AccountId", identity.AccountID))
		}

	skipCheckAuthorization:
		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}

// RequireIdentity rejects requests without a valid identity: 401 for a
// missing or rejected token, 503 when the identity service is unreachable.
func RequireIdentity(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		if err := AuthError(ctx); err != nil {
			return presenter.Error(c, err)
		}
		if _, ok := Identity(ctx); !ok {
			return presenter.Error(c, domain.ErrUnauthenticated)
		}
		return next(c)
	}
}

// Identity returns the caller resolved by IdentifyIdentity.
func Identity(ctx context.Context) (domain.Identity, bool) {
	identity, ok := ctx.Value(domain.IdentityCtxKey).(domain.Identity)
	return identity, ok
}

// AuthError returns why the presented token could not be resolved, or nil
// when no token was presented or it was accepted.
func AuthError(ctx context.Context) error {
	err, _ := ctx.Value(domain.AuthErrorCtxKey).(error)
	return err
}
