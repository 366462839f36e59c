package service

import (
	"context"
	"encoding/hex"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
	"github.com/zeebo/xxh3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/totegamma/community/client"
	"github.com/totegamma/community/internal/domain"
)

var tracer = otel.Tracer("auth")

// IdentityResolver looks up the account behind a bearer token.
type IdentityResolver interface {
	Me(ctx context.Context, token string) (client.Me, error)
}

// AuthService validates bearer tokens against the identity service and keeps
// successful lookups for a short time.
type AuthService struct {
	resolver IdentityResolver
	cache    *cache.Cache
}

func NewAuthService(resolver IdentityResolver, ttl time.Duration) *AuthService {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &AuthService{
		resolver: resolver,
		cache:    cache.New(ttl, 2*ttl),
	}
}

// Authenticate returns the identity for token. Rejected tokens yield
// domain.ErrUnauthenticated; an unreachable identity service yields
// domain.ErrAuthDependency.
func (s *AuthService) Authenticate(ctx context.Context, token string) (domain.Identity, error) {
	ctx, span := tracer.Start(ctx, "Auth.Service.Authenticate")
	defer span.End()

	key := tokenCacheKey(token)
	if cached, found := s.cache.Get(key); found {
		span.SetAttributes(attribute.Bool("cacheHit", true))
		return cached.(domain.Identity), nil
	}

	me, err := s.resolver.Me(ctx, token)
	if err != nil {
		span.RecordError(errors.Wrap(err, "AuthService.Authenticate: resolver.Me failed"))
		if errors.Is(err, client.ErrInvalidToken) {
			return domain.Identity{}, domain.UnauthenticatedError{Reason: "invalid token"}
		}
		return domain.Identity{}, domain.AuthDependencyError{Cause: err}
	}

	identity := domain.Identity{
		AccountID:   me.ID,
		DisplayName: me.Username,
		Email:       me.Email,
	}
	s.cache.Set(key, identity, cache.DefaultExpiration)
	span.SetAttributes(attribute.Int64("accountId", identity.AccountID))
	return identity, nil
}

func tokenCacheKey(token string) string {
	sum := xxh3.HashString128(token).Bytes()
	return "token:" + hex.EncodeToString(sum[:])
}
