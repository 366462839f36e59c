package domain

const (
	IdentityCtxKey  = "community-identity"
	AuthErrorCtxKey = "community-authError"
)

const (
	AuthorizationHeader = "authorization"
	BearerScheme        = "Bearer"
)
