package usecase

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"

	"github.com/totegamma/community/internal/domain"
)

var tracer = otel.Tracer("usecase")

// AuthorUsecase resolves the author of newly created content.
type AuthorUsecase struct {
	hasher Hasher
}

func NewAuthorUsecase(hasher Hasher) *AuthorUsecase {
	return &AuthorUsecase{hasher: hasher}
}

// ResolveOrCreate returns the author that will own content created with cred.
// Members are reused by account id. Anonymous authors are always created fresh.
// It runs against the given store so callers can include it in their transaction.
func (uc *AuthorUsecase) ResolveOrCreate(ctx context.Context, store Store, cred domain.Credential) (domain.Author, error) {
	ctx, span := tracer.Start(ctx, "Author.Usecase.ResolveOrCreate")
	defer span.End()

	if cred.AccountID != nil && cred.IsAnonymous {
		return domain.Author{}, domain.NewValidationError("isAnonymous", "a known account cannot author anonymously")
	}

	if cred.IsAnonymous {
		if cred.AnonymousSecret == "" {
			return domain.Author{}, domain.NewValidationError("anonymousSecret", "secret is required for anonymous content")
		}
		if len(cred.AnonymousSecret) > domain.MaxSecretBytes {
			return domain.Author{}, domain.NewValidationError("anonymousSecret", "secret is too long")
		}
		if strings.TrimSpace(cred.AnonymousEmail) == "" {
			return domain.Author{}, domain.NewValidationError("anonymousEmail", "email is required for anonymous content")
		}
		if len([]rune(cred.AnonymousEmail)) > domain.MaxEmailLength {
			return domain.Author{}, domain.NewValidationError("anonymousEmail", "email is too long")
		}
		if len([]rune(strings.TrimSpace(cred.DisplayName))) > domain.MaxDisplayNameLength {
			return domain.Author{}, domain.NewValidationError("displayName", "display name is too long")
		}

		digest, err := uc.hasher.Hash(cred.AnonymousSecret)
		if err != nil {
			span.RecordError(err)
			return domain.Author{}, errors.Wrap(err, "failed to hash secret")
		}

		name := strings.TrimSpace(cred.DisplayName)
		if name == "" {
			name = domain.AnonymousDisplayName
		}

		return store.Authors().CreateAnonymous(ctx, domain.Anonymous{
			Email:       cred.AnonymousEmail,
			SecretHash:  digest,
			DisplayName: name,
		})
	}

	if cred.AccountID == nil {
		return domain.Author{}, domain.NewValidationError("externalAccountId", "account id is required for member content")
	}
	accountID := *cred.AccountID

	author, err := store.Authors().FindMember(ctx, accountID)
	if err == nil {
		return author, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		span.RecordError(err)
		return domain.Author{}, err
	}

	author, err = store.Authors().CreateMember(ctx, accountID, truncateRunes(strings.TrimSpace(cred.DisplayName), domain.MaxDisplayNameLength))
	if errors.Is(err, domain.ErrConflict) {
		// lost the race against a concurrent first post of the same account
		return store.Authors().FindMember(ctx, accountID)
	}
	if err != nil {
		span.RecordError(err)
		return domain.Author{}, err
	}
	return author, nil
}

// truncateRunes cuts s to at most n runes. Member names come from the identity
// service and are stored as a snapshot, so they are shortened rather than rejected.
func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
