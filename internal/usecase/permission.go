package usecase

import (
	"github.com/totegamma/community/internal/domain"
)

// PermissionUsecase checks credentials against the author of a content item.
type PermissionUsecase struct {
	hasher Hasher
}

func NewPermissionUsecase(hasher Hasher) *PermissionUsecase {
	return &PermissionUsecase{hasher: hasher}
}

// VerifyOwnership returns nil when cred identifies the owner of content written
// by author, and domain.ErrAccessDenied otherwise. The error never tells which
// field did not match.
func (uc *PermissionUsecase) VerifyOwnership(author domain.Author, cred domain.Credential) error {
	switch owner := author.Identity.(type) {
	case domain.Anonymous:
		if cred.AccountID != nil {
			return domain.ErrAccessDenied
		}
		if !uc.matchAnonymous(owner, cred.AnonymousEmail, cred.AnonymousSecret) {
			return domain.ErrAccessDenied
		}
		return nil
	case domain.Member:
		if cred.AccountID == nil || *cred.AccountID != owner.AccountID {
			return domain.ErrAccessDenied
		}
		return nil
	default:
		return domain.ErrAccessDenied
	}
}

// VerifyChallenge checks an anonymous email and secret without changing state.
func (uc *PermissionUsecase) VerifyChallenge(author domain.Author, email, secret string) error {
	switch owner := author.Identity.(type) {
	case domain.Anonymous:
		if !uc.matchAnonymous(owner, email, secret) {
			return domain.ErrAccessDenied
		}
		return nil
	case domain.Member:
		return domain.NewValidationError("author", "not anonymous content")
	default:
		return domain.NewValidationError("author", "not anonymous content")
	}
}

func (uc *PermissionUsecase) matchAnonymous(owner domain.Anonymous, email, secret string) bool {
	if email == "" || secret == "" {
		return false
	}
	if email != owner.Email {
		return false
	}
	return uc.hasher.Verify(secret, owner.SecretHash)
}
