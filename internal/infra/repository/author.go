package repository

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/totegamma/community/internal/domain"
	"github.com/totegamma/community/internal/infra/database/models"
)

type AuthorRepository struct {
	db *gorm.DB
}

func NewAuthorRepository(db *gorm.DB) *AuthorRepository {
	return &AuthorRepository{db: db}
}

func (r *AuthorRepository) FindMember(ctx context.Context, accountID int64) (domain.Author, error) {
	var author models.Author
	err := r.db.WithContext(ctx).
		Where("kind = ? AND account_id = ?", string(domain.AuthorKindMember), accountID).
		Take(&author).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Author{}, domain.NotFoundError{Resource: "author"}
	}
	if err != nil {
		return domain.Author{}, errors.Wrap(err, "failed to find member author")
	}
	return toDomainAuthor(author), nil
}

// CreateMember inserts a member author. The unique index on account_id decides
// concurrent inserts; the loser gets domain.ErrConflict.
func (r *AuthorRepository) CreateMember(ctx context.Context, accountID int64, displayName string) (domain.Author, error) {
	author := models.Author{
		Kind:        string(domain.AuthorKindMember),
		AccountID:   &accountID,
		DisplayName: displayName,
		CreatedAt:   time.Now(),
	}

	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "account_id"}},
		DoNothing: true,
	}).Create(&author)
	if isDuplicateKey(result.Error) {
		return domain.Author{}, domain.ConflictError{Resource: "author"}
	}
	if result.Error != nil {
		return domain.Author{}, errors.Wrap(result.Error, "failed to create member author")
	}
	if result.RowsAffected == 0 {
		return domain.Author{}, domain.ConflictError{Resource: "author"}
	}
	return toDomainAuthor(author), nil
}

func (r *AuthorRepository) CreateAnonymous(ctx context.Context, identity domain.Anonymous) (domain.Author, error) {
	author := models.Author{
		Kind:                string(domain.AuthorKindAnonymous),
		DisplayName:         identity.DisplayName,
		AnonymousEmail:      identity.Email,
		AnonymousSecretHash: identity.SecretHash,
		CreatedAt:           time.Now(),
	}
	if err := r.db.WithContext(ctx).Create(&author).Error; err != nil {
		return domain.Author{}, errors.Wrap(err, "failed to create anonymous author")
	}
	return toDomainAuthor(author), nil
}

func (r *AuthorRepository) Get(ctx context.Context, id int64) (domain.Author, error) {
	var author models.Author
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&author).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Author{}, domain.NotFoundError{Resource: "author"}
	}
	if err != nil {
		return domain.Author{}, errors.Wrap(err, "failed to get author")
	}
	return toDomainAuthor(author), nil
}

func (r *AuthorRepository) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Author{})
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to delete author")
	}
	if result.RowsAffected == 0 {
		return domain.NotFoundError{Resource: "author"}
	}
	return nil
}

func toDomainAuthor(m models.Author) domain.Author {
	author := domain.Author{ID: m.ID}
	switch domain.AuthorKind(m.Kind) {
	case domain.AuthorKindMember:
		var accountID int64
		if m.AccountID != nil {
			accountID = *m.AccountID
		}
		author.Identity = domain.Member{AccountID: accountID, DisplayName: m.DisplayName}
	default:
		author.Identity = domain.Anonymous{
			Email:       m.AnonymousEmail,
			SecretHash:  m.AnonymousSecretHash,
			DisplayName: m.DisplayName,
		}
	}
	return author
}
