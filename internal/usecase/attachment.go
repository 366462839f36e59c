package usecase

import (
	"context"
	"io"

	"github.com/pkg/errors"

	"github.com/totegamma/community/internal/domain"
)

// Upload is one file of an attachment upload.
type Upload struct {
	Meta FileMeta
	Open func() (io.ReadCloser, error)
}

type AttachmentUsecase struct {
	store   Store
	perms   *PermissionUsecase
	storage AttachmentStorage
}

func NewAttachmentUsecase(store Store, perms *PermissionUsecase, storage AttachmentStorage) *AttachmentUsecase {
	return &AttachmentUsecase{store: store, perms: perms, storage: storage}
}

// Upload stores files and attaches them to a post owned by cred. Files already
// written are removed again when a later step fails.
func (uc *AttachmentUsecase) Upload(ctx context.Context, postID int64, cred domain.Credential, uploads []Upload) ([]domain.Attachment, error) {
	ctx, span := tracer.Start(ctx, "Attachment.Usecase.Upload")
	defer span.End()

	if len(uploads) == 0 {
		return nil, domain.NewValidationError("files", "no files uploaded")
	}
	for _, upload := range uploads {
		if len([]rune(upload.Meta.OriginalName)) > domain.MaxFileNameLength {
			return nil, domain.NewValidationError("files", "file name is too long")
		}
	}

	var stored []StoredFile
	var created []domain.Attachment
	err := uc.store.Atomic(ctx, func(tx Store) error {
		post, err := tx.Posts().Get(ctx, postID)
		if err != nil {
			return err
		}
		if err := uc.perms.VerifyOwnership(post.Author, cred); err != nil {
			return err
		}

		for _, upload := range uploads {
			file, err := upload.Open()
			if err != nil {
				return errors.Wrap(err, "failed to open upload")
			}
			result, err := uc.storage.Store(ctx, file, upload.Meta)
			file.Close()
			if err != nil {
				return err
			}
			stored = append(stored, result)

			attachment, err := tx.Attachments().Create(ctx, domain.Attachment{
				PostID:       postID,
				OriginalName: upload.Meta.OriginalName,
				StoredName:   result.StoredName,
				URL:          result.URL,
				ContentType:  upload.Meta.ContentType,
				Size:         upload.Meta.Size,
			})
			if err != nil {
				return err
			}
			created = append(created, attachment)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		for _, s := range stored {
			if derr := uc.storage.Delete(ctx, s.URL); derr != nil {
				span.RecordError(derr)
			}
		}
		return nil, err
	}
	return created, nil
}

func (uc *AttachmentUsecase) List(ctx context.Context, postID int64) ([]domain.Attachment, error) {
	ctx, span := tracer.Start(ctx, "Attachment.Usecase.List")
	defer span.End()

	if _, err := uc.store.Posts().Get(ctx, postID); err != nil {
		return nil, err
	}
	return uc.store.Attachments().ListByPost(ctx, postID)
}

// Delete removes one attachment after verifying ownership of its post.
func (uc *AttachmentUsecase) Delete(ctx context.Context, id int64, cred domain.Credential) error {
	ctx, span := tracer.Start(ctx, "Attachment.Usecase.Delete")
	defer span.End()

	err := uc.store.Atomic(ctx, func(tx Store) error {
		attachment, err := tx.Attachments().Get(ctx, id)
		if err != nil {
			return err
		}
		post, err := tx.Posts().Get(ctx, attachment.PostID)
		if err != nil {
			return err
		}
		if err := uc.perms.VerifyOwnership(post.Author, cred); err != nil {
			return err
		}
		if err := tx.Attachments().Delete(ctx, id); err != nil {
			return err
		}
		return uc.storage.Delete(ctx, attachment.URL)
	})
	if err != nil {
		span.RecordError(err)
	}
	return err
}
