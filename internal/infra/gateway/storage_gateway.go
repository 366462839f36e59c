package gateway

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/totegamma/community/internal/domain"
	"github.com/totegamma/community/internal/usecase"
)

const maxBaseNameLength = 20

var DefaultAllowedExtensions = []string{
	"jpg", "jpeg", "png", "gif", "bmp",
	"pdf", "txt",
	"doc", "docx", "xls", "xlsx", "ppt", "pptx",
	"zip",
}

// LocalStorage writes attachments below a base directory, partitioned by
// upload date, and serves them under a public URL prefix.
type LocalStorage struct {
	basePath     string
	publicPrefix string
	maxSize      int64
	allowed      map[string]bool
	now          func() time.Time
}

func NewLocalStorage(basePath, publicPrefix string, maxSize int64, allowed []string) *LocalStorage {
	if len(allowed) == 0 {
		allowed = DefaultAllowedExtensions
	}
	set := make(map[string]bool, len(allowed))
	for _, ext := range allowed {
		set[strings.ToLower(strings.TrimPrefix(ext, "."))] = true
	}
	return &LocalStorage{
		basePath:     basePath,
		publicPrefix: "/" + strings.Trim(publicPrefix, "/"),
		maxSize:      maxSize,
		allowed:      set,
		now:          time.Now,
	}
}

func (s *LocalStorage) Store(ctx context.Context, r io.Reader, meta usecase.FileMeta) (usecase.StoredFile, error) {
	name := meta.OriginalName
	if name == "" {
		return usecase.StoredFile{}, domain.NewValidationError("file", "file name is required")
	}
	if strings.Contains(name, "..") || strings.ContainsAny(name, `/\`) {
		return usecase.StoredFile{}, domain.NewValidationError("file", "invalid file name")
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if !s.allowed[ext] {
		return usecase.StoredFile{}, domain.NewValidationError("file", "file type not allowed: "+ext)
	}
	if s.maxSize > 0 && meta.Size > s.maxSize {
		return usecase.StoredFile{}, domain.NewValidationError("file", "file is too large")
	}

	now := s.now()
	dir := now.Format("2006/01/02")
	storedName := storedFileName(name, ext, now)

	fullDir := filepath.Join(s.basePath, filepath.FromSlash(dir))
	if err := os.MkdirAll(fullDir, 0o755); err != nil {
		return usecase.StoredFile{}, errors.Wrap(err, "failed to create upload directory")
	}

	fullPath := filepath.Join(fullDir, storedName)
	f, err := os.OpenFile(fullPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return usecase.StoredFile{}, errors.Wrap(err, "failed to create upload file")
	}

	src := r
	if s.maxSize > 0 {
		src = io.LimitReader(r, s.maxSize+1)
	}
	written, err := io.Copy(f, src)
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(fullPath)
		return usecase.StoredFile{}, errors.Wrap(err, "failed to write upload file")
	}
	if s.maxSize > 0 && written > s.maxSize {
		os.Remove(fullPath)
		return usecase.StoredFile{}, domain.NewValidationError("file", "file is too large")
	}

	return usecase.StoredFile{
		StoredName: storedName,
		URL:        path.Join(s.publicPrefix, dir, storedName),
	}, nil
}

// Delete removes the file behind a URL produced by Store. Missing files are
// not an error.
func (s *LocalStorage) Delete(ctx context.Context, url string) error {
	rel, ok := strings.CutPrefix(url, s.publicPrefix+"/")
	if !ok {
		return errors.Errorf("url %q is outside of %s", url, s.publicPrefix)
	}
	rel = path.Clean(rel)
	if rel == "." || strings.HasPrefix(rel, "..") || path.IsAbs(rel) {
		return errors.Errorf("invalid attachment path %q", url)
	}

	err := os.Remove(filepath.Join(s.basePath, filepath.FromSlash(rel)))
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "failed to delete upload file")
	}
	return nil
}

// Root is the directory attachments are written to.
func (s *LocalStorage) Root() string {
	return s.basePath
}

func storedFileName(original, ext string, now time.Time) string {
	base := strings.TrimSuffix(original, filepath.Ext(original))
	var b strings.Builder
	for _, r := range base {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	clean := []rune(b.String())
	if len(clean) > maxBaseNameLength {
		clean = clean[:maxBaseNameLength]
	}
	if len(clean) == 0 {
		clean = []rune("file")
	}
	id := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s_%d_%s.%s", string(clean), now.UnixMilli(), id, ext)
}
