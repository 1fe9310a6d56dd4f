package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "formini/internal/errors"
	"formini/internal/model"
)

const (
	// MaxCVSize is the largest accepted CV upload.
	MaxCVSize = 5 << 20

	pdfContentType = "application/pdf"
	cvPrefix       = "cvs/"
)

// CVUpload is an instructor CV received at registration.
type CVUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// CVStore validates instructor CVs and keeps them in an object store.
type CVStore struct {
	backend ObjectStorage
	now     func() time.Time
}

// NewCVStore wraps backend.
func NewCVStore(backend ObjectStorage) *CVStore {
	return &CVStore{backend: backend, now: time.Now}
}

// Save validates upload and stores it under a key derived from the owner's email.
func (s *CVStore) Save(ctx context.Context, ownerEmail string, upload CVUpload) (string, error) {
	if !strings.EqualFold(path.Ext(upload.Filename), ".pdf") {
		return "", apperrors.ErrInvalidCV
	}
	if upload.Size > MaxCVSize {
		return "", apperrors.ErrCVTooLarge
	}

	data, err := io.ReadAll(io.LimitReader(upload.Body, MaxCVSize+1))
	if err != nil {
		return "", apperrors.ErrFileStore.Wrap(err)
	}
	if len(data) > MaxCVSize {
		return "", apperrors.ErrCVTooLarge
	}
	if !isPDF(upload.ContentType, data) {
		return "", apperrors.ErrInvalidCV
	}

	key := s.newKey(ownerEmail)
	if err := s.backend.Put(ctx, key, bytes.NewReader(data), int64(len(data)), pdfContentType); err != nil {
		return "", apperrors.ErrFileStore.Wrap(err)
	}
	return key, nil
}

// Open returns the stored CV for key.
func (s *CVStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if key == "" {
		return nil, apperrors.ErrCVNotFound
	}
	r, err := s.backend.Get(ctx, key)
	if errors.Is(err, ErrObjectNotFound) {
		return nil, apperrors.ErrCVNotFound
	}
	if err != nil {
		return nil, apperrors.ErrFileStore.Wrap(err)
	}
	return r, nil
}

// Delete removes the CV for key. A missing CV is not an error.
func (s *CVStore) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	if err := s.backend.Delete(ctx, key); err != nil {
		return apperrors.ErrFileStore.Wrap(err)
	}
	return nil
}

func (s *CVStore) newKey(email string) string {
	local := model.NormalizeEmail(email)
	if i := strings.IndexByte(local, '@'); i >= 0 {
		local = local[:i]
	}
	local = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		}
		return '_'
	}, local)
	if local == "" {
		local = "cv"
	}
	return fmt.Sprintf("%s%s-%d-%s.pdf", cvPrefix, local, s.now().Unix(), uuid.NewString())
}

// isPDF accepts a declared PDF content type or content that sniffs as PDF.
func isPDF(declared string, data []byte) bool {
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(declared)), pdfContentType) {
		return true
	}
	return http.DetectContentType(data) == pdfContentType
}
