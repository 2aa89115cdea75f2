package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sandeepkv93/siteops-service/internal/domain"
	"github.com/sandeepkv93/siteops-service/internal/observability"
	"github.com/sandeepkv93/siteops-service/internal/repository"
	"github.com/sandeepkv93/siteops-service/internal/storage"
)

type ObjectStore interface {
	PresignPut(ctx context.Context, key, contentType string, size int64) (storage.PresignedRequest, error)
	PresignGet(ctx context.Context, key, fileName string) (storage.PresignedRequest, error)
	Delete(ctx context.Context, key string) error
}

type UploadRequest struct {
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
}

// UploadService issues presigned URLs for work-update attachments. A nil
// store means object storage is switched off and every call fails with
// ErrStorageDisabled.
type UploadService struct {
	store       ObjectStore
	workUpdates repository.EntityRepository[domain.WorkUpdate]
	maxBytes    int64
}

func NewUploadService(store ObjectStore, workUpdates repository.EntityRepository[domain.WorkUpdate], maxBytes int64) *UploadService {
	return &UploadService{store: store, workUpdates: workUpdates, maxBytes: maxBytes}
}

func (s *UploadService) Presign(ctx context.Context, in UploadRequest) (storage.PresignedRequest, error) {
	if s.store == nil {
		return storage.PresignedRequest{}, ErrStorageDisabled
	}
	name := strings.TrimSpace(in.FileName)
	if name == "" {
		return storage.PresignedRequest{}, domain.NewValidationError("file_name", "is required")
	}
	if in.SizeBytes <= 0 || (s.maxBytes > 0 && in.SizeBytes > s.maxBytes) {
		return storage.PresignedRequest{}, domain.NewValidationError("size_bytes", fmt.Sprintf("must be between 1 and %d", s.maxBytes))
	}
	req, err := s.store.PresignPut(ctx, storage.NewStorageKey(name), strings.TrimSpace(in.ContentType), in.SizeBytes)
	observability.RecordStorageOperation(ctx, "presign_put", storageOutcome(err))
	return req, err
}

func (s *UploadService) Delete(ctx context.Context, key string) error {
	if s.store == nil {
		return ErrStorageDisabled
	}
	err := s.store.Delete(ctx, strings.TrimSpace(key))
	observability.RecordStorageOperation(ctx, "delete", storageOutcome(err))
	if errors.Is(err, storage.ErrInvalidKey) {
		return domain.NewValidationError("key", "is not a valid storage key")
	}
	return err
}

// AttachmentURL presigns a download for an attachment that belongs to the
// given work update.
func (s *UploadService) AttachmentURL(ctx context.Context, workUpdateID, attachmentID uint) (storage.PresignedRequest, error) {
	if s.store == nil {
		return storage.PresignedRequest{}, ErrStorageDisabled
	}
	wu, err := s.workUpdates.FindByID(ctx, workUpdateID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return storage.PresignedRequest{}, fmt.Errorf("work update: %w", ErrNotFound)
		}
		return storage.PresignedRequest{}, err
	}
	att, ok := wu.Attachment(attachmentID)
	if !ok {
		return storage.PresignedRequest{}, fmt.Errorf("attachment: %w", ErrNotFound)
	}
	req, err := s.store.PresignGet(ctx, att.StorageKey, att.FileName)
	observability.RecordStorageOperation(ctx, "presign_get", storageOutcome(err))
	return req, err
}

func storageOutcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
