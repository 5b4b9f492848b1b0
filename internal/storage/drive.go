package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const (
	folderMimeType = "application/vnd.google-apps.folder"
	jsonMimeType   = "application/json"
)

// DriveStore uploads snapshots into a Google Drive folder.
type DriveStore struct {
	svc      *drive.Service
	folderID string
}

// NewDriveStore creates a Drive v3 service from the given client options
// (credentials, endpoint or HTTP client).
func NewDriveStore(ctx context.Context, folderID string, opts ...option.ClientOption) (*DriveStore, error) {
	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Drive service: %w", err)
	}
	return &DriveStore{svc: svc, folderID: folderID}, nil
}

func (s *DriveStore) Target() string { return s.folderID }

// Verify checks that the folder exists, is not trashed and is a folder.
// Only a missing or malformed folder id is reported as ErrTargetInvalid.
func (s *DriveStore) Verify(ctx context.Context) error {
	if s.folderID == "" {
		return ErrTargetInvalid
	}
	f, err := s.svc.Files.Get(s.folderID).
		Fields("id", "name", "mimeType", "trashed").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && (apiErr.Code == http.StatusNotFound || apiErr.Code == http.StatusBadRequest) {
			return fmt.Errorf("%w: get folder %s: %w", ErrTargetInvalid, s.folderID, err)
		}
		return fmt.Errorf("get folder %s: %w", s.folderID, err)
	}
	if f.Trashed || f.MimeType != folderMimeType {
		return fmt.Errorf("%w: %s is not an active folder (mimeType=%s trashed=%t)", ErrTargetInvalid, s.folderID, f.MimeType, f.Trashed)
	}
	return nil
}

// Create always creates a new file; Drive allows duplicate names, so an
// existing snapshot is never touched.
func (s *DriveStore) Create(ctx context.Context, name string, data []byte) (Object, error) {
	if s.folderID == "" {
		return Object{}, ErrTargetInvalid
	}
	meta := &drive.File{
		Name:     name,
		Parents:  []string{s.folderID},
		MimeType: jsonMimeType,
	}
	created, err := s.svc.Files.Create(meta).
		Media(bytes.NewReader(data), googleapi.ContentType(jsonMimeType)).
		SupportsAllDrives(true).
		Fields("id", "name").
		Context(ctx).
		Do()
	if err != nil {
		return Object{}, fmt.Errorf("drive upload %s: %w", name, err)
	}
	log.Printf("📤 Uploaded %s to Drive folder %s (id=%s)", created.Name, s.folderID, created.Id)
	return Object{ID: created.Id, Name: created.Name}, nil
}
