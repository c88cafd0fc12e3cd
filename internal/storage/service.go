package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/revibe-app/revibe-backend/internal/authz"
	"github.com/revibe-app/revibe-backend/pkg/db"
	"github.com/revibe-app/revibe-backend/pkg/db/models"
	pkgerrors "github.com/revibe-app/revibe-backend/pkg/errors"
	"github.com/revibe-app/revibe-backend/pkg/logger"
	"github.com/revibe-app/revibe-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// objectSigner is the remote half of the storage surface: it mints signed
// upload/download URLs and removes objects. Satisfied by pkg/storage/gcs.
// The empty bucket argument selects the configured physical bucket; logical
// buckets live inside it as key prefixes.
type objectSigner interface {
	SignedURL(bucket, object, contentType string, expires time.Duration) (string, error)
	SignedReadURL(bucket, object string, expires time.Duration) (string, error)
	DeleteObject(ctx context.Context, bucket, object string) error
}

// Service exposes the storage surface: the bucket registry, upload
// authorization, object reads and deletes.
type Service interface {
	Buckets(ctx context.Context) ([]BucketDTO, error)
	AuthorizeUpload(ctx context.Context, input AuthorizeUploadInput) (*UploadAuthorizationDTO, error)
	Get(ctx context.Context, actor authz.Principal, id uuid.UUID) (*ObjectDTO, error)
	List(ctx context.Context, actor authz.Principal, input ListInput) (*ObjectPage, error)
	Delete(ctx context.Context, input DeleteInput) error
}

type service struct {
	repo        *Repository
	tx          txRunner
	registry    *authz.Registry
	signer      objectSigner
	log         *logger.Logger
	uploadTTL   time.Duration
	downloadTTL time.Duration
	now         func() time.Time
}

// ServiceParams carries the storage service dependencies. Logger is optional.
type ServiceParams struct {
	Repo        *Repository
	TxRunner    txRunner
	Registry    *authz.Registry
	Signer      objectSigner
	Logger      *logger.Logger
	UploadTTL   time.Duration
	DownloadTTL time.Duration
}

// NewService validates dependencies and returns a storage service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("storage repository required")
	}
	if params.TxRunner == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Registry == nil {
		return nil, fmt.Errorf("authorization registry required")
	}
	if params.Signer == nil {
		return nil, fmt.Errorf("object signer required")
	}
	if params.UploadTTL <= 0 {
		return nil, fmt.Errorf("upload ttl must be positive")
	}
	if params.DownloadTTL <= 0 {
		return nil, fmt.Errorf("download ttl must be positive")
	}
	return &service{
		repo:        params.Repo,
		tx:          params.TxRunner,
		registry:    params.Registry,
		signer:      params.Signer,
		log:         params.Logger,
		uploadTTL:   params.UploadTTL,
		downloadTTL: params.DownloadTTL,
		now:         func() time.Time { return time.Now().UTC() },
	}, nil
}

// AuthorizeUploadInput asks for permission to upload one file.
type AuthorizeUploadInput struct {
	Actor     authz.Principal `json:"-"`
	Bucket    string          `json:"bucket" validate:"required,max=100"`
	FileName  string          `json:"file_name" validate:"required,max=255"`
	MimeType  string          `json:"mime_type" validate:"required,max=120"`
	SizeBytes int64           `json:"size_bytes" validate:"required,gt=0"`
}

// ListInput selects one page of objects. Bucket optionally narrows the page;
// non-admins are always scoped to their own objects.
type ListInput struct {
	Pagination pagination.Params
	Bucket     string
}

// DeleteInput removes one object.
type DeleteInput struct {
	Actor    authz.Principal `json:"-"`
	ObjectID uuid.UUID       `json:"-"`
}

// Buckets returns the upload rules for every bucket. The registry is public:
// clients need the limits before they ask to upload.
func (s *service) Buckets(ctx context.Context) ([]BucketDTO, error) {
	buckets, err := s.repo.Buckets(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load storage buckets")
	}
	out := make([]BucketDTO, 0, len(buckets))
	for i := range buckets {
		out = append(out, bucketFromModel(&buckets[i]))
	}
	return out, nil
}

// AuthorizeUpload checks the bucket rules, records the object metadata row
// and mints the signed PUT URL. The row and the grant stand or fall together:
// a signing failure rolls the insert back.
func (s *service) AuthorizeUpload(ctx context.Context, input AuthorizeUploadInput) (*UploadAuthorizationDTO, error) {
	if !input.Actor.Authenticated {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}

	bucketName := strings.TrimSpace(input.Bucket)
	if bucketName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bucket is required")
	}
	fileName := sanitizeFileName(input.FileName)
	if fileName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file name is required")
	}
	mimeType := strings.TrimSpace(input.MimeType)
	if mimeType == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "mime type is required")
	}
	if input.SizeBytes <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file size must be positive")
	}

	var out *UploadAuthorizationDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		bucket, err := repo.FindBucket(ctx, bucketName)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "bucket not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load bucket")
		}
		if !mimeAllowed(bucket, mimeType) {
			return pkgerrors.New(pkgerrors.CodeValidation, "mime type not allowed for bucket")
		}
		if input.SizeBytes > bucket.MaxSizeBytes {
			return pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("file exceeds the bucket limit of %d bytes", bucket.MaxSizeBytes))
		}

		objectID := uuid.New()
		object := &models.StorageObject{
			ID:          objectID,
			Bucket:      bucket.Name,
			ObjectPath:  fmt.Sprintf("%s/%s/%s", input.Actor.UserID, objectID, fileName),
			OwnerUserID: input.Actor.UserID,
			MimeType:    mimeType,
			SizeBytes:   input.SizeBytes,
			CreatedAt:   s.now(),
		}

		if err := s.registry.Authorize(input.Actor, authz.OpInsert, authz.TableStorageObjects,
			authz.StorageObjectRow{Object: object, Bucket: bucket}); err != nil {
			return err
		}

		if err := repo.CreateObject(ctx, object); err != nil {
			if db.IsUniqueViolation(err, "idx_storage_objects_bucket_path") {
				return pkgerrors.New(pkgerrors.CodeConflict, "object path already exists")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create storage object")
		}

		uploadURL, err := s.signer.SignedURL("", remoteKey(object), mimeType, s.uploadTTL)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sign upload url")
		}

		out = &UploadAuthorizationDTO{
			ObjectID:    object.ID,
			Bucket:      object.Bucket,
			ObjectPath:  object.ObjectPath,
			UploadURL:   uploadURL,
			ContentType: mimeType,
			ExpiresAt:   s.now().Add(s.uploadTTL),
		}
		return nil
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "authorize upload")
	}
	return out, nil
}

// Get returns one object's metadata plus a signed download link. Objects in
// public buckets resolve for anyone, private ones for the owner and admins.
func (s *service) Get(ctx context.Context, actor authz.Principal, id uuid.UUID) (*ObjectDTO, error) {
	object, err := s.loadVisible(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	url, err := s.signer.SignedReadURL("", remoteKey(object), s.downloadTTL)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sign download url")
	}
	dto := objectFromModel(object, url)
	return &dto, nil
}

// List returns one page of objects: admins see everything, everyone else
// their own uploads.
func (s *service) List(ctx context.Context, actor authz.Principal, input ListInput) (*ObjectPage, error) {
	if !actor.Authenticated {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}

	query := ListQuery{Pagination: input.Pagination}
	if bucket := strings.TrimSpace(input.Bucket); bucket != "" {
		query.Bucket = &bucket
	}
	if !actor.IsAdmin() {
		own := actor.UserID
		query.OwnerUserID = &own
	}

	rows, nextCursor, err := s.repo.ListObjects(ctx, query)
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list storage objects")
	}

	bucketsByName, err := s.bucketIndex(ctx)
	if err != nil {
		return nil, err
	}

	visible := authz.Filter(s.registry, actor, authz.TableStorageObjects, rows, func(o models.StorageObject) any {
		return authz.StorageObjectRow{Object: &o, Bucket: bucketsByName[o.Bucket]}
	})

	out := make([]ObjectDTO, 0, len(visible))
	for i := range visible {
		url, err := s.signer.SignedReadURL("", remoteKey(&visible[i]), s.downloadTTL)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sign download url")
		}
		out = append(out, objectFromModel(&visible[i], url))
	}
	return &ObjectPage{Objects: out, NextCursor: nextCursor}, nil
}

// Delete removes the metadata row, then the remote object. The row is the
// source of truth: a failed remote delete only leaves an orphaned file, so
// it is logged rather than surfaced.
func (s *service) Delete(ctx context.Context, input DeleteInput) error {
	if !input.Actor.Authenticated {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if input.ObjectID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "object id is required")
	}

	var removed *models.StorageObject
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		object, err := repo.FindObjectByIDForUpdate(ctx, input.ObjectID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "object not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load storage object")
		}
		bucket, err := repo.FindBucket(ctx, object.Bucket)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load bucket")
		}

		row := authz.StorageObjectRow{Object: object, Bucket: bucket}
		if !s.registry.CanSelect(input.Actor, authz.TableStorageObjects, row) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "object not found")
		}
		if err := s.registry.Authorize(input.Actor, authz.OpDelete, authz.TableStorageObjects, row); err != nil {
			return err
		}

		if err := repo.DeleteObject(ctx, object.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete storage object")
		}
		removed = object
		return nil
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return err
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete object")
	}

	if err := s.signer.DeleteObject(ctx, "", remoteKey(removed)); err != nil && s.log != nil {
		s.log.Warn(s.log.WithField(ctx, "object_id", removed.ID.String()), "storage: remote object delete failed")
	}
	return nil
}

func (s *service) loadVisible(ctx context.Context, actor authz.Principal, id uuid.UUID) (*models.StorageObject, error) {
	object, err := s.repo.FindObjectByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "object not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load storage object")
	}
	bucket, err := s.repo.FindBucket(ctx, object.Bucket)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load bucket")
	}
	if !s.registry.CanSelect(actor, authz.TableStorageObjects, authz.StorageObjectRow{Object: object, Bucket: bucket}) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "object not found")
	}
	return object, nil
}

func (s *service) bucketIndex(ctx context.Context) (map[string]*models.StorageBucket, error) {
	buckets, err := s.repo.Buckets(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load storage buckets")
	}
	index := make(map[string]*models.StorageBucket, len(buckets))
	for i := range buckets {
		index[buckets[i].Name] = &buckets[i]
	}
	return index, nil
}

// remoteKey namespaces the object under its logical bucket inside the one
// physical bucket.
func remoteKey(o *models.StorageObject) string {
	return o.Bucket + "/" + o.ObjectPath
}

func mimeAllowed(bucket *models.StorageBucket, mimeType string) bool {
	for _, candidate := range bucket.AllowedMimeTypes {
		if strings.EqualFold(candidate, mimeType) {
			return true
		}
	}
	return false
}

func sanitizeFileName(name string) string {
	clean := path.Base(strings.TrimSpace(name))
	if clean == "." || clean == "/" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(clean))
	for _, r := range clean {
		switch {
		case r == '/' || r == '\\' || unicode.IsControl(r):
			continue
		case unicode.IsSpace(r):
			b.WriteRune('-')
		default:
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "-_.")
}
