package storage

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/revibe-app/revibe-backend/internal/authz"
	"github.com/revibe-app/revibe-backend/pkg/db/models"
	"github.com/revibe-app/revibe-backend/pkg/enums"
	pkgerrors "github.com/revibe-app/revibe-backend/pkg/errors"
	"github.com/revibe-app/revibe-backend/pkg/pagination"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type fakeSigner struct {
	deleted    []string
	failSign   bool
	failDelete bool
}

func (f *fakeSigner) SignedURL(bucket, object, contentType string, expires time.Duration) (string, error) {
	if f.failSign {
		return "", errors.New("signer offline")
	}
	return "https://storage.test/put/" + object, nil
}

func (f *fakeSigner) SignedReadURL(bucket, object string, expires time.Duration) (string, error) {
	return "https://storage.test/get/" + object, nil
}

func (f *fakeSigner) DeleteObject(ctx context.Context, bucket, object string) error {
	if f.failDelete {
		return errors.New("remote delete failed")
	}
	f.deleted = append(f.deleted, object)
	return nil
}

func setupStorageTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:storage_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	ddl := []string{
		`CREATE TABLE storage_buckets (
			name TEXT PRIMARY KEY,
			public INTEGER NOT NULL DEFAULT 0,
			allowed_mime_types TEXT NOT NULL,
			max_size_bytes INTEGER NOT NULL,
			created_at DATETIME
		)`,
		`CREATE TABLE storage_objects (
			id TEXT PRIMARY KEY,
			bucket TEXT NOT NULL,
			object_path TEXT NOT NULL,
			owner_user_id TEXT NOT NULL,
			mime_type TEXT NOT NULL,
			size_bytes INTEGER NOT NULL,
			created_at DATETIME
		)`,
		`CREATE UNIQUE INDEX idx_storage_objects_bucket_path ON storage_objects (bucket, object_path)`,
	}
	for _, stmt := range ddl {
		require.NoError(t, db.Exec(stmt).Error)
	}

	seedBuckets(t, db)
	return db
}

// seedBuckets mirrors the bucket seed migration.
func seedBuckets(t *testing.T, db *gorm.DB) {
	t.Helper()

	images := pq.StringArray{"image/jpeg", "image/png", "image/webp"}
	withPDF := pq.StringArray{"image/jpeg", "image/png", "image/webp", "application/pdf"}
	buckets := []models.StorageBucket{
		{Name: "avatars", Public: true, AllowedMimeTypes: images, MaxSizeBytes: 5 << 20},
		{Name: "covers", Public: true, AllowedMimeTypes: images, MaxSizeBytes: 10 << 20},
		{Name: "listings", Public: true, AllowedMimeTypes: images, MaxSizeBytes: 5 << 20},
		{Name: "returns", Public: false, AllowedMimeTypes: withPDF, MaxSizeBytes: 10 << 20},
		{Name: "disputes", Public: false, AllowedMimeTypes: withPDF, MaxSizeBytes: 10 << 20},
	}
	for i := range buckets {
		require.NoError(t, db.Create(&buckets[i]).Error)
	}
}

func newStorageTestService(t *testing.T, db *gorm.DB, signer *fakeSigner) Service {
	t.Helper()

	svc, err := NewService(ServiceParams{
		Repo:        NewRepository(db),
		TxRunner:    gormTxRunner{db: db},
		Registry:    authz.BuildRegistry(nil),
		Signer:      signer,
		UploadTTL:   15 * time.Minute,
		DownloadTTL: 24 * time.Hour,
	})
	require.NoError(t, err)
	return svc
}

func uploaderPrincipal() authz.Principal {
	return authz.Principal{
		UserID:        uuid.New(),
		ProfileID:     uuid.New(),
		Role:          enums.UserRoleUser,
		Authenticated: true,
	}
}

func storageAdminPrincipal() authz.Principal {
	return authz.Principal{
		UserID:        uuid.New(),
		ProfileID:     uuid.New(),
		Role:          enums.UserRoleAdmin,
		Authenticated: true,
	}
}

func authorizeUpload(t *testing.T, svc Service, actor authz.Principal, bucket, fileName, mimeType string, size int64) *UploadAuthorizationDTO {
	t.Helper()

	grant, err := svc.AuthorizeUpload(context.Background(), AuthorizeUploadInput{
		Actor:     actor,
		Bucket:    bucket,
		FileName:  fileName,
		MimeType:  mimeType,
		SizeBytes: size,
	})
	require.NoError(t, err)
	return grant
}

func TestBucketRegistry(t *testing.T) {
	t.Parallel()

	db := setupStorageTestDB(t)
	svc := newStorageTestService(t, db, &fakeSigner{})

	buckets, err := svc.Buckets(context.Background())
	require.NoError(t, err)
	require.Len(t, buckets, 5)

	names := make([]string, 0, len(buckets))
	for _, b := range buckets {
		names = append(names, b.Name)
	}
	require.Equal(t, []string{"avatars", "covers", "disputes", "listings", "returns"}, names)

	require.True(t, buckets[0].Public)
	require.EqualValues(t, 5<<20, buckets[0].MaxSizeBytes)
	require.Equal(t, []string{"image/jpeg", "image/png", "image/webp"}, buckets[0].AllowedMimeTypes)
	require.False(t, buckets[2].Public)
	require.Contains(t, buckets[2].AllowedMimeTypes, "application/pdf")
}

func TestAuthorizeUpload(t *testing.T) {
	t.Parallel()

	db := setupStorageTestDB(t)
	svc := newStorageTestService(t, db, &fakeSigner{})
	owner := uploaderPrincipal()
	ctx := context.Background()

	grant := authorizeUpload(t, svc, owner, "listings", "summer dress.jpg", "image/jpeg", 1<<20)
	require.Equal(t, "listings", grant.Bucket)
	require.Equal(t, "image/jpeg", grant.ContentType)
	require.True(t, strings.HasPrefix(grant.ObjectPath, owner.UserID.String()+"/"))
	require.True(t, strings.HasSuffix(grant.ObjectPath, "/summer-dress.jpg"))
	require.Equal(t, "https://storage.test/put/listings/"+grant.ObjectPath, grant.UploadURL)
	require.False(t, grant.ExpiresAt.IsZero())

	var object models.StorageObject
	require.NoError(t, db.First(&object, "id = ?", grant.ObjectID).Error)
	require.Equal(t, owner.UserID, object.OwnerUserID)
	require.EqualValues(t, 1<<20, object.SizeBytes)

	// Path segments from the client never escape the owner's namespace.
	traversal := authorizeUpload(t, svc, owner, "listings", "../../etc/shadow copy.PNG", "image/png", 1024)
	require.True(t, strings.HasPrefix(traversal.ObjectPath, owner.UserID.String()+"/"))
	require.True(t, strings.HasSuffix(traversal.ObjectPath, "/shadow-copy.PNG"))
	require.NotContains(t, traversal.ObjectPath, "..")

	_, err := svc.AuthorizeUpload(ctx, AuthorizeUploadInput{
		Actor: authz.Anonymous(), Bucket: "listings", FileName: "a.jpg", MimeType: "image/jpeg", SizeBytes: 10,
	})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized))

	_, err = svc.AuthorizeUpload(ctx, AuthorizeUploadInput{
		Actor: owner, Bucket: "attachments", FileName: "a.jpg", MimeType: "image/jpeg", SizeBytes: 10,
	})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))

	_, err = svc.AuthorizeUpload(ctx, AuthorizeUploadInput{
		Actor: owner, Bucket: "avatars", FileName: "a.gif", MimeType: "image/gif", SizeBytes: 10,
	})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	_, err = svc.AuthorizeUpload(ctx, AuthorizeUploadInput{
		Actor: owner, Bucket: "avatars", FileName: "doc.pdf", MimeType: "application/pdf", SizeBytes: 10,
	})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	// The same PDF is fine where the bucket allows it.
	authorizeUpload(t, svc, owner, "disputes", "evidence.pdf", "application/pdf", 1<<20)

	_, err = svc.AuthorizeUpload(ctx, AuthorizeUploadInput{
		Actor: owner, Bucket: "avatars", FileName: "big.jpg", MimeType: "image/jpeg", SizeBytes: 6 << 20,
	})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	_, err = svc.AuthorizeUpload(ctx, AuthorizeUploadInput{
		Actor: owner, Bucket: "avatars", FileName: "a.jpg", MimeType: "image/jpeg", SizeBytes: 0,
	})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	_, err = svc.AuthorizeUpload(ctx, AuthorizeUploadInput{
		Actor: owner, Bucket: "avatars", FileName: "...", MimeType: "image/jpeg", SizeBytes: 10,
	})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestAuthorizeUploadRollsBackOnSignFailure(t *testing.T) {
	t.Parallel()

	db := setupStorageTestDB(t)
	svc := newStorageTestService(t, db, &fakeSigner{failSign: true})
	owner := uploaderPrincipal()

	_, err := svc.AuthorizeUpload(context.Background(), AuthorizeUploadInput{
		Actor: owner, Bucket: "listings", FileName: "a.jpg", MimeType: "image/jpeg", SizeBytes: 10,
	})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeDependency))

	var count int64
	require.NoError(t, db.Model(&models.StorageObject{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestObjectVisibility(t *testing.T) {
	t.Parallel()

	db := setupStorageTestDB(t)
	svc := newStorageTestService(t, db, &fakeSigner{})
	owner := uploaderPrincipal()
	stranger := uploaderPrincipal()
	admin := storageAdminPrincipal()
	ctx := context.Background()

	private := authorizeUpload(t, svc, owner, "returns", "label.pdf", "application/pdf", 2048)
	public := authorizeUpload(t, svc, owner, "listings", "dress.jpg", "image/jpeg", 2048)

	got, err := svc.Get(ctx, owner, private.ObjectID)
	require.NoError(t, err)
	require.Equal(t, "https://storage.test/get/returns/"+private.ObjectPath, got.URL)

	_, err = svc.Get(ctx, stranger, private.ObjectID)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
	_, err = svc.Get(ctx, authz.Anonymous(), private.ObjectID)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))

	_, err = svc.Get(ctx, admin, private.ObjectID)
	require.NoError(t, err)

	// Public buckets resolve for anyone, signed in too.
	fromAnon, err := svc.Get(ctx, authz.Anonymous(), public.ObjectID)
	require.NoError(t, err)
	require.Equal(t, owner.UserID, fromAnon.OwnerUserID)
	_, err = svc.Get(ctx, stranger, public.ObjectID)
	require.NoError(t, err)

	_, err = svc.Get(ctx, owner, uuid.New())
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestListObjectsScoped(t *testing.T) {
	t.Parallel()

	db := setupStorageTestDB(t)
	svc := newStorageTestService(t, db, &fakeSigner{})
	owner := uploaderPrincipal()
	other := uploaderPrincipal()
	admin := storageAdminPrincipal()
	ctx := context.Background()

	authorizeUpload(t, svc, owner, "listings", "one.jpg", "image/jpeg", 10)
	authorizeUpload(t, svc, owner, "returns", "two.pdf", "application/pdf", 10)
	authorizeUpload(t, svc, other, "listings", "three.jpg", "image/jpeg", 10)

	page, err := svc.List(ctx, owner, ListInput{Pagination: pagination.Params{Limit: 10}})
	require.NoError(t, err)
	require.Len(t, page.Objects, 2)
	for _, o := range page.Objects {
		require.Equal(t, owner.UserID, o.OwnerUserID)
		require.NotEmpty(t, o.URL)
	}

	page, err = svc.List(ctx, owner, ListInput{Pagination: pagination.Params{Limit: 10}, Bucket: "returns"})
	require.NoError(t, err)
	require.Len(t, page.Objects, 1)
	require.Equal(t, "returns", page.Objects[0].Bucket)

	page, err = svc.List(ctx, admin, ListInput{Pagination: pagination.Params{Limit: 10}})
	require.NoError(t, err)
	require.Len(t, page.Objects, 3)

	page, err = svc.List(ctx, admin, ListInput{Pagination: pagination.Params{Limit: 10}, Bucket: "listings"})
	require.NoError(t, err)
	require.Len(t, page.Objects, 2)

	_, err = svc.List(ctx, authz.Anonymous(), ListInput{Pagination: pagination.Params{Limit: 10}})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized))
}

func TestDeleteObject(t *testing.T) {
	t.Parallel()

	db := setupStorageTestDB(t)
	signer := &fakeSigner{}
	svc := newStorageTestService(t, db, signer)
	owner := uploaderPrincipal()
	stranger := uploaderPrincipal()
	admin := storageAdminPrincipal()
	ctx := context.Background()

	private := authorizeUpload(t, svc, owner, "returns", "label.pdf", "application/pdf", 10)
	public := authorizeUpload(t, svc, owner, "listings", "dress.jpg", "image/jpeg", 10)

	// Private objects stay invisible to strangers; public ones are visible
	// but still not theirs to remove.
	err := svc.Delete(ctx, DeleteInput{Actor: stranger, ObjectID: private.ObjectID})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
	err = svc.Delete(ctx, DeleteInput{Actor: stranger, ObjectID: public.ObjectID})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForbidden))

	require.NoError(t, svc.Delete(ctx, DeleteInput{Actor: owner, ObjectID: private.ObjectID}))
	require.Contains(t, signer.deleted, "returns/"+private.ObjectPath)

	var count int64
	require.NoError(t, db.Model(&models.StorageObject{}).Where("id = ?", private.ObjectID).Count(&count).Error)
	require.Zero(t, count)

	require.NoError(t, svc.Delete(ctx, DeleteInput{Actor: admin, ObjectID: public.ObjectID}))

	err = svc.Delete(ctx, DeleteInput{Actor: owner, ObjectID: private.ObjectID})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))

	err = svc.Delete(ctx, DeleteInput{Actor: owner, ObjectID: uuid.Nil})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	err = svc.Delete(ctx, DeleteInput{Actor: authz.Anonymous(), ObjectID: uuid.New()})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized))
}

func TestDeleteSurvivesRemoteFailure(t *testing.T) {
	t.Parallel()

	db := setupStorageTestDB(t)
	signer := &fakeSigner{failDelete: true}
	svc := newStorageTestService(t, db, signer)
	owner := uploaderPrincipal()

	grant := authorizeUpload(t, svc, owner, "avatars", "me.jpg", "image/jpeg", 10)

	// The metadata row is the source of truth; the remote orphan is only
	// logged.
	require.NoError(t, svc.Delete(context.Background(), DeleteInput{Actor: owner, ObjectID: grant.ObjectID}))

	var count int64
	require.NoError(t, db.Model(&models.StorageObject{}).Count(&count).Error)
	require.Zero(t, count)
}
