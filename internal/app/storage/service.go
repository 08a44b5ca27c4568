/*
Package storage gives the relay read access to avatar objects in S3-compatible storage.

Profiles store an object key in avatar_url. Clients never get bucket credentials; they
follow a short-lived presigned download URL instead.
*/
package storage

import (
	"context"
	"path"
	"strings"
	"time"

	"chatrelay/internal/pkg/errs"
)

// PresignedURLDuration is how long a presigned download URL stays valid.
const PresignedURLDuration = 5 * time.Minute

// AvatarKeyPrefix is the key namespace avatar objects live under.
const AvatarKeyPrefix = "avatars/"

// avatarExtensions are the image types accepted as avatars.
var avatarExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".gif":  "image/gif",
}

// ServiceConfig holds the configuration required to connect to the storage service.
type ServiceConfig struct {
	S3BucketName      string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
}

// AvatarStorage is the object storage the relay reads avatars from.
type AvatarStorage interface {
	// PresignDownload generates a pre-signed URL for downloading an object.
	PresignDownload(ctx context.Context, key string, duration time.Duration) (string, error)

	// ObjectExists reports whether an object is stored under key.
	ObjectExists(ctx context.Context, key string) (bool, error)
}

// NewAvatarStorage returns the S3-compatible implementation of AvatarStorage.
func NewAvatarStorage(ctx context.Context, cfg ServiceConfig) (AvatarStorage, error) {
	return newS3Client(ctx, cfg)
}

// ValidateAvatarKey checks that key names an image under AvatarKeyPrefix and returns the
// MIME type implied by its extension.
func ValidateAvatarKey(key string) (string, *errs.CustomError) {
	if !strings.HasPrefix(key, AvatarKeyPrefix) || strings.Contains(key, "..") {
		return "", errs.NewError(errs.ErrInvalidParams)
	}

	name := strings.TrimPrefix(key, AvatarKeyPrefix)
	if name == "" || strings.HasSuffix(name, "/") {
		return "", errs.NewError(errs.ErrInvalidParams)
	}

	mimeType, ok := avatarExtensions[strings.ToLower(path.Ext(name))]
	if !ok {
		return "", errs.NewError(errs.ErrInvalidParams)
	}

	return mimeType, nil
}
