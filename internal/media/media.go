// Package media uploads user files to object storage.
package media

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"campusconnect/backend/internal/apperror"

	"cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// Kind is the detected category of an uploaded file.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

// Upload folders.
const (
	FolderPosts   = "posts"
	FolderAvatars = "avatars"
)

// Result describes a stored file.
type Result struct {
	URL    string
	Kind   Kind
	Object string // storage key, used to remove the file again
}

// Uploader stores a file and returns where it can be fetched from.
type Uploader interface {
	Upload(ctx context.Context, data []byte, name, folder string) (*Result, error)
	Remove(ctx context.Context, res *Result) error
}

// DefaultUploader is used by the HTTP handlers. It stays nil when no bucket is
// configured, in which case uploads fail with an upstream error.
var DefaultUploader Uploader

// DetectKind sniffs data and reports whether it is an image or a video.
func DetectKind(data []byte) (Kind, *mimetype.MIME, error) {
	mtype := mimetype.Detect(data)
	for m := mtype; m != nil; m = m.Parent() {
		switch {
		case strings.HasPrefix(m.String(), "image/"):
			return KindImage, mtype, nil
		case strings.HasPrefix(m.String(), "video/"):
			return KindVideo, mtype, nil
		}
	}
	return "", mtype, apperror.NewInvalidOperation(fmt.Sprintf("Unsupported media type %s", mtype.String()))
}

// BucketUploader writes files to a Firebase Storage (GCS) bucket.
type BucketUploader struct {
	bucket     *storage.BucketHandle
	bucketName string
}

func NewBucketUploader(ctx context.Context, app *firebase.App, bucketName string) (*BucketUploader, error) {
	client, err := app.Storage(ctx)
	if err != nil {
		return nil, err
	}
	handle, err := client.Bucket(bucketName)
	if err != nil {
		return nil, err
	}
	return &BucketUploader{bucket: handle, bucketName: bucketName}, nil
}

// Upload stores data under folder with a random object name that keeps the
// detected file extension.
func (u *BucketUploader) Upload(ctx context.Context, data []byte, name, folder string) (*Result, error) {
	kind, mtype, err := DetectKind(data)
	if err != nil {
		return nil, err
	}

	object := ObjectName(folder, name, mtype.Extension())
	w := u.bucket.Object(object).NewWriter(ctx)
	w.ContentType = mtype.String()
	w.Metadata = map[string]string{"original_name": name}

	if _, err := w.Write(data); err != nil {
		w.Close()
		return nil, apperror.NewUpstreamFailure("Failed to upload media", err)
	}
	if err := w.Close(); err != nil {
		return nil, apperror.NewUpstreamFailure("Failed to upload media", err)
	}

	return &Result{
		URL:    fmt.Sprintf("https://storage.googleapis.com/%s/%s", u.bucketName, object),
		Kind:   kind,
		Object: object,
	}, nil
}

// Remove deletes a previously uploaded object. A missing object is not an error.
func (u *BucketUploader) Remove(ctx context.Context, res *Result) error {
	err := u.bucket.Object(res.Object).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return apperror.NewUpstreamFailure("Failed to remove media", err)
	}
	return nil
}

// ObjectName builds "<folder>/<uuid><ext>". The detected extension wins over the
// one in the client supplied name.
func ObjectName(folder, name, detectedExt string) string {
	ext := detectedExt
	if ext == "" {
		ext = strings.ToLower(path.Ext(name))
	}
	return path.Join(folder, uuid.NewString()+ext)
}
