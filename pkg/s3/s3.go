package s3

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ObjectStorageClient uploads export documents to S3-compatible storage.
type ObjectStorageClient interface {
	Connect(ctx context.Context, endpoint, accessKeyID, secretAccessKey string, useSSL bool) error
	UploadObject(ctx context.Context, bucketName, objectName string, content io.Reader, size int64, contentType string) (UploadInfo, error)
}

// UploadInfo describes a stored object.
type UploadInfo struct {
	Bucket       string `json:"bucket"`
	Key          string `json:"key"`
	Size         int64  `json:"size"`
	PresignedURL string `json:"url,omitempty"`
}

// ObjectStorage holds the object storage client instance.
type ObjectStorage struct {
	Conn   *minio.Client
	Region string
	Expiry time.Duration
}

// NewObjectStorage initialization
func NewObjectStorage() *ObjectStorage {
	return &ObjectStorage{
		Region: "us-east-1",
		Expiry: 7 * 24 * time.Hour,
	}
}

// Connect establishes the object storage connection and verifies it by listing buckets.
func (o *ObjectStorage) Connect(ctx context.Context, endpoint, accessKeyID, secretAccessKey string, useSSL bool) error {
	var err error
	o.Conn, err = minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKeyID, secretAccessKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return fmt.Errorf("failed to create minio client: %w", err)
	}

	if _, err = o.Conn.ListBuckets(ctx); err != nil {
		return fmt.Errorf("failed to establish minio connection: %w", err)
	}

	return nil
}

// UploadObject creates the bucket if needed and stores content under objectName.
func (o *ObjectStorage) UploadObject(ctx context.Context, bucketName, objectName string, content io.Reader, size int64, contentType string) (UploadInfo, error) {
	if o.Conn == nil {
		return UploadInfo{}, fmt.Errorf("object storage is not connected")
	}

	if err := o.Conn.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{Region: o.Region}); err != nil {
		exists, errBucketExists := o.Conn.BucketExists(ctx, bucketName)
		if !(errBucketExists == nil && exists) {
			return UploadInfo{}, fmt.Errorf("failed to create bucket %s: %w", bucketName, err)
		}
	}

	info, err := o.Conn.PutObject(ctx, bucketName, objectName, content, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return UploadInfo{}, fmt.Errorf("failed to upload %s: %w", objectName, err)
	}

	out := UploadInfo{Bucket: bucketName, Key: info.Key, Size: info.Size}

	presigned, err := o.Conn.PresignedGetObject(ctx, bucketName, objectName, o.Expiry, nil)
	if err == nil {
		out.PresignedURL = presigned.String()
	}

	return out, nil
}
