package minio

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rotisserie/eris"

	"labreport-backend/internal/shared/storage/object"
)

// Store implements ObjectStore against any S3-compatible MinIO endpoint.
type Store struct {
	client *minio.Client
	bucket string
	prefix string
}

// New connects to endpoint and makes sure bucket exists.
func New(ctx context.Context, endpoint, region, bucket, prefix, accessKey, secretKey string, useSSL bool) (*Store, error) {
	if bucket == "" {
		return nil, eris.New("minio: bucket is required")
	}
	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
		Region: region,
	})
	if err != nil {
		return nil, eris.Wrap(err, "minio: new client")
	}

	exists, err := cli.BucketExists(ctx, bucket)
	if err != nil {
		return nil, eris.Wrapf(err, "minio: bucket exists %s", bucket)
	}
	if !exists {
		if err := cli.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region}); err != nil {
			return nil, eris.Wrapf(err, "minio: make bucket %s", bucket)
		}
	}

	return &Store{client: cli, bucket: bucket, prefix: object.NormalizePrefix(prefix)}, nil
}

// Save uploads r under a generated key in the owner's namespace.
func (s *Store) Save(ctx context.Context, owner string, fileName string, r io.Reader) (string, int64, string, error) {
	storageKey, err := object.NewOwnerKey(owner, fileName)
	if err != nil {
		return "", 0, "", eris.Wrap(err, "minio: sanitize file name")
	}

	var sniff [512]byte
	n, readErr := io.ReadFull(r, sniff[:])
	if readErr != nil && readErr != io.EOF && readErr != io.ErrUnexpectedEOF {
		return "", 0, "", eris.Wrap(readErr, "minio: read sniff")
	}
	mimeType := http.DetectContentType(sniff[:n])

	size, err := s.put(ctx, storageKey, mimeType, io.MultiReader(bytes.NewReader(sniff[:n]), r))
	if err != nil {
		return "", 0, "", err
	}
	return storageKey, size, mimeType, nil
}

// SaveWithKey uploads r at storageKey.
func (s *Store) SaveWithKey(ctx context.Context, storageKey string, contentType string, r io.Reader) (int64, error) {
	return s.put(ctx, storageKey, contentType, r)
}

// Open streams the object at storageKey.
func (s *Store) Open(ctx context.Context, storageKey string) (io.ReadCloser, error) {
	objectKey := object.ApplyPrefix(s.prefix, storageKey)
	obj, err := s.client.GetObject(ctx, s.bucket, objectKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, eris.Wrapf(err, "minio: get object %s", objectKey)
	}
	// GetObject is lazy; Stat surfaces a missing key before the caller reads.
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, object.ErrNotFound
		}
		return nil, eris.Wrapf(err, "minio: stat object %s", objectKey)
	}
	return obj, nil
}

// Delete removes the object at storageKey.
func (s *Store) Delete(ctx context.Context, storageKey string) error {
	objectKey := object.ApplyPrefix(s.prefix, storageKey)
	if err := s.client.RemoveObject(ctx, s.bucket, objectKey, minio.RemoveObjectOptions{}); err != nil {
		return eris.Wrapf(err, "minio: remove object %s", objectKey)
	}
	return nil
}

func (s *Store) put(ctx context.Context, storageKey, contentType string, r io.Reader) (int64, error) {
	objectKey := object.ApplyPrefix(s.prefix, storageKey)
	info, err := s.client.PutObject(ctx, s.bucket, objectKey, r, -1, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return 0, eris.Wrapf(err, "minio: put object %s", objectKey)
	}
	return info.Size, nil
}

var _ object.ObjectStore = (*Store)(nil)
