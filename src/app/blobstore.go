package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/sirupsen/logrus"
)

type (
	// ClientMinio is the subset of the minio client the store relies on,
	// kept as an interface for mocking.
	ClientMinio interface {
		ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
		PresignedGetObject(ctx context.Context, bucketName, objectName string, expires time.Duration, reqParams url.Values) (*url.URL, error)
		PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (info minio.UploadInfo, err error)
		GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (*minio.Object, error)
		RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
	}

	// BlobStore is the string-keyed persistence collaborator: JSON snapshots
	// (meal collections, food database, version markers) and raw scan photos,
	// all stored as objects in one bucket.
	BlobStore struct {
		bucketName string
		client     ClientMinio
		log        *logrus.Entry
	}
)

const (
	jsonContentType    = "application/json"
	defaultContentType = "application/octet-stream"
	presignExpiry      = 7 * 24 * time.Hour
)

// NewBlobStore creates a BlobStore backed by a minio endpoint.
func NewBlobStore(endpoint, accessKeyID, secretAccessKey, bucketName string, useSSL bool) (*BlobStore, error) {
	minioClient, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKeyID, secretAccessKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &BlobStore{
		bucketName: bucketName,
		client:     minioClient,
		log:        logrus.WithField("component", "blobstore"),
	}, nil
}

// NewBlobStoreWithClient is the test seam.
func NewBlobStoreWithClient(bucketName string, client ClientMinio) *BlobStore {
	return &BlobStore{
		bucketName: bucketName,
		client:     client,
		log:        logrus.WithField("component", "blobstore"),
	}
}

// PutJSON stores value serialized as JSON under key.
func (s *BlobStore) PutJSON(ctx context.Context, key string, value interface{}) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("can not marshall %s: %w", key, err)
	}
	_, err = s.client.PutObject(ctx,
		s.bucketName,
		key,
		bytes.NewReader(payload),
		int64(len(payload)),
		minio.PutObjectOptions{ContentType: jsonContentType})
	if err != nil {
		return fmt.Errorf("can not store %s: %w", key, err)
	}
	return nil
}

// GetJSON loads the JSON blob under key into value. The boolean reports
// whether the key existed.
func (s *BlobStore) GetJSON(ctx context.Context, key string, value interface{}) (bool, error) {
	object, err := s.client.GetObject(ctx, s.bucketName, key, minio.GetObjectOptions{})
	if err != nil {
		return false, fmt.Errorf("can not fetch %s: %w", key, err)
	}
	defer object.Close()

	payload, err := io.ReadAll(object)
	if err != nil {
		// minio defers missing-key errors until the first read
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return false, nil
		}
		return false, fmt.Errorf("can not read %s: %w", key, err)
	}
	if err := json.Unmarshal(payload, value); err != nil {
		return false, fmt.Errorf("can not unmarshall %s: %w", key, err)
	}
	return true, nil
}

// Remove deletes the blob under key.
func (s *BlobStore) Remove(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucketName, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("can not remove %s: %w", key, err)
	}
	return nil
}

// UploadScan stores a raw captured photo under uploadPath.
func (s *BlobStore) UploadScan(ctx context.Context, uploadPath, contentType string, object io.Reader, size int64) error {
	if contentType == "" {
		contentType = defaultContentType
	}
	_, err := s.client.PutObject(ctx,
		s.bucketName,
		uploadPath,
		object,
		size,
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("can not upload scan: %w", err)
	}
	return nil
}

// ListScans returns presigned URLs for the stored photos under prefix whose
// extension is in filters; empty filters match everything.
func (s *BlobStore) ListScans(ctx context.Context, prefix string, filters []string) ([]*url.URL, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	result := make([]*url.URL, 0)
	objectCh := s.client.ListObjects(ctx, s.bucketName, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})
	for object := range objectCh {
		if object.Err != nil {
			s.log.Warnf("list objects: %v", object.Err)
			return result, object.Err
		}
		if len(filters) > 0 && !checkIn(object.Key, filters) {
			continue
		}
		reqParams := make(url.Values)
		reqParams.Set("response-content-disposition", fmt.Sprintf("attachment; filename=\"%s\"", object.Key))
		presignedURL, err := s.client.PresignedGetObject(ctx,
			s.bucketName,
			object.Key,
			presignExpiry,
			reqParams)
		if err != nil {
			return result, err
		}
		result = append(result, presignedURL)
	}
	return result, nil
}

func checkIn(key string, filters []string) bool {
	parsed := strings.Split(key, ".")
	if len(parsed) > 0 {
		for _, f := range filters {
			if f == parsed[len(parsed)-1] {
				return true
			}
		}
	}
	return false
}
