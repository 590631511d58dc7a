// Package mocks provides a testify double for storage.Client.
package mocks

import (
	"context"
	"io"

	"asset-tracker/core/storage"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/mock"
)

var _ storage.Client = (*Client)(nil)

// Client records archive bucket calls. ListObjects expectations return a
// channel; Listing builds one.
type Client struct {
	mock.Mock
}

// Listing returns a closed channel yielding one object per key, the shape
// ListObjects streams.
func Listing(keys ...string) <-chan minio.ObjectInfo {
	ch := make(chan minio.ObjectInfo, len(keys))
	for _, key := range keys {
		ch <- minio.ObjectInfo{Key: key, Size: int64(len(key))}
	}
	close(ch)
	return ch
}

// ExpectBucket stubs BucketExists and ListObjects for bucket. Every
// ListObjects call, whatever the prefix, streams keys afresh.
func (m *Client) ExpectBucket(bucket string, keys ...string) {
	m.On("BucketExists", mock.Anything, bucket).Return(true, nil)
	m.On("ListObjects", mock.Anything, bucket, mock.Anything).Return(keys)
}

func (m *Client) BucketExists(ctx context.Context, bucket string) (bool, error) {
	args := m.Called(ctx, bucket)
	return args.Bool(0), args.Error(1)
}

func (m *Client) MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error {
	return m.Called(ctx, bucket, opts).Error(0)
}

func (m *Client) PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	args := m.Called(ctx, bucket, key, r, size, opts)
	info, _ := args.Get(0).(minio.UploadInfo)
	return info, args.Error(1)
}

func (m *Client) GetObject(ctx context.Context, bucket, key string, opts minio.GetObjectOptions) (io.ReadCloser, error) {
	args := m.Called(ctx, bucket, key, opts)
	rc, _ := args.Get(0).(io.ReadCloser)
	return rc, args.Error(1)
}

// ListObjects accepts a channel or a key slice as the expectation's return
// value; anything else is an empty listing.
func (m *Client) ListObjects(ctx context.Context, bucket string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo {
	switch v := m.Called(ctx, bucket, opts).Get(0).(type) {
	case <-chan minio.ObjectInfo:
		return v
	case []string:
		return Listing(v...)
	default:
		return Listing()
	}
}

func (m *Client) RemoveObject(ctx context.Context, bucket, key string, opts minio.RemoveObjectOptions) error {
	return m.Called(ctx, bucket, key, opts).Error(0)
}
