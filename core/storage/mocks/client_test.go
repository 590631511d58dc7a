package mocks

import (
	"context"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
)

func keys(ch <-chan minio.ObjectInfo) []string {
	var out []string
	for obj := range ch {
		out = append(out, obj.Key)
	}
	return out
}

func TestExpectBucket(t *testing.T) {
	ctx := context.Background()
	c := new(Client)
	c.ExpectBucket("archive", "ledger/", "ledger/movements-1.jsonl")

	ok, err := c.BucketExists(ctx, "archive")
	assert.NoError(t, err)
	assert.True(t, ok)

	for range 2 {
		got := keys(c.ListObjects(ctx, "archive", minio.ListObjectsOptions{Prefix: "ledger/"}))
		assert.Equal(t, []string{"ledger/", "ledger/movements-1.jsonl"}, got)
	}
	c.AssertNumberOfCalls(t, "ListObjects", 2)
}

func TestListObjects_NilIsEmpty(t *testing.T) {
	c := new(Client)
	c.On("ListObjects", context.Background(), "archive", minio.ListObjectsOptions{}).Return(nil)
	assert.Empty(t, keys(c.ListObjects(context.Background(), "archive", minio.ListObjectsOptions{})))
}
