package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	objects   map[string][]byte
	deleteErr error
	lastPut   *s3.PutObjectInput
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}}
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.lastPut = in
	f.objects[aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(data)),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String("application/pdf"),
	}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3StorageRoundTrip(t *testing.T) {
	client := newFakeS3()
	store := newS3Storage(client, "vault", "shares")
	ctx := context.Background()

	loc, err := store.Put(ctx, "1-abc.pdf", strings.NewReader("%PDF"), 4, "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "s3://vault/shares/1-abc.pdf", loc)
	assert.Equal(t, int64(4), aws.ToInt64(client.lastPut.ContentLength))
	assert.Equal(t, "application/pdf", aws.ToString(client.lastPut.ContentType))

	obj, err := store.Open(ctx, "1-abc.pdf")
	require.NoError(t, err)
	defer obj.Body.Close() //nolint:errcheck
	assert.Equal(t, int64(4), obj.Size)
	assert.Equal(t, "application/pdf", obj.ContentType)

	require.NoError(t, store.Delete(ctx, "1-abc.pdf"))
	_, err = store.Open(ctx, "1-abc.pdf")
	assert.True(t, errors.Is(err, ErrObjectNotFound))
}

func TestS3StorageDeleteMissingKey(t *testing.T) {
	client := newFakeS3()
	client.deleteErr = &types.NoSuchKey{}
	store := newS3Storage(client, "vault", "")

	assert.NoError(t, store.Delete(context.Background(), "gone.bin"))

	client.deleteErr = errors.New("throttled")
	assert.Error(t, store.Delete(context.Background(), "gone.bin"))
}
