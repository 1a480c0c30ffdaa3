package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/upass-project/upass/internal/common"
)

// fakeS3 keeps objects in a map, mimicking the subset of responses the
// store depends on.
type fakeS3 struct {
	objects map[string][]byte
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte)}
}

func (f *fakeS3) HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if _, ok := f.objects[*in.Key]; !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	body, ok := f.objects[*in.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(body))}, nil
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[*in.Key] = body
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	delete(f.objects, *in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3Store_Conformance(t *testing.T) {
	conformance(t, &S3Store{client: newFakeS3(), bucket: "vaults"})
}

func TestS3Store_ObjectLayout(t *testing.T) {
	fake := newFakeS3()
	store := &S3Store{client: fake, bucket: "vaults"}
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, &Record{Username: "alice", PublicKey: "pk", Blob: "blob"}))

	body, ok := fake.objects["vaults/alice.json"]
	require.True(t, ok, "object stored under vaults/<username>.json")

	var stored s3Record
	require.NoError(t, json.Unmarshal(body, &stored))
	assert.Equal(t, "pk", stored.PublicKey)
	assert.Equal(t, "blob", stored.Blob)
	assert.False(t, stored.UpdatedAt.IsZero())
}

func TestS3Store_GetCorruptObject(t *testing.T) {
	fake := newFakeS3()
	fake.objects["vaults/alice.json"] = []byte("{not json")
	store := &S3Store{client: fake, bucket: "vaults"}

	_, err := store.Get(context.Background(), "alice")
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrNotFound)
}
