package snapshot

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 is an in-memory s3API for store tests.
type fakeS3 struct {
	objects      map[string][]byte
	lastPut      *s3.PutObjectInput
	lastBucket   string
	getFailures  int
	deletedKeys  []string
	putCallCount int
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte)}
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.objects[*params.Key] = data
	f.lastPut = params
	f.lastBucket = *params.Bucket
	f.putCallCount++
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.getFailures > 0 {
		f.getFailures--
		return nil, errors.New("transient")
	}
	data, ok := f.objects[*params.Key]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	delete(f.objects, *params.Key)
	f.deletedKeys = append(f.deletedKeys, *params.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3StoreRoundTrip(t *testing.T) {
	client := newFakeS3()
	store := NewS3Store(client, "loom-sessions", "sessions/")
	ctx := context.Background()

	snap := &Snapshot{
		Version: Version,
		TakenAt: time.Now().UTC(),
		Tasks:   []string{"2 0 b h"},
	}

	require.NoError(t, store.Save(ctx, "sess-1", snap))
	assert.Equal(t, "loom-sessions", client.lastBucket)
	assert.Equal(t, "sessions/sess-1", *client.lastPut.Key)
	assert.Equal(t, "application/json", *client.lastPut.ContentType)

	got, err := store.Load(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, snap.Tasks, got.Tasks)
	assert.Equal(t, snap.Version, got.Version)
}

func TestS3StoreMissingSession(t *testing.T) {
	store := NewS3Store(newFakeS3(), "loom-sessions", "sessions/")
	_, err := store.Load(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestS3StoreDelete(t *testing.T) {
	client := newFakeS3()
	store := NewS3Store(client, "loom-sessions", "sessions/")
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "sess-1", &Snapshot{Version: Version}))
	require.NoError(t, store.Delete(ctx, "sess-1"))

	assert.Equal(t, []string{"sessions/sess-1"}, client.deletedKeys)
	_, err := store.Load(ctx, "sess-1")
	assert.ErrorIs(t, err, ErrNotFound)
}
