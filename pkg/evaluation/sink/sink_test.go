package sink

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSink_PutOverwrites(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	s, err := NewFileSink(dir)
	require.NoError(t, err)

	ctx := context.Background()
	ref, err := s.Put(ctx, "score-custom_eval.json", []byte(`{"a":1}`), "application/json")
	require.NoError(t, err)
	assert.Contains(t, ref, "file://")

	_, err = s.Put(ctx, "score-custom_eval.json", []byte(`{}`), "application/json")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "score-custom_eval.json"))
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files are cleaned up")

	got, err := s.Get(ctx, "score-custom_eval.json")
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestFileSink_Errors(t *testing.T) {
	s, err := NewFileSink(t.TempDir())
	require.NoError(t, err)

	_, err = s.Get(context.Background(), "missing.json")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Put(context.Background(), "../escape.json", nil, "")
	assert.Error(t, err)
}

// fakeS3 内存中的对象存储
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	key := aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)
	f.objects[key] = data
	f.types[key] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func TestS3Sink(t *testing.T) {
	fake := newFakeS3()
	s := NewS3SinkFromClient(fake, "reports", "/qaeval/runs/")
	ctx := context.Background()

	ref, err := s.Put(ctx, "score-k.json", []byte("{}"), "application/json")
	require.NoError(t, err)
	assert.Equal(t, "s3://reports/qaeval/runs/score-k.json", ref)
	assert.Equal(t, "application/json", fake.types["reports/qaeval/runs/score-k.json"])

	got, err := s.Get(ctx, "score-k.json")
	require.NoError(t, err)
	assert.Equal(t, "{}", string(got))

	_, err = s.Get(ctx, "nope.json")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestNewS3Sink_RequiresBucket(t *testing.T) {
	_, err := NewS3Sink(context.Background(), S3Config{})
	assert.Error(t, err)
}
