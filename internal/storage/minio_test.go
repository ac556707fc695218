package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rtodocs/internal/config"
)

type fakeObjectAPI struct {
	statErr   error
	putInfo   minio.UploadInfo
	putErr    error
	putBody   []byte
	getErr    error
	removeErr error
	puts      int
}

func (f *fakeObjectAPI) StatObject(context.Context, string, string, minio.StatObjectOptions) (minio.ObjectInfo, error) {
	return minio.ObjectInfo{}, f.statErr
}

func (f *fakeObjectAPI) PutObject(_ context.Context, _, _ string, r io.Reader, _ int64, _ minio.PutObjectOptions) (minio.UploadInfo, error) {
	f.puts++
	if f.putErr != nil {
		return minio.UploadInfo{}, f.putErr
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	f.putBody = b
	return f.putInfo, nil
}

func (f *fakeObjectAPI) GetObject(context.Context, string, string, minio.GetObjectOptions) (*minio.Object, error) {
	return nil, f.getErr
}

func (f *fakeObjectAPI) RemoveObject(context.Context, string, string, minio.RemoveObjectOptions) error {
	return f.removeErr
}

var noSuchKey = minio.ErrorResponse{Code: "NoSuchKey", StatusCode: http.StatusNotFound}

func TestMinioPut(t *testing.T) {
	ctx := context.Background()
	stamp := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("writes when key is free", func(t *testing.T) {
		api := &fakeObjectAPI{statErr: noSuchKey, putInfo: minio.UploadInfo{Size: 5, ETag: "abc"}}
		s := newMinioStorage(api, "documents")
		s.now = func() time.Time { return stamp }

		info, err := s.Put(ctx, "documents/photo/k.png", bytes.NewReader([]byte("hello")), PutObjectOptions{Size: 5, ContentType: "image/png"})
		require.NoError(t, err)
		assert.Equal(t, []byte("hello"), api.putBody)
		assert.Equal(t, ObjectInfo{Key: "documents/photo/k.png", Size: 5, ETag: "abc", ContentType: "image/png", LastModified: stamp}, info)
	})

	t.Run("existing key is not overwritten", func(t *testing.T) {
		api := &fakeObjectAPI{}
		_, err := newMinioStorage(api, "documents").Put(ctx, "k", bytes.NewReader(nil), PutObjectOptions{})
		assert.ErrorIs(t, err, ErrObjectExists)
		assert.Zero(t, api.puts)
	})

	t.Run("existence check failure is returned", func(t *testing.T) {
		api := &fakeObjectAPI{statErr: errors.New("connection reset")}
		_, err := newMinioStorage(api, "documents").Put(ctx, "k", bytes.NewReader(nil), PutObjectOptions{})
		assert.EqualError(t, err, "connection reset")
		assert.Zero(t, api.puts)
	})

	t.Run("empty key", func(t *testing.T) {
		_, err := newMinioStorage(&fakeObjectAPI{}, "documents").Put(ctx, "", bytes.NewReader(nil), PutObjectOptions{})
		assert.ErrorIs(t, err, ErrInvalidKey)
	})
}

func TestMinioGetMissing(t *testing.T) {
	s := newMinioStorage(&fakeObjectAPI{getErr: noSuchKey}, "documents")
	_, _, err := s.Get(context.Background(), "gone")
	assert.ErrorIs(t, err, ErrObjectNotFound)

	s = newMinioStorage(&fakeObjectAPI{getErr: errors.New("timeout")}, "documents")
	_, _, err = s.Get(context.Background(), "k")
	assert.NotErrorIs(t, err, ErrObjectNotFound)
}

func TestMinioDelete(t *testing.T) {
	ctx := context.Background()
	assert.NoError(t, newMinioStorage(&fakeObjectAPI{removeErr: noSuchKey}, "b").Delete(ctx, "k"))
	assert.EqualError(t, newMinioStorage(&fakeObjectAPI{removeErr: errors.New("denied")}, "b").Delete(ctx, "k"), "denied")
}

func TestNewMinIORequiresSettings(t *testing.T) {
	tests := map[string]config.MinIOConfig{
		"endpoint is required": {AccessKey: "a", SecretKey: "s", Bucket: "b"},
		"keys are required":    {Endpoint: "minio:9000", Bucket: "b"},
		"bucket is required":   {Endpoint: "minio:9000", AccessKey: "a", SecretKey: "s"},
	}
	for want, cfg := range tests {
		t.Run(want, func(t *testing.T) {
			_, err := NewMinIO(context.Background(), cfg)
			assert.ErrorContains(t, err, want)
		})
	}
}
