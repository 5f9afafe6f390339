package services

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/storefront-backend/internal/config"
)

// pngBytes encodes a solid w x h image.
func pngBytes(t testing.TB, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func storageConfig(maxKB int64) config.StorageConfig {
	return config.StorageConfig{Driver: DiskLocal, MaxImageSize: maxKB}
}

type fakeS3 struct {
	s3iface.S3API
	objects map[string][]byte
	types   map[string]string
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeS3) PutObjectWithContext(_ aws.Context, in *s3.PutObjectInput, _ ...request.Option) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.StringValue(in.Bucket)+"/"+aws.StringValue(in.Key)] = data
	f.types[aws.StringValue(in.Key)] = aws.StringValue(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObjectWithContext(_ aws.Context, in *s3.DeleteObjectInput, _ ...request.Option) (*s3.DeleteObjectOutput, error) {
	delete(f.objects, aws.StringValue(in.Bucket)+"/"+aws.StringValue(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3Store(t *testing.T) {
	client := newFakeS3()
	store := NewS3Store(client, config.AWSConfig{Region: "eu-west-1", S3Bucket: "media"})
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "attachments/a.png", "image/png", []byte("data")))
	assert.Equal(t, []byte("data"), client.objects["media/attachments/a.png"])
	assert.Equal(t, "image/png", client.types["attachments/a.png"])
	assert.Equal(t, DiskS3, store.Disk())
	assert.Equal(t, "https://media.s3.eu-west-1.amazonaws.com/attachments/a.png", store.URL("attachments/a.png"))

	require.NoError(t, store.Delete(ctx, "attachments/a.png"))
	assert.Empty(t, client.objects)

	cdn := NewS3Store(client, config.AWSConfig{S3Bucket: "media", CloudFrontURL: "https://cdn.example.com/"})
	assert.Equal(t, "https://cdn.example.com/attachments/a.png", cdn.URL("attachments/a.png"))
}

func TestLocalStore(t *testing.T) {
	root := t.TempDir()
	store := NewLocalStore(root, "http://localhost:8080/media/")
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "attachments/x/a.png", "image/png", []byte("png")))
	data, err := os.ReadFile(filepath.Join(root, "attachments", "x", "a.png"))
	require.NoError(t, err)
	assert.Equal(t, []byte("png"), data)
	assert.Equal(t, "http://localhost:8080/media/attachments/x/a.png", store.URL("attachments/x/a.png"))

	// Keys cannot escape the root.
	require.NoError(t, store.Put(ctx, "../../escape.png", "image/png", []byte("png")))
	_, err = os.Stat(filepath.Join(root, "escape.png"))
	assert.NoError(t, err)

	require.NoError(t, store.Delete(ctx, "attachments/x/a.png"))
	require.NoError(t, store.Delete(ctx, "attachments/x/a.png"), "deleting twice is fine")
	assert.Error(t, store.Put(ctx, "", "image/png", nil))
}

func TestDetectImageType(t *testing.T) {
	mime, ext, ok := DetectImageType(pngBytes(t, 2, 2))
	assert.True(t, ok)
	assert.Equal(t, "image/png", mime)
	assert.Equal(t, ".png", ext)

	mime, ext, ok = DetectImageType([]byte{0xFF, 0xD8, 0xFF, 0xE0})
	assert.True(t, ok)
	assert.Equal(t, "image/jpeg", mime)
	assert.Equal(t, ".jpg", ext)

	_, _, ok = DetectImageType([]byte("GIF89a"))
	assert.False(t, ok)
}

func TestMakeThumbnailFitsBox(t *testing.T) {
	cases := []struct {
		w, h         int
		wantW, wantH int
	}{
		{736, 464, 368, 232},
		{1000, 100, 368, 36},
		{100, 1000, 23, 232},
		{50, 40, 50, 40},
	}
	for _, tc := range cases {
		thumb, err := MakeThumbnail(pngBytes(t, tc.w, tc.h), "image/png")
		require.NoError(t, err)
		cfg, err := png.DecodeConfig(bytes.NewReader(thumb))
		require.NoError(t, err)
		assert.Equal(t, tc.wantW, cfg.Width, "%dx%d", tc.w, tc.h)
		assert.Equal(t, tc.wantH, cfg.Height, "%dx%d", tc.w, tc.h)
	}

	_, err := MakeThumbnail([]byte("nope"), "image/png")
	assert.Error(t, err)
}

func TestGenerateStorageKey(t *testing.T) {
	a := GenerateStorageKey("attachments", "Photo.PNG")
	b := GenerateStorageKey("attachments", "Photo.PNG")
	assert.NotEqual(t, a, b)
	assert.Regexp(t, `^attachments/[0-9a-f-]{36}/\d{8}_[0-9a-f]{8}\.png$`, a)
}
