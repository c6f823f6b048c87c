package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/etzlertech/rancheye-02-analysis/internal/shared/storage/object"
)

func TestApplyPrefix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		prefix string
		key    string
		want   string
	}{
		{name: "no prefix", prefix: "", key: "cam/img.jpg", want: "cam/img.jpg"},
		{name: "simple prefix", prefix: "root", key: "cam/img.jpg", want: "root/cam/img.jpg"},
		{name: "prefix trailing slash", prefix: "root/", key: "cam/img.jpg", want: "root/cam/img.jpg"},
		{name: "prefix and key slashes", prefix: "/root/", key: "/cam/img.jpg", want: "root/cam/img.jpg"},
		{name: "nested prefix", prefix: "root/sub", key: "cam/img.jpg", want: "root/sub/cam/img.jpg"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := applyPrefix(tt.prefix, tt.key); got != tt.want {
				t.Fatalf("applyPrefix(%q, %q) = %q, want %q", tt.prefix, tt.key, got, tt.want)
			}
		})
	}
}

type fakeS3 struct {
	objects map[string][]byte
	lastKey string
}

func (f *fakeS3) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	body, ok := f.objects[aws.ToString(params.Key)]
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(body))}, nil
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.lastKey = aws.ToString(params.Key)
	f.objects[f.lastKey] = data
	return &s3.PutObjectOutput{}, nil
}

func TestStorePutAndOpenUsePrefix(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{}}
	store := NewWithClient(fake, "bucket", "images/")

	n, err := store.Put(context.Background(), "cam-1/a.jpg", "image/jpeg", bytes.NewReader([]byte("abc")))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if n != 3 || fake.lastKey != "images/cam-1/a.jpg" {
		t.Fatalf("unexpected put n=%d key=%s", n, fake.lastKey)
	}

	rc, err := store.Open(context.Background(), "cam-1/a.jpg")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	got, _ := io.ReadAll(rc)
	if string(got) != "abc" {
		t.Fatalf("unexpected body %q", got)
	}
}

func TestStoreOpenMissingKey(t *testing.T) {
	store := NewWithClient(&fakeS3{objects: map[string][]byte{}}, "bucket", "")
	_, err := store.Open(context.Background(), "nope.jpg")
	if !errors.Is(err, object.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
