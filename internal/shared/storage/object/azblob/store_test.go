package azblob

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
)

type fakeBlobClient struct {
	uploaded map[string][]byte
}

func (f *fakeBlobClient) DownloadStream(ctx context.Context, containerName string, blobName string, o *azblob.DownloadStreamOptions) (azblob.DownloadStreamResponse, error) {
	return azblob.DownloadStreamResponse{}, nil
}

func (f *fakeBlobClient) UploadStream(ctx context.Context, containerName string, blobName string, body io.Reader, o *azblob.UploadStreamOptions) (azblob.UploadStreamResponse, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return azblob.UploadStreamResponse{}, err
	}
	f.uploaded[containerName+"/"+blobName] = data
	return azblob.UploadStreamResponse{}, nil
}

func TestBlobName(t *testing.T) {
	tests := []struct {
		prefix string
		key    string
		want   string
	}{
		{prefix: "", key: "cam/a.jpg", want: "cam/a.jpg"},
		{prefix: "/raw/", key: "/cam/a.jpg", want: "raw/cam/a.jpg"},
	}
	for _, tt := range tests {
		store := NewWithClient(&fakeBlobClient{}, "images", tt.prefix)
		got, err := store.blobName(tt.key)
		if err != nil || got != tt.want {
			t.Fatalf("blobName(%q) with prefix %q = %q, %v; want %q", tt.key, tt.prefix, got, err, tt.want)
		}
	}
}

func TestPutCountsBytes(t *testing.T) {
	fake := &fakeBlobClient{uploaded: map[string][]byte{}}
	store := NewWithClient(fake, "images", "raw")

	n, err := store.Put(context.Background(), "cam/a.jpg", "image/jpeg", bytes.NewReader([]byte("jpeg!")))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if n != 5 {
		t.Fatalf("expected 5 bytes, got %d", n)
	}
	if string(fake.uploaded["images/raw/cam/a.jpg"]) != "jpeg!" {
		t.Fatalf("unexpected uploads %v", fake.uploaded)
	}
}

func TestNewRequiresCredentials(t *testing.T) {
	if _, err := New("", "", "images", ""); err == nil {
		t.Fatalf("expected missing credentials error")
	}
}
