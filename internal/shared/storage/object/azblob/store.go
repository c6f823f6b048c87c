package azblob

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"

	"github.com/etzlertech/rancheye-02-analysis/internal/shared/storage/object"
	"github.com/etzlertech/rancheye-02-analysis/internal/shared/util"
)

// API is the subset of the blob client used by Store.
type API interface {
	DownloadStream(ctx context.Context, containerName string, blobName string, o *azblob.DownloadStreamOptions) (azblob.DownloadStreamResponse, error)
	UploadStream(ctx context.Context, containerName string, blobName string, body io.Reader, o *azblob.UploadStreamOptions) (azblob.UploadStreamResponse, error)
}

// Store implements ObjectStore on an Azure blob container.
type Store struct {
	client    API
	container string
	prefix    string
}

// New builds a shared-key client for the storage account.
func New(accountName, accountKey, container, prefix string) (*Store, error) {
	if strings.TrimSpace(accountName) == "" || strings.TrimSpace(accountKey) == "" {
		return nil, fmt.Errorf("azure storage account and key are required")
	}
	if strings.TrimSpace(container) == "" {
		return nil, fmt.Errorf("azure container is required")
	}
	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("azure credential: %w", err)
	}
	client, err := azblob.NewClientWithSharedKeyCredential(
		fmt.Sprintf("https://%s.blob.core.windows.net", accountName),
		credential,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("azure client: %w", err)
	}
	return NewWithClient(client, container, prefix), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client API, container, prefix string) *Store {
	return &Store{
		client:    client,
		container: container,
		prefix:    strings.Trim(strings.TrimSpace(prefix), "/"),
	}
}

// Open streams a blob for reading.
func (s *Store) Open(ctx context.Context, storageKey string) (io.ReadCloser, error) {
	name, err := s.blobName(storageKey)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.DownloadStream(ctx, s.container, name, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
			return nil, fmt.Errorf("%w: azure container=%s blob=%s", object.ErrNotFound, s.container, name)
		}
		return nil, fmt.Errorf("azure download container=%s blob=%s: %w", s.container, name, err)
	}
	return resp.Body, nil
}

// Put uploads a blob. contentType is not set on the blob; camera images are always JPEG.
func (s *Store) Put(ctx context.Context, storageKey string, contentType string, r io.Reader) (int64, error) {
	name, err := s.blobName(storageKey)
	if err != nil {
		return 0, err
	}
	counter := &countingReader{r: r}
	if _, err := s.client.UploadStream(ctx, s.container, name, counter, nil); err != nil {
		return 0, fmt.Errorf("azure upload container=%s blob=%s: %w", s.container, name, err)
	}
	_ = contentType
	return counter.n, nil
}

func (s *Store) blobName(storageKey string) (string, error) {
	clean, err := util.CleanStorageKey(storageKey)
	if err != nil {
		return "", err
	}
	if s.prefix == "" {
		return clean, nil
	}
	return s.prefix + "/" + clean, nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

var _ object.ObjectStore = (*Store)(nil)
