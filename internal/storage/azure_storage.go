package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
)

// blobClient is the part of the azblob client the store needs.
type blobClient interface {
	download(ctx context.Context, container, blob string) (io.ReadCloser, error)
	upload(ctx context.Context, container, blob string, data []byte) error
}

type azblobClient struct {
	client *azblob.Client
}

func (c azblobClient) download(ctx context.Context, container, blob string) (io.ReadCloser, error) {
	resp, err := c.client.DownloadStream(ctx, container, blob, nil)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (c azblobClient) upload(ctx context.Context, container, blob string, data []byte) error {
	_, err := c.client.UploadBuffer(ctx, container, blob, data, nil)
	return err
}

// BlobStorage reads images addressed as azblob://<container>/<blob> and
// writes extracted faces into one container of the same account.
type BlobStorage struct {
	client    blobClient
	container string
	maxBytes  int64
}

// NewAzureStorage authenticates with a shared key. container is where faces
// are written.
func NewAzureStorage(accountName, accountKey, container string) (*BlobStorage, error) {
	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("azure credential: %w", err)
	}

	client, err := azblob.NewClientWithSharedKeyCredential(
		fmt.Sprintf("https://%s.blob.core.windows.net/", accountName),
		credential,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("azure client: %w", err)
	}
	return newBlobStorage(azblobClient{client: client}, container), nil
}

func newBlobStorage(client blobClient, container string) *BlobStorage {
	return &BlobStorage{client: client, container: container, maxBytes: defaultMaxBytes}
}

// ParseBlobURL splits azblob://<container>/<blob> into its parts.
func ParseBlobURL(location string) (string, string, error) {
	parsed, err := url.Parse(location)
	if err != nil {
		return "", "", fmt.Errorf("invalid blob URL: %w", err)
	}
	if parsed.Scheme != "azblob" {
		return "", "", fmt.Errorf("invalid blob URL scheme %q", parsed.Scheme)
	}
	blob := strings.TrimPrefix(parsed.Path, "/")
	if parsed.Host == "" || blob == "" {
		return "", "", fmt.Errorf("blob URL must name a container and a blob")
	}
	return parsed.Host, blob, nil
}

func (s *BlobStorage) Fetch(ctx context.Context, location string) ([]byte, error) {
	container, blob, err := ParseBlobURL(location)
	if err != nil {
		return nil, err
	}

	body, err := s.client.download(ctx, container, blob)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}
	defer body.Close()

	data, err := io.ReadAll(io.LimitReader(body, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, fmt.Errorf("%w: limit %d bytes", ErrImageTooLarge, s.maxBytes)
	}
	return data, nil
}

func (s *BlobStorage) SaveFace(ctx context.Context, name string, data []byte) (string, error) {
	if err := s.client.upload(ctx, s.container, name, data); err != nil {
		return "", fmt.Errorf("upload failed: %w", err)
	}
	return fmt.Sprintf("azblob://%s/%s", s.container, name), nil
}
