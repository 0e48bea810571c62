package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
)

// BlobKV stores each key as <key>.json in an Azure Blob Storage container.
type BlobKV struct {
	client    *azblob.Client
	container string
}

// NewBlobKV connects with a storage account connection string (Azurite's
// works too) and creates the container if needed.
func NewBlobKV(ctx context.Context, connectionString, container string) (*BlobKV, error) {
	client, err := azblob.NewClientFromConnectionString(connectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("create blob client: %w", err)
	}

	_, err = client.CreateContainer(ctx, container, nil)
	if err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
		return nil, fmt.Errorf("create container %s: %w", container, err)
	}

	slog.Info("Blob key-value store ready", "container", container)
	return &BlobKV{client: client, container: container}, nil
}

func blobName(key string) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	return key + ".json", nil
}

func (b *BlobKV) Get(ctx context.Context, key string) ([]byte, error) {
	name, err := blobName(key)
	if err != nil {
		return nil, err
	}
	resp, err := b.client.DownloadStream(ctx, b.container, name, nil)
	if bloberror.HasCode(err, bloberror.BlobNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("download blob %s/%s: %w", b.container, name, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read blob content: %w", err)
	}
	return data, nil
}

func (b *BlobKV) Set(ctx context.Context, key string, value []byte) error {
	name, err := blobName(key)
	if err != nil {
		return err
	}
	if _, err := b.client.UploadBuffer(ctx, b.container, name, value, nil); err != nil {
		return fmt.Errorf("upload blob %s/%s: %w", b.container, name, err)
	}
	return nil
}

func (b *BlobKV) Delete(ctx context.Context, key string) error {
	name, err := blobName(key)
	if err != nil {
		return err
	}
	_, err = b.client.DeleteBlob(ctx, b.container, name, nil)
	if err != nil && !bloberror.HasCode(err, bloberror.BlobNotFound) {
		return fmt.Errorf("delete blob %s/%s: %w", b.container, name, err)
	}
	return nil
}
