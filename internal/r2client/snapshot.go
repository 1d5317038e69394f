package r2client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/zstd"
)

const (
	fingerprintMetaKey = "fingerprint"
	maxSnapshotSize    = 8 << 20
)

// SnapshotStore keeps one zstd-compressed document under a fixed key.
type SnapshotStore struct {
	client *Client
	key    string
}

// Snapshots returns a store for the given object key.
func (c *Client) Snapshots(key string) *SnapshotStore {
	return &SnapshotStore{client: c, key: key}
}

// SaveSnapshot compresses document and uploads it, recording fingerprint
// in the object metadata.
func (s *SnapshotStore) SaveSnapshot(ctx context.Context, fingerprint string, document []byte) error {
	compressed, err := Compress(document)
	if err != nil {
		return err
	}
	meta := map[string]string{fingerprintMetaKey: fingerprint}
	if _, err := s.client.Upload(ctx, s.key, bytes.NewReader(compressed), "application/zstd", meta); err != nil {
		return err
	}
	return nil
}

// LoadSnapshot downloads and decompresses the document.
// A missing object yields errors.ErrNotFound.
func (s *SnapshotStore) LoadSnapshot(ctx context.Context) (string, []byte, error) {
	obj, err := s.client.Download(ctx, s.key)
	if err != nil {
		return "", nil, err
	}
	defer obj.Body.Close()

	document, err := Decompress(obj.Body)
	if err != nil {
		return "", nil, fmt.Errorf("r2client: snapshot %q: %w", s.key, err)
	}
	return obj.Metadata[fingerprintMetaKey], document, nil
}

// SavedAt returns when the document was last uploaded.
// A missing object yields errors.ErrNotFound.
func (s *SnapshotStore) SavedAt(ctx context.Context) (time.Time, error) {
	info, err := s.client.HeadObject(ctx, s.key)
	if err != nil {
		return time.Time{}, err
	}
	return info.LastModified, nil
}

// Compress encodes data with zstd.
func Compress(data []byte) ([]byte, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return nil, fmt.Errorf("compress: create encoder: %w", err)
	}
	defer encoder.Close()
	return encoder.EncodeAll(data, make([]byte, 0, len(data)/2)), nil
}

// Decompress decodes a zstd stream, refusing output larger than 8 MiB.
func Decompress(r io.Reader) ([]byte, error) {
	decoder, err := zstd.NewReader(r, zstd.WithDecoderMaxMemory(maxSnapshotSize))
	if err != nil {
		return nil, fmt.Errorf("decompress: create decoder: %w", err)
	}
	defer decoder.Close()

	data, err := io.ReadAll(io.LimitReader(decoder, maxSnapshotSize+1))
	if err != nil {
		return nil, fmt.Errorf("decompress: %w", err)
	}
	if len(data) > maxSnapshotSize {
		return nil, fmt.Errorf("decompress: snapshot exceeds %d bytes", maxSnapshotSize)
	}
	return data, nil
}
