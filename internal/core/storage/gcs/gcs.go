// Package gcs stores log shards in a Google Cloud Storage bucket.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	corestorage "github.com/aevon-lab/waypoint/internal/core/storage"
)

const contentType = "text/plain; charset=utf-8"

// ObjectStore implements storage.ObjectStore on one GCS bucket.
type ObjectStore struct {
	client *storage.Client
	bucket *storage.BucketHandle
	name   string
}

// NewObjectStore connects with application default credentials. A non-empty
// endpoint points the client at an emulator such as fake-gcs-server.
func NewObjectStore(ctx context.Context, bucket, endpoint string) (*ObjectStore, error) {
	var opts []option.ClientOption
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint), option.WithoutAuthentication())
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("new storage client: %w", err)
	}
	return &ObjectStore{
		client: client,
		bucket: client.Bucket(bucket),
		name:   bucket,
	}, nil
}

func (s *ObjectStore) Get(ctx context.Context, key string) ([]byte, error) {
	r, err := s.bucket.Object(key).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, corestorage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("open gs://%s/%s: %w", s.name, key, err)
	}
	defer r.Close()

	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read gs://%s/%s: %w", s.name, key, err)
	}
	return content, nil
}

// Put uploads the whole object. The write is committed on Close.
func (s *ObjectStore) Put(ctx context.Context, key string, content []byte) error {
	w := s.bucket.Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(content); err != nil {
		w.Close()
		return fmt.Errorf("write gs://%s/%s: %w", s.name, key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("commit gs://%s/%s: %w", s.name, key, err)
	}
	return nil
}

func (s *ObjectStore) List(ctx context.Context, prefix string) ([]string, error) {
	it := s.bucket.Objects(ctx, &storage.Query{Prefix: prefix})
	keys := make([]string, 0)
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list gs://%s/%s: %w", s.name, prefix, err)
		}
		keys = append(keys, attrs.Name)
	}
	return keys, nil
}

// Ping checks the bucket exists and is readable.
func (s *ObjectStore) Ping(ctx context.Context) error {
	_, err := s.bucket.Attrs(ctx)
	return err
}

func (s *ObjectStore) Close() error {
	return s.client.Close()
}
