package minio

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type StoreConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
	Bucket    string
	Prefix    string
}

func newClient(cfg StoreConfig) (*miniogo.Client, error) {
	client, err := miniogo.New(cfg.Endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client for %s: %w", cfg.Endpoint, err)
	}
	return client, nil
}

// RawStore reads and deletes source videos keyed by video id under an
// optional prefix.
type RawStore struct {
	client *miniogo.Client
	bucket string
	prefix string
}

func NewRawStore(cfg StoreConfig) (*RawStore, error) {
	client, err := newClient(cfg)
	if err != nil {
		return nil, err
	}
	return &RawStore{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

func (s *RawStore) key(videoID string) string {
	return s.prefix + videoID
}

func (s *RawStore) Download(ctx context.Context, videoID string, destPath string) error {
	if err := s.client.FGetObject(ctx, s.bucket, s.key(videoID), destPath, miniogo.GetObjectOptions{}); err != nil {
		return fmt.Errorf("download %s: %w", s.key(videoID), err)
	}
	return nil
}

func (s *RawStore) Remove(ctx context.Context, videoID string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, s.key(videoID), miniogo.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove %s: %w", s.key(videoID), err)
	}
	return nil
}

// DistStore publishes streaming artifacts to the distribution bucket, which
// may live on a different endpoint and account than the raw store.
type DistStore struct {
	client *miniogo.Client
	bucket string
}

func NewDistStore(cfg StoreConfig) (*DistStore, error) {
	client, err := newClient(cfg)
	if err != nil {
		return nil, err
	}
	return &DistStore{client: client, bucket: cfg.Bucket}, nil
}

func (s *DistStore) Upload(ctx context.Context, objectKey string, localPath string) error {
	_, err := s.client.FPutObject(ctx, s.bucket, objectKey, localPath, miniogo.PutObjectOptions{
		ContentType: contentTypeFor(objectKey),
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", objectKey, err)
	}
	return nil
}

func contentTypeFor(key string) string {
	switch strings.ToLower(filepath.Ext(key)) {
	case ".m3u8":
		return "application/vnd.apple.mpegurl"
	case ".ts":
		return "video/mp2t"
	case ".vtt":
		return "text/vtt"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	default:
		return "application/octet-stream"
	}
}
