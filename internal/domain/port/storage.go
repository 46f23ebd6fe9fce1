package port

import "context"

// RawStore is the blob store holding uploaded source videos.
type RawStore interface {
	Download(ctx context.Context, videoID string, destPath string) error
	Remove(ctx context.Context, videoID string) error
}

// DistStore is the distribution store the streaming package is published to.
type DistStore interface {
	Upload(ctx context.Context, objectKey string, localPath string) error
}
