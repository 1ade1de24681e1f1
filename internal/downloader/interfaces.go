package downloader

import (
	"context"
)

// Downloader fetches remote media to local storage.
type Downloader interface {
	// DownloadFile fetches url fully into destPath. The destination is
	// removed on failure so a partial file never survives.
	DownloadFile(ctx context.Context, url, destPath string) error
}
