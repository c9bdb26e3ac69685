// Package httpclient provides the single outbound HTTP operation the
// rest of the system needs: pulling a remote file down to local disk.
package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// DownloadedFile describes a file that has been downloaded to the
// local file system.
type DownloadedFile struct {
	URL           string
	LocalFilePath string
	Size          int64
	DownloadedAt  time.Time
}

// DownloadRemoteFile retrieves a file from a url to a local file
// destination. On success it returns information about the file in
// DownloadedFile. A non-2xx response is treated as an error rather
// than written to disk.
func DownloadRemoteFile(ctx context.Context, destinationFileName string, url string) (*DownloadedFile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("downloading %s: unexpected status %s", url, resp.Status)
	}

	out, err := os.Create(destinationFileName)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = out.Close()
	}()

	bytesWritten, err := io.Copy(out, resp.Body)
	if err != nil {
		return nil, err
	}

	return &DownloadedFile{
		URL:           url,
		LocalFilePath: destinationFileName,
		Size:          bytesWritten,
		DownloadedAt:  time.Now(),
	}, nil
}
