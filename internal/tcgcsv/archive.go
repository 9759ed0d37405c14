/**
 * @description
 * Daily archive download for the tcgcsv.com feed.
 * Each day's prices are published as a single 7z snapshot; absence of a
 * snapshot is signaled by HTTP 404 and is not an error for the caller's
 * date loop.
 *
 * @dependencies
 * - net/http
 * - backend/internal/logger
 */

package tcgcsv

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/cardvault-project/backend/internal/logger"
)

const (
	// ArchiveDateLayout is the date component of archive file names.
	ArchiveDateLayout = "2006-01-02"

	archiveExt = ".ppmd.7z"
)

// ArchiveFileName returns the remote file name for a day's snapshot.
func ArchiveFileName(date time.Time) string {
	return fmt.Sprintf("prices-%s%s", date.Format(ArchiveDateLayout), archiveExt)
}

// DownloadArchive downloads the compressed price snapshot for the given date
// into destDir and returns the local file path. A confirmed 404 returns
// ErrArchiveNotFound; any other failure is a FetchError.
func (c *Client) DownloadArchive(ctx context.Context, date time.Time, destDir string) (string, error) {
	name := ArchiveFileName(date)
	url := fmt.Sprintf("%s/%s", c.ArchiveURL, name)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", &FetchError{URL: url, Reason: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", ErrArchiveNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return "", &FetchError{URL: url, Status: resp.StatusCode, Reason: resp.Status}
	}

	localPath := filepath.Join(destDir, name)
	out, err := os.Create(localPath)
	if err != nil {
		return "", err
	}
	defer out.Close()

	n, err := io.Copy(out, resp.Body)
	if err != nil {
		// Best-effort removal of the partial file before surfacing the error.
		os.Remove(localPath)
		return "", &FetchError{URL: url, Status: resp.StatusCode, Reason: err.Error()}
	}

	logger.Info("Downloaded %s (%d bytes)", name, n)
	return localPath, nil
}
