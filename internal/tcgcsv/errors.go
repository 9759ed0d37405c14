/**
 * @description
 * Error types for the tcgcsv.com feed client.
 * Transport failures and envelope failures are distinct so that callers can
 * decide per call-site whether to tag-and-continue or abort.
 */

package tcgcsv

import (
	"errors"
	"fmt"
	"strings"
)

// ErrArchiveNotFound signals a confirmed 404 on a daily archive. Callers skip
// that date; every other download failure is fatal.
var ErrArchiveNotFound = errors.New("archive not found")

// FetchError is a transport-level failure: non-2xx status or broken response.
type FetchError struct {
	URL    string
	Status int
	Reason string
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s failed: status %d %s", e.URL, e.Status, e.Reason)
}

// APIError is an envelope-level failure: the feed answered 200 but reported
// success=false.
type APIError struct {
	URL    string
	Errors []string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("feed error for %s: %s", e.URL, strings.Join(e.Errors, "; "))
}
