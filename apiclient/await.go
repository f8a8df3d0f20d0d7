package apiclient

import (
	"fmt"
	"io"
	"net/http"
	"time"
)

const awaitPollInterval = time.Millisecond * 200

// AwaitService polls the base URL until the service answers with any HTTP status, or the
// timeout elapses. Any response counts, since the root of an API commonly returns 401 or 404.
func AwaitService(baseURL string, timeout time.Duration, output io.Writer) error {
	fmt.Fprintf(output, "Connecting to service at %s", baseURL)

	client := &http.Client{Timeout: awaitPollInterval * 5}
	deadline := time.Now().Add(timeout)
	for {
		fmt.Fprintf(output, ".")
		resp, err := client.Get(baseURL)
		if err == nil {
			_ = resp.Body.Close()
			fmt.Fprintln(output)
			fmt.Fprintf(output, "Service responded with status %d\n", resp.StatusCode)
			return nil
		}
		if !time.Now().Before(deadline) {
			fmt.Fprintln(output)
			return fmt.Errorf("timed out waiting for service, result of last query was: %w", err)
		}
		time.Sleep(awaitPollInterval)
	}
}

// StatusIsSuccess reports whether a status belongs to the 2xx range.
func StatusIsSuccess(status int) bool {
	return status >= http.StatusOK && status < http.StatusMultipleChoices
}
