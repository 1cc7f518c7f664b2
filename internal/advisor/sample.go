package advisor

import (
	"context"
	"io"
	"net/http"
)

// FetchSample does a single bounded GET of a board's listing page to
// feed AnalyzeBoard. It reads a few multiples of the configured sample
// limit so the HTML cleaner still has enough markup left after tag
// stripping and truncation.
func FetchSample(ctx context.Context, client *http.Client, url string, limit int) (string, error) {
	if client == nil {
		client = http.DefaultClient
	}
	if limit <= 0 {
		limit = 6144
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, int64(limit)*4))
	if err != nil {
		return "", err
	}
	return string(body), nil
}
