package a2a

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/go-http-utils/headers"
)

// exchange sends one request and returns the status with the full body.
// A non-nil payload is sent as JSON.
func exchange(ctx context.Context, hc *http.Client, method, url string, payload []byte, extra http.Header) (int, []byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	if payload != nil {
		req.Header.Set(headers.ContentType, "application/json")
	}
	for k, vs := range extra {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := hc.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response: %w", err)
	}
	return resp.StatusCode, data, nil
}
