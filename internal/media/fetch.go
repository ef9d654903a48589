package media

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Doer is satisfied by *http.Client and *resilience.Client.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Fetcher downloads remote images, for example the short-lived URLs returned
// by image generation APIs.
type Fetcher struct {
	Client   Doer
	MaxBytes int64
}

func (f Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download image: unexpected status %d", resp.StatusCode)
	}
	limit := f.MaxBytes
	if limit <= 0 {
		limit = 4 * DefaultMaxBytes
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("download image: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("download image: %w", ErrTooLarge)
	}
	return data, nil
}

// DecodeDataURL parses data:<mime>;base64,<payload>. A bare base64 string is
// accepted too.
func DecodeDataURL(s string) (mime string, data []byte, err error) {
	s = strings.TrimSpace(s)
	payload := s
	if rest, ok := strings.CutPrefix(s, "data:"); ok {
		meta, body, found := strings.Cut(rest, ",")
		if !found {
			return "", nil, fmt.Errorf("malformed data URL")
		}
		if !strings.HasSuffix(meta, ";base64") {
			return "", nil, fmt.Errorf("data URL must be base64 encoded")
		}
		mime = strings.TrimSuffix(meta, ";base64")
		payload = body
	}
	if payload == "" {
		return "", nil, fmt.Errorf("empty image payload")
	}
	data, err = base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("decode base64 image: %w", err)
	}
	return mime, data, nil
}
