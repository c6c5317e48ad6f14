package schema

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/JonMunkholm/carpenters/internal/textio"
)

// ErrEmptyMap is returned when a MAP document holds no fields.
var ErrEmptyMap = errors.New("map defines no fields")

// Parse decodes a MAP JSON array. A leading BOM is ignored.
func Parse(r io.Reader) (Map, error) {
	var m Map
	if err := json.NewDecoder(textio.NewReader(r)).Decode(&m); err != nil {
		return nil, fmt.Errorf("decode map: %w", err)
	}
	if len(m) == 0 {
		return nil, ErrEmptyMap
	}
	for i, f := range m {
		if f.Namespace == "" || f.Name == "" {
			return nil, fmt.Errorf("decode map: field %d is missing namespace or name", i)
		}
	}
	return m, nil
}

// LoadFile reads a MAP from disk.
func LoadFile(path string) (Map, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open map: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Fetch downloads a MAP. A nil client uses http.DefaultClient.
func Fetch(ctx context.Context, client *http.Client, url string) (Map, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch map: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch map: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch map: unexpected status %s", resp.Status)
	}
	return Parse(resp.Body)
}
