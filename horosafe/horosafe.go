// Package horosafe guards the outbound fetches farmdash makes: the farm
// dashboard page and the exchange table.
package horosafe

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
)

// MaxResponseBody caps small JSON responses (1 MiB).
const MaxResponseBody int64 = 1 << 20

// MaxPageBody caps dashboard documents (16 MiB); a farm map with every
// resource info payload inlined is large but never this large.
const MaxPageBody int64 = 16 << 20

// ErrUnsafeScheme is returned when a URL uses a non-HTTP(S) scheme.
var ErrUnsafeScheme = errors.New("horosafe: only http and https schemes are allowed")

// ErrTooLarge is returned by LimitedReadAll when the limit is exceeded.
var ErrTooLarge = errors.New("horosafe: response too large")

// ValidateURL checks that rawURL is an absolute http(s) URL with a host.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("horosafe: invalid URL: %w", err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return ErrUnsafeScheme
	}
	if u.Hostname() == "" {
		return fmt.Errorf("horosafe: URL has no host")
	}
	return nil
}

// LimitedReadAll reads at most maxBytes from r.
func LimitedReadAll(r io.Reader, maxBytes int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: over %d bytes", ErrTooLarge, maxBytes)
	}
	return data, nil
}
