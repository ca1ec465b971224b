// CLAUDE:SUMMARY Outbound request guards: URL scheme/SSRF checks, identifier validation, bounded body reads.
// Package netsafe guards the outbound HTTP collaborators (content source,
// assist service, webhook sinks) against unsafe targets and unbounded
// responses.
package netsafe

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"strings"
)

// MaxResponseBody is the default cap for collaborator responses (8 MiB).
const MaxResponseBody int64 = 8 << 20

var (
	// ErrSSRF is returned when a URL resolves to a private or loopback address.
	ErrSSRF = errors.New("netsafe: URL targets a private or loopback address")
	// ErrUnsafeScheme is returned for anything but http and https.
	ErrUnsafeScheme = errors.New("netsafe: only http and https schemes are allowed")
)

// URLOption relaxes ValidateURL.
type URLOption func(*urlConfig)

type urlConfig struct {
	allowPrivate bool
}

// AllowPrivate accepts loopback and private targets. Used for collaborators
// deployed next to the editor and in tests.
func AllowPrivate() URLOption {
	return func(c *urlConfig) { c.allowPrivate = true }
}

// ValidateURL checks that rawURL is http(s) with a host and, unless
// AllowPrivate is given, that the host does not resolve to a private
// address.
func ValidateURL(rawURL string, opts ...URLOption) error {
	var cfg urlConfig
	for _, o := range opts {
		o(&cfg)
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("netsafe: invalid URL: %w", err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return ErrUnsafeScheme
	}
	host := u.Hostname()
	if host == "" {
		return fmt.Errorf("netsafe: URL has no host")
	}
	if cfg.allowPrivate {
		return nil
	}

	if ip := net.ParseIP(host); ip != nil {
		if isPrivateIP(ip) {
			return ErrSSRF
		}
		return nil
	}
	addrs, err := net.LookupHost(host)
	if err != nil {
		// Unresolvable hosts fail later at dial time.
		return nil
	}
	for _, a := range addrs {
		if ip := net.ParseIP(a); ip != nil && isPrivateIP(ip) {
			return ErrSSRF
		}
	}
	return nil
}

// ValidateIdentifier checks document ids and session keys before they are
// used in URLs or storage keys: 1 to 256 characters of [A-Za-z0-9_.-].
func ValidateIdentifier(s string) error {
	if s == "" {
		return fmt.Errorf("netsafe: identifier must not be empty")
	}
	if len(s) > 256 {
		return fmt.Errorf("netsafe: identifier too long (max 256)")
	}
	if s == "." || s == ".." {
		return fmt.Errorf("netsafe: invalid identifier %q", s)
	}
	for _, r := range s {
		if !isIdentChar(r) {
			return fmt.Errorf("netsafe: invalid character %q in identifier", r)
		}
	}
	return nil
}

// LimitedReadAll reads at most maxBytes from r and fails if more remain.
func LimitedReadAll(r io.Reader, maxBytes int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("netsafe: response exceeds %d bytes", maxBytes)
	}
	return data, nil
}

func isIdentChar(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9') || r == '_' || r == '-' || r == '.'
}

var privateNets = func() []*net.IPNet {
	var out []*net.IPNet
	for _, cidr := range []string{
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"169.254.0.0/16",
		"100.64.0.0/10",
		"fc00::/7",
		"::1/128",
	} {
		_, n, err := net.ParseCIDR(cidr)
		if err == nil {
			out = append(out, n)
		}
	}
	return out
}()

func isPrivateIP(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsUnspecified() {
		return true
	}
	for _, n := range privateNets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}
