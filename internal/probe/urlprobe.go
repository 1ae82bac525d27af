package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rezdm/Argus/internal/domain"
)

const userAgent = "Argus-Monitor/1.0 (Network Monitor)"

// URLProbe issues an HTTP GET and treats any 2xx as success. The timeout
// bounds the whole probe, including any redirects followed.
type URLProbe struct {
	UserAgent string
}

func NewURLProbe() *URLProbe {
	return &URLProbe{UserAgent: userAgent}
}

func (u *URLProbe) Execute(ctx context.Context, spec domain.TestSpec, timeout time.Duration) domain.TestResult {
	start := time.Now()
	if err := u.Validate(spec); err != nil {
		return finish(start, err)
	}

	transport := &http.Transport{
		DialContext:           (&net.Dialer{Timeout: timeout}).DialContext,
		TLSHandshakeTimeout:   timeout,
		ResponseHeaderTimeout: timeout,
		DisableKeepAlives:     true,
	}
	defer transport.CloseIdleConnections()

	if p := strings.TrimSpace(spec.Proxy); p != "" {
		proxyURL, err := httpProxyURL(p)
		if err != nil {
			return finish(start, err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	// the transport bounds each connect and header read; this bounds the
	// whole exchange, redirects included, by the same timeout.
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimSpace(spec.URL), nil)
	if err != nil {
		return finish(start, err)
	}
	req.Close = true
	req.Header.Set("User-Agent", u.UserAgent)
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Cache-Control", "no-cache")

	client := &http.Client{Transport: transport}
	resp, err := client.Do(req)
	if err != nil {
		return finish(start, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return finish(start, fmt.Errorf("HTTP %s", resp.Status))
	}
	return finish(start, nil)
}

func (u *URLProbe) Validate(spec domain.TestSpec) error {
	if strings.TrimSpace(spec.URL) == "" {
		return invalid("URL is required for URL test")
	}
	if _, err := parseAbsoluteURL(spec.URL); err != nil {
		return invalid("invalid URL format: %s", spec.URL)
	}
	if p := strings.TrimSpace(spec.Proxy); p != "" {
		if _, err := parseAbsoluteURL(p); err != nil {
			return invalid("invalid proxy URL format: %s", spec.Proxy)
		}
	}
	return nil
}

func (u *URLProbe) Describe(spec domain.TestSpec) string {
	if strings.TrimSpace(spec.Proxy) != "" {
		return "URL: " + spec.URL + " (via proxy)"
	}
	return "URL: " + spec.URL
}

func parseAbsoluteURL(raw string) (*url.URL, error) {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, err
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, errors.New("missing scheme or host")
	}
	return parsed, nil
}

// httpProxyURL turns a configured proxy into a plain HTTP proxy address.
// Missing ports default to 443 for https proxy URLs and 80 otherwise.
func httpProxyURL(raw string) (*url.URL, error) {
	p, err := parseAbsoluteURL(raw)
	if err != nil {
		return nil, err
	}
	port := p.Port()
	if port == "" {
		port = "80"
		if strings.EqualFold(p.Scheme, "https") {
			port = "443"
		}
	}
	return &url.URL{
		Scheme: "http",
		User:   p.User,
		Host:   net.JoinHostPort(p.Hostname(), port),
	}, nil
}
