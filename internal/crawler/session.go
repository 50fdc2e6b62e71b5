package crawler

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/andybalholm/brotli"
	"go.uber.org/zap"
)

const defaultTimeout = 30 * time.Second

// ErrSessionClosed is returned by Fetch after Close.
var ErrSessionClosed = errors.New("session closed")

// StatusError reports a non-2xx HTTP response
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.StatusCode)
}

// FetchOptions are per-request additions to the session defaults
type FetchOptions struct {
	Cookies map[string]string
	Headers map[string]string
	Params  url.Values
}

// Session is one persistent HTTP context for a crawl. It carries fixed
// browser headers and a mutable cookie set sent with every request.
// Cookies set by the server are kept in a jar and sent back unless a
// session or per-request cookie of the same name replaces them.
type Session struct {
	Client  *http.Client
	Logger  *zap.Logger
	Headers map[string]string

	jar     http.CookieJar
	mu      sync.Mutex
	cookies map[string]string
	closed  bool
}

// NewSession creates a new session whose requests look like a mobile browser
// navigating from referer
func NewSession(log *zap.Logger, referer string, timeout time.Duration) (*Session, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	headers := getDefaultHeaders()
	if referer != "" {
		headers["Referer"] = referer
	}

	return &Session{
		Client: &http.Client{
			Timeout: timeout,
		},
		Logger:  log.Named("session"),
		Headers: headers,
		jar:     jar,
		cookies: make(map[string]string),
	}, nil
}

// SetCookie sets a cookie sent with every following request
func (s *Session) SetCookie(name, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cookies[name] = value
}

// Cookie returns the current value of a session cookie
func (s *Session) Cookie(name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cookies[name]
}

// Fetch performs a GET and returns the decoded body text. It does not retry.
func (s *Session) Fetch(ctx context.Context, rawURL string, opts FetchOptions) (string, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return "", ErrSessionClosed
	}
	cookies := make(map[string]string, len(s.cookies)+len(opts.Cookies))
	for k, v := range s.cookies {
		cookies[k] = v
	}
	s.mu.Unlock()
	for k, v := range opts.Cookies {
		cookies[k] = v
	}

	target, err := withParams(rawURL, opts.Params)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	for key, value := range s.Headers {
		req.Header.Set(key, value)
	}
	for key, value := range opts.Headers {
		req.Header.Set(key, value)
	}
	for _, c := range s.jar.Cookies(req.URL) {
		if _, replaced := cookies[c.Name]; !replaced {
			req.AddCookie(c)
		}
	}
	for name, value := range cookies {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("GET %s: %w", target, err)
	}
	defer resp.Body.Close()

	if set := resp.Cookies(); len(set) > 0 {
		s.jar.SetCookies(resp.Request.URL, set)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", &StatusError{URL: target, StatusCode: resp.StatusCode}
	}

	body, err := decodeBody(resp)
	if err != nil {
		return "", fmt.Errorf("GET %s: %w", target, err)
	}

	s.Logger.Debug("Fetched URL",
		zap.String("url", target),
		zap.Int("content_length", len(body)))

	return string(body), nil
}

// Close releases pooled connections. Further fetches fail.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.Client.CloseIdleConnections()
	return nil
}

func withParams(rawURL string, params url.Values) (string, error) {
	if len(params) == 0 {
		return rawURL, nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", rawURL, err)
	}
	q := u.Query()
	for key, values := range params {
		q.Del(key)
		for _, v := range values {
			q.Add(key, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// decodeBody reads the response body, undoing the encodings the session
// advertises in Accept-Encoding.
func decodeBody(resp *http.Response) ([]byte, error) {
	var r io.Reader = resp.Body

	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "br":
		r = brotli.NewReader(resp.Body)
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		defer gz.Close()
		r = gz
	}

	return io.ReadAll(r)
}

// getDefaultHeaders returns the headers of Chrome on an Android phone
func getDefaultHeaders() map[string]string {
	return map[string]string{
		"Accept": "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp," +
			"image/apng,*/*;q=0.8,application/signed-exchange;v=b3;q=0.7",
		"Accept-Encoding":           "gzip, br",
		"Accept-Language":           "ru-RU,ru;q=0.9,en-US;q=0.8,en;q=0.7",
		"Cache-Control":             "max-age=0",
		"Connection":                "keep-alive",
		"Sec-Fetch-Dest":            "document",
		"Sec-Fetch-Mode":            "navigate",
		"Sec-Fetch-Site":            "same-origin",
		"Sec-Fetch-User":            "?1",
		"Upgrade-Insecure-Requests": "1",
		"User-Agent": "Mozilla/5.0 (Linux; Android 6.0; Nexus 5 Build/MRA58N) AppleWebKit/537.36 " +
			"(KHTML, like Gecko) Chrome/130.0.0.0 Mobile Safari/537.36",
		"sec-ch-ua":          `"Chromium";v="130", "Google Chrome";v="130", "Not?A_Brand";v="99"`,
		"sec-ch-ua-mobile":   "?1",
		"sec-ch-ua-platform": `"Android"`,
	}
}
