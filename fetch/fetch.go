// Package fetch implements rate-limited, retrying HTTP GET fetching of
// the upstream NOAA forecast and aviation-weather METAR endpoints.
//
// The client is an explicit *http.Client built from named transport
// settings, not http.DefaultClient.
package fetch

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"syscall"
	"time"

	"github.com/golang/glog"
	"github.com/tee8z/weather-oracle/ratelimit"
)

// Sentinel errors callers can match with errors.Is.
var (
	ErrTransport = errors.New("fetch: transport error")
	ErrBadStatus = errors.New("fetch: non-success status")
)

const (
	timeout        = 20 * time.Second
	maxRetries     = 3
	initialBackoff = 100 * time.Millisecond
)

// TransportArgs names the transport-tuning knobs the client is built
// from.
type TransportArgs struct {
	Timeout         time.Duration
	WriteBufferSize int
	ReadBufferSize  int
}

// Fetcher issues rate-limited, retried GETs against upstream endpoints.
type Fetcher struct {
	client    *http.Client
	limiter   *ratelimit.Limiter
	userAgent string
	backoff   time.Duration
}

func NewClient(args TransportArgs) *http.Client {
	if args.Timeout == 0 {
		args.Timeout = timeout
	}
	return &http.Client{
		Timeout: args.Timeout,
		Transport: &http.Transport{
			WriteBufferSize:       args.WriteBufferSize,
			ReadBufferSize:        args.ReadBufferSize,
			ResponseHeaderTimeout: args.Timeout,
		},
	}
}

func New(limiter *ratelimit.Limiter, userAgent string) *Fetcher {
	return newWithBackoff(limiter, userAgent, initialBackoff)
}

func newWithBackoff(limiter *ratelimit.Limiter, userAgent string, backoff time.Duration) *Fetcher {
	return &Fetcher{
		client:    NewClient(TransportArgs{}),
		limiter:   limiter,
		userAgent: userAgent,
		backoff:   backoff,
	}
}

// FetchXML issues a GET with up to maxRetries exponential-backoff
// retries on transient failures, after acquiring one rate-limit token.
func (f *Fetcher) FetchXML(ctx context.Context, url string) (string, error) {
	if err := f.limiter.TryAcquire(ctx, 1); err != nil {
		return "", fmt.Errorf("fetch: %w", err)
	}
	body, err := f.doWithRetry(ctx, url, false)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// FetchXMLGzip fetches a gzip-compressed body and streams it
// line-by-line to sink so the full decompressed document is never held
// in memory.
func (f *Fetcher) FetchXMLGzip(ctx context.Context, url string, sink func(line string) error) error {
	if err := f.limiter.TryAcquire(ctx, 1); err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	body, err := f.doWithRetry(ctx, url, true)
	if err != nil {
		return err
	}
	gz, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("fetch: gzip: %w", err)
	}
	defer gz.Close()

	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for scanner.Scan() {
		if err := sink(scanner.Text()); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func (f *Fetcher) doWithRetry(ctx context.Context, url string, raw bool) ([]byte, error) {
	backoff := f.backoff
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			t := time.NewTimer(backoff)
			select {
			case <-t.C:
			case <-ctx.Done():
				t.Stop()
				return nil, ctx.Err()
			}
			backoff *= 4
		}
		body, status, err := f.do(ctx, url)
		if err == nil && status >= 200 && status < 300 {
			return body, nil
		}
		if err != nil {
			if !isTransient(err) {
				return nil, fmt.Errorf("%w: %v", ErrTransport, err)
			}
			lastErr = fmt.Errorf("%w: %v", ErrTransport, err)
			glog.Warningf("fetch: transient error on %s (attempt %d/%d): %v", url, attempt+1, maxRetries, err)
			continue
		}
		if status >= 500 {
			lastErr = fmt.Errorf("%w: %d", ErrBadStatus, status)
			glog.Warningf("fetch: transient %d status on %s (attempt %d/%d)", status, url, attempt+1, maxRetries)
			continue
		}
		// A 4xx status is a hard failure — no retry beyond the
		// transient policy above.
		return nil, fmt.Errorf("%w: %d", ErrBadStatus, status)
	}
	return nil, lastErr
}

func (f *Fetcher) do(ctx context.Context, url string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("User-Agent", f.userAgent)
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}

func isTransient(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) ||
		errors.Is(err, syscall.ECONNRESET)
}
