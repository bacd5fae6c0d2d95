package client

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

// Message is one decoded event stream frame. Data is left raw so callers can
// decode it into the payload type of the frame's Type.
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// StreamOptions tunes reconnection. Zero values take the defaults.
type StreamOptions struct {
	// InitialInterval is the first reconnect delay. When zero, the retry
	// hint sent by the server is used, falling back to 3s.
	InitialInterval time.Duration
	// MaxInterval caps the reconnect delay. Defaults to 30s.
	MaxInterval time.Duration
	// MaxElapsedTime gives up after this long without a successful
	// connection. Zero retries forever.
	MaxElapsedTime time.Duration
	// OnDisconnect, if set, is called with the error that ended each
	// connection attempt. It is not called on cancellation.
	OnDisconnect func(err error)
}

const (
	defaultRetry       = 3 * time.Second
	defaultMaxInterval = 30 * time.Second
)

// StreamClient consumes a healthwatch event stream and reconnects with
// exponential backoff when the connection drops.
type StreamClient struct {
	url        string
	httpClient *http.Client
	opts       StreamOptions
	logger     *zerolog.Logger

	// retry is the last reconnect hint sent by the server.
	retry time.Duration
}

// NewStreamClient creates a consumer for the stream at url, e.g.
// "http://localhost:8080/api/who/stream".
func NewStreamClient(url string, opts StreamOptions, logger *zerolog.Logger) *StreamClient {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if opts.MaxInterval <= 0 {
		opts.MaxInterval = defaultMaxInterval
	}
	return &StreamClient{
		url: url,
		// No timeout: the response body stays open for the whole stream.
		httpClient: &http.Client{},
		opts:       opts,
		logger:     logger,
		retry:      defaultRetry,
	}
}

// Stream delivers every frame to handle until ctx is cancelled, reconnecting
// after errors. It returns ctx.Err() on cancellation, or the last connection
// error once MaxElapsedTime is exhausted.
func (c *StreamClient) Stream(ctx context.Context, handle func(Message)) error {
	b := c.newBackOff()
	for {
		connected, err := c.streamOnce(ctx, handle)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if c.opts.OnDisconnect != nil {
			c.opts.OnDisconnect(err)
		}
		if connected {
			b = c.newBackOff()
		}

		wait := b.NextBackOff()
		if wait == backoff.Stop {
			return fmt.Errorf("giving up on %s: %w", c.url, err)
		}
		c.logger.Warn().Err(err).Dur("retry_in", wait).Str("url", c.url).Msg("event stream disconnected")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (c *StreamClient) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.opts.InitialInterval
	if b.InitialInterval <= 0 {
		b.InitialInterval = c.retry
	}
	b.MaxInterval = c.opts.MaxInterval
	b.MaxElapsedTime = c.opts.MaxElapsedTime
	b.Reset()
	return b
}

// streamOnce runs one connection. connected reports whether the server
// accepted the stream.
func (c *StreamClient) streamOnce(ctx context.Context, handle func(Message)) (connected bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		return false, fmt.Errorf("unexpected content type %q", ct)
	}
	c.logger.Info().Str("url", c.url).Msg("event stream connected")

	err = c.readFrames(resp, handle)
	if err == nil {
		err = fmt.Errorf("stream closed by server")
	}
	return true, err
}

// readFrames parses the event stream: "data:" lines accumulate until a blank
// line dispatches them, "retry:" updates the reconnect hint and lines
// starting with ":" are comments.
func (c *StreamClient) readFrames(resp *http.Response, handle func(Message)) error {
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var data strings.Builder
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if data.Len() == 0 {
				continue
			}
			c.dispatch(data.String(), handle)
			data.Reset()
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		case strings.HasPrefix(line, "retry:"):
			ms, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "retry:")))
			if err == nil && ms > 0 {
				c.retry = time.Duration(ms) * time.Millisecond
			}
		}
	}
	return scanner.Err()
}

func (c *StreamClient) dispatch(payload string, handle func(Message)) {
	var msg Message
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		c.logger.Warn().Err(err).Msg("skipping malformed event")
		return
	}
	handle(msg)
}
