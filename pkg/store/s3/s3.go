// Package s3 implements store.Client on top of aws-sdk-go-v2 for COS and
// other S3-compatible object stores.
//
// Endpoint Handling:
// The endpoint is held by the client, not baked into the SDK client, and is
// applied per request through BaseEndpoint. It can be swapped at any time
// with SetEndpoint. While no endpoint is set every request fails with an
// ErrTransport error instead of falling back to an AWS default endpoint.
//
// Thread Safety:
// Client is safe for concurrent use by multiple goroutines.
package s3

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/marmos91/cosfs/internal/logger"
	"github.com/marmos91/cosfs/internal/ratelimiter"
	"github.com/marmos91/cosfs/pkg/cospath"
	"github.com/marmos91/cosfs/pkg/store"
)

// ErrEndpointNotSet is wrapped by every error returned while the client has
// no endpoint.
var ErrEndpointNotSet = errors.New("endpoint not set")

// Config contains the dependencies of a Client.
type Config struct {
	// API is the configured SDK client (credentials, region, retryer)
	API *s3.Client

	// Endpoint is the initial endpoint URL (may be empty)
	Endpoint string

	// Limiter throttles outgoing requests (nil = unlimited)
	Limiter *ratelimiter.RateLimiter

	// Metrics receives per-request observations (nil = discarded)
	Metrics store.Metrics
}

// Client is the S3/COS implementation of store.Client.
type Client struct {
	api      *s3.Client
	endpoint atomic.Pointer[string]
	limiter  *ratelimiter.RateLimiter
	metrics  store.Metrics
}

// New creates a Client. It performs no network calls.
func New(cfg Config) (*Client, error) {
	if cfg.API == nil {
		return nil, fmt.Errorf("S3 client is required")
	}

	c := &Client{
		api:     cfg.API,
		limiter: cfg.Limiter,
		metrics: store.MetricsOrNoop(cfg.Metrics),
	}
	c.SetEndpoint(cfg.Endpoint)
	return c, nil
}

// SetEndpoint replaces the endpoint used by subsequent requests.
func (c *Client) SetEndpoint(endpoint string) {
	c.endpoint.Store(&endpoint)
}

// Endpoint returns the current endpoint.
func (c *Client) Endpoint() string {
	if ep := c.endpoint.Load(); ep != nil {
		return *ep
	}
	return ""
}

// begin prepares one request: it resolves the endpoint option and waits on
// the rate limiter.
func (c *Client) begin(ctx context.Context, op, path string) (func(*s3.Options), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	endpoint := c.Endpoint()
	if endpoint == "" {
		return nil, store.Transport(op, path, ErrEndpointNotSet)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	return func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	}, nil
}

// observe records the outcome of one request.
func (c *Client) observe(op string, start time.Time, err error) {
	duration := time.Since(start)
	c.metrics.ObserveOperation(op, duration, err)
	if err != nil {
		logger.Debug("s3 %s failed after %s: %v", op, duration, err)
	}
}

// notFoundCodes are the API error codes that mean "does not exist".
var notFoundCodes = map[string]bool{
	"NoSuchKey":     true,
	"NotFound":      true,
	"NoSuchBucket":  true,
	"NoSuchVersion": true,
	"NoSuchUpload":  true,
}

// apiErrorCode returns the service error code carried by err, if any.
func apiErrorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}

// classify converts an SDK error into a StoreError.
func classify(op, bucket, key string, err error) error {
	if err == nil {
		return nil
	}
	path := cospath.Join(bucket, key)

	// context errors are returned as-is so callers can match them
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if notFoundCodes[apiErrorCode(err)] {
		return store.NotFound(path, err)
	}
	return store.Transport(op, path, err)
}

var (
	_ store.Client         = (*Client)(nil)
	_ store.EndpointSetter = (*Client)(nil)
)
