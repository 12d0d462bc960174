package rpc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/GriffinCanCode/WebDesk/internal/infrastructure/config"
	"github.com/GriffinCanCode/WebDesk/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/WebDesk/internal/shared/errs"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"
)

// Transport posts RPC envelopes over HTTP. Server errors (5xx) and
// connection failures are retried by go-retryablehttp underneath resty;
// a client-side limiter bounds the outgoing request rate.
type Transport struct {
	resty   *resty.Client
	limiter *rate.Limiter
}

// TransportOptions configures a Transport
type TransportOptions struct {
	Timeout      time.Duration
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	RateLimitRPS float64
	// HTTPClient overrides the base client wrapped by the retrying round tripper
	HTTPClient *http.Client
}

// OptionsFromConfig derives transport options from the remote config
func OptionsFromConfig(cfg config.RemoteConfig) TransportOptions {
	return TransportOptions{
		Timeout:      cfg.Timeout,
		RetryMax:     cfg.RetryMax,
		RetryWaitMin: 200 * time.Millisecond,
		RetryWaitMax: 2 * time.Second,
		RateLimitRPS: cfg.RateLimitRPS,
	}
}

// NewTransport creates a transport
func NewTransport(opts TransportOptions) *Transport {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = opts.RetryMax
	if opts.RetryWaitMin > 0 {
		retryClient.RetryWaitMin = opts.RetryWaitMin
	}
	if opts.RetryWaitMax > 0 {
		retryClient.RetryWaitMax = opts.RetryWaitMax
	}
	if opts.HTTPClient != nil {
		retryClient.HTTPClient = opts.HTTPClient
	}
	retryClient.Logger = nil // Disable logging
	// hand the final response back instead of a "giving up" error so the
	// envelope carried by a 5xx can still be read
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	client := resty.New().
		SetTransport(&retryablehttp.RoundTripper{Client: retryClient}).
		SetHeader("User-Agent", "WebDesk-Kernel/1.0").
		SetHeader("Accept", "application/json")
	if opts.Timeout > 0 {
		client.SetTimeout(opts.Timeout)
	}

	limiter := rate.NewLimiter(rate.Inf, 0) // Unlimited by default
	if opts.RateLimitRPS > 0 {
		burst := int(opts.RateLimitRPS)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimitRPS), burst)
	}

	return &Transport{resty: client, limiter: limiter}
}

// Response is a raw HTTP reply
type Response struct {
	StatusCode int
	Body       []byte
}

// PostForm sends form fields to url. The trace carried by ctx, if any,
// travels in the request headers.
func (t *Transport) PostForm(ctx context.Context, url string, form map[string]string) (*Response, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, classifyTransportError(ctx, fmt.Errorf("rate limit error: %w", err))
	}

	resp, err := t.resty.R().
		SetContext(ctx).
		SetHeaders(tracing.Headers(ctx)).
		SetFormData(form).
		Post(url)
	if err != nil {
		return nil, classifyTransportError(ctx, err)
	}

	return &Response{StatusCode: resp.StatusCode(), Body: resp.Body()}, nil
}

func classifyTransportError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return errs.Wrap(errs.KindTimeout, "rpc.transport", err)
	}
	return errs.Wrap(errs.KindTransport, "rpc.transport", err)
}
