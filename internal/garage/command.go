package garage

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"time"
)

// drainLimit bounds how much of a device response body is read before closing.
const drainLimit = 64 << 10

// CommandResponse is what the device answered to a command.
type CommandResponse struct {
	URL        string
	Method     string
	StatusCode int
	Duration   time.Duration
}

// Delivered reports whether the device answered with a 2xx status.
func (r *CommandResponse) Delivered() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// CommandClient sends target door state commands to the device HTTP API.
type CommandClient struct {
	route  string
	method string
	user   string
	pass   string
	auth   bool
	http   *http.Client
}

// NewCommandClient builds a client from the accessory config.
//
// Certificate verification is disabled: garage controllers commonly serve
// self-signed certificates on the local network.
func NewCommandClient(cfg Config) *CommandClient {
	cfg = cfg.withDefaults()
	user, pass, ok := cfg.BasicAuth()

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} // #nosec G402 -- device certificates are self-signed

	return &CommandClient{
		route:  cfg.APIRoute,
		method: cfg.HTTPMethod,
		user:   user,
		pass:   pass,
		auth:   ok,
		http: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
	}
}

// URL returns the command URL for target.
func (c *CommandClient) URL(target DoorState) string {
	return fmt.Sprintf("%s/setTargetDoorState/%d", c.route, int(target))
}

// Method returns the configured HTTP method.
func (c *CommandClient) Method() string {
	return c.method
}

// Send issues the command. Any HTTP response counts as delivered; only
// transport failures return an error, wrapping ErrCommandFailed.
func (c *CommandClient) Send(ctx context.Context, target DoorState) (*CommandResponse, error) {
	if !target.ValidTarget() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTarget, int(target))
	}

	resp := &CommandResponse{URL: c.URL(target), Method: c.method}

	req, err := http.NewRequestWithContext(ctx, c.method, resp.URL, http.NoBody)
	if err != nil {
		return resp, fmt.Errorf("%w: building request: %w", ErrCommandFailed, err)
	}
	if c.auth {
		req.SetBasicAuth(c.user, c.pass)
	}

	start := time.Now()
	httpResp, err := c.http.Do(req)
	resp.Duration = time.Since(start)
	if err != nil {
		return resp, fmt.Errorf("%w: %w", ErrCommandFailed, err)
	}
	defer httpResp.Body.Close()

	_, _ = io.Copy(io.Discard, io.LimitReader(httpResp.Body, drainLimit)) //nolint:errcheck // Body content is unused
	resp.StatusCode = httpResp.StatusCode

	return resp, nil
}
