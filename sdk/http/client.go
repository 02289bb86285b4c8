// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package http

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"runtime"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/hashicorp/go-cleanhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Version of the client library, reported in the User-Agent header.
const Version = "1.2.6"

const tracerName = "github.com/intuit/oauth-goclient/sdk/http"

// Span attribute keys recorded for every outbound request.
const (
	AttrHTTPMethod     = "http.method"
	AttrHTTPEndpoint   = "http.endpoint"
	AttrHTTPStatusCode = "http.status_code"
)

var (
	ErrInvalidCertificatePem = errors.New("invalid certificate PEM")
	ErrNilRequest            = errors.New("nil request")
)

// UserAgent is sent with every request made by a client from NewClient.
var UserAgent = fmt.Sprintf("Intuit-OAuthClient-%s-Go-%s %s %s", Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)

// NewClient creates a new http client which will use the optional CA certificate PEM
// if provided, otherwise it will use the installed system CA chain. Requests
// sent with the client carry default Accept and User-Agent headers unless the
// caller already set them.
func NewClient(caPEM string) (*http.Client, error) {
	tr := cleanhttp.DefaultPooledTransport()

	if caPEM != "" {
		certPool := x509.NewCertPool()
		if ok := certPool.AppendCertsFromPEM([]byte(caPEM)); !ok {
			return nil, ErrInvalidCertificatePem
		}

		tr.TLSClientConfig = &tls.Config{
			RootCAs:    certPool,
			MinVersion: tls.VersionTLS12,
		}
	}

	return &http.Client{
		Transport: &headerTransport{base: tr},
	}, nil
}

// headerTransport adds the library's default headers to outbound requests.
type headerTransport struct {
	base http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("Accept") != "" && req.Header.Get("User-Agent") != "" {
		return t.base.RoundTrip(req)
	}
	// RoundTrippers must not modify the caller's request
	r := req.Clone(req.Context())
	if r.Header.Get("Accept") == "" {
		r.Header.Set("Accept", "application/json")
	}
	if r.Header.Get("User-Agent") == "" {
		r.Header.Set("User-Agent", UserAgent)
	}
	return t.base.RoundTrip(r)
}

// Response is a fully read http response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// JSON decodes the response body into v.
func (r *Response) JSON(v interface{}) error {
	const op = "Response.JSON"
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("%s: unable to decode response body: %w", op, err)
	}
	return nil
}

// Do sends the request using client and reads the entire response. Any
// response with a status outside of 2xx is returned as a *ResponseError.
func Do(ctx context.Context, client *http.Client, req *http.Request) (*Response, error) {
	const op = "http.Do"
	if req == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrNilRequest)
	}
	if client == nil {
		client = cleanhttp.DefaultClient()
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "HTTP "+req.Method)
	defer span.End()
	span.SetAttributes(
		attribute.String(AttrHTTPMethod, req.Method),
		attribute.String(AttrHTTPEndpoint, req.URL.Scheme+"://"+req.URL.Host+req.URL.Path),
	)

	resp, err := client.Do(req.WithContext(ctx))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return nil, fmt.Errorf("%s: request to %s failed: %w", op, req.URL.Host, err)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int(AttrHTTPStatusCode, resp.StatusCode))

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "unable to read response body")
		return nil, fmt.Errorf("%s: unable to read response body: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respErr := NewResponseError(resp, body)
		span.RecordError(respErr)
		span.SetStatus(codes.Error, http.StatusText(resp.StatusCode))
		return nil, respErr
	}
	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

// BasicAuth returns an Authorization header value for the client credentials.
func BasicAuth(clientID, clientSecret string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(clientID+":"+clientSecret))
}

// OidcClientContext is a helper function that returns a new Context that
// carries the provided HTTP client. This method sets the same context key used
// by the github.com/coreos/go-oidc and golang.org/x/oauth2 packages, so the
// returned context works for those packages as well.
func OidcClientContext(ctx context.Context, client *http.Client) context.Context {
	// simple to implement as a wrapper for the coreos package
	return oidc.ClientContext(ctx, client)
}
