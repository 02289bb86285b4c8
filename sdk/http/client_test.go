// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package http

import (
	"bytes"
	"context"
	"encoding/pem"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"golang.org/x/oauth2"
)

func TestNewClient(t *testing.T) {
	t.Parallel()
	t.Run("no-ca", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		c, err := NewClient("")
		require.NoError(err)
		assert.NotNil(c.Transport)
	})
	t.Run("bad-ca", func(t *testing.T) {
		require := require.New(t)
		_, err := NewClient("not a pem")
		require.Error(err)
		require.ErrorIs(err, ErrInvalidCertificatePem)
	})
	t.Run("tls-server-ca", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{}`))
		}))
		defer srv.Close()

		c, err := NewClient(testServerCA(t, srv))
		require.NoError(err)
		req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
		require.NoError(err)
		resp, err := Do(context.Background(), c, req)
		require.NoError(err)
		assert.Equal(http.StatusOK, resp.StatusCode)
	})
}

func TestDo(t *testing.T) {
	t.Parallel()
	var (
		mu                     sync.Mutex
		lastAccept, lastUAgent string
	)
	got := func() (string, string) {
		mu.Lock()
		defer mu.Unlock()
		return lastAccept, lastUAgent
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		lastAccept, lastUAgent = r.Header.Get("Accept"), r.Header.Get("User-Agent")
		mu.Unlock()
		switch r.URL.Path {
		case "/ok":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"answer":42}`))
		case "/created":
			w.WriteHeader(http.StatusCreated)
		default:
			w.Header().Set(HeaderIntuitTID, "tid-1234")
			w.Header().Set(HeaderDate, "Mon, 19 Oct 2026 10:00:00 GMT")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
		}
	}))
	defer srv.Close()
	c, err := NewClient("")
	require.NoError(t, err)

	t.Run("ok-with-default-headers", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		req, err := http.NewRequest(http.MethodGet, srv.URL+"/ok", nil)
		require.NoError(err)
		resp, err := Do(context.Background(), c, req)
		require.NoError(err)
		gotAccept, gotUserAgent := got()
		assert.Equal("application/json", gotAccept)
		assert.Equal(UserAgent, gotUserAgent)
		assert.True(strings.HasPrefix(gotUserAgent, "Intuit-OAuthClient-"+Version+"-Go-"))

		var body struct {
			Answer int `json:"answer"`
		}
		require.NoError(resp.JSON(&body))
		assert.Equal(42, body.Answer)
		// the caller's request is not modified by the transport
		assert.Empty(req.Header.Get("Accept"))
	})
	t.Run("caller-headers-win", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		req, err := http.NewRequest(http.MethodGet, srv.URL+"/ok", nil)
		require.NoError(err)
		req.Header.Set("Accept", "text/plain")
		_, err = Do(context.Background(), c, req)
		require.NoError(err)
		gotAccept, gotUserAgent := got()
		assert.Equal("text/plain", gotAccept)
		assert.Equal(UserAgent, gotUserAgent)
	})
	t.Run("2xx-is-success", func(t *testing.T) {
		require := require.New(t)
		req, err := http.NewRequest(http.MethodPost, srv.URL+"/created", nil)
		require.NoError(err)
		resp, err := Do(context.Background(), c, req)
		require.NoError(err)
		require.Equal(http.StatusCreated, resp.StatusCode)
	})
	t.Run("non-2xx", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		req, err := http.NewRequest(http.MethodGet, srv.URL+"/bad", nil)
		require.NoError(err)
		_, err = Do(context.Background(), c, req)
		require.Error(err)
		var respErr *ResponseError
		require.True(errors.As(err, &respErr))
		assert.Equal(http.StatusBadRequest, respErr.StatusCode)
		assert.Equal(`{"error":"invalid_grant"}`, string(respErr.Body))
		assert.Equal("tid-1234", respErr.IntuitTID)
		assert.Equal("Mon, 19 Oct 2026 10:00:00 GMT", respErr.Date)
		assert.Equal(`HTTP status 400, error message: {"error":"invalid_grant"}, intuit_tid tid-1234 at time Mon, 19 Oct 2026 10:00:00 GMT`, respErr.Error())
	})
	t.Run("nil-request", func(t *testing.T) {
		_, err := Do(context.Background(), c, nil)
		require.ErrorIs(t, err, ErrNilRequest)
	})
	t.Run("canceled", func(t *testing.T) {
		require := require.New(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		req, err := http.NewRequest(http.MethodGet, srv.URL+"/ok", nil)
		require.NoError(err)
		_, err = Do(ctx, c, req)
		require.ErrorIs(err, context.Canceled)
	})
}

func TestDo_Tracing(t *testing.T) {
	// not parallel: swaps the global tracer provider
	assert, require := assert.New(t), require.New(t)
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/userinfo", nil)
	require.NoError(err)
	_, err = Do(context.Background(), nil, req)
	require.Error(err)

	spans := sr.Ended()
	require.Len(spans, 1)
	assert.Equal("HTTP GET", spans[0].Name())
	attrs := map[attribute.Key]attribute.Value{}
	for _, kv := range spans[0].Attributes() {
		attrs[kv.Key] = kv.Value
	}
	assert.Equal(int64(http.StatusUnauthorized), attrs[AttrHTTPStatusCode].AsInt64())
	assert.Equal(srv.URL+"/userinfo", attrs[AttrHTTPEndpoint].AsString())
}

func TestBasicAuth(t *testing.T) {
	t.Parallel()
	// base64("client:secret")
	assert.Equal(t, "Basic Y2xpZW50OnNlY3JldA==", BasicAuth("client", "secret"))
}

func TestFromRetrieveError(t *testing.T) {
	t.Parallel()
	t.Run("retrieve-error", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		h := http.Header{}
		h.Set(HeaderIntuitTID, "tid-9")
		re := &oauth2.RetrieveError{
			Response: &http.Response{StatusCode: http.StatusUnauthorized, Header: h},
			Body:     []byte("nope"),
		}
		err := FromRetrieveError(re)
		var respErr *ResponseError
		require.True(errors.As(err, &respErr))
		assert.Equal(http.StatusUnauthorized, respErr.StatusCode)
		assert.Equal("nope", string(respErr.Body))
		assert.Equal("tid-9", respErr.IntuitTID)
	})
	t.Run("other-error", func(t *testing.T) {
		other := errors.New("dial tcp: refused")
		assert.Equal(t, other, FromRetrieveError(other))
	})
}

func testServerCA(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	var buf bytes.Buffer
	err := pem.Encode(&buf, &pem.Block{Type: "CERTIFICATE", Bytes: srv.Certificate().Raw})
	require.NoError(t, err)
	return buf.String()
}
