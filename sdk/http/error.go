// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package http

import (
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
)

// Diagnostic response headers set by the provider.
const (
	HeaderIntuitTID = "intuit_tid"
	HeaderDate      = "Date"
)

// ResponseError is returned whenever the provider answers with a status
// outside of 2xx. It keeps everything needed to report the failure to
// provider support.
type ResponseError struct {
	StatusCode int
	Body       []byte
	Header     http.Header

	// IntuitTID is the provider's transaction id for the failed request.
	IntuitTID string

	// Date is the provider's timestamp for the failed request.
	Date string
}

// NewResponseError creates a ResponseError from resp and its already read
// body.
func NewResponseError(resp *http.Response, body []byte) *ResponseError {
	e := &ResponseError{
		Body:   body,
		Header: http.Header{},
	}
	if resp == nil {
		return e
	}
	e.StatusCode = resp.StatusCode
	if resp.Header != nil {
		e.Header = resp.Header.Clone()
		// intuit_tid is not a canonical header name, so look it up both ways
		e.IntuitTID = resp.Header.Get(HeaderIntuitTID)
		if e.IntuitTID == "" {
			if v := resp.Header[HeaderIntuitTID]; len(v) > 0 {
				e.IntuitTID = v[0]
			}
		}
		e.Date = resp.Header.Get(HeaderDate)
	}
	return e
}

// Error implements the error interface.
func (e *ResponseError) Error() string {
	return fmt.Sprintf("HTTP status %d, error message: %s, intuit_tid %s at time %s", e.StatusCode, e.Body, e.IntuitTID, e.Date)
}

// FromRetrieveError converts errors returned by golang.org/x/oauth2 token
// requests into a *ResponseError when the provider answered. Any other error
// is returned unchanged.
func FromRetrieveError(err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.Response != nil {
		return NewResponseError(re.Response, re.Body)
	}
	return err
}
