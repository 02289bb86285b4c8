// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package jwt

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// DecodeSegment decodes a base64url token segment. Padding is optional on the
// wire: any trailing "=" is removed and the segment is re-padded to a multiple
// of 4 before decoding, so padded and unpadded forms decode identically.
func DecodeSegment(seg string) ([]byte, error) {
	const op = "jwt.DecodeSegment"
	b, err := base64.URLEncoding.DecodeString(correctPadding(seg))
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %s", op, ErrMalformedToken, err)
	}
	return b, nil
}

// EncodeSegment encodes b as an unpadded base64url token segment.
func EncodeSegment(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

func correctPadding(seg string) string {
	seg = strings.TrimRight(seg, "=")
	if r := len(seg) % 4; r != 0 {
		seg += strings.Repeat("=", 4-r)
	}
	return seg
}

// decodeJSONSegment decodes seg and parses it as a single JSON object. Numbers
// are kept as json.Number.
func decodeJSONSegment(seg string) (map[string]interface{}, error) {
	const op = "jwt.decodeJSONSegment"
	raw, err := DecodeSegment(seg)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var m map[string]interface{}
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("%s: %w: %s", op, ErrMalformedToken, err)
	}
	if m == nil {
		return nil, fmt.Errorf("%s: %w: segment is not a JSON object", op, ErrMalformedToken)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%s: %w: unexpected data after JSON object", op, ErrMalformedToken)
	}
	return m, nil
}
