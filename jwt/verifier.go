// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package jwt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/hashicorp/go-hclog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const tracerName = "github.com/intuit/oauth-goclient/jwt"

// Verifier verifies id_tokens issued by a single trusted issuer. It holds no
// mutable state and is safe for concurrent use.
type Verifier struct {
	keySet        KeySet
	supportedAlgs map[Alg]bool
	now           func() time.Time
	strictKeys    bool
	logger        hclog.Logger
}

// NewVerifier creates a Verifier which resolves signing keys from keySet.
//
// Supported options: WithNow, WithLogger, WithStrictKeyResolution,
// WithSupportedAlgs
func NewVerifier(keySet KeySet, opt ...Option) (*Verifier, error) {
	const op = "jwt.NewVerifier"
	if keySet == nil {
		return nil, fmt.Errorf("%s: key set is nil: %w", op, ErrNilParameter)
	}
	opts := getVerifierOpts(opt...)
	if len(opts.withSupportedAlgs) == 0 {
		return nil, fmt.Errorf("%s: supported algorithms is empty: %w", op, ErrInvalidParameter)
	}
	if err := SupportedSigningAlgorithm(opts.withSupportedAlgs...); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	algs := make(map[Alg]bool, len(opts.withSupportedAlgs))
	for _, a := range opts.withSupportedAlgs {
		algs[a] = true
	}
	return &Verifier{
		keySet:        keySet,
		supportedAlgs: algs,
		now:           opts.withNow,
		strictKeys:    opts.withStrictKeyResolution,
		logger:        opts.withLogger,
	}, nil
}

// Verify reports whether token is a valid id_token for expectedClientID
// issued by expectedIssuer.
//
// Semantic rejections return false with a nil error: fewer than three
// segments, an "iss" other than expectedIssuer, a first "aud" other than
// expectedClientID, an "exp" at or before now, an unknown kid, or a bad
// signature. The claims are checked first and the key set is only consulted
// once they pass.
//
// An error is returned when a segment can't be decoded or parsed
// (ErrMalformedToken) or when the key set can't be read (ErrKeyResolution,
// which wraps the underlying *sdkhttp.ResponseError or context error).
func (v *Verifier) Verify(ctx context.Context, token, expectedClientID, expectedIssuer string) (bool, error) {
	const op = "Verifier.Verify"
	ctx, span := otel.Tracer(tracerName).Start(ctx, op)
	defer span.End()

	valid, err := v.verify(ctx, token, expectedClientID, expectedIssuer)
	span.SetAttributes(attribute.Bool("jwt.valid", valid))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "verification failed")
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return valid, nil
}

func (v *Verifier) verify(ctx context.Context, token, expectedClientID, expectedIssuer string) (bool, error) {
	parts := strings.Split(token, ".")
	if len(parts) < 3 {
		v.logger.Debug("rejecting token", "reason", "too few segments", "segments", len(parts))
		return false, nil
	}
	header, err := decodeJSONSegment(parts[0])
	if err != nil {
		return false, fmt.Errorf("header: %w", err)
	}
	payload, err := decodeJSONSegment(parts[1])
	if err != nil {
		return false, fmt.Errorf("payload: %w", err)
	}
	signature, err := DecodeSegment(parts[2])
	if err != nil {
		return false, fmt.Errorf("signature: %w", err)
	}

	if iss, _ := payload["iss"].(string); iss != expectedIssuer {
		v.logger.Debug("rejecting token", "reason", "issuer mismatch", "iss", iss)
		return false, nil
	}
	if aud, ok := firstAudience(payload["aud"]); !ok || aud != expectedClientID {
		v.logger.Debug("rejecting token", "reason", "audience mismatch", "aud", aud)
		return false, nil
	}
	exp, ok := numericDate(payload["exp"])
	if !ok {
		v.logger.Debug("rejecting token", "reason", "missing exp")
		return false, nil
	}
	if now := v.now().UTC().Unix(); exp <= float64(now) {
		v.logger.Debug("rejecting token", "reason", "expired", "exp", exp, "now", now)
		return false, nil
	}

	kid, _ := header["kid"].(string)
	alg, _ := header["alg"].(string)
	key, found, err := v.keySet.LookupKey(ctx, kid)
	switch {
	case err != nil:
		return false, fmt.Errorf("%w: kid %q: %w", ErrKeyResolution, kid, err)
	case !found && v.strictKeys:
		return false, fmt.Errorf("%w: %w: kid %q", ErrKeyResolution, ErrKeyNotFound, kid)
	case !found:
		v.logger.Debug("rejecting token", "reason", "unknown key", "kid", kid)
		return false, nil
	}

	if !v.supportedAlgs[Alg(alg)] {
		v.logger.Debug("rejecting token", "reason", "unsupported algorithm", "alg", alg)
		return false, nil
	}
	if key.Algorithm != "" && key.Algorithm != alg {
		v.logger.Debug("rejecting token", "reason", "algorithm does not match key", "alg", alg, "key_alg", key.Algorithm)
		return false, nil
	}
	method := gojwt.GetSigningMethod(alg)
	if method == nil {
		return false, nil
	}
	pub := key.Public()
	if !pub.Valid() {
		v.logger.Debug("rejecting token", "reason", "key is not a valid public key", "kid", kid)
		return false, nil
	}
	// the signing input is the original wire text, never a re-encoding
	if err := method.Verify(parts[0]+"."+parts[1], signature, pub.Key); err != nil {
		v.logger.Debug("rejecting token", "reason", "invalid signature", "kid", kid, "error", err)
		return false, nil
	}
	return true, nil
}

// firstAudience returns the first "aud" value. A single string is treated as
// a one element list.
func firstAudience(aud interface{}) (string, bool) {
	switch a := aud.(type) {
	case string:
		return a, true
	case []interface{}:
		if len(a) == 0 {
			return "", false
		}
		s, ok := a[0].(string)
		return s, ok
	default:
		return "", false
	}
}

// numericDate converts a JSON NumericDate claim to seconds since the epoch.
func numericDate(v interface{}) (float64, bool) {
	n, ok := v.(json.Number)
	if !ok {
		return 0, false
	}
	f, err := n.Float64()
	if err != nil {
		return 0, false
	}
	return f, true
}
