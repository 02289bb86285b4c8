// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package jwt_test

import (
	"context"
	"fmt"
	"log"

	"github.com/intuit/oauth-goclient/jwt"
)

func ExampleVerifier_Verify() {
	ctx := context.Background()

	keySet, err := jwt.NewJSONWebKeySet("your_jwks_url", "your_jwks_ca_pem")
	if err != nil {
		log.Fatal(err)
	}

	verifier, err := jwt.NewVerifier(keySet, jwt.WithSupportedAlgs(jwt.RS256))
	if err != nil {
		log.Fatal(err)
	}

	valid, err := verifier.Verify(ctx, "your_id_token", "your_client_id", "https://oauth.platform.intuit.com/op/v1")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(valid)
}

func ExampleNewJSONWebKeySet() {
	ctx := context.Background()

	keySet, err := jwt.NewJSONWebKeySet("your_jwks_url", "your_jwks_ca_pem")
	if err != nil {
		log.Fatal(err)
	}

	key, found, err := keySet.LookupKey(ctx, "your_kid")
	if err != nil {
		log.Fatal(err)
	}
	if found {
		fmt.Println(key.Algorithm)
	}
}

func ExampleNewPEMKeySet() {
	keySet, err := jwt.NewPEMKeySet(map[string]string{
		"your_kid": "your_public_key_pem",
	})
	if err != nil {
		log.Fatal(err)
	}

	verifier, err := jwt.NewVerifier(keySet, jwt.WithStrictKeyResolution())
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(verifier != nil)
}
