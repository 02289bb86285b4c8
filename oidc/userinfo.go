// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

// UserInfo holds the claims returned by the provider's user info endpoint.
// Which claims are present depends on the scopes the user consented to.
type UserInfo map[string]interface{}

// PostalAddress is the postal address returned for the address scope.
type PostalAddress struct {
	StreetAddress string
	Locality      string
	Region        string
	PostalCode    string
	Country       string
}

// Subject returns the "sub" claim, the user's stable identifier.
func (u UserInfo) Subject() string { return u.str("sub") }

// Email returns the "email" claim.
func (u UserInfo) Email() string { return u.str("email") }

// EmailVerified reports the "emailVerified" claim.
func (u UserInfo) EmailVerified() bool { return u.boolean("emailVerified") }

// GivenName returns the "givenName" claim.
func (u UserInfo) GivenName() string { return u.str("givenName") }

// FamilyName returns the "familyName" claim.
func (u UserInfo) FamilyName() string { return u.str("familyName") }

// PhoneNumber returns the "phoneNumber" claim.
func (u UserInfo) PhoneNumber() string { return u.str("phoneNumber") }

// PhoneNumberVerified reports the "phoneNumberVerified" claim.
func (u UserInfo) PhoneNumberVerified() bool { return u.boolean("phoneNumberVerified") }

// Address returns the user's address, or false when the claim is absent.
func (u UserInfo) Address() (PostalAddress, bool) {
	m, ok := u["address"].(map[string]interface{})
	if !ok {
		return PostalAddress{}, false
	}
	a := UserInfo(m)
	return PostalAddress{
		StreetAddress: a.str("streetAddress"),
		Locality:      a.str("locality"),
		Region:        a.str("region"),
		PostalCode:    a.str("postalCode"),
		Country:       a.str("country"),
	}, true
}

func (u UserInfo) str(k string) string {
	s, _ := u[k].(string)
	return s
}

func (u UserInfo) boolean(k string) bool {
	b, _ := u[k].(bool)
	return b
}
