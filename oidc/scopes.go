// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"fmt"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/intuit/oauth-goclient/oidc/internal/strutils"
)

// Scope is a scope the provider supports for OAuth 2.0 and OpenID Connect
// flows.
type Scope string

const (
	Profile    Scope = "profile"
	Email      Scope = "email"
	Phone      Scope = "phone"
	Address    Scope = "address"
	OpenID     Scope = oidc.ScopeOpenID
	Accounting Scope = "com.intuit.quickbooks.accounting"
	Payment    Scope = "com.intuit.quickbooks.payment"

	// Payroll scopes are only granted to allowlisted apps.
	Payroll             Scope = "com.intuit.quickbooks.payroll"
	PayrollTimetracking Scope = "com.intuit.quickbooks.payroll.timetracking"
	PayrollBenefits     Scope = "com.intuit.quickbooks.payroll.benefits"
	PayslipRead         Scope = "com.intuit.quickbooks.payroll.payslip.read"

	// IntuitName is used by migrated apps, which request "openid intuit_name
	// email" to skip the consent page.
	IntuitName Scope = "intuit_name"
)

// ScopesToString joins scopes into the space separated form used in requests.
// Duplicates are removed, keeping the first occurrence.
func ScopesToString(scopes []Scope) (string, error) {
	const op = "oidc.ScopesToString"
	s := make([]string, 0, len(scopes))
	for i, sc := range scopes {
		if strings.TrimSpace(string(sc)) == "" {
			return "", fmt.Errorf("%s: scope %d is empty: %w", op, i, ErrInvalidParameter)
		}
		s = append(s, string(sc))
	}
	return strings.Join(strutils.RemoveDuplicatesStable(s, false), " "), nil
}
