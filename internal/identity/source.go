// Package identity holds the source-independent user and role model and the
// pure policies applied to it.
package identity

import (
	"fmt"
	"strings"
)

// AuthSource names the upstream system that owns an identity.
type AuthSource string

const (
	SourceAuth    AuthSource = "auth"
	SourceAzureAD AuthSource = "azuread"
	SourceDelius  AuthSource = "delius"
	SourceNomis   AuthSource = "nomis"
	SourceNone    AuthSource = "none"
)

// SearchOrder is the order sources are tried when the caller names none.
var SearchOrder = []AuthSource{SourceAuth, SourceNomis, SourceAzureAD, SourceDelius}

// ParseAuthSource accepts a source name in any case.
func ParseAuthSource(s string) (AuthSource, error) {
	switch src := AuthSource(strings.ToLower(strings.TrimSpace(s))); src {
	case SourceAuth, SourceAzureAD, SourceDelius, SourceNomis, SourceNone:
		return src, nil
	default:
		return "", fmt.Errorf("unknown auth source %q", s)
	}
}
