package program

import (
	"fmt"
	"strings"

	"cosigner/internal/services"
)

// Variant names one of the two deployable program builds.
type Variant string

const (
	// Inert rejects relayed instructions. It is the resting state.
	Inert Variant = "inert"
	// Active accepts relayed instructions while a batch is processed.
	Active Variant = "active"
)

func (v Variant) String() string { return string(v) }

// Valid reports whether v is a known variant.
func (v Variant) Valid() bool {
	return v == Inert || v == Active
}

// legacyNames maps the artifact names older clients send.
var legacyNames = map[string]Variant{
	"dummy":    Inert,
	"transfer": Active,
}

// ParseVariant converts user input into a Variant.
func ParseVariant(value string) (Variant, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if legacy, ok := legacyNames[normalized]; ok {
		return legacy, nil
	}
	v := Variant(normalized)
	if !v.Valid() {
		return "", fmt.Errorf("%w: invalid program state %q (use inert or active)", services.ErrValidation, value)
	}
	return v, nil
}

// Artifact is the deployable file for one variant.
type Artifact struct {
	Variant Variant
	Path    string
}
