package domain

import (
	"fmt"
	"strings"
)

// Parse helpers convert external strings (API payloads, YAML documents,
// database rows) into typed enums. Matching is case-insensitive; stored
// values are always the canonical lowercase form.

// ParseShareType converts a string into a ShareType.
func ParseShareType(s string) (ShareType, error) {
	t := ShareType(strings.ToLower(s))
	if !t.IsValid() {
		return "", fmt.Errorf("unknown share type %q", s)
	}
	return t, nil
}

// ParsePreferenceType converts a string into a PreferenceType.
func ParsePreferenceType(s string) (PreferenceType, error) {
	p := PreferenceType(strings.ToLower(s))
	if !p.IsValid() {
		return "", fmt.Errorf("unknown preference type %q", s)
	}
	return p, nil
}

// ParseDividendType converts a string into a DividendType.
func ParseDividendType(s string) (DividendType, error) {
	d := DividendType(strings.ToLower(s))
	if !d.IsValid() {
		return "", fmt.Errorf("unknown dividend type %q", s)
	}
	return d, nil
}

// ParseGrantKind converts a string into a GrantKind.
func ParseGrantKind(s string) (GrantKind, error) {
	k := GrantKind(strings.ToLower(s))
	if !k.IsValid() {
		return "", fmt.Errorf("unknown grant kind %q", s)
	}
	return k, nil
}

// ParseBreakpointType converts a string into a BreakpointType.
func ParseBreakpointType(s string) (BreakpointType, error) {
	t := BreakpointType(strings.ToLower(s))
	if !t.IsValid() {
		return "", fmt.Errorf("unknown breakpoint type %q", s)
	}
	return t, nil
}

// ParseSeverity converts a string into a Severity.
func ParseSeverity(s string) (Severity, error) {
	v := Severity(strings.ToLower(s))
	if !v.IsValid() {
		return "", fmt.Errorf("unknown severity %q", s)
	}
	return v, nil
}
