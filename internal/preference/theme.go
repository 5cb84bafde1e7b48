// Package preference resolves the light/dark colour theme of a client.
package preference

import (
	"errors"
	"strings"
)

// Theme is a colour theme.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// ThemeKey is the preference key under which the theme is stored.
const ThemeKey = "theme"

// Where a resolved theme came from.
const (
	SourceStored  = "stored"
	SourceHint    = "hint"
	SourceDefault = "default"
)

// ErrInvalidTheme rejects anything but light or dark.
var ErrInvalidTheme = errors.New("theme must be light or dark")

// ParseTheme normalises a stored or submitted value.
func ParseTheme(raw string) (Theme, error) {
	switch Theme(strings.ToLower(strings.TrimSpace(raw))) {
	case ThemeLight:
		return ThemeLight, nil
	case ThemeDark:
		return ThemeDark, nil
	default:
		return "", ErrInvalidTheme
	}
}

// Toggle flips the theme.
func (t Theme) Toggle() Theme {
	if t == ThemeDark {
		return ThemeLight
	}
	return ThemeDark
}

// Resolve picks the stored theme, else the system hint, else light. Invalid
// values are ignored.
func Resolve(stored, hint string) (Theme, string) {
	if t, err := ParseTheme(stored); err == nil {
		return t, SourceStored
	}
	if t, err := ParseTheme(hint); err == nil {
		return t, SourceHint
	}
	return ThemeLight, SourceDefault
}
