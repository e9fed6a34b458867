package utils

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/seenimoa/stockdash/pkg/models"
)

// DefaultMaxTickerLen bounds ticker length when no configuration is given.
const DefaultMaxTickerLen = 10

// ValidationKind classifies why a ticker was rejected.
type ValidationKind string

const (
	EmptyInput        ValidationKind = "EmptyInput"
	InvalidCharacters ValidationKind = "InvalidCharacters"
	TooLong           ValidationKind = "TooLong"
)

// Sentinels matched by errors.Is against a *ValidationError.
var (
	ErrEmptyInput        = errors.New("ticker is empty")
	ErrInvalidCharacters = errors.New("ticker contains invalid characters")
	ErrTooLong           = errors.New("ticker is too long")
)

// ValidationError is returned by ValidateTicker.
type ValidationError struct {
	Kind  ValidationKind
	Input string
	Max   int
}

func (e *ValidationError) Error() string {
	switch e.Kind {
	case EmptyInput:
		return "invalid ticker: empty input"
	case InvalidCharacters:
		return fmt.Sprintf("invalid ticker %q: only A-Z, 0-9, '.' and '-' are allowed", e.Input)
	case TooLong:
		return fmt.Sprintf("invalid ticker %q: longer than %d characters", e.Input, e.Max)
	}
	return fmt.Sprintf("invalid ticker %q", e.Input)
}

// Is lets errors.Is match the package sentinels.
func (e *ValidationError) Is(target error) bool {
	switch target {
	case ErrEmptyInput:
		return e.Kind == EmptyInput
	case ErrInvalidCharacters:
		return e.Kind == InvalidCharacters
	case ErrTooLong:
		return e.Kind == TooLong
	}
	return false
}

// NormalizeTicker trims whitespace and upper-cases a user-supplied symbol.
// e.g., " aapl " → "AAPL"
func NormalizeTicker(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// ValidateTicker checks a user-supplied symbol for syntactic plausibility.
// Checks run in order: empty, character set, length. maxLen <= 0 means
// DefaultMaxTickerLen. No network access.
func ValidateTicker(raw string, maxLen int) (models.Ticker, error) {
	if maxLen <= 0 {
		maxLen = DefaultMaxTickerLen
	}
	s := NormalizeTicker(raw)
	if s == "" {
		return "", &ValidationError{Kind: EmptyInput, Input: raw, Max: maxLen}
	}
	for _, r := range s {
		if !isTickerRune(r) {
			return "", &ValidationError{Kind: InvalidCharacters, Input: s, Max: maxLen}
		}
	}
	if utf8.RuneCountInString(s) > maxLen {
		return "", &ValidationError{Kind: TooLong, Input: s, Max: maxLen}
	}
	return models.Ticker(s), nil
}

func isTickerRune(r rune) bool {
	return (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '.' || r == '-'
}
