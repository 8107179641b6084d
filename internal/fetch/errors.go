package fetch

import (
	"errors"
	"fmt"
)

// Kind classifies why a discovery step could not resolve a URL.
type Kind string

const (
	KindInvalidURL         Kind = "InvalidURL"
	KindUnreachable        Kind = "Unreachable"
	KindInvalidContentType Kind = "InvalidContentType"
	KindContentTooLarge    Kind = "ContentTooLarge"
	KindInvalidDocument    Kind = "InvalidDocument"
	KindInvalidGeoJSON     Kind = "InvalidGeoJSON"
	KindNoMatchingProtocol Kind = "NoMatchingProtocol"
)

// Sentinel errors for use with errors.Is.
var (
	ErrInvalidURL         = &Error{Kind: KindInvalidURL}
	ErrUnreachable        = &Error{Kind: KindUnreachable}
	ErrInvalidContentType = &Error{Kind: KindInvalidContentType}
	ErrContentTooLarge    = &Error{Kind: KindContentTooLarge}
	ErrInvalidDocument    = &Error{Kind: KindInvalidDocument}
	ErrInvalidGeoJSON     = &Error{Kind: KindInvalidGeoJSON}
	ErrNoMatchingProtocol = &Error{Kind: KindNoMatchingProtocol}
)

// Error is a classified discovery failure for a single URL.
type Error struct {
	Kind Kind
	URL  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	if e.URL == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.URL, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Err == nil && t.URL == "" && t.Kind == e.Kind
}

// Errorf builds a classified error.
func Errorf(kind Kind, rawURL string, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, URL: rawURL, Err: fmt.Errorf(format, args...)}
}

// Wrap classifies err unless it already carries a kind.
func Wrap(kind Kind, rawURL string, err error) error {
	if err == nil {
		return nil
	}
	var fe *Error
	if errors.As(err, &fe) {
		return err
	}
	return &Error{Kind: kind, URL: rawURL, Err: err}
}

// KindOf returns the kind carried by err, or an empty Kind.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}
