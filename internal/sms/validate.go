// Package sms validates outgoing text messages and delivers them through
// Twilio, either in-process or via the standalone relay service.
package sms

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxBodyLen is the longest body, in runes, that is sent. Longer bodies are
// truncated.
const MaxBodyLen = 100

var ErrInvalidArgument = errors.New("invalid argument")

var e164 = regexp.MustCompile(`^\+[0-9]{7,15}$`)

// ValidationError describes a rejected recipient or body.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidArgument
}

// Validate checks the recipient and body and returns the body that will be
// sent.
func Validate(to, body string) (string, error) {
	to = strings.TrimSpace(to)
	if to == "" {
		return "", &ValidationError{Field: "to", Message: "recipient is required"}
	}
	if !e164.MatchString(to) {
		return "", &ValidationError{Field: "to", Message: "recipient must be in E.164 format, e.g. +46701234567"}
	}

	body = strings.TrimSpace(body)
	if body == "" {
		return "", &ValidationError{Field: "body", Message: "body is required"}
	}
	if utf8.RuneCountInString(body) > MaxBodyLen {
		body = string([]rune(body)[:MaxBodyLen])
	}
	return body, nil
}
