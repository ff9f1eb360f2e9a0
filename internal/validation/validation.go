package validation

import (
	"errors"
	"strings"
	"unicode"
)

// ErrMessageEmpty is returned when the chat message is empty or whitespace-only after trim.
var ErrMessageEmpty = errors.New("message is required")

// ErrMessageTooLong is returned when the message length exceeds the maximum.
var ErrMessageTooLong = errors.New("message too long")

// ErrMessageInvalidChars is returned when the message contains control characters
// other than tab and newline.
var ErrMessageInvalidChars = errors.New("message contains invalid characters")

// ValidateMessage trims the input, rejects empty input, enforces maxLen (in
// runes, 0 disables the bound) and rejects control characters other than
// newline, carriage return and tab. Returns the trimmed message.
func ValidateMessage(input string, maxLen int) (string, error) {
	s := strings.TrimSpace(input)
	r := []rune(s)
	n := len(r)
	if n == 0 {
		return "", ErrMessageEmpty
	}
	if maxLen > 0 && n > maxLen {
		return "", ErrMessageTooLong
	}
	for _, c := range r {
		if !isAllowedMessageRune(c) {
			return "", ErrMessageInvalidChars
		}
	}
	return s, nil
}

func isAllowedMessageRune(r rune) bool {
	switch r {
	case '\n', '\r', '\t':
		return true
	}
	return !unicode.IsControl(r)
}
