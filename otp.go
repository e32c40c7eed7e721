package vaultx

import (
	"regexp"
	"strings"
)

// OTPLength is the number of digits in a one-time passcode
const OTPLength = 6

var (
	digitsOnly = regexp.MustCompile(`^\d*$`)
	fullCode   = regexp.MustCompile(`^\d{6}$`)
)

// OTPCode is the six editable positions of a passcode.
// Each position is empty or a single digit.
type OTPCode [OTPLength]string

// Complete returns true if every position holds a digit
func (c OTPCode) Complete() bool {
	for _, d := range c {
		if d == "" {
			return false
		}
	}
	return true
}

// String joins the positions into the code sent to the server
func (c OTPCode) String() string {
	return strings.Join(c[:], "")
}

// OTPEntry is the state of the passcode entry widget: the code plus the
// position that currently has focus.
type OTPEntry struct {
	Code  OTPCode
	Focus int
}

// EnterDigit sets position i to value. value must be a single digit or empty
// (deletion); anything else is ignored and false is returned. Accepting a digit
// before the last position moves focus to the next one.
func (e *OTPEntry) EnterDigit(i int, value string) bool {
	if i < 0 || i >= OTPLength {
		return false
	}
	if len(value) > 1 || !digitsOnly.MatchString(value) {
		return false
	}
	e.Code[i] = value
	e.Focus = i
	if value != "" && i < OTPLength-1 {
		e.Focus = i + 1
	}
	return true
}

// Backspace handles a backspace key at position i. An empty position moves
// focus back to the previous one; a filled one is cleared.
func (e *OTPEntry) Backspace(i int) {
	if i < 0 || i >= OTPLength {
		return
	}
	if e.Code[i] == "" {
		if i > 0 {
			e.Focus = i - 1
		}
		return
	}
	e.Code[i] = ""
	e.Focus = i
}

// Paste overwrites the whole code if text (surrounding whitespace ignored) is
// exactly six digits. Otherwise the code is left untouched and false is returned.
func (e *OTPEntry) Paste(text string) bool {
	text = strings.TrimSpace(text)
	if !fullCode.MatchString(text) {
		return false
	}
	var code OTPCode
	for i, r := range text {
		code[i] = string(r)
	}
	e.Code = code
	e.Focus = OTPLength - 1
	return true
}

// Reset empties every position and focuses the first
func (e *OTPEntry) Reset() {
	e.Code = OTPCode{}
	e.Focus = 0
}
