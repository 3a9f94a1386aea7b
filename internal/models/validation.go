// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import (
	"net/mail"
	"regexp"
	"unicode/utf8"
)

const (
	UsernameMinLength = 3
	UsernameMaxLength = 20
	ContentMinLength  = 10
	ContentMaxLength  = 500
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidateUsername checks length and the allowed character set.
func ValidateUsername(username string) error {
	n := len(username)
	if n < UsernameMinLength || n > UsernameMaxLength || !usernamePattern.MatchString(username) {
		return ErrInvalidUsername
	}
	return nil
}

// ValidateEmail checks that email is a bare address.
func ValidateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return ErrInvalidEmail
	}
	return nil
}

// ValidateContent checks the message length in characters.
func ValidateContent(content string) error {
	n := utf8.RuneCountInString(content)
	if n < ContentMinLength || n > ContentMaxLength {
		return ErrInvalidContent
	}
	return nil
}
