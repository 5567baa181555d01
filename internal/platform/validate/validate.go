// Copyright (c) 2026 Parley. All rights reserved.
// Author: Parley Authors

// Package validate holds the account field rules (username format, password
// presence, public key size) and a small chainable Validator over them.
//
// Account operations answer with the message of the first failing field, so
// chains end with [Validator.First].
package validate

import (
	"regexp"
	"strings"

	"github.com/parley-chat/parley/internal/platform/apperr"
)

// Account field limits.
const (
	UsernameMinLen  = 3
	UsernameMaxLen  = 20
	PublicKeyMaxLen = 8 << 10
)

// Messages shared by the account rules.
const (
	MsgInvalidUsername  = "Username must be valid string between 3 and 20 characters and can only contain letters, numbers, and underscores"
	MsgInvalidPassword  = "Password must be valid string"
	MsgInvalidPublicKey = "Public key must be valid string"
)

var (
	usernameRegex = regexp.MustCompile(`^[A-Za-z0-9_]{3,20}$`)

	// ErrInvalidJSON is returned when the request body cannot be decoded.
	ErrInvalidJSON = apperr.BadRequest("Invalid JSON payload")
)

// IsUsername reports whether value is 3 to 20 ASCII letters, digits or underscores.
func IsUsername(value string) bool {
	return usernameRegex.MatchString(value)
}

// Validator accumulates failures in rule order. Use a fresh one per call.
type Validator struct {
	errs []apperr.FieldError
}

// Required fails if the trimmed value is empty.
func (v *Validator) Required(field, value, message string) *Validator {
	if strings.TrimSpace(value) == "" {
		v.add(field, message)
	}
	return v
}

// Username fails if value is not a valid account username.
func (v *Validator) Username(field, value string) *Validator {
	if !IsUsername(value) {
		v.add(field, MsgInvalidUsername)
	}
	return v
}

// Password fails on an empty password. Whitespace is a legal password character.
func (v *Validator) Password(field, value string) *Validator {
	if value == "" {
		v.add(field, MsgInvalidPassword)
	}
	return v
}

// PublicKey fails on a blank or oversized key blob.
func (v *Validator) PublicKey(field, value string) *Validator {
	if strings.TrimSpace(value) == "" || len(value) > PublicKeyMaxLen {
		v.add(field, MsgInvalidPublicKey)
	}
	return v
}

// Custom records message for field when failed is true, as in
// v.Custom("uid", uid <= 0, "Invalid user ID").
func (v *Validator) Custom(field string, failed bool, message string) *Validator {
	if failed {
		v.add(field, message)
	}
	return v
}

// First returns a BAD_REQUEST carrying the message of the first failed rule,
// or nil if all rules passed.
func (v *Validator) First() error {
	if len(v.errs) == 0 {
		return nil
	}
	first := v.errs[0]
	appError := apperr.BadRequest(first.Message)
	appError.Details = []apperr.FieldError{first}
	return appError
}

func (v *Validator) add(field, message string) {
	v.errs = append(v.errs, apperr.FieldError{Field: field, Message: message})
}
