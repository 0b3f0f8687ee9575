package main

import (
	"errors"
	"fmt"
	"slices"
)

// ErrSessionTokenNotFound indicates the login response contained neither a
// session token, a CAPTCHA challenge, nor a recognizable error message.
var ErrSessionTokenNotFound = errors.New("no skype token in login response")

// ErrCaptchaUnresolved indicates the service issued a CAPTCHA challenge again
// after a solution was already submitted. Login is retried at most once with a
// solved challenge; a second challenge is terminal.
var ErrCaptchaUnresolved = errors.New("captcha challenge not accepted")

// MissingCredentialError is returned when a request is built against an
// endpoint that requires a credential the session has not captured yet.
// No network call is made.
type MissingCredentialError struct {
	Credential string
}

func (e *MissingCredentialError) Error() string {
	return fmt.Sprintf("missing credential: %s", e.Credential)
}

// UnknownEndpointError is returned when an operation name is not registered in
// the endpoint catalog. This is a programmer error, not a remote failure.
type UnknownEndpointError struct {
	Name string
}

func (e *UnknownEndpointError) Error() string {
	return fmt.Sprintf("unknown endpoint: %s", e.Name)
}

// MalformedEndpointUsageError is returned when the number of positional
// arguments does not match the number of placeholders in an endpoint URI.
type MalformedEndpointUsageError struct {
	URI  string
	Want int
	Got  int
}

func (e *MalformedEndpointUsageError) Error() string {
	return fmt.Sprintf("endpoint %q takes %d args, got %d", e.URI, e.Want, e.Got)
}

// LoginRejectedError carries the error text the login page displayed, one
// message per line.
type LoginRejectedError struct {
	Message string
}

func (e *LoginRejectedError) Error() string {
	return "login rejected: " + e.Message
}

// =============================================================================
// Fatal Errors
// =============================================================================

// FatalError represents an error that should stop the task immediately.
// These are typically billing/authentication issues where retrying won't help.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string {
	return e.Err.Error()
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// NewFatalError wraps an error as fatal.
func NewFatalError(err error) error {
	return &FatalError{Err: err}
}

// IsFatalError checks if the error is a fatal error that should stop the task.
func IsFatalError(err error) bool {
	if err == nil {
		return false
	}
	var fe *FatalError
	return errors.As(err, &fe)
}

// fatalCaptchaCodes are solver API error codes where retrying won't help.
var fatalCaptchaCodes = []string{
	"ERROR_ZERO_BALANCE",
	"ERROR_KEY_DOES_NOT_EXIST",
	"ERROR_WRONG_USER_KEY",
	"ERROR_IP_NOT_ALLOWED",
	"ERROR_IP_BANNED",
}

func isFatalCaptchaError(errorCode string) bool {
	return slices.Contains(fatalCaptchaCodes, errorCode)
}
