// Package validation provides common validation utilities for configuration
// parameters across the logpipe library.
//
// The helpers return *errors.ValidationError values so constructors and
// Config.Validate methods report problems with consistent messages.
package validation
