// SPDX-License-Identifier: AGPL-3.0-only
package errors

import (
	"fmt"
)

// NotFound creates a formatted "not found" error for a named resource.
func NotFound(resource, id string) error {
	return fmt.Errorf("%s not found: %s", resource, id)
}

// AlreadyExists creates a formatted "already exists" error for a named resource.
func AlreadyExists(resource, id string) error {
	return fmt.Errorf("%s already exists: %s", resource, id)
}

// InvalidInput creates a formatted "invalid input" error.
func InvalidInput(reason string) error {
	return fmt.Errorf("invalid input: %s", reason)
}

// Unsupported creates a formatted "unsupported" error for a named option value.
func Unsupported(option, value string) error {
	return fmt.Errorf("unsupported %s: %s", option, value)
}

// Internal creates a formatted "internal error" error.
func Internal(err error) error {
	return fmt.Errorf("internal error: %v", err)
}
