// Package repository stores staff accounts and their refresh tokens in
// MySQL.
package repository

import "errors"

var (
	// ErrNotFound is returned when no row matches.  Handlers translate it
	// into 401 on the auth endpoints.
	ErrNotFound = errors.New("not found")

	// ErrEmailExists is returned when a staff email is already registered.
	ErrEmailExists = errors.New("email already exists")
)
