// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package headerindex

import (
	"errors"
	"fmt"
)

// ErrorCode identifies a kind of error.
type ErrorCode int

// These constants are used to identify a specific RuleError.
const (
	// ErrDuplicateHeader indicates a header with the same hash already
	// exists in the index.
	ErrDuplicateHeader ErrorCode = iota

	// ErrOrphanHeader indicates the previous block of a header is not known
	// to the index.  Orphans are not buffered; the caller is expected to
	// fetch the parent and retry.
	ErrOrphanHeader

	// ErrInvalidGenesis indicates the first header added to an empty index
	// is not the genesis header of the configured network.
	ErrInvalidGenesis

	// ErrCorruptedStore indicates a header file whose length is not a
	// multiple of the record size, or a best chain that does not start at
	// the network genesis.
	ErrCorruptedStore

	// numErrorCodes is the maximum error code number used in tests.
	numErrorCodes
)

// Map of ErrorCode values back to their constant names for pretty printing.
var errorCodeStrings = map[ErrorCode]string{
	ErrDuplicateHeader: "ErrDuplicateHeader",
	ErrOrphanHeader:    "ErrOrphanHeader",
	ErrInvalidGenesis:  "ErrInvalidGenesis",
	ErrCorruptedStore:  "ErrCorruptedStore",
}

// String returns the ErrorCode as a human-readable name.
func (e ErrorCode) String() string {
	if s := errorCodeStrings[e]; s != "" {
		return s
	}
	return fmt.Sprintf("Unknown ErrorCode (%d)", int(e))
}

// RuleError identifies a rule violation.  It is used to indicate that
// processing of a header failed because it does not fit into the index.
// The caller can use type assertions to determine if a failure was
// specifically due to a rule violation and access the ErrorCode field to
// ascertain the specific reason for the rule violation.
type RuleError struct {
	ErrorCode   ErrorCode // Describes the kind of error
	Description string    // Human readable description of the issue
}

// Error satisfies the error interface and prints human-readable errors.
func (e RuleError) Error() string {
	return e.Description
}

// ruleError creates an RuleError given a set of arguments.
func ruleError(c ErrorCode, desc string) RuleError {
	return RuleError{ErrorCode: c, Description: desc}
}

// IsErrorCode returns whether or not the provided error is a rule error with
// the provided error code.  Wrapped errors are unwrapped.
func IsErrorCode(err error, c ErrorCode) bool {
	var rerr RuleError
	if errors.As(err, &rerr) {
		return rerr.ErrorCode == c
	}
	return false
}
