// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package qerrors defines the observable error kinds this optimizer
// and pipeline builder can return. Each kind wraps
// github.com/pkg/errors so callers keep stack traces through Wrap.
package qerrors

import "github.com/pkg/errors"

// Kind distinguishes the four observable error categories. Callers
// that need to branch on error kind (rather than just log/propagate
// it) use KindOf, not a type switch, since the concrete error type may
// be wrapped by intermediate callers via errors.Wrap.
type Kind int

const (
	// Internal marks an invariant violation: a bug in this module, not
	// a user-correctable condition (a side pipeline left pulling, an
	// empty predicate list reaching Filter, a bare Exchange reaching
	// the pipeline builder).
	Internal Kind = iota
	// TableEngineNotSupported marks a request the target table engine
	// cannot satisfy (for example _row_id on a non-supporting engine).
	TableEngineNotSupported
	// BadArguments marks a malformed request from the caller (for
	// example EXPLAIN MEMO issued against a non-query plan).
	BadArguments
	// UnresolvableConflict marks a MERGE INTO where two source rows
	// matched the same target row; fatal to the statement.
	UnresolvableConflict
)

func (k Kind) String() string {
	switch k {
	case Internal:
		return "Internal"
	case TableEngineNotSupported:
		return "TableEngineNotSupported"
	case BadArguments:
		return "BadArguments"
	case UnresolvableConflict:
		return "UnresolvableConflict"
	}
	return "Unknown"
}

// qerror is the concrete error type every constructor below produces.
type qerror struct {
	kind Kind
	msg  string
}

func (e *qerror) Error() string { return e.kind.String() + ": " + e.msg }

// New constructs an error of the given kind with a message, in the
// style of errors.New but kind-tagged so KindOf can recover it later.
func New(kind Kind, msg string) error {
	return errors.WithStack(&qerror{kind: kind, msg: msg})
}

// Newf is New with fmt.Sprintf-style formatting.
func Newf(kind Kind, format string, args ...interface{}) error {
	return errors.WithStack(&qerror{kind: kind, msg: sprintf(format, args...)})
}

// KindOf unwraps err (following errors.Unwrap/errors.Cause chains) to
// find the Kind it was constructed with. It returns (Internal, false)
// for an error that was never constructed via this package, since
// Internal is the correct default for "something went wrong that this
// package did not anticipate."
func KindOf(err error) (Kind, bool) {
	for err != nil {
		if qe, ok := err.(*qerror); ok {
			return qe.kind, true
		}
		if cause, ok := err.(interface{ Cause() error }); ok {
			err = cause.Cause()
			continue
		}
		if u, ok := err.(interface{ Unwrap() error }); ok {
			err = u.Unwrap()
			continue
		}
		break
	}
	return Internal, false
}

func sprintf(format string, args ...interface{}) string {
	return errors.Errorf(format, args...).Error()
}

// IsInternal, IsTableEngineNotSupported, IsBadArguments, and
// IsUnresolvableConflict are convenience predicates over KindOf, named
// after the four error kinds.
func IsInternal(err error) bool { k, ok := KindOf(err); return ok && k == Internal }
func IsTableEngineNotSupported(err error) bool {
	k, ok := KindOf(err)
	return ok && k == TableEngineNotSupported
}
func IsBadArguments(err error) bool { k, ok := KindOf(err); return ok && k == BadArguments }
func IsUnresolvableConflict(err error) bool {
	k, ok := KindOf(err)
	return ok && k == UnresolvableConflict
}
