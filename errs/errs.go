// Package errs defines the error taxonomy shared across xmlsaw. Producers
// attach one of these sentinels with errors.Mark; callers dispatch with
// errors.Is.
package errs

import "github.com/cockroachdb/errors"

var (
	// ErrNotFound indicates a missing input path, or a directory/archive
	// that contains no matching documents.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates an input that is neither a document, a
	// directory, nor an archive, or configuration that cannot be applied.
	ErrInvalidInput = errors.New("invalid input")

	// ErrCorruptInput indicates an archive that exists but cannot be opened.
	ErrCorruptInput = errors.New("corrupt input")

	// ErrSyntax indicates malformed markup encountered while parsing.
	ErrSyntax = errors.New("syntax error")

	// ErrStructural indicates a rebuild input with no resolvable top-level
	// element, or an unresolvable parent reference in strict mode.
	ErrStructural = errors.New("structural error")
)
