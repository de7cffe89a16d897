package engine

import (
	"errors"
	"fmt"
	"strings"
)

// WriteFailure is a registry write that failed during rename propagation.
type WriteFailure struct {
	DocumentID string
	Err        error
}

// RenameError reports the writes that failed while propagating a rename.
// Writes to every other document were still attempted.
type RenameError struct {
	Failures []WriteFailure
}

func (e *RenameError) Error() string {
	return fmt.Sprintf("rename: %d document write(s) failed (%s): %v",
		len(e.Failures), strings.Join(e.FailedIDs(), ", "), errors.Join(e.Unwrap()...))
}

// Unwrap returns the underlying write errors.
func (e *RenameError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f.Err
	}
	return errs
}

// FailedIDs returns the IDs of documents whose write failed.
func (e *RenameError) FailedIDs() []string {
	ids := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		ids[i] = f.DocumentID
	}
	return ids
}
