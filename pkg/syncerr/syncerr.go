// Package syncerr defines the tagged exception taxonomy (C8) shared by
// every component of the sync engine. Every failure that can abort a sync
// run is represented as an *Error with a Kind and diagnostic context, so
// callers can branch on Kind instead of parsing messages — mirroring the
// teacher's ConflictError/AsConflict shape in pkg/client, generalised to a
// closed set of kinds instead of one single-purpose type.
package syncerr

import "fmt"

// Kind is the closed set of exception variants from spec.md §7.
type Kind string

const (
	// ConflictingChanges means both sides modified overlapping paths.
	ConflictingChanges Kind = "conflictingChanges"
	// ReadOnlyFilesChanged means a change touches a read-only remote path
	// or ancestor.
	ReadOnlyFilesChanged Kind = "readOnlyFilesChanged"
	// InvalidFilename means a proposed name fails platform validity.
	InvalidFilename Kind = "invalidFilename"
	// FileSystemCorrupted means an I/O error, unexpected absence, or bad
	// ancestor naming was observed.
	FileSystemCorrupted Kind = "fileSystemCorrupted"
	// ProjectDirMissing means the projectDir setting is unset.
	ProjectDirMissing Kind = "projectDirMissing"
	// NetworkError means a transport failure or non-2xx server response.
	NetworkError Kind = "networkError"
	// NotReady means C2 was asked to sign a request before a signer was
	// initialised — a programming error, fatal at process level.
	NotReady Kind = "notReady"
)

// Error is the concrete carrier for every Kind, with enough context to
// explain what went wrong without the caller needing to parse the text of
// Error().
type Error struct {
	Kind    Kind
	Path    string // the file or directory path implicated, if any
	Reason  string // free-form diagnostic detail
	Status  int    // HTTP status, for NetworkError
	Wrapped error  // underlying cause, if any
}

func (e *Error) Error() string {
	switch e.Kind {
	case ConflictingChanges:
		return "conflicting changes: both local and remote modified overlapping paths"
	case ReadOnlyFilesChanged:
		return fmt.Sprintf("read-only path changed: %s (%s)", e.Path, e.Reason)
	case InvalidFilename:
		return fmt.Sprintf("invalid filename: %s", e.Path)
	case FileSystemCorrupted:
		return fmt.Sprintf("filesystem corrupted at %s: %s", e.Path, e.Reason)
	case ProjectDirMissing:
		return "project directory is not configured"
	case NetworkError:
		if e.Status != 0 {
			return fmt.Sprintf("network error: status %d: %s", e.Status, e.Reason)
		}
		return fmt.Sprintf("network error: %s", e.Reason)
	case NotReady:
		return "signer not initialised"
	default:
		return fmt.Sprintf("sync error (%s): %s", e.Kind, e.Reason)
	}
}

func (e *Error) Unwrap() error { return e.Wrapped }

// Is reports whether target is a *syncerr.Error with the same Kind, so
// `errors.Is(err, &syncerr.Error{Kind: syncerr.ConflictingChanges})` works
// without requiring exact field equality.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New constructs a bare Error of the given kind.
func New(kind Kind, reason string) *Error {
	return &Error{Kind: kind, Reason: reason}
}

// WithPath attaches a path to the error and returns it, for chaining.
func (e *Error) WithPath(path string) *Error {
	e.Path = path
	return e
}

// Wrap constructs an Error of the given kind wrapping cause.
func Wrap(kind Kind, cause error, reason string) *Error {
	return &Error{Kind: kind, Reason: reason, Wrapped: cause}
}

// Conflicting constructs a ConflictingChanges error.
func Conflicting() *Error {
	return &Error{Kind: ConflictingChanges}
}

// ReadOnly constructs a ReadOnlyFilesChanged error for path.
func ReadOnly(path, reason string) *Error {
	return &Error{Kind: ReadOnlyFilesChanged, Path: path, Reason: reason}
}

// InvalidName constructs an InvalidFilename error for name.
func InvalidName(name string) *Error {
	return &Error{Kind: InvalidFilename, Path: name}
}

// Corrupted constructs a FileSystemCorrupted error for path.
func Corrupted(path, reason string) *Error {
	return &Error{Kind: FileSystemCorrupted, Path: path, Reason: reason}
}

// DirMissing constructs a ProjectDirMissing error.
func DirMissing() *Error {
	return &Error{Kind: ProjectDirMissing}
}

// Network constructs a NetworkError with an HTTP status (0 if none, e.g.
// a transport-level failure such as a timeout or DNS error).
func Network(status int, reason string) *Error {
	return &Error{Kind: NetworkError, Status: status, Reason: reason}
}

// Ready constructs a NotReady error — always a programming error.
func Ready() *Error {
	return &Error{Kind: NotReady}
}

// AsSyncError unwraps err into a *syncerr.Error if it is (or wraps) one.
func AsSyncError(err error) (*Error, bool) {
	se, ok := err.(*Error)
	if ok {
		return se, true
	}
	type unwrapper interface{ Unwrap() error }
	for u, ok := err.(unwrapper); ok; u, ok = err.(unwrapper) {
		err = u.Unwrap()
		if se, ok := err.(*Error); ok {
			return se, true
		}
	}
	return nil, false
}
