package types

import "fmt"

// ValidationError means a precondition failed before any remote call was
// made. The caller must fix the input; retrying is pointless.
type ValidationError struct {
	Detail string
}

func (e *ValidationError) Error() string { return e.Detail }

// CredentialError means a provider rejected the request because of a missing
// or invalid credential. It is surfaced distinctly so the caller can prompt
// for re-authentication instead of showing a generic failure.
type CredentialError struct {
	Provider string
	Detail   string
}

func (e *CredentialError) Error() string {
	return fmt.Sprintf("%s: invalid or missing API key: %s", e.Provider, e.Detail)
}

// GenerationError covers every other remote generation failure: network
// errors, provider-side errors, timeouts, malformed or payload-less
// responses.
type GenerationError struct {
	Provider string
	Detail   string
	Err      error
}

func (e *GenerationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Provider, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Detail)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// MergeError covers staging or transcoding failures during merge. No partial
// output is valid after one.
type MergeError struct {
	Detail string
	Err    error
}

func (e *MergeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("merge: %s: %v", e.Detail, e.Err)
	}
	return "merge: " + e.Detail
}

func (e *MergeError) Unwrap() error { return e.Err }
