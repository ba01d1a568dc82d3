package service

import "fmt"

// ErrorKind is the abstract error taxonomy the ingestion engine reports
// through. Internal callers branch on it to decide whether a failure is
// per-batch fatal or swallowed; HTTP handlers do not map it to a status
// code.
type ErrorKind string

const (
	KindAccessDenied     ErrorKind = "access_denied"
	KindNotFound         ErrorKind = "not_found"
	KindUpstreamError    ErrorKind = "upstream_error"
	KindNetworkError     ErrorKind = "network_error"
	KindValidationError  ErrorKind = "validation_error"
	KindUnauthorized     ErrorKind = "unauthorized"
	KindEmbeddingAPI     ErrorKind = "embedding_api_error"
	KindStoreError       ErrorKind = "store_error"
	KindBroadcastError   ErrorKind = "broadcast_error"
)

// IngestError wraps a cause with a taxonomy Kind so callers can make a
// recovery decision without inspecting error strings.
type IngestError struct {
	Kind  ErrorKind
	Op    string
	Cause error
}

func (e *IngestError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Cause)
}

func (e *IngestError) Unwrap() error { return e.Cause }

// newErr builds an *IngestError, wrapping cause (which may be nil).
func newErr(kind ErrorKind, op string, cause error) *IngestError {
	return &IngestError{Kind: kind, Op: op, Cause: cause}
}

// NewError builds an *IngestError for collaborator packages (extractor,
// titler, embedclient, repository, broadcaster) that need to classify their
// own failures into the shared taxonomy.
func NewError(kind ErrorKind, op string, cause error) *IngestError {
	return newErr(kind, op, cause)
}

// KindOf extracts the ErrorKind from err, if it (or something it wraps) is
// an *IngestError. Returns ("", false) otherwise.
func KindOf(err error) (ErrorKind, bool) {
	var ie *IngestError
	if asIngestError(err, &ie) {
		return ie.Kind, true
	}
	return "", false
}

func asIngestError(err error, target **IngestError) bool {
	for err != nil {
		if ie, ok := err.(*IngestError); ok {
			*target = ie
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
