package pipeline

import "fmt"

// FailureKind classifies a failed submission so the orchestrator can decide
// whether a degraded-payload retry has any chance of helping.
type FailureKind string

const (
	// PayloadTooLarge - the server rejected the request because of its size.
	PayloadTooLarge FailureKind = "payload_too_large"
	// ServerTimeout - the server gave up processing within its own budget.
	ServerTimeout FailureKind = "server_timeout"
	// ClientTimeout - the local wall-clock budget elapsed and the request was canceled.
	ClientTimeout FailureKind = "client_timeout"
	// NetworkUnavailable - transport-level failure, no response at all.
	NetworkUnavailable FailureKind = "network_unavailable"
	// InvalidResponseShape - a response arrived but does not carry the expected
	// recognition array.
	InvalidResponseShape FailureKind = "invalid_response_shape"
	// ServerRejected - any other non-success status.
	ServerRejected FailureKind = "server_rejected"
)

type (
	// UploadError is a failed submission to the recognition endpoint. Detail
	// carries the server's textual explanation when one was present.
	UploadError struct {
		Kind   FailureKind
		Status int
		Detail string
		Err    error
	}

	// CompressionError is a failure of the image-manipulation step. It exists
	// so a caller can never mistake "compression skipped" for "compression done".
	CompressionError struct {
		URI string
		Err error
	}
)

func (e *UploadError) Error() string {
	switch e.Kind {
	case PayloadTooLarge:
		return "The image is too large for the server to handle. Please take a photo with fewer food items or from a different angle."
	case ServerTimeout:
		return "The server took too long to process your image. Try using a clearer image with fewer food items."
	case ClientTimeout:
		return "The request timed out. Please check your internet connection and try again."
	case NetworkUnavailable:
		return "Network connection error. Please check your internet connection and try again."
	case InvalidResponseShape:
		return "Received invalid data format from server."
	}
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("Upload failed (Status: %d)", e.Status)
}

func (e *UploadError) Unwrap() error { return e.Err }

// Retryable reports whether the failure indicates the payload itself was the
// problem, i.e. a recompressed retry could succeed. Transient network noise
// and protocol-level failures are not retried.
func (e *UploadError) Retryable() bool {
	return e.Kind == PayloadTooLarge || e.Kind == ServerTimeout
}

func (e *CompressionError) Error() string {
	return fmt.Sprintf("can not compress image %s: %v", e.URI, e.Err)
}

func (e *CompressionError) Unwrap() error { return e.Err }
