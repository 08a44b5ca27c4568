/*
Package errs provides the application error type and its code table.

Codes identify a failure both in server logs and in what clients receive, whether that is
a REST error envelope or a WebSocket "error" event.
*/
package errs

// 1xxx: General request handling errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the request Content-Type is not supported.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates a malformed JSON body or frame.
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates trailing content after a valid JSON document.
	ErrExtraContentInBody = 1004

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1007
)

// 2xxx: Chat event errors
const (
	// ErrMessageContentTooLong indicates a message larger than the content limit.
	ErrMessageContentTooLong = 2201

	// ErrMessageContentEmpty indicates a message with no visible content.
	ErrMessageContentEmpty = 2202

	// ErrUnsupportedEvent indicates a client event name the relay does not handle.
	ErrUnsupportedEvent = 2203
)

// 3xxx: Security boundary errors
const (
	// ErrUnauthorized indicates a missing, malformed, tampered or expired bearer credential.
	ErrUnauthorized = 3001

	// ErrCrossOriginRejected indicates a request whose declared Origin is not trusted.
	ErrCrossOriginRejected = 3002
)

// 4xxx: External store errors
const (
	// ErrProfileResolution indicates the profile could not be read or created in time.
	ErrProfileResolution = 4001

	// ErrPersistence indicates a message could not be written to the store.
	ErrPersistence = 4002

	// ErrStorageUnavailable indicates avatar object storage is not configured or failed.
	ErrStorageUnavailable = 4003
)

// 5xxx: Internal system errors
const (
	// ErrUnknown represents an unclassified server error.
	ErrUnknown = 5000
)
