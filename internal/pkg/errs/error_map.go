package errs

import "net/http"

// errorMap holds the template for every application error code.
// A zero Status is served as 400 Bad Request.
var errorMap = map[int]CustomError{
	// 1xxx
	ErrInvalidParams:        {Code: ErrInvalidParams, Message: "Invalid request parameters."},
	ErrUnsupportedMediaType: {Code: ErrUnsupportedMediaType, Message: "Unsupported request format.", Status: http.StatusUnsupportedMediaType},
	ErrInvalidJSONFormat:    {Code: ErrInvalidJSONFormat, Message: "Malformed JSON."},
	ErrExtraContentInBody:   {Code: ErrExtraContentInBody, Message: "Request contains unexpected data."},
	ErrRateLimitExceeded:    {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},

	// 2xxx
	ErrMessageContentTooLong: {Code: ErrMessageContentTooLong, Message: "Message is too long."},
	ErrMessageContentEmpty:   {Code: ErrMessageContentEmpty, Message: "Message is empty."},
	ErrUnsupportedEvent:      {Code: ErrUnsupportedEvent, Message: "Unsupported event: %s."},

	// 3xxx
	ErrUnauthorized:        {Code: ErrUnauthorized, Message: "Authentication failed.", Status: http.StatusUnauthorized},
	ErrCrossOriginRejected: {Code: ErrCrossOriginRejected, Message: "Origin not allowed.", Status: http.StatusForbidden},

	// 4xxx
	ErrProfileResolution:  {Code: ErrProfileResolution, Message: "Could not load your profile. Please reconnect.", Status: http.StatusServiceUnavailable},
	ErrPersistence:        {Code: ErrPersistence, Message: "Message was not saved. Please try again.", Status: http.StatusServiceUnavailable},
	ErrStorageUnavailable: {Code: ErrStorageUnavailable, Message: "Avatar storage is unavailable.", Status: http.StatusNotFound},

	// 5xxx
	ErrUnknown: {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
}
