package comet

import "errors"

// errors can be checked with errors.Is(err, ErrX)

// used for http transport
var (
	ErrStatus = errors.New("unexpected http status")
	ErrDecode = errors.New("malformed response body")
)

// used for the content loop
var (
	ErrVersionMismatch = errors.New("server version does not match client version")
)

// used for the unseen count
var (
	ErrCount = errors.New("count is not an integer")
)

// used for posts
var (
	ErrEmptyPost    = errors.New("nick and text are required")
	ErrPostInFlight = errors.New("a post is already in flight")
)

// used for the nick store
var (
	ErrNickStoreClosed = errors.New("nick store is closed")
)
