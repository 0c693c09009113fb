package comet

import (
	"strconv"
	"time"
)

const RequestTagModulus = 100

// read position in the content stream.
// `Position` is only ever assigned from a server response.
type Cursor struct {
	Position int64
	// cache busting only. wraps at `RequestTagModulus`.
	RequestTag int
}

// rotates the request tag and returns the cache busting token for the next request:
// the time in base 36 followed by the tag in base 36
func (self *Cursor) NextTag(now time.Time) string {
	self.RequestTag = (self.RequestTag + 1) % RequestTagModulus
	return strconv.FormatInt(now.UnixMilli(), 36) + strconv.FormatInt(int64(self.RequestTag), 36)
}

func (self *Cursor) Advance(position int64) {
	self.Position = position
}
