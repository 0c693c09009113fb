package comet

import (
	"fmt"
)

// `{ver, nc, pos, refresh, text}`
type ContentResponse struct {
	Version   string `json:"ver"`
	UserCount int    `json:"nc"`
	Position  int64  `json:"pos"`
	Refresh   bool   `json:"refresh"`
	Text      string `json:"text"`
}

// true if everything rendered so far must be discarded before applying this response
func (self *ContentResponse) NeedsReset(position int64) bool {
	return self.Refresh || self.Position < position
}

func ConnectedStatus(userCount int) string {
	plural := ""
	if 1 < userCount {
		plural = "s"
	}
	return fmt.Sprintf("Connected (%d user%s chatting)", userCount, plural)
}

const ConnectionLostStatus = "Connection Lost.  Retrying..."
const ConnectingStatus = "Connecting..."
