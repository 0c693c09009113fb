package comet

import (
	"github.com/golang/glog"
)

// build version of the client. set with
// `-ldflags "-X github.com/bringyour/chaton/comet.Version=<version>"`
var Version = "0.0.0-local"

// a server reporting a different version has a different content shape than the one
// the cursor and rendered fragments were built against. the only recovery is a full reload.
type VersionGuard struct {
	version   string
	rootUrl   string
	navigator Navigator
	metrics   *Metrics

	tripped bool
}

func NewVersionGuard(version string, rootUrl string, navigator Navigator, metrics *Metrics) *VersionGuard {
	return &VersionGuard{
		version:   version,
		rootUrl:   rootUrl,
		navigator: navigator,
		metrics:   metrics,
	}
}

// returns false on a mismatch. the first mismatch navigates to the root url.
// once tripped the guard never passes again.
func (self *VersionGuard) Check(serverVersion string) bool {
	if self.tripped {
		return false
	}
	if serverVersion == self.version {
		return true
	}
	self.tripped = true
	self.metrics.VersionMismatches.Inc()
	glog.Infof("[c]version mismatch client=%s server=%s. reload %s\n", self.version, serverVersion, self.rootUrl)
	self.navigator.Navigate(self.rootUrl)
	return false
}
