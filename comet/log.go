package comet

import (
	"fmt"

	"github.com/golang/glog"
)

// Logging convention in the `comet` package:
// Info:
//     events for abnormal but handled behavior. This level should be silent on normal operation,
//     with the exception of one time initialization data that is useful for monitoring
//     this includes:
//     - connection lost and retry scheduling
//     - the unseen count chain terminating on a failure
//     - version mismatches
// Error:
//     recovered panics from sinks and callbacks
// Debug (V(1)):
//     per cycle events, tagged so they can be filtered
//     - [c] content loop
//     - [u] unseen count monitor
//     - [p] poster
//     - [n] nick store
// Trace (V(2)):
//     timing of one shot commands

const LogLevelDebug = glog.Level(1)
const LogLevelTrace = glog.Level(2)

type LogFunction func(string, ...any)

func LogFn(level glog.Level, tag string) LogFunction {
	return func(format string, a ...any) {
		if glog.V(level) {
			m := fmt.Sprintf(format, a...)
			glog.InfoDepth(1, fmt.Sprintf("%s %s", tag, m))
		}
	}
}
