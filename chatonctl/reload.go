package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bringyour/chaton/comet"
)

// set on the reloaded process to the client version that saw the mismatch
const ReloadEnv = "CHATON_RELOADED_VERSION"

var ErrRestartRequired = errors.New("restart required")

// a reload replaces the process with a fresh copy of the binary, which discards all client state.
// When the process was already reloaded for the same client version,
// the binary on disk was not updated and reloading again would loop.
func checkReload(lookupEnv func(string) (string, bool), version string) error {
	if reloadedVersion, ok := lookupEnv(ReloadEnv); ok && reloadedVersion == version {
		return fmt.Errorf("%w: client %s is still out of date after a reload", comet.ErrVersionMismatch, version)
	}
	return nil
}

func reloadEnv(environ []string, version string) []string {
	env := make([]string, 0, len(environ)+1)
	prefix := ReloadEnv + "="
	for _, kv := range environ {
		if strings.HasPrefix(kv, prefix) {
			continue
		}
		env = append(env, kv)
	}
	return append(env, prefix+version)
}
