//go:build !unix

package main

import (
	"fmt"
	"os"
)

// the process image cannot be replaced here, so the user restarts
func reload(rootUrl string, version string) error {
	if err := checkReload(os.LookupEnv, version); err != nil {
		return err
	}
	return fmt.Errorf("%w: client %s is out of date for %s", ErrRestartRequired, version, rootUrl)
}
