//go:build unix

package main

import (
	"os"

	"github.com/golang/glog"
	"golang.org/x/sys/unix"
)

// does not return on success
func reload(rootUrl string, version string) error {
	if err := checkReload(os.LookupEnv, version); err != nil {
		return err
	}
	exe, err := os.Executable()
	if err != nil {
		return err
	}
	glog.Infof("[reload]%s version=%s\n", rootUrl, version)
	glog.Flush()
	return unix.Exec(exe, os.Args, reloadEnv(os.Environ(), version))
}
