package main

import (
	"errors"
	"testing"

	"github.com/go-playground/assert/v2"

	"github.com/bringyour/chaton/comet"
)

func TestCheckReload(t *testing.T) {
	env := map[string]string{}
	lookupEnv := func(name string) (string, bool) {
		v, ok := env[name]
		return v, ok
	}

	assert.Equal(t, checkReload(lookupEnv, "v1"), nil)

	env[ReloadEnv] = "v0"
	assert.Equal(t, checkReload(lookupEnv, "v1"), nil)

	env[ReloadEnv] = "v1"
	assert.Equal(t, errors.Is(checkReload(lookupEnv, "v1"), comet.ErrVersionMismatch), true)
}

func TestReloadEnv(t *testing.T) {
	env := reloadEnv([]string{"HOME=/root", ReloadEnv + "=v0", "CHATON_ROOM=lobby"}, "v1")
	assert.Equal(t, env, []string{"HOME=/root", "CHATON_ROOM=lobby", ReloadEnv + "=v1"})
}

func TestReloadRefusesRepeat(t *testing.T) {
	t.Setenv(ReloadEnv, "v1")
	err := reload("http://chat.example/", "v1")
	assert.Equal(t, errors.Is(err, comet.ErrVersionMismatch), true)
}
