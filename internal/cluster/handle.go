// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

package cluster

import (
	"maps"
	"sync"
)

type State int

// Handle represents one attached test cluster. It is created by Manager.Setup only
// and must not be used after Manager.Teardown.
type Handle struct {
	// Name is the generated label the cluster is registered with
	Name        string
	Url         string
	Version     string
	ClusterId   string
	AccessToken string
	Variant     string
	Username    string

	env       map[string]string
	configDir string

	lock  sync.Mutex
	state State
}

const (
	StateUnprovisioned State = iota
	StateAttached
	StateTornDown
)

func (s State) String() string {
	switch s {
	case StateUnprovisioned:
		return "unprovisioned"
	case StateAttached:
		return "attached"
	case StateTornDown:
		return "torn-down"
	default:
		return "unknown"
	}
}

func (h *Handle) State() State {
	h.lock.Lock()
	defer h.lock.Unlock()

	return h.state
}

// Env returns a copy of the environment every client call against this cluster has to use.
func (h *Handle) Env() map[string]string {
	return maps.Clone(h.env)
}

// ConfigDir returns the isolated client config dir of this cluster or an empty string when not isolated.
func (h *Handle) ConfigDir() string {
	return h.configDir
}

// markTornDown transitions from attached to torn-down and reports whether the transition was legal.
func (h *Handle) markTornDown() (previous State, ok bool) {
	h.lock.Lock()
	defer h.lock.Unlock()

	previous = h.state
	if previous != StateAttached {
		return previous, false
	}
	h.state = StateTornDown
	return previous, true
}
