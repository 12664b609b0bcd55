// Copyright 2022 The marten Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package host

import (
	"sort"
	"sync"
)

const defaultDomain = "localhost"

// Hosts type represents all local domains set.
type Hosts struct {
	mu          sync.RWMutex
	defaultHost string
	hosts       map[string]struct{}
}

// Config contains local hosts configuration.
type Config struct {
	Domains []string `fig:"domains"`
}

// NewHosts creates and initializes a Hosts instance.
func NewHosts(cfg Config) *Hosts {
	hs := &Hosts{
		hosts: make(map[string]struct{}),
	}
	if len(cfg.Domains) == 0 {
		hs.RegisterDefaultHost(defaultDomain)
		return hs
	}
	for i, domain := range cfg.Domains {
		if i == 0 {
			hs.RegisterDefaultHost(domain)
		} else {
			hs.RegisterHost(domain)
		}
	}
	return hs
}

// RegisterDefaultHost registers default host value.
func (hs *Hosts) RegisterDefaultHost(h string) {
	hs.mu.Lock()
	defer hs.mu.Unlock()
	hs.defaultHost = h
	hs.hosts[h] = struct{}{}
}

// RegisterHost registers a host value.
func (hs *Hosts) RegisterHost(h string) {
	hs.mu.Lock()
	defer hs.mu.Unlock()
	hs.hosts[h] = struct{}{}
}

// DefaultHostName returns default host name value.
func (hs *Hosts) DefaultHostName() string {
	hs.mu.RLock()
	defer hs.mu.RUnlock()
	return hs.defaultHost
}

// IsLocalHost tells whether or not h value corresponds to a local host.
func (hs *Hosts) IsLocalHost(h string) bool {
	hs.mu.RLock()
	defer hs.mu.RUnlock()
	_, ok := hs.hosts[h]
	return ok
}

// HostNames returns the list of all registered local hosts.
func (hs *Hosts) HostNames() []string {
	hs.mu.RLock()
	defer hs.mu.RUnlock()
	var ret []string
	for n := range hs.hosts {
		ret = append(ret, n)
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i] < ret[j] })
	return ret
}
