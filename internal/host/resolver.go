package host

import (
	"path/filepath"
	"slices"
	"strings"
)

// Registry is the process-wide, priority-ordered set of available script
// hosts. It is built once at startup; hosts whose availability probe fails
// are dropped entirely, so resolution never picks an unusable host.
type Registry struct {
	hosts []Host
}

// NewRegistry builds a registry from hosts in priority order, keeping those
// that pass the probe. A nil probe keeps every host.
func NewRegistry(hosts []Host, probe func(Host) bool) *Registry {
	r := &Registry{hosts: make([]Host, 0, len(hosts))}
	for _, h := range hosts {
		if probe == nil || probe(h) {
			r.hosts = append(r.hosts, h)
		}
	}
	return r
}

// Hosts returns the available hosts in priority order.
func (r *Registry) Hosts() []Host {
	return slices.Clone(r.hosts)
}

// Match is a resolved (host, entry file) pair.
type Match struct {
	Host Host
	File string // entry file name within the scanned directory
}

// Resolve picks the host and entry file for a job from the names of the
// regular files at the top level of its directory.
//
// Hosts are scanned in priority order and each host's extensions in
// declaration order, matching file extensions case-insensitively. A file
// named exactly "run.<ext>" is the immediate, final answer. Otherwise the
// first match seen across the whole scan is remembered and returned only if
// no later host/extension yields an exact run.* match. A job author who
// names their entry run.sh never hits ambiguity; one who deploys a single
// script of a supported type needs no convention at all.
//
// The second return is false when no file resolves; callers treat that as
// "this job has no runnable entry," not as an error.
func (r *Registry) Resolve(files []string) (Match, bool) {
	var secondary *Match
	for _, h := range r.hosts {
		for _, ext := range h.Extensions {
			for _, name := range files {
				if !strings.EqualFold(filepath.Ext(name), ext) {
					continue
				}
				if strings.EqualFold(name, "run"+ext) {
					return Match{Host: h, File: name}, true
				}
				if secondary == nil {
					secondary = &Match{Host: h, File: name}
				}
			}
		}
	}
	if secondary != nil {
		return *secondary, true
	}
	return Match{}, false
}
