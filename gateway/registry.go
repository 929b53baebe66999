// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package gateway tracks the cargo terminals that make outside connection
// traffic of each transport modality possible.
package gateway

import (
	"fmt"
	"strings"
	"sync"

	tm "github.com/someonegg/transfermatch"
)

type Modality uint8

const (
	NoModality Modality = iota
	Road
	Air
	Sea
	Rail

	modalityCount
)

var modalityNames = [modalityCount]string{"none", "road", "air", "sea", "rail"}

func (m Modality) String() string {
	if m >= modalityCount {
		return fmt.Sprintf("modality(%d)", uint8(m))
	}
	return modalityNames[m]
}

func ParseModality(s string) (Modality, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for m := NoModality; m < modalityCount; m++ {
		if modalityNames[m] == s {
			return m, nil
		}
	}
	return NoModality, fmt.Errorf("unknown modality %q", s)
}

func (m Modality) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *Modality) UnmarshalText(text []byte) error {
	v, err := ParseModality(string(text))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// needsTerminal reports whether outside traffic of m relies on a cargo
// terminal inside the city.
func (m Modality) needsTerminal() bool {
	return m == Air || m == Sea || m == Rail
}

// Classifier reports the modality of an outside connection building, or
// NoModality for any other building.
type Classifier interface {
	ConnectionModality(b tm.BuildingID) Modality
}

// Registry is safe for concurrent use.
type Registry struct {
	classifier Classifier

	mu       sync.RWMutex
	gateways map[tm.BuildingID]Modality
	counts   [modalityCount]int
}

func NewRegistry(classifier Classifier) *Registry {
	return &Registry{
		classifier: classifier,
		gateways:   make(map[tm.BuildingID]Modality),
	}
}

// Register records b as a cargo gateway of modality m. Registering again
// with another modality moves it.
func (r *Registry) Register(b tm.BuildingID, m Modality) {
	if b == 0 || m == NoModality || m >= modalityCount {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.gateways[b]; ok {
		r.counts[old]--
	}
	r.gateways[b] = m
	r.counts[m]++
}

func (r *Registry) Deregister(b tm.BuildingID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.gateways[b]; ok {
		r.counts[old]--
		delete(r.gateways, b)
	}
}

func (r *Registry) Count(m Modality) int {
	if m >= modalityCount {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.counts[m]
}

func (r *Registry) IsAdmissibleIncoming(b tm.BuildingID) bool {
	return r.admissible(b)
}

func (r *Registry) IsAdmissibleOutgoing(b tm.BuildingID) bool {
	return r.admissible(b)
}

// admissible is false only for an air, sea or rail outside connection while
// no gateway of its modality exists.
func (r *Registry) admissible(b tm.BuildingID) bool {
	m := r.classifier.ConnectionModality(b)
	if !m.needsTerminal() {
		return true
	}
	return r.Count(m) > 0
}
