// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package logistics

import (
	tm "github.com/someonegg/transfermatch"
	"github.com/someonegg/transfermatch/constraint"
	"github.com/someonegg/transfermatch/gateway"
)

func (s *Service) HomeOf(e tm.Endpoint) tm.BuildingID {
	return s.world.HomeBuilding(e)
}

// Admit checks the restrictions of both home buildings. Supply chain
// materials must in addition have a usable gateway at both ends and, when
// an outside connection takes part, stay within the concurrency limits.
// Those limits derive from the outside connection intensity, so purely
// local pairs are only recorded in the history, never throttled by it.
func (s *Service) Admit(m tm.Material, outgoing, incoming *tm.Offer) bool {
	outHome := s.world.HomeBuilding(outgoing.Endpoint)
	inHome := s.world.HomeBuilding(incoming.Endpoint)
	outOutside := s.isOutside(outHome)
	inOutside := s.isOutside(inHome)

	if outHome != 0 && !s.constraints.Admits(constraint.Output, outHome, inHome,
		s.world.HomeZone(incoming.Endpoint), inOutside) {
		return false
	}
	if inHome != 0 && !s.constraints.Admits(constraint.Input, inHome, outHome,
		s.world.HomeZone(outgoing.Endpoint), outOutside) {
		return false
	}

	switch m.Category() {
	case tm.PushService:
		return true
	case tm.PullSupplyChain:
		if !s.gateways.IsAdmissibleOutgoing(outHome) || !s.gateways.IsAdmissibleIncoming(inHome) {
			return false
		}
		if outOutside || inOutside {
			// incoming demand is the requester of a supply chain match
			return !s.history.IsRestricted(m, inHome, outHome)
		}
	}
	return true
}

func (s *Service) isOutside(b tm.BuildingID) bool {
	return b != 0 && s.world.ConnectionModality(b) != gateway.NoModality
}
