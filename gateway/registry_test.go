// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gateway_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tm "github.com/someonegg/transfermatch"
	"github.com/someonegg/transfermatch/gateway"
)

type connections map[tm.BuildingID]gateway.Modality

func (c connections) ConnectionModality(b tm.BuildingID) gateway.Modality { return c[b] }

func TestRegistry_Admissibility(t *testing.T) {
	conns := connections{
		100: gateway.Road,
		101: gateway.Rail,
		102: gateway.Sea,
		103: gateway.Air,
	}
	r := gateway.NewRegistry(conns)

	assert.True(t, r.IsAdmissibleOutgoing(1), "ordinary building")
	assert.True(t, r.IsAdmissibleIncoming(100), "road connection")
	assert.False(t, r.IsAdmissibleIncoming(101))
	assert.False(t, r.IsAdmissibleOutgoing(101))
	assert.False(t, r.IsAdmissibleOutgoing(102))
	assert.False(t, r.IsAdmissibleOutgoing(103))

	r.Register(7, gateway.Rail)
	assert.True(t, r.IsAdmissibleIncoming(101))
	assert.False(t, r.IsAdmissibleIncoming(102), "a rail terminal does not open the sea")

	r.Deregister(7)
	assert.False(t, r.IsAdmissibleIncoming(101))
}

func TestRegistry_Counts(t *testing.T) {
	r := gateway.NewRegistry(connections{})

	r.Register(1, gateway.Sea)
	r.Register(2, gateway.Sea)
	r.Register(2, gateway.Air)
	r.Register(3, gateway.NoModality)
	r.Register(0, gateway.Rail)

	assert.Equal(t, 1, r.Count(gateway.Sea))
	assert.Equal(t, 1, r.Count(gateway.Air))
	assert.Equal(t, 0, r.Count(gateway.Rail))

	r.Deregister(1)
	r.Deregister(1)
	assert.Equal(t, 0, r.Count(gateway.Sea))
}

func TestModality_Text(t *testing.T) {
	var m gateway.Modality
	require.NoError(t, m.UnmarshalText([]byte("Rail")))
	assert.Equal(t, gateway.Rail, m)
	assert.Error(t, m.UnmarshalText([]byte("teleport")))

	text, err := gateway.Air.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "air", string(text))
}
