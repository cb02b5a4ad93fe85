// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package rtclite

import (
	"testing"
	"time"

	"github.com/pion/randutil"
	"github.com/pion/transport/v4/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedRand replays fixed Uint32 values and falls back to a real
// generator for everything else.
type scriptedRand struct {
	randutil.MathRandomGenerator
	values []uint32
}

func (r *scriptedRand) Uint32() uint32 {
	if len(r.values) == 0 {
		return r.MathRandomGenerator.Uint32()
	}
	v := r.values[0]
	r.values = r.values[1:]

	return v
}

func TestSSRCAllocator(t *testing.T) {
	rng := &scriptedRand{
		MathRandomGenerator: randutil.NewMathRandomGenerator(),
		values:              []uint32{0, 7, 7, 0, 9, 7, 11},
	}
	ssrcs := newSSRCAllocator(rng)

	assert.Equal(t, uint32(7), ssrcs.next())
	assert.Equal(t, uint32(9), ssrcs.next())
	assert.Equal(t, uint32(11), ssrcs.next())
}

func TestConnectionLifecycle(t *testing.T) {
	lim := test.TimeOut(time.Second * 20)
	defer lim.Stop()

	report := test.CheckRoutines(t)
	defer report()

	srv := newTestServer(t, func(s *SettingEngine) {
		s.SetRetransmission(false)
		s.SetFEC(false)
	})

	c, err := srv.NewConnection(DTLSRoleServer)
	require.NoError(t, err)

	states := make(chan ConnectionState, 8)
	c.OnConnectionStateChange(func(state ConnectionState) { states <- state })

	assert.Equal(t, ConnectionStateAwaitingRemoteDescription, c.ConnectionState())
	assert.NotContains(t, c.LocalDescription(), "FID")
	assert.NotContains(t, c.LocalDescription(), "flexfec-03")
	assert.Empty(t, c.RemoteUfrag())

	assert.ErrorIs(t, c.SetRemoteDescription("not sdp"), ErrSessionDescriptionInvalid)
	assert.Equal(t, ConnectionStateAwaitingRemoteDescription, c.ConnectionState())

	require.NoError(t, c.SetRemoteDescription(browserOffer))
	select {
	case state := <-states:
		assert.Equal(t, ConnectionStateListening, state)
	case <-time.After(5 * time.Second):
		assert.Fail(t, "state change not delivered")
	}

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.Equal(t, ConnectionStateDestroyed, c.ConnectionState())
	assert.ErrorIs(t, c.SetRemoteDescription(browserOffer), ErrConnectionClosed)
	assert.ErrorIs(t, c.SendAudioFrame([]byte{0xf8, 0xff, 0xfe}), ErrConnectionNotEstablished)

	_, ok := srv.Connection(c.LocalUfrag())
	assert.False(t, ok)

	require.NoError(t, srv.Close())
}
