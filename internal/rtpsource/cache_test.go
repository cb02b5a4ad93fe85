// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package rtpsource

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetransmissionCacheSize(t *testing.T) {
	for _, size := range []uint16{0, 3, 100, 1<<15 + 1} {
		_, err := NewRetransmissionCache(size)
		assert.ErrorIs(t, err, ErrInvalidCacheSize, "size %d", size)
	}
	for i := 0; i < 16; i++ {
		_, err := NewRetransmissionCache(1 << i)
		assert.NoError(t, err, "size %d", 1<<i)
	}
}

func TestRetransmissionCache(t *testing.T) {
	cache, err := NewRetransmissionCache(8)
	require.NoError(t, err)

	assert.Nil(t, cache.Get(0), "empty cache")

	add := func(seq uint16) {
		cache.Add(&Packet{SequenceNumber: seq})
	}
	assertGet := func(seq uint16, present bool) {
		t.Helper()
		pkt := cache.Get(seq)
		if present {
			require.NotNil(t, pkt, "seq %d", seq)
			assert.Equal(t, seq, pkt.SequenceNumber)
		} else {
			assert.Nil(t, pkt, "seq %d", seq)
		}
	}

	for seq := uint16(1); seq <= 20; seq++ {
		add(seq)
	}
	for seq := uint16(1); seq <= 12; seq++ {
		assertGet(seq, false)
	}
	for seq := uint16(13); seq <= 20; seq++ {
		assertGet(seq, true)
	}
	assertGet(21, false)

	// A gap clears the skipped slots.
	add(23)
	assertGet(21, false)
	assertGet(22, false)
	assertGet(23, true)
	assertGet(16, true)
	assertGet(15, false)

	// A late packet refills its slot without moving the window.
	add(22)
	assertGet(22, true)
	assertGet(23, true)
}

func TestRetransmissionCacheWraparound(t *testing.T) {
	cache, err := NewRetransmissionCache(4)
	require.NoError(t, err)

	for _, seq := range []uint16{65533, 65534, 65535, 0, 1} {
		cache.Add(&Packet{SequenceNumber: seq})
	}
	assert.Nil(t, cache.Get(65533))
	for _, seq := range []uint16{65534, 65535, 0, 1} {
		pkt := cache.Get(seq)
		require.NotNil(t, pkt, "seq %d", seq)
		assert.Equal(t, seq, pkt.SequenceNumber)
	}
}
