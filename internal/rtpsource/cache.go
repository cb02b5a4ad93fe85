// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package rtpsource

import (
	"errors"
	"strconv"
)

const (
	uint16SizeHalf = 1 << 15

	// DefaultCacheSize is the number of packets kept for retransmission.
	DefaultCacheSize = 512
)

// ErrInvalidCacheSize is returned for cache sizes that are not a power of two.
var ErrInvalidCacheSize = errors.New("invalid retransmission cache size, must be a power of two up to " +
	strconv.Itoa(uint16SizeHalf))

// ValidCacheSize reports whether size can be used for a RetransmissionCache.
func ValidCacheSize(size uint16) bool {
	return size != 0 && size <= uint16SizeHalf && size&(size-1) == 0
}

// RetransmissionCache is a ring of the most recently sent packets, indexed by
// sequence number modulo its size.
type RetransmissionCache struct {
	packets   []*Packet
	size      uint16
	lastAdded uint16
	started   bool
}

// NewRetransmissionCache creates a cache holding size packets.
func NewRetransmissionCache(size uint16) (*RetransmissionCache, error) {
	if !ValidCacheSize(size) {
		return nil, ErrInvalidCacheSize
	}

	return &RetransmissionCache{
		packets: make([]*Packet, size),
		size:    size,
	}, nil
}

// Add stores packet, evicting the packet that occupied its slot.
func (c *RetransmissionCache) Add(packet *Packet) {
	seq := packet.SequenceNumber
	if !c.started {
		c.packets[seq%c.size] = packet
		c.lastAdded = seq
		c.started = true

		return
	}

	diff := seq - c.lastAdded
	if diff == 0 {
		return
	} else if diff < uint16SizeHalf {
		for i := c.lastAdded + 1; i != seq; i++ {
			c.packets[i%c.size] = nil
		}
		c.lastAdded = seq
	}

	c.packets[seq%c.size] = packet
}

// Get returns the packet sent with seq, or nil if it was never sent or has
// been evicted.
func (c *RetransmissionCache) Get(seq uint16) *Packet {
	diff := c.lastAdded - seq
	if !c.started || diff >= uint16SizeHalf || diff >= c.size {
		return nil
	}

	pkt := c.packets[seq%c.size]
	if pkt == nil || pkt.SequenceNumber != seq {
		return nil
	}

	return pkt
}
