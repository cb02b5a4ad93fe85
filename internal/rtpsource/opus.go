// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package rtpsource

import "github.com/pion/rtclite/internal/cursor"

const (
	// AudioClockRate is the RTP clock of Opus.
	AudioClockRate = 48000

	// DefaultOpusFrameSamples is used when a frame's TOC cannot be parsed.
	DefaultOpusFrameSamples = 480
)

// OpusSource sends every Opus frame as one RTP packet.
type OpusSource struct {
	*state

	timestamp uint32
}

// NewOpusSource creates an audio packetizer.
func NewOpusSource(cfg Config) (*OpusSource, error) {
	s, err := newState(cfg, "rtp")
	if err != nil {
		return nil, err
	}

	return &OpusSource{state: s, timestamp: cfg.InitialTimestamp}, nil
}

// InputFrame sends frame with marker set and advances the timestamp by the
// frame's duration.
func (s *OpusSource) InputFrame(frame []byte) {
	if len(frame) == 0 {
		return
	}

	s.mu.Lock()
	packets := s.packetize([][]byte{frame}, s.timestamp, true)
	s.timestamp += OpusFrameSamples(frame)
	s.mu.Unlock()

	s.deliver(packets)
}

// OpusFrameSamples returns the number of 48 kHz samples in an Opus packet
// from its TOC byte (RFC 6716 section 3.1).
func OpusFrameSamples(frame []byte) uint32 {
	r := cursor.NewReader(frame)
	toc, err := r.Uint8()
	if err != nil {
		return DefaultOpusFrameSamples
	}

	// Frame sizes in units of 2.5 ms (120 samples).
	var units uint32
	switch config := toc >> 3; {
	case config < 12:
		units = [...]uint32{4, 8, 16, 24}[config%4]
	case config < 16:
		units = [...]uint32{4, 8}[config%2]
	default:
		units = [...]uint32{1, 2, 4, 8}[config%4]
	}

	var frames uint32
	switch toc & 0x3 {
	case 0:
		frames = 1
	case 1, 2:
		frames = 2
	default:
		count, err := r.Uint8()
		if err != nil || count&0x3f == 0 {
			return DefaultOpusFrameSamples
		}
		frames = uint32(count & 0x3f)
	}

	return units * frames * 120
}
