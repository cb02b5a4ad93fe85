// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package rtpsource

import (
	"errors"
	"time"

	"github.com/pion/rtclite/internal/cursor"
	"github.com/pion/rtclite/internal/h264"
	"golang.org/x/crypto/cryptobyte"
)

const (
	// VideoClockRate is the RTP clock of H.264.
	VideoClockRate = 90000

	fuaHeaderSize = 2
	fuaStartBit   = 0x80
	fuaEndBit     = 0x40
)

var errNoParameterSets = errors.New("rtpsource: no SPS/PPS cached")

// H264Source packetizes Annex-B access units per RFC 6184 using single NAL
// packets, STAP-A for parameter sets and FU-A for large NALs.
type H264Source struct {
	*state

	sps, pps []byte

	start            time.Time
	initialTimestamp uint32
}

// NewH264Source creates a video packetizer.
func NewH264Source(cfg Config) (*H264Source, error) {
	s, err := newState(cfg, "rtp")
	if err != nil {
		return nil, err
	}

	return &H264Source{
		state:            s,
		start:            s.now(),
		initialTimestamp: cfg.InitialTimestamp,
	}, nil
}

func (s *H264Source) timestamp() uint32 {
	elapsed := s.now().Sub(s.start)

	return s.initialTimestamp + uint32(elapsed*VideoClockRate/time.Second) //nolint:gosec
}

// InputFrame packetizes one access unit. SPS and PPS are cached and sent in
// one STAP-A ahead of the first IDR slice of the access unit.
func (s *H264Source) InputFrame(frame []byte) {
	s.mu.Lock()

	var (
		payloads      [][]byte
		parameterSets bool
	)
	for _, nal := range h264.Split(frame) {
		switch typ := h264.TypeOf(nal); typ {
		case h264.NalUnitTypeSPS:
			s.sps = append(s.sps[:0], nal...)
		case h264.NalUnitTypePPS:
			s.pps = append(s.pps[:0], nal...)
		case h264.NalUnitTypeCodedSliceIdr:
			if !parameterSets {
				parameterSets = true
				if stapA, err := s.stapA(); err == nil {
					payloads = append(payloads, stapA)
				} else {
					s.log.Warnf("IDR without cached parameter sets: %v", err)
				}
			}
			payloads = append(payloads, s.fragment(nal)...)
		case h264.NalUnitTypeCodedSliceNonIdr:
			payloads = append(payloads, s.fragment(nal)...)
		default:
			s.log.Tracef("dropping NAL %s", typ)
		}
	}

	var packets []*Packet
	if len(payloads) > 0 {
		packets = s.packetize(payloads, s.timestamp(), true)
	}
	s.mu.Unlock()

	s.deliver(packets)
}

// stapA aggregates the cached SPS and PPS, each prefixed with its 16-bit
// length.
func (s *H264Source) stapA() ([]byte, error) {
	if len(s.sps) == 0 || len(s.pps) == 0 {
		return nil, errNoParameterSets
	}

	var b cryptobyte.Builder
	b.AddUint8(h264.HeaderWithType(s.sps[0], h264.NalUnitTypeSTAPA))
	for _, nal := range [][]byte{s.sps, s.pps} {
		nal := nal
		b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) {
			b.AddBytes(nal)
		})
	}

	return b.Bytes()
}

// fragment returns nal as a single packet payload when it fits, otherwise
// as FU-A fragments of at most maxPayloadSize bytes each.
func (s *H264Source) fragment(nal []byte) [][]byte {
	if len(nal) <= s.maxPayloadSize {
		return [][]byte{append([]byte{}, nal...)}
	}

	indicator := h264.HeaderWithType(nal[0], h264.NalUnitTypeFUA)
	typ := byte(h264.TypeOf(nal))
	data := nal[1:]
	maxFragment := s.maxPayloadSize - fuaHeaderSize

	payloads := make([][]byte, 0, len(data)/maxFragment+1)
	for first := true; len(data) > 0; first = false {
		n := min(maxFragment, len(data))

		header := typ
		if first {
			header |= fuaStartBit
		}
		if n == len(data) {
			header |= fuaEndBit
		}

		w := cursor.NewWriter(fuaHeaderSize + n)
		_ = w.PutUint8(indicator)
		_ = w.PutUint8(header)
		_, _ = w.Write(data[:n])
		payloads = append(payloads, w.Bytes())

		data = data[n:]
	}

	return payloads
}
