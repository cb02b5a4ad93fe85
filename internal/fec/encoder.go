// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Package fec generates FlexFEC redundancy packets for a video track with a
// protection level that follows the reported loss rate.
package fec

import (
	"math"

	"github.com/pion/interceptor/pkg/flexfec"
	"github.com/pion/logging"
	"github.com/pion/rtp"
)

const (
	// MaxMediaPackets is the most media packets protected together. Frames
	// above it go unprotected.
	MaxMediaPackets = 48
	// MinMediaPackets triggers generation even if the frame is not complete.
	MinMediaPackets = 8

	lossSmoothing = 0.1
)

// Generator computes numFecPackets redundancy packets over mediaPackets.
// It is implemented by the pion/interceptor FlexFEC encoders.
type Generator interface {
	EncodeFec(mediaPackets []rtp.Packet, numFecPackets uint32) []rtp.Packet
}

// Option configures an Encoder.
type Option func(*Encoder)

// WithGenerator replaces the FlexFEC-03 generator.
func WithGenerator(g Generator) Option {
	return func(e *Encoder) { e.generator = g }
}

// WithSequencer sets the sequencer of the FEC stream.
func WithSequencer(s rtp.Sequencer) Option {
	return func(e *Encoder) { e.sequencer = s }
}

// WithLoggerFactory sets the logger factory.
func WithLoggerFactory(f logging.LoggerFactory) Option {
	return func(e *Encoder) { e.log = f.NewLogger("fec") }
}

// Encoder accumulates the media packets of one frame and emits redundancy
// packets on the FEC SSRC.
type Encoder struct {
	ssrc        uint32
	payloadType uint8
	generator   Generator
	sequencer   rtp.Sequencer

	media    []rtp.Packet
	overflow bool

	smoothedLossRate float64

	log logging.LeveledLogger
}

// NewEncoder creates an Encoder sending on ssrc with payloadType.
func NewEncoder(payloadType uint8, ssrc uint32, opts ...Option) *Encoder {
	e := &Encoder{
		ssrc:        ssrc,
		payloadType: payloadType,
		media:       make([]rtp.Packet, 0, MaxMediaPackets),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.generator == nil {
		e.generator = flexfec.NewFlexEncoder03(payloadType, ssrc)
	}
	if e.sequencer == nil {
		e.sequencer = rtp.NewRandomSequencer()
	}
	if e.log == nil {
		e.log = logging.NewDefaultLoggerFactory().NewLogger("fec")
	}

	return e
}

// UpdateLossRate folds a loss percentage (0-100) into the smoothed loss rate.
func (e *Encoder) UpdateLossRate(lossPercent uint32) {
	loss := math.Min(float64(lossPercent), 100)
	e.smoothedLossRate = (1-lossSmoothing)*e.smoothedLossRate + lossSmoothing*loss
}

// ProtectionFactor is the smoothed loss rate scaled to 0-255.
func (e *Encoder) ProtectionFactor() uint8 {
	return uint8(math.Min(e.smoothedLossRate*255/100, 255))
}

// numFecPackets mirrors the rounding of the libwebrtc ULPFEC/FlexFEC
// generators: at least one packet whenever protection is requested.
func numFecPackets(numMedia int, protectionFactor uint8) uint32 {
	n := (numMedia*int(protectionFactor) + (1 << 7)) >> 8
	if protectionFactor > 0 && n == 0 {
		n = 1
	}

	return uint32(n) //nolint:gosec
}

// Push adds one outgoing media packet. When the frame is complete, or
// MinMediaPackets have accumulated, redundancy packets are returned and the
// accumulated list is cleared.
func (e *Encoder) Push(pkt *rtp.Packet) []rtp.Packet {
	if len(e.media) < MaxMediaPackets {
		e.media = append(e.media, *pkt.Clone())
	} else {
		e.overflow = true
	}

	if !pkt.Marker && len(e.media) < MinMediaPackets {
		return nil
	}

	defer e.reset()

	if e.overflow {
		e.log.Debugf("frame exceeds %d packets, not protected", MaxMediaPackets)

		return nil
	}

	numFec := numFecPackets(len(e.media), e.ProtectionFactor())
	if numFec == 0 {
		return nil
	}

	fecPackets := e.generator.EncodeFec(e.media, numFec)
	if len(fecPackets) == 0 {
		return nil
	}
	timestamp := e.media[len(e.media)-1].Timestamp
	for i := range fecPackets {
		fecPackets[i].Header = rtp.Header{
			Version:        2,
			PayloadType:    e.payloadType,
			SequenceNumber: e.sequencer.NextSequenceNumber(),
			Timestamp:      timestamp,
			SSRC:           e.ssrc,
		}
	}

	return fecPackets
}

func (e *Encoder) reset() {
	e.media = e.media[:0]
	e.overflow = false
}
