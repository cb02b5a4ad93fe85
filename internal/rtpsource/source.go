// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Package rtpsource packetizes encoded H.264 and Opus frames into RTP and
// answers retransmission requests for them.
package rtpsource

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pion/logging"
	"github.com/pion/rtclite/internal/cursor"
	"github.com/pion/rtclite/internal/fec"
	"github.com/pion/rtp"
)

const (
	// DefaultMaxPacketSize is the largest RTP packet, before SRTP adds its
	// authentication tag.
	DefaultMaxPacketSize = 1200

	rtxOSNSize = 2
)

var (
	errNoSendFunc      = errors.New("rtpsource: Send must be set")
	errPacketTooSmall  = errors.New("rtpsource: MaxPacketSize leaves no room for payload")
	errMissingRTXTypes = errors.New("rtpsource: RTX SSRC set without payload type")
)

// Source is implemented by every per-track packetizer.
type Source interface {
	// InputFrame packetizes one encoded frame and hands the packets to the
	// configured SendFunc.
	InputFrame(frame []byte)
	// RetransmitRTPPackets resends cached packets on the RTX stream.
	RetransmitRTPPackets(sequenceNumbers []uint16)
	// UpdateQoS reports the latest round trip time and loss percentage.
	UpdateQoS(rtt time.Duration, lossPercent uint32)
	SSRC() uint32
}

// TransportSequencer hands out session-wide transport sequence numbers for
// the transport-cc header extension.
type TransportSequencer struct {
	next atomic.Uint32
}

// Next returns the next transport sequence number.
func (t *TransportSequencer) Next() uint16 {
	return uint16(t.next.Add(1) - 1) //nolint:gosec
}

// Config describes one outgoing track.
type Config struct {
	SSRC          uint32
	PayloadType   uint8
	MaxPacketSize int

	// RTXSSRC enables retransmission when non-zero.
	RTXSSRC        uint32
	RTXPayloadType uint8
	CacheSize      uint16

	// FECSSRC enables FlexFEC when non-zero.
	FECSSRC        uint32
	FECPayloadType uint8

	// TransportCC adds the transport-wide sequence number extension with
	// TransportCCExtensionID to every packet when set.
	TransportCC            *TransportSequencer
	TransportCCExtensionID uint8

	// Sequencers default to random initial sequence numbers.
	Sequencer    rtp.Sequencer
	RTXSequencer rtp.Sequencer
	FECSequencer rtp.Sequencer

	// InitialTimestamp is the RTP timestamp of the first frame.
	InitialTimestamp uint32
	Now              func() time.Time

	Send          SendFunc
	LoggerFactory logging.LoggerFactory
}

// state is shared by the H.264 and Opus packetizers. The producer goroutine
// and the reactor's retransmit path both go through mu.
type state struct {
	mu sync.Mutex

	ssrc           uint32
	payloadType    uint8
	maxPayloadSize int
	sequencer      rtp.Sequencer

	rtxSSRC        uint32
	rtxPayloadType uint8
	rtxSequencer   rtp.Sequencer
	cache          *RetransmissionCache

	fec *fec.Encoder

	transportCC   *TransportSequencer
	transportCCID uint8

	smoothedRTT time.Duration

	now  func() time.Time
	send SendFunc
	log  logging.LeveledLogger
}

func newState(cfg Config, scope string) (*state, error) {
	if cfg.Send == nil {
		return nil, errNoSendFunc
	}
	if cfg.RTXSSRC != 0 && cfg.RTXPayloadType == 0 {
		return nil, errMissingRTXTypes
	}

	loggerFactory := cfg.LoggerFactory
	if loggerFactory == nil {
		loggerFactory = logging.NewDefaultLoggerFactory()
	}

	s := &state{
		ssrc:           cfg.SSRC,
		payloadType:    cfg.PayloadType,
		sequencer:      cfg.Sequencer,
		rtxSSRC:        cfg.RTXSSRC,
		rtxPayloadType: cfg.RTXPayloadType,
		rtxSequencer:   cfg.RTXSequencer,
		transportCC:    cfg.TransportCC,
		transportCCID:  cfg.TransportCCExtensionID,
		now:            cfg.Now,
		send:           cfg.Send,
		log:            loggerFactory.NewLogger(scope),
	}
	if s.sequencer == nil {
		s.sequencer = rtp.NewRandomSequencer()
	}
	if s.now == nil {
		s.now = time.Now
	}

	if s.rtxSSRC != 0 {
		if s.rtxSequencer == nil {
			s.rtxSequencer = rtp.NewRandomSequencer()
		}
		size := cfg.CacheSize
		if size == 0 {
			size = DefaultCacheSize
		}
		cache, err := NewRetransmissionCache(size)
		if err != nil {
			return nil, err
		}
		s.cache = cache
	}

	if cfg.FECSSRC != 0 {
		opts := []fec.Option{fec.WithLoggerFactory(loggerFactory)}
		if cfg.FECSequencer != nil {
			opts = append(opts, fec.WithSequencer(cfg.FECSequencer))
		}
		s.fec = fec.NewEncoder(cfg.FECPayloadType, cfg.FECSSRC, opts...)
	}

	maxPacketSize := cfg.MaxPacketSize
	if maxPacketSize == 0 {
		maxPacketSize = DefaultMaxPacketSize
	}
	header := rtp.Header{Version: 2}
	if s.transportCC != nil && s.transportCCID != 0 {
		ext, _ := rtp.TransportCCExtension{}.Marshal()
		_ = header.SetExtension(s.transportCCID, ext)
	}
	s.maxPayloadSize = maxPacketSize - header.MarshalSize()
	if s.rtxSSRC != 0 {
		s.maxPayloadSize -= rtxOSNSize
	}
	if s.maxPayloadSize < 3 {
		return nil, errPacketTooSmall
	}

	return s, nil
}

// SSRC returns the media SSRC of the track.
func (s *state) SSRC() uint32 { return s.ssrc }

// MaxPayloadSize is the largest payload of a single media packet.
func (s *state) MaxPayloadSize() int { return s.maxPayloadSize }

func (s *state) header(ssrc uint32, payloadType uint8, seq uint16, timestamp uint32, marker bool) rtp.Header {
	h := rtp.Header{
		Version:        2,
		Marker:         marker,
		PayloadType:    payloadType,
		SequenceNumber: seq,
		Timestamp:      timestamp,
		SSRC:           ssrc,
	}
	s.addTransportCC(&h)

	return h
}

func (s *state) addTransportCC(h *rtp.Header) {
	if s.transportCC == nil || s.transportCCID == 0 {
		return
	}
	ext, err := rtp.TransportCCExtension{TransportSequence: s.transportCC.Next()}.Marshal()
	if err != nil {
		return
	}
	if err := h.SetExtension(s.transportCCID, ext); err != nil {
		s.log.Warnf("failed to set transport-cc extension: %v", err)
	}
}

func marshal(h *rtp.Header, payload []byte, kind Kind) (*Packet, error) {
	raw := make([]byte, h.MarshalSize()+len(payload))
	n, err := h.MarshalTo(raw)
	if err != nil {
		return nil, err
	}
	copy(raw[n:], payload)

	return &Packet{
		SSRC:           h.SSRC,
		SequenceNumber: h.SequenceNumber,
		Timestamp:      h.Timestamp,
		Marker:         h.Marker,
		Kind:           kind,
		Raw:            raw,
		headerSize:     n,
	}, nil
}

// packetize builds one media packet per payload, all with timestamp. The
// marker is set on the last packet when markLast is true. Packets are cached
// for retransmission and fed to the FEC encoder. mu must be held.
func (s *state) packetize(payloads [][]byte, timestamp uint32, markLast bool) []*Packet {
	out := make([]*Packet, 0, len(payloads))
	for i, payload := range payloads {
		marker := markLast && i == len(payloads)-1
		h := s.header(s.ssrc, s.payloadType, s.sequencer.NextSequenceNumber(), timestamp, marker)
		pkt, err := marshal(&h, payload, KindMedia)
		if err != nil {
			s.log.Warnf("failed to marshal RTP packet: %v", err)

			continue
		}
		if s.cache != nil {
			s.cache.Add(pkt)
		}
		out = append(out, pkt)

		if s.fec != nil {
			out = append(out, s.protect(&rtp.Packet{Header: h, Payload: payload})...)
		}
	}

	return out
}

func (s *state) protect(media *rtp.Packet) []*Packet {
	var out []*Packet
	for _, fecPacket := range s.fec.Push(media) {
		fecPacket := fecPacket
		s.addTransportCC(&fecPacket.Header)
		pkt, err := marshal(&fecPacket.Header, fecPacket.Payload, KindRedundancy)
		if err != nil {
			s.log.Warnf("failed to marshal FEC packet: %v", err)

			continue
		}
		out = append(out, pkt)
	}

	return out
}

// RetransmitRTPPackets resends every cached packet in sequenceNumbers on the
// RTX stream. Evicted or unknown sequence numbers are skipped.
func (s *state) RetransmitRTPPackets(sequenceNumbers []uint16) {
	if s.cache == nil || len(sequenceNumbers) == 0 {
		return
	}

	s.mu.Lock()
	out := make([]*Packet, 0, len(sequenceNumbers))
	for _, seq := range sequenceNumbers {
		orig := s.cache.Get(seq)
		if orig == nil {
			s.log.Tracef("ssrc %d: seq %d not in retransmission cache", s.ssrc, seq)

			continue
		}

		payload := cursor.NewWriter(rtxOSNSize + len(orig.Payload()))
		_ = payload.PutUint16(orig.SequenceNumber)
		_, _ = payload.Write(orig.Payload())

		h := s.header(s.rtxSSRC, s.rtxPayloadType, s.rtxSequencer.NextSequenceNumber(), orig.Timestamp, orig.Marker)
		pkt, err := marshal(&h, payload.Bytes(), KindRetransmission)
		if err != nil {
			s.log.Warnf("failed to marshal RTX packet: %v", err)

			continue
		}
		out = append(out, pkt)
	}
	s.mu.Unlock()

	if len(out) > 0 {
		s.send(out)
	}
}

// UpdateQoS smooths the round trip time and passes the loss rate to the FEC
// encoder.
func (s *state) UpdateQoS(rtt time.Duration, lossPercent uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rtt > 0 {
		if s.smoothedRTT == 0 {
			s.smoothedRTT = rtt
		} else {
			s.smoothedRTT = (3*s.smoothedRTT + rtt) / 4
		}
	}
	if s.fec != nil {
		s.fec.UpdateLossRate(lossPercent)
	}
}

// SmoothedRTT returns the smoothed round trip time.
func (s *state) SmoothedRTT() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.smoothedRTT
}

func (s *state) deliver(packets []*Packet) {
	if len(packets) > 0 {
		s.send(packets)
	}
}
