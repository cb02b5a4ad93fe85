// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package report

import (
	"fmt"
	"time"

	"github.com/pion/logging"
	"github.com/pion/rtclite/internal/ntp"
	"github.com/pion/rtcp"
)

// maxSenderReports bounds how many sent reports are remembered for RTT.
const maxSenderReports = 20

// ReceptionStats is one receiver report block about a stream we send.
type ReceptionStats struct {
	SSRC           uint32
	FractionLost   uint8
	TotalLost      uint32
	Jitter         uint32
	RTT            time.Duration
	HasRTT         bool
	LastSequenceNo uint32
}

// LossPercent converts the 8-bit fraction lost to a percentage.
func (r ReceptionStats) LossPercent() uint32 {
	return uint32(r.FractionLost) * 100 / 256
}

// Feedback is what one inbound compound RTCP packet reported.
type Feedback struct {
	Reports []ReceptionStats
	// KeyFrameRequests lists media SSRCs that received PLI or FIR.
	KeyFrameRequests []uint32
	// Nacked counts sequence numbers queued by NACKs in this packet.
	Nacked int
}

type sentReport struct {
	compact ntp.Time32
	at      time.Time
}

// lostSequences is the pending NACK list of one SSRC. Each sequence number
// is queued at most once until it is taken.
type lostSequences struct {
	seqs    []uint16
	pending map[uint16]struct{}
}

func (l *lostSequences) add(seqs []uint16) int {
	added := 0
	for _, seq := range seqs {
		if _, ok := l.pending[seq]; ok {
			continue
		}
		l.pending[seq] = struct{}{}
		l.seqs = append(l.seqs, seq)
		added++
	}

	return added
}

// Sink parses receiver feedback. It is used from the reactor goroutine only.
// NACKs are only queued for SSRCs registered with Track.
type Sink struct {
	sent []sentReport
	lost map[uint32]*lostSequences

	now func() time.Time
	log logging.LeveledLogger
}

// NewSink creates a Sink.
func NewSink(loggerFactory logging.LoggerFactory) *Sink {
	if loggerFactory == nil {
		loggerFactory = logging.NewDefaultLoggerFactory()
	}

	return &Sink{
		lost: map[uint32]*lostSequences{},
		now:  time.Now,
		log:  loggerFactory.NewLogger("rtcp"),
	}
}

// Track queues NACKs for the given media SSRCs. NACKs for any other SSRC
// are dropped.
func (s *Sink) Track(ssrcs ...uint32) {
	for _, ssrc := range ssrcs {
		if _, ok := s.lost[ssrc]; !ok {
			s.lost[ssrc] = &lostSequences{pending: map[uint16]struct{}{}}
		}
	}
}

// RecordSenderReport remembers the compact NTP time of a sender report sent
// at the given wall time, so a later LSR echo can yield an RTT.
func (s *Sink) RecordSenderReport(compact ntp.Time32, at time.Time) {
	if len(s.sent) == maxSenderReports {
		s.sent = append(s.sent[:0], s.sent[1:]...)
	}
	s.sent = append(s.sent, sentReport{compact: compact, at: at})
}

func (s *Sink) sentAt(compact uint32) (time.Time, bool) {
	for i := len(s.sent) - 1; i >= 0; i-- {
		if uint32(s.sent[i].compact) == compact {
			return s.sent[i].at, true
		}
	}

	return time.Time{}, false
}

// Parse decodes a compound RTCP packet. NACKed sequence numbers are queued
// per media SSRC for TakeLostSequences.
func (s *Sink) Parse(buf []byte) (*Feedback, error) {
	packets, err := rtcp.Unmarshal(buf)
	if err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}

	now := s.now()
	feedback := &Feedback{}
	for _, packet := range packets {
		switch p := packet.(type) {
		case *rtcp.ReceiverReport:
			feedback.Reports = append(feedback.Reports, s.receptionStats(p.Reports, now)...)
		case *rtcp.SenderReport:
			feedback.Reports = append(feedback.Reports, s.receptionStats(p.Reports, now)...)
		case *rtcp.TransportLayerNack:
			lost, ok := s.lost[p.MediaSSRC]
			if !ok {
				s.log.Tracef("ignoring NACK for unknown SSRC %d", p.MediaSSRC)

				continue
			}
			for _, pair := range p.Nacks {
				feedback.Nacked += lost.add(pair.PacketList())
			}
		case *rtcp.PictureLossIndication:
			feedback.KeyFrameRequests = append(feedback.KeyFrameRequests, p.MediaSSRC)
		case *rtcp.FullIntraRequest:
			for _, entry := range p.FIR {
				feedback.KeyFrameRequests = append(feedback.KeyFrameRequests, entry.SSRC)
			}
		default:
			s.log.Tracef("ignoring RTCP %T", packet)
		}
	}

	return feedback, nil
}

func (s *Sink) receptionStats(blocks []rtcp.ReceptionReport, now time.Time) []ReceptionStats {
	stats := make([]ReceptionStats, 0, len(blocks))
	for _, block := range blocks {
		r := ReceptionStats{
			SSRC:           block.SSRC,
			FractionLost:   block.FractionLost,
			TotalLost:      block.TotalLost,
			Jitter:         block.Jitter,
			LastSequenceNo: block.LastSequenceNumber,
		}
		if block.LastSenderReport != 0 {
			if at, ok := s.sentAt(block.LastSenderReport); ok {
				rtt := now.Sub(at) - ntp.Time32(block.Delay).Duration()
				if rtt >= 0 {
					r.RTT = rtt
					r.HasRTT = true
				}
			}
		}
		stats = append(stats, r)
	}

	return stats
}

// TakeLostSequences returns and clears the sequence numbers NACKed for ssrc
// in the order they were first requested.
func (s *Sink) TakeLostSequences(ssrc uint32) []uint16 {
	lost, ok := s.lost[ssrc]
	if !ok || len(lost.seqs) == 0 {
		return nil
	}

	seqs := lost.seqs
	lost.seqs = nil
	clear(lost.pending)

	return seqs
}
