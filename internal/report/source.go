// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Package report generates RTCP sender reports for outgoing tracks and
// parses the receiver feedback that comes back.
package report

import (
	"time"

	"github.com/pion/rtclite/internal/ntp"
	"github.com/pion/rtcp"
)

// Default sender report intervals.
const (
	DefaultAudioInterval = 5 * time.Second
	DefaultVideoInterval = time.Second
)

// Source accumulates send statistics for one SSRC and builds sender
// reports from them. It is used from the reactor goroutine only.
type Source struct {
	ssrc     uint32
	interval time.Duration

	ntpTime      ntp.Time64
	rtpTimestamp uint32
	packetCount  uint32
	octetCount   uint32

	lastReport time.Time
	now        func() time.Time
}

// SourceOption configures a Source.
type SourceOption func(*Source)

// WithInterval sets the minimum time between two sender reports.
func WithInterval(interval time.Duration) SourceOption {
	return func(s *Source) { s.interval = interval }
}

// WithNow overrides the clock used for interval gating.
func WithNow(now func() time.Time) SourceOption {
	return func(s *Source) { s.now = now }
}

// NewSource creates a Source for ssrc.
func NewSource(ssrc uint32, opts ...SourceOption) *Source {
	s := &Source{
		ssrc:     ssrc,
		interval: DefaultVideoInterval,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// SSRC returns the reported stream.
func (s *Source) SSRC() uint32 { return s.ssrc }

// OnSendRTP counts one sent packet of size bytes carrying timestamp.
func (s *Source) OnSendRTP(size int, timestamp uint32) {
	s.packetCount++
	s.octetCount += uint32(size) //nolint:gosec
	s.rtpTimestamp = timestamp
}

// SetNTPTime sets the wall clock time written into the next report.
func (s *Source) SetNTPTime(t ntp.Time64) {
	s.ntpTime = t
}

// BuildSenderReport returns a marshaled 28-byte sender report, or nil if no
// RTP has been sent yet or the interval has not elapsed since the last one.
func (s *Source) BuildSenderReport() []byte {
	if s.packetCount == 0 {
		return nil
	}
	now := s.now()
	if !s.lastReport.IsZero() && now.Sub(s.lastReport) < s.interval {
		return nil
	}

	raw, err := (&rtcp.SenderReport{
		SSRC:        s.ssrc,
		NTPTime:     uint64(s.ntpTime),
		RTPTime:     s.rtpTimestamp,
		PacketCount: s.packetCount,
		OctetCount:  s.octetCount,
	}).Marshal()
	if err != nil {
		return nil
	}
	s.lastReport = now

	return raw
}
