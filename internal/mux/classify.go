// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Package mux classifies datagrams that share one UDP socket between RTP,
// RTCP, STUN and DTLS.
package mux

const (
	rtpHeaderLength        = 12
	rtcpHeaderLength       = 4
	stunHeaderLength       = 20
	dtlsRecordHeaderLength = 13

	stunMagicCookie = 0x2112A442
)

// PacketKind is the protocol a datagram was classified as.
type PacketKind int

// PacketKind enums.
const (
	PacketKindUnknown PacketKind = iota
	PacketKindRTP
	PacketKindRTCP
	PacketKindSTUN
	PacketKindDTLS
)

func (k PacketKind) String() string {
	switch k {
	case PacketKindRTP:
		return "rtp"
	case PacketKindRTCP:
		return "rtcp"
	case PacketKindSTUN:
		return "stun"
	case PacketKindDTLS:
		return "dtls"
	default:
		return "unknown"
	}
}

type matcher struct {
	kind  PacketKind
	match MatchFunc
}

// Order matters: RTP is checked before RTCP, then STUN, then DTLS.
var matchers = []matcher{ //nolint:gochecknoglobals
	{PacketKindRTP, MatchRTP},
	{PacketKindRTCP, MatchRTCP},
	{PacketKindSTUN, MatchSTUN},
	{PacketKindDTLS, MatchDTLS},
}

// Classify returns the protocol of buf, or PacketKindUnknown when no
// matcher accepts it.
func Classify(buf []byte) PacketKind {
	for _, m := range matchers {
		if m.match(buf) {
			return m.kind
		}
	}

	return PacketKindUnknown
}
