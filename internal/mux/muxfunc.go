// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package mux

import "github.com/pion/rtclite/internal/cursor"

// MatchFunc reports whether a datagram belongs to one protocol.
type MatchFunc func([]byte) bool

// MatchRange is a MatchFunc that accepts packets with the first byte in [lower..upper]
func MatchRange(lower, upper byte) MatchFunc {
	return func(buf []byte) bool {
		if len(buf) < 1 {
			return false
		}
		b := buf[0]

		return b >= lower && b <= upper
	}
}

// MatchFuncs as described in RFC7983
// https://tools.ietf.org/html/rfc7983
//              +----------------+
//              |        [0..3] -+--> forward to STUN
//              |                |
//              |      [20..63] -+--> forward to DTLS
//              |                |
//  packet -->  |    [128..191] -+--> forward to RTP/RTCP
//              +----------------+

// MatchDTLS is a MatchFunc that accepts packets with the first byte in [20..63]
// and at least a full DTLS record header.
func MatchDTLS(buf []byte) bool {
	return len(buf) >= dtlsRecordHeaderLength && MatchRange(20, 63)(buf)
}

// MatchSTUN is a MatchFunc that accepts packets carrying the STUN magic
// cookie at offset 4.
func MatchSTUN(buf []byte) bool {
	if len(buf) < stunHeaderLength || !MatchRange(0, 3)(buf) {
		return false
	}
	cookie, err := cursor.NewReader(buf).PeekUint32At(4)

	return err == nil && cookie == stunMagicCookie
}

func hasVersionBit(buf []byte) bool {
	return len(buf) >= 2 && buf[0]&0x80 != 0
}

func isRTCPPacketType(buf []byte) bool {
	return buf[1] >= 192 && buf[1] <= 223
}

// MatchRTP is a MatchFunc that only matches RTP and not RTCP
func MatchRTP(buf []byte) bool {
	return len(buf) >= rtpHeaderLength && hasVersionBit(buf) && !isRTCPPacketType(buf)
}

// MatchRTCP is a MatchFunc that only matches RTCP and not RTP
func MatchRTCP(buf []byte) bool {
	return len(buf) >= rtcpHeaderLength && hasVersionBit(buf) && isRTCPPacketType(buf)
}
