// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package mux

import (
	"testing"

	"github.com/pion/rtcp"
	"github.com/pion/rtp"
	"github.com/pion/stun/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	rtpPacket, err := (&rtp.Packet{
		Header:  rtp.Header{Version: 2, PayloadType: 102, SequenceNumber: 7, SSRC: 1},
		Payload: []byte{0x01, 0x02},
	}).Marshal()
	require.NoError(t, err)

	rtcpPacket, err := (&rtcp.ReceiverReport{SSRC: 1}).Marshal()
	require.NoError(t, err)

	stunPacket, err := stun.Build(stun.TransactionID, stun.BindingRequest)
	require.NoError(t, err)

	dtlsPacket := []byte{0x16, 0xfe, 0xfd, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0x10}

	for _, test := range []struct {
		name string
		buf  []byte
		kind PacketKind
	}{
		{"RTP", rtpPacket, PacketKindRTP},
		{"RTCP", rtcpPacket, PacketKindRTCP},
		{"STUN", stunPacket.Raw, PacketKindSTUN},
		{"DTLS", dtlsPacket, PacketKindDTLS},
		{"Empty", nil, PacketKindUnknown},
		{"Short RTP", rtpPacket[:11], PacketKindUnknown},
		{"Short DTLS", dtlsPacket[:12], PacketKindUnknown},
		{"STUN without cookie", append([]byte{0, 1, 0, 0, 0, 0, 0, 0}, make([]byte, 12)...), PacketKindUnknown},
		{"ZRTP range", append([]byte{16}, make([]byte, 20)...), PacketKindUnknown},
	} {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.kind, Classify(test.buf))
		})
	}
}

func TestClassifyRTCPPayloadTypeRange(t *testing.T) {
	buf := make([]byte, 12)
	buf[0] = 0x80
	for pt := 0; pt < 256; pt++ {
		buf[1] = byte(pt)
		if pt >= 192 && pt <= 223 {
			assert.Equal(t, PacketKindRTCP, Classify(buf), "pt %d", pt)
		} else {
			assert.Equal(t, PacketKindRTP, Classify(buf), "pt %d", pt)
		}
	}
}

func TestPacketKindString(t *testing.T) {
	assert.Equal(t, "rtp", PacketKindRTP.String())
	assert.Equal(t, "unknown", PacketKind(42).String())
}
