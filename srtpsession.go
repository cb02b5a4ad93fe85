// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package rtclite

import (
	"github.com/pion/srtp/v3"
)

const (
	srtpProtectionProfile = srtp.ProtectionProfileAes128CmHmacSha1_80
	srtpReplayWindow      = 4096
	receiveMTU            = 1500
)

// srtpKeys is the half of the DTLS exported keying material each direction
// uses.
type srtpKeys struct {
	sendKey, sendSalt []byte
	recvKey, recvSalt []byte
}

// srtpSession protects outgoing and unprotects incoming RTP and RTCP. It is
// used from the reactor goroutine only.
type srtpSession struct {
	send *srtp.Context
	recv *srtp.Context

	rtpBuf  []byte
	rtcpBuf []byte
}

func newSRTPSession(keys srtpKeys) (*srtpSession, error) {
	opts := func() []srtp.ContextOption {
		return []srtp.ContextOption{
			srtp.SRTPReplayProtection(srtpReplayWindow),
			srtp.SRTCPReplayProtection(srtpReplayWindow),
		}
	}

	send, err := srtp.CreateContext(keys.sendKey, keys.sendSalt, srtpProtectionProfile, opts()...)
	if err != nil {
		return nil, err
	}
	recv, err := srtp.CreateContext(keys.recvKey, keys.recvSalt, srtpProtectionProfile, opts()...)
	if err != nil {
		return nil, err
	}

	return &srtpSession{
		send:    send,
		recv:    recv,
		rtpBuf:  make([]byte, 0, receiveMTU),
		rtcpBuf: make([]byte, 0, receiveMTU),
	}, nil
}

// ProtectRTP encrypts a marshaled RTP packet. The result is only valid until
// the next call.
func (s *srtpSession) ProtectRTP(packet []byte) ([]byte, error) {
	out, err := s.send.EncryptRTP(s.rtpBuf[:0], packet, nil)
	if err != nil {
		return nil, err
	}
	s.rtpBuf = out[:0]

	return out, nil
}

// ProtectRTCP encrypts a marshaled compound RTCP packet. The result is only
// valid until the next call.
func (s *srtpSession) ProtectRTCP(packet []byte) ([]byte, error) {
	out, err := s.send.EncryptRTCP(s.rtcpBuf[:0], packet, nil)
	if err != nil {
		return nil, err
	}
	s.rtcpBuf = out[:0]

	return out, nil
}

// UnprotectRTP authenticates and decrypts an SRTP packet into a new buffer.
func (s *srtpSession) UnprotectRTP(packet []byte) ([]byte, error) {
	return s.recv.DecryptRTP(nil, packet, nil)
}

// UnprotectRTCP authenticates and decrypts an SRTCP packet into a new buffer.
func (s *srtpSession) UnprotectRTCP(packet []byte) ([]byte, error) {
	return s.recv.DecryptRTCP(nil, packet, nil)
}
