// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package rtclite

import (
	"time"

	"github.com/pion/logging"
	"github.com/pion/randutil"
	"github.com/pion/rtclite/internal/report"
	"github.com/pion/rtclite/internal/rtpsource"
	"github.com/pion/transport/v4"
	"github.com/pion/transport/v4/stdnet"
)

const (
	defaultPortMin = 10000
	defaultPortMax = 65535

	iceUfragLength = 4
	icePwdLength   = 24
	runesAlpha     = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// SettingEngine allows influencing behavior of every Connection a Server
// creates. The zero value is usable.
type SettingEngine struct {
	ephemeralUDP struct {
		PortMin uint16
		PortMax uint16
		set     bool
	}
	credentials struct {
		UsernameFragment string
		Password         string
	}
	rtp struct {
		MaxPacketSize int
		NACKCacheSize uint16
		DisableRTX    bool
		DisableFEC    bool
		TransportCCID uint8
	}
	senderReport struct {
		AudioInterval time.Duration
		VideoInterval time.Duration
	}
	disableCertificateFingerprintVerification bool
	net                                       transport.Net
	rand                                      randutil.MathRandomGenerator
	LoggerFactory                             logging.LoggerFactory
}

// SetEphemeralUDPPortRange limits the pool of ports a Connection may bind.
// A range of 0-0 lets the operating system choose.
func (e *SettingEngine) SetEphemeralUDPPortRange(portMin, portMax uint16) error {
	if portMax < portMin {
		return ErrPort
	}

	e.ephemeralUDP.PortMin = portMin
	e.ephemeralUDP.PortMax = portMax
	e.ephemeralUDP.set = true

	return nil
}

// SetICECredentials sets a static uFrag/uPwd to be used by every Connection.
// Intended for tests, since the ufrag also keys the server registry.
func (e *SettingEngine) SetICECredentials(usernameFragment, password string) {
	e.credentials.UsernameFragment = usernameFragment
	e.credentials.Password = password
}

// SetMaxRTPPacketSize sets the largest RTP packet before SRTP protection.
func (e *SettingEngine) SetMaxRTPPacketSize(size int) {
	e.rtp.MaxPacketSize = size
}

// SetNACKCacheSize sets how many video packets are kept for retransmission.
// The size must be a power of two.
func (e *SettingEngine) SetNACKCacheSize(size uint16) error {
	if !rtpsource.ValidCacheSize(size) {
		return rtpsource.ErrInvalidCacheSize
	}
	e.rtp.NACKCacheSize = size

	return nil
}

// SetRetransmission enables or disables the video RTX stream.
func (e *SettingEngine) SetRetransmission(enabled bool) {
	e.rtp.DisableRTX = !enabled
}

// SetFEC enables or disables FlexFEC protection of video.
func (e *SettingEngine) SetFEC(enabled bool) {
	e.rtp.DisableFEC = !enabled
}

// SetTransportCCExtensionID enables the transport-wide sequence number
// header extension with the given id. Zero disables it.
func (e *SettingEngine) SetTransportCCExtensionID(id uint8) {
	e.rtp.TransportCCID = id
}

// SetSenderReportIntervals sets the minimum spacing of RTCP sender reports.
func (e *SettingEngine) SetSenderReportIntervals(audio, video time.Duration) {
	e.senderReport.AudioInterval = audio
	e.senderReport.VideoInterval = video
}

// DisableCertificateFingerprintVerification disables checking the DTLS peer
// certificate against the a=fingerprint of the remote description.
func (e *SettingEngine) DisableCertificateFingerprintVerification(isDisabled bool) {
	e.disableCertificateFingerprintVerification = isDisabled
}

// SetNet sets the network stack sockets are created from.
func (e *SettingEngine) SetNet(net transport.Net) {
	e.net = net
}

// SetRandomGenerator sets the source of ICE credentials, SSRCs and session
// ids.
func (e *SettingEngine) SetRandomGenerator(rng randutil.MathRandomGenerator) {
	e.rand = rng
}

func (e *SettingEngine) portRange() (uint16, uint16) {
	if !e.ephemeralUDP.set {
		return defaultPortMin, defaultPortMax
	}

	return e.ephemeralUDP.PortMin, e.ephemeralUDP.PortMax
}

func (e *SettingEngine) senderReportIntervals() (audio, video time.Duration) {
	audio, video = e.senderReport.AudioInterval, e.senderReport.VideoInterval
	if audio == 0 {
		audio = report.DefaultAudioInterval
	}
	if video == 0 {
		video = report.DefaultVideoInterval
	}

	return audio, video
}

func (e *SettingEngine) getLoggerFactory() logging.LoggerFactory {
	if e.LoggerFactory == nil {
		return logging.NewDefaultLoggerFactory()
	}

	return e.LoggerFactory
}

func (e *SettingEngine) getNet() (transport.Net, error) {
	if e.net != nil {
		return e.net, nil
	}

	return stdnet.NewNet()
}

func (e *SettingEngine) getRand() randutil.MathRandomGenerator {
	if e.rand == nil {
		return randutil.NewMathRandomGenerator()
	}

	return e.rand
}

func (e *SettingEngine) iceCredentials(rng randutil.MathRandomGenerator) (ufrag, pwd string) {
	ufrag, pwd = e.credentials.UsernameFragment, e.credentials.Password
	if ufrag == "" {
		ufrag = rng.GenerateString(iceUfragLength, runesAlpha)
	}
	if pwd == "" {
		pwd = rng.GenerateString(icePwdLength, runesAlpha)
	}

	return ufrag, pwd
}
