// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package rtclite

// Default payload types.
const (
	DefaultVideoPayloadType = 102
	DefaultAudioPayloadType = 111
	DefaultRTXPayloadType   = 120
	DefaultFECPayloadType   = 49

	defaultStreamName = "live"
)

// Configuration defines the values a Server uses for every Connection.
type Configuration struct {
	// LocalAddress is the IP advertised in the host candidate and the
	// address sockets are bound to. Empty binds all interfaces and
	// advertises 127.0.0.1.
	LocalAddress string

	// Certificate is the DTLS identity. One is generated when nil.
	Certificate *Certificate

	// StreamName is used as cname and msid stream id.
	StreamName string

	VideoPayloadType uint8
	AudioPayloadType uint8
	RTXPayloadType   uint8
	FECPayloadType   uint8
}

func (c Configuration) withDefaults() Configuration {
	if c.StreamName == "" {
		c.StreamName = defaultStreamName
	}
	if c.VideoPayloadType == 0 {
		c.VideoPayloadType = DefaultVideoPayloadType
	}
	if c.AudioPayloadType == 0 {
		c.AudioPayloadType = DefaultAudioPayloadType
	}
	if c.RTXPayloadType == 0 {
		c.RTXPayloadType = DefaultRTXPayloadType
	}
	if c.FECPayloadType == 0 {
		c.FECPayloadType = DefaultFECPayloadType
	}

	return c
}

func (c Configuration) advertisedAddress() string {
	if c.LocalAddress == "" || c.LocalAddress == "0.0.0.0" {
		return "127.0.0.1"
	}

	return c.LocalAddress
}
