// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package rtclite

// ConnectionState indicates the progress of a Connection.
type ConnectionState int32

const (
	// ConnectionStateCreated is the state of a Connection before Init.
	ConnectionStateCreated ConnectionState = iota

	// ConnectionStateAwaitingRemoteDescription indicates Init has run and the
	// local description is available.
	ConnectionStateAwaitingRemoteDescription

	// ConnectionStateListening indicates a DTLS server waiting for the
	// peer's first handshake flight.
	ConnectionStateListening

	// ConnectionStateConnecting indicates a DTLS client that has sent its
	// ClientHello.
	ConnectionStateConnecting

	// ConnectionStateHandshakeInProgress indicates DTLS records have been
	// received from the peer.
	ConnectionStateHandshakeInProgress

	// ConnectionStateEstablished indicates SRTP keys are installed and
	// media can flow.
	ConnectionStateEstablished

	// ConnectionStateDestroyed indicates the Connection has been closed.
	ConnectionStateDestroyed
)

func (s ConnectionState) String() string {
	switch s {
	case ConnectionStateCreated:
		return "created"
	case ConnectionStateAwaitingRemoteDescription:
		return "awaiting-remote-description"
	case ConnectionStateListening:
		return "listening"
	case ConnectionStateConnecting:
		return "connecting"
	case ConnectionStateHandshakeInProgress:
		return "handshake-in-progress"
	case ConnectionStateEstablished:
		return "established"
	case ConnectionStateDestroyed:
		return "destroyed"
	default:
		return unknownStr
	}
}
