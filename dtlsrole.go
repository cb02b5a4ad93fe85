// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package rtclite

// DTLSRole indicates the role of the DTLS transport.
type DTLSRole byte

const (
	// DTLSRoleClient defines the DTLS client role. The connection starts the
	// handshake and advertises a=setup:active.
	DTLSRoleClient DTLSRole = iota + 1

	// DTLSRoleServer defines the DTLS server role. The connection waits for
	// the peer's ClientHello and advertises a=setup:passive.
	DTLSRoleServer
)

const unknownStr = "unknown"

func (r DTLSRole) String() string {
	switch r {
	case DTLSRoleClient:
		return "client"
	case DTLSRoleServer:
		return "server"
	default:
		return unknownStr
	}
}

// setupAttribute is the a=setup value for the role.
func (r DTLSRole) setupAttribute() string {
	if r == DTLSRoleClient {
		return "active"
	}

	return "passive"
}
