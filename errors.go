// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package rtclite

import (
	"errors"
)

var (
	// ErrConnectionClosed indicates an operation executed after the
	// connection has already been closed.
	ErrConnectionClosed = errors.New("connection closed")

	// ErrConnectionNotEstablished indicates media was sent before the DTLS
	// handshake completed.
	ErrConnectionNotEstablished = errors.New("connection not established")

	// ErrInvalidConnectionState indicates an operation that does not apply
	// to the current state, such as setting the remote description twice.
	ErrInvalidConnectionState = errors.New("invalid connection state")

	// ErrSessionDescriptionNoUfrag indicates a remote description without a
	// non-empty a=ice-ufrag.
	ErrSessionDescriptionNoUfrag = errors.New("session description has no ice-ufrag")

	// ErrSessionDescriptionInvalid wraps parse failures of a remote description.
	ErrSessionDescriptionInvalid = errors.New("invalid session description")

	// ErrFingerprintMismatch indicates the DTLS peer certificate does not
	// match the fingerprint of the remote description.
	ErrFingerprintMismatch = errors.New("remote certificate does not match fingerprint")

	// ErrNoRemoteCertificate indicates the DTLS peer sent no certificate.
	ErrNoRemoteCertificate = errors.New("no remote certificate")

	// ErrNoSRTPProtectionProfile indicates the DTLS handshake did not
	// negotiate AES128_CM_HMAC_SHA1_80.
	ErrNoSRTPProtectionProfile = errors.New("DTLS handshake did not negotiate an SRTP protection profile")

	// ErrPrivateKeyType indicates that a particular private key encryption
	// chosen to generate a certificate is not supported.
	ErrPrivateKeyType = errors.New("private key type not supported")

	// ErrPort indicates an invalid ephemeral UDP port range.
	ErrPort = errors.New("invalid port range")

	// ErrNoFreePort indicates no UDP port could be bound.
	ErrNoFreePort = errors.New("no free UDP port in range")

	// ErrUnknownConnection indicates a lookup for an unregistered ufrag.
	ErrUnknownConnection = errors.New("unknown connection")

	// ErrDuplicateUfrag indicates a ufrag that is already registered to
	// another connection.
	ErrDuplicateUfrag = errors.New("ufrag already registered")

	// ErrNoPeerAddress indicates a send before any remote address is known.
	ErrNoPeerAddress = errors.New("peer address unknown")

	errDTLSStateUnavailable = errors.New("DTLS connection state unavailable")
	errShortKeyingMaterial  = errors.New("exported keying material too short")
)
