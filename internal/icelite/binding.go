// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Package icelite implements the responder half of ICE-lite connectivity
// checks: parsing STUN binding requests and building binding responses.
package icelite

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/pion/rtclite/internal/cursor"
	"github.com/pion/stun/v3"
)

var (
	errNotBindingRequest = errors.New("icelite: not a binding request")
	errMalformedPriority = errors.New("icelite: malformed PRIORITY attribute")
	errMalformedUsername = errors.New("icelite: USERNAME is not remote:local")

	// ErrIntegrityMismatch is returned when a request's MESSAGE-INTEGRITY
	// does not verify with the local password.
	ErrIntegrityMismatch = errors.New("icelite: message integrity mismatch")
)

// BindingRequest is the subset of a STUN binding request the responder
// acts on.
type BindingRequest struct {
	TransactionID [stun.TransactionIDSize]byte
	// Username is the raw "local:remote" USERNAME from the requester's
	// point of view.
	Username     string
	Priority     uint32
	HasPriority  bool
	HasIntegrity bool
	UseCandidate bool

	msg *stun.Message
}

// ParseBindingRequest decodes buf as a STUN binding request. Unknown
// attributes are skipped.
func ParseBindingRequest(buf []byte) (*BindingRequest, error) {
	msg := &stun.Message{Raw: append([]byte{}, buf...)}
	if err := msg.Decode(); err != nil {
		return nil, fmt.Errorf("icelite: %w", err)
	}
	if msg.Type != stun.BindingRequest {
		return nil, errNotBindingRequest
	}

	req := &BindingRequest{
		TransactionID: msg.TransactionID,
		HasIntegrity:  msg.Contains(stun.AttrMessageIntegrity),
		UseCandidate:  msg.Contains(stun.AttrUseCandidate),
		msg:           msg,
	}

	var username stun.Username
	if err := username.GetFrom(msg); err == nil {
		req.Username = username.String()
	}

	if raw, err := msg.Get(stun.AttrPriority); err == nil {
		priority, err := cursor.NewReader(raw).Uint32()
		if err != nil {
			return nil, errMalformedPriority
		}
		req.Priority = priority
		req.HasPriority = true
	}

	return req, nil
}

// Ufrags splits the USERNAME into the responder's (local) and the
// requester's (remote) username fragments.
func (r *BindingRequest) Ufrags() (local, remote string, err error) {
	local, remote, ok := strings.Cut(r.Username, ":")
	if !ok || local == "" {
		return "", "", errMalformedUsername
	}

	return local, remote, nil
}

// Authenticate verifies MESSAGE-INTEGRITY with the local ICE password.
// Requests without the attribute are accepted.
func (r *BindingRequest) Authenticate(localPwd string) error {
	if !r.HasIntegrity {
		return nil
	}
	if err := stun.NewShortTermIntegrity(localPwd).Check(r.msg); err != nil {
		return fmt.Errorf("%w: %v", ErrIntegrityMismatch, err)
	}

	return nil
}

// BuildBindingResponse builds a binding success response for transactionID.
// Attributes are appended in order: XOR-MAPPED-ADDRESS, USERNAME
// ("remoteUfrag:localUfrag"), MESSAGE-INTEGRITY keyed with localPwd and
// FINGERPRINT. Each of the last two is computed after the header length has
// been updated to include it.
func BuildBindingResponse(
	transactionID [stun.TransactionIDSize]byte,
	mapped *net.UDPAddr,
	localUfrag, remoteUfrag, localPwd string,
) ([]byte, error) {
	msg, err := stun.Build(
		stun.NewTransactionIDSetter(transactionID),
		stun.BindingSuccess,
		&stun.XORMappedAddress{IP: mapped.IP, Port: mapped.Port},
		stun.NewUsername(remoteUfrag+":"+localUfrag),
		stun.NewShortTermIntegrity(localPwd),
		stun.Fingerprint,
	)
	if err != nil {
		return nil, fmt.Errorf("icelite: %w", err)
	}

	return msg.Raw, nil
}
