// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package rtclite

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDTLSRole_String(t *testing.T) {
	testCases := []struct {
		role           DTLSRole
		expectedString string
	}{
		{DTLSRole(0), unknownStr},
		{DTLSRoleClient, "client"},
		{DTLSRoleServer, "server"},
	}

	for i, testCase := range testCases {
		assert.Equal(t,
			testCase.expectedString,
			testCase.role.String(),
			"testCase: %d %v", i, testCase,
		)
	}
}

func TestDTLSRole_setupAttribute(t *testing.T) {
	assert.Equal(t, "active", DTLSRoleClient.setupAttribute())
	assert.Equal(t, "passive", DTLSRoleServer.setupAttribute())
}

func TestConnectionState_String(t *testing.T) {
	testCases := []struct {
		state          ConnectionState
		expectedString string
	}{
		{ConnectionStateCreated, "created"},
		{ConnectionStateAwaitingRemoteDescription, "awaiting-remote-description"},
		{ConnectionStateListening, "listening"},
		{ConnectionStateConnecting, "connecting"},
		{ConnectionStateHandshakeInProgress, "handshake-in-progress"},
		{ConnectionStateEstablished, "established"},
		{ConnectionStateDestroyed, "destroyed"},
		{ConnectionState(42), unknownStr},
	}

	for i, testCase := range testCases {
		assert.Equal(t,
			testCase.expectedString,
			testCase.state.String(),
			"testCase: %d %v", i, testCase,
		)
	}
}
