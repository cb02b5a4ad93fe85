// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package rtclite

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfiguration_withDefaults(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		cfg := Configuration{}.withDefaults()

		assert.Equal(t, "live", cfg.StreamName)
		assert.Equal(t, uint8(102), cfg.VideoPayloadType)
		assert.Equal(t, uint8(111), cfg.AudioPayloadType)
		assert.Equal(t, uint8(120), cfg.RTXPayloadType)
		assert.Equal(t, uint8(49), cfg.FECPayloadType)
	})

	t.Run("Explicit", func(t *testing.T) {
		cfg := Configuration{StreamName: "cam", VideoPayloadType: 96}.withDefaults()

		assert.Equal(t, "cam", cfg.StreamName)
		assert.Equal(t, uint8(96), cfg.VideoPayloadType)
		assert.Equal(t, uint8(111), cfg.AudioPayloadType)
	})
}

func TestConfiguration_advertisedAddress(t *testing.T) {
	assert.Equal(t, "127.0.0.1", Configuration{}.advertisedAddress())
	assert.Equal(t, "127.0.0.1", Configuration{LocalAddress: "0.0.0.0"}.advertisedAddress())
	assert.Equal(t, "192.0.2.10", Configuration{LocalAddress: "192.0.2.10"}.advertisedAddress())
}
