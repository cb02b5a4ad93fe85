// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package log

import (
	"testing"

	"github.com/pion/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var _ logging.LoggerFactory = (*ZapFactory)(nil)

func TestZapFactory(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	factory := NewZapFactory(zap.New(core))

	log := factory.NewLogger("dtls")
	log.Tracef("record %d", 1)
	log.Debug("debug")
	log.Infof("connection %s established", "abcd")
	log.Warn("warn")
	log.Errorf("failed: %v", assert.AnError)

	entries := logs.All()
	require.Len(t, entries, 5)

	for _, e := range entries {
		assert.Equal(t, "dtls", e.LoggerName)
	}

	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, "record 1", entries[0].Message)
	assert.Equal(t, true, entries[0].ContextMap()["trace"])

	assert.Equal(t, zapcore.InfoLevel, entries[2].Level)
	assert.Equal(t, "connection abcd established", entries[2].Message)
	assert.Equal(t, zapcore.WarnLevel, entries[3].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[4].Level)
}

func TestZapFactoryLevel(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	log := NewZapFactory(zap.New(core)).NewLogger("rtp")

	log.Trace("trace")
	log.Debugf("debug %d", 1)
	log.Info("info")
	log.Warnf("warn %d", 2)
	log.Error("error")

	assert.Equal(t, 2, logs.Len())
}
