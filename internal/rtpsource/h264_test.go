// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package rtpsource

import (
	"bytes"
	"testing"
	"time"

	"github.com/pion/rtp"
	"github.com/pion/rtp/codecs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	videoSSRC = 0x1234
	videoPT   = 102
	rtxSSRC   = 0x5678
	rtxPT     = 120
	fecSSRC   = 0x9abc
	fecPT     = 49
)

type capture struct {
	batches [][]*Packet
}

func (c *capture) send(packets []*Packet) {
	c.batches = append(c.batches, packets)
}

func (c *capture) all() []*Packet {
	var out []*Packet
	for _, b := range c.batches {
		out = append(out, b...)
	}

	return out
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func newTestH264Source(t *testing.T, mutate func(*Config)) (*H264Source, *capture) {
	t.Helper()

	c := &capture{}
	cfg := Config{
		SSRC:        videoSSRC,
		PayloadType: videoPT,
		Sequencer:   rtp.NewFixedSequencer(1),
		Send:        c.send,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	s, err := NewH264Source(cfg)
	require.NoError(t, err)

	return s, c
}

func annexB(nals ...[]byte) []byte {
	var out []byte
	for _, nal := range nals {
		out = append(out, 0, 0, 0, 1)
		out = append(out, nal...)
	}

	return out
}

func nalOfSize(header byte, size int) []byte {
	nal := make([]byte, size)
	nal[0] = header
	for i := 1; i < size; i++ {
		nal[i] = byte(i*7 + 3)
	}

	return nal
}

func unmarshal(t *testing.T, pkt *Packet) *rtp.Packet {
	t.Helper()

	p := &rtp.Packet{}
	require.NoError(t, p.Unmarshal(pkt.Raw))

	return p
}

func TestH264SingleNAL(t *testing.T) {
	s, c := newTestH264Source(t, nil)

	nal := nalOfSize(0x41, s.MaxPayloadSize())
	s.InputFrame(annexB(nal))

	packets := c.all()
	require.Len(t, packets, 1)
	p := unmarshal(t, packets[0])
	assert.True(t, p.Marker)
	assert.Equal(t, uint8(videoPT), p.PayloadType)
	assert.Equal(t, uint32(videoSSRC), p.SSRC)
	assert.Equal(t, uint16(1), p.SequenceNumber)
	assert.Equal(t, nal, p.Payload)
	assert.Equal(t, KindMedia, packets[0].Kind)
	assert.LessOrEqual(t, len(packets[0].Raw), DefaultMaxPacketSize)
}

func TestH264FUA(t *testing.T) {
	s, c := newTestH264Source(t, nil)

	nal := nalOfSize(0x61, 3*s.MaxPayloadSize()+17)
	s.InputFrame(annexB(nal))

	packets := c.all()
	require.Len(t, packets, 4)

	depacketizer := &codecs.H264Packet{}
	var reassembled []byte
	for i, pkt := range packets {
		p := unmarshal(t, pkt)
		assert.Equal(t, uint16(i+1), p.SequenceNumber)
		assert.Equal(t, byte(0x60|28), p.Payload[0], "FU indicator keeps NRI")

		fuHeader := p.Payload[1]
		assert.Equal(t, i == 0, fuHeader&0x80 != 0, "start bit")
		assert.Equal(t, i == len(packets)-1, fuHeader&0x40 != 0, "end bit")
		assert.Equal(t, i == len(packets)-1, p.Marker)
		assert.Equal(t, byte(1), fuHeader&0x1f)
		if i < len(packets)-1 {
			assert.Len(t, p.Payload, s.MaxPayloadSize())
		}

		out, err := depacketizer.Unmarshal(p.Payload)
		require.NoError(t, err)
		reassembled = append(reassembled, out...)
	}

	assert.Equal(t, append([]byte{0, 0, 0, 1}, nal...), reassembled)
}

func TestH264IDRSendsParameterSets(t *testing.T) {
	s, c := newTestH264Source(t, nil)

	sps := []byte{0x67, 0x42, 0xe0, 0x1f, 0xda}
	pps := []byte{0x68, 0xce, 0x3c, 0x80}
	idr := nalOfSize(0x65, 2*s.MaxPayloadSize())

	s.InputFrame(annexB(sps, pps, idr))

	packets := c.all()
	require.Len(t, packets, 4)

	stap := unmarshal(t, packets[0])
	assert.False(t, stap.Marker)
	assert.Equal(t, byte(0x60|24), stap.Payload[0])
	assert.Equal(t, []byte{0, byte(len(sps))}, stap.Payload[1:3])
	assert.Equal(t, sps, stap.Payload[3:3+len(sps)])
	off := 3 + len(sps)
	assert.Equal(t, []byte{0, byte(len(pps))}, stap.Payload[off:off+2])
	assert.Equal(t, pps, stap.Payload[off+2:])

	depacketizer := &codecs.H264Packet{}
	out, err := depacketizer.Unmarshal(stap.Payload)
	require.NoError(t, err)
	assert.Equal(t, annexB(sps, pps), out)

	for i, pkt := range packets {
		assert.Equal(t, uint16(i+1), pkt.SequenceNumber)
		assert.Equal(t, packets[0].Timestamp, pkt.Timestamp)
	}
	assert.True(t, packets[3].Marker)

	// Parameter sets are cached for later IDRs sent alone.
	c.batches = nil
	s.InputFrame(annexB(nalOfSize(0x65, 10)))
	packets = c.all()
	require.Len(t, packets, 2)
	assert.True(t, bytes.Contains(packets[0].Payload(), sps))
	assert.True(t, packets[1].Marker)
}

func TestH264MultiSliceIDR(t *testing.T) {
	s, c := newTestH264Source(t, nil)

	sps := []byte{0x67, 0x42, 0xe0, 0x1f, 0xda}
	pps := []byte{0x68, 0xce, 0x3c, 0x80}
	s.InputFrame(annexB(sps, pps, nalOfSize(0x65, 20), nalOfSize(0x65, 30)))

	packets := c.all()
	require.Len(t, packets, 3)

	types := make([]byte, 0, len(packets))
	for _, pkt := range packets {
		types = append(types, pkt.Payload()[0]&0x1f)
	}
	assert.Equal(t, []byte{24, 5, 5}, types)
	assert.False(t, packets[1].Marker)
	assert.True(t, packets[2].Marker)
}

func TestH264IDRWithoutParameterSets(t *testing.T) {
	s, c := newTestH264Source(t, nil)

	s.InputFrame(annexB(nalOfSize(0x65, 10)))
	packets := c.all()
	require.Len(t, packets, 1)
	assert.Equal(t, byte(0x65), packets[0].Payload()[0])
}

func TestH264DropsOtherNALs(t *testing.T) {
	s, c := newTestH264Source(t, nil)

	s.InputFrame(annexB([]byte{0x09, 0xf0}, []byte{0x06, 0x05, 0x01}))
	s.InputFrame(nil)
	assert.Empty(t, c.batches)
}

func TestH264Timestamp(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	s, c := newTestH264Source(t, func(cfg *Config) {
		cfg.Now = clock.Now
		cfg.InitialTimestamp = 4000
	})

	s.InputFrame(annexB([]byte{0x41, 0x01}))
	clock.now = clock.now.Add(time.Second / 2)
	s.InputFrame(annexB([]byte{0x41, 0x02}))

	packets := c.all()
	require.Len(t, packets, 2)
	assert.Equal(t, uint32(4000), packets[0].Timestamp)
	assert.Equal(t, uint32(4000+45000), packets[1].Timestamp)
}

func TestH264Retransmission(t *testing.T) {
	const cacheSize = 16
	const sent = 40

	s, c := newTestH264Source(t, func(cfg *Config) {
		cfg.RTXSSRC = rtxSSRC
		cfg.RTXPayloadType = rtxPT
		cfg.CacheSize = cacheSize
		cfg.RTXSequencer = rtp.NewFixedSequencer(9000)
	})

	for i := 0; i < sent; i++ {
		s.InputFrame(annexB([]byte{0x41, byte(i)}))
	}
	c.batches = nil

	s.RetransmitRTPPackets([]uint16{1, sent - cacheSize, sent - cacheSize + 1, sent, sent + 1})
	require.Len(t, c.batches, 1)
	packets := c.batches[0]
	require.Len(t, packets, 2)

	for i, want := range []uint16{sent - cacheSize + 1, sent} {
		pkt := packets[i]
		assert.True(t, pkt.IsRetransmission())

		p := unmarshal(t, pkt)
		assert.Equal(t, uint32(rtxSSRC), p.SSRC)
		assert.Equal(t, uint8(rtxPT), p.PayloadType)
		assert.Equal(t, uint16(9000+i), p.SequenceNumber)
		assert.True(t, p.Marker)
		require.Len(t, p.Payload, 4)
		assert.Equal(t, want, uint16(p.Payload[0])<<8|uint16(p.Payload[1]))
		assert.Equal(t, []byte{0x41, byte(want - 1)}, p.Payload[2:])
	}

	c.batches = nil
	s.RetransmitRTPPackets([]uint16{1, 2})
	assert.Empty(t, c.batches, "misses produce nothing")
}

func TestH264RetransmissionDisabled(t *testing.T) {
	s, c := newTestH264Source(t, nil)

	s.InputFrame(annexB([]byte{0x41, 0x01}))
	c.batches = nil
	s.RetransmitRTPPackets([]uint16{1})
	assert.Empty(t, c.batches)
}

func TestH264FEC(t *testing.T) {
	s, c := newTestH264Source(t, func(cfg *Config) {
		cfg.FECSSRC = fecSSRC
		cfg.FECPayloadType = fecPT
	})

	s.InputFrame(annexB([]byte{0x41, 0x01}))
	require.Len(t, c.all(), 1, "no loss reported, no redundancy")

	s.UpdateQoS(40*time.Millisecond, 100)
	c.batches = nil
	s.InputFrame(annexB(nalOfSize(0x41, 3*s.MaxPayloadSize())))

	packets := c.all()
	require.Greater(t, len(packets), 4)
	for _, pkt := range packets[:4] {
		assert.Equal(t, KindMedia, pkt.Kind)
	}
	for _, pkt := range packets[4:] {
		assert.Equal(t, KindRedundancy, pkt.Kind)
		p := unmarshal(t, pkt)
		assert.Equal(t, uint32(fecSSRC), p.SSRC)
		assert.Equal(t, uint8(fecPT), p.PayloadType)
	}
}

func TestTransportCCExtension(t *testing.T) {
	const extID = 3
	transportCC := &TransportSequencer{}

	s, c := newTestH264Source(t, func(cfg *Config) {
		cfg.TransportCC = transportCC
		cfg.TransportCCExtensionID = extID
		cfg.RTXSSRC = rtxSSRC
		cfg.RTXPayloadType = rtxPT
	})
	assert.Equal(t, DefaultMaxPacketSize-20-rtxOSNSize, s.MaxPayloadSize())

	s.InputFrame(annexB(nalOfSize(0x41, 2*s.MaxPayloadSize())))
	s.RetransmitRTPPackets([]uint16{1})

	packets := c.all()
	require.Len(t, packets, 4)
	for i, pkt := range packets {
		assert.LessOrEqual(t, len(pkt.Raw), DefaultMaxPacketSize+rtxOSNSize)

		p := unmarshal(t, pkt)
		assert.True(t, p.Extension)
		assert.Equal(t, uint16(0xBEDE), p.ExtensionProfile)

		ext := &rtp.TransportCCExtension{}
		require.NoError(t, ext.Unmarshal(p.GetExtension(extID)))
		assert.Equal(t, uint16(i), ext.TransportSequence)
	}
}

func TestSmoothedRTT(t *testing.T) {
	s, _ := newTestH264Source(t, nil)

	s.UpdateQoS(100*time.Millisecond, 0)
	assert.Equal(t, 100*time.Millisecond, s.SmoothedRTT())
	s.UpdateQoS(20*time.Millisecond, 0)
	assert.Equal(t, 80*time.Millisecond, s.SmoothedRTT())
	s.UpdateQoS(0, 0)
	assert.Equal(t, 80*time.Millisecond, s.SmoothedRTT())
}

func TestConfigErrors(t *testing.T) {
	_, err := NewH264Source(Config{})
	assert.ErrorIs(t, err, errNoSendFunc)

	_, err = NewH264Source(Config{Send: func([]*Packet) {}, RTXSSRC: 1})
	assert.ErrorIs(t, err, errMissingRTXTypes)

	_, err = NewH264Source(Config{Send: func([]*Packet) {}, MaxPacketSize: 13})
	assert.ErrorIs(t, err, errPacketTooSmall)

	_, err = NewOpusSource(Config{Send: func([]*Packet) {}, RTXSSRC: 1, RTXPayloadType: 1, CacheSize: 3})
	assert.ErrorIs(t, err, ErrInvalidCacheSize)
}
