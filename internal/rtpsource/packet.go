// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package rtpsource

// Kind distinguishes original media from recovery packets.
type Kind uint8

// Kind enums.
const (
	KindMedia Kind = iota
	KindRetransmission
	KindRedundancy
)

func (k Kind) String() string {
	switch k {
	case KindMedia:
		return "media"
	case KindRetransmission:
		return "rtx"
	case KindRedundancy:
		return "fec"
	default:
		return "unknown"
	}
}

// Packet is a marshaled RTP packet ready for protection. It is not modified
// after it has been built.
type Packet struct {
	SSRC           uint32
	SequenceNumber uint16
	Timestamp      uint32
	Marker         bool
	Kind           Kind

	// Raw holds header and payload.
	Raw        []byte
	headerSize int
}

// Payload returns the bytes after the RTP header.
func (p *Packet) Payload() []byte { return p.Raw[p.headerSize:] }

// IsRetransmission reports whether the packet was sent on the RTX stream.
func (p *Packet) IsRetransmission() bool { return p.Kind == KindRetransmission }

// SendFunc receives every batch of packets a source produces.
type SendFunc func(packets []*Packet)
