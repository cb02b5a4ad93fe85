// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Package h264reader implements a H264 Annex-B Reader
package h264reader

import (
	"bufio"
	"bytes"
	"errors"
	"io"

	"github.com/pion/rtclite/internal/h264"
)

var (
	errNilReader           = errors.New("stream is nil")
	errDataIsNotH264Stream = errors.New("data is not a H264 bitstream")
)

// H264Reader reads data from stream and constructs h264 nal units
type H264Reader struct {
	stream                      *bufio.Reader
	nalBuffer                   []byte
	countOfConsecutiveZeroBytes int
	nalPrefixParsed             bool
}

// NewReader creates new H264Reader
func NewReader(in io.Reader) (*H264Reader, error) {
	if in == nil {
		return nil, errNilReader
	}

	return &H264Reader{stream: bufio.NewReader(in)}, nil
}

// NAL H.264 Network Abstraction Layer
type NAL struct {
	UnitType h264.NalUnitType
	Data     []byte // header byte + rbsp
}

func (reader *H264Reader) skipPrefix() error {
	prefix, err := reader.stream.Peek(4)
	switch {
	case len(prefix) >= 3 && bytes.Equal(prefix[:3], []byte{0, 0, 1}):
		_, err = reader.stream.Discard(3)
	case len(prefix) == 4 && bytes.Equal(prefix, h264.StartCode()):
		_, err = reader.stream.Discard(4)
	case len(prefix) == 0 && err != nil:
	default:
		err = errDataIsNotH264Stream
	}

	return err
}

// NextNAL reads from stream and returns then next NAL,
// and an error if there is incomplete frame data.
// Returns io.EOF when no more NALs are available.
func (reader *H264Reader) NextNAL() (*NAL, error) {
	if !reader.nalPrefixParsed {
		if err := reader.skipPrefix(); err != nil {
			return nil, err
		}
		reader.nalPrefixParsed = true
	}

	for {
		readByte, err := reader.stream.ReadByte()
		if err != nil {
			break
		}
		if reader.processByte(readByte) {
			if len(reader.nalBuffer) == 0 {
				continue
			}

			break
		}
		reader.nalBuffer = append(reader.nalBuffer, readByte)
	}

	if len(reader.nalBuffer) == 0 {
		return nil, io.EOF
	}

	nal := &NAL{UnitType: h264.TypeOf(reader.nalBuffer), Data: reader.nalBuffer}
	reader.nalBuffer = nil

	return nal, nil
}

func (reader *H264Reader) processByte(readByte byte) (nalFound bool) {
	switch readByte {
	case 0:
		reader.countOfConsecutiveZeroBytes++
	case 1:
		if reader.countOfConsecutiveZeroBytes >= 2 {
			countOfConsecutiveZeroBytesInPrefix := 2
			if reader.countOfConsecutiveZeroBytes > 2 {
				countOfConsecutiveZeroBytesInPrefix = 3
			}
			nalUnitLength := len(reader.nalBuffer) - countOfConsecutiveZeroBytesInPrefix
			if nalUnitLength < 0 {
				nalUnitLength = 0
			}
			reader.nalBuffer = reader.nalBuffer[0:nalUnitLength]
			nalFound = true
		}
		reader.countOfConsecutiveZeroBytes = 0
	default:
		reader.countOfConsecutiveZeroBytes = 0
	}

	return nalFound
}

// NextAccessUnit groups NALs up to and including the next picture slice and
// returns them as one Annex-B buffer, the unit a packetizer consumes per
// frame.
func (reader *H264Reader) NextAccessUnit() ([]byte, error) {
	var au []byte
	for {
		nal, err := reader.NextNAL()
		if err != nil {
			if errors.Is(err, io.EOF) && len(au) > 0 {
				return au, nil
			}

			return nil, err
		}

		au = append(au, h264.StartCode()...)
		au = append(au, nal.Data...)
		if nal.UnitType.IsSlice() {
			return au, nil
		}
	}
}
