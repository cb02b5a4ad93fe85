// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package h264reader

import (
	"bytes"
	"io"
	"testing"

	"github.com/pion/rtclite/internal/h264"
	"github.com/stretchr/testify/assert"
)

func CreateReader(h264 []byte, assert *assert.Assertions) *H264Reader {
	reader, err := NewReader(bytes.NewReader(h264))

	assert.Nil(err)
	assert.NotNil(reader)

	return reader
}

func TestNilReader(t *testing.T) {
	_, err := NewReader(nil)
	assert.Equal(t, errNilReader, err)
}

func TestDataDoesNotStartWithH264Header(t *testing.T) {
	assert := assert.New(t)

	testFunction := func(input []byte) {
		reader := CreateReader(input, assert)
		nal, err := reader.NextNAL()
		assert.Equal(errDataIsNotH264Stream, err)
		assert.Nil(nal)
	}

	testFunction([]byte{2})
	testFunction([]byte{0, 2})
	testFunction([]byte{0, 0, 2})
	testFunction([]byte{0, 0, 2, 0})
	testFunction([]byte{0, 0, 0, 2})
}

func TestParseHeader(t *testing.T) {
	assert := assert.New(t)
	reader := CreateReader([]byte{0x0, 0x0, 0x1, 0xAB}, assert)

	nal, err := reader.NextNAL()
	assert.Nil(err)
	assert.Equal(1, len(nal.Data))
	assert.Equal(h264.NalUnitType(11), nal.UnitType)

	_, err = reader.NextNAL()
	assert.Equal(io.EOF, err)
}

func TestEOF(t *testing.T) {
	assert := assert.New(t)

	reader := CreateReader([]byte{}, assert)
	nal, err := reader.NextNAL()
	assert.Equal(io.EOF, err)
	assert.Nil(nal)
}

func TestNALTypes(t *testing.T) {
	assert := assert.New(t)
	reader := CreateReader([]byte{
		0x0, 0x0, 0x0, 0x1, 0xAA,
		0x0, 0x0, 0x0, 0x1, 0x6, 0xAB,
		0x0, 0x0, 0x0, 0x1, 0xAC,
	}, assert)

	var types []h264.NalUnitType
	for {
		nal, err := reader.NextNAL()
		if err != nil {
			assert.Equal(io.EOF, err)

			break
		}
		types = append(types, nal.UnitType)
	}
	assert.Equal([]h264.NalUnitType{10, h264.NalUnitTypeSEI, 12}, types)
}

func TestNextAccessUnit(t *testing.T) {
	assert := assert.New(t)
	stream := []byte{
		0x0, 0x0, 0x0, 0x1, 0x67, 0x42,
		0x0, 0x0, 0x1, 0x68, 0xce,
		0x0, 0x0, 0x0, 0x1, 0x65, 0x88,
		0x0, 0x0, 0x0, 0x1, 0x41, 0x9a,
		0x0, 0x0, 0x0, 0x1, 0x09, 0xf0,
	}
	reader := CreateReader(stream, assert)

	au, err := reader.NextAccessUnit()
	assert.NoError(err)
	assert.Equal([]byte{
		0, 0, 0, 1, 0x67, 0x42,
		0, 0, 0, 1, 0x68, 0xce,
		0, 0, 0, 1, 0x65, 0x88,
	}, au)

	au, err = reader.NextAccessUnit()
	assert.NoError(err)
	assert.Equal([]byte{0, 0, 0, 1, 0x41, 0x9a}, au)

	au, err = reader.NextAccessUnit()
	assert.NoError(err, "trailing NALs are flushed at EOF")
	assert.Equal([]byte{0, 0, 0, 1, 0x09, 0xf0}, au)

	_, err = reader.NextAccessUnit()
	assert.Equal(io.EOF, err)
}
