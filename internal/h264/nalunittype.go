// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package h264

import "strconv"

// NalUnitType is the 5-bit type field of an H.264 NAL header.
type NalUnitType uint8

// NalUnitType enums used by the packetizer.
const (
	NalUnitTypeUnspecified      NalUnitType = 0  // Unspecified
	NalUnitTypeCodedSliceNonIdr NalUnitType = 1  // Coded slice of a non-IDR picture
	NalUnitTypeCodedSliceIdr    NalUnitType = 5  // Coded slice of an IDR picture
	NalUnitTypeSEI              NalUnitType = 6  // Supplemental enhancement information (SEI)
	NalUnitTypeSPS              NalUnitType = 7  // Sequence parameter set
	NalUnitTypePPS              NalUnitType = 8  // Picture parameter set
	NalUnitTypeAUD              NalUnitType = 9  // Access unit delimiter
	NalUnitTypeFiller           NalUnitType = 12 // Filler data
	NalUnitTypeSTAPA            NalUnitType = 24 // Single-time aggregation packet (RFC 6184)
	NalUnitTypeFUA              NalUnitType = 28 // Fragmentation unit A (RFC 6184)
)

const (
	nalTypeMask   = 0x1f
	nalHeaderMask = 0xe0
)

// TypeOf returns the type of the NAL starting at nal[0].
func TypeOf(nal []byte) NalUnitType {
	if len(nal) == 0 {
		return NalUnitTypeUnspecified
	}

	return NalUnitType(nal[0] & nalTypeMask)
}

// HeaderWithType keeps the forbidden bit and NRI of header and replaces the
// type with t.
func HeaderWithType(header byte, t NalUnitType) byte {
	return header&nalHeaderMask | byte(t)
}

// IsSlice reports whether t carries picture data.
func (t NalUnitType) IsSlice() bool {
	return t == NalUnitTypeCodedSliceNonIdr || t == NalUnitTypeCodedSliceIdr
}

func (t NalUnitType) String() string {
	var str string
	switch t {
	case NalUnitTypeUnspecified:
		str = "Unspecified"
	case NalUnitTypeCodedSliceNonIdr:
		str = "CodedSliceNonIdr"
	case NalUnitTypeCodedSliceIdr:
		str = "CodedSliceIdr"
	case NalUnitTypeSEI:
		str = "SEI"
	case NalUnitTypeSPS:
		str = "SPS"
	case NalUnitTypePPS:
		str = "PPS"
	case NalUnitTypeAUD:
		str = "AUD"
	case NalUnitTypeFiller:
		str = "Filler"
	case NalUnitTypeSTAPA:
		str = "STAP-A"
	case NalUnitTypeFUA:
		str = "FU-A"
	default:
		str = "Unknown"
	}

	return str + "(" + strconv.FormatInt(int64(t), 10) + ")"
}
