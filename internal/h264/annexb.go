// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Package h264 splits Annex-B byte streams into NAL units.
package h264

import "bytes"

var (
	startCode3 = []byte{0, 0, 1}    //nolint:gochecknoglobals
	startCode4 = []byte{0, 0, 0, 1} //nolint:gochecknoglobals
)

// StartCode is the four byte Annex-B prefix written before every NAL.
func StartCode() []byte { return startCode4 }

// Split returns the NAL units of an Annex-B buffer without their start
// codes. A buffer that does not begin with a start code is returned as a
// single NAL. Empty NALs are skipped. The returned slices alias au.
func Split(au []byte) [][]byte {
	start, prefix := nextStartCode(au, 0)
	if start != 0 {
		if len(au) == 0 {
			return nil
		}

		return [][]byte{au}
	}

	var nals [][]byte
	pos := prefix
	for {
		next, nextPrefix := nextStartCode(au, pos)
		end := next
		if next < 0 {
			end = len(au)
		}
		if nal := au[pos:end]; len(nal) > 0 {
			nals = append(nals, nal)
		}
		if next < 0 {
			return nals
		}
		pos = next + nextPrefix
	}
}

// nextStartCode finds the first start code at or after from and returns its
// index and length, or -1.
func nextStartCode(buf []byte, from int) (int, int) {
	i := bytes.Index(buf[from:], startCode3)
	if i < 0 {
		return -1, 0
	}
	i += from
	if i > from && buf[i-1] == 0 {
		return i - 1, len(startCode4)
	}

	return i, len(startCode3)
}
