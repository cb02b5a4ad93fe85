// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Package ntp converts between wall-clock time and the NTP timestamp
// formats carried in RTCP sender and receiver reports.
package ntp

import "time"

var epoch = time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC) //nolint:gochecknoglobals

// Time64 is a 64-bit unsigned fixed-point number (Q32.32) which encodes
// the number of seconds since 0h UTC on 1 January 1900.
type Time64 uint64

// FromTime converts t into a Time64. Times before the epoch map to zero.
func FromTime(t time.Time) Time64 {
	d := t.Sub(epoch)
	if d < 0 {
		return 0
	}
	sec := uint64(d / time.Second)
	frac := uint64(d%time.Second) << 32 / uint64(time.Second)

	return Time64(sec<<32 | frac)
}

// Seconds returns the integer part.
func (t Time64) Seconds() uint32 { return uint32(t >> 32) }

// Fraction returns the fractional part in units of 2^-32 seconds.
func (t Time64) Fraction() uint32 { return uint32(t) }

// Compact returns the middle 32 bits, the form echoed back as LSR in
// receiver reports.
func (t Time64) Compact() Time32 { return Time32(t >> 16) }

// Time32 is the abbreviated Q16.16 NTP timestamp.
type Time32 uint32

// Duration converts a Q16.16 value, such as the DLSR field of a receiver
// report, to a time.Duration.
func (t Time32) Duration() time.Duration {
	t64 := uint64(t)
	sec := (t64 >> 16) * uint64(time.Second)
	frac := (t64 & 0xffff) * uint64(time.Second) >> 16

	return time.Duration(sec + frac)
}
