// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package ntp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromTime(t *testing.T) {
	ts := FromTime(time.Date(1900, 1, 1, 0, 0, 1, int(time.Second/2), time.UTC))
	assert.Equal(t, uint32(1), ts.Seconds())
	assert.Equal(t, uint32(1<<31), ts.Fraction())
	assert.Equal(t, Time32(1<<16|1<<15), ts.Compact())

	assert.Equal(t, Time64(0), FromTime(time.Date(1800, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestTime32Duration(t *testing.T) {
	for _, test := range []struct {
		in  Time32
		out time.Duration
	}{
		{0, 0},
		{1 << 16, time.Second},
		{1 << 15, 500 * time.Millisecond},
		{3<<16 | 1<<14, 3250 * time.Millisecond},
	} {
		assert.Equal(t, test.out, test.in.Duration())
	}
}

func TestCompactIsMonotonicWithinADay(t *testing.T) {
	now := time.Now()
	a := FromTime(now).Compact()
	b := FromTime(now.Add(10 * time.Millisecond)).Compact()
	assert.Greater(t, uint32(b-a), uint32(0))
}
