// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package util

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlattenErrs(t *testing.T) {
	rawErrs := []error{
		errors.New("err1"),
		errors.New("err2"),
		errors.New("err3"),
		errors.New("err4"),
	}
	errs := FlattenErrs([]error{
		rawErrs[0],
		nil,
		rawErrs[1],
		FlattenErrs([]error{
			rawErrs[2],
			nil,
		}),
	})

	assert.Equal(t, "err1\nerr2\nerr3", errs.Error())
	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, errs, rawErrs[i])
	}
	assert.NotErrorIs(t, errs, rawErrs[3])
}

func TestFlattenErrsSingle(t *testing.T) {
	assert.NoError(t, FlattenErrs(nil))
	assert.NoError(t, FlattenErrs([]error{nil, nil}))

	err := errors.New("only")
	assert.Equal(t, err, FlattenErrs([]error{nil, err}))
}

func TestMultiErrorWrapped(t *testing.T) {
	sentinel := errors.New("sentinel")
	errs := FlattenErrs([]error{
		errors.New("other"),
		fmt.Errorf("wrapped: %w", sentinel),
	})

	assert.ErrorIs(t, errs, sentinel)
}
