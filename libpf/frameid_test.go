// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package libpf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameID(t *testing.T) {
	tests := map[string]struct {
		input    string
		expected FrameID
		wantErr  bool
	}{
		"zero":     {input: "0", expected: 0},
		"large":    {input: "4294967295", expected: 4294967295},
		"negative": {input: "-1", wantErr: true},
		"overflow": {input: "4294967296", wantErr: true},
		"garbage":  {input: "x1", wantErr: true},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			id, err := ParseFrameID(test.input)
			if test.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.expected, id)
			assert.Equal(t, test.input, id.String())
		})
	}
}
