// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package reporter

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDestination(t *testing.T) {
	tests := map[string]struct {
		out    string
		want   Destination
		errMsg string
	}{
		"file": {
			out:  "tmp/../out.json",
			want: Destination{Path: "out.json"},
		},
		"compressed file": {
			out:  "/tmp/out.json.zst",
			want: Destination{Path: "/tmp/out.json.zst", Compressed: true},
		},
		"s3": {
			out:  "s3://profiles/app/1.json",
			want: Destination{Bucket: "profiles", Key: "app/1.json"},
		},
		"compressed s3": {
			out:  "s3://profiles/1.json.zst",
			want: Destination{Bucket: "profiles", Key: "1.json.zst", Compressed: true},
		},
		"s3 without key": {
			out:    "s3://profiles",
			errMsg: "lacks bucket or key",
		},
		"empty": {
			errMsg: "empty",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := ParseDestination(tc.out)
			if tc.errMsg != "" {
				require.ErrorIs(t, err, ErrInvalidDestination)
				assert.ErrorContains(t, err, tc.errMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestSaveLoad(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"plain.json", "nested/compressed.json.zst"} {
		t.Run(name, func(t *testing.T) {
			out := filepath.Join(dir, name)
			want := testProfile()
			require.NoError(t, Save(context.Background(), out, want))

			got, err := Load(context.Background(), out)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}

	data, err := os.ReadFile(filepath.Join(dir, "nested/compressed.json.zst"))
	require.NoError(t, err)
	// zstd frame magic
	assert.Equal(t, []byte{0x28, 0xb5, 0x2f, 0xfd}, data[:4])
}
