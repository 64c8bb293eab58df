// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParseByteSize(t *testing.T) {
	tests := []struct {
		in      string
		want    ByteSize
		wantErr bool
	}{
		{"0", 0, false},
		{"1024", 1024, false},
		{"300MB", 300_000_000, false},
		{"2 GiB", 2 << 30, false},
		{"8gb", 8_000_000_000, false},
		{"", 0, true},
		{"-5", 0, true},
		{"lots", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseByteSize(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestByteSize_YAML(t *testing.T) {
	var v struct {
		A ByteSize `yaml:"a"`
		B ByteSize `yaml:"b"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("a: 4096\nb: 1.5 MB\n"), &v))
	assert.Equal(t, ByteSize(4096), v.A)
	assert.Equal(t, ByteSize(1_500_000), v.B)

	out, err := yaml.Marshal(v)
	require.NoError(t, err)
	assert.Equal(t, "a: 4096\nb: 1500000\n", string(out))

	assert.Error(t, yaml.Unmarshal([]byte("a: [1, 2]\n"), &v))
}

func TestByteSize_String(t *testing.T) {
	assert.Equal(t, "300 MB", ByteSize(300_000_000).String())
	assert.Equal(t, "0 B", ByteSize(0).String())
}
