// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func attrMap(attrs []attribute.KeyValue) map[string]attribute.Value {
	m := make(map[string]attribute.Value, len(attrs))
	for _, kv := range attrs {
		m[string(kv.Key)] = kv.Value
	}
	return m
}

func TestSegmentAttributes(t *testing.T) {
	m := attrMap(SegmentAttributes("20250101T000000.000Z_000001", 1024, 1735689600))
	assert.Equal(t, "20250101T000000.000Z_000001", m[SegmentIDKey].AsString())
	assert.EqualValues(t, 1024, m[SegmentSizeBytesKey].AsInt64())
	assert.EqualValues(t, 1735689600, m[SegmentCreatedAtKey].AsInt64())
}

func TestPassAttributes(t *testing.T) {
	m := attrMap(PassAttributes("pass-1", 3, 1, true))
	assert.Equal(t, "pass-1", m[PassIDKey].AsString())
	assert.EqualValues(t, 3, m[PassBatchKey].AsInt64())
	assert.EqualValues(t, 1, m[PassUploadedKey].AsInt64())
	assert.True(t, m[PassStoppedKey].AsBool())

	assert.Len(t, PassAttributes("", 0, 0, false), 3, "empty pass id is omitted")
}

func TestRelayAttributes(t *testing.T) {
	m := attrMap(RelayAttributes("live", "start", 4242))
	assert.Equal(t, "live", m[RelayStateKey].AsString())
	assert.Equal(t, "start", m[RelayActionKey].AsString())
	assert.EqualValues(t, 4242, m[RelayPIDKey].AsInt64())

	assert.Len(t, RelayAttributes("idle", "none", 0), 2)
}

func TestErrorAttributes(t *testing.T) {
	m := attrMap(ErrorAttributes(errors.New("boom"), "transient"))
	assert.True(t, m[ErrorKey].AsBool())
	assert.Equal(t, "transient", m[ErrorTypeKey].AsString())
}
