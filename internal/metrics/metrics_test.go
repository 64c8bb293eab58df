// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestSetRelayState_ExactlyOneActive(t *testing.T) {
	SetRelayState("live")

	assert.Equal(t, 1.0, testutil.ToFloat64(relayState.WithLabelValues("live")))
	assert.Equal(t, 0.0, testutil.ToFloat64(relayState.WithLabelValues("idle")))
	assert.Equal(t, 0.0, testutil.ToFloat64(relayState.WithLabelValues("starting")))
	assert.Equal(t, 0.0, testutil.ToFloat64(relayState.WithLabelValues("stopping")))
}

func TestRecordEviction_CountsBytes(t *testing.T) {
	beforeCount := testutil.ToFloat64(storeEvictions)
	beforeBytes := testutil.ToFloat64(storeEvictedBytes)

	RecordEviction(150)
	RecordEviction(50)

	assert.Equal(t, beforeCount+2, testutil.ToFloat64(storeEvictions))
	assert.Equal(t, beforeBytes+200, testutil.ToFloat64(storeEvictedBytes))
}

func TestRecordUpload_OnlySuccessAddsBytes(t *testing.T) {
	before := testutil.ToFloat64(uploadBytes)

	RecordUpload("transient", 1000, 0.5)
	assert.Equal(t, before, testutil.ToFloat64(uploadBytes))

	RecordUpload("success", 1000, 0.5)
	assert.Equal(t, before+1000, testutil.ToFloat64(uploadBytes))
}

func TestRecordProbe_SetsUpGauge(t *testing.T) {
	RecordProbe(true, 0.02)
	assert.Equal(t, 1.0, testutil.ToFloat64(connectivityUp))

	RecordProbe(false, 5)
	assert.Equal(t, 0.0, testutil.ToFloat64(connectivityUp))
}
