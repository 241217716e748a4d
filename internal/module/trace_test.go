package module

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTraceRing_DefaultsCapacityWhenNonPositive(t *testing.T) {
	ring := NewTraceRing(0)
	require.NotNil(t, ring)
	assert.Equal(t, defaultTraceRingCapacity, ring.capacity)
}

func TestTraceRing_RecordAndEntriesPreserveOrder(t *testing.T) {
	ring := NewTraceRing(4)
	ring.Record(TraceEntry{TaskName: "one"})
	ring.Record(TraceEntry{TaskName: "two"})

	entries := ring.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "one", entries[0].TaskName)
	assert.Equal(t, "two", entries[1].TaskName)
}

func TestNewRunID_IsUnique(t *testing.T) {
	a := NewRunID()
	b := NewRunID()
	assert.NotEqual(t, a, b)
}
