package events

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// EventType is an enum-like string type for ethash lifecycle events
type EventType string

const (
	EventLightCacheReady          EventType = "LightCacheReady"
	EventDatasetGenerationStarted EventType = "DatasetGenerationStarted"
	EventDatasetReady             EventType = "DatasetReady"
	EventDatasetReleased          EventType = "DatasetReleased"
)

// EthashEvent represents a change in the set of verification caches or
// mining datasets held by an engine.
type EthashEvent interface {
	Type() EventType
	Timestamp() time.Time
	Epoch() uint64
	Seed() common.Hash
}

type baseEvent struct {
	epoch     uint64
	seed      common.Hash
	timestamp time.Time
}

func newBaseEvent(epoch uint64, seed common.Hash) baseEvent {
	return baseEvent{epoch: epoch, seed: seed, timestamp: time.Now()}
}

func (e baseEvent) Timestamp() time.Time { return e.timestamp }
func (e baseEvent) Epoch() uint64        { return e.epoch }
func (e baseEvent) Seed() common.Hash    { return e.seed }

// LightCacheReady is published once a light cache finished generating.
type LightCacheReady struct {
	baseEvent
	elapsed time.Duration
}

func NewLightCacheReady(epoch uint64, seed common.Hash, elapsed time.Duration) *LightCacheReady {
	return &LightCacheReady{baseEvent: newBaseEvent(epoch, seed), elapsed: elapsed}
}

func (e *LightCacheReady) Type() EventType        { return EventLightCacheReady }
func (e *LightCacheReady) Elapsed() time.Duration { return e.elapsed }

// DatasetGenerationStarted is published when the generator slot is taken.
type DatasetGenerationStarted struct {
	baseEvent
}

func NewDatasetGenerationStarted(epoch uint64, seed common.Hash) *DatasetGenerationStarted {
	return &DatasetGenerationStarted{baseEvent: newBaseEvent(epoch, seed)}
}

func (e *DatasetGenerationStarted) Type() EventType { return EventDatasetGenerationStarted }

// DatasetReady is published when a full dataset has been generated and
// published to the store.
type DatasetReady struct {
	baseEvent
	elapsed time.Duration
}

func NewDatasetReady(epoch uint64, seed common.Hash, elapsed time.Duration) *DatasetReady {
	return &DatasetReady{baseEvent: newBaseEvent(epoch, seed), elapsed: elapsed}
}

func (e *DatasetReady) Type() EventType        { return EventDatasetReady }
func (e *DatasetReady) Elapsed() time.Duration { return e.elapsed }

// DatasetReleased is published after the garbage collector reclaimed a
// dataset nobody referenced any more.
type DatasetReleased struct {
	baseEvent
}

func NewDatasetReleased(epoch uint64, seed common.Hash) *DatasetReleased {
	return &DatasetReleased{baseEvent: newBaseEvent(epoch, seed)}
}

func (e *DatasetReleased) Type() EventType { return EventDatasetReleased }
