package ethash

import (
	"context"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mezonai/ethash/config"
	"github.com/mezonai/ethash/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFullStore(bus *events.EventBus) *FullStore {
	cfg := config.TestEthashConfig()
	return NewFullStore(cfg, NewLightStore(cfg.PowMode, bus), bus)
}

// holdGeneration blocks the publication of the given epoch's dataset until
// the returned release function is called.
func holdGeneration(s *FullStore, epoch uint64) (release func()) {
	gate := make(chan struct{})
	var once sync.Once
	s.beforePublish = func(e uint64) {
		if e == epoch {
			<-gate
		}
	}
	return func() { once.Do(func() { close(gate) }) }
}

func TestFullStoreRequestGeneration(t *testing.T) {
	s := newTestFullStore(nil)
	seed := SeedHash(0)
	release := holdGeneration(s, 0)
	defer release()

	ready, err := s.RequestGeneration(seed, false)
	require.NoError(t, err)
	assert.False(t, ready)
	_, generating, _ := s.Progress()
	assert.False(t, generating, "create=false must not start a generation")

	ready, err = s.RequestGeneration(seed, true)
	require.NoError(t, err)
	assert.False(t, ready)

	epoch, generating, _ := s.Progress()
	assert.True(t, generating)
	assert.Equal(t, uint64(0), epoch)

	// A second seed does not start a concurrent generation.
	ready, err = s.RequestGeneration(SeedHash(1), true)
	require.NoError(t, err)
	assert.False(t, ready)
	epoch, generating, _ = s.Progress()
	assert.True(t, generating)
	assert.Equal(t, uint64(0), epoch)

	release()
	require.Eventually(t, func() bool {
		ready, err := s.RequestGeneration(seed, false)
		return err == nil && ready
	}, 5*time.Second, 5*time.Millisecond)

	_, generating, _ = s.Progress()
	assert.False(t, generating)
}

func TestFullStoreUnknownSeed(t *testing.T) {
	s := newTestFullStore(nil)
	_, err := s.RequestGeneration(common.HexToHash("0badc0de"), true)
	assert.ErrorIs(t, err, ErrUnknownSeed)
	_, err = s.Full(context.Background(), common.HexToHash("0badc0de"), true, nil)
	assert.ErrorIs(t, err, ErrUnknownSeed)
}

func TestFullStoreFullReportsProgress(t *testing.T) {
	s := newTestFullStore(nil)

	var (
		mu      sync.Mutex
		reports []uint32
	)
	ds, err := s.Full(context.Background(), SeedHash(3), true, func(percent uint32) {
		mu.Lock()
		defer mu.Unlock()
		reports = append(reports, percent)
	})
	require.NoError(t, err)
	require.NotNil(t, ds)
	assert.Equal(t, uint64(3), ds.Epoch())
	assert.Equal(t, uint64(testDatasetSize), ds.Size())

	mu.Lock()
	require.NotEmpty(t, reports)
	assert.Equal(t, uint32(100), reports[len(reports)-1])
	mu.Unlock()

	// A resident dataset is returned as is, still reporting completion.
	var last uint32
	again, err := s.Full(context.Background(), SeedHash(3), false, func(percent uint32) { last = percent })
	require.NoError(t, err)
	assert.Same(t, ds, again)
	assert.Equal(t, uint32(100), last)
	assert.Same(t, ds, s.Lookup(SeedHash(3)))
}

func TestFullStoreAbsentWithoutCreate(t *testing.T) {
	s := newTestFullStore(nil)
	ds, err := s.Full(context.Background(), SeedHash(0), false, nil)
	require.NoError(t, err)
	assert.Nil(t, ds)

	release := holdGeneration(s, 1)
	defer release()
	_, err = s.RequestGeneration(SeedHash(1), true)
	require.NoError(t, err)

	// Another seed is generating: nothing exists or is in progress for ours.
	ds, err = s.Full(context.Background(), SeedHash(0), false, nil)
	require.NoError(t, err)
	assert.Nil(t, ds)
}

func TestFullStoreJoinsRunningGeneration(t *testing.T) {
	s := newTestFullStore(nil)
	release := holdGeneration(s, 0)
	_, err := s.RequestGeneration(SeedHash(0), true)
	require.NoError(t, err)

	result := make(chan *FullDataset, 1)
	go func() {
		ds, err := s.Full(context.Background(), SeedHash(0), false, nil)
		assert.NoError(t, err)
		result <- ds
	}()

	select {
	case <-result:
		t.Fatal("returned before the generation finished")
	case <-time.After(50 * time.Millisecond):
	}
	release()

	select {
	case ds := <-result:
		require.NotNil(t, ds)
		assert.Equal(t, uint64(0), ds.Epoch())
	case <-time.After(5 * time.Second):
		t.Fatal("waiter never woke up")
	}
}

func TestFullStoreWaitsForOtherSeed(t *testing.T) {
	bus := events.NewEventBus()
	_, ch := bus.Subscribe()
	s := newTestFullStore(bus)
	release := holdGeneration(s, 0)

	_, err := s.RequestGeneration(SeedHash(0), true)
	require.NoError(t, err)

	result := make(chan *FullDataset, 1)
	var last uint32
	go func() {
		ds, err := s.Full(context.Background(), SeedHash(1), true, func(percent uint32) { last = percent })
		assert.NoError(t, err)
		result <- ds
	}()

	select {
	case <-result:
		t.Fatal("generation for epoch 1 ran while epoch 0 was in flight")
	case <-time.After(50 * time.Millisecond):
	}
	epoch, generating, _ := s.Progress()
	assert.True(t, generating)
	assert.Equal(t, uint64(0), epoch)

	release()
	select {
	case ds := <-result:
		require.NotNil(t, ds)
		assert.Equal(t, uint64(1), ds.Epoch())
		assert.Equal(t, uint32(100), last)
	case <-time.After(5 * time.Second):
		t.Fatal("Full never returned")
	}

	var started []uint64
	for len(ch) > 0 {
		if ev := <-ch; ev.Type() == events.EventDatasetGenerationStarted {
			started = append(started, ev.Epoch())
		}
	}
	assert.Equal(t, []uint64{0, 1}, started)
}

func TestFullStoreContextCancelsWaitOnly(t *testing.T) {
	s := newTestFullStore(nil)
	release := holdGeneration(s, 2)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	ds, err := s.Full(ctx, SeedHash(2), true, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Nil(t, ds)

	epoch, generating, _ := s.Progress()
	assert.True(t, generating, "generation must keep running")
	assert.Equal(t, uint64(2), epoch)

	release()
	ds, err = s.Full(context.Background(), SeedHash(2), false, nil)
	require.NoError(t, err)
	require.NotNil(t, ds)
	assert.Equal(t, uint64(2), ds.Epoch())
}

func TestFullStoreWeakRetention(t *testing.T) {
	bus := events.NewEventBus()
	_, ch := bus.Subscribe()
	s := newTestFullStore(bus)

	_, err := s.Full(context.Background(), SeedHash(0), true, nil)
	require.NoError(t, err)
	_, err = s.Full(context.Background(), SeedHash(1), true, nil)
	require.NoError(t, err)

	// Only the most recently used dataset is held strongly by the store.
	require.Eventually(t, func() bool {
		runtime.GC()
		return s.Resident() == 1
	}, 5*time.Second, 10*time.Millisecond)
	assert.NotNil(t, s.Lookup(SeedHash(1)))

	require.Eventually(t, func() bool {
		for len(ch) > 0 {
			if ev := <-ch; ev.Type() == events.EventDatasetReleased && ev.Epoch() == 0 {
				return true
			}
		}
		return false
	}, 5*time.Second, 10*time.Millisecond)

	// A released dataset is generated again on demand.
	ready, err := s.RequestGeneration(SeedHash(0), false)
	require.NoError(t, err)
	assert.False(t, ready)
	ds, err := s.Full(context.Background(), SeedHash(0), true, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), ds.Epoch())
}

func TestFullStoreHeldDatasetSurvives(t *testing.T) {
	s := newTestFullStore(nil)

	held, err := s.Full(context.Background(), SeedHash(0), true, nil)
	require.NoError(t, err)
	_, err = s.Full(context.Background(), SeedHash(1), true, nil)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		runtime.GC()
	}
	assert.Equal(t, 2, s.Resident())
	assert.Same(t, held, s.Lookup(SeedHash(0)))
	runtime.KeepAlive(held)
}

func TestFullStoreConcurrentRequestsStartOneGeneration(t *testing.T) {
	bus := events.NewEventBus()
	id, ch := bus.Subscribe()
	defer bus.Unsubscribe(id)

	s := newTestFullStore(bus)
	gate := make(chan struct{})
	s.beforePublish = func(uint64) { <-gate }

	var wg sync.WaitGroup
	for i := uint64(0); i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ready, err := s.RequestGeneration(SeedHash(i%4), true)
			assert.NoError(t, err)
			assert.False(t, ready)
		}()
	}
	wg.Wait()

	started := 0
	for drained := false; !drained; {
		select {
		case ev := <-ch:
			if ev.Type() == events.EventDatasetGenerationStarted {
				started++
			}
		default:
			drained = true
		}
	}
	assert.Equal(t, 1, started)
	_, generating, _ := s.Progress()
	assert.True(t, generating)

	close(gate)
	require.Eventually(t, func() bool {
		_, generating, _ := s.Progress()
		return !generating
	}, 5*time.Second, 5*time.Millisecond)
}
