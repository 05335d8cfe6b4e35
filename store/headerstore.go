package store

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mezonai/ethash/db"
	"github.com/mezonai/ethash/jsonx"
	"github.com/mezonai/ethash/logx"
	"github.com/mezonai/ethash/types"
)

var (
	ErrMissingNumber    = errors.New("header has no number")
	ErrNumberOutOfRange = errors.New("header number does not fit in 64 bits")
)

// HeaderStore persists block headers so that verification can look up a
// header's parent. The last header written for a number becomes canonical.
type HeaderStore interface {
	Put(h *types.Header) error
	HeaderByHash(hash common.Hash) (*types.Header, error)
	HeaderByNumber(number uint64) (*types.Header, error)
	Parent(h *types.Header) (*types.Header, error)
	Head() (*types.Header, error)
	Close() error
}

// GenericHeaderStore is a database-agnostic HeaderStore over a DatabaseProvider.
type GenericHeaderStore struct {
	provider db.DatabaseProvider
	mu       sync.RWMutex
	head     uint64
	hasHead  bool
}

// NewGenericHeaderStore creates a header store with the given provider
func NewGenericHeaderStore(provider db.DatabaseProvider) (*GenericHeaderStore, error) {
	if provider == nil {
		return nil, fmt.Errorf("provider cannot be nil")
	}
	s := &GenericHeaderStore{provider: provider}
	if err := s.loadHead(); err != nil {
		return nil, fmt.Errorf("failed to load metadata: %w", err)
	}
	return s, nil
}

func (s *GenericHeaderStore) loadHead() error {
	value, err := s.provider.Get([]byte(PrefixHeaderMeta + HeaderMetaKeyHead))
	if err != nil {
		return fmt.Errorf("failed to get head: %w", err)
	}
	if value == nil {
		return nil
	}
	if len(value) != 8 {
		return fmt.Errorf("invalid head value length: %d", len(value))
	}
	s.head = binary.BigEndian.Uint64(value)
	s.hasHead = true
	return nil
}

func headerKey(hash common.Hash) []byte {
	return append([]byte(PrefixHeader), hash.Bytes()...)
}

func canonicalKey(number uint64) []byte {
	key := make([]byte, len(PrefixCanonical)+8)
	copy(key, PrefixCanonical)
	binary.BigEndian.PutUint64(key[len(PrefixCanonical):], number)
	return key
}

// Put stores h, marks it canonical for its number and advances the head.
func (s *GenericHeaderStore) Put(h *types.Header) error {
	if h.Number == nil {
		return ErrMissingNumber
	}
	if !h.Number.IsUint64() {
		return fmt.Errorf("%w: %v", ErrNumberOutOfRange, h.Number)
	}
	value, err := jsonx.Marshal(h)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}
	hash := h.Hash()
	number := h.NumberU64()

	s.mu.Lock()
	defer s.mu.Unlock()

	batch := s.provider.Batch()
	batch.Put(headerKey(hash), value)
	batch.Put(canonicalKey(number), hash.Bytes())
	advance := !s.hasHead || number >= s.head
	if advance {
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], number)
		batch.Put([]byte(PrefixHeaderMeta+HeaderMetaKeyHead), buf[:])
	}
	if err := batch.Write(); err != nil {
		return fmt.Errorf("failed to write header %d: %w", number, err)
	}
	if advance {
		s.head = number
		s.hasHead = true
	}
	logx.Debug("HEADERSTORE", fmt.Sprintf("Stored header | number=%d | hash=%s", number, hash.Hex()))
	return nil
}

// HeaderByHash returns the header with the given hash, or nil if unknown.
func (s *GenericHeaderStore) HeaderByHash(hash common.Hash) (*types.Header, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.headerByHash(hash)
}

func (s *GenericHeaderStore) headerByHash(hash common.Hash) (*types.Header, error) {
	value, err := s.provider.Get(headerKey(hash))
	if err != nil {
		return nil, fmt.Errorf("failed to get header %s: %w", hash.Hex(), err)
	}
	if value == nil {
		return nil, nil
	}
	var h types.Header
	if err := jsonx.Unmarshal(value, &h); err != nil {
		return nil, fmt.Errorf("failed to unmarshal header %s: %w", hash.Hex(), err)
	}
	return &h, nil
}

// HeaderByNumber returns the canonical header at number, or nil if unknown.
func (s *GenericHeaderStore) HeaderByNumber(number uint64) (*types.Header, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.headerByNumber(number)
}

func (s *GenericHeaderStore) headerByNumber(number uint64) (*types.Header, error) {
	value, err := s.provider.Get(canonicalKey(number))
	if err != nil {
		return nil, fmt.Errorf("failed to get canonical hash %d: %w", number, err)
	}
	if value == nil {
		return nil, nil
	}
	return s.headerByHash(common.BytesToHash(value))
}

// Parent returns the header h builds on, or nil if it is not stored.
func (s *GenericHeaderStore) Parent(h *types.Header) (*types.Header, error) {
	return s.HeaderByHash(h.ParentHash)
}

// Head returns the canonical header with the highest number, or nil for an
// empty store.
func (s *GenericHeaderStore) Head() (*types.Header, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.hasHead {
		return nil, nil
	}
	return s.headerByNumber(s.head)
}

func (s *GenericHeaderStore) Close() error {
	return s.provider.Close()
}
