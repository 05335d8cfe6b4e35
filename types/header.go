package types

import (
	"encoding/binary"
	"hash"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rlp"
	"golang.org/x/crypto/sha3"
)

// EmptyUncleHash is the keccak256 of the RLP encoding of an empty uncle list.
var EmptyUncleHash = common.HexToHash("1dcc4de8dec75d7aab85b567b6ccd41ad312451b948a7413f0a142fd40d49347")

// BloomByteLength is the number of bytes of a header log bloom.
const BloomByteLength = 256

// Bloom is the header log bloom. Only carried through hashing here.
type Bloom [BloomByteLength]byte

func (b Bloom) MarshalText() ([]byte, error) {
	return hexutil.Bytes(b[:]).MarshalText()
}

func (b *Bloom) UnmarshalText(input []byte) error {
	return hexutil.UnmarshalFixedText("Bloom", input, b[:])
}

// BlockNonce is the 64 bit proof-of-work nonce, big-endian on the wire.
type BlockNonce [8]byte

// EncodeNonce converts the given integer to a block nonce.
func EncodeNonce(i uint64) BlockNonce {
	var n BlockNonce
	binary.BigEndian.PutUint64(n[:], i)
	return n
}

// Uint64 returns the integer value of a block nonce.
func (n BlockNonce) Uint64() uint64 {
	return binary.BigEndian.Uint64(n[:])
}

func (n BlockNonce) MarshalText() ([]byte, error) {
	return hexutil.Bytes(n[:]).MarshalText()
}

func (n *BlockNonce) UnmarshalText(input []byte) error {
	return hexutil.UnmarshalFixedText("BlockNonce", input, n[:])
}

// Header is a pre-London Ethereum block header. Field order matches the RLP
// encoding.
type Header struct {
	ParentHash  common.Hash    `json:"parentHash"`
	UncleHash   common.Hash    `json:"sha3Uncles"`
	Coinbase    common.Address `json:"miner"`
	Root        common.Hash    `json:"stateRoot"`
	TxHash      common.Hash    `json:"transactionsRoot"`
	ReceiptHash common.Hash    `json:"receiptsRoot"`
	Bloom       Bloom          `json:"logsBloom"`
	Difficulty  *big.Int       `json:"difficulty"`
	Number      *big.Int       `json:"number"`
	GasLimit    uint64         `json:"gasLimit"`
	GasUsed     uint64         `json:"gasUsed"`
	Time        uint64         `json:"timestamp"`
	Extra       hexutil.Bytes  `json:"extraData"`
	MixDigest   common.Hash    `json:"mixHash"`
	Nonce       BlockNonce     `json:"nonce"`
}

// NumberU64 returns the block number, treating a missing number as zero.
func (h *Header) NumberU64() uint64 {
	if h.Number == nil {
		return 0
	}
	return h.Number.Uint64()
}

// HasUncles reports whether the header commits to a non-empty uncle list.
func (h *Header) HasUncles() bool {
	return h.UncleHash != EmptyUncleHash && h.UncleHash != (common.Hash{})
}

// Hash returns the keccak256 hash of the header's RLP encoding.
func (h *Header) Hash() common.Hash {
	return rlpHash(h)
}

// SealHash returns the hash of the header excluding the seal fields (mix
// digest and nonce). This is the value the proof-of-work is computed over.
func (h *Header) SealHash() common.Hash {
	return rlpHash([]interface{}{
		h.ParentHash,
		h.UncleHash,
		h.Coinbase,
		h.Root,
		h.TxHash,
		h.ReceiptHash,
		h.Bloom,
		bigOrZero(h.Difficulty),
		bigOrZero(h.Number),
		h.GasLimit,
		h.GasUsed,
		h.Time,
		[]byte(h.Extra),
	})
}

// Copy returns a deep copy of the header.
func (h *Header) Copy() *Header {
	cpy := *h
	if h.Difficulty != nil {
		cpy.Difficulty = new(big.Int).Set(h.Difficulty)
	}
	if h.Number != nil {
		cpy.Number = new(big.Int).Set(h.Number)
	}
	if len(h.Extra) > 0 {
		cpy.Extra = make([]byte, len(h.Extra))
		copy(cpy.Extra, h.Extra)
	}
	return &cpy
}

// DecodeHeaderRLP parses an RLP encoded header.
func DecodeHeaderRLP(data []byte) (*Header, error) {
	h := new(Header)
	if err := rlp.DecodeBytes(data, h); err != nil {
		return nil, err
	}
	return h, nil
}

// CalcUncleHash returns the uncle hash committed to by a header whose block
// carries the given uncles.
func CalcUncleHash(uncles []*Header) common.Hash {
	if len(uncles) == 0 {
		return EmptyUncleHash
	}
	return rlpHash(uncles)
}

var hasherPool = sync.Pool{
	New: func() interface{} { return sha3.NewLegacyKeccak256() },
}

func rlpHash(x interface{}) (h common.Hash) {
	sha := hasherPool.Get().(hash.Hash)
	defer hasherPool.Put(sha)
	sha.Reset()
	rlp.Encode(sha, x)
	sha.Sum(h[:0])
	return h
}

var big0 = new(big.Int)

func bigOrZero(v *big.Int) *big.Int {
	if v == nil {
		return big0
	}
	return v
}
