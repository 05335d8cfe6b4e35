package cmd

import (
	"bytes"
	"context"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mezonai/ethash/config"
	"github.com/mezonai/ethash/ethash"
	"github.com/mezonai/ethash/jsonx"
	"github.com/mezonai/ethash/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeJSON(t *testing.T, dir, name string, v interface{}) string {
	t.Helper()
	data, err := jsonx.Marshal(v)
	require.NoError(t, err)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestSeedCommand(t *testing.T) {
	out, err := execute(t, "seed", "--block", "30000")
	require.NoError(t, err)

	var info epochInfo
	require.NoError(t, jsonx.Unmarshal([]byte(out), &info))
	assert.Equal(t, uint64(1), info.Epoch)
	assert.Equal(t, common.HexToHash("290decd9548b62a8d60345a988386fc84ba6bc95484008f6362f93160ef3e563"), info.Seed)
	assert.Equal(t, uint64(16907456), info.CacheSize)
}

func TestDifficultyCommand(t *testing.T) {
	dir := t.TempDir()
	chain := filepath.Join(dir, "chain.yml")
	require.NoError(t, os.WriteFile(chain, []byte("chain:\n  homestead_block: 0\n  byzantium_block: 4096\n"), 0o644))

	parent := writeJSON(t, dir, "parent.json", &types.Header{
		UncleHash:  types.EmptyUncleHash,
		Number:     big.NewInt(0x2000),
		Difficulty: big.NewInt(1000000),
		Time:       100,
	})
	header := writeJSON(t, dir, "header.json", &types.Header{Number: big.NewInt(0x2001), Time: 130})

	out, err := execute(t, "difficulty", "--chain", chain, "--parent", parent, "--header", header)
	require.NoError(t, err)
	assert.Equal(t, "999024\n", out)
}

func TestImportThenVerify(t *testing.T) {
	dir := t.TempDir()
	chain := filepath.Join(dir, "chain.yml")
	require.NoError(t, os.WriteFile(chain, []byte("chain:\n  homestead_block: 0\n  byzantium_block: 0\n  minimum_difficulty: 16\n"), 0o644))
	params, err := config.LoadChainParams(chain)
	require.NoError(t, err)

	engine := ethash.New(config.TestEthashConfig(), params, nil)
	genesis := &types.Header{
		UncleHash:  types.EmptyUncleHash,
		Difficulty: big.NewInt(100),
		Number:     big.NewInt(0),
		GasLimit:   5000,
		Time:       1000,
	}
	child := &types.Header{
		ParentHash: genesis.Hash(),
		UncleHash:  types.EmptyUncleHash,
		Number:     big.NewInt(1),
		GasLimit:   5000,
		Time:       1010,
	}
	child.Difficulty = engine.CalcDifficulty(child, genesis)
	sealed, err := engine.Seal(context.Background(), child, 1)
	require.NoError(t, err)

	headers := writeJSON(t, dir, "headers.json", []*types.Header{genesis, sealed})
	dbDir := filepath.Join(dir, "db")

	out, err := execute(t, "import", "--test", "--chain", chain, "--db", dbDir, "--header", headers)
	require.NoError(t, err)
	assert.Contains(t, out, "imported header 0")
	assert.Contains(t, out, "imported header 1")

	out, err = execute(t, "verify", "--test", "--chain", chain, "--db", dbDir, "--number", "1", "--level", "full")
	require.NoError(t, err)
	assert.Contains(t, out, "header 1 ("+sealed.Hash().Hex()+") valid at level full")

	broken := sealed.Copy()
	broken.MixDigest[0] ^= 0xff
	brokenPath := writeJSON(t, dir, "broken.json", broken)
	out, err = execute(t, "verify", "--test", "--chain", chain, "--header", brokenPath, "--level", "full")
	require.ErrorIs(t, err, ethash.ErrInvalidBlockNonce)
	assert.Contains(t, out, "computed mix "+sealed.MixDigest.Hex())
}

func TestReadHeadersSingleAndArray(t *testing.T) {
	dir := t.TempDir()
	h := &types.Header{Number: big.NewInt(7), Difficulty: big.NewInt(3)}

	single := writeJSON(t, dir, "single.json", h)
	headers, err := readHeaders(single)
	require.NoError(t, err)
	require.Len(t, headers, 1)
	assert.Equal(t, h.Hash(), headers[0].Hash())

	array := writeJSON(t, dir, "array.json", []*types.Header{h, h})
	headers, err = readHeaders(array)
	require.NoError(t, err)
	assert.Len(t, headers, 2)

	_, err = readHeader(array)
	assert.Error(t, err)

	withNull := filepath.Join(dir, "null.json")
	require.NoError(t, os.WriteFile(withNull, []byte(`[null]`), 0o644))
	_, err = readHeaders(withNull)
	assert.ErrorContains(t, err, "entry 0 is null")

	_, err = execute(t, "import", "--test", "--db", filepath.Join(dir, "db"), "--header", withNull)
	assert.ErrorContains(t, err, "entry 0 is null")
}

func TestSealThenVerifyCommands(t *testing.T) {
	dir := t.TempDir()
	chain := filepath.Join(dir, "chain.yml")
	require.NoError(t, os.WriteFile(chain, []byte("chain:\n  homestead_block: 0\n  byzantium_block: 0\n  minimum_difficulty: 16\n"), 0o644))

	parent := &types.Header{
		ParentHash: common.HexToHash("01"),
		UncleHash:  types.EmptyUncleHash,
		Difficulty: big.NewInt(100),
		Number:     big.NewInt(7),
		GasLimit:   5000,
		Time:       1000,
	}
	child := &types.Header{
		ParentHash: parent.Hash(),
		UncleHash:  types.EmptyUncleHash,
		Number:     big.NewInt(8),
		GasLimit:   5000,
		Time:       1010,
	}
	parentPath := writeJSON(t, dir, "parent.json", parent)
	childPath := writeJSON(t, dir, "child.json", child)

	out, err := execute(t, "seal", "--test", "--chain", chain, "--header", childPath, "--parent", parentPath, "--threads", "2")
	require.NoError(t, err)

	var sealed types.Header
	require.NoError(t, jsonx.Unmarshal([]byte(out), &sealed))
	assert.Equal(t, big.NewInt(100), sealed.Difficulty)
	assert.Equal(t, child.Number, sealed.Number)

	sealedPath := writeJSON(t, dir, "sealed.json", &sealed)
	out, err = execute(t, "verify", "--test", "--chain", chain, "--header", sealedPath, "--parent", parentPath, "--level", "full")
	require.NoError(t, err)
	assert.Contains(t, out, "header 8 ("+sealed.Hash().Hex()+") valid at level full")
}

func TestPregenerate(t *testing.T) {
	engine := ethash.New(config.TestEthashConfig(), nil, nil)
	seed := ethash.SeedHash(1)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := pregenerate(cancelled, engine, seed, 5*time.Millisecond)
	require.ErrorIs(t, err, context.Canceled)

	// The abandoned generation still completes and is picked up.
	ctx, stop := context.WithTimeout(context.Background(), 30*time.Second)
	defer stop()
	ds, err := pregenerate(ctx, engine, seed, 5*time.Millisecond)
	require.NoError(t, err)
	require.NotNil(t, ds)
	assert.Equal(t, uint64(1), ds.Epoch())
	assert.Equal(t, seed, ds.Seed())

	_, generating, _ := engine.GenerationProgress()
	assert.False(t, generating)
}
