package config

import (
	"os"
	"path/filepath"
	"testing"

	"fulcrum/ferr"
	"fulcrum/pool"
)

func TestLoadFlatFileParsesPools(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "universe.csv")
	content := "# comment\n" +
		"0,0xFF970A61A04b1cA14834A43f5dE4533eBDDB5CC8,0,1,500\n" +
		"\n" +
		"2,0x82aF49447D8a07e3bd95BD0d56f35241523fBab1,1,3,30\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	specs, err := LoadFlatFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(specs) != 2 {
		t.Fatalf("got %d specs, want 2", len(specs))
	}
	if specs[0].Exchange != pool.UniswapV3 || specs[0].TokenA != pool.USDC || specs[0].TokenB != pool.WETH {
		t.Fatalf("unexpected first spec: %+v", specs[0])
	}
	if specs[1].Exchange != pool.Sushi || specs[1].FeeTier != 30 {
		t.Fatalf("unexpected second spec: %+v", specs[1])
	}
}

func TestLoadFlatFileRejectsUnorderedTokens(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "universe.csv")
	// tokenA=1 (WETH) >= tokenB=0 (USDC): invalid ordering.
	content := "0,0xFF970A61A04b1cA14834A43f5dE4533eBDDB5CC8,1,0,500\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadFlatFile(path)
	if k, ok := ferr.KindOf(err); !ok || k != ferr.FatalConfig {
		t.Fatalf("expected FatalConfig, got %v", err)
	}
}

func TestLoadFlatFileMissingFileIsFatalConfig(t *testing.T) {
	_, err := LoadFlatFile(filepath.Join(t.TempDir(), "does-not-exist.csv"))
	if k, ok := ferr.KindOf(err); !ok || k != ferr.FatalConfig {
		t.Fatalf("expected FatalConfig, got %v", err)
	}
}

func TestTokenAddressCompiledIn(t *testing.T) {
	addr, ok := TokenAddress(pool.WETH)
	if !ok {
		t.Fatal("expected WETH to have a compiled-in address")
	}
	if addr[0] != 0x82 {
		t.Fatalf("unexpected WETH address first byte: %x", addr[0])
	}
}
