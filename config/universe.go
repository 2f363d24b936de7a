// Package config builds the pool universe a Graph is populated from: a
// SQLite database or a flat config file. The compiled-in part is the
// Arbitrum token address table; DefaultUniverse holds no pools. SQLite access
// mirrors the teacher's syncharvester package, which persists and reloads
// the same shape of pool-universe row.
package config

import (
	"bufio"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"fulcrum/ferr"
	"fulcrum/pool"
)

// PoolSpec is one row of the compiled-in or loaded pool universe, ready to
// hand to graph.AddPool once its runtime State has been populated by an
// initial Refresher pass.
type PoolSpec struct {
	Exchange pool.Exchange
	Address  pool.Address
	TokenA   pool.Token
	TokenB   pool.Token
	FeeTier  uint16
}

// arbitrumToken maps spec.md's fixed token ids to their Arbitrum mainnet
// ERC-20 addresses, taken from the upstream constants table this universe
// was compiled against. GMX is intentionally absent: spec.md bounds the
// token universe to the six ids below.
var arbitrumToken = map[pool.Token]pool.Address{
	pool.USDC: hexAddr("0xFF970A61A04b1cA14834A43f5dE4533eBDDB5CC8"),
	pool.WETH: hexAddr("0x82aF49447D8a07e3bd95BD0d56f35241523fBab1"),
	pool.WBTC: hexAddr("0x2f2a2543B76A4166549F7aaB2e75Bef0aefC5B0f"),
	pool.ARB:  hexAddr("0x912CE59144191C1204E64559FE8253a0e49E6548"),
	pool.USDT: hexAddr("0xFd086bC7CD5C481DCC9C85ebE478A1C0b69FCbb9"),
	pool.DAI:  hexAddr("0xDA10009cBd5D07dd0CeCc66161FC93D7c9000da1"),
}

// TokenAddress returns the on-chain ERC-20 address compiled in for tok.
func TokenAddress(tok pool.Token) (pool.Address, bool) {
	a, ok := arbitrumToken[tok]
	return a, ok
}

func hexAddr(s string) pool.Address {
	s = strings.TrimPrefix(s, "0x")
	var a pool.Address
	for i := 0; i < 20; i++ {
		b, err := strconv.ParseUint(s[i*2:i*2+2], 16, 8)
		if err != nil {
			panic("config: bad compiled-in address literal " + s)
		}
		a[i] = byte(b)
	}
	return a
}

// DefaultUniverse returns the empty starting point: no pools. Real
// deployments populate the universe via LoadSQLite or LoadFlatFile; tests
// and --dry-run smoke checks may append PoolSpec values directly.
func DefaultUniverse() []PoolSpec {
	return nil
}

// LoadSQLite reads the pool universe from a SQLite database at path, in
// the schema the teacher's harvester already writes:
//
//	CREATE TABLE pools (exchange INTEGER, address TEXT, token_a INTEGER, token_b INTEGER, fee_tier INTEGER)
//
// Returns ferr.FatalConfig on any error — a bad universe file is a startup
// failure, not a recoverable one.
func LoadSQLite(path string) ([]PoolSpec, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, ferr.New(ferr.FatalConfig, fmt.Sprintf("config: open sqlite universe: %v", err))
	}
	defer db.Close()

	rows, err := db.Query(`SELECT exchange, address, token_a, token_b, fee_tier FROM pools`)
	if err != nil {
		return nil, ferr.New(ferr.FatalConfig, fmt.Sprintf("config: query pool universe: %v", err))
	}
	defer rows.Close()

	var specs []PoolSpec
	for rows.Next() {
		var exch, tokenA, tokenB, feeTier int
		var addrHex string
		if err := rows.Scan(&exch, &addrHex, &tokenA, &tokenB, &feeTier); err != nil {
			return nil, ferr.New(ferr.FatalConfig, fmt.Sprintf("config: scan pool row: %v", err))
		}
		spec, err := specFromRow(exch, addrHex, tokenA, tokenB, feeTier)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	if err := rows.Err(); err != nil {
		return nil, ferr.New(ferr.FatalConfig, fmt.Sprintf("config: iterate pool rows: %v", err))
	}
	return specs, nil
}

// LoadFlatFile reads the pool universe from a plain-text config file: one
// pool per line, `exchange,address,tokenA,tokenB,fee`, per spec.md §6.
// Blank lines and lines starting with '#' are skipped.
func LoadFlatFile(path string) ([]PoolSpec, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ferr.New(ferr.FatalConfig, fmt.Sprintf("config: open universe file: %v", err))
	}
	defer f.Close()

	var specs []PoolSpec
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, ",")
		if len(fields) != 5 {
			return nil, ferr.New(ferr.FatalConfig, fmt.Sprintf("config: universe file line %d: want 5 fields, got %d", lineNo, len(fields)))
		}
		exch, err := strconv.Atoi(strings.TrimSpace(fields[0]))
		if err != nil {
			return nil, ferr.New(ferr.FatalConfig, fmt.Sprintf("config: universe file line %d: bad exchange id: %v", lineNo, err))
		}
		tokenA, err := strconv.Atoi(strings.TrimSpace(fields[2]))
		if err != nil {
			return nil, ferr.New(ferr.FatalConfig, fmt.Sprintf("config: universe file line %d: bad tokenA id: %v", lineNo, err))
		}
		tokenB, err := strconv.Atoi(strings.TrimSpace(fields[3]))
		if err != nil {
			return nil, ferr.New(ferr.FatalConfig, fmt.Sprintf("config: universe file line %d: bad tokenB id: %v", lineNo, err))
		}
		fee, err := strconv.Atoi(strings.TrimSpace(fields[4]))
		if err != nil {
			return nil, ferr.New(ferr.FatalConfig, fmt.Sprintf("config: universe file line %d: bad fee: %v", lineNo, err))
		}
		spec, err := specFromRow(exch, strings.TrimSpace(fields[1]), tokenA, tokenB, fee)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	if err := scanner.Err(); err != nil {
		return nil, ferr.New(ferr.FatalConfig, fmt.Sprintf("config: read universe file: %v", err))
	}
	return specs, nil
}

func specFromRow(exch int, addrHex string, tokenA, tokenB, feeTier int) (PoolSpec, error) {
	if exch < 0 || exch >= pool.NumExchanges {
		return PoolSpec{}, ferr.New(ferr.FatalConfig, fmt.Sprintf("config: exchange id %d out of range", exch))
	}
	if tokenA < 0 || tokenA >= pool.NumTokens || tokenB < 0 || tokenB >= pool.NumTokens {
		return PoolSpec{}, ferr.New(ferr.FatalConfig, fmt.Sprintf("config: token id out of range (a=%d b=%d)", tokenA, tokenB))
	}
	a := pool.Token(tokenA)
	b := pool.Token(tokenB)
	if a >= b {
		return PoolSpec{}, ferr.New(ferr.FatalConfig, "config: tokenA must be < tokenB (ordered by address, spec.md §3)")
	}
	addrHex = strings.TrimPrefix(addrHex, "0x")
	if len(addrHex) != 40 {
		return PoolSpec{}, ferr.New(ferr.FatalConfig, fmt.Sprintf("config: address %q is not 20 bytes", addrHex))
	}
	raw, err := hex.DecodeString(addrHex)
	if err != nil {
		return PoolSpec{}, ferr.New(ferr.FatalConfig, fmt.Sprintf("config: address %q is not hex: %v", addrHex, err))
	}
	var addr pool.Address
	copy(addr[:], raw)
	return PoolSpec{
		Exchange: pool.Exchange(exch),
		Address:  addr,
		TokenA:   a,
		TokenB:   b,
		FeeTier:  uint16(feeTier),
	}, nil
}
