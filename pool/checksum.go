package pool

import (
	"encoding/hex"

	"golang.org/x/crypto/sha3"
)

// ChecksumHex renders addr as an EIP-55 mixed-case checksummed hex string
// (no "0x" prefix), for log lines and error messages — addresses otherwise
// flow through the system as raw bytes or lowercase hex.
func ChecksumHex(addr Address) string {
	lower := hex.EncodeToString(addr[:])

	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(lower))
	digest := h.Sum(nil)

	out := make([]byte, len(lower))
	for i, c := range []byte(lower) {
		if c >= '0' && c <= '9' {
			out[i] = c
			continue
		}
		nibble := digest[i/2]
		if i%2 == 0 {
			nibble >>= 4
		} else {
			nibble &= 0x0F
		}
		if nibble >= 8 {
			out[i] = c - ('a' - 'A')
		} else {
			out[i] = c
		}
	}
	return string(out)
}
