package deriver

import (
	"fmt"

	giga "github.com/dogeorg/utxoindexer/pkg"
)

// MemoryDeriver is a deterministic stand-in for BIP32Deriver, used by
// tests that want reproducible addresses without constructing a real
// xpubkey. The same (xpubkey, index) pair always yields the same
// synthetic address.
type MemoryDeriver struct{}

func (MemoryDeriver) DeriveAddress(xpubkey string, index uint32) (giga.Address, error) {
	return giga.Address(fmt.Sprintf("test%s_%d", xpubkey, index)), nil
}

var _ giga.Deriver = MemoryDeriver{}
