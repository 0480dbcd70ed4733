// Package deriver provides giga.Deriver implementations: a production
// one backed by BIP-32 public child-key derivation, and a deterministic
// in-memory one for tests that don't want a real xpubkey.
package deriver

import (
	giga "github.com/dogeorg/utxoindexer/pkg"
	"github.com/dogeorg/utxoindexer/pkg/doge"
)

// BIP32Deriver derives chain addresses from an xpubkey using public
// child-key derivation (CKDpub), never touching a private key.
type BIP32Deriver struct {
	Chain *doge.ChainParams
}

func NewBIP32Deriver(chain *doge.ChainParams) BIP32Deriver {
	if chain == nil {
		chain = &doge.MainChain
	}
	return BIP32Deriver{Chain: chain}
}

func (d BIP32Deriver) DeriveAddress(xpubkey string, index uint32) (giga.Address, error) {
	addr, err := doge.DeriveChildAddress(xpubkey, index, d.Chain)
	if err != nil {
		return "", giga.WrapErr(giga.BadRequest, err, "derive address at index %d", index)
	}
	return giga.Address(addr), nil
}

var _ giga.Deriver = BIP32Deriver{}
