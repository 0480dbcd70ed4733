package doge

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/binary"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// HardenedChildOffset is added to a child index to request hardened
// derivation, per BIP-32. CKDpub cannot derive hardened children.
const HardenedChildOffset = 0x80000000

// CKDpub implements the BIP-32 public parent key -> public child key
// derivation function: given a compressed public key and its chain
// code, compute the non-hardened child at index i.
func CKDpub(pubKey []byte, chainCode [32]byte, index uint32) (childPubKey []byte, childChainCode [32]byte, err error) {
	if index >= HardenedChildOffset {
		return nil, childChainCode, fmt.Errorf("CKDpub: cannot derive a hardened child from a public key")
	}
	parentKey, err := secp256k1.ParsePubKey(pubKey)
	if err != nil {
		return nil, childChainCode, fmt.Errorf("CKDpub: invalid parent public key: %w", err)
	}

	data := make([]byte, 33+4)
	copy(data[0:33], parentKey.SerializeCompressed())
	binary.BigEndian.PutUint32(data[33:], index)

	mac := hmac.New(sha512.New, chainCode[:])
	mac.Write(data)
	I := mac.Sum(nil)
	IL, IR := I[:32], I[32:]
	copy(childChainCode[:], IR)

	var ilScalar secp256k1.ModNScalar
	if overflow := ilScalar.SetByteSlice(IL); overflow {
		return nil, childChainCode, fmt.Errorf("CKDpub: derived scalar out of range, try next index")
	}

	tweakPriv := secp256k1.NewPrivateKey(&ilScalar)
	tweakPoint := tweakPriv.PubKey()

	var parentJ, tweakJ, sumJ secp256k1.JacobianPoint
	parentKey.AsJacobian(&parentJ)
	tweakPoint.AsJacobian(&tweakJ)
	secp256k1.AddNonConst(&tweakJ, &parentJ, &sumJ)
	sumJ.ToAffine()

	childKey := secp256k1.NewPublicKey(&sumJ.X, &sumJ.Y)
	return childKey.SerializeCompressed(), childChainCode, nil
}

// DeriveChildAddress walks an xpub's public CKDpub chain to produce the
// address at child index `index` directly below it (depth+1, not
// hardened). chain selects the address-prefix/version used to decode
// the xpub and encode the resulting address.
func DeriveChildAddress(xpub string, index uint32, chain *ChainParams) (Address, error) {
	key, err := DecodeBip32WIF(xpub, chain)
	if err != nil {
		return "", fmt.Errorf("DeriveChildAddress: %w", err)
	}
	if key.IsPrivate() {
		return "", fmt.Errorf("DeriveChildAddress: not a public key")
	}
	childPub, _, err := CKDpub(key.GetECPubKey(), key.ChainCode(), index)
	if err != nil {
		return "", fmt.Errorf("DeriveChildAddress: %w", err)
	}
	return PubKeyToAddress(childPub, chain.p2pkh_address_prefix)
}
