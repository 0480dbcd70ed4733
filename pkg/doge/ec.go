package doge

import (
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

const (
	ECPrivKeyLen            = 32
	ECPubKeyCompressedLen   = 33
	ECPubKeyUncompressedLen = 65
)

// ECPubKeyFromECPrivKey computes the compressed public key for a
// 32-byte secp256k1 private key.
func ECPubKeyFromECPrivKey(priv []byte) []byte {
	priv_key := secp256k1.PrivKeyFromBytes(priv)
	return priv_key.PubKey().SerializeCompressed()
}

// ECKeyIsValid reports whether key parses as a valid compressed or
// uncompressed secp256k1 public key.
func ECKeyIsValid(key []byte) bool {
	_, err := secp256k1.ParsePubKey(key)
	return err == nil
}
