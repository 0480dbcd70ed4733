package giga

// Deriver turns an xpubkey into a deterministic sequence of chain
// addresses, using BIP-32 public child-key derivation so the indexer
// never needs the wallet's private keys.
type Deriver interface {
	// DeriveAddress returns the address at the given non-hardened
	// child index below xpubkey.
	DeriveAddress(xpubkey string, index uint32) (Address, error)
}
