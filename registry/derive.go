package registry

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

// DeriveAddress maps (seed, namespace) to a stable 20-byte address. The same
// inputs always produce the same address, so a candidate record can be located
// without any secondary index. The seed is length-prefixed so the encoding is
// canonical and two different (namespace, seed) pairs never hash the same
// byte stream.
func DeriveAddress(seed string, namespace common.Address) common.Address {
	var seedLen [8]byte
	binary.BigEndian.PutUint64(seedLen[:], uint64(len(seed)))

	d := sha3.NewLegacyKeccak256()
	d.Write(namespace.Bytes())
	d.Write(seedLen[:])
	d.Write([]byte(seed))

	hash := d.Sum(nil)
	return common.BytesToAddress(hash[12:])
}
