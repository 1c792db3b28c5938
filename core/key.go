package core

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// DeriveKey maps an account address to its registry key: keccak256 over the
// 20 canonical address bytes. Derivation is casing-insensitive, so the same
// key is produced on read and write paths regardless of how the caller
// spelled the address.
func DeriveKey(address string) (RegistryKey, error) {
	if !common.IsHexAddress(address) {
		return RegistryKey{}, ErrInvalidAddress
	}
	addr := common.HexToAddress(address)
	return crypto.Keccak256Hash(addr.Bytes()), nil
}

// CanonicalAddress returns the EIP-55 checksummed form of an address, used
// wherever addresses are compared or stored as map keys.
func CanonicalAddress(address string) (string, error) {
	if !common.IsHexAddress(address) {
		return "", ErrInvalidAddress
	}
	return common.HexToAddress(address).Hex(), nil
}

// SameAddress compares two addresses case-insensitively after validating
// both are well-formed.
func SameAddress(a, b string) bool {
	if !common.IsHexAddress(a) || !common.IsHexAddress(b) {
		return false
	}
	return common.HexToAddress(a) == common.HexToAddress(b)
}
