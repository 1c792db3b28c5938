// Package eth wraps the go-ethereum primitives used for proving control of
// an address: EIP-191 personal-message hashing, signing, and recovery.
package eth

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// SignatureLength is the expected length of a [R || S || V] signature.
const SignatureLength = 65

// PersonalHash returns the EIP-191 hash of a message, the digest wallets
// produce for personal_sign requests.
func PersonalHash(message []byte) common.Hash {
	return common.BytesToHash(accounts.TextHash(message))
}

// SignPersonal signs a message with the EIP-191 prefix and returns the
// signature hex-encoded with V in the 27/28 convention wallets use.
func SignPersonal(message []byte, key *ecdsa.PrivateKey) (string, error) {
	hash := PersonalHash(message)
	sig, err := crypto.Sign(hash.Bytes(), key)
	if err != nil {
		return "", fmt.Errorf("signing message: %w", err)
	}
	sig[crypto.RecoveryIDOffset] += 27
	return hexutil.Encode(sig), nil
}

// RecoverPersonal recovers the address that produced a personal_sign
// signature over the given message. Accepts V as 0/1 or 27/28.
func RecoverPersonal(message []byte, signature string) (common.Address, error) {
	sig, err := hexutil.Decode(signature)
	if err != nil {
		return common.Address{}, fmt.Errorf("decoding signature: %w", err)
	}
	if len(sig) != SignatureLength {
		return common.Address{}, fmt.Errorf("signature must be %d bytes, got %d", SignatureLength, len(sig))
	}
	// crypto.SigToPub wants the recovery id in [0, 1].
	v := sig[crypto.RecoveryIDOffset]
	if v >= 27 {
		sig = append([]byte(nil), sig...)
		sig[crypto.RecoveryIDOffset] = v - 27
	}
	hash := PersonalHash(message)
	pub, err := crypto.SigToPub(hash.Bytes(), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("recovering public key: %w", err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// VerifyPersonal checks that signature over message was produced by the key
// controlling expected. Comparison is on canonical address bytes, so casing
// of the claimed address does not matter.
func VerifyPersonal(message []byte, signature string, expected string) error {
	if !common.IsHexAddress(expected) {
		return fmt.Errorf("%q is not a valid address", expected)
	}
	recovered, err := RecoverPersonal(message, signature)
	if err != nil {
		return err
	}
	if recovered != common.HexToAddress(expected) {
		return fmt.Errorf("recovered %s, expected %s", recovered.Hex(), common.HexToAddress(expected).Hex())
	}
	return nil
}
