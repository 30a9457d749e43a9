package wallet

// Wallet keys for the Polarise sweep
// Derives the lowercase 0x address and signs the login challenge with EIP-191 personal-message signing
// Pure and deterministic: no network, no state beyond the parsed key

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// ChallengePrefix is prepended to the server nonce to form the signed message.
const ChallengePrefix = "Nonce to confirm: "

var (
	// ErrInvalidKey is returned when a private key cannot be parsed
	ErrInvalidKey = errors.New("invalid private key")

	// ErrInvalidSignature is returned when a signature cannot be decoded or recovered
	ErrInvalidSignature = errors.New("invalid signature")
)

// Wallet holds a parsed private key and its derived address.
type Wallet struct {
	key     *ecdsa.PrivateKey
	address string
}

// Parse parses a hex private key, with or without 0x prefix.
func Parse(privateKey string) (*Wallet, error) {
	raw := strings.TrimSpace(privateKey)
	raw = strings.TrimPrefix(strings.TrimPrefix(raw, "0x"), "0X")
	if raw == "" {
		return nil, fmt.Errorf("empty key: %w", ErrInvalidKey)
	}

	key, err := crypto.HexToECDSA(raw)
	if err != nil {
		// the underlying error may echo key material, keep it out
		return nil, fmt.Errorf("parse key: %w", ErrInvalidKey)
	}

	return &Wallet{
		key:     key,
		address: strings.ToLower(crypto.PubkeyToAddress(key.PublicKey).Hex()),
	}, nil
}

// Address returns the lowercase 0x-prefixed address.
func (w *Wallet) Address() string {
	return w.address
}

// SignChallenge signs the challenge message built from nonce.
func (w *Wallet) SignChallenge(nonce string) (string, error) {
	return w.SignMessage(ChallengeMessage(nonce))
}

// SignMessage signs message with the personal-message scheme and returns 0x hex (r || s || v, v in {27, 28}).
func (w *Wallet) SignMessage(message string) (string, error) {
	sig, err := crypto.Sign(accounts.TextHash([]byte(message)), w.key)
	if err != nil {
		return "", fmt.Errorf("sign message: %w", err)
	}
	sig[crypto.RecoveryIDOffset] += 27
	return hexutil.Encode(sig), nil
}

// ChallengeMessage builds the canonical challenge string for nonce.
func ChallengeMessage(nonce string) string {
	return ChallengePrefix + nonce
}

// DeriveAddress returns the lowercase address for privateKey.
func DeriveAddress(privateKey string) (string, error) {
	w, err := Parse(privateKey)
	if err != nil {
		return "", err
	}
	return w.Address(), nil
}

// SignChallenge parses privateKey and signs the challenge for nonce.
func SignChallenge(privateKey, nonce string) (string, error) {
	w, err := Parse(privateKey)
	if err != nil {
		return "", err
	}
	return w.SignChallenge(nonce)
}

// RecoverAddress recovers the signer address of a personal-message signature.
func RecoverAddress(message, signature string) (string, error) {
	sig, err := hexutil.Decode(signature)
	if err != nil {
		return "", fmt.Errorf("decode signature: %w", ErrInvalidSignature)
	}
	if len(sig) != crypto.SignatureLength {
		return "", fmt.Errorf("signature must be %d bytes: %w", crypto.SignatureLength, ErrInvalidSignature)
	}

	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}
	pub, err := crypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return "", fmt.Errorf("recover public key: %w", ErrInvalidSignature)
	}
	return strings.ToLower(crypto.PubkeyToAddress(*pub).Hex()), nil
}

// ShortAddress shortens an address for console output.
func ShortAddress(address string) string {
	if len(address) <= 10 {
		return address
	}
	return address[:10] + "..."
}
