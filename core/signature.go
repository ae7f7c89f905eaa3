package core

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// SignatureLength is the length of a raw secp256k1 signature: r || s || v
const SignatureLength = 65

// Signature is a signature decomposed for on-chain verification
type Signature struct {
	V uint8
	R [32]byte
	S [32]byte
}

// SplitSignature decomposes a raw 65-byte signature. A recovery id of 0 or 1
// is normalized to 27 or 28; any other id is rejected.
func SplitSignature(raw []byte) (Signature, error) {
	if len(raw) != SignatureLength {
		return Signature{}, NewError(StageCodec, ErrMalformedSignature,
			fmt.Sprintf("expected %d bytes, got %d", SignatureLength, len(raw)), nil)
	}

	var sig Signature
	copy(sig.R[:], raw[:32])
	copy(sig.S[:], raw[32:64])

	switch v := raw[64]; v {
	case 0, 1:
		sig.V = v + 27
	case 27, 28:
		sig.V = v
	default:
		return Signature{}, NewError(StageCodec, ErrMalformedSignature,
			fmt.Sprintf("invalid recovery id %d", v), nil)
	}
	return sig, nil
}

// SplitSignatureHex decodes a 0x-prefixed signature and splits it
func SplitSignatureHex(s string) (Signature, error) {
	raw, err := hexutil.Decode(s)
	if err != nil {
		return Signature{}, NewError(StageCodec, ErrMalformedSignature, "invalid hex", err)
	}
	return SplitSignature(raw)
}

// CombineSignature encodes sig back to r || s || v
func CombineSignature(sig Signature) []byte {
	raw := make([]byte, SignatureLength)
	copy(raw[:32], sig.R[:])
	copy(raw[32:64], sig.S[:])
	raw[64] = sig.V
	return raw
}

// Hex returns the 0x-prefixed raw encoding of sig
func (s Signature) Hex() string {
	return hexutil.Encode(CombineSignature(s))
}
