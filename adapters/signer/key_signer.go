package signer

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/layer-3/herald/core"
	"github.com/layer-3/herald/internal/typeddata"
	"github.com/layer-3/herald/ports"
)

// KeySigner signs with a local secp256k1 key
type KeySigner struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// NewKeySigner creates a signer for key
func NewKeySigner(key *ecdsa.PrivateKey) ports.Signer {
	return &KeySigner{key: key, address: crypto.PubkeyToAddress(key.PublicKey)}
}

// NewKeySignerFromHex parses a hex-encoded private key
func NewKeySignerFromHex(hexKey string) (ports.Signer, error) {
	if len(hexKey) >= 2 && hexKey[:2] == "0x" {
		hexKey = hexKey[2:]
	}
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	return NewKeySigner(key), nil
}

func (s *KeySigner) Address() common.Address {
	return s.address
}

// SignMessage signs text with the EIP-191 personal message prefix
func (s *KeySigner) SignMessage(ctx context.Context, text string) ([]byte, error) {
	return s.sign(accounts.TextHash([]byte(text)))
}

// SignTypedData hashes the payload per EIP-712 and signs the digest
func (s *KeySigner) SignTypedData(ctx context.Context, domain, types, value typeddata.Value) ([]byte, error) {
	data, err := ToAPITypedData(domain, types, value)
	if err != nil {
		return nil, core.NewError(core.StageSign, core.ErrPayloadMismatch, "cannot encode payload", err)
	}
	hash, _, err := apitypes.TypedDataAndHash(*data)
	if err != nil {
		return nil, core.NewError(core.StageSign, core.ErrPayloadMismatch, "cannot hash payload", err)
	}
	return s.sign(hash)
}

func (s *KeySigner) sign(hash []byte) ([]byte, error) {
	sig, err := crypto.Sign(hash, s.key)
	if err != nil {
		return nil, core.NewError(core.StageSign, core.ErrSignerUnavailable, "", err)
	}
	sig[64] += 27
	return sig, nil
}

// ToAPITypedData converts a payload into the go-ethereum EIP-712 model.
// Integer literals become *big.Int so no precision is lost on the way.
func ToAPITypedData(domain, types, value typeddata.Value) (*apitypes.TypedData, error) {
	envelope, err := typeddata.Envelope(domain, types, value)
	if err != nil {
		return nil, err
	}
	envTypes, _ := envelope.Get("types")
	parsed, err := typeddata.ParseTypes(envTypes)
	if err != nil {
		return nil, err
	}
	primary, _ := envelope.Get("primaryType")
	primaryType, _ := primary.Str()

	out := &apitypes.TypedData{
		Types:       make(apitypes.Types, len(parsed.Names())),
		PrimaryType: primaryType,
	}
	for _, name := range parsed.Names() {
		fields, _ := parsed.Fields(name)
		members := make([]apitypes.Type, len(fields))
		for i, f := range fields {
			members[i] = apitypes.Type{Name: f.Name, Type: f.Type}
		}
		out.Types[name] = members
	}

	if out.Domain, err = toDomain(domain); err != nil {
		return nil, err
	}

	message, ok := toGo(value).(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("message must be an object, got %s", value.Kind())
	}
	out.Message = message
	return out, nil
}

func toDomain(domain typeddata.Value) (apitypes.TypedDataDomain, error) {
	var d apitypes.TypedDataDomain
	for _, f := range domain.Fields() {
		text, _ := f.Value.Text()
		switch f.Name {
		case "name":
			d.Name = text
		case "version":
			d.Version = text
		case "chainId":
			chainID, ok := math.ParseBig256(text)
			if !ok {
				return d, fmt.Errorf("invalid domain chainId %q", text)
			}
			d.ChainId = (*math.HexOrDecimal256)(chainID)
		case "verifyingContract":
			d.VerifyingContract = text
		case "salt":
			d.Salt = text
		default:
			return d, fmt.Errorf("unknown domain field %q", f.Name)
		}
	}
	return d, nil
}

// toGo is Value.Interface with integer literals converted to *big.Int, the
// form the go-ethereum encoder accepts without going through float64
func toGo(v typeddata.Value) interface{} {
	switch v.Kind() {
	case typeddata.KindNumber:
		lit, _ := v.Literal()
		if n, ok := new(big.Int).SetString(lit, 10); ok {
			return n
		}
		return lit
	case typeddata.KindArray:
		items := v.Items()
		out := make([]interface{}, len(items))
		for i, item := range items {
			out[i] = toGo(item)
		}
		return out
	case typeddata.KindObject:
		fields := v.Fields()
		out := make(map[string]interface{}, len(fields))
		for _, f := range fields {
			out[f.Name] = toGo(f.Value)
		}
		return out
	default:
		return v.Interface()
	}
}
