package contract

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/layer-3/herald/core"
	"github.com/layer-3/herald/internal/typeddata"
)

// Field names follow the ABI component names so the packer can match them.

// EIP712Signature is DataTypes.EIP712Signature
type EIP712Signature struct {
	V        uint8
	R        [32]byte
	S        [32]byte
	Deadline *big.Int
}

// PostWithSigData is DataTypes.PostWithSigData
type PostWithSigData struct {
	ProfileId               *big.Int
	ContentURI              string
	CollectModule           common.Address
	CollectModuleInitData   []byte
	ReferenceModule         common.Address
	ReferenceModuleInitData []byte
	Sig                     EIP712Signature
}

// CommentWithSigData is DataTypes.CommentWithSigData
type CommentWithSigData struct {
	ProfileId               *big.Int
	ContentURI              string
	ProfileIdPointed        *big.Int
	PubIdPointed            *big.Int
	ReferenceModuleData     []byte
	CollectModule           common.Address
	CollectModuleInitData   []byte
	ReferenceModule         common.Address
	ReferenceModuleInitData []byte
	Sig                     EIP712Signature
}

// MirrorWithSigData is DataTypes.MirrorWithSigData
type MirrorWithSigData struct {
	ProfileId               *big.Int
	ProfileIdPointed        *big.Int
	PubIdPointed            *big.Int
	ReferenceModuleData     []byte
	ReferenceModule         common.Address
	ReferenceModuleInitData []byte
	Sig                     EIP712Signature
}

// methodFor returns the contract method submitting kind
func methodFor(kind core.ActionKind) (string, error) {
	switch kind {
	case core.ActionPost:
		return "postWithSig", nil
	case core.ActionComment:
		return "commentWithSig", nil
	case core.ActionMirror:
		return "mirrorWithSig", nil
	default:
		return "", fmt.Errorf("unsupported action kind %q", kind)
	}
}

// buildArgs maps the signed value field by field into the call struct of kind
func buildArgs(kind core.ActionKind, value typeddata.Value, sig EIP712Signature) (interface{}, error) {
	r := fieldReader{value: value}
	switch kind {
	case core.ActionPost:
		args := PostWithSigData{
			ProfileId:               r.uint256("profileId"),
			ContentURI:              r.str("contentURI"),
			CollectModule:           r.address("collectModule"),
			CollectModuleInitData:   r.bytes("collectModuleInitData"),
			ReferenceModule:         r.address("referenceModule"),
			ReferenceModuleInitData: r.bytes("referenceModuleInitData"),
			Sig:                     sig,
		}
		return args, r.err
	case core.ActionComment:
		args := CommentWithSigData{
			ProfileId:               r.uint256("profileId"),
			ContentURI:              r.str("contentURI"),
			ProfileIdPointed:        r.uint256("profileIdPointed"),
			PubIdPointed:            r.uint256("pubIdPointed"),
			ReferenceModuleData:     r.bytes("referenceModuleData"),
			CollectModule:           r.address("collectModule"),
			CollectModuleInitData:   r.bytes("collectModuleInitData"),
			ReferenceModule:         r.address("referenceModule"),
			ReferenceModuleInitData: r.bytes("referenceModuleInitData"),
			Sig:                     sig,
		}
		return args, r.err
	case core.ActionMirror:
		args := MirrorWithSigData{
			ProfileId:               r.uint256("profileId"),
			ProfileIdPointed:        r.uint256("profileIdPointed"),
			PubIdPointed:            r.uint256("pubIdPointed"),
			ReferenceModuleData:     r.bytes("referenceModuleData"),
			ReferenceModule:         r.address("referenceModule"),
			ReferenceModuleInitData: r.bytes("referenceModuleInitData"),
			Sig:                     sig,
		}
		return args, r.err
	default:
		return nil, fmt.Errorf("unsupported action kind %q", kind)
	}
}

// fieldReader reads typed fields from a value and keeps the first error
type fieldReader struct {
	value typeddata.Value
	err   error
}

func (r *fieldReader) text(name string) (string, bool) {
	if r.err != nil {
		return "", false
	}
	v, ok := r.value.Get(name)
	if !ok {
		r.err = fmt.Errorf("missing field %q", name)
		return "", false
	}
	text, ok := v.Text()
	if !ok {
		r.err = fmt.Errorf("field %q must be a scalar, got %s", name, v.Kind())
		return "", false
	}
	return text, true
}

func (r *fieldReader) uint256(name string) *big.Int {
	text, ok := r.text(name)
	if !ok {
		return nil
	}
	n, ok := math.ParseBig256(text)
	if !ok || n.Sign() < 0 {
		r.err = fmt.Errorf("field %q is not a uint256: %q", name, text)
		return nil
	}
	return n
}

func (r *fieldReader) str(name string) string {
	text, _ := r.text(name)
	return text
}

func (r *fieldReader) address(name string) common.Address {
	text, ok := r.text(name)
	if !ok {
		return common.Address{}
	}
	if !common.IsHexAddress(text) {
		r.err = fmt.Errorf("field %q is not an address: %q", name, text)
		return common.Address{}
	}
	return common.HexToAddress(text)
}

func (r *fieldReader) bytes(name string) []byte {
	text, ok := r.text(name)
	if !ok {
		return nil
	}
	b, err := hexutil.Decode(text)
	if err != nil {
		r.err = fmt.Errorf("field %q is not hex bytes: %w", name, err)
		return nil
	}
	return b
}
