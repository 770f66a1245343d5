package messaging

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/rlp"
)

// Payload kinds carried over the channel. The envelope lets a single component
// route multiple instruction types without guessing at the codec.
const (
	KindDepositNotice   = "depositNotice"
	KindMintInstruction = "mintInstruction"
)

type envelope struct {
	Kind string
	Body []byte
}

// DepositNotice tells the ledger network that the relay took custody of a
// deposit on the source network.
type DepositNotice struct {
	User          [20]byte
	Asset         string
	Amount        *big.Int
	SourceNetwork string
}

// MintInstruction tells a remote swap engine to issue debt asset to the user.
type MintInstruction struct {
	User   [20]byte
	Amount *big.Int
}

func seal(kind string, body interface{}) ([]byte, error) {
	encoded, err := rlp.EncodeToBytes(body)
	if err != nil {
		return nil, err
	}
	return rlp.EncodeToBytes(&envelope{Kind: kind, Body: encoded})
}

func open(payload []byte) (*envelope, error) {
	var env envelope
	if err := rlp.DecodeBytes(payload, &env); err != nil {
		return nil, fmt.Errorf("messaging: malformed envelope: %w", err)
	}
	if strings.TrimSpace(env.Kind) == "" {
		return nil, fmt.Errorf("messaging: envelope kind required")
	}
	return &env, nil
}

// PayloadKind inspects the envelope without decoding the body.
func PayloadKind(payload []byte) (string, error) {
	env, err := open(payload)
	if err != nil {
		return "", err
	}
	return env.Kind, nil
}

// EncodeDepositNotice seals a deposit notice for transport.
func EncodeDepositNotice(n *DepositNotice) ([]byte, error) {
	if n == nil {
		return nil, fmt.Errorf("messaging: deposit notice required")
	}
	if n.Amount == nil {
		return nil, fmt.Errorf("messaging: deposit amount required")
	}
	return seal(KindDepositNotice, n)
}

// DecodeDepositNotice opens a deposit notice payload.
func DecodeDepositNotice(payload []byte) (*DepositNotice, error) {
	env, err := open(payload)
	if err != nil {
		return nil, err
	}
	if env.Kind != KindDepositNotice {
		return nil, fmt.Errorf("messaging: expected %s payload, got %s", KindDepositNotice, env.Kind)
	}
	var notice DepositNotice
	if err := rlp.DecodeBytes(env.Body, &notice); err != nil {
		return nil, fmt.Errorf("messaging: malformed deposit notice: %w", err)
	}
	return &notice, nil
}

// EncodeMintInstruction seals a mint instruction for transport.
func EncodeMintInstruction(in *MintInstruction) ([]byte, error) {
	if in == nil {
		return nil, fmt.Errorf("messaging: mint instruction required")
	}
	if in.Amount == nil {
		return nil, fmt.Errorf("messaging: mint amount required")
	}
	return seal(KindMintInstruction, in)
}

// DecodeMintInstruction opens a mint instruction payload.
func DecodeMintInstruction(payload []byte) (*MintInstruction, error) {
	env, err := open(payload)
	if err != nil {
		return nil, err
	}
	if env.Kind != KindMintInstruction {
		return nil, fmt.Errorf("messaging: expected %s payload, got %s", KindMintInstruction, env.Kind)
	}
	var instruction MintInstruction
	if err := rlp.DecodeBytes(env.Body, &instruction); err != nil {
		return nil, fmt.Errorf("messaging: malformed mint instruction: %w", err)
	}
	return &instruction, nil
}
