// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package contract

import (
	"errors"

	"github.com/luxfi/crypto"
)

// SelectorLen is the length of an EVM function selector.
const SelectorLen = 4

// WordLen is the length of one ABI-encoded word.
const WordLen = 32

var (
	ErrOutOfGas     = errors.New("out of gas")
	ErrShortInput   = errors.New("input too short")
	ErrWriteProtect = errors.New("write protection: read-only call")
)

// CalculateFunctionSelector returns the first 4 bytes of the Keccak256 hash
// of a canonical function signature, e.g. "deposit(bytes32)".
func CalculateFunctionSelector(signature string) [4]byte {
	var selector [4]byte
	copy(selector[:], crypto.Keccak256([]byte(signature))[:SelectorLen])
	return selector
}

// SplitInput separates a precompile input into its selector and arguments.
func SplitInput(input []byte) ([4]byte, []byte, error) {
	if len(input) < SelectorLen {
		return [4]byte{}, nil, ErrShortInput
	}
	var selector [4]byte
	copy(selector[:], input[:SelectorLen])
	return selector, input[SelectorLen:], nil
}
