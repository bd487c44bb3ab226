// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rfq

import (
	"encoding/binary"
	"errors"
	"time"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/rfq/contract"
	"github.com/luxfi/rfq/registry"
)

// ContractAddress is the reserved address of the RFQ settlement precompile
// on the C-Chain (LP-9200: Markets page, C-Chain slot).
var ContractAddress = registry.SettlementAddress(registry.SlotCChain)

// Function selectors
var (
	// Entry points
	SelectorDeposit         = contract.CalculateFunctionSelector("deposit(bytes32)")
	SelectorWithdraw        = contract.CalculateFunctionSelector("withdraw(bytes32)")
	SelectorExecute         = contract.CalculateFunctionSelector("execute(bytes32,address,address,address,uint256,uint256)")
	SelectorInitiateDeposit = contract.CalculateFunctionSelector("initiateDeposit(uint32,address,address,uint256,uint256,uint64,address,address,address)")
	SelectorAccept          = contract.CalculateFunctionSelector("acceptCrossDomainRFQ(bytes32)")
	SelectorReclaim         = contract.CalculateFunctionSelector("reclaim(bytes32)")
	SelectorOnMessage       = contract.CalculateFunctionSelector("onMessage(bytes,address,uint32,bytes32)")
	SelectorSetCounterpart  = contract.CalculateFunctionSelector("setTrustedCounterpart(uint32,address)")
	SelectorDepositQuote    = contract.CalculateFunctionSelector("depositQuoteAsset(bytes32,address,uint256)")
	SelectorCancelQuote     = contract.CalculateFunctionSelector("cancelQuoteAsset(bytes32)")

	// Views
	SelectorGetDeposit         = contract.CalculateFunctionSelector("getDeposit(bytes32)")
	SelectorEscrowBalance      = contract.CalculateFunctionSelector("escrowBalance(bytes32)")
	SelectorIsProcessed        = contract.CalculateFunctionSelector("isProcessed(bytes32)")
	SelectorTrustedCounterpart = contract.CalculateFunctionSelector("trustedCounterpart(uint32)")
	SelectorDomainNonce        = contract.CalculateFunctionSelector("domainNonce(uint32)")
)

var ErrInvalidInput = errors.New("invalid input")

var _ contract.StatefulPrecompiledContract = (*SettlementPrecompile)(nil)

// SettlementPrecompile exposes an Engine as a stateful precompiled contract.
type SettlementPrecompile struct {
	engine *Engine
}

// NewSettlementPrecompile wraps an engine. The engine's configured address
// should match the address the precompile is registered at.
func NewSettlementPrecompile(engine *Engine) *SettlementPrecompile {
	return &SettlementPrecompile{engine: engine}
}

// Engine returns the wrapped engine.
func (p *SettlementPrecompile) Engine() *Engine {
	return p.engine
}

// Run executes the settlement precompile.
func (p *SettlementPrecompile) Run(
	accessibleState contract.AccessibleState,
	caller common.Address,
	addr common.Address,
	input []byte,
	suppliedGas uint64,
	readOnly bool,
) ([]byte, uint64, error) {
	selector, args, err := contract.SplitInput(input)
	if err != nil {
		return nil, suppliedGas, err
	}
	state := accessibleState.GetStateDB()

	switch selector {
	case SelectorDeposit:
		return p.deposit(state, caller, args, suppliedGas, readOnly)
	case SelectorWithdraw:
		return p.withdraw(state, caller, args, suppliedGas, readOnly)
	case SelectorExecute:
		return p.execute(state, caller, args, suppliedGas, readOnly)
	case SelectorInitiateDeposit:
		return p.initiateDeposit(state, caller, args, suppliedGas, readOnly)
	case SelectorAccept:
		return p.accept(state, caller, args, suppliedGas, readOnly)
	case SelectorReclaim:
		return p.reclaim(state, caller, args, suppliedGas, readOnly)
	case SelectorOnMessage:
		return p.onMessage(state, caller, args, suppliedGas, readOnly)
	case SelectorSetCounterpart:
		return p.setCounterpart(caller, args, suppliedGas, readOnly)
	case SelectorDepositQuote:
		return p.depositQuote(state, caller, args, suppliedGas, readOnly)
	case SelectorCancelQuote:
		return p.cancelQuote(state, caller, args, suppliedGas, readOnly)

	case SelectorGetDeposit:
		return p.getDeposit(args, suppliedGas)
	case SelectorEscrowBalance:
		return p.escrowBalance(args, suppliedGas)
	case SelectorIsProcessed:
		return p.isProcessed(args, suppliedGas)
	case SelectorTrustedCounterpart:
		return p.trustedCounterpart(args, suppliedGas)
	case SelectorDomainNonce:
		return p.domainNonce(args, suppliedGas)

	default:
		return nil, suppliedGas, ErrInvalidInput
	}
}

func (p *SettlementPrecompile) callContext(state contract.StateDB, caller common.Address) CallContext {
	return CallContext{Caller: caller, Value: p.engine.attachedValue(state)}
}

func (p *SettlementPrecompile) deposit(state contract.StateDB, caller common.Address, args []byte, suppliedGas uint64, readOnly bool) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, contract.ErrWriteProtect
	}
	remainingGas, err := contract.DeductGas(suppliedGas, GasDeposit)
	if err != nil {
		return nil, 0, err
	}
	id, err := rfqIDArg(args, 0)
	if err != nil {
		return nil, remainingGas, err
	}
	return nil, remainingGas, p.engine.Deposit(state, p.callContext(state, caller), id)
}

func (p *SettlementPrecompile) withdraw(state contract.StateDB, caller common.Address, args []byte, suppliedGas uint64, readOnly bool) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, contract.ErrWriteProtect
	}
	remainingGas, err := contract.DeductGas(suppliedGas, GasWithdraw)
	if err != nil {
		return nil, 0, err
	}
	id, err := rfqIDArg(args, 0)
	if err != nil {
		return nil, remainingGas, err
	}
	return nil, remainingGas, p.engine.Withdraw(state, p.callContext(state, caller), id)
}

func (p *SettlementPrecompile) execute(state contract.StateDB, caller common.Address, args []byte, suppliedGas uint64, readOnly bool) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, contract.ErrWriteProtect
	}
	remainingGas, err := contract.DeductGas(suppliedGas, GasExecute)
	if err != nil {
		return nil, 0, err
	}
	if len(args) < 6*contract.WordLen {
		return nil, remainingGas, ErrInvalidInput
	}
	id, _ := rfqIDArg(args, 0)
	params := TradeParams{
		RFQID:       id,
		Creator:     addressArg(args, 1),
		BaseAsset:   addressArg(args, 2),
		QuoteAsset:  addressArg(args, 3),
		BaseAmount:  uint256Arg(args, 4),
		QuoteAmount: uint256Arg(args, 5),
	}
	return nil, remainingGas, p.engine.Execute(state, p.callContext(state, caller), params)
}

func (p *SettlementPrecompile) initiateDeposit(state contract.StateDB, caller common.Address, args []byte, suppliedGas uint64, readOnly bool) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, contract.ErrWriteProtect
	}
	remainingGas, err := contract.DeductGas(suppliedGas, GasInitiate)
	if err != nil {
		return nil, 0, err
	}
	if len(args) < 9*contract.WordLen {
		return nil, remainingGas, ErrInvalidInput
	}
	params := DepositParams{
		DestDomain:       uint32Arg(args, 0),
		BaseAsset:        addressArg(args, 1),
		QuoteAsset:       addressArg(args, 2),
		BaseAmount:       uint256Arg(args, 3),
		QuoteAmount:      uint256Arg(args, 4),
		Expiry:           time.Duration(uint64Arg(args, 5)) * time.Second,
		AcceptorOnSource: addressArg(args, 6),
		QuoteRecipient:   addressArg(args, 7),
		RefundAddress:    addressArg(args, 8),
	}
	id, seq, err := p.engine.InitiateDeposit(state, p.callContext(state, caller), params)
	if err != nil {
		return nil, remainingGas, err
	}
	out := make([]byte, 2*contract.WordLen)
	copy(out[:32], id[:])
	binary.BigEndian.PutUint64(out[56:], seq)
	return out, remainingGas, nil
}

func (p *SettlementPrecompile) accept(state contract.StateDB, caller common.Address, args []byte, suppliedGas uint64, readOnly bool) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, contract.ErrWriteProtect
	}
	remainingGas, err := contract.DeductGas(suppliedGas, GasAccept)
	if err != nil {
		return nil, 0, err
	}
	id, err := rfqIDArg(args, 0)
	if err != nil {
		return nil, remainingGas, err
	}
	return nil, remainingGas, p.engine.AcceptCrossDomainRFQ(state, p.callContext(state, caller), id)
}

func (p *SettlementPrecompile) reclaim(state contract.StateDB, caller common.Address, args []byte, suppliedGas uint64, readOnly bool) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, contract.ErrWriteProtect
	}
	remainingGas, err := contract.DeductGas(suppliedGas, GasReclaim)
	if err != nil {
		return nil, 0, err
	}
	id, err := rfqIDArg(args, 0)
	if err != nil {
		return nil, remainingGas, err
	}
	return nil, remainingGas, p.engine.Reclaim(state, p.callContext(state, caller), id)
}

func (p *SettlementPrecompile) onMessage(state contract.StateDB, caller common.Address, args []byte, suppliedGas uint64, readOnly bool) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, contract.ErrWriteProtect
	}
	remainingGas, err := contract.DeductGas(suppliedGas, GasOnMessage)
	if err != nil {
		return nil, 0, err
	}
	if len(args) < 4*contract.WordLen {
		return nil, remainingGas, ErrInvalidInput
	}
	payload, err := bytesArg(args, 0)
	if err != nil {
		return nil, remainingGas, err
	}
	sourceAddress := addressArg(args, 1)
	sourceDomain := uint32Arg(args, 2)
	var deliveryHash common.Hash
	copy(deliveryHash[:], args[3*contract.WordLen:4*contract.WordLen])

	ctx := p.callContext(state, caller)
	return nil, remainingGas, p.engine.OnMessage(state, ctx, payload, sourceAddress, sourceDomain, deliveryHash)
}

func (p *SettlementPrecompile) setCounterpart(caller common.Address, args []byte, suppliedGas uint64, readOnly bool) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, contract.ErrWriteProtect
	}
	remainingGas, err := contract.DeductGas(suppliedGas, GasSetCounterpart)
	if err != nil {
		return nil, 0, err
	}
	if len(args) < 2*contract.WordLen {
		return nil, remainingGas, ErrInvalidInput
	}
	domain := uint32Arg(args, 0)
	addr := addressArg(args, 1)
	ctx := CallContext{Caller: caller}
	return nil, remainingGas, p.engine.SetTrustedCounterpart(ctx, domain, addr)
}

func (p *SettlementPrecompile) depositQuote(state contract.StateDB, caller common.Address, args []byte, suppliedGas uint64, readOnly bool) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, contract.ErrWriteProtect
	}
	remainingGas, err := contract.DeductGas(suppliedGas, GasDeposit)
	if err != nil {
		return nil, 0, err
	}
	if len(args) < 3*contract.WordLen {
		return nil, remainingGas, ErrInvalidInput
	}
	id, _ := rfqIDArg(args, 0)
	asset := addressArg(args, 1)
	amount := uint256Arg(args, 2)
	return nil, remainingGas, p.engine.DepositQuoteAsset(state, p.callContext(state, caller), id, asset, amount)
}

func (p *SettlementPrecompile) cancelQuote(state contract.StateDB, caller common.Address, args []byte, suppliedGas uint64, readOnly bool) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, contract.ErrWriteProtect
	}
	remainingGas, err := contract.DeductGas(suppliedGas, GasWithdraw)
	if err != nil {
		return nil, 0, err
	}
	id, err := rfqIDArg(args, 0)
	if err != nil {
		return nil, remainingGas, err
	}
	return nil, remainingGas, p.engine.CancelQuoteAsset(state, p.callContext(state, caller), id)
}

// Views

func (p *SettlementPrecompile) getDeposit(args []byte, suppliedGas uint64) ([]byte, uint64, error) {
	remainingGas, err := contract.DeductGas(suppliedGas, GasView)
	if err != nil {
		return nil, 0, err
	}
	id, err := rfqIDArg(args, 0)
	if err != nil {
		return nil, remainingGas, err
	}
	rec, err := p.engine.GetDeposit(id)
	if err != nil {
		return nil, remainingGas, err
	}

	out := make([]byte, 11*contract.WordLen)
	packAddress(out, 0, rec.Creator)
	packAddress(out, 1, rec.BaseAsset)
	packAddress(out, 2, rec.QuoteAsset)
	rec.BaseAmount.WriteToSlice(word(out, 3))
	rec.QuoteAmount.WriteToSlice(word(out, 4))
	binary.BigEndian.PutUint32(word(out, 5)[28:], rec.SourceDomain)
	binary.BigEndian.PutUint32(word(out, 6)[28:], rec.DestDomain)
	binary.BigEndian.PutUint64(word(out, 7)[24:], rec.ExpiryTime)
	if rec.Settled {
		word(out, 8)[31] = 1
	}
	packAddress(out, 9, rec.AcceptorOnSource)
	packAddress(out, 10, rec.QuoteRecipient)
	return out, remainingGas, nil
}

func (p *SettlementPrecompile) escrowBalance(args []byte, suppliedGas uint64) ([]byte, uint64, error) {
	remainingGas, err := contract.DeductGas(suppliedGas, GasView)
	if err != nil {
		return nil, 0, err
	}
	id, err := rfqIDArg(args, 0)
	if err != nil {
		return nil, remainingGas, err
	}
	out := make([]byte, contract.WordLen)
	p.engine.EscrowBalance(id).WriteToSlice(out)
	return out, remainingGas, nil
}

func (p *SettlementPrecompile) isProcessed(args []byte, suppliedGas uint64) ([]byte, uint64, error) {
	remainingGas, err := contract.DeductGas(suppliedGas, GasView)
	if err != nil {
		return nil, 0, err
	}
	if len(args) < contract.WordLen {
		return nil, remainingGas, ErrInvalidInput
	}
	var hash common.Hash
	copy(hash[:], args[:contract.WordLen])
	out := make([]byte, contract.WordLen)
	if p.engine.IsProcessed(hash) {
		out[31] = 1
	}
	return out, remainingGas, nil
}

func (p *SettlementPrecompile) trustedCounterpart(args []byte, suppliedGas uint64) ([]byte, uint64, error) {
	remainingGas, err := contract.DeductGas(suppliedGas, GasView)
	if err != nil {
		return nil, 0, err
	}
	if len(args) < contract.WordLen {
		return nil, remainingGas, ErrInvalidInput
	}
	out := make([]byte, contract.WordLen)
	packAddress(out, 0, p.engine.TrustedCounterpart(uint32Arg(args, 0)))
	return out, remainingGas, nil
}

func (p *SettlementPrecompile) domainNonce(args []byte, suppliedGas uint64) ([]byte, uint64, error) {
	remainingGas, err := contract.DeductGas(suppliedGas, GasView)
	if err != nil {
		return nil, 0, err
	}
	if len(args) < contract.WordLen {
		return nil, remainingGas, ErrInvalidInput
	}
	out := make([]byte, contract.WordLen)
	binary.BigEndian.PutUint64(out[24:], p.engine.DomainNonce(uint32Arg(args, 0)))
	return out, remainingGas, nil
}

// Argument helpers. All fixed arguments are 32-byte words; addresses occupy
// the last 20 bytes, small integers the big-endian tail.

func word(buf []byte, i int) []byte {
	return buf[i*contract.WordLen : (i+1)*contract.WordLen]
}

func rfqIDArg(args []byte, i int) (RFQID, error) {
	if len(args) < (i+1)*contract.WordLen {
		return RFQID{}, ErrInvalidInput
	}
	var id RFQID
	copy(id[:], word(args, i))
	return id, nil
}

func addressArg(args []byte, i int) common.Address {
	return common.BytesToAddress(word(args, i)[12:])
}

func uint256Arg(args []byte, i int) *uint256.Int {
	return new(uint256.Int).SetBytes(word(args, i))
}

func uint32Arg(args []byte, i int) uint32 {
	return binary.BigEndian.Uint32(word(args, i)[28:])
}

func uint64Arg(args []byte, i int) uint64 {
	return binary.BigEndian.Uint64(word(args, i)[24:])
}

// bytesArg resolves a dynamic bytes argument through its head-word offset.
// Bounds checks subtract from the argument length so crafted offsets and
// lengths near the uint64 maximum cannot wrap past them.
func bytesArg(args []byte, i int) ([]byte, error) {
	offset := uint64Arg(args, i)
	if offset > uint64(len(args)) || uint64(len(args))-offset < uint64(contract.WordLen) {
		return nil, ErrInvalidInput
	}
	length := binary.BigEndian.Uint64(args[offset+24 : offset+32])
	start := offset + uint64(contract.WordLen)
	if length > uint64(len(args))-start {
		return nil, ErrInvalidInput
	}
	return args[start : start+length], nil
}

func packAddress(buf []byte, i int, addr common.Address) {
	copy(word(buf, i)[12:], addr[:])
}
