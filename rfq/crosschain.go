// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rfq

import (
	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/rfq/contract"
)

// InitiateDeposit locks the base asset locally, derives a fresh rfq id and
// submits a deposit notification toward the destination domain. The returned
// sequence number is the relay's.
//
// For a native base the attached value must cover baseAmount plus the relay's
// quoted fee; for a token base it must cover the fee alone, and baseAmount is
// pulled from the caller into engine custody. The entire value remainder is
// forwarded to the relay, which refunds unused delivery gas off-call.
func (e *Engine) InitiateDeposit(state contract.StateDB, ctx CallContext, p DepositParams) (RFQID, uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.counterparts[p.DestDomain] == (common.Address{}) {
		return RFQID{}, 0, ErrNoTrustedCounterpart
	}
	if p.Expiry < e.minExpiry {
		return RFQID{}, 0, ErrExpiryTooShort
	}
	if err := validateTradeParams(
		p.BaseAsset, p.QuoteAsset, p.BaseAmount, p.QuoteAmount,
		ctx.Caller, p.AcceptorOnSource, p.QuoteRecipient, p.RefundAddress,
	); err != nil {
		return RFQID{}, 0, err
	}

	fee := e.relay.Quote(p.DestDomain, ReturnGasLimit)
	value := ctx.value()
	if p.BaseAsset == NativeAsset {
		need := new(uint256.Int).Add(p.BaseAmount, fee)
		if value.Cmp(need) < 0 {
			return RFQID{}, 0, ErrInsufficientRelayFee
		}
	} else {
		if value.Cmp(fee) < 0 {
			return RFQID{}, 0, ErrInsufficientRelayFee
		}
		if !e.tokenPullCovered(p.BaseAsset, ctx.Caller, p.BaseAmount) {
			return RFQID{}, 0, ErrInsufficientBalanceOrAllowance
		}
	}

	now := e.now()
	nonce := e.nonces[p.DestDomain]
	e.nonces[p.DestDomain] = nonce + 1
	id := deriveRFQID(e.localDomain, p.DestDomain, ctx.Caller, nonce, now.UnixNano())
	expiryTime := uint64(now.Add(p.Expiry).Unix())

	payload := EncodeDepositNotification(&DepositNotification{
		RFQID:            id,
		Creator:          ctx.Caller,
		BaseAsset:        p.BaseAsset,
		QuoteAsset:       p.QuoteAsset,
		BaseAmount:       p.BaseAmount,
		QuoteAmount:      p.QuoteAmount,
		ExpiryTime:       expiryTime,
		AcceptorOnSource: p.AcceptorOnSource,
		QuoteRecipient:   p.QuoteRecipient,
	})

	// The message is submitted before custody is taken, so a relay failure
	// aborts the call with no state written. The token pull below cannot
	// fail: it was pre-flighted under the engine lock.
	var remainder *uint256.Int
	if p.BaseAsset == NativeAsset {
		remainder = new(uint256.Int).Sub(value, p.BaseAmount)
	} else {
		remainder = value.Clone()
	}
	seq, err := e.relay.Send(p.DestDomain, payload, remainder)
	if err != nil {
		e.nonces[p.DestDomain] = nonce
		return RFQID{}, 0, err
	}
	if err := e.sendNative(state, e.relayAddr, remainder); err != nil {
		e.nonces[p.DestDomain] = nonce
		return RFQID{}, 0, err
	}

	if p.BaseAsset == NativeAsset {
		e.lockNative(id, p.BaseAmount)
		if e.store != nil {
			if err := e.store.putEscrow(id, p.BaseAmount); err != nil {
				return RFQID{}, 0, err
			}
		}
	} else {
		if err := e.tokens.TransferFrom(p.BaseAsset, ctx.Caller, e.address, p.BaseAmount); err != nil {
			return RFQID{}, 0, ErrInsufficientBalanceOrAllowance
		}
	}

	rec := &CrossDomainDeposit{
		RFQID:            id,
		Creator:          ctx.Caller,
		BaseAsset:        p.BaseAsset,
		QuoteAsset:       p.QuoteAsset,
		BaseAmount:       p.BaseAmount.Clone(),
		QuoteAmount:      p.QuoteAmount.Clone(),
		SourceDomain:     e.localDomain,
		DestDomain:       p.DestDomain,
		ExpiryTime:       expiryTime,
		Settled:          false,
		AcceptorOnSource: p.AcceptorOnSource,
		QuoteRecipient:   p.QuoteRecipient,
		RefundAddress:    p.RefundAddress,
	}
	e.deposits[id] = rec
	if e.store != nil {
		if err := e.store.putDeposit(rec); err != nil {
			return RFQID{}, 0, err
		}
		if err := e.store.putNonce(p.DestDomain, nonce+1); err != nil {
			return RFQID{}, 0, err
		}
	}

	e.emit(Event{
		Type:     EventDepositInitiated,
		RFQID:    id,
		Party:    ctx.Caller,
		Asset:    p.BaseAsset,
		Amount:   p.BaseAmount.Clone(),
		Domain:   p.DestDomain,
		Sequence: seq,
	})
	return id, seq, nil
}

// AcceptCrossDomainRFQ fulfills a cross-domain RFQ on the destination domain.
// The caller pays the quote asset to the recorded recipient and a settlement
// confirmation is relayed back toward the source domain. The record is marked
// settled before any value moves.
func (e *Engine) AcceptCrossDomainRFQ(state contract.StateDB, ctx CallContext, id RFQID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec := e.deposits[id]
	if rec == nil {
		return ErrDepositNotFound
	}
	if rec.Settled {
		return ErrAlreadySettled
	}
	if uint64(e.now().Unix()) > rec.ExpiryTime {
		return ErrExpiredDeposit
	}

	returnCost := e.relay.Quote(rec.SourceDomain, ReturnGasLimit)
	value := ctx.value()
	var remainder *uint256.Int
	if rec.QuoteAsset == NativeAsset {
		if value.Cmp(rec.QuoteAmount) < 0 {
			return ErrValueMismatch
		}
		remainder = new(uint256.Int).Sub(value, rec.QuoteAmount)
		if remainder.Cmp(returnCost) < 0 {
			return ErrInsufficientRelayFee
		}
	} else {
		if value.Cmp(returnCost) < 0 {
			return ErrInsufficientRelayFee
		}
		remainder = value.Clone()
		if !e.tokenPullCovered(rec.QuoteAsset, ctx.Caller, rec.QuoteAmount) {
			return ErrInsufficientBalanceOrAllowance
		}
	}

	// Terminal-state-first: settled goes true before any send, so a
	// reentrant accept of the same id fails on the settled check.
	rec.Settled = true
	payload := EncodeSettlementConfirmation(id)
	seq, err := e.relay.Send(rec.SourceDomain, payload, remainder)
	if err != nil {
		rec.Settled = false
		return err
	}

	if rec.QuoteAsset == NativeAsset {
		if err := e.sendNative(state, rec.QuoteRecipient, rec.QuoteAmount); err != nil {
			rec.Settled = false
			return err
		}
	} else {
		if err := e.tokens.TransferFrom(rec.QuoteAsset, ctx.Caller, rec.QuoteRecipient, rec.QuoteAmount); err != nil {
			rec.Settled = false
			return ErrInsufficientBalanceOrAllowance
		}
	}
	// Unused delivery gas is refunded to the acceptor by the relay.
	if err := e.sendNative(state, e.relayAddr, remainder); err != nil {
		return err
	}
	if e.store != nil {
		if err := e.store.putDeposit(rec); err != nil {
			return err
		}
	}

	e.emit(Event{
		Type:     EventTradeExecuted,
		RFQID:    id,
		Party:    ctx.Caller,
		Asset:    rec.QuoteAsset,
		Amount:   rec.QuoteAmount.Clone(),
		Domain:   rec.SourceDomain,
		Sequence: seq,
	})
	return nil
}

// Reclaim returns the locked base asset of an expired, unsettled deposit to
// its creator. The settled flag doubles as the terminal marker here: setting
// it blocks both a second reclaim and a late settlement confirmation.
func (e *Engine) Reclaim(state contract.StateDB, ctx CallContext, id RFQID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec := e.deposits[id]
	if rec == nil {
		return ErrDepositNotFound
	}
	if ctx.Caller != rec.Creator {
		return ErrNotCreator
	}
	if uint64(e.now().Unix()) <= rec.ExpiryTime {
		return ErrDepositNotExpired
	}
	if rec.Settled {
		return ErrAlreadySettled
	}

	refundTo := rec.RefundAddress
	if refundTo == (common.Address{}) {
		refundTo = rec.Creator
	}

	rec.Settled = true
	if rec.BaseAsset == NativeAsset {
		if err := e.releaseNative(state, id, refundTo, rec.BaseAmount); err != nil {
			rec.Settled = false
			return err
		}
	} else {
		if err := e.tokens.Transfer(rec.BaseAsset, e.address, refundTo, rec.BaseAmount); err != nil {
			rec.Settled = false
			return ErrTransferFailed
		}
	}
	if e.store != nil {
		if err := e.store.putDeposit(rec); err != nil {
			return err
		}
	}

	e.emit(Event{
		Type:   EventDepositReclaimed,
		RFQID:  id,
		Party:  refundTo,
		Asset:  rec.BaseAsset,
		Amount: rec.BaseAmount.Clone(),
	})
	return nil
}
