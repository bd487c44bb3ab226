// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rfq

import (
	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/rfq/contract"
)

// Deposit locks the attached native value under id. A later deposit for the
// same id overwrites the record; amounts do not accumulate.
func (e *Engine) Deposit(state contract.StateDB, ctx CallContext, id RFQID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := validateRFQID(id); err != nil {
		return err
	}
	value := ctx.value()
	if value.IsZero() {
		return ErrInvalidDepositAmount
	}
	e.lockNative(id, value)
	if e.store != nil {
		if err := e.store.putEscrow(id, value); err != nil {
			e.unlockNative(id)
			return err
		}
	}
	e.emit(Event{Type: EventDepositCreated, RFQID: id, Party: ctx.Caller, Asset: NativeAsset, Amount: value.Clone()})
	return nil
}

// Withdraw returns the full escrowed amount under id to the caller. The
// record is cleared, in memory and in the store, before the send; a reentrant
// withdraw of the same id finds nothing to release.
func (e *Engine) Withdraw(state contract.StateDB, ctx CallContext, id RFQID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	amount := e.escrow[id]
	if amount == nil || amount.IsZero() {
		return ErrNoDepositFound
	}
	e.unlockNative(id)
	if e.store != nil {
		if err := e.store.deleteEscrow(id); err != nil {
			e.lockNative(id, amount)
			return err
		}
	}
	if err := e.sendNative(state, ctx.Caller, amount); err != nil {
		e.lockNative(id, amount)
		if e.store != nil {
			if perr := e.store.putEscrow(id, amount); perr != nil {
				return perr
			}
		}
		return err
	}
	e.emit(Event{Type: EventDepositWithdrawn, RFQID: id, Party: ctx.Caller, Asset: NativeAsset, Amount: amount.Clone()})
	return nil
}

// lockNative records amount under id and adds it to tracked custody. An
// overwritten record's amount leaves custody tracking, matching the
// no-accumulation rule.
func (e *Engine) lockNative(id RFQID, amount *uint256.Int) {
	if prior := e.escrow[id]; prior != nil {
		e.held.Sub(e.held, prior)
	}
	e.escrow[id] = amount.Clone()
	e.held.Add(e.held, amount)
}

// unlockNative clears the record under id and removes it from custody.
func (e *Engine) unlockNative(id RFQID) {
	if prior := e.escrow[id]; prior != nil {
		e.held.Sub(e.held, prior)
		delete(e.escrow, id)
	}
}

// releaseNative sends amount of the value escrowed under id to to. The escrow
// is decremented before the send so a reentrant release cannot double-spend.
func (e *Engine) releaseNative(state contract.StateDB, id RFQID, to common.Address, amount *uint256.Int) error {
	recorded := e.escrow[id]
	if recorded == nil || recorded.Cmp(amount) < 0 {
		return ErrInsufficientEscrow
	}
	remaining := new(uint256.Int).Sub(recorded, amount)
	if remaining.IsZero() {
		delete(e.escrow, id)
	} else {
		e.escrow[id] = remaining
	}
	e.held.Sub(e.held, amount)
	if err := e.sendNative(state, to, amount); err != nil {
		e.escrow[id] = recorded
		e.held.Add(e.held, amount)
		return err
	}
	if e.store != nil {
		if remaining.IsZero() {
			return e.store.deleteEscrow(id)
		}
		return e.store.putEscrow(id, remaining)
	}
	return nil
}

// DepositQuoteAsset locks amount of asset under quoteID in the generalized
// escrow. A quote id carries at most one live record; depositing over an
// existing record fails. Native deposits use the attached value, token
// deposits pull from the caller.
func (e *Engine) DepositQuoteAsset(state contract.StateDB, ctx CallContext, quoteID RFQID, asset common.Address, amount *uint256.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := validateRFQID(quoteID); err != nil {
		return err
	}
	if asset == (common.Address{}) {
		return ErrInvalidAsset
	}
	if amount == nil || amount.IsZero() {
		return ErrInvalidAmount
	}
	if existing := e.quoteEscrow[quoteID]; existing != nil && !existing.Amount.IsZero() {
		return ErrEscrowExists
	}

	if asset == NativeAsset {
		if ctx.value().Cmp(amount) != 0 {
			return ErrInvalidDepositAmount
		}
		e.held.Add(e.held, amount)
	} else {
		if err := e.tokens.TransferFrom(asset, ctx.Caller, e.address, amount); err != nil {
			return ErrInsufficientBalanceOrAllowance
		}
	}
	e.quoteEscrow[quoteID] = &AssetEscrow{Asset: asset, Amount: amount.Clone(), Depositor: ctx.Caller}
	e.emit(Event{Type: EventDepositCreated, RFQID: quoteID, Party: ctx.Caller, Asset: asset, Amount: amount.Clone()})
	return nil
}

// CancelQuoteAsset returns a generalized escrow to its depositor. Only the
// recorded depositor may cancel.
func (e *Engine) CancelQuoteAsset(state contract.StateDB, ctx CallContext, quoteID RFQID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec := e.quoteEscrow[quoteID]
	if rec == nil || rec.Amount.IsZero() {
		return ErrNoDepositFound
	}
	if rec.Depositor != ctx.Caller {
		return ErrNotDepositor
	}

	// Clear before refunding.
	delete(e.quoteEscrow, quoteID)
	if rec.Asset == NativeAsset {
		e.held.Sub(e.held, rec.Amount)
		if err := e.sendNative(state, rec.Depositor, rec.Amount); err != nil {
			e.held.Add(e.held, rec.Amount)
			e.quoteEscrow[quoteID] = rec
			return err
		}
	} else {
		if err := e.tokens.Transfer(rec.Asset, e.address, rec.Depositor, rec.Amount); err != nil {
			e.quoteEscrow[quoteID] = rec
			return ErrTransferFailed
		}
	}
	e.emit(Event{Type: EventDepositWithdrawn, RFQID: quoteID, Party: rec.Depositor, Asset: rec.Asset, Amount: rec.Amount.Clone()})
	return nil
}

// consumeQuoteEscrow pays amount out of the generalized escrow under quoteID
// to to. Partial consumption decrements the record; it is deleted when it
// reaches zero. The decrement happens before the send.
func (e *Engine) consumeQuoteEscrow(state contract.StateDB, quoteID RFQID, to common.Address, amount *uint256.Int) error {
	rec := e.quoteEscrow[quoteID]
	if rec == nil || rec.Amount.Cmp(amount) < 0 {
		return ErrInsufficientEscrow
	}
	remaining := new(uint256.Int).Sub(rec.Amount, amount)
	if remaining.IsZero() {
		delete(e.quoteEscrow, quoteID)
	} else {
		e.quoteEscrow[quoteID] = &AssetEscrow{Asset: rec.Asset, Amount: remaining, Depositor: rec.Depositor}
	}
	if rec.Asset == NativeAsset {
		e.held.Sub(e.held, amount)
		if err := e.sendNative(state, to, amount); err != nil {
			e.held.Add(e.held, amount)
			e.quoteEscrow[quoteID] = rec
			return err
		}
		return nil
	}
	if err := e.tokens.Transfer(rec.Asset, e.address, to, amount); err != nil {
		e.quoteEscrow[quoteID] = rec
		return ErrTransferFailed
	}
	return nil
}
