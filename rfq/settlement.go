// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rfq

import (
	"github.com/luxfi/rfq/contract"
)

// Execute settles a same-domain RFQ in one call. The caller is the acceptor:
// the base leg moves from the creator to the caller, the quote leg from the
// caller to the creator. There is no partial fill and no pending state; every
// check runs before the first transfer so a failed call moves nothing.
func (e *Engine) Execute(state contract.StateDB, ctx CallContext, p TradeParams) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := validateRFQID(p.RFQID); err != nil {
		return err
	}
	if err := validateTradeParams(p.BaseAsset, p.QuoteAsset, p.BaseAmount, p.QuoteAmount, p.Creator, ctx.Caller); err != nil {
		return err
	}

	// A quote escrow the caller placed earlier under the rfq id funds the
	// quote leg in place of an attached value or a fresh token pull.
	quoteRec := e.quoteEscrow[p.RFQID]
	fromEscrow := quoteRec != nil && quoteRec.Asset == p.QuoteAsset && quoteRec.Depositor == ctx.Caller

	// Attached value must exactly match the native quote amount, and must be
	// absent on escrowed and token trades so it cannot be silently stranded.
	value := ctx.value()
	if fromEscrow || p.QuoteAsset != NativeAsset {
		if !value.IsZero() {
			return ErrUnexpectedValue
		}
	} else if value.Cmp(p.QuoteAmount) != 0 {
		return ErrValueMismatch
	}

	// Pre-flight both legs.
	if p.BaseAsset == NativeAsset {
		if recorded := e.escrow[p.RFQID]; recorded == nil || recorded.Cmp(p.BaseAmount) < 0 {
			return ErrInsufficientEscrow
		}
	} else if !e.tokenPullCovered(p.BaseAsset, p.Creator, p.BaseAmount) {
		return ErrInsufficientBalanceOrAllowance
	}
	if fromEscrow {
		if quoteRec.Amount.Cmp(p.QuoteAmount) < 0 {
			return ErrInsufficientEscrow
		}
	} else if p.QuoteAsset != NativeAsset && !e.tokenPullCovered(p.QuoteAsset, ctx.Caller, p.QuoteAmount) {
		return ErrInsufficientBalanceOrAllowance
	}

	// Base leg: creator -> acceptor. Native base comes out of the creator's
	// prior escrow deposit keyed by the rfq id.
	if p.BaseAsset == NativeAsset {
		if err := e.releaseNative(state, p.RFQID, ctx.Caller, p.BaseAmount); err != nil {
			return err
		}
	} else {
		if err := e.transferAsset(state, p.BaseAsset, p.Creator, ctx.Caller, p.BaseAmount); err != nil {
			return err
		}
	}

	// Quote leg: acceptor -> creator. An escrowed quote is drawn down from
	// its record, native quote otherwise is the attached value.
	if fromEscrow {
		if err := e.consumeQuoteEscrow(state, p.RFQID, p.Creator, p.QuoteAmount); err != nil {
			return err
		}
	} else if err := e.transferAsset(state, p.QuoteAsset, ctx.Caller, p.Creator, p.QuoteAmount); err != nil {
		return err
	}

	e.emit(Event{
		Type:   EventTradeExecuted,
		RFQID:  p.RFQID,
		Party:  ctx.Caller,
		Asset:  p.BaseAsset,
		Amount: p.BaseAmount.Clone(),
		Domain: e.localDomain,
	})
	return nil
}
