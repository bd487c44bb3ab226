// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rfq

import (
	"github.com/luxfi/geth/common"

	"github.com/luxfi/rfq/contract"
)

// OnMessage is the single inbound entry point for relayed messages. The
// caller must be the registered relay, the source address must be the trusted
// counterpart for the source domain, and the delivery hash must be fresh.
//
// The hash is marked consumed before dispatch. A handler failure therefore
// leaves the delivery consumed: an exact relay retry of the same delivery is
// rejected, while a retry under a new hash is the relay's concern.
func (e *Engine) OnMessage(
	state contract.StateDB,
	ctx CallContext,
	payload []byte,
	sourceAddress common.Address,
	sourceDomain uint32,
	deliveryHash common.Hash,
) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if ctx.Caller != e.relayAddr {
		return ErrUnauthorizedRelay
	}
	trusted := e.counterparts[sourceDomain]
	if trusted == (common.Address{}) || trusted != sourceAddress {
		return ErrUntrustedSource
	}
	if e.processed[deliveryHash] {
		return ErrAlreadyProcessed
	}
	e.processed[deliveryHash] = true
	if e.store != nil {
		if err := e.store.markProcessed(deliveryHash); err != nil {
			delete(e.processed, deliveryHash)
			return err
		}
	}

	if len(payload) == 0 {
		return ErrInvalidMessage
	}
	switch payload[0] {
	case MsgDepositNotification:
		return e.handleDepositNotification(sourceDomain, payload)
	case MsgSettlementConfirmation:
		return e.handleSettlementConfirmation(state, payload)
	default:
		return ErrInvalidMessage
	}
}

// handleDepositNotification records an inbound cross-domain deposit on this,
// the destination, domain: funds are locked on the source domain and an
// acceptor here may now fulfill the quote leg.
func (e *Engine) handleDepositNotification(sourceDomain uint32, payload []byte) error {
	n, err := DecodeDepositNotification(payload)
	if err != nil {
		return err
	}
	if uint64(e.now().Unix()) > n.ExpiryTime {
		return ErrExpiredDeposit
	}
	if e.deposits[n.RFQID] != nil {
		return ErrDepositExists
	}

	rec := &CrossDomainDeposit{
		RFQID:            n.RFQID,
		Creator:          n.Creator,
		BaseAsset:        n.BaseAsset,
		QuoteAsset:       n.QuoteAsset,
		BaseAmount:       n.BaseAmount.Clone(),
		QuoteAmount:      n.QuoteAmount.Clone(),
		SourceDomain:     sourceDomain,
		DestDomain:       e.localDomain,
		ExpiryTime:       n.ExpiryTime,
		Settled:          false,
		AcceptorOnSource: n.AcceptorOnSource,
		QuoteRecipient:   n.QuoteRecipient,
	}
	e.deposits[n.RFQID] = rec
	if e.store != nil {
		if err := e.store.putDeposit(rec); err != nil {
			delete(e.deposits, n.RFQID)
			return err
		}
	}

	e.emit(Event{
		Type:   EventDepositNotified,
		RFQID:  n.RFQID,
		Party:  n.Creator,
		Asset:  n.BaseAsset,
		Amount: n.BaseAmount.Clone(),
		Domain: sourceDomain,
	})
	return nil
}

// handleSettlementConfirmation releases the locked base asset on this, the
// source, domain after the quote leg settled on the destination domain.
func (e *Engine) handleSettlementConfirmation(state contract.StateDB, payload []byte) error {
	id, err := DecodeSettlementConfirmation(payload)
	if err != nil {
		return err
	}
	rec := e.deposits[id]
	if rec == nil {
		return ErrDepositNotFound
	}
	if rec.Settled {
		return ErrAlreadySettled
	}

	// Terminal state first, release second.
	rec.Settled = true
	if rec.BaseAsset == NativeAsset {
		if err := e.releaseNative(state, id, rec.AcceptorOnSource, rec.BaseAmount); err != nil {
			rec.Settled = false
			return err
		}
	} else {
		if err := e.tokens.Transfer(rec.BaseAsset, e.address, rec.AcceptorOnSource, rec.BaseAmount); err != nil {
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
		Type:   EventSettlementReceived,
		RFQID:  id,
		Party:  rec.AcceptorOnSource,
		Domain: rec.DestDomain,
	})
	e.emit(Event{
		Type:   EventBaseAssetReleased,
		RFQID:  id,
		Party:  rec.AcceptorOnSource,
		Asset:  rec.BaseAsset,
		Amount: rec.BaseAmount.Clone(),
	})
	e.emit(Event{
		Type:   EventTradeExecuted,
		RFQID:  id,
		Party:  rec.AcceptorOnSource,
		Asset:  rec.BaseAsset,
		Amount: rec.BaseAmount.Clone(),
		Domain: rec.DestDomain,
	})
	return nil
}

// SetTrustedCounterpart registers the trusted engine address for a remote
// domain. Administrator-only; this is the sole trust-establishment mechanism.
func (e *Engine) SetTrustedCounterpart(ctx CallContext, domain uint32, addr common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if ctx.Caller != e.admin {
		return ErrUnauthorized
	}
	e.counterparts[domain] = addr
	e.emit(Event{Type: EventTrustedCounterpartSet, Party: addr, Domain: domain})
	return nil
}
