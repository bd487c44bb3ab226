// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rfq

import (
	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
)

// validateTradeParams runs the well-formedness checks shared by every
// settlement entry point. Checks are pure; the first failure aborts the call
// before any transfer.
func validateTradeParams(
	baseAsset, quoteAsset common.Address,
	baseAmount, quoteAmount *uint256.Int,
	parties ...common.Address,
) error {
	if baseAsset == (common.Address{}) || quoteAsset == (common.Address{}) {
		return ErrInvalidAsset
	}
	if baseAmount == nil || baseAmount.IsZero() || quoteAmount == nil || quoteAmount.IsZero() {
		return ErrInvalidAmount
	}
	for _, p := range parties {
		if p == (common.Address{}) {
			return ErrInvalidParty
		}
	}
	return nil
}

func validateRFQID(id RFQID) error {
	if id == (RFQID{}) {
		return ErrInvalidRFQID
	}
	return nil
}
