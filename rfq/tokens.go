// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rfq

import (
	"sync"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
)

// MemTokenLedger is an in-memory TokenLedger. Allowances are granted to the
// engine only, which is the single spender this package ever uses. Intended
// for tests and tooling; production wiring binds a real token backend.
type MemTokenLedger struct {
	balances   map[common.Address]map[common.Address]*uint256.Int
	allowances map[common.Address]map[common.Address]*uint256.Int

	mu sync.RWMutex
}

// NewMemTokenLedger creates an empty ledger.
func NewMemTokenLedger() *MemTokenLedger {
	return &MemTokenLedger{
		balances:   make(map[common.Address]map[common.Address]*uint256.Int),
		allowances: make(map[common.Address]map[common.Address]*uint256.Int),
	}
}

// Mint credits amount of token to owner.
func (l *MemTokenLedger) Mint(token, owner common.Address, amount *uint256.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.credit(token, owner, amount)
}

// Approve authorizes the engine to pull up to amount of token from owner.
func (l *MemTokenLedger) Approve(token, owner common.Address, amount *uint256.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.allowances[token] == nil {
		l.allowances[token] = make(map[common.Address]*uint256.Int)
	}
	l.allowances[token][owner] = amount.Clone()
}

// BalanceOf returns owner's balance of token.
func (l *MemTokenLedger) BalanceOf(token, owner common.Address) *uint256.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if bal := l.balance(token, owner); bal != nil {
		return bal.Clone()
	}
	return uint256.NewInt(0)
}

// Allowance returns the amount of token the engine may still pull from owner.
func (l *MemTokenLedger) Allowance(token, owner common.Address) *uint256.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if owners := l.allowances[token]; owners != nil && owners[owner] != nil {
		return owners[owner].Clone()
	}
	return uint256.NewInt(0)
}

// TransferFrom moves amount of token from from to to under the engine's
// allowance, decrementing it.
func (l *MemTokenLedger) TransferFrom(token, from, to common.Address, amount *uint256.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	owners := l.allowances[token]
	if owners == nil || owners[from] == nil || owners[from].Cmp(amount) < 0 {
		return ErrInsufficientBalanceOrAllowance
	}
	bal := l.balance(token, from)
	if bal == nil || bal.Cmp(amount) < 0 {
		return ErrInsufficientBalanceOrAllowance
	}
	owners[from] = new(uint256.Int).Sub(owners[from], amount)
	bal.Sub(bal, amount)
	l.credit(token, to, amount)
	return nil
}

// Transfer moves amount of token from from to to without touching
// allowances. The engine uses it to pay out of its own custody.
func (l *MemTokenLedger) Transfer(token, from, to common.Address, amount *uint256.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	bal := l.balance(token, from)
	if bal == nil || bal.Cmp(amount) < 0 {
		return ErrInsufficientBalanceOrAllowance
	}
	bal.Sub(bal, amount)
	l.credit(token, to, amount)
	return nil
}

func (l *MemTokenLedger) balance(token, owner common.Address) *uint256.Int {
	if owners := l.balances[token]; owners != nil {
		return owners[owner]
	}
	return nil
}

func (l *MemTokenLedger) credit(token, owner common.Address, amount *uint256.Int) {
	if l.balances[token] == nil {
		l.balances[token] = make(map[common.Address]*uint256.Int)
	}
	if l.balances[token][owner] == nil {
		l.balances[token][owner] = uint256.NewInt(0)
	}
	l.balances[token][owner].Add(l.balances[token][owner], amount)
}
