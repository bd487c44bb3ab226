// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rfq

import (
	"sync"
	"time"

	"github.com/holiman/uint256"
	"github.com/luxfi/database"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/core/tracing"
	log "github.com/luxfi/log"

	"github.com/luxfi/rfq/contract"
)

// Config parameterizes an Engine. Zero fields fall back to defaults where a
// default exists; LocalDomain, Admin, Relay and RelayAddress have none.
type Config struct {
	LocalDomain  uint32
	Admin        common.Address
	Relay        Relay
	RelayAddress common.Address // Caller address of inbound relay deliveries
	Tokens       TokenLedger
	MinExpiry    time.Duration
	Address      common.Address    // The engine's own account, holds native custody
	DB           database.Database // Optional; deposits and replay set persist here
	Log          log.Logger
}

// Engine is the settlement core for one domain. All public entry points are
// serialized by the engine mutex; each call either completes fully or leaves
// no state change behind.
type Engine struct {
	localDomain uint32
	admin       common.Address
	relay       Relay
	relayAddr   common.Address
	tokens      TokenLedger
	minExpiry   time.Duration
	address     common.Address

	// Simple native escrow: rfq id -> locked amount
	escrow map[RFQID]*uint256.Int

	// Generalized escrow: quote id -> single asset record
	quoteEscrow map[RFQID]*AssetEscrow

	// Cross-domain deposits, both source-side and dest-side records
	deposits map[RFQID]*CrossDomainDeposit

	// Consumed-message set, write-once per delivery hash
	processed map[common.Hash]bool

	// Trusted counterpart per remote domain; zero means no trust
	counterparts map[uint32]common.Address

	// Per-domain nonce for rfq id derivation, strictly increasing
	nonces map[uint32]uint64

	// Total native value the engine holds in custody. The attached value of
	// the current call is the engine balance in excess of this.
	held *uint256.Int

	events []Event
	store  *depositStore
	log    log.Logger
	now    func() time.Time

	mu sync.RWMutex
}

// NewEngine creates an engine for one domain. When cfg.DB is set, previously
// persisted deposits, nonces and the replay set are restored from it.
func NewEngine(cfg Config) (*Engine, error) {
	e := &Engine{
		localDomain:  cfg.LocalDomain,
		admin:        cfg.Admin,
		relay:        cfg.Relay,
		relayAddr:    cfg.RelayAddress,
		tokens:       cfg.Tokens,
		minExpiry:    cfg.MinExpiry,
		address:      cfg.Address,
		escrow:       make(map[RFQID]*uint256.Int),
		quoteEscrow:  make(map[RFQID]*AssetEscrow),
		deposits:     make(map[RFQID]*CrossDomainDeposit),
		processed:    make(map[common.Hash]bool),
		counterparts: make(map[uint32]common.Address),
		nonces:       make(map[uint32]uint64),
		held:         uint256.NewInt(0),
		events:       make([]Event, 0),
		log:          cfg.Log,
		now:          time.Now,
	}
	if e.minExpiry == 0 {
		e.minExpiry = DefaultMinExpiry
	}
	if e.log == nil {
		e.log = log.NewTestLogger(log.InfoLevel)
	}
	if cfg.DB != nil {
		e.store = newDepositStore(cfg.DB)
		if err := e.restore(); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// restore reloads persisted state. Escrowed native value is not reloaded into
// [held]; the backing balance lives in the StateDB, which persists on its own.
func (e *Engine) restore() error {
	deposits, err := e.store.loadDeposits()
	if err != nil {
		return err
	}
	for i := range deposits {
		rec := deposits[i]
		e.deposits[rec.RFQID] = &rec
	}
	hashes, err := e.store.loadProcessed()
	if err != nil {
		return err
	}
	for _, h := range hashes {
		e.processed[h] = true
	}
	nonces, err := e.store.loadNonces()
	if err != nil {
		return err
	}
	for d, n := range nonces {
		e.nonces[d] = n
	}
	escrow, err := e.store.loadEscrow()
	if err != nil {
		return err
	}
	for id, amt := range escrow {
		e.escrow[id] = amt
		e.held.Add(e.held, amt)
	}
	return nil
}

// Events returns a copy of the event journal.
func (e *Engine) Events() []Event {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Event, len(e.events))
	copy(out, e.events)
	return out
}

// GetDeposit returns the cross-domain deposit record for id.
func (e *Engine) GetDeposit(id RFQID) (*CrossDomainDeposit, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	rec := e.deposits[id]
	if rec == nil {
		return nil, ErrDepositNotFound
	}
	cp := *rec
	cp.BaseAmount = rec.BaseAmount.Clone()
	cp.QuoteAmount = rec.QuoteAmount.Clone()
	return &cp, nil
}

// EscrowBalance returns the native amount locked under id, zero when absent.
func (e *Engine) EscrowBalance(id RFQID) *uint256.Int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if amt := e.escrow[id]; amt != nil {
		return amt.Clone()
	}
	return uint256.NewInt(0)
}

// QuoteEscrow returns the generalized escrow record under id, nil when absent.
func (e *Engine) QuoteEscrow(id RFQID) *AssetEscrow {
	e.mu.RLock()
	defer e.mu.RUnlock()
	rec := e.quoteEscrow[id]
	if rec == nil {
		return nil
	}
	return &AssetEscrow{Asset: rec.Asset, Amount: rec.Amount.Clone(), Depositor: rec.Depositor}
}

// IsProcessed reports whether a delivery hash has been consumed.
func (e *Engine) IsProcessed(hash common.Hash) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.processed[hash]
}

// TrustedCounterpart returns the registered counterpart for a domain, zero
// when none is registered.
func (e *Engine) TrustedCounterpart(domain uint32) common.Address {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.counterparts[domain]
}

// DomainNonce returns the current id-derivation nonce for a domain.
func (e *Engine) DomainNonce(domain uint32) uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.nonces[domain]
}

// PartialFill is deliberately unimplemented.
func (e *Engine) PartialFill(RFQID, *uint256.Int) error {
	return ErrNotImplemented
}

// ExecuteAsync is deliberately unimplemented.
func (e *Engine) ExecuteAsync(RFQID) error {
	return ErrNotImplemented
}

// emit appends an event to the journal and logs it.
func (e *Engine) emit(ev Event) {
	ev.Time = e.now().Unix()
	e.events = append(e.events, ev)
	e.log.Debug("rfq event",
		"type", ev.Type,
		"rfqID", common.Hash(ev.RFQID),
		"party", ev.Party,
		"domain", ev.Domain,
	)
}

// sendNative moves native value out of the engine's custody account. Fails
// with ErrTransferFailed when the account cannot cover the send.
func (e *Engine) sendNative(state contract.StateDB, to common.Address, amount *uint256.Int) error {
	if amount.IsZero() {
		return nil
	}
	if state.GetBalance(e.address).Cmp(amount) < 0 {
		return ErrTransferFailed
	}
	state.SubBalance(e.address, amount, tracing.BalanceChangeTransfer)
	state.AddBalance(to, amount, tracing.BalanceChangeTransfer)
	return nil
}

// transferAsset moves amount of asset from from to to. For the native
// sentinel the value must already be attached to the current call, so it is
// sent out of engine custody and from is ignored. Token pulls require prior
// authorization of the engine.
func (e *Engine) transferAsset(state contract.StateDB, asset, from, to common.Address, amount *uint256.Int) error {
	if asset == NativeAsset {
		return e.sendNative(state, to, amount)
	}
	if err := e.tokens.TransferFrom(asset, from, to, amount); err != nil {
		return ErrInsufficientBalanceOrAllowance
	}
	return nil
}

// tokenPullCovered reports whether a TransferFrom of amount from owner is
// covered by balance and allowance. Entry points check this before making any
// state change so a failing pull cannot leave a partial settlement.
func (e *Engine) tokenPullCovered(token, owner common.Address, amount *uint256.Int) bool {
	if e.tokens == nil {
		return false
	}
	if e.tokens.BalanceOf(token, owner).Cmp(amount) < 0 {
		return false
	}
	return e.tokens.Allowance(token, owner).Cmp(amount) >= 0
}

// attachedValue returns the native value attached to the current call: the
// engine account balance in excess of recorded custody.
func (e *Engine) attachedValue(state contract.StateDB) *uint256.Int {
	balance := state.GetBalance(e.address)
	if balance.Cmp(e.held) <= 0 {
		return uint256.NewInt(0)
	}
	return new(uint256.Int).Sub(balance, e.held)
}
