// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package rfq implements atomic settlement of request-for-quote trades: a
// creator offers a fixed amount of a base asset for a fixed amount of a quote
// asset, and an acceptor fulfills it. Settlement is atomic within one domain
// and, via an at-least-once message relay, across two domains.
package rfq

import (
	"errors"
	"time"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
)

// RFQID uniquely identifies one request-for-quote trade.
type RFQID [32]byte

// NativeAsset is the sentinel asset identifier for the domain's native value.
var NativeAsset = common.HexToAddress("0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE")

// Gas costs
const (
	GasDeposit        = uint64(30000)  // Lock native value in escrow
	GasWithdraw       = uint64(30000)  // Withdraw escrowed value
	GasExecute        = uint64(60000)  // Same-domain settlement
	GasInitiate       = uint64(100000) // Cross-domain deposit initiation
	GasAccept         = uint64(80000)  // Cross-domain acceptance
	GasReclaim        = uint64(40000)  // Reclaim expired deposit
	GasOnMessage      = uint64(50000)  // Inbound relay message
	GasSetCounterpart = uint64(20000)  // Registry write
	GasView           = uint64(5000)   // Read-only queries
)

// Message type tags, the leading byte of every relayed payload.
const (
	MsgDepositNotification    uint8 = 1
	MsgSettlementConfirmation uint8 = 2
)

// ReturnGasLimit is the gas budget quoted to the relay for delivering the
// settlement confirmation back to the source domain.
const ReturnGasLimit = uint64(250000)

// DefaultMinExpiry is the floor on cross-domain deposit expiry. Anything
// shorter risks expiring before the relay can plausibly deliver.
const DefaultMinExpiry = 10 * time.Minute

// TradeParams are the terms of a same-domain settlement.
type TradeParams struct {
	RFQID       RFQID
	Creator     common.Address
	BaseAsset   common.Address
	QuoteAsset  common.Address
	BaseAmount  *uint256.Int
	QuoteAmount *uint256.Int
}

// DepositParams are the terms of a cross-domain deposit initiation.
type DepositParams struct {
	DestDomain       uint32
	BaseAsset        common.Address
	QuoteAsset       common.Address
	BaseAmount       *uint256.Int
	QuoteAmount      *uint256.Int
	Expiry           time.Duration  // How long the deposit stays acceptable
	AcceptorOnSource common.Address // Receives the base asset on settlement
	QuoteRecipient   common.Address // Receives the quote asset on the dest domain
	RefundAddress    common.Address // Receives the base asset on reclaim
}

// CrossDomainDeposit is the persistent record of one cross-domain RFQ. A copy
// lives on the source domain (written by InitiateDeposit) and on the
// destination domain (written by the deposit-notification handler).
type CrossDomainDeposit struct {
	RFQID            RFQID
	Creator          common.Address
	BaseAsset        common.Address
	QuoteAsset       common.Address
	BaseAmount       *uint256.Int
	QuoteAmount      *uint256.Int
	SourceDomain     uint32
	DestDomain       uint32
	ExpiryTime       uint64 // Unix seconds, fixed at creation
	Settled          bool   // Monotonic: false -> true, never reset
	AcceptorOnSource common.Address
	QuoteRecipient   common.Address
	RefundAddress    common.Address // Source-side only; zero on the dest copy
}

// AssetEscrow is one generalized escrow record: a single asset locked under a
// quote id by a single depositor.
type AssetEscrow struct {
	Asset     common.Address
	Amount    *uint256.Int
	Depositor common.Address
}

// Relay is the external message-delivery collaborator. Delivery is
// at-least-once and unordered; the engine suppresses replays itself.
type Relay interface {
	// Quote returns the cost of delivering a message to destDomain with the
	// given gas budget.
	Quote(destDomain uint32, gasLimit uint64) *uint256.Int

	// Send submits a payload for delivery and returns its sequence number.
	Send(destDomain uint32, payload []byte, fee *uint256.Int) (uint64, error)
}

// TokenLedger moves fungible tokens on behalf of the engine. TransferFrom
// requires the owner to have pre-authorized the engine; implementations
// return ErrInsufficientBalanceOrAllowance when the pull cannot be covered.
type TokenLedger interface {
	BalanceOf(token, owner common.Address) *uint256.Int
	Allowance(token, owner common.Address) *uint256.Int
	TransferFrom(token, from, to common.Address, amount *uint256.Int) error
	Transfer(token, from, to common.Address, amount *uint256.Int) error
}

// CallContext identifies the caller of an entry point and the native value
// attached to the call. The attached value must already be credited to the
// engine's address before the entry point runs, mirroring EVM call semantics.
type CallContext struct {
	Caller common.Address
	Value  *uint256.Int
}

// Value returns the attached value, treating nil as zero.
func (c CallContext) value() *uint256.Int {
	if c.Value == nil {
		return uint256.NewInt(0)
	}
	return c.Value
}

// EventType tags one entry in the engine's event journal.
type EventType uint8

const (
	EventDepositCreated EventType = iota + 1
	EventDepositWithdrawn
	EventTradeExecuted
	EventDepositInitiated
	EventDepositNotified
	EventSettlementReceived
	EventBaseAssetReleased
	EventDepositReclaimed
	EventTrustedCounterpartSet
)

// Event is one observability record. Fields beyond Type and RFQID are set
// where they apply.
type Event struct {
	Type     EventType
	RFQID    RFQID
	Party    common.Address
	Asset    common.Address
	Amount   *uint256.Int
	Domain   uint32
	Sequence uint64 // Relay sequence number for EventDepositInitiated
	Time     int64  // Unix seconds
}

// Parameter errors
var (
	ErrInvalidAsset  = errors.New("invalid asset identifier")
	ErrInvalidAmount = errors.New("amount must be positive")
	ErrInvalidParty  = errors.New("party address must be non-zero")
	ErrInvalidRFQID  = errors.New("rfq id must be non-zero")
)

// Value-attachment errors
var (
	ErrValueMismatch        = errors.New("attached value does not match quote amount")
	ErrUnexpectedValue      = errors.New("unexpected native value attached to token trade")
	ErrInvalidDepositAmount = errors.New("attached value below deposit amount")
	ErrInsufficientRelayFee = errors.New("attached value does not cover relay fee")
)

// State errors
var (
	ErrNoDepositFound     = errors.New("no deposit found")
	ErrInsufficientEscrow = errors.New("insufficient escrow")
	ErrAlreadySettled     = errors.New("deposit already settled")
	ErrDepositNotFound    = errors.New("cross-domain deposit not found")
	ErrDepositExists      = errors.New("cross-domain deposit already exists")
	ErrEscrowExists       = errors.New("escrow already exists for quote id")
	ErrNotDepositor       = errors.New("caller is not the depositor")
	ErrNotCreator         = errors.New("caller is not the creator")
)

// Timing errors
var (
	ErrExpiredDeposit    = errors.New("deposit expired")
	ErrDepositNotExpired = errors.New("deposit not yet expired")
	ErrExpiryTooShort    = errors.New("expiry below minimum")
)

// Authentication errors
var (
	ErrUnauthorized         = errors.New("unauthorized: caller is not admin")
	ErrUnauthorizedRelay    = errors.New("unauthorized: caller is not the relay")
	ErrUntrustedSource      = errors.New("untrusted message source")
	ErrAlreadyProcessed     = errors.New("message already processed")
	ErrNoTrustedCounterpart = errors.New("no trusted counterpart for domain")
)

// Transfer errors
var (
	ErrTransferFailed                 = errors.New("native transfer failed")
	ErrInsufficientBalanceOrAllowance = errors.New("insufficient balance or allowance")
)

// Wire errors
var (
	ErrInvalidMessage = errors.New("invalid message payload")
)

// ErrNotImplemented marks operations the engine deliberately does not
// support: partial fills and asynchronous execution.
var ErrNotImplemented = errors.New("not implemented")
