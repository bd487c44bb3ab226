// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rfq

import (
	"errors"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/core/tracing"
	ethtypes "github.com/luxfi/geth/core/types"

	"github.com/luxfi/rfq/contract"
)

// MockStateDB implements contract.StateDB for testing
type MockStateDB struct {
	storage  map[common.Address]map[common.Hash]common.Hash
	balances map[common.Address]*uint256.Int
	nonces   map[common.Address]uint64
	logs     []*ethtypes.Log
}

func NewMockStateDB() *MockStateDB {
	return &MockStateDB{
		storage:  make(map[common.Address]map[common.Hash]common.Hash),
		balances: make(map[common.Address]*uint256.Int),
		nonces:   make(map[common.Address]uint64),
		logs:     make([]*ethtypes.Log, 0),
	}
}

func (m *MockStateDB) GetState(addr common.Address, key common.Hash) common.Hash {
	if m.storage[addr] == nil {
		return common.Hash{}
	}
	return m.storage[addr][key]
}

func (m *MockStateDB) SetState(addr common.Address, key, value common.Hash) common.Hash {
	if m.storage[addr] == nil {
		m.storage[addr] = make(map[common.Hash]common.Hash)
	}
	prev := m.storage[addr][key]
	m.storage[addr][key] = value
	return prev
}

func (m *MockStateDB) GetBalance(addr common.Address) *uint256.Int {
	if bal, ok := m.balances[addr]; ok {
		return bal.Clone()
	}
	return uint256.NewInt(0)
}

func (m *MockStateDB) AddBalance(addr common.Address, amount *uint256.Int, _ tracing.BalanceChangeReason) uint256.Int {
	if m.balances[addr] == nil {
		m.balances[addr] = uint256.NewInt(0)
	}
	prev := m.balances[addr].Clone()
	m.balances[addr] = new(uint256.Int).Add(m.balances[addr], amount)
	return *prev
}

func (m *MockStateDB) SubBalance(addr common.Address, amount *uint256.Int, _ tracing.BalanceChangeReason) uint256.Int {
	if m.balances[addr] == nil {
		m.balances[addr] = uint256.NewInt(0)
	}
	prev := m.balances[addr].Clone()
	m.balances[addr] = new(uint256.Int).Sub(m.balances[addr], amount)
	return *prev
}

func (m *MockStateDB) GetNonce(addr common.Address) uint64 {
	return m.nonces[addr]
}

func (m *MockStateDB) SetNonce(addr common.Address, nonce uint64, _ tracing.NonceChangeReason) {
	m.nonces[addr] = nonce
}

func (m *MockStateDB) AddLog(log *ethtypes.Log) {
	m.logs = append(m.logs, log)
}

// mockAccessibleState wraps a MockStateDB for precompile dispatch tests.
type mockAccessibleState struct {
	state *MockStateDB
	block mockBlockContext
}

func (m *mockAccessibleState) GetStateDB() contract.StateDB { return m.state }

func (m *mockAccessibleState) GetBlockContext() contract.BlockContext { return m.block }

type mockBlockContext struct {
	number    uint64
	timestamp uint64
}

func (b mockBlockContext) Number() uint64    { return b.number }
func (b mockBlockContext) Timestamp() uint64 { return b.timestamp }

// sentMessage records one mockRelay.Send call.
type sentMessage struct {
	DestDomain uint32
	Payload    []byte
	Fee        *uint256.Int
	Sequence   uint64
}

// mockRelay quotes a flat fee and records submitted messages.
type mockRelay struct {
	fee      *uint256.Int
	sent     []sentMessage
	nextSeq  uint64
	failSend bool
}

var errRelayDown = errors.New("relay unavailable")

func newMockRelay(fee uint64) *mockRelay {
	return &mockRelay{fee: uint256.NewInt(fee), nextSeq: 1}
}

func (r *mockRelay) Quote(uint32, uint64) *uint256.Int {
	return r.fee.Clone()
}

func (r *mockRelay) Send(destDomain uint32, payload []byte, fee *uint256.Int) (uint64, error) {
	if r.failSend {
		return 0, errRelayDown
	}
	seq := r.nextSeq
	r.nextSeq++
	r.sent = append(r.sent, sentMessage{
		DestDomain: destDomain,
		Payload:    append([]byte(nil), payload...),
		Fee:        fee.Clone(),
		Sequence:   seq,
	})
	return seq, nil
}

// last returns the most recent send.
func (r *mockRelay) last() sentMessage {
	return r.sent[len(r.sent)-1]
}

// Test fixture addresses
var (
	testAdmin    = common.HexToAddress("0x00000000000000000000000000000000000000a0")
	testRelayAdr = common.HexToAddress("0x00000000000000000000000000000000000000b0")
	testEngAddr  = ContractAddress
	testCreator  = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testAcceptor = common.HexToAddress("0x2222222222222222222222222222222222222222")
	testToken    = common.HexToAddress("0x3333333333333333333333333333333333333333")
	testToken2   = common.HexToAddress("0x4444444444444444444444444444444444444444")
)

var testEpoch = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

// testEnv bundles one engine with its state and collaborators.
type testEnv struct {
	engine *Engine
	state  *MockStateDB
	relay  *mockRelay
	tokens *MemTokenLedger
	clock  *time.Time
}

// newTestEnv builds an engine on a fresh mock state with a settable clock.
func newTestEnv(tb testing.TB, domain uint32) *testEnv {
	tb.Helper()
	relay := newMockRelay(100)
	tokens := NewMemTokenLedger()
	engine, err := NewEngine(Config{
		LocalDomain:  domain,
		Admin:        testAdmin,
		Relay:        relay,
		RelayAddress: testRelayAdr,
		Tokens:       tokens,
		Address:      testEngAddr,
	})
	if err != nil {
		tb.Fatalf("NewEngine: %v", err)
	}
	clock := testEpoch
	engine.now = func() time.Time { return clock }
	return &testEnv{
		engine: engine,
		state:  NewMockStateDB(),
		relay:  relay,
		tokens: tokens,
		clock:  &clock,
	}
}

// advance moves the engine clock forward.
func (env *testEnv) advance(d time.Duration) {
	*env.clock = env.clock.Add(d)
}

// call builds a CallContext with value attached: the value is credited to the
// engine account first, matching how the EVM transfers call value before a
// precompile runs.
func (env *testEnv) call(caller common.Address, value uint64) CallContext {
	v := uint256.NewInt(value)
	if !v.IsZero() {
		env.state.AddBalance(env.engine.address, v, tracing.BalanceChangeTransfer)
	}
	return CallContext{Caller: caller, Value: v}
}

func testID(b byte) RFQID {
	var id RFQID
	id[0] = b
	return id
}
