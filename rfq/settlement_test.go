// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rfq

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"
)

func TestExecuteNativeBaseTokenQuote(t *testing.T) {
	env := newTestEnv(t, 1)
	id := testID(1)

	// Creator escrows the native base, acceptor holds the quote token.
	if err := env.engine.Deposit(env.state, env.call(testCreator, 1000), id); err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	env.tokens.Mint(testToken, testAcceptor, uint256.NewInt(5000))
	env.tokens.Approve(testToken, testAcceptor, uint256.NewInt(5000))

	err := env.engine.Execute(env.state, env.call(testAcceptor, 0), TradeParams{
		RFQID:       id,
		Creator:     testCreator,
		BaseAsset:   NativeAsset,
		QuoteAsset:  testToken,
		BaseAmount:  uint256.NewInt(1000),
		QuoteAmount: uint256.NewInt(5000),
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if got := env.state.GetBalance(testAcceptor); got.Uint64() != 1000 {
		t.Errorf("acceptor native balance = %d, want 1000", got.Uint64())
	}
	if got := env.tokens.BalanceOf(testToken, testCreator); got.Uint64() != 5000 {
		t.Errorf("creator token balance = %d, want 5000", got.Uint64())
	}
	if got := env.engine.EscrowBalance(id); !got.IsZero() {
		t.Errorf("escrow balance = %d, want 0", got.Uint64())
	}
}

func TestExecuteTokenBaseNativeQuote(t *testing.T) {
	env := newTestEnv(t, 1)
	id := testID(2)

	env.tokens.Mint(testToken, testCreator, uint256.NewInt(800))
	env.tokens.Approve(testToken, testCreator, uint256.NewInt(800))

	err := env.engine.Execute(env.state, env.call(testAcceptor, 300), TradeParams{
		RFQID:       id,
		Creator:     testCreator,
		BaseAsset:   testToken,
		QuoteAsset:  NativeAsset,
		BaseAmount:  uint256.NewInt(800),
		QuoteAmount: uint256.NewInt(300),
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if got := env.tokens.BalanceOf(testToken, testAcceptor); got.Uint64() != 800 {
		t.Errorf("acceptor token balance = %d, want 800", got.Uint64())
	}
	if got := env.state.GetBalance(testCreator); got.Uint64() != 300 {
		t.Errorf("creator native balance = %d, want 300", got.Uint64())
	}
}

func TestExecuteTokenBaseTokenQuote(t *testing.T) {
	env := newTestEnv(t, 1)
	id := testID(3)

	env.tokens.Mint(testToken, testCreator, uint256.NewInt(100))
	env.tokens.Approve(testToken, testCreator, uint256.NewInt(100))
	env.tokens.Mint(testToken2, testAcceptor, uint256.NewInt(200))
	env.tokens.Approve(testToken2, testAcceptor, uint256.NewInt(200))

	err := env.engine.Execute(env.state, env.call(testAcceptor, 0), TradeParams{
		RFQID:       id,
		Creator:     testCreator,
		BaseAsset:   testToken,
		QuoteAsset:  testToken2,
		BaseAmount:  uint256.NewInt(100),
		QuoteAmount: uint256.NewInt(200),
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got := env.tokens.BalanceOf(testToken, testAcceptor); got.Uint64() != 100 {
		t.Errorf("acceptor base balance = %d, want 100", got.Uint64())
	}
	if got := env.tokens.BalanceOf(testToken2, testCreator); got.Uint64() != 200 {
		t.Errorf("creator quote balance = %d, want 200", got.Uint64())
	}
}

// An acceptor can pre-fund the quote leg through the generalized escrow and
// draw it down across executions. The record survives a partial draw and is
// deleted once fully consumed.
func TestExecuteFromQuoteEscrow(t *testing.T) {
	env := newTestEnv(t, 1)
	id := testID(7)

	env.tokens.Mint(testToken, testCreator, uint256.NewInt(100))
	env.tokens.Approve(testToken, testCreator, uint256.NewInt(100))
	env.tokens.Mint(testToken2, testAcceptor, uint256.NewInt(500))
	env.tokens.Approve(testToken2, testAcceptor, uint256.NewInt(500))
	if err := env.engine.DepositQuoteAsset(env.state, env.call(testAcceptor, 0), id, testToken2, uint256.NewInt(500)); err != nil {
		t.Fatalf("DepositQuoteAsset: %v", err)
	}

	err := env.engine.Execute(env.state, env.call(testAcceptor, 0), TradeParams{
		RFQID:       id,
		Creator:     testCreator,
		BaseAsset:   testToken,
		QuoteAsset:  testToken2,
		BaseAmount:  uint256.NewInt(100),
		QuoteAmount: uint256.NewInt(200),
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got := env.tokens.BalanceOf(testToken2, testCreator); got.Uint64() != 200 {
		t.Errorf("creator quote balance = %d, want 200", got.Uint64())
	}
	rec := env.engine.QuoteEscrow(id)
	if rec == nil || rec.Amount.Uint64() != 300 {
		t.Fatalf("quote escrow after partial draw = %v, want 300 remaining", rec)
	}

	// Second fill consumes the rest of the record.
	env.tokens.Mint(testToken, testCreator, uint256.NewInt(100))
	env.tokens.Approve(testToken, testCreator, uint256.NewInt(100))
	err = env.engine.Execute(env.state, env.call(testAcceptor, 0), TradeParams{
		RFQID:       id,
		Creator:     testCreator,
		BaseAsset:   testToken,
		QuoteAsset:  testToken2,
		BaseAmount:  uint256.NewInt(100),
		QuoteAmount: uint256.NewInt(300),
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if rec := env.engine.QuoteEscrow(id); rec != nil {
		t.Errorf("quote escrow after full draw = %v, want nil", rec)
	}
	if got := env.tokens.BalanceOf(testToken2, testCreator); got.Uint64() != 500 {
		t.Errorf("creator quote balance = %d, want 500", got.Uint64())
	}
}

// A native quote funded from the generalized escrow rejects an attached value
// and pays the creator out of engine custody.
func TestExecuteFromQuoteEscrowNative(t *testing.T) {
	env := newTestEnv(t, 1)
	id := testID(8)

	env.tokens.Mint(testToken, testCreator, uint256.NewInt(100))
	env.tokens.Approve(testToken, testCreator, uint256.NewInt(100))
	if err := env.engine.DepositQuoteAsset(env.state, env.call(testAcceptor, 300), id, NativeAsset, uint256.NewInt(300)); err != nil {
		t.Fatalf("DepositQuoteAsset: %v", err)
	}

	p := TradeParams{
		RFQID:       id,
		Creator:     testCreator,
		BaseAsset:   testToken,
		QuoteAsset:  NativeAsset,
		BaseAmount:  uint256.NewInt(100),
		QuoteAmount: uint256.NewInt(300),
	}
	if err := env.engine.Execute(env.state, env.call(testAcceptor, 300), p); !errors.Is(err, ErrUnexpectedValue) {
		t.Fatalf("err = %v, want ErrUnexpectedValue", err)
	}

	if err := env.engine.Execute(env.state, env.call(testAcceptor, 0), p); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got := env.state.GetBalance(testCreator); got.Uint64() != 300 {
		t.Errorf("creator native balance = %d, want 300", got.Uint64())
	}
	if rec := env.engine.QuoteEscrow(id); rec != nil {
		t.Errorf("quote escrow after full draw = %v, want nil", rec)
	}
}

// An escrowed quote that does not cover the quote amount fails before any
// transfer.
func TestExecuteQuoteEscrowShort(t *testing.T) {
	env := newTestEnv(t, 1)
	id := testID(9)

	env.tokens.Mint(testToken, testCreator, uint256.NewInt(100))
	env.tokens.Approve(testToken, testCreator, uint256.NewInt(100))
	env.tokens.Mint(testToken2, testAcceptor, uint256.NewInt(50))
	env.tokens.Approve(testToken2, testAcceptor, uint256.NewInt(50))
	if err := env.engine.DepositQuoteAsset(env.state, env.call(testAcceptor, 0), id, testToken2, uint256.NewInt(50)); err != nil {
		t.Fatalf("DepositQuoteAsset: %v", err)
	}

	err := env.engine.Execute(env.state, env.call(testAcceptor, 0), TradeParams{
		RFQID:       id,
		Creator:     testCreator,
		BaseAsset:   testToken,
		QuoteAsset:  testToken2,
		BaseAmount:  uint256.NewInt(100),
		QuoteAmount: uint256.NewInt(200),
	})
	if !errors.Is(err, ErrInsufficientEscrow) {
		t.Fatalf("err = %v, want ErrInsufficientEscrow", err)
	}
	if got := env.tokens.BalanceOf(testToken, testAcceptor); !got.IsZero() {
		t.Errorf("acceptor base balance = %d, want 0", got.Uint64())
	}
}

func TestExecuteValueMismatch(t *testing.T) {
	env := newTestEnv(t, 1)

	// Native quote of 300 with only 200 attached.
	err := env.engine.Execute(env.state, env.call(testAcceptor, 200), TradeParams{
		RFQID:       testID(4),
		Creator:     testCreator,
		BaseAsset:   testToken,
		QuoteAsset:  NativeAsset,
		BaseAmount:  uint256.NewInt(1),
		QuoteAmount: uint256.NewInt(300),
	})
	if !errors.Is(err, ErrValueMismatch) {
		t.Errorf("err = %v, want ErrValueMismatch", err)
	}
}

func TestExecuteUnexpectedValue(t *testing.T) {
	env := newTestEnv(t, 1)

	// Token-for-token trade with native value attached.
	err := env.engine.Execute(env.state, env.call(testAcceptor, 50), TradeParams{
		RFQID:       testID(4),
		Creator:     testCreator,
		BaseAsset:   testToken,
		QuoteAsset:  testToken2,
		BaseAmount:  uint256.NewInt(1),
		QuoteAmount: uint256.NewInt(1),
	})
	if !errors.Is(err, ErrUnexpectedValue) {
		t.Errorf("err = %v, want ErrUnexpectedValue", err)
	}
}

func TestExecuteMissingEscrow(t *testing.T) {
	env := newTestEnv(t, 1)

	err := env.engine.Execute(env.state, env.call(testAcceptor, 300), TradeParams{
		RFQID:       testID(5),
		Creator:     testCreator,
		BaseAsset:   NativeAsset,
		QuoteAsset:  NativeAsset,
		BaseAmount:  uint256.NewInt(100),
		QuoteAmount: uint256.NewInt(300),
	})
	if !errors.Is(err, ErrInsufficientEscrow) {
		t.Errorf("err = %v, want ErrInsufficientEscrow", err)
	}
}

// A quote leg the acceptor cannot cover must fail before the base leg moves.
func TestExecuteAtomicity(t *testing.T) {
	env := newTestEnv(t, 1)
	id := testID(6)

	if err := env.engine.Deposit(env.state, env.call(testCreator, 1000), id); err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	// Acceptor has tokens but never approved the engine.
	env.tokens.Mint(testToken, testAcceptor, uint256.NewInt(5000))

	err := env.engine.Execute(env.state, env.call(testAcceptor, 0), TradeParams{
		RFQID:       id,
		Creator:     testCreator,
		BaseAsset:   NativeAsset,
		QuoteAsset:  testToken,
		BaseAmount:  uint256.NewInt(1000),
		QuoteAmount: uint256.NewInt(5000),
	})
	if !errors.Is(err, ErrInsufficientBalanceOrAllowance) {
		t.Fatalf("err = %v, want ErrInsufficientBalanceOrAllowance", err)
	}

	// Escrow untouched, no native paid out.
	if got := env.engine.EscrowBalance(id); got.Uint64() != 1000 {
		t.Errorf("escrow balance = %d, want 1000", got.Uint64())
	}
	if got := env.state.GetBalance(testAcceptor); !got.IsZero() {
		t.Errorf("acceptor balance = %d, want 0", got.Uint64())
	}
}

func TestExecuteValidation(t *testing.T) {
	env := newTestEnv(t, 1)

	cases := []struct {
		name string
		p    TradeParams
		want error
	}{
		{
			name: "zero base asset",
			p: TradeParams{
				RFQID: testID(1), Creator: testCreator,
				QuoteAsset: testToken,
				BaseAmount: uint256.NewInt(1), QuoteAmount: uint256.NewInt(1),
			},
			want: ErrInvalidAsset,
		},
		{
			name: "zero base amount",
			p: TradeParams{
				RFQID: testID(1), Creator: testCreator,
				BaseAsset: testToken, QuoteAsset: testToken2,
				BaseAmount: uint256.NewInt(0), QuoteAmount: uint256.NewInt(1),
			},
			want: ErrInvalidAmount,
		},
		{
			name: "zero creator",
			p: TradeParams{
				RFQID:     testID(1),
				BaseAsset: testToken, QuoteAsset: testToken2,
				BaseAmount: uint256.NewInt(1), QuoteAmount: uint256.NewInt(1),
			},
			want: ErrInvalidParty,
		},
		{
			name: "zero rfq id",
			p: TradeParams{
				Creator:   testCreator,
				BaseAsset: testToken, QuoteAsset: testToken2,
				BaseAmount: uint256.NewInt(1), QuoteAmount: uint256.NewInt(1),
			},
			want: ErrInvalidRFQID,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := env.engine.Execute(env.state, env.call(testAcceptor, 0), tc.p)
			if !errors.Is(err, tc.want) {
				t.Errorf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func BenchmarkExecute(b *testing.B) {
	env := newTestEnv(b, 1)
	env.tokens.Mint(testToken, testCreator, uint256.NewInt(uint64(b.N)*100))
	env.tokens.Approve(testToken, testCreator, uint256.NewInt(uint64(b.N)*100))
	env.tokens.Mint(testToken2, testAcceptor, uint256.NewInt(uint64(b.N)*200))
	env.tokens.Approve(testToken2, testAcceptor, uint256.NewInt(uint64(b.N)*200))

	ctx := env.call(testAcceptor, 0)
	p := TradeParams{
		RFQID:       testID(1),
		Creator:     testCreator,
		BaseAsset:   testToken,
		QuoteAsset:  testToken2,
		BaseAmount:  uint256.NewInt(100),
		QuoteAmount: uint256.NewInt(200),
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = env.engine.Execute(env.state, ctx, p)
	}
}

func TestPartialFillUnsupported(t *testing.T) {
	env := newTestEnv(t, 1)
	if err := env.engine.PartialFill(testID(1), uint256.NewInt(1)); !errors.Is(err, ErrNotImplemented) {
		t.Errorf("PartialFill err = %v, want ErrNotImplemented", err)
	}
	if err := env.engine.ExecuteAsync(testID(1)); !errors.Is(err, ErrNotImplemented) {
		t.Errorf("ExecuteAsync err = %v, want ErrNotImplemented", err)
	}
}
