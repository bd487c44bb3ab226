// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package registry defines the address scheme of the RFQ settlement
// precompile family across chains.
//
// All Lux-native precompiles use trailing-significant 20-byte addresses:
//
//	Format: 0x0000000000000000000000000000000000PCII
//
// The address ends with the 16-bit LP number (PCII):
//
//	0x 0000...0000 P C II
//	               │ │ └┴─ Item/function (8 bits)
//	               │ └──── Chain slot    (4 bits)
//	               └────── Family page   (4 bits, aligned with LP-Pxxx)
//
// The settlement engine lives on the DEX/Markets page (P=9); its relay
// messenger endpoints live on the Bridges page (P=6).
package registry

import (
	"github.com/luxfi/geth/common"
)

// Family pages used by the settlement stack.
const (
	FamilyBridges uint8 = 0x6 // LP-6xxx: cross-domain messaging
	FamilyMarkets uint8 = 0x9 // LP-9xxx: DEX/Markets, including RFQ settlement
)

// Chain slots.
const (
	SlotPChain uint8 = 0x0
	SlotXChain uint8 = 0x1
	SlotCChain uint8 = 0x2
	SlotQChain uint8 = 0x3
	SlotAChain uint8 = 0x4
	SlotBChain uint8 = 0x5
	SlotZChain uint8 = 0x6
	SlotZoo    uint8 = 0x8
	SlotHanzo  uint8 = 0x9
	SlotSPC    uint8 = 0xa
)

// Item numbers inside the Markets family.
const (
	ItemSettlement uint8 = 0x00 // RFQ settlement engine
)

// Item numbers inside the Bridges family.
const (
	ItemMessenger uint8 = 0x00 // relay messenger endpoint
)

// PrecompileAddress assembles the trailing-significant address for a family
// page, chain slot and item.
func PrecompileAddress(p, c, ii uint8) common.Address {
	var addr common.Address
	addr[18] = (p << 4) | (c & 0x0f)
	addr[19] = ii
	return addr
}

// SettlementAddress returns the RFQ settlement engine address on the chain
// with slot c.
func SettlementAddress(c uint8) common.Address {
	return PrecompileAddress(FamilyMarkets, c, ItemSettlement)
}

// MessengerAddress returns the relay messenger address on the chain with
// slot c.
func MessengerAddress(c uint8) common.Address {
	return PrecompileAddress(FamilyBridges, c, ItemMessenger)
}

// ChainSlot maps a chain letter to its slot, 0xff when unknown.
func ChainSlot(chain string) uint8 {
	switch chain {
	case "P":
		return SlotPChain
	case "X":
		return SlotXChain
	case "C":
		return SlotCChain
	case "Q":
		return SlotQChain
	case "A":
		return SlotAChain
	case "B":
		return SlotBChain
	case "Z":
		return SlotZChain
	case "ZOO":
		return SlotZoo
	case "HANZO":
		return SlotHanzo
	case "SPC":
		return SlotSPC
	default:
		return 0xff
	}
}

// settlementSlots lists the chain slots the settlement engine is deployed on.
var settlementSlots = []uint8{SlotCChain, SlotZChain, SlotZoo, SlotHanzo, SlotSPC}

// SettlementAddresses returns the settlement engine addresses across all
// deployed chains, in slot order.
func SettlementAddresses() []common.Address {
	out := make([]common.Address, 0, len(settlementSlots))
	for _, c := range settlementSlots {
		out = append(out, SettlementAddress(c))
	}
	return out
}

// IsSettlementAddress reports whether addr is a deployed settlement engine.
func IsSettlementAddress(addr common.Address) bool {
	for _, c := range settlementSlots {
		if SettlementAddress(c) == addr {
			return true
		}
	}
	return false
}
