// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package modules registers stateful precompile modules under reserved
// addresses and exposes deterministic lookup over the registered set.
package modules

import (
	"bytes"

	"github.com/luxfi/geth/common"

	"github.com/luxfi/rfq/contract"
)

// Module pairs a precompile contract with its address and config key.
type Module struct {
	// ConfigKey is the key this module uses in json config files.
	ConfigKey string

	// Address is the reserved address the precompile is callable at.
	Address common.Address

	// Contract is the precompile implementation.
	Contract contract.StatefulPrecompiledContract
}

// moduleArray sorts modules by address for deterministic iteration.
type moduleArray []Module

func (m moduleArray) Len() int      { return len(m) }
func (m moduleArray) Swap(i, j int) { m[i], m[j] = m[j], m[i] }
func (m moduleArray) Less(i, j int) bool {
	return bytes.Compare(m[i].Address.Bytes(), m[j].Address.Bytes()) < 0
}
