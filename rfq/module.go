// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rfq

import (
	"github.com/luxfi/rfq/modules"
)

// ConfigKey identifies the RFQ settlement precompile in chain configs.
const ConfigKey = "rfqSettlementConfig"

// NewModule wraps an engine as a registrable precompile module at the
// reserved settlement address.
func NewModule(engine *Engine) modules.Module {
	return modules.Module{
		ConfigKey: ConfigKey,
		Address:   ContractAddress,
		Contract:  NewSettlementPrecompile(engine),
	}
}

// Register installs the engine's precompile in the global module registry.
// Unlike stateless precompiles this cannot happen in an init function; the
// engine carries chain-specific configuration.
func Register(engine *Engine) error {
	return modules.RegisterModule(NewModule(engine))
}
