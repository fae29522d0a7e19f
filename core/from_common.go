package core

import "github.com/ethereum/go-ethereum/common"

// FromCommon converts an Ethereum common.Address to the Synnergy Address
// type. Used by EthEcRecoverInstr to land a recovered secp256k1 public key
// onto the VM's Address representation.
func FromCommon(a common.Address) Address {
	var out Address
	copy(out[:], a.Bytes())
	return out
}
