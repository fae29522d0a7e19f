// SPDX-License-Identifier: BUSL-1.1
//
// Synnergy Network – Core ▸ Balances
// -------------------------------------
//
// Grounded on memState.Transfer/Mint/Burn in the teacher's
// virtual_machine.go: every mutation is checked against the current
// balance and fails rather than wrapping around on underflow. Generalised
// here from a single ALF uint64 balance per address to the full
// per-lockup-script, multi-token ledger spec.md §3 requires.
package core

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/holiman/uint256"
)

// BalancesPerLockup holds the ALF and token amounts owned by one lockup
// script within a single execution's Balances set.
type BalancesPerLockup struct {
	AlfAmount *uint256.Int
	Tokens    map[TokenID]*uint256.Int
}

func newBalancesPerLockup() *BalancesPerLockup {
	return &BalancesPerLockup{AlfAmount: new(uint256.Int), Tokens: make(map[TokenID]*uint256.Int)}
}

// Balances maps lockup scripts to their BalancesPerLockup. Neither the ALF
// amount nor any token amount may exceed the pre-sum the Balances set was
// constructed with; subtraction fails outright rather than underflowing.
type Balances struct {
	perLockup map[Address]*BalancesPerLockup
}

// NewBalances constructs an empty Balances set.
func NewBalances() *Balances {
	return &Balances{perLockup: make(map[Address]*BalancesPerLockup)}
}

func (b *Balances) entry(addr Address) *BalancesPerLockup {
	e, ok := b.perLockup[addr]
	if !ok {
		e = newBalancesPerLockup()
		b.perLockup[addr] = e
	}
	return e
}

// AddAlf credits addr with amount ALF.
func (b *Balances) AddAlf(addr Address, amount *uint256.Int) {
	e := b.entry(addr)
	e.AlfAmount.Add(e.AlfAmount, amount)
}

// SubAlf debits addr by amount ALF, failing rather than underflowing.
func (b *Balances) SubAlf(addr Address, amount *uint256.Int) error {
	e := b.entry(addr)
	if e.AlfAmount.Lt(amount) {
		return newExecErr(ErrInvalidBalances, "insufficient ALF for %s", addr)
	}
	e.AlfAmount.Sub(e.AlfAmount, amount)
	return nil
}

// AddToken credits addr with amount of token id.
func (b *Balances) AddToken(addr Address, id TokenID, amount *uint256.Int) {
	e := b.entry(addr)
	cur, ok := e.Tokens[id]
	if !ok {
		cur = new(uint256.Int)
	}
	e.Tokens[id] = new(uint256.Int).Add(cur, amount)
}

// SubToken debits addr by amount of token id, failing rather than
// underflowing.
func (b *Balances) SubToken(addr Address, id TokenID, amount *uint256.Int) error {
	e := b.entry(addr)
	cur, ok := e.Tokens[id]
	if !ok || cur.Lt(amount) {
		return newExecErr(ErrInvalidBalances, "insufficient token %x for %s", id, addr)
	}
	e.Tokens[id] = new(uint256.Int).Sub(cur, amount)
	return nil
}

// Get returns the BalancesPerLockup for addr, or nil if it holds nothing.
func (b *Balances) Get(addr Address) (*BalancesPerLockup, bool) {
	e, ok := b.perLockup[addr]
	return e, ok
}

// BalancesFromPreOutputs constructs the initial Balances for a payable
// entry method: it sums preOutputs and subtracts the gas fee, charged to
// preOutputs[0]'s lockup script.
//
// Per spec.md §4.3 ("getInitialBalances() ... for non-payable entry, fails
// ExpectNonPayableMethod"), isPayable must be the entry method's IsPayable
// flag; a non-payable entry method fails outright rather than ever
// constructing a Balances set it never declared it needs.
func BalancesFromPreOutputs(preOutputs []AssetOutput, gasFee *uint256.Int, isPayable bool) (*Balances, error) {
	if !isPayable {
		return nil, ErrExpectNonPayable("entry method is not payable")
	}
	if len(preOutputs) == 0 {
		return nil, newExecErr(ErrInvalidBalances, "no pre-outputs")
	}
	bal := NewBalances()
	for _, out := range preOutputs {
		bal.AddAlf(out.LockupScript, out.AlfAmount)
		for id, amt := range out.Tokens {
			bal.AddToken(out.LockupScript, id, amt)
		}
	}
	payer := preOutputs[0].LockupScript
	if err := bal.SubAlf(payer, gasFee); err != nil {
		return nil, newExecErr(ErrUnableToPayGasFee, "payer %s cannot cover gas fee %s", payer, gasFee)
	}
	return bal, nil
}

// deriveOutputHash derives a deterministic output reference hash from the
// owning transaction id, the output's lockup script, and its index among
// this execution's outputs. The output's ALF and token amounts are not
// hashed.
func deriveOutputHash(txID Hash, out AssetOutput, index int) Hash {
	h := sha256.New()
	h.Write(txID[:])
	h.Write(out.LockupScript[:])
	var idxBuf [8]byte
	binary.BigEndian.PutUint64(idxBuf[:], uint64(index))
	h.Write(idxBuf[:])
	var sum Hash
	copy(sum[:], h.Sum(nil))
	return sum
}
