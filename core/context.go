// SPDX-License-Identifier: BUSL-1.1
//
// Synnergy Network – Core ▸ Execution Context
// -----------------------------------------------
//
//   - Expresses the "small capability trait" design note: a stateless
//     capability (block/tx env, gas) and a stateful capability that embeds
//     it and adds world-state staging, balances, generated outputs and the
//     contract pool. Instructions that need asset/contract access are
//     written against StatefulContext; everything else is written against
//     the narrower StatelessContext so the same instruction can run in
//     either flavor of script when it makes sense to.
//
//   - Grounded on VMContext in the teacher's virtual_machine.go, which
//     already bundles Memory/State/Chain/GasMeter concerns into one struct;
//     here that bundle is split into an interface pair so StatelessScript
//     execution never has to carry world-state fields it cannot use.
package core

import (
	"time"

	"github.com/holiman/uint256"
)

// BlockEnv carries the block-level environment visible to a script.
type BlockEnv struct {
	ChainID          uint64
	Timestamp        time.Time
	DifficultyTarget *uint256.Int
	HardForkID       string
}

// OutputRef deterministically identifies a transaction output.
type OutputRef struct {
	Hint uint32
	Key  Hash
}

// AssetOutput is a UTXO: a lockup script plus an ALF amount and zero or more
// token balances.
type AssetOutput struct {
	LockupScript Address
	AlfAmount    *uint256.Int
	Tokens       map[TokenID]*uint256.Int
}

// TxInput references a previous output being spent.
type TxInput struct {
	PrevOutputRef OutputRef
}

// Transaction is the abstract transaction the VM executes on behalf of.
type Transaction struct {
	ID           Hash
	Inputs       []TxInput
	FixedOutputs []AssetOutput
	GasAmount    uint64
	GasPrice     *uint256.Int
}

// TxEnv carries the transaction-level environment: the transaction itself,
// the previous outputs it spends, and the signature stack instructions like
// VerifyTxSignature consume from.
type TxEnv struct {
	Tx            *Transaction
	PrevOutputs   []AssetOutput
	SignatureStack *Stack[[]byte]
}

// StatelessContext is the minimal capability every script execution needs:
// block/tx environment and a gas meter. Asset scripts run against exactly
// this capability and nothing more.
type StatelessContext interface {
	Block() *BlockEnv
	Tx() *TxEnv
	GasRemaining() uint64
	ChargeGas(cost uint64) error
}

// StatefulContext is the richer capability transaction/contract scripts run
// against: staging world state, post-transfer balances, append-only output
// and contract-input buffers, and the per-execution contract pool.
type StatefulContext interface {
	StatelessContext

	WorldState() *StagingWorldState
	OutputBalances() *Balances
	Pool() *ContractPool

	AppendGeneratedOutput(AssetOutput)
	GeneratedOutputs() []AssetOutput
	AppendContractInput(OutputRef)
	ContractInputs() []OutputRef

	AppendLog(Log)
	Logs() []Log

	// NextOutputIndex returns fixedOutputs.length + generatedOutputs.length.
	NextOutputIndex() int
	// NextContractOutputRef derives a deterministic reference from
	// (txId, out, nextOutputIndex).
	NextContractOutputRef(out AssetOutput) OutputRef

	// Approve earmarks amount of fromAddr's balance for a subsequent
	// TransferAlf, backing the ApproveAlf/TransferAlf instruction pair.
	Approve(fromAddr Address, amount *uint256.Int) error
	// SpendApproved consumes amount of fromAddr's previously-approved
	// balance, failing if insufficient.
	SpendApproved(fromAddr Address, amount *uint256.Int) error
}

// statelessExecContext is the concrete StatelessContext used by asset
// scripts.
type statelessExecContext struct {
	block *BlockEnv
	tx    *TxEnv
	gas   uint64
}

// NewStatelessContext constructs a StatelessContext with the given gas
// budget.
func NewStatelessContext(block *BlockEnv, tx *TxEnv, gasLimit uint64) StatelessContext {
	return &statelessExecContext{block: block, tx: tx, gas: gasLimit}
}

func (c *statelessExecContext) Block() *BlockEnv     { return c.block }
func (c *statelessExecContext) Tx() *TxEnv           { return c.tx }
func (c *statelessExecContext) GasRemaining() uint64 { return c.gas }

func (c *statelessExecContext) ChargeGas(cost uint64) error {
	if cost > c.gas {
		have := c.gas
		c.gas = 0
		return newExecErr(ErrOutOfGas, "need %d, have %d", cost, have)
	}
	c.gas -= cost
	return nil
}

// Log is an emitted event record (stateful execution only).
type Log struct {
	ContractID ContractID
	EventID    []byte
	Fields     []Value
}

// statefulExecContext is the concrete StatefulContext used by transaction
// and contract scripts.
type statefulExecContext struct {
	statelessExecContext

	world   *StagingWorldState
	outBal  *Balances
	pool    *ContractPool

	generated []AssetOutput
	inputs    []OutputRef
	logs      []Log
	approved  map[Address]*uint256.Int
}

// NewStatefulContext constructs a StatefulContext wired to the given
// staging world state, initial output balances and contract pool.
func NewStatefulContext(block *BlockEnv, tx *TxEnv, gasLimit uint64, world *StagingWorldState, outBal *Balances, pool *ContractPool) StatefulContext {
	return &statefulExecContext{
		statelessExecContext: statelessExecContext{block: block, tx: tx, gas: gasLimit},
		world:                world,
		outBal:               outBal,
		pool:                 pool,
	}
}

func (c *statefulExecContext) WorldState() *StagingWorldState { return c.world }
func (c *statefulExecContext) OutputBalances() *Balances      { return c.outBal }
func (c *statefulExecContext) Pool() *ContractPool             { return c.pool }

func (c *statefulExecContext) AppendGeneratedOutput(o AssetOutput) {
	c.generated = append(c.generated, o)
}
func (c *statefulExecContext) GeneratedOutputs() []AssetOutput { return c.generated }

func (c *statefulExecContext) AppendContractInput(r OutputRef) {
	c.inputs = append(c.inputs, r)
}
func (c *statefulExecContext) ContractInputs() []OutputRef { return c.inputs }

func (c *statefulExecContext) AppendLog(l Log)  { c.logs = append(c.logs, l) }
func (c *statefulExecContext) Logs() []Log      { return c.logs }

func (c *statefulExecContext) NextOutputIndex() int {
	return len(c.tx.Tx.FixedOutputs) + len(c.generated)
}

func (c *statefulExecContext) NextContractOutputRef(out AssetOutput) OutputRef {
	idx := c.NextOutputIndex()
	h := deriveOutputHash(c.tx.Tx.ID, out, idx)
	return OutputRef{Hint: uint32(idx), Key: h}
}

func (c *statefulExecContext) Approve(fromAddr Address, amount *uint256.Int) error {
	if err := c.outBal.SubAlf(fromAddr, amount); err != nil {
		return err
	}
	if c.approved == nil {
		c.approved = make(map[Address]*uint256.Int)
	}
	cur, ok := c.approved[fromAddr]
	if !ok {
		cur = new(uint256.Int)
	}
	c.approved[fromAddr] = new(uint256.Int).Add(cur, amount)
	return nil
}

func (c *statefulExecContext) SpendApproved(fromAddr Address, amount *uint256.Int) error {
	cur, ok := c.approved[fromAddr]
	if !ok || cur.Lt(amount) {
		return newExecErr(ErrInvalidBalances, "no sufficient approved balance for %s", fromAddr)
	}
	c.approved[fromAddr] = new(uint256.Int).Sub(cur, amount)
	return nil
}
