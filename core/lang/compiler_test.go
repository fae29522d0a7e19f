package lang

import (
	"strings"
	"testing"

	"github.com/holiman/uint256"

	"github.com/alephium-project/svm/core"
)

// compileSoleMethod compiles src and returns the single contract's single
// method — every fixture below declares exactly one contract with exactly
// one method, so there is no need to resolve by name.
func compileSoleMethod(t *testing.T, src, contractName string) *core.Method {
	t.Helper()
	result, err := Compile(src)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	contract, ok := result.Contracts[contractName]
	if !ok {
		t.Fatalf("contract %s not compiled", contractName)
	}
	methods := contract.Methods()
	if len(methods) != 1 {
		t.Fatalf("expected exactly one method, got %d", len(methods))
	}
	return methods[0]
}

// asCodeObject packages a single emitted method into a minimal CodeObject
// so the VM has somewhere to resolve CallLocal against (unused by these
// fixtures, but required by Execute/Frame's contract).
func asCodeObject(t *testing.T, m *core.Method) core.CodeObject {
	t.Helper()
	s, err := core.PackageStatelessScript([]*core.Method{m})
	if err != nil {
		t.Fatalf("PackageStatelessScript: %v", err)
	}
	return s
}

func freshStatelessContext() core.StatelessContext {
	block := &core.BlockEnv{}
	tx := &core.TxEnv{Tx: &core.Transaction{}, SignatureStack: core.NewStack[[]byte](1)}
	return core.NewStatelessContext(block, tx, 1_000_000)
}

func TestCompileAddTwo(t *testing.T) {
	src := `
Contract Adder() {
  pub fn add(a: U256, b: U256) -> U256 {
    return a + b;
  }
}
`
	method := compileSoleMethod(t, src, "Adder")
	if method.ArgsLength != 2 {
		t.Fatalf("expected 2 args, got %d", method.ArgsLength)
	}
	if method.ReturnLength != 1 {
		t.Fatalf("expected 1 return value, got %d", method.ReturnLength)
	}

	vm := core.NewVM(64, 64)
	ctx := freshStatelessContext()
	args := []core.Value{core.NewU256FromUint64(3), core.NewU256FromUint64(4)}
	results, err := vm.Execute(ctx, asCodeObject(t, method), core.ContractID{}, method, args)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(results) != 1 || results[0].AsU256().Uint64() != 7 {
		t.Fatalf("expected [7], got %v", results)
	}
}

func TestCompileOverflowFailsWithArithmeticError(t *testing.T) {
	src := `
Contract Adder() {
  pub fn addOverflow(a: U256, b: U256) -> U256 {
    return a + b;
  }
}
`
	method := compileSoleMethod(t, src, "Adder")

	vm := core.NewVM(64, 64)
	ctx := freshStatelessContext()
	maxU256 := new(uint256.Int).SetAllOne()
	args := []core.Value{core.NewU256(maxU256), core.NewU256FromUint64(1)}
	_, err := vm.Execute(ctx, asCodeObject(t, method), core.ContractID{}, method, args)
	if err == nil {
		t.Fatalf("expected arithmetic overflow error")
	}
	execErr, ok := core.AsExecutionError(err)
	if !ok {
		t.Fatalf("expected *core.ExecutionError, got %T: %v", err, err)
	}
	if execErr.Code != core.ErrArithmeticErrorCode {
		t.Fatalf("expected ArithmeticError, got %v", execErr.Code)
	}
}

func TestCompileDivideByZeroFailsWithArithmeticError(t *testing.T) {
	src := `
Contract Divider() {
  pub fn divZero(a: U256, b: U256) -> U256 {
    return a / b;
  }
}
`
	method := compileSoleMethod(t, src, "Divider")

	vm := core.NewVM(64, 64)
	ctx := freshStatelessContext()
	args := []core.Value{core.NewU256FromUint64(10), core.NewU256FromUint64(0)}
	_, err := vm.Execute(ctx, asCodeObject(t, method), core.ContractID{}, method, args)
	if err == nil {
		t.Fatalf("expected divide-by-zero error")
	}
	execErr, ok := core.AsExecutionError(err)
	if !ok {
		t.Fatalf("expected *core.ExecutionError, got %T: %v", err, err)
	}
	if execErr.Code != core.ErrArithmeticErrorCode {
		t.Fatalf("expected ArithmeticError, got %v", execErr.Code)
	}
}

func TestCompileLoopUnrollProducesNoJumpInstructions(t *testing.T) {
	src := `
Contract Summer() {
  pub fn sumFour() -> U256 {
    let mut x: U256 = 0;
    for i in 0..4 {
      x = x + i;
    }
    return x;
  }
}
`
	method := compileSoleMethod(t, src, "Summer")
	for _, instr := range method.Instrs {
		if _, ok := instr.(core.JumpInstr); ok {
			t.Fatalf("unrolled loop body must contain no Jump instructions")
		}
	}

	vm := core.NewVM(64, 64)
	ctx := freshStatelessContext()
	results, err := vm.Execute(ctx, asCodeObject(t, method), core.ContractID{}, method, nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(results) != 1 || results[0].AsU256().Uint64() != 6 {
		t.Fatalf("expected [6] (0+1+2+3), got %v", results)
	}
}

func TestCompileLoopUnrollingLimitExceededFails(t *testing.T) {
	src := `
Contract Big() {
  pub fn tooBig() {
    let mut x: U256 = 0;
    for i in 0..1000000 {
      x = x + i;
    }
  }
}
`
	_, err := CompileWithConfig(src, Config{LoopUnrollingLimit: 16})
	if err == nil {
		t.Fatalf("expected loop unrolling limit failure")
	}
}

func TestCompileNestedForLoopFailsCompilation(t *testing.T) {
	src := `
Contract Nested() {
  pub fn sumGrid() -> U256 {
    let mut x: U256 = 0;
    for i in 0..4 {
      for j in 0..4 {
        x = x + i;
      }
    }
    return x;
  }
}
`
	_, err := Compile(src)
	if err == nil {
		t.Fatalf("expected nested for-loop to fail compilation")
	}
}

func TestCompileReturnInsideLoopFailsCompilation(t *testing.T) {
	src := `
Contract EarlyReturn() {
  pub fn sumOrBail() -> U256 {
    let mut x: U256 = 0;
    for i in 0..4 {
      return x;
    }
    return x;
  }
}
`
	_, err := Compile(src)
	if err == nil {
		t.Fatalf("expected return statement inside a loop body to fail compilation")
	}
}

func TestCompileDuplicateFunctionNameFailsCompilation(t *testing.T) {
	src := `
Contract Dup() {
  pub fn same(a: U256) -> U256 {
    return a;
  }
  fn same(a: U256, b: U256) -> U256 {
    return a + b;
  }
}
`
	_, err := Compile(src)
	if err == nil {
		t.Fatalf("expected duplicate function name to fail compilation")
	}
}

func TestCompileDuplicateEventNameFailsCompilation(t *testing.T) {
	src := `
Contract Events() {
  pub fn emitTwice(a: U256) {
    emit Ping(a);
    emit Ping(a);
  }
}
`
	_, err := Compile(src)
	if err == nil {
		t.Fatalf("expected duplicate event name to fail compilation")
	}
}

func TestCompileBranchTooLongFailsCompilation(t *testing.T) {
	var body strings.Builder
	body.WriteString(`
Contract Branchy() {
  pub fn longBranch(a: U256) -> U256 {
    let mut x: U256 = a;
    if x == 0 {
`)
	for i := 0; i < 300; i++ {
		body.WriteString("      x = x + 1;\n")
	}
	body.WriteString(`    }
    return x;
  }
}
`)
	_, err := Compile(body.String())
	if err == nil {
		t.Fatalf("expected branch-too-long compile failure")
	}
}
