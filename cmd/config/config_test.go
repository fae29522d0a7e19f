package config

import (
	"os"
	"testing"

	"github.com/spf13/viper"

	"github.com/alephium-project/svm/internal/testutil"
)

func TestLoadConfigDefault(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd failed: %v", err)
	}
	defer os.Chdir(wd)
	viper.Reset()

	if err := os.Chdir("../.."); err != nil {
		t.Fatalf("chdir failed: %v", err)
	}
	LoadConfig("")
	if AppConfig.Compiler.LoopUnrollingLimit != 4096 {
		t.Fatalf("unexpected loop unrolling limit: %d", AppConfig.Compiler.LoopUnrollingLimit)
	}
	if AppConfig.VM.OpcodeDebug {
		t.Fatalf("expected opcode_debug false by default")
	}
}

func TestLoadConfigOverride(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd failed: %v", err)
	}
	defer os.Chdir(wd)
	viper.Reset()

	if err := os.Chdir("../.."); err != nil {
		t.Fatalf("chdir failed: %v", err)
	}
	LoadConfig("bootstrap")
	if !AppConfig.VM.OpcodeDebug {
		t.Fatalf("expected opcode_debug overridden to true")
	}
	if AppConfig.Logging.Level != "debug" {
		t.Fatalf("expected logging level override to debug, got %s", AppConfig.Logging.Level)
	}
}

func TestLoadConfigSandbox(t *testing.T) {
	sb, err := testutil.NewSandbox()
	if err != nil {
		t.Fatalf("NewSandbox failed: %v", err)
	}
	defer sb.Cleanup()

	if err := os.Mkdir(sb.Path("config"), 0700); err != nil {
		t.Fatalf("Mkdir failed: %v", err)
	}

	data := []byte("compiler:\n  loop_unrolling_limit: 256\n")
	if err := sb.WriteFile("config/default.yaml", data, 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd failed: %v", err)
	}
	defer os.Chdir(wd)
	viper.Reset()

	if err := os.Chdir(sb.Root); err != nil {
		t.Fatalf("chdir failed: %v", err)
	}
	LoadConfig("")

	if AppConfig.Compiler.LoopUnrollingLimit != 256 {
		t.Fatalf("expected loop unrolling limit 256, got %d", AppConfig.Compiler.LoopUnrollingLimit)
	}
}
