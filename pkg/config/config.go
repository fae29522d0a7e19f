// Package config provides a reusable loader for the VM toolchain's
// configuration files and environment variables. It is versioned so that
// applications can depend on a stable API contract.
//
// Version: v0.1.0
package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/alephium-project/svm/pkg/utils"
)

// Version is the semantic version of this configuration package.
const Version = "v0.1.0"

// Config is the unified configuration for the compiler/VM toolchain. It
// mirrors the structure of the YAML files under cmd/config.
type Config struct {
	Compiler struct {
		// LoopUnrollingLimit caps the total number of statements a single
		// for-loop may expand to; UnrollProgramWithLimit (reached through
		// lang.CompileWithConfig) fails a compile rather than emit an
		// unbounded instruction stream past this limit.
		LoopUnrollingLimit int `mapstructure:"loop_unrolling_limit" json:"loop_unrolling_limit"`
	} `mapstructure:"compiler" json:"compiler"`

	VM struct {
		MaxFrames       int  `mapstructure:"max_frames" json:"max_frames"`
		OperandStackCap int  `mapstructure:"operand_stack_cap" json:"operand_stack_cap"`
		OpcodeDebug     bool `mapstructure:"opcode_debug" json:"opcode_debug"`
	} `mapstructure:"vm" json:"vm"`

	Storage struct {
		DBPath string `mapstructure:"db_path" json:"db_path"`
		Prune  bool   `mapstructure:"prune" json:"prune"`
	} `mapstructure:"storage" json:"storage"`

	Logging struct {
		Level string `mapstructure:"level" json:"level"`
		File  string `mapstructure:"file" json:"file"`
	} `mapstructure:"logging" json:"logging"`
}

// AppConfig holds the configuration loaded via Load or LoadFromEnv.
var AppConfig Config

// Load reads configuration files and merges any environment specific
// overrides. The resulting configuration is stored in AppConfig and returned.
//
// The function uses the provided environment name to merge additional config
// files. If env is empty, only the default configuration is loaded.
func Load(env string) (*Config, error) {
	viper.SetConfigName("default")
	viper.AddConfigPath("cmd/config")
	viper.AddConfigPath("config")
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		return nil, utils.Wrap(err, "load config")
	}

	if env != "" {
		viper.SetConfigName(env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, utils.Wrap(err, fmt.Sprintf("merge %s config", env))
		}
	}

	viper.AutomaticEnv() // also reads matching process environment variables

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, utils.Wrap(err, "unmarshal config")
	}
	return &AppConfig, nil
}

// LoadFromEnv loads configuration using the SVM_ENV environment variable.
func LoadFromEnv() (*Config, error) {
	return Load(utils.EnvOrDefault("SVM_ENV", ""))
}
