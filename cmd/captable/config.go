// Config loading for the captable CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"captable-lab/internal/orchestrator"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	defaultConfigDir = ".captable"

	cfgKeyOutputDir   = "output_dir"
	cfgKeyCurvePoints = "curve_points"
)

// defaultConfigYAML is the content written to config.yaml on first run.
const defaultConfigYAML = `# captable CLI configuration

# Directory report files are written to (overridable by --output-dir)
output_dir: output

# Allocation curve sample points
curve_points: 101
`

// cliConfig is the resolved configuration of one invocation.
type cliConfig struct {
	OutputDir   string
	CurvePoints int
}

// loadConfig reads config.yaml from the config directory using Viper.
// It creates the directory and a default config.yaml on first run.
func loadConfig(configDir string) (*cliConfig, error) {
	if configDir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolve working directory: %w", err)
		}
		configDir = filepath.Join(cwd, defaultConfigDir)
	}

	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := ensureDefaultConfigFile(configDir); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	v.SetDefault(cfgKeyOutputDir, "output")
	v.SetDefault(cfgKeyCurvePoints, orchestrator.DefaultCurvePoints)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		// A missing config.yaml is not an error; defaults apply.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	return &cliConfig{
		OutputDir:   v.GetString(cfgKeyOutputDir),
		CurvePoints: v.GetInt(cfgKeyCurvePoints),
	}, nil
}

// ensureDefaultConfigFile creates a default config.yaml if the file does not
// exist in the config directory.
func ensureDefaultConfigFile(configDir string) error {
	path := filepath.Join(configDir, configFileExt)

	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}

	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}
