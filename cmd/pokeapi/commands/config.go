package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/fivetwenty-io/pokeapi/internal/constants"
	"github.com/fivetwenty-io/pokeapi/pkg/pokeapi"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// ConfigDirName is the directory under the home directory holding config.yml.
const ConfigDirName = ".pokeapi"

// Config represents the persisted CLI configuration.
type Config struct {
	BaseURL   string `json:"base_url,omitempty"   yaml:"base_url,omitempty"`
	CacheType string `json:"cache_type,omitempty" yaml:"cache_type,omitempty"`
	CacheDir  string `json:"cache_dir,omitempty"  yaml:"cache_dir,omitempty"`
	NATSURL   string `json:"nats_url,omitempty"   yaml:"nats_url,omitempty"`
	MaxAge    string `json:"cache_max_age,omitempty" yaml:"cache_max_age,omitempty"`
	Output    string `json:"output,omitempty"     yaml:"output,omitempty"`
	NoMatch   bool   `json:"no_match"             yaml:"no_match"`
	Dedup     bool   `json:"dedup"                yaml:"dedup"`
	Timeout   string `json:"timeout,omitempty"    yaml:"timeout,omitempty"`
	Retries   *int   `json:"retries,omitempty"    yaml:"retries,omitempty"`
}

// NewConfigCommand creates the config command group.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration",
		Long:  "Show and change the settings stored in ~/.pokeapi/config.yml",
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigSetCommand())
	cmd.AddCommand(newConfigUnsetCommand())
	cmd.AddCommand(newConfigPathCommand())

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Long:  "Display the effective configuration after flags, environment and config file are merged",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			config := loadConfig()

			return render(cmd.OutOrStdout(), config, func(table *tablewriter.Table) error {
				table.Header("Property", "Value")
				_ = table.Append("base_url", orNotAvailable(config.BaseURL))
				_ = table.Append("cache_type", orNotAvailable(config.CacheType))
				_ = table.Append("cache_dir", orNotAvailable(config.CacheDir))
				_ = table.Append("nats_url", orNotAvailable(config.NATSURL))
				_ = table.Append("output", orNotAvailable(config.Output))
				_ = table.Append("no_match", strconv.FormatBool(config.NoMatch))
				_ = table.Append("dedup", strconv.FormatBool(config.Dedup))
				_ = table.Append("timeout", orNotAvailable(config.Timeout))
				_ = table.Append("cache_max_age", orNotAvailable(config.MaxAge))

				retries := constants.NotAvailable
				if config.Retries != nil {
					retries = strconv.Itoa(*config.Retries)
				}

				return table.Append("retries", retries)
			})
		},
	}
}

func newConfigSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Set a configuration value",
		Long: `Set a configuration value and save it to the config file.

Keys: base_url, cache_type, cache_dir, nats_url, output, no_match, dedup, timeout, retries`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := readConfigFile(configFilePath())
			if err != nil {
				return err
			}

			if err := setConfigValue(config, args[0], args[1]); err != nil {
				return err
			}

			if err := saveConfig(configFilePath(), config); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", args[0], args[1])

			return nil
		},
	}
}

func newConfigUnsetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "unset KEY",
		Short: "Remove a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := readConfigFile(configFilePath())
			if err != nil {
				return err
			}

			if err := unsetConfigValue(config, args[0]); err != nil {
				return err
			}

			if err := saveConfig(configFilePath(), config); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Unset %s\n", args[0])

			return nil
		},
	}
}

func newConfigPathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), configFilePath())

			return err
		},
	}
}

// loadConfig returns the effective configuration from viper.
func loadConfig() *Config {
	config := &Config{
		BaseURL:   viper.GetString(KeyBaseURL),
		CacheType: viper.GetString(KeyCacheType),
		CacheDir:  viper.GetString(KeyCacheDir),
		NATSURL:   viper.GetString(KeyNATSURL),
		Output:    viper.GetString(KeyOutput),
		NoMatch:   viper.GetBool(KeyNoMatch),
		Dedup:     viper.GetBool(KeyDedup),
	}

	if timeout := viper.GetDuration(KeyTimeout); timeout > 0 {
		config.Timeout = timeout.String()
	}

	if maxAge := viper.GetDuration(KeyCacheMaxAge); maxAge > 0 {
		config.MaxAge = maxAge.String()
	}

	if viper.IsSet(KeyRetries) {
		retries := viper.GetInt(KeyRetries)
		config.Retries = &retries
	}

	return config
}

// setConfigValue validates value and stores it under key.
func setConfigValue(config *Config, key, value string) error {
	switch key {
	case KeyBaseURL:
		config.BaseURL = value
	case KeyCacheType:
		switch value {
		case "file", "bolt", "nats", "none":
			config.CacheType = value
		default:
			return fmt.Errorf("%w: %s", constants.ErrInvalidCacheType, value)
		}
	case KeyCacheDir:
		config.CacheDir = value
	case KeyNATSURL:
		config.NATSURL = value
	case KeyOutput:
		switch value {
		case constants.FormatJSON, constants.FormatYAML, constants.FormatTable:
			config.Output = value
		default:
			return fmt.Errorf("%w: %s", constants.ErrInvalidOutput, value)
		}
	case KeyNoMatch, KeyDedup:
		enabled, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid value for %s: %w", key, err)
		}

		if key == KeyNoMatch {
			config.NoMatch = enabled
		} else {
			config.Dedup = enabled
		}
	case KeyTimeout:
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid value for %s: %w", key, err)
		}

		config.Timeout = value
	case KeyCacheMaxAge:
		maxAge, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid value for %s: %w", key, err)
		}

		if maxAge < 0 {
			return fmt.Errorf("invalid value for %s: %w", key, pokeapi.ErrInvalidCacheMaxAge)
		}

		config.MaxAge = value
	case KeyRetries:
		retries, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for %s: %w", key, err)
		}

		config.Retries = &retries
	default:
		return fmt.Errorf("%w: %s", constants.ErrUnknownConfigKey, key)
	}

	return nil
}

func unsetConfigValue(config *Config, key string) error {
	switch key {
	case KeyBaseURL:
		config.BaseURL = ""
	case KeyCacheType:
		config.CacheType = ""
	case KeyCacheDir:
		config.CacheDir = ""
	case KeyNATSURL:
		config.NATSURL = ""
	case KeyOutput:
		config.Output = ""
	case KeyNoMatch:
		config.NoMatch = false
	case KeyDedup:
		config.Dedup = false
	case KeyTimeout:
		config.Timeout = ""
	case KeyCacheMaxAge:
		config.MaxAge = ""
	case KeyRetries:
		config.Retries = nil
	default:
		return fmt.Errorf("%w: %s", constants.ErrUnknownConfigKey, key)
	}

	return nil
}

// configFilePath returns the file viper read, or ~/.pokeapi/config.yml.
func configFilePath() string {
	if used := viper.ConfigFileUsed(); used != "" {
		return used
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(ConfigDirName, "config.yml")
	}

	return filepath.Join(home, ConfigDirName, "config.yml")
}

// readConfigFile reads only what is persisted at path; a missing file is empty.
func readConfigFile(path string) (*Config, error) {
	config := &Config{}

	// path comes from the --config flag or the user's home directory
	// #nosec G304
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return config, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return config, nil
}

func saveConfig(path string, config *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), constants.ConfigDirPerm); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, constants.ConfigFilePerm); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func orNotAvailable(value string) string {
	if value == "" {
		return constants.NotAvailable
	}

	return value
}
