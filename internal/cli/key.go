package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"resume-roaster/internal/apikey"
)

var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Manage the locally stored OpenRouter API key used in direct mode",
}

var keySetCmd = &cobra.Command{
	Use:   "set [key]",
	Short: "Save an API key (prompted when omitted)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := getConfig()
		if err != nil {
			return err
		}
		keys, err := keyManager(config)
		if err != nil {
			return err
		}
		value := ""
		if len(args) == 1 {
			value = args[0]
		} else {
			if value, err = (terminalUI{}).PromptAPIKey(cmd.Context()); err != nil {
				return promptErr(err)
			}
		}
		if err := keys.Set(value); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "API key saved")
		return nil
	},
}

var keyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Forget the stored API key",
	RunE: func(cmd *cobra.Command, _ []string) error {
		config, err := getConfig()
		if err != nil {
			return err
		}
		keys, err := keyManager(config)
		if err != nil {
			return err
		}
		if err := keys.Clear(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "API key cleared")
		return nil
	},
}

var keyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show whether a key is stored",
	RunE: func(cmd *cobra.Command, _ []string) error {
		config, err := getConfig()
		if err != nil {
			return err
		}
		keys, err := keyManager(config)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), maskKey(keys.Key()))
		return nil
	},
}

func init() {
	keyCmd.AddCommand(keySetCmd, keyClearCmd, keyShowCmd)
	rootCmd.AddCommand(keyCmd)
}

// keyManager opens the key store named by config, or the default location.
func keyManager(config *Config) (*apikey.Manager, error) {
	path := strings.TrimSpace(config.KeyFile)
	if path == "" {
		var err error
		if path, err = apikey.DefaultPath(app); err != nil {
			return nil, err
		}
	}
	m := apikey.NewManager(apikey.NewFileStore(path))
	if err := m.Load(); err != nil {
		return nil, err
	}
	return m, nil
}

func maskKey(key string) string {
	if key == "" {
		return "no API key stored"
	}
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}
