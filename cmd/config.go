package cmd

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/mitchellh/go-wordwrap"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kgcourse/geopub/internal/cmdutil"
	"github.com/kgcourse/geopub/internal/output"
	"github.com/kgcourse/geopub/pkg/config"
	"github.com/kgcourse/geopub/pkg/presets"
	"github.com/kgcourse/geopub/pkg/wallet"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the geopub configuration file",
}

// configFilePath is the file config commands write to: --config when given,
// else the file in use, else the default location.
func configFilePath() (string, error) {
	if cfgFilePath != "" {
		return cfgFilePath, nil
	}
	if used := viper.ConfigFileUsed(); used != "" {
		return used, nil
	}
	dir, err := userConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configName+".yaml"), nil
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a configuration file interactively",
	Long: wordwrap.WrapString(
		"Asks for a network, a private key and a default space, and writes them "+
			"to the configuration file. Values already in the file are replaced.",
		80),
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := configFilePath()
		if err != nil {
			return err
		}
		p := cmdutil.StreamPrompter(cmd.InOrStdin(), cmd.ErrOrStderr())

		networkAnswer, err := p.Ask("Network (TESTNET or MAINNET)", string(presets.DefaultNetwork.Name))
		if err != nil {
			return err
		}
		network, err := presets.ParseNetwork(networkAnswer)
		if err != nil {
			return err
		}

		key, err := p.Ask("Private key (0x...)", "")
		if err != nil {
			return err
		}
		if _, err := wallet.ParsePrivateKey(key); err != nil {
			return err
		}

		smart, err := p.Ask("Publish through a sponsored smart account? (true/false)", "true")
		if err != nil {
			return err
		}
		useSmart, err := strconv.ParseBool(smart)
		if err != nil {
			return fmt.Errorf("invalid answer %q: %w", smart, err)
		}

		values := map[string]any{
			"network":              string(network),
			"wallet.private_key":   key,
			"wallet.smart_account": useSmart,
		}
		space, err := p.Ask("Default space id (empty for your personal space)", "-")
		if err != nil {
			return err
		}
		if space != "-" {
			id, err := cmdutil.ParseSpaceID(space)
			if err != nil {
				return err
			}
			values["space.id"] = id.String()
		}

		if err := config.WriteFile(cmdutil.Fs, path, values); err != nil {
			return err
		}
		output.Success(cmd.OutOrStdout(), "wrote %s", path)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a value in the configuration file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := configFilePath()
		if err != nil {
			return err
		}
		var value any = args[1]
		if b, err := strconv.ParseBool(args[1]); err == nil {
			value = b
		}
		if err := config.WriteFile(cmdutil.Fs, path, map[string]any{args[0]: value}); err != nil {
			return err
		}
		output.Success(cmd.OutOrStdout(), "set %s in %s", args[0], path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: wordwrap.WrapString(
		"Prints every setting after flags, environment variables and the "+
			"configuration file have been applied. The private key is never printed.",
		80),
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rows := [][]string{{"KEY", "VALUE"}}
		for _, k := range config.Keys {
			value := viper.Get(k)
			if value == nil {
				value = ""
			}
			rows = append(rows, []string{k, fmt.Sprint(config.Redact(k, value))})
		}
		output.Table(cmd.OutOrStdout(), rows)
		if used := viper.ConfigFileUsed(); used != "" {
			cmd.PrintErrf("\nconfig file: %s\n", used)
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd, configSetCmd, configShowCmd)
}
