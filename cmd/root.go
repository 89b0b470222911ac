package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	logging "github.com/ipfs/go-log/v2"
	"github.com/mitchellh/go-wordwrap"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"

	"github.com/kgcourse/geopub/cmd/ops"
	"github.com/kgcourse/geopub/cmd/space"
	"github.com/kgcourse/geopub/internal/telemetry"
	"github.com/kgcourse/geopub/pkg/build"
	"github.com/kgcourse/geopub/pkg/config"
)

var (
	log    = logging.Logger("cmd")
	tracer = otel.Tracer("cmd")
)

const configName = "geopub-config"

var rootCmd = &cobra.Command{
	Use:   "geopub",
	Short: "Publish edits to the knowledge graph",
	Long: wordwrap.WrapString(
		"Publishes batches of knowledge graph operations as edits. Edits go "+
			"straight into personal spaces and are proposed to DAO spaces the "+
			"caller is a member or editor of.",
		80),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := readConfigFile(); err != nil {
			return err
		}
		shutdown, err := telemetry.Setup(cmd.Context(), telemetry.Config{
			Enabled:  viper.GetBool("telemetry.enabled"),
			Endpoint: viper.GetString("telemetry.endpoint"),
			Insecure: viper.GetBool("telemetry.insecure"),
			Version:  build.Version,
		})
		if err != nil {
			return fmt.Errorf("setting up telemetry: %w", err)
		}
		ctx, span := tracer.Start(cmd.Context(), strings.Join(commandPath(cmd), " "))
		setSpanAttributes(cmd, span)
		cmd.SetContext(ctx)
		finish = func(ctx context.Context) error {
			span.End()
			return shutdown(ctx)
		}
		return nil
	},
	// We handle errors ourselves when they're returned from ExecuteContext.
	SilenceErrors: true,
	SilenceUsage:  true,
}

var (
	cfgFilePath string
	finish      = func(context.Context) error { return nil }
)

func init() {
	rootCmd.SetOut(os.Stdout)
	rootCmd.SetErr(os.Stderr)

	initRootFlags()
	cobra.OnInitialize(initConfig)

	rootCmd.AddCommand(
		configCmd,
		historyCmd,
		publishCmd,
		searchCmd,
		versionCmd,
		whoamiCmd,
		ops.Cmd,
		space.Cmd,
	)
}

func defaultDataDir() string {
	homedir, err := os.UserHomeDir()
	if err != nil {
		return ".geopub"
	}
	return filepath.Join(homedir, ".geopub")
}

func initRootFlags() {
	flags := rootCmd.PersistentFlags()

	flags.StringVar(&cfgFilePath, "config", "", "Path to the config file")

	flags.String("data-dir", defaultDataDir(), "Directory containing the publish journal")
	cobra.CheckErr(viper.BindPFlag("repo.data_dir", flags.Lookup("data-dir")))

	flags.String("database-url", "", "PostgreSQL URL for the publish journal, instead of the data dir")
	cobra.CheckErr(viper.BindPFlag("repo.database_url", flags.Lookup("database-url")))

	flags.StringP("network", "n", "", "Network to publish to: TESTNET or MAINNET")
	cobra.CheckErr(viper.BindPFlag("network", flags.Lookup("network")))

	flags.String("space", "", "Default target space id")
	cobra.CheckErr(viper.BindPFlag("space.id", flags.Lookup("space")))

	flags.Bool("smart-account", true, "Publish through a sponsored smart account")
	cobra.CheckErr(viper.BindPFlag("wallet.smart_account", flags.Lookup("smart-account")))
}

func initConfig() {
	// check if environment variables match any of the existing keys
	// as an example a key is 'repo.data_dir'
	viper.AutomaticEnv()
	// when checking for env vars, rename keys searched for from 'repo.data_dir' to 'repo_data_dir'
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.SetEnvPrefix(config.EnvPrefix)
	config.SetDefaults(viper.GetViper())

	viper.SetConfigName(configName)
	viper.SetConfigType("yaml")

	// if no config file was provided, first look in the current directory _then_ look in
	// $XDG_CONFIG_HOME/geopub/
	if cfgFilePath == "" {
		viper.AddConfigPath(".")
		if dir, err := userConfigDir(); err == nil {
			viper.AddConfigPath(dir)
		}
	} else {
		viper.SetConfigFile(cfgFilePath)
	}
}

func userConfigDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "geopub"), nil
}

func readConfigFile() error {
	err := viper.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	switch {
	case err == nil:
		log.Debugw("using config file", "path", viper.ConfigFileUsed())
		return nil
	case errors.As(err, &notFound) && cfgFilePath == "":
		return nil
	default:
		return fmt.Errorf("reading config: %w", err)
	}
}

// ExecuteContext adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func ExecuteContext(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	done := finish
	finish = func(context.Context) error { return nil }
	return errors.Join(err, done(context.WithoutCancel(ctx)))
}
