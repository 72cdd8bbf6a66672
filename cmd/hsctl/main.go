package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Version info (set by build)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	// Global flags
	cfgFile    string
	baseURL    string
	token      string
	direct     bool
	outputJSON bool
	verbose    bool
)

const defaultURL = "http://localhost:3000"

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "hsctl",
	Short: "Headscale dashboard command-line interface",
	Long: `hsctl manages a headscale tailnet from the terminal.

By default requests go through the dashboard's /api/proxy mount. With
--direct, --url names the headscale server itself.`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/hsctl/cli.yaml)")
	rootCmd.PersistentFlags().StringVar(&baseURL, "url", "", "dashboard URL, or headscale URL with --direct")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "headscale API key")
	rootCmd.PersistentFlags().BoolVar(&direct, "direct", false, "talk to headscale directly instead of the dashboard proxy")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	_ = viper.BindPFlag("url", rootCmd.PersistentFlags().Lookup("url"))
	_ = viper.BindPFlag("token", rootCmd.PersistentFlags().Lookup("token"))
	_ = viper.BindPFlag("direct", rootCmd.PersistentFlags().Lookup("direct"))

	rootCmd.AddCommand(
		newLoginCmd(),
		newStatusCmd(),
		newNodesCmd(),
		newUsersCmd(),
		newRoutesCmd(),
		newPreAuthKeysCmd(),
		newAPIKeysCmd(),
		newPolicyCmd(),
		newVersionCmd(),
	)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("cli")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("$HOME/.config/hsctl")
		viper.AddConfigPath(".")
	}

	viper.SetEnvPrefix("HSCTL")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}

	if baseURL == "" {
		baseURL = viper.GetString("url")
		if baseURL == "" {
			baseURL = defaultURL
		}
	}
	if token == "" {
		token = viper.GetString("token")
	}
	if !direct {
		direct = viper.GetBool("direct")
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
