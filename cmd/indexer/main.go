package main

import (
	"encoding/json"
	"fmt"
	"os"

	giga "github.com/dogeorg/utxoindexer/pkg"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	var config giga.Config
	LoadConfig(&config)

	rootCmd := &cobra.Command{
		Use: "utxoindexer",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
			os.Exit(0)
		},
	}

	rootCmd.PersistentFlags().StringVar(&config.Indexer.ServiceName, "service-name", "", "service name")
	rootCmd.PersistentFlags().Int64Var(&config.Indexer.BlockRewardLock, "block-reward-lock", 100, "height offset before a block reward matures")
	rootCmd.PersistentFlags().Uint16Var(&config.Indexer.GapLimit, "gap-limit", 20, "default gap limit for wallet registrations that omit max_gap")
	rootCmd.PersistentFlags().StringVar(&config.Store.Driver, "store-driver", "sqlite", "store driver (sqlite|postgres)")
	rootCmd.PersistentFlags().StringVar(&config.Store.DBFile, "store-db-file", "", "sqlite file path")
	rootCmd.PersistentFlags().StringVar(&config.Store.ConnectionString, "store-dsn", "", "postgres connection string")
	rootCmd.PersistentFlags().StringVar(&config.Chain.ZMQAddress, "zmq-address", "", "chain node ZMQ publisher endpoint")
	rootCmd.PersistentFlags().StringVar(&config.Chain.RPCHost, "rpc-host", "", "chain node RPC host")
	rootCmd.PersistentFlags().StringVar(&config.Chain.RPCPort, "rpc-port", "", "chain node RPC port")
	rootCmd.PersistentFlags().StringVar(&config.WebAPI.AdminBind, "admin-bind", "127.0.0.1", "admin API bind address")
	rootCmd.PersistentFlags().StringVar(&config.WebAPI.AdminPort, "admin-port", "8090", "admin API port")
	rootCmd.PersistentFlags().StringVar(&config.WebAPI.PubBind, "pub-bind", "0.0.0.0", "public API bind address")
	rootCmd.PersistentFlags().StringVar(&config.WebAPI.PubPort, "pub-port", "8080", "public API port")
	viper.BindPFlags(rootCmd.PersistentFlags())

	var remoteAdmin string
	var xpubkey string
	var maxGap uint16

	serverCmd := &cobra.Command{
		Use:   "server",
		Short: "start the indexer",
		Run: func(cmd *cobra.Command, args []string) {
			Server(config)
		},
	}

	configCmd := &cobra.Command{
		Use:   "showconf",
		Short: "print the loaded config and exit",
		Run: func(cmd *cobra.Command, args []string) {
			o, _ := json.MarshalIndent(config, "", "  ")
			fmt.Println(string(o))
			os.Exit(0)
		},
	}

	registerCmd := &cobra.Command{
		Use:   "register-wallet",
		Short: "register an xpubkey against a running indexer's admin API",
		Run: func(cmd *cobra.Command, args []string) {
			if xpubkey == "" {
				fmt.Println("missing --xpubkey")
				os.Exit(1)
			}
			if err := RegisterWallet(config, remoteAdmin, xpubkey, maxGap); err != nil {
				fmt.Println(err)
				os.Exit(1)
			}
		},
	}
	registerCmd.Flags().StringVar(&remoteAdmin, "admin-server", "", "base URL of the admin API, e.g. http://localhost:8090 (defaults to the loaded config)")
	registerCmd.Flags().StringVar(&xpubkey, "xpubkey", "", "extended public key to register")
	registerCmd.Flags().Uint16Var(&maxGap, "max-gap", 0, "gap limit override (0 uses the server default)")

	chainstateCmd := &cobra.Command{
		Use:   "chainstate",
		Short: "print the indexer's chain checkpoint",
		Run: func(cmd *cobra.Command, args []string) {
			if err := PrintChainState(config, remoteAdmin); err != nil {
				fmt.Println(err)
				os.Exit(1)
			}
		},
	}
	chainstateCmd.Flags().StringVar(&remoteAdmin, "admin-server", "", "base URL of the admin API")

	rootCmd.AddCommand(serverCmd, configCmd, registerCmd, chainstateCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func LoadConfig(config *giga.Config) {
	configFileName, set := os.LookupEnv("INDEXER_ENV")
	if set {
		viper.SetConfigName(configFileName)
	} else {
		viper.SetConfigName("config")
	}

	viper.SetConfigType("toml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/etc/utxoindexer/")
	viper.AddConfigPath("$HOME/.utxoindexer")
	viper.SetEnvPrefix("INDEXER")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Println("failed to read config file: ", err)
			os.Exit(1)
		}
	}

	if err := viper.Unmarshal(config); err != nil {
		panic(fmt.Errorf("failed to unmarshal config: %s", err))
	}
}
