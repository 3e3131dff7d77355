package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"medledger/api/client"
	"medledger/core/blobstore"
	"medledger/core/config"
	"medledger/core/consult"
)

var rootCmd = &cobra.Command{
	Use:   "medledger",
	Short: "Medical record ledger CLI",
	Long:  "A command-line tool for querying and writing patient records on a medledger node.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("output", "o", "plain", "Output format: plain|json")
	rootCmd.PersistentFlags().Bool("allow-mock", false, "Fall back to an in-memory mock ledger when the node is unusable")
}

// loadConfig reads .env plus the environment, matching the daemon's sources.
func loadConfig() (*config.Config, error) {
	_ = godotenv.Load()
	return config.Load()
}

func cliLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.WarnLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
}

// connectLedger dials the configured node with the CLI's flags applied.
func connectLedger(cmd *cobra.Command, cfg *config.Config, log zerolog.Logger) (client.Ledger, error) {
	allowMock, _ := cmd.Flags().GetBool("allow-mock")
	return client.Connect(context.Background(), client.Config{
		URL:               cfg.LedgerURL,
		APIKey:            cfg.APIKey,
		Writer:            cfg.WriterAddress,
		ConnectTimeout:    cfg.ConnectTimeout,
		CallTimeout:       cfg.CallTimeout,
		AllowMockFallback: allowMock,
		Logger:            log,
	})
}

func newBlobClient(cfg *config.Config, log zerolog.Logger) *blobstore.Client {
	return blobstore.New(blobstore.Config{
		GatewayURL: cfg.BlobGatewayURL,
		UploadURL:  cfg.BlobUploadURL,
		APIKey:     cfg.BlobAPIKey,
		Logger:     log,
	})
}

// newService wires the full consultation stack for write commands.
func newService(cmd *cobra.Command) (*consult.Service, client.Ledger, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	log := cliLogger(cfg)
	led, err := connectLedger(cmd, cfg, log)
	if err != nil {
		return nil, nil, nil, err
	}
	svc := consult.NewService(newBlobClient(cfg, log), led, log)
	return svc, led, cfg, nil
}
