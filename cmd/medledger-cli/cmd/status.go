package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"medledger/api/rpc"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Query node status and contract provisioning",
	Example: `  medledger status
  medledger status --output json`,
	Run: func(cmd *cobra.Command, args []string) {
		output, _ := cmd.Flags().GetString("output")
		cfg, err := loadConfig()
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}

		ctx, cancel := context.WithTimeout(context.Background(), cfg.CallTimeout)
		defer cancel()
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.LedgerURL+"/status", nil)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			fmt.Printf("Error: node unreachable at %s: %v\n", cfg.LedgerURL, err)
			os.Exit(1)
		}
		defer resp.Body.Close()

		var status rpc.StatusResponse
		if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
			fmt.Printf("Error: bad status response: %v\n", err)
			os.Exit(1)
		}

		if output == "json" {
			out, _ := json.MarshalIndent(status, "", "  ")
			fmt.Println(string(out))
			return
		}
		fmt.Printf("Node: %s\nVersion: %s\nStatus: %s\nProvisioned: %v\nAppends: %d\nPatients: %d\n",
			status.Name, status.Version, status.Status, status.Provisioned, status.Appends, status.Patients)
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
