package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List a patient's consultation history, newest first",
	Example: `  medledger list --patient PAT-001
  medledger list --patient PAT-001 --output json`,
	Run: func(cmd *cobra.Command, args []string) {
		output, _ := cmd.Flags().GetString("output")
		patientID, _ := cmd.Flags().GetString("patient")
		if patientID == "" {
			fmt.Println("Error: --patient is required")
			os.Exit(1)
		}

		svc, led, _, err := newService(cmd)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		defer led.Close()

		views, err := svc.ListConsultations(context.Background(), patientID)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}

		if output == "json" {
			out, _ := json.MarshalIndent(views, "", "  ")
			fmt.Println(string(out))
			return
		}
		if len(views) == 0 {
			fmt.Printf("No records for patient %s\n", patientID)
			return
		}
		for _, v := range views {
			when := time.Unix(v.Timestamp, 0).UTC().Format(time.RFC3339)
			fmt.Printf("%s  key=%s  writer=%s\n", when, v.ContentKey, v.Writer)
			if v.Payload == nil {
				fmt.Println("    payload unavailable")
				continue
			}
			p := v.Payload
			fmt.Printf("    bp=%s hr=%.0f weight=%.1f temp=%.1f allergies=%v\n",
				p.BloodPressure, p.HeartRate, p.BodyWeight, p.Temperature, p.Allergies)
			if p.HasDiagnosis() {
				fmt.Printf("    diagnosis=%q prescription=%q by=%s\n", p.Diagnosis, p.Prescription, p.DiagnosisBy)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().String("patient", "", "Patient identifier")
}
