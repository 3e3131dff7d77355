package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"medledger/core/consult"
)

var vitalsCmd = &cobra.Command{
	Use:   "vitals",
	Short: "Record a patient's vitals as a new consultation entry",
	Example: `  medledger vitals --patient PAT-001 --bp 120/80 --hr 72 --weight 81.5 --temp 36.6 --allergies "penicillin, latex"`,
	Run: func(cmd *cobra.Command, args []string) {
		patientID, _ := cmd.Flags().GetString("patient")
		if patientID == "" {
			fmt.Println("Error: --patient is required")
			os.Exit(1)
		}

		svc, led, cfg, err := newService(cmd)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		defer led.Close()

		sess, err := svc.BeginConsultation(patientID, cfg.WriterAddress)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}

		bp, _ := cmd.Flags().GetString("bp")
		hr, _ := cmd.Flags().GetString("hr")
		weight, _ := cmd.Flags().GetString("weight")
		temp, _ := cmd.Flags().GetString("temp")
		allergies, _ := cmd.Flags().GetString("allergies")

		if err := sess.StageVitals(consult.VitalsInput{
			BloodPressure: bp,
			HeartRate:     hr,
			BodyWeight:    weight,
			Temperature:   temp,
			Allergies:     allergies,
		}); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}

		key, err := sess.CommitVitals(context.Background())
		if err != nil {
			reportCommitError(err)
			os.Exit(1)
		}
		fmt.Printf("Vitals stored for %s (key %s)\n", patientID, key)
	},
}

// reportCommitError tells the operator which half of the commit failed and
// whether the payload already landed.
func reportCommitError(err error) {
	var partial *consult.PartialCommitError
	if errors.As(err, &partial) && partial.Step == consult.StepLedgerAppend {
		fmt.Printf("Error: payload stored (key %s) but the ledger append failed: %v\n", partial.ContentKey, partial.Err)
		fmt.Println("Re-run the command to retry; the unreferenced payload is harmless.")
		return
	}
	fmt.Printf("Error: %v\n", err)
}

func init() {
	rootCmd.AddCommand(vitalsCmd)
	vitalsCmd.Flags().String("patient", "", "Patient identifier")
	vitalsCmd.Flags().String("bp", "", "Blood pressure, e.g. 120/80")
	vitalsCmd.Flags().String("hr", "", "Heart rate in bpm")
	vitalsCmd.Flags().String("weight", "", "Body weight in kg")
	vitalsCmd.Flags().String("temp", "", "Body temperature in celsius")
	vitalsCmd.Flags().String("allergies", "", "Comma separated allergy list")
}
