package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"medledger/core/consult"
)

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose",
	Short: "Append a diagnosis revision to a patient's newest record",
	Long: `Reads the patient's newest record back, merges the diagnosis fields onto
it, and appends the merged payload as a brand-new entry. The prior entry is
never modified.`,
	Example: `  medledger diagnose --patient PAT-001 --diagnosis "Hypertension stage 1" --prescription "Lisinopril 10mg"`,
	Run: func(cmd *cobra.Command, args []string) {
		patientID, _ := cmd.Flags().GetString("patient")
		diagnosis, _ := cmd.Flags().GetString("diagnosis")
		if patientID == "" || diagnosis == "" {
			fmt.Println("Error: --patient and --diagnosis are required")
			os.Exit(1)
		}

		svc, led, cfg, err := newService(cmd)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		defer led.Close()

		ctx := context.Background()
		prior, ok, err := svc.LatestPayload(ctx, patientID)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		if !ok {
			fmt.Printf("Error: no readable records for patient %s; record vitals first\n", patientID)
			os.Exit(1)
		}

		sess, err := svc.ResumeDiagnosis(patientID, cfg.WriterAddress)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}

		prescription, _ := cmd.Flags().GetString("prescription")
		if err := sess.StageDiagnosis(prior, consult.DiagnosisInput{
			Diagnosis:    diagnosis,
			Prescription: prescription,
		}); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}

		key, err := sess.CommitDiagnosis(ctx)
		if err != nil {
			reportCommitError(err)
			os.Exit(1)
		}
		fmt.Printf("Diagnosis stored for %s (key %s)\n", patientID, key)
	},
}

func init() {
	rootCmd.AddCommand(diagnoseCmd)
	diagnoseCmd.Flags().String("patient", "", "Patient identifier")
	diagnoseCmd.Flags().String("diagnosis", "", "Diagnosis text")
	diagnoseCmd.Flags().String("prescription", "", "Prescription text")
}
