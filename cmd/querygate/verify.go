package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/vaibhaw-/QueryGate/internal/querygate/audit"
)

var (
	verifyFlagInput      string
	verifyFlagCheckpoint string
	verifyFlagPubKey     string
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Validate the hash chain of an exported audit trail (NDJSON)",
	RunE: func(cmd *cobra.Command, args []string) error {
		var in io.Reader = os.Stdin
		if verifyFlagInput != "" {
			f, err := os.Open(verifyFlagInput)
			if err != nil {
				return fmt.Errorf("open input: %w", err)
			}
			defer f.Close()
			in = f
		}

		res, err := audit.VerifyChain(in)
		if err != nil {
			return err
		}
		fmt.Printf("events=%d first_index=%d tampered=%d head=%s\n", res.Events, res.First, len(res.Tampered), res.Head)
		if !res.OK() {
			return fmt.Errorf("chain broken at indices %v", res.Tampered)
		}
		fmt.Println("✅ audit chain intact")

		if verifyFlagCheckpoint == "" {
			return nil
		}
		if verifyFlagPubKey == "" {
			return fmt.Errorf("--pubkey is required with --checkpoint")
		}
		ok, err := audit.VerifyCheckpoint(verifyFlagCheckpoint, verifyFlagPubKey, res.Head)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("checkpoint %s does not match head %s", verifyFlagCheckpoint, res.Head)
		}
		fmt.Println("✅ checkpoint signature valid")
		return nil
	},
}

func init() {
	verifyCmd.Flags().StringVar(&verifyFlagInput, "input", "", "input NDJSON file (default stdin)")
	verifyCmd.Flags().StringVar(&verifyFlagCheckpoint, "checkpoint", "", "signed checkpoint to check against the verified head")
	verifyCmd.Flags().StringVar(&verifyFlagPubKey, "pubkey", "", "PEM public key for --checkpoint")
}
