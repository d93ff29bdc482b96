package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vaibhaw-/QueryGate/internal/querygate/inspect"
	"github.com/vaibhaw-/QueryGate/internal/querygate/validate"
)

var validateFlagIdentifier bool

var validateCmd = &cobra.Command{
	Use:   "validate <text>",
	Short: "Check query text (or an identifier) against admission rules",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.Join(args, " ")
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		if validateFlagIdentifier {
			err := validate.Identifier(text)
			out := map[string]any{"identifier": text, "valid": err == nil}
			var verr *validate.Error
			if errors.As(err, &verr) {
				out["reason"] = verr.Reason
			}
			if encErr := enc.Encode(out); encErr != nil {
				return encErr
			}
			return err
		}

		v := validate.ValidateQuery(text)
		if err := enc.Encode(struct {
			validate.Verdict
			inspect.Refs
		}{v, inspect.Inspect(text)}); err != nil {
			return err
		}
		if !v.Accepted {
			return fmt.Errorf("rejected: %s", v.Reason)
		}
		return nil
	},
}

func init() {
	validateCmd.Flags().BoolVar(&validateFlagIdentifier, "identifier", false, "validate the argument as an identifier")
}
