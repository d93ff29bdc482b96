package main

import (
	"fmt"
	"os"
	"time"

	"github.com/araddon/dateparse"
	"github.com/spf13/cobra"

	"github.com/vaibhaw-/QueryGate/internal/querygate/audit"
	"github.com/vaibhaw-/QueryGate/internal/querygate/auditquery"
)

var (
	auditFlagInputs   []string
	auditFlagTypes    []string
	auditFlagSource   string
	auditFlagSubject  string
	auditFlagResource string
	auditFlagOutcome  string
	auditFlagSince    string
	auditFlagLast     time.Duration
	auditFlagSummary  bool
	auditFlagLimit    int
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Filter and summarize exported audit trails (NDJSON)",
	Example: `  querygate audit --input trail.ndjson --type sql_error,dangerous_query_detected
  querygate audit --input trail.ndjson --outcome failure --last 24h --summary`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := auditquery.Options{
			InputFiles: auditFlagInputs,
			Source:     auditFlagSource,
			Subject:    auditFlagSubject,
			Resource:   auditFlagResource,
			Outcome:    auditFlagOutcome,
			Last:       auditFlagLast,
			Summary:    auditFlagSummary,
			Limit:      auditFlagLimit,
		}
		for _, raw := range auditFlagTypes {
			t, err := audit.ParseEventType(raw)
			if err != nil {
				return err
			}
			opts.Types = append(opts.Types, t)
		}
		if auditFlagSince != "" {
			since, err := dateparse.ParseAny(auditFlagSince)
			if err != nil {
				return fmt.Errorf("invalid --since %q: %w", auditFlagSince, err)
			}
			opts.Since = since
		}

		_, err := auditquery.Run(cmd.Context(), opts, os.Stdin, cmd.OutOrStdout(), cmd.ErrOrStderr())
		return err
	},
}

func init() {
	f := auditCmd.Flags()
	f.StringSliceVar(&auditFlagInputs, "input", nil, "input NDJSON file(s) (default stdin)")
	f.StringSliceVar(&auditFlagTypes, "type", nil, "event types to keep, e.g. query_execution,sql_error")
	f.StringVar(&auditFlagSource, "source", "", "source key (client address)")
	f.StringVar(&auditFlagSubject, "subject", "", "acting identity")
	f.StringVar(&auditFlagResource, "resource", "", "substring of the resource")
	f.StringVar(&auditFlagOutcome, "outcome", "", "success or failure")
	f.StringVar(&auditFlagSince, "since", "", "keep events at or after this time")
	f.DurationVar(&auditFlagLast, "last", 0, "keep events from the last duration, e.g. 24h")
	f.BoolVar(&auditFlagSummary, "summary", false, "print a summary instead of events")
	f.IntVar(&auditFlagLimit, "limit", 0, "stop after this many matches (0 = no limit)")
}
