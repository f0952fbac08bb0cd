package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/earshot/internal/journal"
	"github.com/roach88/earshot/internal/trace"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Session  string
	Op       string // optional - filter to one op
}

// TraceResult holds the calls of one journaled session.
type TraceResult struct {
	Session journal.Session `json:"session"`
	Calls   []trace.Call    `json:"calls"`
	Counts  map[string]int  `json:"counts"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Inspect journaled engine calls",
		Long: `Inspect the engine calls recorded in a session journal.

Without --session, lists every journaled session. With --session, shows
that session's calls in sequence order and a count per op.

Examples:
  earshot trace --journal ./earshot.db
  earshot trace --journal ./earshot.db --session 0192f0c4-...
  earshot trace --journal ./earshot.db --session 0192f0c4-... --op system.load_bank_file
  earshot trace --journal ./earshot.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "journal", "", "path to the SQLite journal (required)")
	_ = cmd.MarkFlagRequired("journal")
	cmd.Flags().StringVar(&opts.Session, "session", "", "session token to show")
	cmd.Flags().StringVar(&opts.Op, "op", "", "filter calls to one op")

	return cmd
}

func runTrace(ctx context.Context, opts *TraceOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	st, err := journal.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer st.Close()

	if opts.Session == "" {
		sessions, err := st.ReadSessions(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read sessions", err)
		}
		if opts.Format == "json" {
			return formatter.Success(sessions)
		}
		return formatter.Success(sessionTable(sessions))
	}

	sess, err := st.ReadSession(ctx, opts.Session)
	if errors.Is(err, sql.ErrNoRows) {
		_ = formatter.Error(ErrCodeJournal, fmt.Sprintf("session not found: %s", opts.Session), nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("session not found: %s", opts.Session))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read session", err)
	}

	calls, err := st.ReadCalls(ctx, opts.Session)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read calls", err)
	}
	counts, err := st.CountOps(ctx, opts.Session)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to count calls", err)
	}

	result := TraceResult{
		Session: sess,
		Calls:   filterCalls(calls, opts.Op),
		Counts:  counts,
	}
	formatter.VerboseLog("Read %d call(s) for session %s", len(calls), sess.Token)

	if opts.Format == "json" {
		return formatter.SessionSuccess(sess.Token, result, "")
	}
	return formatter.Success(traceText(result, opts.Verbose))
}

// filterCalls keeps calls whose op equals op. An empty op keeps all.
func filterCalls(calls []trace.Call, op string) []trace.Call {
	if op == "" {
		return calls
	}
	kept := []trace.Call{}
	for _, c := range calls {
		if c.Op == op {
			kept = append(kept, c)
		}
	}
	return kept
}

func sessionTable(sessions []journal.Session) string {
	if len(sessions) == 0 {
		return "No sessions found."
	}
	rows := make([][]string, 0, len(sessions))
	for _, s := range sessions {
		rows = append(rows, []string{
			s.Token,
			s.Name,
			s.Phase,
			strings.Join(s.Banks, ", "),
			strconv.Itoa(s.Calls),
		})
	}
	return renderTable(
		[]string{"Session", "Name", "Phase", "Banks", "Calls"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
	)
}

func traceText(result TraceResult, verbose bool) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Session: %s\n", result.Session.Token)
	fmt.Fprintf(&b, "Phase:   %s\n\n", result.Session.Phase)

	if len(result.Calls) == 0 {
		b.WriteString("(no calls)\n")
	} else {
		headers := []string{"Seq", "Op", "Target", "Result"}
		aligns := []columnAlignment{alignRight, alignLeft, alignLeft, alignLeft}
		if verbose {
			headers = append(headers, "Args")
			aligns = append(aligns, alignLeft)
		}
		rows := make([][]string, 0, len(result.Calls))
		for _, c := range result.Calls {
			row := []string{strconv.FormatInt(c.Seq, 10), c.Op, c.Target, c.Result}
			if verbose {
				row = append(row, formatArgs(c.Args))
			}
			rows = append(rows, row)
		}
		b.WriteString(renderTable(headers, rows, aligns))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	ops := make([]string, 0, len(result.Counts))
	for op := range result.Counts {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	rows := make([][]string, 0, len(ops))
	for _, op := range ops {
		rows = append(rows, []string{op, strconv.Itoa(result.Counts[op])})
	}
	b.WriteString(renderTable([]string{"Op", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
	return b.String()
}

// formatArgs formats a map of args for display.
// Uses sorted keys to ensure deterministic output.
func formatArgs(args map[string]any) string {
	if len(args) == 0 {
		return "{}"
	}

	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, formatValue(args[k])))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// formatValue formats a single value for display, handling nested structures deterministically.
func formatValue(v any) string {
	switch val := v.(type) {
	case map[string]any:
		return formatArgs(val)
	case []any:
		parts := make([]string, len(val))
		for i, elem := range val {
			parts[i] = formatValue(elem)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case string:
		return val
	default:
		return fmt.Sprintf("%v", v)
	}
}
