package cli

import (
	"context"
	"errors"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/earshot/internal/audio"
	"github.com/roach88/earshot/internal/simstudio"
)

// EventsOptions holds flags for the events command.
type EventsOptions struct {
	*RootOptions
	sessionFlags
}

// EventEntry is one event exposed by the master bank.
type EventEntry struct {
	Index int    `json:"index"`
	Path  string `json:"path"`
}

// EventsResult lists a session's events.
type EventsResult struct {
	Banks  []string     `json:"banks"`
	Events []EventEntry `json:"events"`
}

// NewEventsCommand creates the events command.
func NewEventsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EventsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "events <manifest>",
		Short: "List the events the master bank exposes",
		Long: `Bring up a session from a manifest and list every event in the
master bank, resolved to its path.

Examples:
  earshot events session.yaml
  earshot events session.cue --journal ./earshot.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvents(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Journal, "journal", "", "record engine calls to this SQLite journal")

	return cmd
}

func runEvents(ctx context.Context, opts *EventsOptions, path string, cmd *cobra.Command) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	ls, err := openSession(ctx, path, opts.sessionFlags, simstudio.ModeStepped, logger)
	defer func() {
		err = errors.Join(err, ls.Close(ctx))
	}()
	if err != nil {
		return reportSessionError(formatter, ls, err)
	}

	result, err := listEvents(ls.Session)
	if err != nil {
		return reportSessionError(formatter, ls, err)
	}
	if err := ls.Session.Shutdown(); err != nil {
		return reportSessionError(formatter, ls, err)
	}

	if opts.Format == "json" {
		return formatter.SessionSuccess(ls.Token(), result, "")
	}
	return formatter.Success(eventsTable(result))
}

func listEvents(s *audio.Session) (EventsResult, error) {
	descs, err := s.EventList()
	if err != nil {
		return EventsResult{}, err
	}

	result := EventsResult{Banks: s.Banks(), Events: make([]EventEntry, 0, len(descs))}
	for i, d := range descs {
		p, err := d.Path()
		if err != nil {
			return EventsResult{}, err
		}
		result.Events = append(result.Events, EventEntry{Index: i, Path: p})
	}
	return result, nil
}

func eventsTable(result EventsResult) string {
	if len(result.Events) == 0 {
		return "No events found."
	}
	rows := make([][]string, 0, len(result.Events))
	for _, e := range result.Events {
		rows = append(rows, []string{strconv.Itoa(e.Index), e.Path})
	}
	return renderTable([]string{"#", "Path"}, rows, []columnAlignment{alignRight, alignLeft})
}

// reportSessionError prints err through the formatter and returns an
// ExitError. Errors from the audio layer keep their code in the details.
func reportSessionError(f *OutputFormatter, ls *liveSession, err error) error {
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		exitErr = WrapExitError(ExitFailure, "session operation failed", err)
	}

	code := ErrCodeSession
	switch {
	case ls == nil:
		code = ErrCodeManifest
	case ls.Session == nil && exitErr.Code == ExitCommandError:
		code = ErrCodeGeneric
	case ls.Session == nil:
		code = ErrCodeBringUp
	}

	fields := map[string]any{}
	if ac := audio.CodeOf(err); ac != "" {
		fields["audio_code"] = string(ac)
	}
	if token := ls.Token(); token != "" {
		fields["session"] = token
	}
	var details any
	if len(fields) > 0 {
		details = fields
	}

	_ = f.Error(code, err.Error(), details)
	return exitErr
}
