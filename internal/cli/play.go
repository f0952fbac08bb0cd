package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/earshot/internal/audio"
	"github.com/roach88/earshot/internal/simstudio"
)

// PlayOptions holds flags for the play command.
type PlayOptions struct {
	*RootOptions
	sessionFlags
	Event    string
	Frames   int
	Every    int
	Interval time.Duration
}

// PlayResult summarizes a play run.
type PlayResult struct {
	Session   string   `json:"session"`
	Event     string   `json:"event"`
	Banks     []string `json:"banks"`
	Events    int      `json:"events"`
	Frames    int      `json:"frames"`
	OneShots  int      `json:"one_shots"`
	Live      int      `json:"live_instances"`
	Collected int      `json:"collected"`
	Calls     int      `json:"calls"`
	Phase     string   `json:"phase"`
}

// NewPlayCommand creates the play command.
func NewPlayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "play <manifest>",
		Short: "Bring up a session and drive a frame loop",
		Long: `Bring up a session from a manifest on the simulated engine, then
run a frame loop: one update per frame and a fire-and-forget one-shot
of --event every --every frames. The session is shut down at the end.

Interrupting the command ends the loop early; the session is still shut
down and, with --journal, its final phase recorded.

Examples:
  earshot play session.yaml
  earshot play session.cue --frames 600 --every 30 --event event:/Weapons/Pistol
  earshot play session.toml --journal ./earshot.db --interval 0`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runPlay(ctx, opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Event, "event", "event:/Weapons/Explosion", "event to fire")
	cmd.Flags().IntVar(&opts.Frames, "frames", 300, "number of frames to run")
	cmd.Flags().IntVar(&opts.Every, "every", 100, "fire the event every N frames (0 disables)")
	cmd.Flags().DurationVar(&opts.Interval, "interval", 16*time.Millisecond, "wall time per frame")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 10*time.Second, "bring-up deadline")
	cmd.Flags().StringVar(&opts.Journal, "journal", "", "record engine calls to this SQLite journal")

	return cmd
}

func runPlay(ctx context.Context, opts *PlayOptions, path string, cmd *cobra.Command) (err error) {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	if opts.Frames < 0 || opts.Every < 0 || opts.Interval < 0 {
		return NewExitError(ExitCommandError, "--frames, --every, and --interval must not be negative")
	}
	if !strings.HasPrefix(opts.Event, "event:/") {
		return NewExitError(ExitCommandError, fmt.Sprintf("event path %q must start with event:/", opts.Event))
	}

	ls, err := openSession(ctx, path, opts.sessionFlags, simstudio.ModeAsync, logger)
	defer func() {
		err = errors.Join(err, ls.Close(context.WithoutCancel(ctx)))
	}()
	if err != nil {
		return reportSessionError(formatter, ls, err)
	}
	s := ls.Session

	descs, err := s.EventList()
	if err != nil {
		return reportSessionError(formatter, ls, err)
	}
	desc, err := s.Event(opts.Event)
	if err != nil {
		return reportSessionError(formatter, ls, err)
	}
	if err := s.SetListeners([]audio.Listener{{Weight: 1}}); err != nil {
		return reportSessionError(formatter, ls, err)
	}

	result := PlayResult{
		Session: ls.Token(),
		Event:   opts.Event,
		Banks:   s.Banks(),
		Events:  len(descs),
	}

	loopErr := playFrames(ctx, s, desc, opts, &result)
	if loopErr != nil && !errors.Is(loopErr, context.Canceled) {
		return reportSessionError(formatter, ls, loopErr)
	}
	if loopErr != nil {
		logger.Info("frame loop interrupted", "session", result.Session, "frames", result.Frames)
	}

	snap := ls.Engine.Snapshot()
	result.Live = snap.LiveInstances
	result.Collected = snap.Collected

	if err := s.Shutdown(); err != nil {
		return reportSessionError(formatter, ls, err)
	}
	result.Phase = s.Phase().String()
	result.Calls = len(ls.Calls.Calls())

	return formatter.SessionSuccess(result.Session, result, playText(result))
}

// playFrames runs the frame loop. It stops early with ctx's error when ctx
// is done.
func playFrames(ctx context.Context, s *audio.Session, desc *audio.EventDescription, opts *PlayOptions, result *PlayResult) error {
	var tick <-chan time.Time
	if opts.Interval > 0 {
		ticker := time.NewTicker(opts.Interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for frame := 0; frame < opts.Frames; frame++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if opts.Every > 0 && frame%opts.Every == 0 {
			if err := audio.PlayOneShot(desc); err != nil {
				return err
			}
			result.OneShots++
		}
		if err := s.Update(); err != nil {
			return err
		}
		result.Frames++

		if tick != nil {
			select {
			case <-tick:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return nil
}

func playText(r PlayResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Session:   %s\n", r.Session)
	fmt.Fprintf(&b, "Banks:     %s\n", strings.Join(r.Banks, ", "))
	fmt.Fprintf(&b, "Events:    %d\n", r.Events)
	fmt.Fprintf(&b, "Event:     %s\n", r.Event)
	fmt.Fprintf(&b, "Frames:    %d\n", r.Frames)
	fmt.Fprintf(&b, "One-shots: %d (%d collected, %d live)\n", r.OneShots, r.Collected, r.Live)
	fmt.Fprintf(&b, "Calls:     %d\n", r.Calls)
	fmt.Fprintf(&b, "Phase:     %s", r.Phase)
	return b.String()
}
