package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/earshot/internal/audio"
	"github.com/roach88/earshot/internal/journal"
	"github.com/roach88/earshot/internal/manifest"
	"github.com/roach88/earshot/internal/simstudio"
	"github.com/roach88/earshot/internal/trace"
)

// sessionFlags are shared by commands that bring up a session.
type sessionFlags struct {
	Journal string        // optional journal path
	Timeout time.Duration // bring-up deadline (async only)
}

// liveSession is a session brought up from a manifest against the
// simulated engine.
type liveSession struct {
	Manifest *manifest.Manifest
	Engine   *simstudio.Engine
	Loader   *audio.Loader
	Session  *audio.Session
	Calls    *trace.Buffer

	store   *journal.Store
	pending bool // bring-up callbacks may still be in flight
}

// bringUpDrain bounds how long Close waits for in-flight bring-up callbacks
// after an interrupted wait.
var bringUpDrain = 2 * time.Second

// openSession loads the manifest at path, brings a session up, and waits
// for it to become ready. The returned liveSession must be closed even when
// err is non-nil.
func openSession(ctx context.Context, path string, flags sessionFlags, mode simstudio.Mode, logger *slog.Logger) (*liveSession, error) {
	m, err := manifest.LoadWithEnv(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load manifest", err)
	}
	cfg, err := m.Config()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid manifest", err)
	}

	ls := &liveSession{
		Manifest: m,
		Engine:   simstudio.New(simstudio.WithMode(mode), simstudio.WithCatalog(m.EngineCatalog())),
		Calls:    trace.NewBuffer(),
	}

	recorder := trace.Tee{ls.Calls}
	clock := trace.NewClock()
	if flags.Journal != "" {
		st, err := journal.Open(flags.Journal)
		if err != nil {
			return ls, WrapExitError(ExitCommandError, "failed to open journal", err)
		}
		ls.store = st
		last, err := st.MaxSeq(ctx)
		if err != nil {
			return ls, WrapExitError(ExitCommandError, "failed to read journal", err)
		}
		clock = trace.NewClockAt(last)
		recorder = append(recorder, st)
	}

	ls.Loader, err = audio.NewLoader(cfg, ls.Engine,
		audio.WithLogger(logger),
		audio.WithRecorder(recorder),
		audio.WithClock(clock),
		audio.WithDebugFunc(audio.DebugLogger(logger)),
	)
	if err != nil {
		return ls, WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	if ls.store != nil {
		err := ls.store.BeginSession(ctx, journal.Session{
			Token: ls.Loader.Token(),
			Name:  m.Name,
			Banks: cfg.Banks,
		})
		if err != nil {
			return ls, WrapExitError(ExitCommandError, "failed to journal session", err)
		}
	}

	ls.Loader.Start()
	if mode == simstudio.ModeStepped {
		ls.Engine.Run()
	} else if err := waitBringUp(ctx, ls.Engine, flags.Timeout); err != nil {
		ls.pending = true
		return ls, err
	}

	ls.Session, err = ls.Loader.Session()
	if err != nil {
		return ls, WrapExitError(ExitFailure, fmt.Sprintf("bring-up failed [%s]", audio.CodeOf(err)), err)
	}
	return ls, nil
}

func waitBringUp(ctx context.Context, eng *simstudio.Engine, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	select {
	case <-eng.Done():
		return nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return NewExitError(ExitFailure, fmt.Sprintf("bring-up did not finish within %s", timeout))
		}
		return WrapExitError(ExitFailure, "bring-up interrupted", ctx.Err())
	}
}

// Token is the session token, or "" when no loader was created.
func (ls *liveSession) Token() string {
	if ls == nil || ls.Loader == nil {
		return ""
	}
	return ls.Loader.Token()
}

// Close shuts down a session still in Ready, records the final phase in
// the journal if one is open, and reports any failure. After an interrupted
// bring-up it first waits, up to bringUpDrain, for the engine to deliver its
// remaining callbacks so their calls reach the journal.
func (ls *liveSession) Close(ctx context.Context) error {
	if ls == nil {
		return nil
	}
	if ls.pending {
		select {
		case <-ls.Engine.Done():
		case <-time.After(bringUpDrain):
		}
		if ls.Session == nil && ls.Loader != nil && ls.Loader.Phase() == audio.PhaseReady {
			ls.Session, _ = ls.Loader.Session()
		}
	}

	var errs error
	if ls.Session != nil && ls.Session.Phase() == audio.PhaseReady {
		if err := ls.Session.Shutdown(); err != nil {
			errs = WrapExitError(ExitFailure, "failed to shut down session", err)
		}
	}
	if ls.store == nil {
		return errs
	}
	defer ls.store.Close()

	if ls.Loader != nil {
		if err := ls.store.SetPhase(ctx, ls.Loader.Token(), ls.Loader.Phase().String()); err != nil {
			return errors.Join(errs, WrapExitError(ExitCommandError, "failed to journal phase", err))
		}
	}
	if err := ls.store.Err(); err != nil {
		return errors.Join(errs, WrapExitError(ExitCommandError, "failed to journal calls", err))
	}
	return errs
}
