package journal

import (
	"context"
	"fmt"

	"github.com/roach88/earshot/internal/trace"
)

// BeginSession registers a session or updates its name and banks.
func (s *Store) BeginSession(ctx context.Context, sess Session) error {
	banksJSON, err := marshalBanks(sess.Banks)
	if err != nil {
		return fmt.Errorf("begin session: %w", err)
	}
	phase := sess.Phase
	if phase == "" {
		phase = "uninitialized"
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (token, name, banks, phase)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(token) DO UPDATE SET name = excluded.name, banks = excluded.banks
	`, sess.Token, sess.Name, banksJSON, phase)
	if err != nil {
		return fmt.Errorf("begin session: %w", err)
	}
	return nil
}

// SetPhase records the session's latest phase.
func (s *Store) SetPhase(ctx context.Context, token, phase string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE sessions SET phase = ? WHERE token = ?`, phase, token)
	if err != nil {
		return fmt.Errorf("set phase: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("set phase: unknown session %q", token)
	}
	return nil
}

// WriteCall appends one engine call. A call whose session has not been
// registered creates a bare session row. Rewriting the same (session, seq)
// is a no-op.
func (s *Store) WriteCall(ctx context.Context, c trace.Call) error {
	argsJSON, err := marshalArgs(c.Args)
	if err != nil {
		return fmt.Errorf("write call: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write call: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO sessions (token) VALUES (?)
		ON CONFLICT(token) DO NOTHING
	`, c.Session); err != nil {
		return fmt.Errorf("write call: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO calls (session, seq, op, target, args, result)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(session, seq) DO NOTHING
	`, c.Session, c.Seq, c.Op, c.Target, argsJSON, c.Result); err != nil {
		return fmt.Errorf("write call: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write call: %w", err)
	}
	return nil
}

// Record implements trace.Recorder. The first write failure is kept and
// reported by Err; later calls are still attempted.
func (s *Store) Record(c trace.Call) {
	if err := s.WriteCall(context.Background(), c); err != nil {
		s.mu.Lock()
		if s.recordErr == nil {
			s.recordErr = err
		}
		s.mu.Unlock()
	}
}

// Err returns the first error Record hit, if any.
func (s *Store) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recordErr
}
