package journal

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/earshot/internal/trace"
)

// Session is one journaled session.
type Session struct {
	Token string   `json:"token"`
	Name  string   `json:"name,omitempty"`
	Banks []string `json:"banks"`
	Phase string   `json:"phase"`

	// Calls and FirstSeq are derived on read.
	Calls    int   `json:"calls"`
	FirstSeq int64 `json:"first_seq"`
}

const sessionSelect = `
	SELECT s.token, s.name, s.banks, s.phase, COUNT(c.seq), COALESCE(MIN(c.seq), 0)
	FROM sessions s
	LEFT JOIN calls c ON c.session = s.token
`

// ReadSessions returns every session, oldest first.
func (s *Store) ReadSessions(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, sessionSelect+`
		GROUP BY s.token
		ORDER BY COALESCE(MIN(c.seq), 0) ASC, s.token COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []Session{}
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// ReadSession returns one session. Returns sql.ErrNoRows if not found.
func (s *Store) ReadSession(ctx context.Context, token string) (Session, error) {
	row := s.db.QueryRowContext(ctx, sessionSelect+`
		WHERE s.token = ?
		GROUP BY s.token
	`, token)
	return scanSession(row)
}

// ReadCalls returns a session's calls in seq order. Empty, not nil, when
// there are none.
func (s *Store) ReadCalls(ctx context.Context, token string) ([]trace.Call, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session, seq, op, target, args, result
		FROM calls
		WHERE session = ?
		ORDER BY seq ASC
	`, token)
	if err != nil {
		return nil, fmt.Errorf("query calls: %w", err)
	}
	defer rows.Close()

	calls := []trace.Call{}
	for rows.Next() {
		var (
			c    trace.Call
			args string
		)
		if err := rows.Scan(&c.Session, &c.Seq, &c.Op, &c.Target, &args, &c.Result); err != nil {
			return nil, fmt.Errorf("scan call: %w", err)
		}
		if c.Args, err = unmarshalArgs(args); err != nil {
			return nil, err
		}
		calls = append(calls, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate calls: %w", err)
	}
	return calls, nil
}

// CountOps returns how many times each op was called in a session.
func (s *Store) CountOps(ctx context.Context, token string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT op, n FROM op_counts WHERE session = ?`, token)
	if err != nil {
		return nil, fmt.Errorf("query op counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			op string
			n  int
		)
		if err := rows.Scan(&op, &n); err != nil {
			return nil, fmt.Errorf("scan op count: %w", err)
		}
		counts[op] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate op counts: %w", err)
	}
	return counts, nil
}

// MaxSeq returns the highest seq across all sessions, or 0 for an empty
// journal. A new session's clock starts here so seqs never collide.
func (s *Store) MaxSeq(ctx context.Context) (int64, error) {
	var seq int64
	if err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM calls`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("query max seq: %w", err)
	}
	return seq, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (Session, error) {
	var (
		sess  Session
		banks string
	)
	if err := row.Scan(&sess.Token, &sess.Name, &banks, &sess.Phase, &sess.Calls, &sess.FirstSeq); err != nil {
		if err == sql.ErrNoRows {
			return Session{}, err
		}
		return Session{}, fmt.Errorf("scan session: %w", err)
	}
	var err error
	if sess.Banks, err = unmarshalBanks(banks); err != nil {
		return Session{}, err
	}
	return sess, nil
}
