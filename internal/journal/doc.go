// Package journal is a SQLite-backed record of audio sessions and every
// engine call they made.
//
// A Store implements trace.Recorder, so it can be handed straight to
// audio.WithRecorder. Two tables:
//   - sessions: one row per session token, with its bank list and last
//     known phase
//   - calls: one row per engine call, keyed by (session, seq)
//
// All ordering uses seq from the session's logical clock, never
// timestamps, so a journal replays identically. Args are stored as
// canonical JSON.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000
//   - foreign_keys=ON
package journal
