package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/akshatvasisht/oversite/internal/model"
)

// SQLite is the durable Store. Timestamps are stored as RFC 3339 text so
// rows stay readable with the sqlite3 shell.
type SQLite struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	username TEXT NOT NULL,
	project_name TEXT NOT NULL,
	started_at TEXT NOT NULL,
	ended_at TEXT
);
CREATE TABLE IF NOT EXISTS files (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL REFERENCES sessions(id),
	filename TEXT NOT NULL,
	language TEXT NOT NULL,
	created_at TEXT NOT NULL,
	initial_content TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS events (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL REFERENCES sessions(id),
	timestamp TEXT NOT NULL,
	actor TEXT NOT NULL,
	event_type TEXT NOT NULL,
	content TEXT NOT NULL,
	metadata TEXT
);
CREATE INDEX IF NOT EXISTS idx_events_session ON events(session_id, timestamp);
CREATE TABLE IF NOT EXISTS interactions (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL REFERENCES sessions(id),
	file_id TEXT NOT NULL,
	prompt TEXT NOT NULL,
	response TEXT NOT NULL,
	model TEXT NOT NULL,
	prompt_tokens INTEGER NOT NULL,
	shown_at TEXT NOT NULL,
	phase TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS suggestions (
	id TEXT PRIMARY KEY,
	interaction_id TEXT NOT NULL,
	session_id TEXT NOT NULL REFERENCES sessions(id),
	file_id TEXT NOT NULL,
	original_content TEXT NOT NULL,
	proposed_content TEXT NOT NULL,
	hunks_count INTEGER,
	shown_at TEXT NOT NULL,
	resolved_at TEXT,
	all_accepted INTEGER,
	any_modified INTEGER
);
CREATE TABLE IF NOT EXISTS chunk_decisions (
	id TEXT PRIMARY KEY,
	suggestion_id TEXT NOT NULL REFERENCES suggestions(id),
	session_id TEXT NOT NULL,
	file_id TEXT NOT NULL,
	chunk_index INTEGER NOT NULL,
	original_code TEXT NOT NULL,
	proposed_code TEXT NOT NULL,
	final_code TEXT NOT NULL,
	decision TEXT NOT NULL,
	chunk_start_line INTEGER NOT NULL,
	proposed_char_count INTEGER NOT NULL,
	time_on_chunk_ms INTEGER NOT NULL,
	decided_at TEXT NOT NULL,
	UNIQUE(suggestion_id, chunk_index)
);
CREATE TABLE IF NOT EXISTS editor_snapshots (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL REFERENCES sessions(id),
	file_id TEXT NOT NULL,
	"trigger" TEXT NOT NULL,
	content TEXT NOT NULL,
	edit_delta TEXT NOT NULL,
	suggestion_id TEXT,
	timestamp TEXT NOT NULL,
	char_count INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS session_scores (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL UNIQUE REFERENCES sessions(id),
	computed_at TEXT NOT NULL,
	behavioral_score REAL NOT NULL,
	behavioral_label TEXT NOT NULL,
	prompt_score REAL NOT NULL,
	review_score REAL NOT NULL,
	weighted_score REAL NOT NULL,
	overall_label TEXT NOT NULL,
	fallback_components TEXT NOT NULL,
	narrative TEXT NOT NULL
);
`

// OpenSQLite opens (creating if needed) the database at path and applies
// the schema. Use ":memory:" for an ephemeral database.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	// modernc.org/sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY under concurrent handlers.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

func fmtTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func parseTime(v string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, v)
}

func fmtNullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return fmtTime(*t)
}

func scanNullTime(v sql.NullString) (*time.Time, error) {
	if !v.Valid {
		return nil, nil
	}
	t, err := parseTime(v.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *SQLite) CreateSession(ctx context.Context, sess *model.Session) error {
	sess.ID = ensureID(sess.ID)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, username, project_name, started_at, ended_at) VALUES (?, ?, ?, ?, ?)`,
		sess.ID, sess.Username, sess.ProjectName, fmtTime(sess.StartedAt), fmtNullTime(sess.EndedAt))
	return err
}

func (s *SQLite) GetSession(ctx context.Context, id string) (*model.Session, error) {
	var sess model.Session
	var started string
	var ended sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, username, project_name, started_at, ended_at FROM sessions WHERE id = ?`, id).
		Scan(&sess.ID, &sess.Username, &sess.ProjectName, &started, &ended)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if sess.StartedAt, err = parseTime(started); err != nil {
		return nil, err
	}
	if sess.EndedAt, err = scanNullTime(ended); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *SQLite) ListSessions(ctx context.Context) ([]model.Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, username, project_name, started_at, ended_at FROM sessions ORDER BY started_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Session
	for rows.Next() {
		var sess model.Session
		var started string
		var ended sql.NullString
		if err := rows.Scan(&sess.ID, &sess.Username, &sess.ProjectName, &started, &ended); err != nil {
			return nil, err
		}
		if sess.StartedAt, err = parseTime(started); err != nil {
			return nil, err
		}
		if sess.EndedAt, err = scanNullTime(ended); err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

func (s *SQLite) EndSession(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET ended_at = ? WHERE id = ?`, fmtTime(at), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("session %s: %w", id, model.ErrNotFound)
	}
	return nil
}

func (s *SQLite) CreateFile(ctx context.Context, f *model.File) error {
	f.ID = ensureID(f.ID)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO files (id, session_id, filename, language, created_at, initial_content) VALUES (?, ?, ?, ?, ?, ?)`,
		f.ID, f.SessionID, f.Filename, f.Language, fmtTime(f.CreatedAt), f.InitialContent)
	return err
}

func (s *SQLite) GetFile(ctx context.Context, id string) (*model.File, error) {
	var f model.File
	var created string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, session_id, filename, language, created_at, initial_content FROM files WHERE id = ?`, id).
		Scan(&f.ID, &f.SessionID, &f.Filename, &f.Language, &created, &f.InitialContent)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("file %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if f.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	return &f, nil
}

func (s *SQLite) ListFiles(ctx context.Context, sessionID string) ([]model.File, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, filename, language, created_at, initial_content FROM files WHERE session_id = ? ORDER BY created_at`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.File
	for rows.Next() {
		var f model.File
		var created string
		if err := rows.Scan(&f.ID, &f.SessionID, &f.Filename, &f.Language, &created, &f.InitialContent); err != nil {
			return nil, err
		}
		if f.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *SQLite) AppendEvent(ctx context.Context, e *model.Event) error {
	return s.insertEvent(ctx, s.db, e)
}

// execer covers both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *SQLite) insertEvent(ctx context.Context, ex execer, e *model.Event) error {
	e.ID = ensureID(e.ID)
	var meta any
	if e.Metadata != nil {
		b, err := json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("encoding event metadata: %w", err)
		}
		meta = string(b)
	}
	_, err := ex.ExecContext(ctx,
		`INSERT INTO events (id, session_id, timestamp, actor, event_type, content, metadata) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.SessionID, fmtTime(e.Timestamp), e.Actor, e.EventType, e.Content, meta)
	return err
}

func (s *SQLite) ListEvents(ctx context.Context, sessionID string) ([]model.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, timestamp, actor, event_type, content, metadata FROM events WHERE session_id = ? ORDER BY timestamp`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Event
	for rows.Next() {
		var e model.Event
		var ts string
		var meta sql.NullString
		if err := rows.Scan(&e.ID, &e.SessionID, &ts, &e.Actor, &e.EventType, &e.Content, &meta); err != nil {
			return nil, err
		}
		if e.Timestamp, err = parseTime(ts); err != nil {
			return nil, err
		}
		if meta.Valid && meta.String != "" {
			if err := json.Unmarshal([]byte(meta.String), &e.Metadata); err != nil {
				return nil, fmt.Errorf("decoding event metadata: %w", err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLite) CreateInteraction(ctx context.Context, in *model.Interaction) error {
	in.ID = ensureID(in.ID)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO interactions (id, session_id, file_id, prompt, response, model, prompt_tokens, shown_at, phase)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.ID, in.SessionID, in.FileID, in.Prompt, in.Response, in.Model, in.PromptTokens, fmtTime(in.ShownAt), in.Phase)
	return err
}

func (s *SQLite) ListInteractions(ctx context.Context, sessionID string) ([]model.Interaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, file_id, prompt, response, model, prompt_tokens, shown_at, phase
		 FROM interactions WHERE session_id = ? ORDER BY shown_at`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Interaction
	for rows.Next() {
		var in model.Interaction
		var shown string
		if err := rows.Scan(&in.ID, &in.SessionID, &in.FileID, &in.Prompt, &in.Response, &in.Model, &in.PromptTokens, &shown, &in.Phase); err != nil {
			return nil, err
		}
		if in.ShownAt, err = parseTime(shown); err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

func (s *SQLite) CreateSuggestion(ctx context.Context, sg *model.Suggestion) error {
	sg.ID = ensureID(sg.ID)
	var hunks any
	if sg.HunksCount != nil {
		hunks = *sg.HunksCount
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO suggestions (id, interaction_id, session_id, file_id, original_content, proposed_content, hunks_count, shown_at, resolved_at, all_accepted, any_modified)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, NULL, NULL, NULL)`,
		sg.ID, sg.InteractionID, sg.SessionID, sg.FileID, sg.OriginalContent, sg.ProposedContent, hunks, fmtTime(sg.ShownAt))
	return err
}

func (s *SQLite) GetSuggestion(ctx context.Context, id string) (*model.Suggestion, error) {
	var sg model.Suggestion
	var shown string
	var resolved sql.NullString
	var hunks, allAccepted, anyModified sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, interaction_id, session_id, file_id, original_content, proposed_content, hunks_count, shown_at, resolved_at, all_accepted, any_modified
		 FROM suggestions WHERE id = ?`, id).
		Scan(&sg.ID, &sg.InteractionID, &sg.SessionID, &sg.FileID, &sg.OriginalContent, &sg.ProposedContent, &hunks, &shown, &resolved, &allAccepted, &anyModified)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("suggestion %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if sg.ShownAt, err = parseTime(shown); err != nil {
		return nil, err
	}
	if sg.ResolvedAt, err = scanNullTime(resolved); err != nil {
		return nil, err
	}
	if hunks.Valid {
		n := int(hunks.Int64)
		sg.HunksCount = &n
	}
	if allAccepted.Valid {
		b := allAccepted.Int64 != 0
		sg.AllAccepted = &b
	}
	if anyModified.Valid {
		b := anyModified.Int64 != 0
		sg.AnyModified = &b
	}
	return &sg, nil
}

func (s *SQLite) SetHunksCount(ctx context.Context, suggestionID string, count int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE suggestions SET hunks_count = ? WHERE id = ?`, count, suggestionID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("suggestion %s: %w", suggestionID, model.ErrNotFound)
	}
	return nil
}

const decisionColumns = `id, suggestion_id, session_id, file_id, chunk_index, original_code, proposed_code, final_code, decision, chunk_start_line, proposed_char_count, time_on_chunk_ms, decided_at`

func scanDecision(row interface{ Scan(...any) error }) (*model.ChunkDecision, error) {
	var d model.ChunkDecision
	var decision, decided string
	err := row.Scan(&d.ID, &d.SuggestionID, &d.SessionID, &d.FileID, &d.ChunkIndex,
		&d.OriginalCode, &d.ProposedCode, &d.FinalCode, &decision,
		&d.ChunkStartLine, &d.ProposedCharCount, &d.TimeOnChunkMS, &decided)
	if err != nil {
		return nil, err
	}
	d.Decision = model.Decision(decision)
	if d.DecidedAt, err = parseTime(decided); err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *SQLite) GetDecision(ctx context.Context, suggestionID string, chunkIndex int) (*model.ChunkDecision, error) {
	d, err := scanDecision(s.db.QueryRowContext(ctx,
		`SELECT `+decisionColumns+` FROM chunk_decisions WHERE suggestion_id = ? AND chunk_index = ?`,
		suggestionID, chunkIndex))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("decision %s/%d: %w", suggestionID, chunkIndex, model.ErrNotFound)
	}
	return d, err
}

func (s *SQLite) listDecisions(ctx context.Context, where string, arg any) ([]model.ChunkDecision, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+decisionColumns+` FROM chunk_decisions WHERE `+where, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ChunkDecision
	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

func (s *SQLite) ListSuggestionDecisions(ctx context.Context, suggestionID string) ([]model.ChunkDecision, error) {
	return s.listDecisions(ctx, `suggestion_id = ? ORDER BY chunk_index`, suggestionID)
}

func (s *SQLite) ListDecisions(ctx context.Context, sessionID string) ([]model.ChunkDecision, error) {
	return s.listDecisions(ctx, `session_id = ? ORDER BY decided_at`, sessionID)
}

func (s *SQLite) ApplyDecision(ctx context.Context, d *model.ChunkDecision, audit *model.Event, res *model.Resolution) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	d.ID = ensureID(d.ID)
	_, err = tx.ExecContext(ctx,
		`INSERT INTO chunk_decisions (`+decisionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.SuggestionID, d.SessionID, d.FileID, d.ChunkIndex,
		d.OriginalCode, d.ProposedCode, d.FinalCode, string(d.Decision),
		d.ChunkStartLine, d.ProposedCharCount, d.TimeOnChunkMS, fmtTime(d.DecidedAt))
	if err != nil {
		return err
	}
	if audit != nil {
		if err := s.insertEvent(ctx, tx, audit); err != nil {
			return err
		}
	}
	if res != nil {
		if err := applyResolutionTx(ctx, tx, res); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func applyResolutionTx(ctx context.Context, tx *sql.Tx, res *model.Resolution) error {
	r, err := tx.ExecContext(ctx,
		`UPDATE suggestions SET resolved_at = ?, all_accepted = ?, any_modified = ? WHERE id = ?`,
		fmtTime(res.ResolvedAt), boolInt(res.AllAccepted), boolInt(res.AnyModified), res.SuggestionID)
	if err != nil {
		return err
	}
	n, err := r.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("suggestion %s: %w", res.SuggestionID, model.ErrNotFound)
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (s *SQLite) ResolveSuggestion(ctx context.Context, res *model.Resolution, snap *model.EditorSnapshot, audit *model.Event) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := applyResolutionTx(ctx, tx, res); err != nil {
		return err
	}
	if snap != nil {
		if err := insertSnapshot(ctx, tx, snap); err != nil {
			return err
		}
	}
	if audit != nil {
		if err := s.insertEvent(ctx, tx, audit); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func insertSnapshot(ctx context.Context, ex execer, snap *model.EditorSnapshot) error {
	snap.ID = ensureID(snap.ID)
	var suggestionID any
	if snap.SuggestionID != "" {
		suggestionID = snap.SuggestionID
	}
	_, err := ex.ExecContext(ctx,
		`INSERT INTO editor_snapshots (id, session_id, file_id, "trigger", content, edit_delta, suggestion_id, timestamp, char_count)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.ID, snap.SessionID, snap.FileID, snap.Trigger, snap.Content, snap.EditDelta, suggestionID, fmtTime(snap.Timestamp), snap.CharCount)
	return err
}

func (s *SQLite) SaveSnapshot(ctx context.Context, snap *model.EditorSnapshot) error {
	return insertSnapshot(ctx, s.db, snap)
}

func (s *SQLite) LatestSnapshot(ctx context.Context, fileID string) (*model.EditorSnapshot, error) {
	var snap model.EditorSnapshot
	var suggestionID sql.NullString
	var ts string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, session_id, file_id, "trigger", content, edit_delta, suggestion_id, timestamp, char_count
		 FROM editor_snapshots WHERE file_id = ? ORDER BY timestamp DESC, rowid DESC LIMIT 1`, fileID).
		Scan(&snap.ID, &snap.SessionID, &snap.FileID, &snap.Trigger, &snap.Content, &snap.EditDelta, &suggestionID, &ts, &snap.CharCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("snapshot for file %s: %w", fileID, model.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	snap.SuggestionID = suggestionID.String
	if snap.Timestamp, err = parseTime(ts); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (s *SQLite) ListSnapshots(ctx context.Context, sessionID string) ([]model.EditorSnapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, file_id, "trigger", content, edit_delta, suggestion_id, timestamp, char_count
		 FROM editor_snapshots WHERE session_id = ? ORDER BY timestamp, rowid`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.EditorSnapshot
	for rows.Next() {
		var snap model.EditorSnapshot
		var suggestionID sql.NullString
		var ts string
		if err := rows.Scan(&snap.ID, &snap.SessionID, &snap.FileID, &snap.Trigger, &snap.Content, &snap.EditDelta, &suggestionID, &ts, &snap.CharCount); err != nil {
			return nil, err
		}
		snap.SuggestionID = suggestionID.String
		if snap.Timestamp, err = parseTime(ts); err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

func (s *SQLite) SaveScore(ctx context.Context, sc *model.SessionScore) error {
	sc.ID = ensureID(sc.ID)
	fallback, err := json.Marshal(sc.FallbackComponents)
	if err != nil {
		return fmt.Errorf("encoding fallback components: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO session_scores (id, session_id, computed_at, behavioral_score, behavioral_label, prompt_score, review_score, weighted_score, overall_label, fallback_components, narrative)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET
			id = excluded.id,
			computed_at = excluded.computed_at,
			behavioral_score = excluded.behavioral_score,
			behavioral_label = excluded.behavioral_label,
			prompt_score = excluded.prompt_score,
			review_score = excluded.review_score,
			weighted_score = excluded.weighted_score,
			overall_label = excluded.overall_label,
			fallback_components = excluded.fallback_components,
			narrative = excluded.narrative`,
		sc.ID, sc.SessionID, fmtTime(sc.ComputedAt), sc.BehavioralScore, sc.BehavioralLabel,
		sc.PromptScore, sc.ReviewScore, sc.WeightedScore, sc.OverallLabel, string(fallback), sc.Narrative)
	return err
}

func (s *SQLite) GetScore(ctx context.Context, sessionID string) (*model.SessionScore, error) {
	var sc model.SessionScore
	var computed, fallback string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, session_id, computed_at, behavioral_score, behavioral_label, prompt_score, review_score, weighted_score, overall_label, fallback_components, narrative
		 FROM session_scores WHERE session_id = ?`, sessionID).
		Scan(&sc.ID, &sc.SessionID, &computed, &sc.BehavioralScore, &sc.BehavioralLabel,
			&sc.PromptScore, &sc.ReviewScore, &sc.WeightedScore, &sc.OverallLabel, &fallback, &sc.Narrative)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("score for session %s: %w", sessionID, model.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if sc.ComputedAt, err = parseTime(computed); err != nil {
		return nil, err
	}
	if fallback != "" {
		if err := json.Unmarshal([]byte(fallback), &sc.FallbackComponents); err != nil {
			return nil, fmt.Errorf("decoding fallback components: %w", err)
		}
	}
	return &sc, nil
}

func (s *SQLite) SetNarrative(ctx context.Context, scoreID, narrative string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE session_scores SET narrative = ? WHERE id = ?`, narrative, scoreID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("score %s: %w", scoreID, model.ErrNotFound)
	}
	return nil
}

var _ Store = (*SQLite)(nil)
var _ Store = (*Memory)(nil)

// NewID returns a fresh record identifier.
func NewID() string { return uuid.NewString() }
