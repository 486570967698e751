package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/cleodev/cleo/internal/session"
)

// SessionStore is the concrete session.Store implementation.
type SessionStore struct {
	db *DB
}

// NewSessionStore wraps db.
func NewSessionStore(db *DB) *SessionStore { return &SessionStore{db: db} }

func (s *SessionStore) CreateSession(ctx context.Context, sess *session.Session) error {
	stats, _ := json.Marshal(sess.Stats)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (
			id, status, scope_type, scope_root_task_id, scope_include_descendants, task_work_id,
			started_at, ended_at, suspended_at, resume_count, suspend_count, stats_json,
			agent_identifier, previous_session_id, next_session_id, handoff_json, debrief_json,
			handoff_consumed_at, handoff_consumed_by, grade_mode
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		sess.ID, string(sess.Status), string(sess.Scope.Type), sess.Scope.RootTaskID, sess.Scope.IncludeDescendants,
		nullable(sess.TaskWorkID), sess.StartedAt, nullableTime(sess.EndedAt), nullableTime(sess.SuspendedAt),
		sess.ResumeCount, sess.SuspendCount, string(stats), nullable(sess.AgentIdentifier),
		nullable(sess.PreviousSessionID), nullable(sess.NextSessionID), nullJSON(sess.Handoff), nullJSON(sess.Debrief),
		nullableTime(sess.HandoffConsumedAt), nullable(sess.HandoffConsumedBy), sess.GradeMode,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return s.syncActiveSession(ctx, sess)
}

func (s *SessionStore) GetSession(ctx context.Context, id string) (*session.Session, error) {
	row := s.db.QueryRowContext(ctx, sessionSelectColumns+` FROM sessions WHERE id = ?`, id)
	return scanSession(row)
}

func (s *SessionStore) UpdateSession(ctx context.Context, sess *session.Session) error {
	stats, _ := json.Marshal(sess.Stats)
	_, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET
			status=?, task_work_id=?, ended_at=?, suspended_at=?, resume_count=?, suspend_count=?,
			stats_json=?, previous_session_id=?, next_session_id=?, handoff_json=?, debrief_json=?,
			handoff_consumed_at=?, handoff_consumed_by=?, grade_mode=?
		WHERE id=?`,
		string(sess.Status), nullable(sess.TaskWorkID), nullableTime(sess.EndedAt), nullableTime(sess.SuspendedAt),
		sess.ResumeCount, sess.SuspendCount, string(stats), nullable(sess.PreviousSessionID), nullable(sess.NextSessionID),
		nullJSON(sess.Handoff), nullJSON(sess.Debrief), nullableTime(sess.HandoffConsumedAt), nullable(sess.HandoffConsumedBy),
		sess.GradeMode, sess.ID,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	return s.syncActiveSession(ctx, sess)
}

func (s *SessionStore) ActiveSessionForScope(ctx context.Context, scope session.Scope) (*session.Session, error) {
	row := s.db.QueryRowContext(ctx, sessionSelectColumns+`
		FROM sessions WHERE status = 'active' AND scope_type = ? AND scope_root_task_id = ?`,
		string(scope.Type), scope.RootTaskID)
	sess, err := scanSession(row)
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// ActiveSession returns the single project-wide active session recorded in
// _meta.active_session (migration 1), or nil if none is claimed.
func (s *SessionStore) ActiveSession(ctx context.Context) (*session.Session, error) {
	var id sql.NullString
	row := s.db.QueryRowContext(ctx, `SELECT active_session FROM _meta WHERE id = 1`)
	if err := row.Scan(&id); err != nil {
		return nil, fmt.Errorf("scan active session: %w", err)
	}
	if !id.Valid || id.String == "" {
		return nil, nil
	}
	sess, err := s.GetSession(ctx, id.String)
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// syncActiveSession keeps _meta.active_session in lockstep with sess's
// status: claimed while active, released the moment it stops being so.
func (s *SessionStore) syncActiveSession(ctx context.Context, sess *session.Session) error {
	var err error
	if sess.Status == session.StatusActive {
		_, err = s.db.ExecContext(ctx, `UPDATE _meta SET active_session = ? WHERE id = 1`, sess.ID)
	} else {
		_, err = s.db.ExecContext(ctx, `UPDATE _meta SET active_session = NULL WHERE id = 1 AND active_session = ?`, sess.ID)
	}
	if err != nil {
		return fmt.Errorf("sync active session: %w", err)
	}
	return nil
}

const sessionSelectColumns = `SELECT
	id, status, scope_type, scope_root_task_id, scope_include_descendants, task_work_id,
	started_at, ended_at, suspended_at, resume_count, suspend_count, stats_json,
	agent_identifier, previous_session_id, next_session_id, handoff_json, debrief_json,
	handoff_consumed_at, handoff_consumed_by, grade_mode`

func scanSession(row *sql.Row) (*session.Session, error) {
	s := &session.Session{}
	var taskWorkID, agentIdentifier, previousID, nextID, handoffConsumedBy sql.NullString
	var handoffJSON, debriefJSON, statsJSON sql.NullString
	var endedAt, suspendedAt, handoffConsumedAt sql.NullTime
	var scopeIncludeDescendants bool

	if err := row.Scan(
		&s.ID, &s.Status, &s.Scope.Type, &s.Scope.RootTaskID, &scopeIncludeDescendants, &taskWorkID,
		&s.StartedAt, &endedAt, &suspendedAt, &s.ResumeCount, &s.SuspendCount, &statsJSON,
		&agentIdentifier, &previousID, &nextID, &handoffJSON, &debriefJSON,
		&handoffConsumedAt, &handoffConsumedBy, &s.GradeMode,
	); err != nil {
		return nil, fmt.Errorf("scan session: %w", err)
	}

	s.Scope.IncludeDescendants = scopeIncludeDescendants
	s.TaskWorkID = taskWorkID.String
	s.AgentIdentifier = agentIdentifier.String
	s.PreviousSessionID = previousID.String
	s.NextSessionID = nextID.String
	s.HandoffConsumedBy = handoffConsumedBy.String
	if endedAt.Valid {
		s.EndedAt = &endedAt.Time
	}
	if suspendedAt.Valid {
		s.SuspendedAt = &suspendedAt.Time
	}
	if handoffConsumedAt.Valid {
		s.HandoffConsumedAt = &handoffConsumedAt.Time
	}
	if statsJSON.Valid {
		json.Unmarshal([]byte(statsJSON.String), &s.Stats)
	}
	if handoffJSON.Valid && handoffJSON.String != "" {
		s.Handoff = &session.Handoff{}
		json.Unmarshal([]byte(handoffJSON.String), s.Handoff)
	}
	if debriefJSON.Valid && debriefJSON.String != "" {
		s.Debrief = &session.Debrief{}
		json.Unmarshal([]byte(debriefJSON.String), s.Debrief)
	}
	return s, nil
}

// nullJSON marshals v (a pointer) to JSON, or returns nil if v is nil, so
// NULL is stored instead of the literal string "null".
func nullJSON(v interface{}) interface{} {
	switch val := v.(type) {
	case *session.Handoff:
		if val == nil {
			return nil
		}
	case *session.Debrief:
		if val == nil {
			return nil
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return string(b)
}
