package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cleodev/cleo/internal/task"
)

// TaskStore is the concrete task.Storage implementation over a *DB.
// Grounded on internal/db/store.go's CreateTicket/GetTicket/scanTicket
// family: one exec/query per method, JSON-encoded slice/struct columns,
// no ORM.
type TaskStore struct {
	db       *DB
	accessor *Accessor
}

// NewTaskStore wraps db with its own Accessor.
func NewTaskStore(db *DB) *TaskStore {
	return &TaskStore{db: db, accessor: NewAccessor(db)}
}

func (s *TaskStore) CreateTask(ctx context.Context, t *task.Task) error {
	return s.accessor.RunInTransaction(ctx, func(tx *sql.Tx) error {
		return insertTask(ctx, tx, t)
	})
}

func insertTask(ctx context.Context, tx *sql.Tx, t *task.Task) error {
	depends, _ := json.Marshal(t.Depends)
	labels, _ := json.Marshal(t.Labels)
	files, _ := json.Marshal(t.Files)
	acceptance, _ := json.Marshal(t.Acceptance)
	verification, _ := json.Marshal(t.Verification)

	_, err := tx.ExecContext(ctx, `
		INSERT INTO tasks (
			id, title, description, status, priority, type, phase, parent_id,
			depends_json, labels_json, notes, files_json, acceptance_json, size,
			created_at, updated_at, completed_at, cancelled_at, blocked_by,
			verification_json, epic_lifecycle
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		t.ID, t.Title, t.Description, string(t.Status), string(t.Priority), string(t.Type),
		nullable(t.Phase), nullable(t.ParentID),
		string(depends), string(labels), nullable(t.Notes), string(files), string(acceptance), nullable(string(t.Size)),
		t.CreatedAt, t.UpdatedAt, nullableTime(t.CompletedAt), nullableTime(t.CancelledAt), nullable(t.BlockedBy),
		string(verification), nullable(string(t.EpicLifecycle)),
	)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

func (s *TaskStore) GetTask(ctx context.Context, id string) (*task.Task, error) {
	row := s.db.QueryRowContext(ctx, taskSelectColumns+` FROM tasks WHERE id = ?`, id)
	return scanTask(row)
}

func (s *TaskStore) ListTasks(ctx context.Context, filter task.ListFilter) ([]*task.Task, error) {
	query := taskSelectColumns + ` FROM tasks WHERE 1=1`
	var args []interface{}

	if len(filter.Status) > 0 {
		query += ` AND status IN (` + placeholders(len(filter.Status)) + `)`
		for _, st := range filter.Status {
			args = append(args, string(st))
		}
	}
	if len(filter.Type) > 0 {
		query += ` AND type IN (` + placeholders(len(filter.Type)) + `)`
		for _, ty := range filter.Type {
			args = append(args, string(ty))
		}
	}
	if filter.ParentID != "" {
		query += ` AND parent_id = ?`
		args = append(args, filter.ParentID)
	}
	if filter.Phase != "" {
		query += ` AND phase = ?`
		args = append(args, filter.Phase)
	}
	if filter.Label != "" {
		query += ` AND labels_json LIKE ?`
		args = append(args, `%"`+filter.Label+`"%`)
	}
	query += ` ORDER BY created_at`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var out []*task.Task
	for rows.Next() {
		t, err := scanTaskRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *TaskStore) UpdateTask(ctx context.Context, t *task.Task) error {
	return s.accessor.RunInTransaction(ctx, func(tx *sql.Tx) error {
		return updateTask(ctx, tx, t)
	})
}

func updateTask(ctx context.Context, tx *sql.Tx, t *task.Task) error {
	depends, _ := json.Marshal(t.Depends)
	labels, _ := json.Marshal(t.Labels)
	files, _ := json.Marshal(t.Files)
	acceptance, _ := json.Marshal(t.Acceptance)
	verification, _ := json.Marshal(t.Verification)

	res, err := tx.ExecContext(ctx, `
		UPDATE tasks SET
			title=?, description=?, status=?, priority=?, type=?, phase=?, parent_id=?,
			depends_json=?, labels_json=?, notes=?, files_json=?, acceptance_json=?, size=?,
			updated_at=?, completed_at=?, cancelled_at=?, blocked_by=?,
			verification_json=?, epic_lifecycle=?
		WHERE id=?`,
		t.Title, t.Description, string(t.Status), string(t.Priority), string(t.Type),
		nullable(t.Phase), nullable(t.ParentID),
		string(depends), string(labels), nullable(t.Notes), string(files), string(acceptance), nullable(string(t.Size)),
		t.UpdatedAt, nullableTime(t.CompletedAt), nullableTime(t.CancelledAt), nullable(t.BlockedBy),
		string(verification), nullable(string(t.EpicLifecycle)),
		t.ID,
	)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("task %s not found", t.ID)
	}
	return nil
}

func (s *TaskStore) DeleteTask(ctx context.Context, id string) error {
	return s.accessor.RunInTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
		return err
	})
}

func (s *TaskStore) ArchiveTask(ctx context.Context, t *task.Task, source task.ArchiveSource, at time.Time) error {
	return s.accessor.RunInTransaction(ctx, func(tx *sql.Tx) error {
		return archiveTask(ctx, tx, t, source, at)
	})
}

func archiveTask(ctx context.Context, tx *sql.Tx, t *task.Task, source task.ArchiveSource, at time.Time) error {
	depends, _ := json.Marshal(t.Depends)
	labels, _ := json.Marshal(t.Labels)
	files, _ := json.Marshal(t.Files)
	acceptance, _ := json.Marshal(t.Acceptance)
	verification, _ := json.Marshal(t.Verification)

	_, err := tx.ExecContext(ctx, `
		INSERT INTO archived_tasks (
			id, title, description, status, priority, type, phase, parent_id,
			depends_json, labels_json, notes, files_json, acceptance_json, size,
			created_at, updated_at, completed_at, cancelled_at, blocked_by,
			verification_json, epic_lifecycle, archive_source, archived_at
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		t.ID, t.Title, t.Description, string(t.Status), string(t.Priority), string(t.Type),
		nullable(t.Phase), nullable(t.ParentID),
		string(depends), string(labels), nullable(t.Notes), string(files), string(acceptance), nullable(string(t.Size)),
		t.CreatedAt, t.UpdatedAt, nullableTime(t.CompletedAt), nullableTime(t.CancelledAt), nullable(t.BlockedBy),
		string(verification), nullable(string(t.EpicLifecycle)), string(source), at,
	)
	if err != nil {
		return fmt.Errorf("archive task: %w", err)
	}
	return nil
}

func (s *TaskStore) ListArchived(ctx context.Context, filter task.ListFilter) ([]*task.Archived, error) {
	query := `SELECT id, title, description, status, priority, type, phase, parent_id,
		depends_json, labels_json, notes, files_json, acceptance_json, size,
		created_at, updated_at, completed_at, cancelled_at, blocked_by,
		verification_json, epic_lifecycle, archive_source, archived_at
		FROM archived_tasks WHERE 1=1`
	var args []interface{}
	if len(filter.Status) > 0 {
		query += ` AND status IN (` + placeholders(len(filter.Status)) + `)`
		for _, st := range filter.Status {
			args = append(args, string(st))
		}
	}
	query += ` ORDER BY archived_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list archived: %w", err)
	}
	defer rows.Close()

	var out []*task.Archived
	for rows.Next() {
		a := &task.Archived{}
		var phase, parentID, notes, blockedBy, size, epicLifecycle sql.NullString
		var dependsJSON, labelsJSON, filesJSON, acceptanceJSON, verificationJSON string
		var completedAt, cancelledAt sql.NullTime
		var archiveSource string
		var archivedAt time.Time

		if err := rows.Scan(
			&a.ID, &a.Title, &a.Description, &a.Status, &a.Priority, &a.Type, &phase, &parentID,
			&dependsJSON, &labelsJSON, &notes, &filesJSON, &acceptanceJSON, &size,
			&a.CreatedAt, &a.UpdatedAt, &completedAt, &cancelledAt, &blockedBy,
			&verificationJSON, &epicLifecycle, &archiveSource, &archivedAt,
		); err != nil {
			return nil, fmt.Errorf("scan archived: %w", err)
		}

		a.Phase = phase.String
		a.ParentID = parentID.String
		a.Notes = notes.String
		a.BlockedBy = blockedBy.String
		a.Size = task.Size(size.String)
		a.EpicLifecycle = task.EpicLifecycle(epicLifecycle.String)
		a.ArchiveSource = task.ArchiveSource(archiveSource)
		a.ArchivedAt = archivedAt
		if completedAt.Valid {
			a.CompletedAt = &completedAt.Time
		}
		if cancelledAt.Valid {
			a.CancelledAt = &cancelledAt.Time
		}
		json.Unmarshal([]byte(dependsJSON), &a.Depends)
		json.Unmarshal([]byte(labelsJSON), &a.Labels)
		json.Unmarshal([]byte(filesJSON), &a.Files)
		json.Unmarshal([]byte(acceptanceJSON), &a.Acceptance)
		json.Unmarshal([]byte(verificationJSON), &a.Verification)

		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *TaskStore) Children(ctx context.Context, parentID string) ([]*task.Task, error) {
	return s.ListTasks(ctx, task.ListFilter{ParentID: parentID})
}

func (s *TaskStore) Dependents(ctx context.Context, id string) ([]*task.Task, error) {
	all, err := s.ListTasks(ctx, task.ListFilter{})
	if err != nil {
		return nil, err
	}
	var out []*task.Task
	for _, t := range all {
		for _, dep := range t.Depends {
			if dep == id {
				out = append(out, t)
				break
			}
		}
	}
	return out, nil
}

// NextSequence returns the next "<prefix>-<n>" human-readable identifier,
// reading and incrementing the shared counter in _sequence inside one
// transaction.
func (s *TaskStore) NextSequence(ctx context.Context, prefix string) (string, error) {
	var n string
	err := s.accessor.RunInTransaction(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `SELECT counter FROM _sequence WHERE id = 1`)
		var counter int
		if err := row.Scan(&counter); err != nil {
			return err
		}
		counter++
		if _, err := tx.ExecContext(ctx, `UPDATE _sequence SET counter = ?, last_id = ? WHERE id = 1`,
			counter, prefix+"-"+strconv.Itoa(counter)); err != nil {
			return err
		}
		n = strconv.Itoa(counter)
		return nil
	})
	if err != nil {
		return "", err
	}
	return prefix + "-" + n, nil
}

// RunInTransaction adapts *sql.Tx into the task.Transaction interface.
func (s *TaskStore) RunInTransaction(ctx context.Context, fn func(tx task.Transaction) error) error {
	return s.accessor.RunInTransaction(ctx, func(sqlTx *sql.Tx) error {
		return fn(&sqlTransaction{tx: sqlTx})
	})
}

type sqlTransaction struct {
	tx *sql.Tx
}

func (t *sqlTransaction) CreateTask(ctx context.Context, tk *task.Task) error {
	return insertTask(ctx, t.tx, tk)
}

func (t *sqlTransaction) UpdateTask(ctx context.Context, tk *task.Task) error {
	return updateTask(ctx, t.tx, tk)
}

func (t *sqlTransaction) DeleteTask(ctx context.Context, id string) error {
	_, err := t.tx.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	return err
}

func (t *sqlTransaction) ArchiveTask(ctx context.Context, tk *task.Task, source task.ArchiveSource, at time.Time) error {
	return archiveTask(ctx, t.tx, tk, source, at)
}

func (t *sqlTransaction) GetTask(ctx context.Context, id string) (*task.Task, error) {
	row := t.tx.QueryRowContext(ctx, taskSelectColumns+` FROM tasks WHERE id = ?`, id)
	return scanTask(row)
}

func (t *sqlTransaction) Children(ctx context.Context, parentID string) ([]*task.Task, error) {
	rows, err := t.tx.QueryContext(ctx, taskSelectColumns+` FROM tasks WHERE parent_id = ? ORDER BY created_at`, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*task.Task
	for rows.Next() {
		tk, err := scanTaskRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tk)
	}
	return out, rows.Err()
}

const taskSelectColumns = `SELECT
	id, title, description, status, priority, type, phase, parent_id,
	depends_json, labels_json, notes, files_json, acceptance_json, size,
	created_at, updated_at, completed_at, cancelled_at, blocked_by,
	verification_json, epic_lifecycle`

// rowScanner abstracts *sql.Row and *sql.Rows, the same generic-scan
// shape as the teacher's scanTicket/scanTicketRows pair.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTask(row *sql.Row) (*task.Task, error) {
	return scanTaskGeneric(row)
}

func scanTaskRows(rows *sql.Rows) (*task.Task, error) {
	return scanTaskGeneric(rows)
}

func scanTaskGeneric(r rowScanner) (*task.Task, error) {
	t := &task.Task{}
	var phase, parentID, notes, blockedBy, size, epicLifecycle sql.NullString
	var dependsJSON, labelsJSON, filesJSON, acceptanceJSON, verificationJSON string
	var completedAt, cancelledAt sql.NullTime

	err := r.Scan(
		&t.ID, &t.Title, &t.Description, &t.Status, &t.Priority, &t.Type, &phase, &parentID,
		&dependsJSON, &labelsJSON, &notes, &filesJSON, &acceptanceJSON, &size,
		&t.CreatedAt, &t.UpdatedAt, &completedAt, &cancelledAt, &blockedBy,
		&verificationJSON, &epicLifecycle,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan task: %w", err)
	}

	t.Phase = phase.String
	t.ParentID = parentID.String
	t.Notes = notes.String
	t.BlockedBy = blockedBy.String
	t.Size = task.Size(size.String)
	t.EpicLifecycle = task.EpicLifecycle(epicLifecycle.String)
	if completedAt.Valid {
		t.CompletedAt = &completedAt.Time
	}
	if cancelledAt.Valid {
		t.CancelledAt = &cancelledAt.Time
	}
	json.Unmarshal([]byte(dependsJSON), &t.Depends)
	json.Unmarshal([]byte(labelsJSON), &t.Labels)
	json.Unmarshal([]byte(filesJSON), &t.Files)
	json.Unmarshal([]byte(acceptanceJSON), &t.Acceptance)
	json.Unmarshal([]byte(verificationJSON), &t.Verification)

	return t, nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
