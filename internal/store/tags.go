package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cleodev/cleo/internal/task"
)

// TagStore persists the tags/task_tags N:M junction. Grounded on
// internal/db/store.go's CreateTag/GetTicketTags/AddTagToTicket family,
// repointed at tasks instead of tickets and given context.Context plumbing
// to match the rest of this package.
type TagStore struct {
	db *DB
}

// NewTagStore wraps db.
func NewTagStore(db *DB) *TagStore {
	return &TagStore{db: db}
}

// CreateTag inserts a new tag.
func (s *TagStore) CreateTag(ctx context.Context, t *task.Tag) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tags (id, name, type, color, description) VALUES (?, ?, ?, ?, ?)
	`, t.ID, t.Name, string(t.Type), t.Color, t.Description)
	if err != nil {
		return fmt.Errorf("create tag: %w", err)
	}
	return nil
}

// GetTag retrieves a tag by ID.
func (s *TagStore) GetTag(ctx context.Context, id string) (*task.Tag, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, name, type, color, description FROM tags WHERE id = ?`, id)
	return scanTag(row)
}

// GetTagByName retrieves a tag by its unique name.
func (s *TagStore) GetTagByName(ctx context.Context, name string) (*task.Tag, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, name, type, color, description FROM tags WHERE name = ?`, name)
	return scanTag(row)
}

// ListTags returns every tag, optionally filtered to one TagType.
func (s *TagStore) ListTags(ctx context.Context, tagType task.TagType) ([]*task.Tag, error) {
	var rows *sql.Rows
	var err error
	if tagType == "" {
		rows, err = s.db.QueryContext(ctx, `SELECT id, name, type, color, description FROM tags ORDER BY type, name`)
	} else {
		rows, err = s.db.QueryContext(ctx, `SELECT id, name, type, color, description FROM tags WHERE type = ? ORDER BY name`, string(tagType))
	}
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()
	return scanTagRows(rows)
}

// TagsForTask returns every tag attached to taskID.
func (s *TagStore) TagsForTask(ctx context.Context, taskID string) ([]*task.Tag, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.name, t.type, t.color, t.description
		FROM tags t
		INNER JOIN task_tags tt ON t.id = tt.tag_id
		WHERE tt.task_id = ?
		ORDER BY t.type, t.name
	`, taskID)
	if err != nil {
		return nil, fmt.Errorf("tags for task: %w", err)
	}
	defer rows.Close()
	return scanTagRows(rows)
}

// TasksByTag returns the IDs of every task carrying tagID.
func (s *TagStore) TasksByTag(ctx context.Context, tagID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT task_id FROM task_tags WHERE tag_id = ?`, tagID)
	if err != nil {
		return nil, fmt.Errorf("tasks by tag: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// AttachTag associates tagID with taskID, idempotently.
func (s *TagStore) AttachTag(ctx context.Context, taskID, tagID string) error {
	_, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO task_tags (task_id, tag_id) VALUES (?, ?)`, taskID, tagID)
	return err
}

// DetachTag removes the taskID/tagID association, if present.
func (s *TagStore) DetachTag(ctx context.Context, taskID, tagID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM task_tags WHERE task_id = ? AND tag_id = ?`, taskID, tagID)
	return err
}

// UpdateTag overwrites tag's mutable fields.
func (s *TagStore) UpdateTag(ctx context.Context, t *task.Tag) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE tags SET name = ?, type = ?, color = ?, description = ? WHERE id = ?
	`, t.Name, string(t.Type), t.Color, t.Description, t.ID)
	return err
}

// DeleteTag removes a tag; task_tags rows cascade via the foreign key.
func (s *TagStore) DeleteTag(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM tags WHERE id = ?`, id)
	return err
}

type rowLike interface {
	Scan(dest ...interface{}) error
}

func scanTag(row rowLike) (*task.Tag, error) {
	var t task.Tag
	var tagType string
	var color, description sql.NullString

	if err := row.Scan(&t.ID, &t.Name, &tagType, &color, &description); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan tag: %w", err)
	}
	t.Type = task.TagType(tagType)
	if color.Valid {
		t.Color = color.String
	}
	if description.Valid {
		t.Description = description.String
	}
	return &t, nil
}

func scanTagRows(rows *sql.Rows) ([]*task.Tag, error) {
	var tags []*task.Tag
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}
