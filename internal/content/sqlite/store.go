// Package sqlite stores the content tree in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Bahjat/page-link-checker/internal/content"
)

// maxTreeDepth bounds the descendant walk so a parent cycle cannot loop forever.
const maxTreeDepth = 1000

// Store implements content.Repository on SQLite.
type Store struct {
	db *sql.DB
}

var _ content.Repository = (*Store)(nil)

// New opens the database at dsn and migrates the schema.
func New(ctx context.Context, dsn string) (*Store, error) {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	db, err := sql.Open("sqlite", dsn+sep+"_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("unable to open sqlite database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}
	store := &Store{db: db}
	if err := store.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate(ctx context.Context) error {
	schema := `
CREATE TABLE IF NOT EXISTS nodes (
	id          INTEGER PRIMARY KEY,
	parent_id   INTEGER REFERENCES nodes(id),
	sort_order  INTEGER NOT NULL,
	name        TEXT NOT NULL,
	url         TEXT NOT NULL,
	update_user TEXT NOT NULL,
	update_date TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_nodes_parent_id_sort_order ON nodes (parent_id, sort_order);
`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// PutNode inserts or updates a node. A new node, or one moved to another
// parent, is placed after its existing siblings.
func (s *Store) PutNode(ctx context.Context, node content.Node) error {
	return putNode(ctx, s.db, node)
}

func putNode(ctx context.Context, ex execer, node content.Node) error {
	if node.ID <= 0 {
		return fmt.Errorf("node id must be positive, got %d", node.ID)
	}
	var parent sql.NullInt64
	if node.ParentID != 0 {
		parent = sql.NullInt64{Int64: node.ParentID, Valid: true}
	}

	query := `
INSERT INTO nodes (id, parent_id, sort_order, name, url, update_user, update_date)
VALUES (?, ?, (SELECT COALESCE(MAX(sort_order) + 1, 0) FROM nodes WHERE parent_id IS ?), ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	sort_order  = CASE WHEN nodes.parent_id IS excluded.parent_id THEN nodes.sort_order ELSE excluded.sort_order END,
	parent_id   = excluded.parent_id,
	name        = excluded.name,
	url         = excluded.url,
	update_user = excluded.update_user,
	update_date = excluded.update_date`
	_, err := ex.ExecContext(ctx, query,
		node.ID, parent, parent,
		node.Name, node.URL, node.UpdateUser, node.UpdateDate.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to save node %d: %w", node.ID, err)
	}
	return nil
}

// ImportTree saves a whole tree in one transaction, keeping sibling order.
func (s *Store) ImportTree(ctx context.Context, roots []content.TreeNode) (int, error) {
	nodes, err := content.Flatten(roots)
	if err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, node := range nodes {
		if err := putNode(ctx, tx, node); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return len(nodes), nil
}

// GetNode returns the node with the given id or content.ErrNotFound.
func (s *Store) GetNode(ctx context.Context, id int64) (*content.Node, error) {
	query := `SELECT id, parent_id, name, url, update_user, update_date FROM nodes WHERE id = ?`

	var (
		node          content.Node
		parent        sql.NullInt64
		updateDateStr string
	)
	err := s.db.QueryRowContext(ctx, query, id).
		Scan(&node.ID, &parent, &node.Name, &node.URL, &node.UpdateUser, &updateDateStr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", content.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get node %d: %w", id, err)
	}

	node.ParentID = parent.Int64
	node.UpdateDate, err = time.Parse(time.RFC3339Nano, updateDateStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse update date of node %d: %w", id, err)
	}
	return &node, nil
}

// DescendantIDs returns rootID and every node below it in pre-order.
func (s *Store) DescendantIDs(ctx context.Context, rootID int64) ([]int64, error) {
	// Each path segment is fixed width, so ordering by path yields pre-order
	// with siblings in sort order.
	query := `
WITH RECURSIVE tree(id, path, depth) AS (
	SELECT id, '', 0 FROM nodes WHERE id = ?
	UNION ALL
	SELECT n.id, tree.path || printf('/%010d.%019d', n.sort_order, n.id), tree.depth + 1
	FROM nodes n JOIN tree ON n.parent_id = tree.id
	WHERE tree.depth < ?
)
SELECT id FROM tree ORDER BY path`

	rows, err := s.db.QueryContext(ctx, query, rootID, maxTreeDepth)
	if err != nil {
		return nil, fmt.Errorf("failed to list descendants of %d: %w", rootID, err)
	}
	defer func() { _ = rows.Close() }()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan descendant id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list descendants of %d: %w", rootID, err)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: %d", content.ErrNotFound, rootID)
	}
	return ids, nil
}
