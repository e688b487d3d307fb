// Package content describes the content tree whose pages are link checked.
package content

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned when no node exists for the requested id.
var ErrNotFound = errors.New("content node not found")

var errDuplicateID = errors.New("duplicate node id")

// Node is a single page in the content tree.
type Node struct {
	ID         int64
	ParentID   int64 // zero for root nodes
	Name       string
	URL        string
	UpdateDate time.Time
	UpdateUser string
}

// Repository gives read access to the content tree.
type Repository interface {
	// GetNode returns the node with the given id or ErrNotFound.
	GetNode(ctx context.Context, id int64) (*Node, error)
	// DescendantIDs returns rootID followed by all of its descendants in
	// pre-order, or ErrNotFound when the root does not exist.
	DescendantIDs(ctx context.Context, rootID int64) ([]int64, error)
}

// TreeNode is the YAML shape used to seed a content tree.
type TreeNode struct {
	ID         int64      `yaml:"id"`
	Name       string     `yaml:"name"`
	URL        string     `yaml:"url"`
	UpdateUser string     `yaml:"updateUser"`
	UpdateDate time.Time  `yaml:"updateDate"`
	Children   []TreeNode `yaml:"children"`
}

// LoadTreeYAML decodes a list of root nodes, each with nested children.
func LoadTreeYAML(r io.Reader) ([]TreeNode, error) {
	var roots []TreeNode
	if err := yaml.NewDecoder(r).Decode(&roots); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decode content tree: %w", err)
	}
	return roots, nil
}

// Flatten walks the tree in pre-order and returns one Node per entry, with
// ParentID filled in from the nesting. Ids must be positive and unique.
func Flatten(roots []TreeNode) ([]Node, error) {
	var (
		nodes []Node
		seen  = make(map[int64]struct{})
	)

	var walk func(parent int64, tn TreeNode) error
	walk = func(parent int64, tn TreeNode) error {
		if tn.ID <= 0 {
			return fmt.Errorf("node %q: id must be positive, got %d", tn.Name, tn.ID)
		}
		if _, dup := seen[tn.ID]; dup {
			return fmt.Errorf("%w: %d", errDuplicateID, tn.ID)
		}
		seen[tn.ID] = struct{}{}

		nodes = append(nodes, Node{
			ID:         tn.ID,
			ParentID:   parent,
			Name:       tn.Name,
			URL:        tn.URL,
			UpdateDate: tn.UpdateDate,
			UpdateUser: tn.UpdateUser,
		})
		for _, child := range tn.Children {
			if err := walk(tn.ID, child); err != nil {
				return err
			}
		}
		return nil
	}

	for _, root := range roots {
		if err := walk(0, root); err != nil {
			return nil, err
		}
	}
	return nodes, nil
}
