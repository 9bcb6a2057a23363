// Package todo is the per-repo JSON-backed todo-list store described in
// spec.md §3/§4.3/§4.6: a flat slice of items with optional parent_id
// nesting and a stable sibling order.
package todo

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Item is one todo entry, optionally nested under a parent.
type Item struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
	Completed   bool    `json:"completed"`
	ParentID    *string `json:"parent_id,omitempty"`
	Order       int     `json:"order"`
	CreatedAt   int64   `json:"created_at"`
	UpdatedAt   int64   `json:"updated_at"`
}

// Update carries the optional fields UpdateTodo may change; nil means leave
// as-is.
type Update struct {
	Title       *string
	Description *string
	Completed   *bool
}

// NotFoundError reports that no todo with the given id exists in the repo's
// list.
type NotFoundError struct{ ID string }

func (e *NotFoundError) Error() string { return fmt.Sprintf("todo %s not found", e.ID) }

// Store persists todos under <root>/<repo>/todos.json.
type Store struct {
	root string
}

func NewStore(root string) *Store { return &Store{root: root} }

func (s *Store) path(repoID string) string {
	return filepath.Join(s.root, repoID, "todos.json")
}

func (s *Store) load(repoID string) ([]Item, error) {
	data, err := os.ReadFile(s.path(repoID))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("todo: read %s: %w", repoID, err)
	}
	var items []Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("todo: corrupt list for %s: %w", repoID, err)
	}
	return items, nil
}

func (s *Store) save(repoID string, items []Item) error {
	path := s.path(repoID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("todo: mkdir: %w", err)
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("todo: marshal: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// List returns all items for a repo sorted by Order ascending (stable on
// ties). Items are not grouped by parent: siblings of different parents are
// interleaved, and the tree is built by the caller from ParentID.
func (s *Store) List(repoID string) ([]Item, error) {
	items, err := s.load(repoID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Order < items[j].Order
	})
	return items, nil
}

func nextOrder(items []Item, parentID *string) int {
	max := -1
	for _, it := range items {
		if sameParent(it.ParentID, parentID) && it.Order > max {
			max = it.Order
		}
	}
	return max + 1
}

func sameParent(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Create appends a new item as the last sibling under its parent (or at
// root if ParentID is nil). Cross-repo parents are not possible since
// ParentID is only ever resolved within the same repo's list.
func (s *Store) Create(repoID string, i Item) (Item, error) {
	items, err := s.load(repoID)
	if err != nil {
		return Item{}, err
	}
	now := time.Now().Unix()
	i.ID = uuid.NewString()
	i.CreatedAt = now
	i.UpdatedAt = now
	i.Order = nextOrder(items, i.ParentID)
	items = append(items, i)
	if err := s.save(repoID, items); err != nil {
		return Item{}, err
	}
	return i, nil
}

// findRepo scans every repo directory for the todo, since the wire protocol
// identifies todos by id alone on update/delete/toggle/reorder.
func (s *Store) findRepo(id string) (string, error) {
	repoDirs, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return "", &NotFoundError{ID: id}
		}
		return "", err
	}
	for _, rd := range repoDirs {
		if !rd.IsDir() {
			continue
		}
		items, err := s.load(rd.Name())
		if err != nil {
			continue
		}
		for _, it := range items {
			if it.ID == id {
				return rd.Name(), nil
			}
		}
	}
	return "", &NotFoundError{ID: id}
}

func (s *Store) Update(id string, u Update) (Item, string, error) {
	repoID, err := s.findRepo(id)
	if err != nil {
		return Item{}, "", err
	}
	items, err := s.load(repoID)
	if err != nil {
		return Item{}, "", err
	}
	for i := range items {
		if items[i].ID != id {
			continue
		}
		if u.Title != nil {
			items[i].Title = *u.Title
		}
		if u.Description != nil {
			items[i].Description = u.Description
		}
		if u.Completed != nil {
			items[i].Completed = *u.Completed
		}
		items[i].UpdatedAt = time.Now().Unix()
		if err := s.save(repoID, items); err != nil {
			return Item{}, "", err
		}
		return items[i], repoID, nil
	}
	return Item{}, "", &NotFoundError{ID: id}
}

func (s *Store) Toggle(id string) (Item, string, error) {
	repoID, err := s.findRepo(id)
	if err != nil {
		return Item{}, "", err
	}
	items, err := s.load(repoID)
	if err != nil {
		return Item{}, "", err
	}
	for i := range items {
		if items[i].ID == id {
			items[i].Completed = !items[i].Completed
			items[i].UpdatedAt = time.Now().Unix()
			if err := s.save(repoID, items); err != nil {
				return Item{}, "", err
			}
			return items[i], repoID, nil
		}
	}
	return Item{}, "", &NotFoundError{ID: id}
}

func (s *Store) Delete(id string) error {
	repoID, err := s.findRepo(id)
	if err != nil {
		return err
	}
	items, err := s.load(repoID)
	if err != nil {
		return err
	}
	for i, it := range items {
		if it.ID == id {
			items = append(items[:i], items[i+1:]...)
			// Orphan any children to root rather than cascading the
			// delete, so a parent removal never silently drops its
			// children.
			for j := range items {
				if items[j].ParentID != nil && *items[j].ParentID == id {
					items[j].ParentID = nil
					items[j].Order = nextOrder(items, nil)
				}
			}
			return s.save(repoID, items)
		}
	}
	return &NotFoundError{ID: id}
}

// Reorder moves an item to newOrder among the siblings of newParentID,
// shifting the affected siblings so order stays a dense 0..n-1 sequence per
// parent.
func (s *Store) Reorder(id string, newOrder int, newParentID *string) error {
	repoID, err := s.findRepo(id)
	if err != nil {
		return err
	}
	items, err := s.load(repoID)
	if err != nil {
		return err
	}

	var moving *Item
	for i := range items {
		if items[i].ID == id {
			moving = &items[i]
			break
		}
	}
	if moving == nil {
		return &NotFoundError{ID: id}
	}

	oldParent := moving.ParentID
	moving.ParentID = newParentID

	// Compact old siblings' order, then make room in the new siblings.
	reindexSiblings(items, oldParent, id)

	siblings := siblingIDsInOrder(items, newParentID, id)
	if newOrder < 0 {
		newOrder = 0
	}
	if newOrder > len(siblings) {
		newOrder = len(siblings)
	}
	siblings = append(siblings[:newOrder], append([]string{id}, siblings[newOrder:]...)...)
	for idx, sid := range siblings {
		for i := range items {
			if items[i].ID == sid {
				items[i].Order = idx
			}
		}
	}
	moving.UpdatedAt = time.Now().Unix()

	return s.save(repoID, items)
}

func reindexSiblings(items []Item, parentID *string, excludeID string) {
	ids := siblingIDsInOrder(items, parentID, excludeID)
	for idx, sid := range ids {
		for i := range items {
			if items[i].ID == sid {
				items[i].Order = idx
			}
		}
	}
}

func siblingIDsInOrder(items []Item, parentID *string, excludeID string) []string {
	type ordered struct {
		id    string
		order int
	}
	var sib []ordered
	for _, it := range items {
		if it.ID == excludeID {
			continue
		}
		if sameParent(it.ParentID, parentID) {
			sib = append(sib, ordered{it.ID, it.Order})
		}
	}
	sort.SliceStable(sib, func(i, j int) bool { return sib[i].order < sib[j].order })
	ids := make([]string, len(sib))
	for i, o := range sib {
		ids[i] = o.id
	}
	return ids
}
