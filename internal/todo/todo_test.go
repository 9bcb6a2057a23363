package todo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strptr(s string) *string { return &s }

func TestCreateAssignsDenseRootOrder(t *testing.T) {
	s := NewStore(t.TempDir())

	a, err := s.Create("repo1", Item{Title: "a"})
	require.NoError(t, err)
	b, err := s.Create("repo1", Item{Title: "b"})
	require.NoError(t, err)

	assert.Equal(t, 0, a.Order)
	assert.Equal(t, 1, b.Order)
}

func TestCreateOrdersIndependentlyPerParent(t *testing.T) {
	s := NewStore(t.TempDir())

	parent, err := s.Create("repo1", Item{Title: "parent"})
	require.NoError(t, err)

	child1, err := s.Create("repo1", Item{Title: "child1", ParentID: &parent.ID})
	require.NoError(t, err)
	child2, err := s.Create("repo1", Item{Title: "child2", ParentID: &parent.ID})
	require.NoError(t, err)
	root2, err := s.Create("repo1", Item{Title: "root2"})
	require.NoError(t, err)

	assert.Equal(t, 0, child1.Order)
	assert.Equal(t, 1, child2.Order)
	assert.Equal(t, 1, root2.Order)
}

func TestListSortsByOrder(t *testing.T) {
	s := NewStore(t.TempDir())
	_, err := s.Create("repo1", Item{Title: "a"})
	require.NoError(t, err)
	_, err = s.Create("repo1", Item{Title: "b"})
	require.NoError(t, err)

	list, err := s.List("repo1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].Title)
	assert.Equal(t, "b", list[1].Title)
}

func TestUpdatePartialFieldsLeaveOthersUnchanged(t *testing.T) {
	s := NewStore(t.TempDir())
	item, err := s.Create("repo1", Item{Title: "a", Description: strptr("desc")})
	require.NoError(t, err)

	updated, repoID, err := s.Update(item.ID, Update{Title: strptr("renamed")})
	require.NoError(t, err)
	assert.Equal(t, "repo1", repoID)
	assert.Equal(t, "renamed", updated.Title)
	require.NotNil(t, updated.Description)
	assert.Equal(t, "desc", *updated.Description)
}

func TestUpdateUnknownReturnsNotFound(t *testing.T) {
	s := NewStore(t.TempDir())
	_, _, err := s.Update("nope", Update{Title: strptr("x")})
	require.Error(t, err)
	var nfe *NotFoundError
	assert.ErrorAs(t, err, &nfe)
}

func TestToggleFlipsCompleted(t *testing.T) {
	s := NewStore(t.TempDir())
	item, err := s.Create("repo1", Item{Title: "a"})
	require.NoError(t, err)

	toggled, _, err := s.Toggle(item.ID)
	require.NoError(t, err)
	assert.True(t, toggled.Completed)

	toggled, _, err = s.Toggle(item.ID)
	require.NoError(t, err)
	assert.False(t, toggled.Completed)
}

func TestDeleteOrphansChildrenToRoot(t *testing.T) {
	s := NewStore(t.TempDir())
	parent, err := s.Create("repo1", Item{Title: "parent"})
	require.NoError(t, err)
	child, err := s.Create("repo1", Item{Title: "child", ParentID: &parent.ID})
	require.NoError(t, err)

	require.NoError(t, s.Delete(parent.ID))

	list, err := s.List("repo1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, child.ID, list[0].ID)
	assert.Nil(t, list[0].ParentID)
}

func TestDeleteUnknownReturnsNotFound(t *testing.T) {
	s := NewStore(t.TempDir())
	err := s.Delete("nope")
	require.Error(t, err)
	var nfe *NotFoundError
	assert.ErrorAs(t, err, &nfe)
}

func TestReorderWithinSameParent(t *testing.T) {
	s := NewStore(t.TempDir())
	a, err := s.Create("repo1", Item{Title: "a"})
	require.NoError(t, err)
	b, err := s.Create("repo1", Item{Title: "b"})
	require.NoError(t, err)
	c, err := s.Create("repo1", Item{Title: "c"})
	require.NoError(t, err)

	// Move "a" to the end: a, b, c -> b, c, a
	require.NoError(t, s.Reorder(a.ID, 2, nil))

	list, err := s.List("repo1")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{b.ID, c.ID, a.ID}, []string{list[0].ID, list[1].ID, list[2].ID})
}

func TestReorderAcrossParents(t *testing.T) {
	s := NewStore(t.TempDir())
	parent, err := s.Create("repo1", Item{Title: "parent"})
	require.NoError(t, err)
	root, err := s.Create("repo1", Item{Title: "root"})
	require.NoError(t, err)

	require.NoError(t, s.Reorder(root.ID, 0, &parent.ID))

	list, err := s.List("repo1")
	require.NoError(t, err)
	for _, it := range list {
		if it.ID == root.ID {
			require.NotNil(t, it.ParentID)
			assert.Equal(t, parent.ID, *it.ParentID)
			assert.Equal(t, 0, it.Order)
		}
	}
}

func TestReorderClampsOutOfRangeOrder(t *testing.T) {
	s := NewStore(t.TempDir())
	a, err := s.Create("repo1", Item{Title: "a"})
	require.NoError(t, err)
	b, err := s.Create("repo1", Item{Title: "b"})
	require.NoError(t, err)

	require.NoError(t, s.Reorder(a.ID, 99, nil))

	list, err := s.List("repo1")
	require.NoError(t, err)
	assert.Equal(t, b.ID, list[0].ID)
	assert.Equal(t, a.ID, list[1].ID)
}
