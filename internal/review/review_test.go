package review

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndList(t *testing.T) {
	s := NewStore(t.TempDir())

	c, err := s.Create("repo1", "main", Comment{FilePath: "a.go", LineNumber: 10, LineType: "addition", Comment: "nit"})
	require.NoError(t, err)
	assert.NotEmpty(t, c.ID)
	assert.NotZero(t, c.CreatedAt)

	list, err := s.List("repo1", "main")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, c.ID, list[0].ID)
}

func TestListMissingBranchReturnsEmpty(t *testing.T) {
	s := NewStore(t.TempDir())
	list, err := s.List("repo1", "main")
	require.NoError(t, err)
	assert.Nil(t, list)
}

func TestUpdateByIDScansAcrossRepos(t *testing.T) {
	s := NewStore(t.TempDir())

	_, err := s.Create("repo1", "main", Comment{FilePath: "a.go", LineNumber: 1, Comment: "first"})
	require.NoError(t, err)
	c2, err := s.Create("repo2", "feature", Comment{FilePath: "b.go", LineNumber: 2, Comment: "second"})
	require.NoError(t, err)

	updated, repoID, branch, err := s.UpdateByID(c2.ID, "edited")
	require.NoError(t, err)
	assert.Equal(t, "edited", updated.Comment)
	assert.Equal(t, "repo2", repoID)
	assert.Equal(t, "feature", branch)

	list, err := s.List("repo2", "feature")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "edited", list[0].Comment)
}

func TestUpdateByIDUnknownReturnsNotFound(t *testing.T) {
	s := NewStore(t.TempDir())
	_, _, _, err := s.UpdateByID("nope", "x")
	require.Error(t, err)
	var nfe *NotFoundError
	assert.ErrorAs(t, err, &nfe)
	assert.Equal(t, "nope", nfe.ID)
}

func TestDeleteByIDRemovesOnlyTargetComment(t *testing.T) {
	s := NewStore(t.TempDir())

	c1, err := s.Create("repo1", "main", Comment{FilePath: "a.go", LineNumber: 1, Comment: "keep"})
	require.NoError(t, err)
	c2, err := s.Create("repo1", "main", Comment{FilePath: "a.go", LineNumber: 2, Comment: "drop"})
	require.NoError(t, err)

	require.NoError(t, s.DeleteByID(c2.ID))

	list, err := s.List("repo1", "main")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, c1.ID, list[0].ID)
}

func TestDeleteByIDUnknownReturnsNotFound(t *testing.T) {
	s := NewStore(t.TempDir())
	err := s.DeleteByID("nope")
	require.Error(t, err)
	var nfe *NotFoundError
	assert.ErrorAs(t, err, &nfe)
}
