package change

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sha = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"

func TestAggregateSingleOps(t *testing.T) {
	records, err := Aggregate(sha, []Raw{
		{Op: OpAdd, Path: "slug1-0000000000000001.yaml"},
		{Op: OpDelete, Path: "slug2-0000000000000002.yaml"},
		{Op: OpModify, Path: "slug3-0000000000000003.yaml"},
	})
	require.NoError(t, err)
	require.Len(t, records, 3)

	// Results come back sorted by unique id.
	assert.Equal(t, Record{UID: "0000000000000001", Op: OpAdd, Path: "slug1-0000000000000001.yaml", Commit: sha}, records[0])
	assert.Equal(t, OpDelete, records[1].Op)
	assert.Equal(t, OpModify, records[2].Op)
}

func TestAggregateRename(t *testing.T) {
	records, err := Aggregate(sha, []Raw{
		{Op: OpDelete, Path: "old-0000000000000001.yaml"},
		{Op: OpAdd, Path: "new-0000000000000001.yaml"},
	})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, Record{
		UID:     "0000000000000001",
		Op:      OpRename,
		OldPath: "old-0000000000000001.yaml",
		Path:    "new-0000000000000001.yaml",
		Commit:  sha,
	}, records[0])
}

func TestAggregateLegacyRename(t *testing.T) {
	// Legacy prefix name renamed to the modern suffix form keeps the id.
	records, err := Aggregate(sha, []Raw{
		{Op: OpAdd, Path: "slug1-0000000000000001.yaml"},
		{Op: OpDelete, Path: "0000000000000001-slug1.yaml"},
	})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, OpRename, records[0].Op)
	assert.Equal(t, "slug1-0000000000000001.yaml", records[0].Path)
}

func TestAggregateMergeModifies(t *testing.T) {
	records, err := Aggregate(sha, []Raw{
		{Op: OpModify, Path: "slug1-0000000000000001.yaml"},
		{Op: OpModify, Path: "0000000000000001-slug1.yaml"},
	})
	require.NoError(t, err)
	require.Len(t, records, 2)
	for _, rec := range records {
		assert.Equal(t, OpModify, rec.Op)
		assert.Equal(t, "0000000000000001", rec.UID)
		assert.Equal(t, sha, rec.Commit)
	}
}

func TestAggregateInconsistent(t *testing.T) {
	_, err := Aggregate(sha, []Raw{
		{Op: OpAdd, Path: "slug1-0000000000000001.yaml"},
		{Op: OpModify, Path: "0000000000000001-slug1.yaml"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInconsistentChanges)
}

func TestAggregateDistinctIDs(t *testing.T) {
	// An add and a delete with different ids are not a rename.
	records, err := Aggregate(sha, []Raw{
		{Op: OpAdd, Path: "new-0000000000000002.yaml"},
		{Op: OpDelete, Path: "old-0000000000000001.yaml"},
	})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, OpDelete, records[0].Op)
	assert.Equal(t, OpAdd, records[1].Op)
}

func TestAggregateEmpty(t *testing.T) {
	records, err := Aggregate(sha, nil)
	require.NoError(t, err)
	assert.Empty(t, records)
}
