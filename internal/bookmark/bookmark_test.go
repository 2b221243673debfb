package bookmark

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pair struct {
	user string
	id   int64
}

// memStore mimics the unique (user, question) relation.
type memStore struct {
	rows      map[pair]int
	existsErr error
	createErr error
	deleteErr error
	writes    int
}

func newMemStore() *memStore {
	return &memStore{rows: map[pair]int{}}
}

func (m *memStore) Exists(_ context.Context, user string, id int64) (bool, error) {
	if m.existsErr != nil {
		return false, m.existsErr
	}
	return m.rows[pair{user, id}] > 0, nil
}

func (m *memStore) Create(_ context.Context, user string, id int64) error {
	m.writes++
	if m.createErr != nil {
		return m.createErr
	}
	m.rows[pair{user, id}]++
	return nil
}

func (m *memStore) Delete(_ context.Context, user string, id int64) error {
	m.writes++
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.rows, pair{user, id})
	return nil
}

func TestToggle_TwiceRestoresState(t *testing.T) {
	st := newMemStore()
	m := NewManager(st, nil)
	ctx := context.Background()
	require.NoError(t, m.Load(ctx, "u1", []int64{42}))
	require.False(t, m.Bookmarked(42))

	on, err := m.Toggle(ctx, "u1", 42)
	require.NoError(t, err)
	assert.True(t, on)
	assert.True(t, m.Bookmarked(42))
	assert.LessOrEqual(t, len(st.rows), 1)

	off, err := m.Toggle(ctx, "u1", 42)
	require.NoError(t, err)
	assert.False(t, off)
	assert.False(t, m.Bookmarked(42))
	assert.Empty(t, st.rows)
}

func TestToggle_CreateFailureReverts(t *testing.T) {
	st := newMemStore()
	st.createErr = errors.New("write failed")
	m := NewManager(st, nil)

	got, err := m.Toggle(context.Background(), "u1", 7)
	require.Error(t, err)
	assert.False(t, got)
	assert.False(t, m.Bookmarked(7))

	var te *ToggleError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, int64(7), te.QuestionID)
	assert.ErrorIs(t, err, st.createErr)
}

func TestToggle_DeleteFailureReverts(t *testing.T) {
	st := newMemStore()
	st.rows[pair{"u1", 7}] = 1
	m := NewManager(st, nil)
	ctx := context.Background()
	require.NoError(t, m.Load(ctx, "u1", []int64{7}))
	require.True(t, m.Bookmarked(7))

	st.deleteErr = errors.New("write failed")
	got, err := m.Toggle(ctx, "u1", 7)
	require.Error(t, err)
	assert.True(t, got)
	assert.True(t, m.Bookmarked(7))
}

func TestToggle_AnonymousIsNoOp(t *testing.T) {
	st := newMemStore()
	m := NewManager(st, nil)

	got, err := m.Toggle(context.Background(), "", 7)
	require.NoError(t, err)
	assert.False(t, got)
	assert.Empty(t, st.rows)

	require.NoError(t, m.Load(context.Background(), "", []int64{7}))
	assert.False(t, m.Bookmarked(7))
}

func TestLoad_ReadsExistingFlags(t *testing.T) {
	st := newMemStore()
	st.rows[pair{"u1", 2}] = 1
	st.rows[pair{"u2", 3}] = 1
	m := NewManager(st, nil)

	require.NoError(t, m.Load(context.Background(), "u1", []int64{1, 2, 3}))
	assert.False(t, m.Bookmarked(1))
	assert.True(t, m.Bookmarked(2))
	assert.False(t, m.Bookmarked(3))
}

func TestToggle_AfterFailedLoadReadsStore(t *testing.T) {
	st := newMemStore()
	st.rows[pair{"u1", 7}] = 1
	st.existsErr = errors.New("read failed")
	m := NewManager(st, nil)
	ctx := context.Background()
	require.Error(t, m.Load(ctx, "u1", []int64{7}))

	st.existsErr = nil
	on, err := m.Toggle(ctx, "u1", 7)
	require.NoError(t, err)
	assert.False(t, on)
	assert.False(t, m.Bookmarked(7))
	assert.Empty(t, st.rows)
}

func TestToggle_UnknownFlagReadFailureWritesNothing(t *testing.T) {
	st := newMemStore()
	st.rows[pair{"u1", 7}] = 1
	st.existsErr = errors.New("read failed")
	m := NewManager(st, nil)

	got, err := m.Toggle(context.Background(), "u1", 7)
	var te *ToggleError
	require.ErrorAs(t, err, &te)
	assert.ErrorIs(t, err, st.existsErr)
	assert.False(t, got)
	assert.Zero(t, st.writes)
	assert.Equal(t, 1, st.rows[pair{"u1", 7}])
}
