package session

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rebeliceyang/sequel/internal/models"
)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("tab-%d", n)
	}
}

func TestOpenTabNumbering(t *testing.T) {
	s := New(newFakeBackend())

	prevMax := 0
	for i := 0; i < 5; i++ {
		tab := s.OpenTab()
		assert.Equal(t, prevMax+1, tab.Num)
		assert.Equal(t, fmt.Sprintf("query%d", tab.Num), tab.Title)
		prevMax = tab.Num
	}

	// closing the highest number frees it; the next tab is remaining max + 1
	require.NoError(t, s.CloseTab(4))
	assert.Equal(t, 5, s.OpenTab().Num)

	// closing a lower number does not lead to reuse
	require.NoError(t, s.CloseTab(0))
	assert.Equal(t, 6, s.OpenTab().Num)
}

func TestOpenTabIdentityIsUnique(t *testing.T) {
	s := New(newFakeBackend())
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		tab := s.OpenTab()
		require.NotEmpty(t, tab.ID)
		assert.False(t, seen[tab.ID])
		seen[tab.ID] = true
	}
}

func TestTwoTabsThenCloseFirst(t *testing.T) {
	s := New(newFakeBackend())
	first := s.OpenTab()
	second := s.OpenTab()

	snap := s.Snapshot()
	require.Len(t, snap.Tabs, 2)
	assert.Equal(t, 1, first.Num)
	assert.Equal(t, "query1", first.Title)
	assert.Equal(t, 2, second.Num)
	assert.Equal(t, "query2", second.Title)
	assert.Equal(t, 1, snap.ActiveTab)

	require.NoError(t, s.CloseTab(0))

	snap = s.Snapshot()
	require.Len(t, snap.Tabs, 1)
	assert.Equal(t, 2, snap.Tabs[0].Num)
	// the remaining tab was active and stays active, now at index 0
	assert.Equal(t, 0, snap.ActiveTab)
	active, ok := snap.ActiveTabContent()
	require.True(t, ok)
	assert.Equal(t, second.ID, active.ID)
}

func TestCloseTabActiveResolution(t *testing.T) {
	tests := []struct {
		name       string
		open       int
		activate   int
		close      int
		wantActive int
		wantTitle  string
	}{
		{name: "close tab before active keeps identity", open: 3, activate: 2, close: 0, wantActive: 1, wantTitle: "query3"},
		{name: "close tab after active keeps index", open: 3, activate: 0, close: 2, wantActive: 0, wantTitle: "query1"},
		{name: "close active in middle activates next", open: 3, activate: 1, close: 1, wantActive: 1, wantTitle: "query3"},
		{name: "close active last activates new last", open: 3, activate: 2, close: 2, wantActive: 1, wantTitle: "query2"},
		{name: "close only tab leaves none", open: 1, activate: 0, close: 0, wantActive: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(newFakeBackend())
			for i := 0; i < tt.open; i++ {
				s.OpenTab()
			}
			require.NoError(t, s.SetActiveTab(tt.activate))
			require.NoError(t, s.CloseTab(tt.close))

			snap := s.Snapshot()
			assert.Equal(t, tt.wantActive, snap.ActiveTab)
			if tt.wantActive >= 0 {
				assert.Equal(t, tt.wantTitle, snap.Tabs[snap.ActiveTab].Title)
			}
		})
	}
}

func TestInvalidTabReference(t *testing.T) {
	s := New(newFakeBackend())
	assert.ErrorIs(t, s.SetActiveTab(0), ErrInvalidTabReference)
	assert.ErrorIs(t, s.CloseTab(0), ErrInvalidTabReference)

	s.OpenTab()
	s.OpenTab()
	require.NoError(t, s.SetActiveTab(0))

	assert.ErrorIs(t, s.SetActiveTab(2), ErrInvalidTabReference)
	assert.ErrorIs(t, s.SetActiveTab(-1), ErrInvalidTabReference)
	assert.ErrorIs(t, s.CloseTab(5), ErrInvalidTabReference)

	snap := s.Snapshot()
	assert.Len(t, snap.Tabs, 2)
	assert.Equal(t, 0, snap.ActiveTab)
}

func TestUpdateTabContentByIdentity(t *testing.T) {
	s := New(newFakeBackend(), WithTabIDs(sequentialIDs()))
	first := s.OpenTab()
	second := s.OpenTab()

	// a stale edit for the first tab arrives after the tab moved
	require.NoError(t, s.CloseTab(0))
	s.OpenTab()

	assert.True(t, s.UpdateTabContent(models.QueryTabContent{ID: second.ID, Editor: "select 1", Title: "ignored", Num: 99}))
	assert.False(t, s.UpdateTabContent(models.QueryTabContent{ID: first.ID, Editor: "lost"}))

	snap := s.Snapshot()
	require.Len(t, snap.Tabs, 2)
	assert.Equal(t, "select 1", snap.Tabs[0].Editor)
	assert.Equal(t, "query2", snap.Tabs[0].Title)
	assert.Equal(t, 2, snap.Tabs[0].Num)
	assert.Equal(t, "", snap.Tabs[1].Editor)
}

func TestUpdateUnknownTabIsNoop(t *testing.T) {
	s := New(newFakeBackend())
	s.OpenTab()
	s.OpenTab()
	before := s.Snapshot().Tabs

	assert.False(t, s.UpdateTabContent(models.QueryTabContent{ID: "no-such-tab", Editor: "drop table users"}))
	assert.Equal(t, before, s.Snapshot().Tabs)
}

func TestActiveEditor(t *testing.T) {
	s := New(newFakeBackend())
	_, ok := s.ActiveEditor()
	assert.False(t, ok)

	tab := s.OpenTab()
	s.UpdateTabContent(models.QueryTabContent{ID: tab.ID, Editor: "select now()"})
	editor, ok := s.ActiveEditor()
	require.True(t, ok)
	assert.Equal(t, "select now()", editor)
}

type memoryRecorder struct {
	mu    sync.Mutex
	execs []Execution
}

func (r *memoryRecorder) Record(_ context.Context, exec Execution) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.execs = append(r.execs, exec)
	return nil
}

func TestExecuteActiveTab(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	backend.databases[1] = []string{"db1"}
	backend.queryResp = &models.QueryResponseContext{
		ID:       "exec-1",
		Status:   true,
		Color:    models.ColorSuccess,
		Message:  "1 row(s)",
		Elapsed:  15,
		Columns:  []models.ColumnDefinition{{Text: "n", Value: "n"}},
		Rows:     []map[string]any{{"n": 1}},
		RowCount: 1,
	}
	rec := &memoryRecorder{}

	s := New(backend, WithRecorder(rec))
	conn := pg1
	require.NoError(t, s.SetActiveConnection(ctx, &conn))

	tab := s.OpenTab()
	s.UpdateTabContent(models.QueryTabContent{ID: tab.ID, Editor: "select 1 as n"})

	resp, err := s.ExecuteActiveTab(ctx)
	require.NoError(t, err)
	assert.Equal(t, "exec-1", resp.ID)

	backend.mu.Lock()
	assert.Equal(t, "select 1 as n", backend.lastQuery.Query)
	assert.Equal(t, "db1", backend.lastQuery.Database)
	assert.Nil(t, backend.lastQuery.DatabaseObject)
	backend.mu.Unlock()

	snap := s.Snapshot()
	require.NotNil(t, snap.Tabs[0].Result)
	assert.Equal(t, 1, snap.Tabs[0].Result.RowCount)
	assert.Equal(t, "1 row(s)", snap.Notification.Message)
	assert.False(t, snap.Notification.Error)

	require.Len(t, rec.execs, 1)
	assert.Equal(t, "db1", rec.execs[0].Database)
	assert.Equal(t, pg1, rec.execs[0].Connection)
	assert.Equal(t, int64(15), rec.execs[0].Duration.Milliseconds())
}

func TestExecuteActiveTabFailedStatus(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	backend.databases[1] = []string{"db1"}
	backend.queryResp = &models.QueryResponseContext{
		Status:  false,
		Color:   models.ColorError,
		Error:   "relation \"nope\" does not exist",
		Message: "Query failed",
	}

	s := New(backend)
	conn := pg1
	require.NoError(t, s.SetActiveConnection(ctx, &conn))
	s.OpenTab()

	_, err := s.ExecuteActiveTab(ctx)
	require.NoError(t, err)

	n := s.Snapshot().Notification
	assert.True(t, n.Error)
	assert.Equal(t, models.ColorError, n.Color)
	assert.Equal(t, "relation \"nope\" does not exist", n.Message)
}

func TestExecuteActiveTabEmptyResponse(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	backend.databases[1] = []string{"db1"}
	rec := &memoryRecorder{}

	s := New(backend, WithRecorder(rec))
	conn := pg1
	require.NoError(t, s.SetActiveConnection(ctx, &conn))
	s.OpenTab()

	resp, err := s.ExecuteActiveTab(ctx)
	require.NoError(t, err)
	assert.Nil(t, resp)

	snap := s.Snapshot()
	assert.Nil(t, snap.Tabs[0].Result)
	assert.Equal(t, "Query executed.", snap.Notification.Message)
	assert.False(t, snap.Notification.Error)
	assert.Equal(t, models.ColorSuccess, snap.Notification.Color)

	require.Len(t, rec.execs, 1)
	assert.Nil(t, rec.execs[0].Response)
	assert.NoError(t, rec.execs[0].Err)
}

func TestExecuteActiveTabPreconditions(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	s := New(backend)

	_, err := s.ExecuteActiveTab(ctx)
	assert.ErrorIs(t, err, ErrNoActiveTab)

	s.OpenTab()
	_, err = s.ExecuteActiveTab(ctx)
	assert.ErrorIs(t, err, ErrNoActiveConnection)

	conn := pg1
	require.NoError(t, s.SetActiveConnection(ctx, &conn))
	_, err = s.ExecuteActiveTab(ctx)
	assert.ErrorIs(t, err, ErrNoActiveDatabase)

	assert.Equal(t, 0, backend.count("ExecuteQuery"))
}

func TestExecuteActiveTabBackendError(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	backend.databases[1] = []string{"db1"}
	backend.queryErr = errBoom
	rec := &memoryRecorder{}

	s := New(backend, WithRecorder(rec))
	conn := pg1
	require.NoError(t, s.SetActiveConnection(ctx, &conn))
	s.OpenTab()

	_, err := s.ExecuteActiveTab(ctx)
	assert.ErrorIs(t, err, errBoom)
	assert.Nil(t, s.Snapshot().Tabs[0].Result)
	assert.True(t, s.Snapshot().Notification.Error)

	require.Len(t, rec.execs, 1)
	assert.ErrorIs(t, rec.execs[0].Err, errBoom)
	assert.Nil(t, rec.execs[0].Response)
}
