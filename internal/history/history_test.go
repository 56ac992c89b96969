package history

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storeFactories builds each Store implementation for shared tests.
var storeFactories = map[string]func(t *testing.T) Store{
	"memory": func(t *testing.T) Store {
		return NewMemoryStore()
	},
	"sqlite": func(t *testing.T) Store {
		s, err := NewSQLiteStore(t.TempDir() + "/history.db")
		require.NoError(t, err)
		return s
	},
}

// TestStore_AppendAndList tests the append-ordered trail per session.
func TestStore_AppendAndList(t *testing.T) {
	for name, factory := range storeFactories {
		t.Run(name, func(t *testing.T) {
			s := factory(t)
			defer s.Close()

			require.NoError(t, s.Append(Record{
				SessionID: "s-1",
				RunID:     "run-1",
				Terminal:  "validate-required-fields",
				State:     json.RawMessage(`{"user_input":"3BHK in Andheri"}`),
			}))
			require.NoError(t, s.Append(Record{
				SessionID: "s-1",
				RunID:     "run-2",
				Terminal:  "publish",
				State:     json.RawMessage(`{"post_text":"done"}`),
			}))

			recs, err := s.List("s-1")
			require.NoError(t, err)
			require.Len(t, recs, 2)

			assert.Equal(t, 1, recs[0].Sequence)
			assert.Equal(t, "run-1", recs[0].RunID)
			assert.Equal(t, "validate-required-fields", recs[0].Terminal)
			assert.JSONEq(t, `{"user_input":"3BHK in Andheri"}`, string(recs[0].State))
			assert.False(t, recs[0].Timestamp.IsZero())

			assert.Equal(t, 2, recs[1].Sequence)
			assert.Equal(t, "publish", recs[1].Terminal)
		})
	}
}

// TestStore_SessionsAreIsolated tests that trails don't cross sessions.
func TestStore_SessionsAreIsolated(t *testing.T) {
	for name, factory := range storeFactories {
		t.Run(name, func(t *testing.T) {
			s := factory(t)
			defer s.Close()

			require.NoError(t, s.Append(Record{SessionID: "a", RunID: "r1", Terminal: "publish", State: []byte(`{}`)}))
			require.NoError(t, s.Append(Record{SessionID: "b", RunID: "r2", Terminal: "publish", State: []byte(`{}`)}))

			recs, err := s.List("a")
			require.NoError(t, err)
			require.Len(t, recs, 1)
			assert.Equal(t, "r1", recs[0].RunID)

			// Each session numbers from 1.
			recsB, err := s.List("b")
			require.NoError(t, err)
			require.Len(t, recsB, 1)
			assert.Equal(t, 1, recsB[0].Sequence)
		})
	}
}

// TestStore_ListEmpty tests an unknown session.
func TestStore_ListEmpty(t *testing.T) {
	for name, factory := range storeFactories {
		t.Run(name, func(t *testing.T) {
			s := factory(t)
			defer s.Close()

			recs, err := s.List("ghost")
			require.NoError(t, err)
			assert.Empty(t, recs)
		})
	}
}

// TestStore_DeleteSession tests trail removal.
func TestStore_DeleteSession(t *testing.T) {
	for name, factory := range storeFactories {
		t.Run(name, func(t *testing.T) {
			s := factory(t)
			defer s.Close()

			require.NoError(t, s.Append(Record{SessionID: "s-1", RunID: "r1", Terminal: "publish", State: []byte(`{}`)}))
			require.NoError(t, s.DeleteSession("s-1"))

			recs, err := s.List("s-1")
			require.NoError(t, err)
			assert.Empty(t, recs)
		})
	}
}

// TestStore_ClosedErrors tests that a closed store rejects operations.
func TestStore_ClosedErrors(t *testing.T) {
	for name, factory := range storeFactories {
		t.Run(name, func(t *testing.T) {
			s := factory(t)
			require.NoError(t, s.Close())

			err := s.Append(Record{SessionID: "s-1", RunID: "r1", Terminal: "publish", State: []byte(`{}`)})
			assert.ErrorIs(t, err, ErrStoreClosed)

			_, err = s.List("s-1")
			assert.ErrorIs(t, err, ErrStoreClosed)
		})
	}
}

// TestSQLiteStore_Reopen tests that records survive reopening the file.
func TestSQLiteStore_Reopen(t *testing.T) {
	path := t.TempDir() + "/history.db"

	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Append(Record{SessionID: "s-1", RunID: "r1", Terminal: "publish", State: []byte(`{}`)}))
	require.NoError(t, s.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	recs, err := reopened.List("s-1")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "r1", recs[0].RunID)
}

// TestMemoryStore_Len tests the test helper count.
func TestMemoryStore_Len(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()

	require.NoError(t, s.Append(Record{SessionID: "a", RunID: "r1", Terminal: "publish", State: []byte(`{}`)}))
	require.NoError(t, s.Append(Record{SessionID: "b", RunID: "r2", Terminal: "publish", State: []byte(`{}`)}))

	assert.Equal(t, 2, s.Len())
}
