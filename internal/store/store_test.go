package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type note struct {
	ID   string `json:"id"`
	Body string `json:"body"`
}

func (n *note) ObjectID() string      { return n.ID }
func (n *note) SetObjectID(id string) { n.ID = id }
func (n *note) ToJSON() (string, error) {
	b, err := json.Marshal(n)
	return string(b), err
}

type brokenNote struct{ note }

func (b *brokenNote) ToJSON() (string, error) { return "", errors.New("boom") }

func TestAddGeneratesDistinctIDs(t *testing.T) {
	s := New[*note]()

	a, b := &note{Body: "a"}, &note{Body: "b"}
	require.NoError(t, s.Add(a, ""))
	require.NoError(t, s.Add(b, ""))

	assert.NotEmpty(t, a.ID)
	assert.NotEmpty(t, b.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, 2, s.Count())
}

func TestAddExplicitIDReplaces(t *testing.T) {
	s := New[*note]()

	require.NoError(t, s.Add(&note{Body: "first"}, "x"))
	require.NoError(t, s.Add(&note{Body: "second"}, "x"))

	assert.Equal(t, 1, s.Count())
	all := s.All()
	require.Len(t, all, 1)
	assert.Equal(t, "second", all[0].Body)
	assert.Equal(t, "x", all[0].ID)

	got, ok := s.Get("x")
	require.True(t, ok)
	assert.Equal(t, "second", got.Body)
}

func TestAddNilItem(t *testing.T) {
	s := New[*note]()
	err := s.Add(nil, "")
	assert.ErrorIs(t, err, ErrNilItem)
	assert.Zero(t, s.Count())
}

func TestAllReturnsSnapshot(t *testing.T) {
	s := New[*note]()
	require.NoError(t, s.Add(&note{Body: "a"}, "1"))

	snap := s.All()
	require.NoError(t, s.Add(&note{Body: "b"}, "2"))
	s.Remove("1")

	require.Len(t, snap, 1)
	assert.Equal(t, "a", snap[0].Body)
	assert.Equal(t, 1, s.Count())
}

func TestGetMissingIsNotAnError(t *testing.T) {
	s := New[*note]()

	got, ok := s.Get("nope")
	assert.False(t, ok)
	assert.Nil(t, got)

	_, ok = s.Get("")
	assert.False(t, ok)
}

func TestRemoveContainsClear(t *testing.T) {
	s := New[*note]()
	require.NoError(t, s.Add(&note{Body: "a"}, "1"))
	require.NoError(t, s.Add(&note{Body: "b"}, "2"))

	assert.True(t, s.ContainsID("1"))
	s.Remove("1")
	s.Remove("missing")
	assert.False(t, s.ContainsID("1"))
	assert.True(t, s.ContainsID("2"))
	assert.False(t, s.ContainsID(""))

	s.Clear()
	assert.Zero(t, s.Count())
	assert.Empty(t, s.All())
}

func TestInsertionOrderSurvivesReplace(t *testing.T) {
	s := New[*note]()
	require.NoError(t, s.Add(&note{Body: "a"}, "1"))
	require.NoError(t, s.Add(&note{Body: "b"}, "2"))
	require.NoError(t, s.Add(&note{Body: "a2"}, "1"))

	var bodies []string
	for _, n := range s.All() {
		bodies = append(bodies, n.Body)
	}
	assert.Equal(t, []string{"b", "a2"}, bodies)
}

func TestClosedStoreFailsClosed(t *testing.T) {
	s := New[*note]()
	require.NoError(t, s.Add(&note{Body: "a"}, "1"))

	s.Close()

	assert.ErrorIs(t, s.Add(&note{Body: "b"}, ""), ErrClosed)
	assert.Zero(t, s.Count())
	assert.False(t, s.ContainsID("1"))
	assert.ErrorIs(t, s.Reload(context.Background()), ErrClosed)
}

func TestReload(t *testing.T) {
	s := New[*note]()
	assert.ErrorIs(t, s.Reload(context.Background()), ErrNoLoader)

	require.NoError(t, s.Add(&note{Body: "stale"}, "old"))
	s.SetLoader(func(context.Context) ([]*note, error) {
		return []*note{{Body: "x"}, nil, {ID: "keep", Body: "y"}}, nil
	})
	require.NoError(t, s.Reload(context.Background()))

	all := s.All()
	require.Len(t, all, 2)
	assert.Equal(t, "x", all[0].Body)
	assert.NotEmpty(t, all[0].ID)
	assert.Equal(t, "y", all[1].Body)
	assert.False(t, s.ContainsID("old"))

	got, ok := s.Get("keep")
	require.True(t, ok)
	assert.Equal(t, "y", got.Body)

	s.SetLoader(func(context.Context) ([]*note, error) {
		return nil, errors.New("scan failed")
	})
	err := s.Reload(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scan failed")
	assert.Equal(t, 2, s.Count())
}

func TestText(t *testing.T) {
	s := New[*note]()
	text, err := s.Text()
	require.NoError(t, err)
	assert.Equal(t, "[]", text)

	require.NoError(t, s.Add(&note{Body: "a"}, "1"))
	require.NoError(t, s.Add(&note{Body: "b"}, "2"))

	text, err = s.Text()
	require.NoError(t, err)
	assert.Equal(t, "[\n{\"id\":\"1\",\"body\":\"a\"},\n{\"id\":\"2\",\"body\":\"b\"}\n]", text)

	var decoded []note
	require.NoError(t, json.Unmarshal([]byte(text), &decoded))
	assert.Len(t, decoded, 2)
}

func TestNamedItemText(t *testing.T) {
	db := NewNamed[*note]("notes")
	assert.Equal(t, "notes", db.Name())

	require.NoError(t, db.Add(&note{Body: "a"}, "1"))

	text, ok, err := db.ItemText("1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `{"id":"1","body":"a"}`, text)

	_, ok, err = db.ItemText("2")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNamedItemTextEncodeError(t *testing.T) {
	db := NewNamed[*brokenNote]("broken")
	require.NoError(t, db.Add(&brokenNote{}, "1"))

	_, ok, err := db.ItemText("1")
	assert.True(t, ok)
	assert.Error(t, err)

	_, err = db.Text()
	assert.Error(t, err)
}

func TestConcurrentAccess(t *testing.T) {
	s := New[*note]()

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := range 50 {
				_ = s.Add(&note{Body: "w"}, fmt.Sprintf("%d-%d", i, j%10))
			}
		}()
		go func() {
			defer wg.Done()
			for range 50 {
				_ = s.All()
				_ = s.Count()
				_, _ = s.Get("0-0")
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 80, s.Count())
	assert.Len(t, s.All(), 80)
}
