package core

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapping_AddKeepsOrderAndDedupes(t *testing.T) {
	m := NewMapping()
	for _, p := range []Pair{
		{"Hematology", "WBC"},
		{"Chemistry", "Glucose"},
		{"Hematology", "RBC"},
		{" Hematology ", "WBC"},
		{"Chemistry", "Sodium"},
	} {
		require.NoError(t, m.Add(p.Category, p.Test))
	}

	assert.Equal(t, []string{"Hematology", "Chemistry"}, m.Categories())
	assert.Equal(t, []string{"WBC", "RBC"}, m.Tests("Hematology"))
	assert.Equal(t, 2, m.Len())
	assert.Equal(t, 4, m.PairCount())
	assert.True(t, m.Has("Chemistry", "Sodium"))
	assert.False(t, m.Has("Chemistry", "WBC"))
	assert.Nil(t, m.Tests("Urinalysis"))
}

func TestMapping_AddRejectsBlank(t *testing.T) {
	m := NewMapping()
	assert.ErrorIs(t, m.Add("  ", "WBC"), ErrEmptyCell)
	assert.ErrorIs(t, m.Add("Hematology", ""), ErrEmptyCell)
	assert.Equal(t, 0, m.Len())
}

func TestMapping_ZeroValueUsable(t *testing.T) {
	var m Mapping
	require.NoError(t, m.Add("A", "t1"))
	assert.Equal(t, []string{"t1"}, m.Tests("A"))
}

func TestMapping_AccessorsReturnCopies(t *testing.T) {
	m := NewMapping()
	require.NoError(t, m.Add("A", "t1"))

	m.Categories()[0] = "changed"
	m.Tests("A")[0] = "changed"

	assert.Equal(t, []string{"A"}, m.Categories())
	assert.Equal(t, []string{"t1"}, m.Tests("A"))
}

func TestMappingFromPairs(t *testing.T) {
	m, err := MappingFromPairs([]Pair{{"A", "t1"}, {"A", "t2"}, {"B", "t3"}})
	require.NoError(t, err)
	want := map[string][]string{"A": {"t1", "t2"}, "B": {"t3"}}
	if diff := cmp.Diff(want, m.Map()); diff != "" {
		t.Errorf("Map() mismatch (-want +got):\n%s", diff)
	}

	_, err = MappingFromPairs(nil)
	assert.ErrorIs(t, err, ErrEmptyMapping)

	_, err = MappingFromPairs([]Pair{{"A", "t1"}, {"", "t2"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pair 2")
}

func TestMapping_JSONRoundTrip(t *testing.T) {
	m, err := MappingFromPairs([]Pair{{"Zeta", "z1"}, {"Alpha", "a1"}, {"Alpha", "a2"}})
	require.NoError(t, err)

	b, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"category":"Zeta","tests":["z1"]},{"category":"Alpha","tests":["a1","a2"]}]`, string(b))

	var back Mapping
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, m.Pairs(), back.Pairs())
}

func TestMapping_UnmarshalObjectForm(t *testing.T) {
	var m Mapping
	require.NoError(t, json.Unmarshal([]byte(`{"B":["t3"],"A":["t1","t2"]}`), &m))
	assert.Equal(t, []string{"A", "B"}, m.Categories())
	assert.Equal(t, []string{"t1", "t2"}, m.Tests("A"))
}

func TestMapping_UnmarshalErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want error
	}{
		{"category without tests", `{"A":[]}`, ErrEmptyCell},
		{"list entry without tests", `[{"category":"A","tests":[]}]`, ErrEmptyCell},
		{"blank test", `{"A":[" "]}`, ErrEmptyCell},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m Mapping
			err := json.Unmarshal([]byte(tt.in), &m)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}

	var m Mapping
	err := json.Unmarshal([]byte(`"nope"`), &m)
	require.Error(t, err)
	assert.Equal(t, "REQ001", MapError(err).Code)
}
