package dataset

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/gradeval/internal/fieldpath"
	"github.com/abhisek/gradeval/internal/values"
)

const classroom = `
records:
  - id: 1
    name: Ann
    score: 6
    class: {name: A, room: R1}
  - id: 2
    name: Bob
    score: 7.5
    class: {name: A, room: R1}
  - id: 3
    name: Cid
    score: null
    class: {name: B}
`

func TestParseEnvelope(t *testing.T) {
	ds, err := Parse([]byte(classroom))
	require.NoError(t, err)

	assert.Len(t, ds.Records, 3)
	assert.Equal(t, map[string]values.Kind{
		"id":         values.KindInt,
		"name":       values.KindString,
		"score":      values.KindFloat,
		"class":      values.KindMap,
		"class.name": values.KindString,
		"class.room": values.KindString,
	}, ds.Kinds)
	assert.Equal(t, []string{"class", "class.name", "class.room", "id", "name", "score"}, ds.Fields())
}

func TestParseFormats(t *testing.T) {
	tests := []struct {
		name string
		data string
		want int
	}{
		{"yaml list", "- {id: 1}\n- {id: 2}\n", 2},
		{"json list", `[{"id": 1}, {"id": 2}, {"id": 3}]`, 3},
		{"json envelope", `{"records": [{"id": 1}]}`, 1},
		{"empty", "", 0},
		{"null entry", "- {id: 1}\n- null\n", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds, err := Parse([]byte(tt.data))
			require.NoError(t, err)
			assert.Len(t, ds.Records, tt.want)
		})
	}
}

func TestParseErrors(t *testing.T) {
	_, err := Parse([]byte("just a string"))
	assert.Error(t, err)

	_, err = Parse([]byte("- {id: [1"))
	assert.Error(t, err)

	_, err = Parse([]byte("- {id: 1}\n- {id: one}\n"))
	var conflict *ErrKindConflict
	require.True(t, errors.As(err, &conflict), "got %v", err)
	assert.Equal(t, "id", conflict.Field)
	assert.Equal(t, values.KindInt, conflict.First)
	assert.Equal(t, values.KindString, conflict.Other)
}

func TestResolverDeclaresExtraFields(t *testing.T) {
	ds, err := Parse([]byte(classroom))
	require.NoError(t, err)

	r := ds.Resolver(map[string]values.Kind{"result": values.KindString, "id": values.KindString})
	k, err := r.Kind(fieldpath.MustParse("result"))
	require.NoError(t, err)
	assert.Equal(t, values.KindString, k)

	k, err = r.Kind(fieldpath.MustParse("id"))
	require.NoError(t, err)
	assert.Equal(t, values.KindInt, k, "inferred kinds win over extras")

	v, err := r.Get(ds.Records[0], fieldpath.MustParse("class.room"))
	require.NoError(t, err)
	assert.Equal(t, "R1", v)

	_, err = r.Get(ds.Records[0], fieldpath.MustParse("missing"))
	var unknown *fieldpath.ErrUnknownField
	assert.True(t, errors.As(err, &unknown))
}

func TestWrite(t *testing.T) {
	ds, err := Parse([]byte("- {id: 1, result: Pass}\n"))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, ds.Write(&buf, "json"))
	var got []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "Pass", got[0]["result"])

	buf.Reset()
	require.NoError(t, ds.Write(&buf, "yaml"))
	assert.Equal(t, "- id: 1\n  result: Pass\n", buf.String())

	assert.Error(t, ds.Write(&buf, "csv"))
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "records.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"id": 1}]`), 0o644))

	ds, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, ds.Records, 1)

	_, err = Load(filepath.Join(dir, "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
