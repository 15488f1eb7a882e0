package triples

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wbrown/janus-reasoner/datalog"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		line string
		want Triple
		ok   bool
	}{
		{"alice knows bob", Triple{"alice", "knows", "bob"}, true},
		{"<http://ex.org/a> <http://www.w3.org/1999/02/22-rdf-syntax-ns#type> <http://ex.org/C> .",
			Triple{"http://ex.org/a", "type", "http://ex.org/C"}, true},
		{"alice rdf:type Person", Triple{"alice", "type", "Person"}, true},
		{"alice a Person .", Triple{"alice", "type", "Person"}, true},
		{"alice label \"Alice Smith\"", Triple{"alice", "label", "\"Alice Smith\""}, true},
		{"   ", Triple{}, false},
		{"# comment", Triple{}, false},
	}

	for _, tt := range tests {
		got, ok, err := ParseLine(tt.line)
		require.NoError(t, err, tt.line)
		assert.Equal(t, tt.ok, ok, tt.line)
		assert.Equal(t, tt.want, got, tt.line)
	}
}

func TestParseLineErrors(t *testing.T) {
	for _, line := range []string{"alice knows", "lonely"} {
		_, _, err := ParseLine(line)
		assert.Error(t, err, line)
	}
}

func TestRead(t *testing.T) {
	input := `# tbox
Student subClassOf Person

alice type Student .
alice advisor bob
`
	var got []datalog.Row
	err := Read(strings.NewReader(input), func(tr Triple) error {
		got = append(got, tr.Row())
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []datalog.Row{
		{"Student", "subClassOf", "Person"},
		{"alice", "type", "Student"},
		{"alice", "advisor", "bob"},
	}, got)
}

func TestReadReportsLine(t *testing.T) {
	err := Read(strings.NewReader("a b c\nbroken\n"), func(Triple) error { return nil })
	assert.ErrorContains(t, err, "line 2")

	stop := errors.New("stop")
	count := 0
	err = Read(strings.NewReader("a b c\nd e f\n"), func(Triple) error {
		count++
		return stop
	})
	assert.True(t, errors.Is(err, stop))
	assert.Equal(t, 1, count)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "abox.nt")
	require.NoError(t, os.WriteFile(path, []byte("a parentOf b\nb parentOf c\n"), 0o644))

	got, err := Collect(path)
	require.NoError(t, err)
	assert.Equal(t, []Triple{{"a", "parentOf", "b"}, {"b", "parentOf", "c"}}, got)

	_, err = Collect(filepath.Join(t.TempDir(), "missing.nt"))
	assert.ErrorContains(t, err, "opening triples")
}
