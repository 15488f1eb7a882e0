// Package triples reads whitespace-separated subject predicate object
// files into rows of the T relation.
//
// Each non-blank line holds one triple. IRIs may be written with or
// without angle brackets, a trailing " ." is ignored, and lines starting
// with '#' are comments. Objects may contain spaces; everything after
// the predicate belongs to the object.
package triples

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/wbrown/janus-reasoner/datalog"
)

// Relation is the relation name triples are stored under
const Relation = "T"

// RDFType is the full rdf:type IRI
const RDFType = "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"

// Triple is one subject predicate object statement
type Triple struct {
	Subject   string
	Predicate string
	Object    string
}

// Row returns the triple as a row of Relation
func (t Triple) Row() datalog.Row {
	return datalog.Row{t.Subject, t.Predicate, t.Object}
}

func (t Triple) String() string {
	return t.Subject + " " + t.Predicate + " " + t.Object
}

// NormalizePredicate shortens rdf:type in any of its spellings to "type"
// and strips angle brackets from other IRIs
func NormalizePredicate(p string) string {
	p = trimIRI(p)
	if p == RDFType || p == "rdf:type" || p == "a" {
		return "type"
	}
	return p
}

func trimIRI(s string) string {
	if len(s) > 2 && s[0] == '<' && s[len(s)-1] == '>' {
		return s[1 : len(s)-1]
	}
	return s
}

// ParseLine parses a single line. ok is false for blank and comment
// lines.
func ParseLine(line string) (t Triple, ok bool, err error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return t, false, nil
	}
	line = strings.TrimSpace(strings.TrimSuffix(line, " ."))

	fields := strings.SplitN(line, " ", 3)
	if len(fields) < 3 {
		return t, false, fmt.Errorf("expected subject predicate object, got %q", line)
	}
	object := strings.TrimSpace(fields[2])
	if object == "" {
		return t, false, fmt.Errorf("missing object in %q", line)
	}
	return Triple{
		Subject:   trimIRI(fields[0]),
		Predicate: NormalizePredicate(fields[1]),
		Object:    trimIRI(object),
	}, true, nil
}

// Read calls fn for every triple in r. Reading stops at the first error
// from the input or from fn.
func Read(r io.Reader, fn func(Triple) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		t, ok, err := ParseLine(scanner.Text())
		if err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
		if !ok {
			continue
		}
		if err := fn(t); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading triples: %w", err)
	}
	return nil
}

// LoadFile reads the triples in path
func LoadFile(path string, fn func(Triple) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening triples: %w", err)
	}
	defer f.Close()

	if err := Read(f, fn); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// Collect reads every triple in path into a slice
func Collect(path string) ([]Triple, error) {
	var out []Triple
	err := LoadFile(path, func(t Triple) error {
		out = append(out, t)
		return nil
	})
	return out, err
}
