// Package modifier rewrites the variable block of text-based solver and
// mesher input files.
//
// A variable block is delimited by a line containing {comment}_* and a line
// containing {comment}**, e.g. "#_*" / "#**" for MOOSE input files or
// "//_*" / "//**" for gmsh .geo files. Every "name = value" line inside the
// block is a sweepable variable.
package modifier

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/Digital-Validation-Laboratory/mooseherder/internal/config"
)

// ErrVarKeyMismatch is returned by UpdateVars when the new variables do not
// have exactly the keys found in the input file.
var ErrVarKeyMismatch = errors.New("variable keys do not match those found in the input file")

// InputModifier holds a parsed input template and the current values of its
// variables. It is not safe for concurrent use.
type InputModifier struct {
	inputFile   string
	commentChar string
	endChar     string

	lines    []string
	varStart int
	varEnd   int
	keys     []string
	vars     config.Vars
}

// New reads inputFile and parses its variable block. endChar is the line
// terminator used by the file's language, e.g. ";" for gmsh, or empty.
func New(inputFile, commentChar, endChar string) (*InputModifier, error) {
	if commentChar == "" {
		commentChar = config.DefaultCommentChar
	}
	f, err := os.Open(inputFile)
	if err != nil {
		return nil, fmt.Errorf("open input file: %w", err)
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read input file %s: %w", inputFile, err)
	}

	m := &InputModifier{
		inputFile:   inputFile,
		commentChar: commentChar,
		endChar:     endChar,
		lines:       lines,
		vars:        config.Vars{},
	}
	m.findVarBlock()
	m.readVars()
	return m, nil
}

func (m *InputModifier) findVarBlock() {
	m.varStart, m.varEnd = -1, -1
	start := m.commentChar + "_*"
	end := m.commentChar + "**"
	for i, line := range m.lines {
		if strings.Contains(line, start) {
			m.varStart = i
			continue
		}
		if m.varStart >= 0 && strings.Contains(line, end) {
			m.varEnd = i
			return
		}
	}
	m.varStart = -1
}

func (m *InputModifier) readVars() {
	if m.varStart < 0 {
		return
	}
	for _, line := range m.lines[m.varStart+1 : m.varEnd] {
		name, value, ok := m.parseVarLine(line)
		if !ok {
			continue
		}
		if _, dup := m.vars[name]; !dup {
			m.keys = append(m.keys, name)
		}
		m.vars[name] = value
	}
}

// parseVarLine extracts "name = value" from a line, ignoring whitespace, the
// end character and trailing comments.
func (m *InputModifier) parseVarLine(line string) (string, any, bool) {
	s := strings.ReplaceAll(strings.TrimSpace(line), " ", "")
	if m.endChar != "" {
		s = strings.ReplaceAll(s, m.endChar, "")
	}
	s, _, _ = strings.Cut(s, m.commentChar)
	name, raw, found := strings.Cut(s, "=")
	if !found || name == "" {
		return "", nil, false
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return name, f, true
	}
	return name, raw, true
}

// InputFile returns the path of the template this modifier was read from.
func (m *InputModifier) InputFile() string {
	return m.inputFile
}

// VarKeys returns the variable names in the order they appear in the file.
func (m *InputModifier) VarKeys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Vars returns a copy of the current variable values.
func (m *InputModifier) Vars() config.Vars {
	out := make(config.Vars, len(m.vars))
	for k, v := range m.vars {
		out[k] = v
	}
	return out
}

// UpdateVars replaces the variable values. The key set must equal the one
// found in the input file.
func (m *InputModifier) UpdateVars(vars config.Vars) error {
	if len(vars) != len(m.vars) {
		return fmt.Errorf("%w: got %v, want %v", ErrVarKeyMismatch, sortedKeys(vars), sortedKeys(m.vars))
	}
	for k := range vars {
		if _, ok := m.vars[k]; !ok {
			return fmt.Errorf("%w: unknown variable %q", ErrVarKeyMismatch, k)
		}
	}
	next := make(config.Vars, len(vars))
	for k, v := range vars {
		next[k] = v
	}
	m.vars = next
	return nil
}

// WriteFile writes the template with the current variable values to path.
func (m *InputModifier) WriteFile(path string) error {
	var b strings.Builder
	for i, line := range m.lines {
		if i > m.varStart && i < m.varEnd {
			if name, _, ok := m.parseVarLine(line); ok {
				fmt.Fprintf(&b, "%s = %s%s\n", name, formatValue(m.vars[name]), m.endChar)
				continue
			}
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write modified input: %w", err)
	}
	return nil
}

func formatValue(v any) string {
	switch x := v.(type) {
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	default:
		return fmt.Sprint(x)
	}
}

func sortedKeys(v config.Vars) []string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
