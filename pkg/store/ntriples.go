package store

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"
)

// ParseNTriples reads N-Triples from r. Blank lines and comment lines are
// skipped. Errors report the 1-based line number.
func ParseNTriples(r io.Reader) ([]Triple, error) {
	var triples []Triple

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		triple, err := parseNTriplesLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNumber, err)
		}
		triples = append(triples, triple)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading n-triples: %w", err)
	}

	return triples, nil
}

func parseNTriplesLine(line string) (Triple, error) {
	if !strings.HasSuffix(line, ".") {
		return Triple{}, fmt.Errorf("missing terminating '.'")
	}
	line = strings.TrimSpace(strings.TrimSuffix(line, "."))

	var terms []Term
	rest := line
	for i := 0; i < 3; i++ {
		rest = strings.TrimLeft(rest, " \t")
		token, remainder, err := nextTermToken(rest)
		if err != nil {
			return Triple{}, err
		}
		term, err := ParseTerm(token)
		if err != nil {
			return Triple{}, err
		}
		terms = append(terms, term)
		rest = remainder
	}
	if strings.TrimSpace(rest) != "" {
		return Triple{}, fmt.Errorf("unexpected trailing content %q", strings.TrimSpace(rest))
	}

	triple := NewTriple(terms[0], terms[1], terms[2])
	if !triple.IsValid() {
		return Triple{}, fmt.Errorf("invalid triple %s", triple)
	}
	return triple, nil
}

// nextTermToken splits the first N-Triples term off s.
func nextTermToken(s string) (string, string, error) {
	if s == "" {
		return "", "", fmt.Errorf("missing term")
	}

	switch s[0] {
	case '<':
		end := strings.IndexByte(s, '>')
		if end < 0 {
			return "", "", fmt.Errorf("unterminated IRI")
		}
		return s[:end+1], s[end+1:], nil
	case '"':
		end := closingQuote(s)
		if end < 0 {
			return "", "", fmt.Errorf("unterminated literal")
		}
		cursor := end + 1
		switch {
		case strings.HasPrefix(s[cursor:], "^^<"):
			closing := strings.IndexByte(s[cursor:], '>')
			if closing < 0 {
				return "", "", fmt.Errorf("unterminated datatype IRI")
			}
			cursor += closing + 1
		case strings.HasPrefix(s[cursor:], "@"):
			for cursor < len(s) && s[cursor] != ' ' && s[cursor] != '\t' {
				cursor++
			}
		}
		return s[:cursor], s[cursor:], nil
	default:
		end := strings.IndexAny(s, " \t")
		if end < 0 {
			return s, "", nil
		}
		return s[:end], s[end:], nil
	}
}

// WriteNTriples writes triples to w in N-Triples format, sorted for stable
// output.
func WriteNTriples(w io.Writer, triples []Triple) error {
	lines := make([]string, 0, len(triples))
	for _, triple := range triples {
		lines = append(lines, triple.NTriples())
	}
	sort.Strings(lines)

	for _, line := range lines {
		if _, err := io.WriteString(w, line+"\n"); err != nil {
			return fmt.Errorf("writing n-triples: %w", err)
		}
	}
	return nil
}
