package format

import (
	"bytes"
	"strings"
	"testing"
)

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	if err := (JSONFormatter{}).Write(&buf, map[string]int{"a": 1}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := buf.String(); got != "{\"a\":1}\n" {
		t.Fatalf("unexpected output %q", got)
	}

	buf.Reset()
	if err := (JSONFormatter{Indent: true}).Write(&buf, map[string]int{"a": 1}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := buf.String(); got != "{\n  \"a\": 1\n}\n" {
		t.Fatalf("unexpected indented output %q", got)
	}
}

func TestTableFormatter(t *testing.T) {
	var buf bytes.Buffer
	table := Table{
		Header: []string{"ID", "STATUS"},
		Rows: [][]string{
			{"WRE-001", "Backlog"},
			{"WRE-0002", "Done"},
		},
	}
	if err := (TableFormatter{}).Write(&buf, table); err != nil {
		t.Fatalf("write: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %q", len(lines), buf.String())
	}
	if lines[0] != "ID        STATUS" {
		t.Fatalf("unexpected header %q", lines[0])
	}
	if lines[1] != "WRE-001   Backlog" {
		t.Fatalf("unexpected row %q", lines[1])
	}

	if err := (TableFormatter{}).Write(&buf, "nope"); err == nil {
		t.Fatal("expected error for non-table payload")
	}
}
