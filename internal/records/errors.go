package records

import (
	"fmt"
	"strings"
)

// IngestError reports an unreadable or malformed source. It aborts a run.
type IngestError struct {
	Source string
	// Row is the 1-based data row (header excluded); 0 when not row specific.
	Row    int
	Column string
	Err    error
}

func (e *IngestError) Error() string {
	var b strings.Builder
	b.WriteString("ingest")
	if e.Source != "" {
		b.WriteString(" ")
		b.WriteString(e.Source)
	}
	if e.Row > 0 {
		fmt.Fprintf(&b, " row %d", e.Row)
	}
	if e.Column != "" {
		fmt.Fprintf(&b, " column %q", e.Column)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *IngestError) Unwrap() error { return e.Err }

// SchemaError reports a referenced column or metric that does not exist.
// It is fatal to one pipeline, not to the whole run.
type SchemaError struct {
	// Kind is "column" or "metric".
	Kind  string
	Name  string
	Known []string
}

func (e *SchemaError) Error() string {
	kind := e.Kind
	if kind == "" {
		kind = "column"
	}
	if len(e.Known) == 0 {
		return fmt.Sprintf("unknown %s %q", kind, e.Name)
	}
	return fmt.Sprintf("unknown %s %q (available: %s)", kind, e.Name, strings.Join(e.Known, ", "))
}

func unknownColumn(name string, known []string) *SchemaError {
	return &SchemaError{Kind: "column", Name: name, Known: append([]string(nil), known...)}
}
