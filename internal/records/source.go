package records

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/xuri/excelize/v2"
	_ "modernc.org/sqlite" // pure go sqlite driver
)

// Source yields the header and raw rows of a tabular dataset.
type Source interface {
	Name() string
	Read(ctx context.Context) (header []string, rows [][]string, err error)
}

// SourceOptions selects and configures a Source.
type SourceOptions struct {
	// Delimiter for CSV. If 0, '\t' for .tsv files and ',' otherwise.
	Delimiter rune
	// Sheet for XLSX. Empty means the first sheet.
	Sheet string
	// Table for SQLite. Empty means "observations".
	Table string
}

// SourceForPath picks a source implementation by file extension.
func SourceForPath(path string, opt SourceOptions) (Source, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".tsv", ".txt":
		return &CSVSource{Path: path, Delimiter: opt.Delimiter}, nil
	case ".xlsx":
		return &XLSXSource{Path: path, Sheet: opt.Sheet}, nil
	case ".db", ".sqlite", ".sqlite3":
		return &SQLiteSource{Path: path, Table: opt.Table}, nil
	default:
		return nil, &IngestError{Source: filepath.Base(path), Err: fmt.Errorf("unsupported file type %q", filepath.Ext(path))}
	}
}

// CSVSource reads a delimited text file.
type CSVSource struct {
	Path      string
	Delimiter rune
}

func (s *CSVSource) Name() string { return filepath.Base(s.Path) }

func (s *CSVSource) Read(_ context.Context) ([]string, [][]string, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	delim := s.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(s.Path)
	}
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.Comma = delim

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, errors.New("empty file")
		}
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	var rows [][]string
	for {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, nil, fmt.Errorf("read row %d: %w", len(rows)+1, err)
		}
		rows = append(rows, rec)
	}
	return header, rows, nil
}

func sniffDelimiter(path string) rune {
	if strings.HasSuffix(strings.ToLower(path), ".tsv") {
		return '\t'
	}
	return ','
}

// XLSXSource reads one worksheet of an Excel workbook.
type XLSXSource struct {
	Path  string
	Sheet string
}

func (s *XLSXSource) Name() string {
	if s.Sheet != "" {
		return filepath.Base(s.Path) + "#" + s.Sheet
	}
	return filepath.Base(s.Path)
}

func (s *XLSXSource) Read(_ context.Context) ([]string, [][]string, error) {
	f, err := excelize.OpenFile(s.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, errors.New("workbook has no sheets")
	}
	sheet := sheets[0]
	if s.Sheet != "" {
		sheet = ""
		for _, name := range sheets {
			if strings.EqualFold(name, s.Sheet) {
				sheet = name
				break
			}
		}
		if sheet == "" {
			return nil, nil, fmt.Errorf("sheet %q not found (available: %s)", s.Sheet, strings.Join(sheets, ", "))
		}
	}
	all, err := f.GetRows(sheet)
	if err != nil {
		return nil, nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(all) == 0 {
		return nil, nil, fmt.Errorf("sheet %q is empty", sheet)
	}
	return all[0], all[1:], nil
}

// SQLiteSource reads every row of one table in a SQLite database.
type SQLiteSource struct {
	Path  string
	Table string
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func (s *SQLiteSource) table() string {
	if s.Table == "" {
		return "observations"
	}
	return s.Table
}

func (s *SQLiteSource) Name() string { return filepath.Base(s.Path) + "#" + s.table() }

func (s *SQLiteSource) Read(ctx context.Context) ([]string, [][]string, error) {
	table := s.table()
	if !identRe.MatchString(table) {
		return nil, nil, fmt.Errorf("invalid table name %q", table)
	}
	// sql.Open would create a missing database file
	if _, err := os.Stat(s.Path); err != nil {
		return nil, nil, fmt.Errorf("open sqlite: %w", err)
	}
	db, err := sql.Open("sqlite", s.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open sqlite: %w", err)
	}
	defer func() { _ = db.Close() }()

	rs, err := db.QueryContext(ctx, fmt.Sprintf(`SELECT * FROM "%s"`, table))
	if err != nil {
		return nil, nil, fmt.Errorf("select %s: %w", table, err)
	}
	defer func() { _ = rs.Close() }()
	header, err := rs.Columns()
	if err != nil {
		return nil, nil, fmt.Errorf("columns: %w", err)
	}
	var rows [][]string
	for rs.Next() {
		cells := make([]sql.NullString, len(header))
		ptrs := make([]any, len(header))
		for i := range cells {
			ptrs[i] = &cells[i]
		}
		if err := rs.Scan(ptrs...); err != nil {
			return nil, nil, fmt.Errorf("scan row %d: %w", len(rows)+1, err)
		}
		rec := make([]string, len(header))
		for i, c := range cells {
			if c.Valid {
				rec[i] = c.String
			}
		}
		rows = append(rows, rec)
	}
	if err := rs.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate %s: %w", table, err)
	}
	return header, rows, nil
}
