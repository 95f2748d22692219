package feed

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"datafeeder/internal/domain"
)

// sniffLines is how many lines of a feed are inspected to detect the delimiter.
const sniffLines = 10

var delimiterCandidates = []rune{',', ';', '\t', '|'}

// Row maps header field names to the values of one feed line.
type Row map[string]string

// Get returns the value of a field, or "" when the line did not have it.
func (r Row) Get(field string) string {
	return r[field]
}

// First returns the first non-empty value among fields.
func (r Row) First(fields ...string) string {
	for _, f := range fields {
		if v := r[f]; v != "" {
			return v
		}
	}
	return ""
}

// SniffDelimiter detects the field separator from the first lines of a feed.
// A candidate qualifies when every sampled record contains it, outside quotes,
// the same number of times. The highest count wins.
func SniffDelimiter(lines []string) (rune, error) {
	if len(lines) > sniffLines {
		lines = lines[:sniffLines]
	}
	records := sampleRecords(strings.Join(lines, "\n"))
	if len(records) == 0 {
		return 0, &domain.DecodeError{Reason: "could not determine delimiter: empty sample"}
	}

	var best rune
	bestCount := 0
	for _, candidate := range delimiterCandidates {
		count := consistentCount(records, candidate)
		if count > bestCount {
			best, bestCount = candidate, count
		}
	}

	if bestCount == 0 {
		return 0, &domain.DecodeError{Reason: "could not determine delimiter"}
	}
	return best, nil
}

// sampleRecords splits text into records on newlines outside quotes. A trailing
// record cut off inside a quoted field is dropped.
func sampleRecords(text string) []string {
	var records []string
	var sb strings.Builder
	inQuotes := false

	for _, r := range text {
		switch {
		case r == '"':
			inQuotes = !inQuotes
			sb.WriteRune(r)
		case r == '\n' && !inQuotes:
			records = appendRecord(records, sb.String())
			sb.Reset()
		default:
			sb.WriteRune(r)
		}
	}
	if !inQuotes {
		records = appendRecord(records, sb.String())
	}
	return records
}

func appendRecord(records []string, record string) []string {
	record = strings.TrimRight(record, "\r")
	if strings.TrimSpace(record) == "" {
		return records
	}
	return append(records, record)
}

func consistentCount(records []string, delimiter rune) int {
	expected := -1
	for _, record := range records {
		n := countOutsideQuotes(record, delimiter)
		if n == 0 {
			return 0
		}
		if expected >= 0 && n != expected {
			return 0
		}
		expected = n
	}
	return expected
}

func countOutsideQuotes(record string, delimiter rune) int {
	n := 0
	inQuotes := false
	for _, r := range record {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case r == delimiter && !inQuotes:
			n++
		}
	}
	return n
}

// Decoder yields one Row per feed line, keyed by the header line.
type Decoder struct {
	reader *csv.Reader
	header []string
	line   int
}

// NewDecoder reads the header of lines. A zero delimiter is sniffed.
func NewDecoder(lines []string, delimiter rune) (*Decoder, error) {
	if delimiter == 0 {
		d, err := SniffDelimiter(lines)
		if err != nil {
			return nil, err
		}
		delimiter = d
	}

	reader := csv.NewReader(strings.NewReader(strings.Join(lines, "\n")))
	reader.Comma = delimiter
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	dec := &Decoder{reader: reader}

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return dec, nil
	}
	if err != nil {
		return nil, &domain.DecodeError{Reason: "read header", Err: err}
	}
	dec.header = header
	dec.line = 1

	return dec, nil
}

func (d *Decoder) Header() []string {
	return d.header
}

// Next returns the next row, or io.EOF once the feed is exhausted.
func (d *Decoder) Next() (Row, error) {
	if d.header == nil {
		return nil, io.EOF
	}

	record, err := d.reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, io.EOF
	}
	if err != nil {
		return nil, &domain.DecodeError{Reason: fmt.Sprintf("read line %d", d.line+1), Err: err}
	}
	d.line++

	row := make(Row, len(d.header))
	for i, field := range d.header {
		if i >= len(record) {
			break
		}
		row[field] = record[i]
	}
	return row, nil
}

// ReadAll drains the decoder.
func (d *Decoder) ReadAll() ([]Row, error) {
	var rows []Row
	for {
		row, err := d.Next()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
}
