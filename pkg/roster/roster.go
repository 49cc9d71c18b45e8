// Package roster loads staff records from delimited text.
//
// Each row has the form
//
//	profession,name[,allowed_shifts][,forbidden_shifts]
//
// where the shift columns hold ";"-separated codes M, D and N. The header
// row decides how a single trailing column is read: it means forbidden
// shifts only when the header names a forbidden column and no allowed one;
// otherwise it means allowed shifts. With four columns the third lists
// allowed and the fourth forbidden shifts.
package roster

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/arnavshah/rota-matcher/pkg/models"
)

// ErrEmptyInput is returned when there is no roster text at all.
var ErrEmptyInput = errors.New("roster input is empty")

// Format describes the columns announced by the header row.
type Format struct {
	HasAllowedColumn   bool
	HasForbiddenColumn bool
	ColumnCount        int
}

// Result is the outcome of an import. Rows that could not be used are
// reported as warnings; they do not fail the import.
type Result struct {
	Format   Format
	People   []models.Person
	Warnings []string
	Skipped  int
}

// ParseHeader inspects the header row.
func ParseHeader(fields []string) Format {
	header := strings.ToLower(strings.Join(fields, ","))
	return Format{
		HasForbiddenColumn: strings.Contains(header, "forbidden") || strings.Contains(header, "запрещённые"),
		HasAllowedColumn:   strings.Contains(header, "allowed") || strings.Contains(header, "разрешённые"),
		ColumnCount:        len(fields),
	}
}

// Import reads a roster. People keep the row order of the input.
func Import(r io.Reader) (*Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading roster: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyInput
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading roster header: %w", err)
	}

	res := &Result{Format: ParseHeader(header)}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			res.skip("%v", err)
			continue
		}
		line, _ := reader.FieldPos(0)
		res.addRow(line, record)
	}
	return res, nil
}

func (res *Result) skip(format string, args ...any) {
	res.Warnings = append(res.Warnings, fmt.Sprintf(format, args...))
	res.Skipped++
}

func (res *Result) addRow(line int, record []string) {
	for i := range record {
		record[i] = strings.TrimSpace(record[i])
	}
	if len(record) == 1 && record[0] == "" {
		return
	}
	if len(record) < 2 {
		res.skip("line %d: expected at least profession and name", line)
		return
	}

	prof, err := models.ParseProfession(record[0])
	if err != nil {
		res.skip("line %d: unknown profession %q", line, record[0])
		return
	}

	var col3, col4 string
	if len(record) > 2 {
		col3 = record[2]
	}
	if len(record) > 3 && res.Format.ColumnCount >= 4 {
		col4 = record[3]
	}

	p := models.Person{
		ID:         fmt.Sprintf("%s-%d", prof, line),
		Name:       record[1],
		Profession: prof,
	}

	switch {
	case res.Format.ColumnCount >= 4:
		p.Allowed = res.shifts(line, col3)
		p.Forbidden = res.shifts(line, col4)
	case res.Format.ColumnCount == 3:
		if res.Format.HasForbiddenColumn && !res.Format.HasAllowedColumn {
			p.Forbidden = res.shifts(line, col3)
		} else {
			p.Allowed = res.shifts(line, col3)
		}
	}

	res.People = append(res.People, p)
}

func (res *Result) shifts(line int, list string) models.ShiftSet {
	set, unknown := models.ParseShiftCodes(list)
	for _, code := range unknown {
		res.Warnings = append(res.Warnings, fmt.Sprintf("line %d: ignoring unknown shift code %q", line, code))
	}
	return set
}

// Write renders people back into the four-column roster format.
func Write(w io.Writer, people []models.Person) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"profession", "name", "allowed_shifts", "forbidden_shifts"}); err != nil {
		return err
	}
	for _, p := range people {
		if err := writer.Write([]string{p.Profession.String(), p.Name, p.Allowed.Codes(), p.Forbidden.Codes()}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
