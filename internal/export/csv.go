// Package export renders entity lists as spreadsheet-friendly CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/sandeepkv93/siteops-service/internal/domain"
)

type Column[T any] struct {
	Header string
	Value  func(T) string
}

// Write emits a header row followed by one row per record.
func Write[T any](w io.Writer, columns []Column[T], rows []T) error {
	cw := csv.NewWriter(w)
	header := make([]string, len(columns))
	for i, c := range columns {
		header[i] = c.Header
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	record := make([]string, len(columns))
	for _, row := range rows {
		for i, c := range columns {
			record[i] = sanitize(c.Value(row))
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// sanitize neutralises cells a spreadsheet would evaluate as a formula.
func sanitize(v string) string {
	if v == "" {
		return v
	}
	switch v[0] {
	case '=', '+', '-', '@', '\t', '\r':
		if _, err := strconv.ParseFloat(v, 64); err == nil {
			return v
		}
		return "'" + v
	}
	return v
}

// FileName builds the download name, e.g. attendance-2026-03-07.csv.
func FileName(resource string, at time.Time) string {
	return fmt.Sprintf("%s-%s.csv", strings.ReplaceAll(resource, "_", "-"), at.UTC().Format(domain.DateLayout))
}

func money(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }

func num(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func id(v uint) string { return strconv.FormatUint(uint64(v), 10) }

func optID(v *uint) string {
	if v == nil {
		return ""
	}
	return id(*v)
}

func optDate(d *domain.Date) string {
	if d == nil {
		return ""
	}
	return d.String()
}

func clock(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format("15:04")
}

func workerName(w *domain.Worker) string {
	if w == nil {
		return ""
	}
	return w.Name
}

func siteName(s *domain.Site) string {
	if s == nil {
		return ""
	}
	return s.Name
}
