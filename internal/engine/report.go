package engine

import (
	"fmt"
	"strings"

	"github.com/abhisek/gradeval/internal/values"
)

// Buckets maps each classification label to the records carrying it.
// Labels keep the order in which they were first observed.
type Buckets[T any] struct {
	labels  []string
	records map[string][]T
}

func newBuckets[T any]() *Buckets[T] {
	return &Buckets[T]{records: make(map[string][]T)}
}

func (b *Buckets[T]) add(label string, rec T) {
	if _, ok := b.records[label]; !ok {
		b.labels = append(b.labels, label)
	}
	b.records[label] = append(b.records[label], rec)
}

// Labels returns the observed labels in first-seen order.
func (b *Buckets[T]) Labels() []string {
	if b == nil {
		return nil
	}
	return append([]string(nil), b.labels...)
}

// Get returns the records classified under label.
func (b *Buckets[T]) Get(label string) []T {
	if b == nil {
		return nil
	}
	return b.records[label]
}

// Len is the number of labels.
func (b *Buckets[T]) Len() int {
	if b == nil {
		return 0
	}
	return len(b.labels)
}

// Total is the number of bucketed records.
func (b *Buckets[T]) Total() int {
	if b == nil {
		return 0
	}
	n := 0
	for _, recs := range b.records {
		n += len(recs)
	}
	return n
}

// ReportRow is one bucket of a Report.
type ReportRow struct {
	Label   string
	Count   int
	Percent float64
}

// Report summarizes buckets as shares of the distinct record count.
type Report struct {
	Distinct int
	Rows     []ReportRow
}

func buildReport[T any](b *Buckets[T], distinct int) Report {
	r := Report{Distinct: distinct}
	for _, label := range b.Labels() {
		n := len(b.Get(label))
		row := ReportRow{Label: label, Count: n}
		if distinct > 0 {
			row.Percent = 100 * float64(n) / float64(distinct)
		}
		r.Rows = append(r.Rows, row)
	}
	return r
}

// Row returns the row for label.
func (r Report) Row(label string) (ReportRow, bool) {
	for _, row := range r.Rows {
		if row.Label == label {
			return row, true
		}
	}
	return ReportRow{}, false
}

// String renders the report as the classification result description.
func (r Report) String() string {
	var b strings.Builder
	b.WriteString("\n  Total\n")
	for _, row := range r.Rows {
		fmt.Fprintf(&b, "\n  %s:%d -> %s %%\n", row.Label, row.Count, values.FormatFloat(row.Percent))
	}
	return b.String()
}
