// Package export renders expenses and summaries as CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"expensetrack/internal/core"
	"expensetrack/internal/report"
)

var bom = []byte{0xEF, 0xBB, 0xBF}

// Separator is ';' so spreadsheets in comma-decimal locales open the files
// without an import dialog.
const Separator = ';'

var (
	ExpenseHeader = []string{"id", "date", "title", "amount", "category"}
	SummaryHeader = []string{"category", "count", "total"}
)

// WriteExpenses writes a UTF-8 BOM, a header and one row per expense.
func WriteExpenses(w io.Writer, expenses []core.Expense) error {
	if _, err := w.Write(bom); err != nil {
		return fmt.Errorf("error writing BOM: %w", err)
	}
	writer := csv.NewWriter(w)
	writer.Comma = Separator

	if err := writer.Write(ExpenseHeader); err != nil {
		return fmt.Errorf("error writing header: %w", err)
	}
	for _, e := range expenses {
		record := []string{
			strconv.FormatInt(e.ID, 10),
			e.Date,
			e.Title,
			e.Amount.String(),
			string(e.Category.OrOther()),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("error writing expense %d: %w", e.ID, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("error flushing writer: %w", err)
	}
	return nil
}

// WriteSummary writes one row per category followed by a Total row.
func WriteSummary(w io.Writer, s report.Summary) error {
	if _, err := w.Write(bom); err != nil {
		return fmt.Errorf("error writing BOM: %w", err)
	}
	writer := csv.NewWriter(w)
	writer.Comma = Separator

	if err := writer.Write(SummaryHeader); err != nil {
		return fmt.Errorf("error writing header: %w", err)
	}
	for _, g := range s.Categories {
		if err := writer.Write([]string{string(g.Category), strconv.Itoa(g.Count), g.Total.String()}); err != nil {
			return fmt.Errorf("error writing category %s: %w", g.Category, err)
		}
	}
	if err := writer.Write([]string{"Total", strconv.Itoa(s.Count), s.Total.String()}); err != nil {
		return fmt.Errorf("error writing total: %w", err)
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("error flushing writer: %w", err)
	}
	return nil
}

// Writer writes CSV files into a directory.
type Writer struct {
	outputDir string
}

func New(outputDir string) *Writer {
	return &Writer{outputDir: outputDir}
}

// WriteReport writes <name>-expenses.csv and <name>-summary.csv and returns
// their paths. Each file is replaced atomically.
func (w *Writer) WriteReport(name string, expenses []core.Expense, s report.Summary) ([]string, error) {
	if err := os.MkdirAll(w.outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	expensesPath := filepath.Join(w.outputDir, name+"-expenses.csv")
	if err := writeAtomic(expensesPath, func(f io.Writer) error { return WriteExpenses(f, expenses) }); err != nil {
		return nil, err
	}
	summaryPath := filepath.Join(w.outputDir, name+summarySuffix)
	if err := writeAtomic(summaryPath, func(f io.Writer) error { return WriteSummary(f, s) }); err != nil {
		return nil, err
	}
	return []string{expensesPath, summaryPath}, nil
}

const summarySuffix = "-summary.csv"

// Reports returns the names of the reports already in the output
// directory, sorted. A missing directory has none.
func (w *Writer) Reports() ([]string, error) {
	entries, err := os.ReadDir(w.outputDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	var names []string
	for _, e := range entries {
		if name, ok := strings.CutSuffix(e.Name(), summarySuffix); ok && !e.IsDir() && !strings.HasPrefix(name, ".") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func writeAtomic(path string, write func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("error creating %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("error writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("error closing %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("error replacing %s: %w", path, err)
	}
	return nil
}
