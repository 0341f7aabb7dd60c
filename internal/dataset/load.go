package dataset

import (
	"io"
	"os"
	"path/filepath"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"clinviz/internal/errors"
)

// Values treated as missing when parsing input files.
var missingValues = []string{"", "NA", "N/A", "NaN", "nan", "null", "-"}

// LoadCSV reads a CSV dataset from disk.
func LoadCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewStorageError("failed to open dataset file", err).
			WithContext("path", path)
	}
	defer f.Close()

	return LoadCSVReader(datasetName(path), f)
}

// LoadCSVReader reads a CSV dataset from a reader. The first row is the
// header.
func LoadCSVReader(name string, r io.Reader) (*Table, error) {
	df := dataframe.ReadCSV(r,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(true),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(missingValues),
	)
	if df.Err != nil {
		return nil, errors.NewParsingError("failed to parse CSV dataset", df.Err).
			WithContext("dataset", name)
	}
	return NewTable(name, df)
}

// LoadRecords builds a table from in-memory records, first row as header.
// Used by the XLSX loader and by tests.
func LoadRecords(name string, records [][]string) (*Table, error) {
	if len(records) < 1 {
		return nil, errors.NewValidationError("dataset has no header row")
	}
	df := dataframe.LoadRecords(records,
		dataframe.DetectTypes(true),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(missingValues),
	)
	if df.Err != nil {
		return nil, errors.NewParsingError("failed to load dataset records", df.Err).
			WithContext("dataset", name)
	}
	return NewTable(name, df)
}

// Load dispatches on extension: .xlsx via the spreadsheet loader (first
// detected sheet), anything else as CSV.
func Load(path string) (*Table, error) {
	switch filepath.Ext(path) {
	case ".xlsx", ".xlsm":
		return LoadXLSX(path, "")
	default:
		return LoadCSV(path)
	}
}

func datasetName(path string) string {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	return base[:len(base)-len(ext)]
}
