package analysis

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/parquet-go/parquet-go"
	"github.com/xuri/excelize/v2"
)

// requiredColumns are the input columns the pipeline consumes, in the order
// they are reported when missing.
var requiredColumns = []string{"target_dataset_id", "article_id", "aggregated_text", "type"}

// Dataset is the fully loaded input table. Columns holds the normalized
// header names actually present in the file, whether or not they are ones
// we need; validation happens separately so a load error and a schema error
// stay distinguishable.
type Dataset struct {
	Columns []string
	Rows    []Row
}

// MissingColumns lists the required columns absent from the file.
func (d *Dataset) MissingColumns() []string {
	present := make(map[string]bool, len(d.Columns))
	for _, c := range d.Columns {
		present[c] = true
	}
	var missing []string
	for _, c := range requiredColumns {
		if !present[c] {
			missing = append(missing, c)
		}
	}
	return missing
}

// ReadDataset loads a tabular input file, dispatching on extension.
// Supported formats: .csv/.tsv, .xlsx, .parquet.
func ReadDataset(path string) (*Dataset, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return readDelimited(path, ',')
	case ".tsv":
		return readDelimited(path, '\t')
	case ".xlsx":
		return readExcel(path)
	case ".parquet":
		return readParquet(path)
	default:
		return nil, fmt.Errorf("unsupported input format: %s", path)
	}
}

func readDelimited(path string, comma rune) (*Dataset, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(bytes.NewReader(content))
	reader.Comma = comma
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("empty input file: %s", path)
	}
	return tableFromRecords(records[0], records[1:]), nil
}

func readExcel(path string) (*Dataset, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	records, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("empty input file: %s", path)
	}
	return tableFromRecords(records[0], records[1:]), nil
}

// parquetRow mirrors the original dataset's parquet schema; all four
// columns are nullable strings as written by pandas.
type parquetRow struct {
	TargetDatasetID string `parquet:"target_dataset_id,optional"`
	ArticleID       string `parquet:"article_id,optional"`
	AggregatedText  string `parquet:"aggregated_text,optional"`
	Type            string `parquet:"type,optional"`
}

func readParquet(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	pf, err := parquet.OpenFile(f, st.Size())
	if err != nil {
		return nil, fmt.Errorf("open parquet: %w", err)
	}

	ds := &Dataset{}
	for _, field := range pf.Schema().Fields() {
		ds.Columns = append(ds.Columns, normalizeColumnName(field.Name()))
	}
	// Decoding into parquetRow requires all four columns; leave the rows
	// empty so validation can report the schema gap instead.
	if len(ds.MissingColumns()) > 0 {
		return ds, nil
	}

	records, err := parquet.Read[parquetRow](f, st.Size())
	if err != nil {
		return nil, fmt.Errorf("read parquet: %w", err)
	}
	ds.Rows = make([]Row, 0, len(records))
	for i, rec := range records {
		ds.Rows = append(ds.Rows, Row{
			Index:           i,
			TargetDatasetID: rec.TargetDatasetID,
			ArticleID:       rec.ArticleID,
			AggregatedText:  rec.AggregatedText,
			Type:            rec.Type,
		})
	}
	return ds, nil
}

func tableFromRecords(header []string, records [][]string) *Dataset {
	columns := make([]string, len(header))
	index := make(map[string]int, len(header))
	for i, h := range header {
		columns[i] = normalizeColumnName(h)
		index[columns[i]] = i
	}

	cell := func(rec []string, col string) string {
		i, ok := index[col]
		if !ok || i >= len(rec) {
			return ""
		}
		return rec[i]
	}

	rows := make([]Row, 0, len(records))
	for i, rec := range records {
		rows = append(rows, Row{
			Index:           i,
			TargetDatasetID: cell(rec, "target_dataset_id"),
			ArticleID:       cell(rec, "article_id"),
			AggregatedText:  cell(rec, "aggregated_text"),
			Type:            cell(rec, "type"),
		})
	}
	return &Dataset{Columns: columns, Rows: rows}
}

func normalizeColumnName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
