package storage

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"strconv"
)

// ExportJSON writes the run as indented JSON.
func ExportJSON(w io.Writer, run *Run) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(run)
}

// ExportJSONFile writes the run to path, or to stdout when path is "-".
func ExportJSONFile(path string, run *Run) error {
	if path == "-" {
		return ExportJSON(os.Stdout, run)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return ExportJSON(f, run)
}

// ExportCSV writes one row per trace entry: the iteration index (0 and 1
// are the seeds), the point and its error magnitude.
func ExportCSV(w io.Writer, run *Run) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"iteration", "real", "imag", "error"}); err != nil {
		return err
	}
	tr := run.Result.Trace
	for i, p := range tr.Trajectory {
		row := []string{
			strconv.Itoa(i),
			strconv.FormatFloat(p.Real, 'g', -1, 64),
			strconv.FormatFloat(p.Imag, 'g', -1, 64),
			"",
		}
		if i < len(tr.Errors) {
			row[3] = strconv.FormatFloat(tr.Errors[i], 'g', -1, 64)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func ExportCSVFile(path string, run *Run) error {
	if path == "-" {
		return ExportCSV(os.Stdout, run)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return ExportCSV(f, run)
}
