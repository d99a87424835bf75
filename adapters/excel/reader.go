package excel

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"ctsim/domain/trial"

	"github.com/xuri/excelize/v2"
)

// ReadTrials loads the trials table of an exported .xlsx or .csv file
func ReadTrials(path string) ([]trial.Result, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("export file not found: %s", path)
	}

	var rows [][]string
	var err error
	switch fileType(path) {
	case "csv":
		rows, err = readCSVRows(path)
	case "xlsx":
		rows, err = readWorkbookRows(path)
	default:
		return nil, fmt.Errorf("unsupported file type: %s", path)
	}
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: missing header row", path)
	}

	cols := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		cols[strings.TrimSpace(name)] = i
	}
	for _, name := range TrialColumns {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("%s: missing column %q", path, name)
		}
	}

	results := make([]trial.Result, 0, len(rows)-1)
	for line, row := range rows[1:] {
		r, err := parseTrialRow(row, cols)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, line+2, err)
		}
		results = append(results, r)
	}
	return results, nil
}

func readCSVRows(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	return rows, nil
}

func readWorkbookRows(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(SheetTrials, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read %s sheet: %w", SheetTrials, err)
	}
	return rows, nil
}

func parseTrialRow(row []string, cols map[string]int) (trial.Result, error) {
	cell := func(name string) string {
		if i := cols[name]; i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	var r trial.Result
	var err error
	if r.Index, err = strconv.Atoi(cell("trial")); err != nil {
		return r, fmt.Errorf("trial: %w", err)
	}
	if r.PValue, err = parseOptionalFloat(cell("p_value")); err != nil {
		return r, fmt.Errorf("p_value: %w", err)
	}
	if r.TestStatistic, err = parseOptionalFloat(cell("t_statistic")); err != nil {
		return r, fmt.Errorf("t_statistic: %w", err)
	}
	if r.EffectiveSampleSize, err = strconv.Atoi(cell("effective_sample_size")); err != nil {
		return r, fmt.Errorf("effective_sample_size: %w", err)
	}
	if r.ControlSampleSize, err = strconv.Atoi(cell("control_sample_size")); err != nil {
		return r, fmt.Errorf("control_sample_size: %w", err)
	}

	r.SurvivalCurve = trial.SurvivalCurve{}
	if raw := cell("survival_curve"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &r.SurvivalCurve); err != nil {
			return r, fmt.Errorf("survival_curve: %w", err)
		}
	}
	return r, nil
}

// parseOptionalFloat reads a blank cell as NaN
func parseOptionalFloat(s string) (float64, error) {
	if s == "" {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}
