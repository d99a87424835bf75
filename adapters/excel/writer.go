package excel

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"ctsim/adapters/stats/survival"
	"ctsim/domain/run"
	"ctsim/domain/trial"
	"ctsim/internal"

	"github.com/xuri/excelize/v2"
)

// Sheet names of an exported workbook
const (
	SheetTrials   = "trials"
	SheetSurvival = "survival"
	SheetSummary  = "summary"
)

// TrialColumns is the header row of the trials table in both formats
var TrialColumns = []string{
	"trial",
	"p_value",
	"t_statistic",
	"effective_sample_size",
	"control_sample_size",
	"survival_points",
	"final_survival",
	"median_survival_time",
	"survival_curve",
}

// Writer exports a batch to .xlsx or .csv, chosen by file extension
type Writer struct {
	alpha  float64
	logger *internal.Logger
}

// NewWriter creates a writer; alpha is used for the workbook's summary sheet
func NewWriter(alpha float64, logger *internal.Logger) *Writer {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Writer{alpha: alpha, logger: logger.With("component", "excel_writer")}
}

// Export writes the batch to path
func (w *Writer) Export(ctx context.Context, manifest *run.Manifest, batch *trial.Batch, path string) error {
	if batch == nil {
		return fmt.Errorf("export: nil batch")
	}
	start := time.Now()

	var err error
	switch fileType(path) {
	case "csv":
		err = w.writeCSV(ctx, batch, path)
	case "xlsx":
		err = w.writeWorkbook(ctx, manifest, batch, path)
	default:
		return fmt.Errorf("unsupported export file type: %s", filepath.Ext(path))
	}
	if err != nil {
		return err
	}

	w.logger.Debug("[ExcelWriter] wrote %d trials to %s in %v", batch.Len(), path, time.Since(start))
	return nil
}

func fileType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return "csv"
	case ".xlsx":
		return "xlsx"
	default:
		return ""
	}
}

func (w *Writer) writeCSV(ctx context.Context, batch *trial.Batch, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write(TrialColumns); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for i, r := range batch.Results {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		row, err := trialRow(r)
		if err != nil {
			return err
		}
		record := make([]string, len(row))
		for j, v := range row {
			record[j] = formatCell(v)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV row %d: %w", i, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	return f.Close()
}

func (w *Writer) writeWorkbook(ctx context.Context, manifest *run.Manifest, batch *trial.Batch, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetTrials); err != nil {
		return fmt.Errorf("failed to name trials sheet: %w", err)
	}
	if err := w.writeTrialsSheet(ctx, f, batch); err != nil {
		return err
	}
	if err := w.writeSurvivalSheet(ctx, f, batch); err != nil {
		return err
	}
	if err := w.writeSummarySheet(f, manifest, batch); err != nil {
		return err
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

func (w *Writer) writeTrialsSheet(ctx context.Context, f *excelize.File, batch *trial.Batch) error {
	sw, err := f.NewStreamWriter(SheetTrials)
	if err != nil {
		return fmt.Errorf("failed to open trials sheet: %w", err)
	}
	if err := sw.SetRow("A1", stringsToRow(TrialColumns)); err != nil {
		return err
	}
	for i, r := range batch.Results {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		row, err := trialRow(r)
		if err != nil {
			return err
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("failed to write trial %d: %w", r.Index, err)
		}
	}
	return sw.Flush()
}

// writeSurvivalSheet writes every curve in long format, one row per point.
func (w *Writer) writeSurvivalSheet(ctx context.Context, f *excelize.File, batch *trial.Batch) error {
	if _, err := f.NewSheet(SheetSurvival); err != nil {
		return fmt.Errorf("failed to create survival sheet: %w", err)
	}
	sw, err := f.NewStreamWriter(SheetSurvival)
	if err != nil {
		return fmt.Errorf("failed to open survival sheet: %w", err)
	}
	if err := sw.SetRow("A1", []interface{}{"trial", "time", "survival"}); err != nil {
		return err
	}
	row := 2
	for i, r := range batch.Results {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		for _, pt := range r.SurvivalCurve {
			cell, _ := excelize.CoordinatesToCellName(1, row)
			if err := sw.SetRow(cell, []interface{}{r.Index, pt.Time, pt.Probability}); err != nil {
				return err
			}
			row++
		}
	}
	return sw.Flush()
}

func (w *Writer) writeSummarySheet(f *excelize.File, manifest *run.Manifest, batch *trial.Batch) error {
	if _, err := f.NewSheet(SheetSummary); err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}

	s := trial.Summarize(batch, w.alpha)
	rows := [][]interface{}{
		{"metric", "value"},
	}
	if manifest != nil {
		rows = append(rows,
			[]interface{}{"run_id", manifest.RunID.String()},
			[]interface{}{"seed", strconv.FormatInt(manifest.Seed, 10)},
			[]interface{}{"test", manifest.Test},
			[]interface{}{"estimator", manifest.Estimator},
			[]interface{}{"fingerprint", manifest.Fingerprint.String()},
		)
	}
	rows = append(rows,
		[]interface{}{"sample_size", batch.Config.SampleSize},
		[]interface{}{"effect_size", batch.Config.EffectSize},
		[]interface{}{"dropout_rate", batch.Config.DropoutRate},
		[]interface{}{"trials", s.Trials},
		[]interface{}{"alpha", s.Alpha},
		[]interface{}{"undefined_p_values", s.UndefinedPValues},
		[]interface{}{"rejections", s.Rejections},
		[]interface{}{"empirical_power", numberOrBlank(s.EmpiricalPower.Float())},
		[]interface{}{"power_among_defined", numberOrBlank(s.PowerAmongDefined.Float())},
		[]interface{}{"mean_effective_sample_size", numberOrBlank(s.MeanEffectiveSample.Float())},
		[]interface{}{"median_p_value", numberOrBlank(s.MedianPValue.Float())},
		[]interface{}{"mean_final_survival", numberOrBlank(s.MeanFinalSurvival.Float())},
	)

	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(SheetSummary, cell, &row); err != nil {
			return fmt.Errorf("failed to write summary row: %w", err)
		}
	}
	return nil
}

// trialRow renders one result in TrialColumns order. Undefined values are blank.
func trialRow(r trial.Result) ([]interface{}, error) {
	curve, err := json.Marshal(r.SurvivalCurve)
	if err != nil {
		return nil, fmt.Errorf("failed to encode survival curve of trial %d: %w", r.Index, err)
	}
	return []interface{}{
		r.Index,
		numberOrBlank(r.PValue),
		numberOrBlank(r.TestStatistic),
		r.EffectiveSampleSize,
		r.ControlSampleSize,
		len(r.SurvivalCurve),
		numberOrBlank(r.SurvivalCurve.Final()),
		numberOrBlank(survival.MedianSurvivalTime(r.SurvivalCurve)),
		string(curve),
	}, nil
}

func numberOrBlank(v float64) interface{} {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return v
}

func stringsToRow(values []string) []interface{} {
	row := make([]interface{}, len(values))
	for i, v := range values {
		row[i] = v
	}
	return row
}

func formatCell(v interface{}) string {
	switch x := v.(type) {
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case int:
		return strconv.Itoa(x)
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}
