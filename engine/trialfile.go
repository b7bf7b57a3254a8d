package engine

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"
)

var trialTableHeader = []string{"trial", "filename", "condition", "fix_change", "isi_ms"}

func WriteTrialTable(w io.Writer, plan *Plan) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(trialTableHeader); err != nil {
		return err
	}
	for i, t := range plan.Trials {
		err := cw.Write([]string{
			strconv.Itoa(i),
			t.Filename,
			t.Condition.String(),
			strconv.FormatBool(plan.FixChange(i)),
			strconv.FormatInt(plan.ISIs[i].Milliseconds(), 10),
		})
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadTrialTable loads a table written by WriteTrialTable. Rows are taken in
// file order; the trial column is informational. Every row must name an
// existing image inside its category directory and an ISI from cfg.ISIJitter.
func ReadTrialTable(r io.Reader, cfg *Config) (*Plan, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	first := 1
	if len(records) > 0 && records[0][0] == trialTableHeader[0] {
		records = records[1:]
		first = 2
	}

	var (
		trials []Trial
		isis   []time.Duration
		fix    []int
	)
	for i, record := range records {
		line := i + first
		if len(record) < len(trialTableHeader) {
			return nil, fmt.Errorf("line %d: want %d fields, got %d", line, len(trialTableHeader), len(record))
		}
		cond, err := ParseCondition(record[2])
		if err != nil {
			return nil, fmt.Errorf("line %d: %v", line, err)
		}
		change, err := strconv.ParseBool(record[3])
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid fix_change: %v", line, err)
		}
		isi, err := strconv.ParseUint(record[4], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid isi_ms: %v", line, err)
		}

		name := record[1]
		if name == "" || name == "." || name == ".." || filepath.Base(name) != name {
			return nil, fmt.Errorf("line %d: filename %q must be a bare file name", line, name)
		}
		dir := cfg.FaceDir
		if cond == House {
			dir = cfg.HouseDir
		}
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err != nil || info.IsDir() {
			return nil, fmt.Errorf("line %d: image %s not found", line, path)
		}
		d := time.Duration(isi) * time.Millisecond
		if !slices.Contains(cfg.ISIJitter, d) {
			return nil, fmt.Errorf("line %d: isi_ms %d is not in the jitter set %v", line, isi, cfg.ISIJitter)
		}

		if change {
			fix = append(fix, len(trials))
		}
		trials = append(trials, Trial{Filename: name, Condition: cond, Path: path})
		isis = append(isis, d)
	}
	return newPlan(trials, isis, fix), nil
}
