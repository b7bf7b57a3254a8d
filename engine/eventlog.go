package engine

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/parquet-go/parquet-go"
)

type EventLogEntry struct {
	Trial      int    `parquet:"trial"`
	Filename   string `parquet:"filename"`
	Condition  string `parquet:"condition"`
	FixChange  bool   `parquet:"fix_change"`
	Trigger    int    `parquet:"trigger"`
	ISIMS      int64  `parquet:"isi_ms"`
	IntendedMS int64  `parquet:"intended_ms"`
	OnsetMS    int64  `parquet:"onset_ms"`
}

type EventLog struct {
	Entries []EventLogEntry
}

func (l *EventLog) Log(e EventLogEntry) {
	l.Entries = append(l.Entries, e)
}

// Save writes the log as Parquet for .parquet paths and CSV otherwise.
func (l *EventLog) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if strings.EqualFold(filepath.Ext(path), ".parquet") {
		return parquet.WriteFile(path, l.Entries)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Write([]string{"trial", "filename", "condition", "fix_change", "trigger", "isi_ms", "intended_ms", "onset_ms"})
	for _, e := range l.Entries {
		w.Write([]string{
			strconv.Itoa(e.Trial),
			e.Filename,
			e.Condition,
			strconv.FormatBool(e.FixChange),
			strconv.Itoa(e.Trigger),
			strconv.FormatInt(e.ISIMS, 10),
			strconv.FormatInt(e.IntendedMS, 10),
			strconv.FormatInt(e.OnsetMS, 10),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}
