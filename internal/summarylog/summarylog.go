package summarylog

import (
	"encoding/csv"
	"fmt"
	"os"
	"sync"
)

// Record is one summary ledger entry. Records are appended, never mutated.
type Record struct {
	FileName  string `json:"file_name"`
	Timestamp string `json:"timestamp"`
	Summary   string `json:"summary"`
}

var header = []string{"file_name", "timestamp", "summary"}

// Log is an append-only CSV ledger of upload summaries. The header is written
// exactly once, guarded by an existence check; appends never touch prior
// records.
type Log struct {
	path string
	mu   sync.Mutex
}

func New(path string) *Log {
	return &Log{path: path}
}

// Append adds one record to the end of the ledger.
func (l *Log) Append(rec Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, statErr := os.Stat(l.path)
	needHeader := os.IsNotExist(statErr)

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open summary log: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if needHeader {
		if err := w.Write(header); err != nil {
			return err
		}
	}
	if err := w.Write([]string{rec.FileName, rec.Timestamp, rec.Summary}); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

// Latest returns the most recently appended record.
func (l *Log) Latest() (Record, bool, error) {
	recs, err := l.readAll()
	if err != nil || len(recs) == 0 {
		return Record{}, false, err
	}
	return recs[len(recs)-1], true, nil
}

// Recent returns the last n records, most recent first.
func (l *Log) Recent(n int) ([]Record, error) {
	recs, err := l.readAll()
	if err != nil {
		return nil, err
	}
	if len(recs) > n {
		recs = recs[len(recs)-n:]
	}
	out := make([]Record, 0, len(recs))
	for i := len(recs) - 1; i >= 0; i-- {
		out = append(out, recs[i])
	}
	return out, nil
}

func (l *Log) readAll() ([]Record, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 3
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read summary log: %w", err)
	}
	var out []Record
	for i, row := range rows {
		if i == 0 && row[0] == header[0] {
			continue
		}
		out = append(out, Record{FileName: row[0], Timestamp: row[1], Summary: row[2]})
	}
	return out, nil
}
