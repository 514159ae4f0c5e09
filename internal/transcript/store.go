package transcript

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"support_pipeline/internal/turns"
)

// Stamp is the readiness signal published alongside every transcript write.
// Version is monotonically increasing across writes to the same store.
type Stamp struct {
	Version   uint64    `json:"version"`
	UploadID  string    `json:"upload_id"`
	FileName  string    `json:"file_name"`
	WrittenAt time.Time `json:"written_at"`
}

// WriteMeta identifies the upload a transcript write belongs to.
type WriteMeta struct {
	UploadID string
	FileName string
}

// Store is the shared transcript artifact: a CSV file with whole-file
// atomic-replace semantics. An empty stampPath disables stamping.
type Store struct {
	path      string
	stampPath string
}

func NewStore(path, stampPath string) *Store {
	return &Store{path: path, stampPath: stampPath}
}

// StampPath returns the location of the readiness stamp file.
func (s *Store) StampPath() string { return s.stampPath }

// Write replaces the store's full contents. A reader never observes a
// half-written file: the CSV is written to a temp file and renamed over the
// target. The stamp follows the transcript so a stamp change implies the
// transcript it announces is already in place.
func (s *Store) Write(t []turns.LabeledTurn, meta WriteMeta) error {
	var b strings.Builder
	w := csv.NewWriter(&b)
	if err := w.Write([]string{"speaker", "text"}); err != nil {
		return err
	}
	for _, turn := range t {
		if err := w.Write([]string{turn.Speaker, turn.Text}); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	if err := WriteAtomic(s.path, []byte(b.String())); err != nil {
		return fmt.Errorf("write transcript: %w", err)
	}
	if s.stampPath == "" {
		return nil
	}
	prev, _ := s.ReadStamp()
	stamp := Stamp{
		Version:   prev.Version + 1,
		UploadID:  meta.UploadID,
		FileName:  meta.FileName,
		WrittenAt: time.Now().UTC(),
	}
	buf, err := json.Marshal(stamp)
	if err != nil {
		return err
	}
	if err := WriteAtomic(s.stampPath, buf); err != nil {
		return fmt.Errorf("write transcript stamp: %w", err)
	}
	return nil
}

// Read returns the current transcript, or an empty sequence if the store has
// never been written.
func (s *Store) Read() ([]turns.LabeledTurn, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 2
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read transcript: %w", err)
	}
	var out []turns.LabeledTurn
	for i, rec := range records {
		if i == 0 && rec[0] == "speaker" {
			continue
		}
		out = append(out, turns.LabeledTurn{Speaker: rec[0], Text: rec[1]})
	}
	return out, nil
}

// ReadStamp returns the current stamp, or the zero stamp if none exists.
func (s *Store) ReadStamp() (Stamp, error) {
	var stamp Stamp
	if s.stampPath == "" {
		return stamp, nil
	}
	buf, err := os.ReadFile(s.stampPath)
	if err != nil {
		if os.IsNotExist(err) {
			return stamp, nil
		}
		return stamp, err
	}
	if err := json.Unmarshal(buf, &stamp); err != nil {
		return Stamp{}, fmt.Errorf("read transcript stamp: %w", err)
	}
	return stamp, nil
}

// WriteAtomic writes data to path via a temp file and rename in the same
// directory.
func WriteAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
