package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/gravsnap/internal/dynamo"
)

const (
	MetadataFile = "metadata.json"
	StatsFile    = "frames.csv"

	// TimestampLayout names directories created for timestamped runs.
	TimestampLayout = "2006-01-02 15-04-05"
)

// Store indexes render runs below a base directory. The base directory
// itself counts as a run when it holds metadata.
type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

// maxRunDirSuffix bounds the " (n)" suffixes tried when runs start within
// the same second.
const maxRunDirSuffix = 100

// RunDir resolves where a run writes its frames. With timestamped set a
// fresh child directory named after now is created, suffixed " (2)",
// " (3)" and so on when that name is taken; otherwise the base directory
// must already exist.
func (s *Store) RunDir(timestamped bool, now time.Time) (string, error) {
	info, err := os.Stat(s.baseDir)
	if err != nil {
		return "", fmt.Errorf("save directory %q: %w", s.baseDir, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("save directory %q is not a directory", s.baseDir)
	}
	if !timestamped {
		return s.baseDir, nil
	}

	base := filepath.Join(s.baseDir, now.Format(TimestampLayout))
	dir := base
	for n := 2; ; n++ {
		err := os.Mkdir(dir, 0755)
		if err == nil {
			return dir, nil
		}
		if !errors.Is(err, fs.ErrExist) || n > maxRunDirSuffix {
			return "", err
		}
		dir = fmt.Sprintf("%s (%d)", base, n)
	}
}

type RunMetadata struct {
	ID         string        `json:"id"`
	Timestamp  time.Time     `json:"timestamp"`
	Width      int           `json:"width"`
	Height     int           `json:"height"`
	Layout     string        `json:"layout"`
	Classifier string        `json:"classifier"`
	Masses     []dynamo.Mass `json:"masses"`
	Seed       int64         `json:"seed"`
	Params     dynamo.Params `json:"params"`
	Iterations int           `json:"iterations"`
	Step       int           `json:"step"`
	// Frames is the requested count, zero for unbounded.
	Frames   int                `json:"frames"`
	Rendered int                `json:"rendered"`
	Steps    int                `json:"steps"`
	State    string             `json:"state"`
	Elapsed  time.Duration      `json:"elapsed_ns"`
	Files    []string           `json:"files"`
	Metrics  map[string]float64 `json:"metrics"`
}

// FrameRecord is one row of a run's per-frame statistics.
type FrameRecord struct {
	Index     int
	Steps     int
	Shares    []float64
	Escaped   float64
	MeanSpeed float64
}

func WriteMetadata(dir string, meta *RunMetadata) error {
	f, err := os.Create(filepath.Join(dir, MetadataFile))
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	if meta, err := s.Load("."); err == nil {
		runs = append(runs, *meta)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, MetadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	meta.ID = runID
	return &meta, nil
}

func statsHeader(masses int) []string {
	header := []string{"frame", "steps"}
	for i := 0; i < masses; i++ {
		header = append(header, fmt.Sprintf("basin_%d", i))
	}
	return append(header, "escaped", "mean_speed")
}

func statsRow(r FrameRecord) []string {
	row := []string{strconv.Itoa(r.Index), strconv.Itoa(r.Steps)}
	for _, v := range r.Shares {
		row = append(row, strconv.FormatFloat(v, 'f', 6, 64))
	}
	return append(row,
		strconv.FormatFloat(r.Escaped, 'f', 6, 64),
		strconv.FormatFloat(r.MeanSpeed, 'f', 6, 64),
	)
}

// LoadStats reads the per-frame statistics of a run.
func (s *Store) LoadStats(runID string) ([]FrameRecord, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, StatsFile))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []FrameRecord{}, nil
	}

	shares := len(records[0]) - 4
	if shares < 0 {
		return nil, errors.New("malformed stats header")
	}

	out := make([]FrameRecord, 0, len(records)-1)
	for _, record := range records[1:] {
		if len(record) != shares+4 {
			continue
		}
		vals := make([]float64, len(record))
		ok := true
		for j, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				ok = false
				break
			}
			vals[j] = v
		}
		if !ok {
			continue
		}
		out = append(out, FrameRecord{
			Index:     int(vals[0]),
			Steps:     int(vals[1]),
			Shares:    vals[2 : 2+shares],
			Escaped:   vals[2+shares],
			MeanSpeed: vals[3+shares],
		})
	}
	return out, nil
}
