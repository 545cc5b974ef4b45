package tuning

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"convbench/internal/conv"
)

// ErrRecordNotFound is returned when no valid record exists for a key.
var ErrRecordNotFound = errors.New("no tuning record found")

const maxRecordLine = 16 << 20

// Record is one measured schedule from the tuner's log.
type Record struct {
	Key       string    `json:"key"`
	Target    string    `json:"target"`
	Costs     []float64 `json:"costs"` // seconds
	ErrorNo   int       `json:"error_no"`
	AllCost   float64   `json:"all_cost"`
	Timestamp float64   `json:"timestamp"`
	Line      int       `json:"line"`
}

// Valid reports whether the measurement succeeded.
func (r Record) Valid() bool {
	return r.ErrorNo == 0 && len(r.Costs) > 0
}

// MeanCost returns the average cost in seconds.
func (r Record) MeanCost() float64 {
	if len(r.Costs) == 0 {
		return 0
	}
	var sum float64
	for _, c := range r.Costs {
		sum += c
	}
	return sum / float64(len(r.Costs))
}

// MeanMillis returns the average cost in milliseconds.
func (r Record) MeanMillis() float64 {
	return r.MeanCost() * 1000
}

type rawRecord struct {
	Input  []json.RawMessage `json:"i"`
	Result []json.RawMessage `json:"r"`
}

// LoadRecords reads JSON-lines records from r. Blank lines are ignored and
// lines that cannot be decoded are counted in skipped.
func LoadRecords(r io.Reader) (records []Record, skipped int, err error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxRecordLine)

	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		rec, err := decodeRecord(text)
		if err != nil {
			skipped++
			continue
		}
		rec.Line = line
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return records, skipped, fmt.Errorf("failed to read records: %w", err)
	}
	return records, skipped, nil
}

func decodeRecord(text string) (Record, error) {
	var raw rawRecord
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return Record{}, err
	}
	if len(raw.Input) == 0 || len(raw.Result) < 2 {
		return Record{}, errors.New("record lacks input or result")
	}

	var task []json.RawMessage
	if err := json.Unmarshal(raw.Input[0], &task); err != nil || len(task) == 0 {
		return Record{}, errors.New("record input has no task")
	}
	var rec Record
	if err := json.Unmarshal(task[0], &rec.Key); err != nil {
		return Record{}, fmt.Errorf("workload key: %w", err)
	}
	key, err := conv.NormalizeKey(rec.Key)
	if err != nil {
		return Record{}, err
	}
	rec.Key = key
	if len(task) > 1 {
		_ = json.Unmarshal(task[1], &rec.Target)
	}

	if err := json.Unmarshal(raw.Result[0], &rec.Costs); err != nil {
		return Record{}, fmt.Errorf("costs: %w", err)
	}
	if err := json.Unmarshal(raw.Result[1], &rec.ErrorNo); err != nil {
		return Record{}, fmt.Errorf("error_no: %w", err)
	}
	if len(raw.Result) > 2 {
		_ = json.Unmarshal(raw.Result[2], &rec.AllCost)
	}
	if len(raw.Result) > 3 {
		_ = json.Unmarshal(raw.Result[3], &rec.Timestamp)
	}
	return rec, nil
}

// Best returns the valid record with the lowest mean cost for key.
func Best(records []Record, key string) (Record, error) {
	key, err := conv.NormalizeKey(key)
	if err != nil {
		return Record{}, err
	}
	var best Record
	found := false
	for _, rec := range records {
		if rec.Key != key || !rec.Valid() {
			continue
		}
		if !found || rec.MeanCost() < best.MeanCost() {
			best = rec
			found = true
		}
	}
	if !found {
		return Record{}, fmt.Errorf("%w for %s", ErrRecordNotFound, key)
	}
	return best, nil
}

// LoadBest reads the record file at path and returns the best record for key.
func LoadBest(path, key string) (Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return Record{}, err
	}
	defer f.Close()

	records, _, err := LoadRecords(f)
	if err != nil {
		return Record{}, err
	}
	return Best(records, key)
}
