package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"poolsim/internal/model"
)

// JsonlStorage appends simulation records to JSONL files under one
// directory: steps.jsonl, trades.jsonl, and run.json for the summary.
type JsonlStorage struct {
	dir string
	mu  sync.Mutex
}

func NewJsonlStorage(dir string) *JsonlStorage {
	return &JsonlStorage{dir: dir}
}

// PutStepBatch appends step metrics as JSON lines.
func (s *JsonlStorage) PutStepBatch(steps []model.StepMetrics) error {
	if len(steps) == 0 {
		return nil
	}
	records := make([]any, len(steps))
	for i, step := range steps {
		records[i] = step
	}
	return s.appendLines("steps.jsonl", records)
}

// PutTradeBatch appends trade records as JSON lines.
func (s *JsonlStorage) PutTradeBatch(trades []model.TradeRecord) error {
	if len(trades) == 0 {
		return nil
	}
	records := make([]any, len(trades))
	for i, trade := range trades {
		records[i] = trade
	}
	return s.appendLines("trades.jsonl", records)
}

// PutRunSummary writes the run summary, replacing any previous one.
func (s *JsonlStorage) PutRunSummary(summary model.RunSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal run summary: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, "run.json"), data, 0o644); err != nil {
		return fmt.Errorf("write run summary: %w", err)
	}
	return nil
}

func (s *JsonlStorage) appendLines(name string, records []any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	file, err := os.OpenFile(filepath.Join(s.dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for _, record := range records {
		line, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshal record: %w", err)
		}
		if _, err := writer.Write(line); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("write newline: %w", err)
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	return nil
}
