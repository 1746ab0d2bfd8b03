package storage

import (
	"fmt"
	"io"

	"github.com/parquet-go/parquet-go"
)

// OutcomeRow is one map of one history entry, flattened for analysis
type OutcomeRow struct {
	EntryID     string `parquet:"entry_id"`
	Name        string `parquet:"name"`
	TimestampMS int64  `parquet:"timestamp_ms"`
	MapID       string `parquet:"map_id"`
	Status      string `parquet:"status"`
	HasImage    bool   `parquet:"has_image"`
	ImageBytes  int64  `parquet:"image_bytes"`
	Error       string `parquet:"error"`
	Brightness  int32  `parquet:"brightness"`
	Contrast    int32  `parquet:"contrast"`
	Saturation  int32  `parquet:"saturation"`
	Temperature int32  `parquet:"temperature"`
	OffsetX     int32  `parquet:"offset_x"`
	OffsetY     int32  `parquet:"offset_y"`
}

// Outcomes flattens the history into one row per (entry, map)
func (s *HistoryStore) Outcomes() []OutcomeRow {
	entries := s.List()

	var rows []OutcomeRow
	for _, e := range entries {
		for _, m := range e.Maps {
			a := m.Adjustments
			rows = append(rows, OutcomeRow{
				EntryID:     e.ID,
				Name:        e.Name,
				TimestampMS: e.Timestamp.UnixMilli(),
				MapID:       string(m.ID),
				Status:      string(m.Status),
				HasImage:    m.HasImage(),
				ImageBytes:  int64(len(m.Image)),
				Error:       m.Error,
				Brightness:  int32(a.Brightness),
				Contrast:    int32(a.Contrast),
				Saturation:  int32(a.Saturation),
				Temperature: int32(a.Temperature),
				OffsetX:     int32(a.OffsetX),
				OffsetY:     int32(a.OffsetY),
			})
		}
	}
	return rows
}

// ExportParquet writes Outcomes as a parquet file and returns the row count
func (s *HistoryStore) ExportParquet(w io.Writer) (int, error) {
	rows := s.Outcomes()

	writer := parquet.NewGenericWriter[OutcomeRow](w)
	n, err := writer.Write(rows)
	if err != nil {
		return n, fmt.Errorf("failed to write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return n, fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return n, nil
}
