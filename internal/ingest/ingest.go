// Package ingest loads raw hourly observation feeds into the analytical
// database. Parsing is best-effort: a numeric field that does not parse is
// coerced to NULL and counted, never guessed at, so downstream aggregates
// see absence rather than corrupted values.
package ingest

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/gridsight/heatgrid-cli/internal/model"
	"github.com/gridsight/heatgrid-cli/internal/store"
)

// insertBatchSize bounds transaction size during bulk ingestion.
const insertBatchSize = 5000

// Result summarizes one ingest run.
type Result struct {
	Rows    int64 // observations inserted
	Coerced int64 // numeric fields coerced to NULL
	Skipped int64 // rows dropped for missing key or unparseable timestamp
}

// hourLayouts are the timestamp encodings raw feeds have been seen to use.
var hourLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// parseHour parses a feed timestamp and truncates it to the hour in UTC.
func parseHour(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range hourLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Truncate(time.Hour), true
		}
	}
	return time.Time{}, false
}

// parseNumeric parses a float field, reporting coercion instead of failing.
func parseNumeric(s string) (*float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, true
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, true
	}
	return &v, false
}

// columnIndex locates required columns in a header row, case-insensitively.
func columnIndex(header []string, names ...string) (map[string]int, error) {
	idx := make(map[string]int, len(names))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	out := make(map[string]int, len(names))
	for _, name := range names {
		i, ok := idx[name]
		if !ok {
			return nil, eris.Errorf("ingest: column %q not found in header %v", name, header)
		}
		out[name] = i
	}
	return out, nil
}

// Temps parses a station,hour_utc,temp_c CSV feed and appends it to
// noaa_hourly_avg.
func Temps(ctx context.Context, st *store.Store, r io.Reader) (*Result, error) {
	log := zap.L().With(zap.String("component", "ingest.temps"))
	res := &Result{}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, eris.Wrap(err, "ingest: read temp header")
	}
	cols, err := columnIndex(header, "station", "hour_utc", "temp_c")
	if err != nil {
		return nil, err
	}

	var batch []model.HourlyTemp
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := st.InsertHourlyTemps(ctx, batch)
		if err != nil {
			return err
		}
		res.Rows += n
		batch = batch[:0]
		return nil
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "ingest: read temp row")
		}

		station := strings.TrimSpace(field(record, cols["station"]))
		hourUTC, ok := parseHour(field(record, cols["hour_utc"]))
		if station == "" || !ok {
			res.Skipped++
			continue
		}

		temp, coerced := parseNumeric(field(record, cols["temp_c"]))
		if coerced {
			res.Coerced++
		}

		batch = append(batch, model.HourlyTemp{Station: station, HourUTC: hourUTC, TempC: temp})
		if len(batch) >= insertBatchSize {
			if err := flush(); err != nil {
				return nil, err
			}
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}

	log.Info("temperature ingest complete",
		zap.Int64("rows", res.Rows),
		zap.Int64("coerced", res.Coerced),
		zap.Int64("skipped", res.Skipped),
	)
	return res, nil
}

// Loads parses a region,hour_utc,load_mwh feed and appends it to
// eia_load_hourly. Replayed duplicate rows are kept; the daily-load stage
// deduplicates.
func Loads(ctx context.Context, st *store.Store, r io.Reader) (*Result, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, eris.Wrap(err, "ingest: read load header")
	}

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "ingest: read load row")
		}
		rows = append(rows, record)
	}
	return insertLoadRows(ctx, st, header, rows)
}

// insertLoadRows is the shared tail of the CSV and XLSX load paths.
func insertLoadRows(ctx context.Context, st *store.Store, header []string, records [][]string) (*Result, error) {
	log := zap.L().With(zap.String("component", "ingest.loads"))
	res := &Result{}

	cols, err := columnIndex(header, "region", "hour_utc", "load_mwh")
	if err != nil {
		return nil, err
	}

	var batch []model.HourlyLoad
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := st.InsertHourlyLoads(ctx, batch)
		if err != nil {
			return err
		}
		res.Rows += n
		batch = batch[:0]
		return nil
	}

	for _, record := range records {
		region := strings.TrimSpace(field(record, cols["region"]))
		hourUTC, ok := parseHour(field(record, cols["hour_utc"]))
		if region == "" || !ok {
			res.Skipped++
			continue
		}

		load, coerced := parseNumeric(field(record, cols["load_mwh"]))
		if coerced {
			res.Coerced++
		}

		batch = append(batch, model.HourlyLoad{Region: region, HourUTC: hourUTC, LoadMWH: load})
		if len(batch) >= insertBatchSize {
			if err := flush(); err != nil {
				return nil, err
			}
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}

	log.Info("load ingest complete",
		zap.Int64("rows", res.Rows),
		zap.Int64("coerced", res.Coerced),
		zap.Int64("skipped", res.Skipped),
	)
	return res, nil
}

func field(record []string, i int) string {
	if i >= len(record) {
		return ""
	}
	return record[i]
}
