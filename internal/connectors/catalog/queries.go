package catalog

import (
	"context"
	"database/sql"
	"fmt"
)

type generalRow struct {
	Datasets int64 `db:"n_datasets"`
	Samples  int64 `db:"n_samples"`
	Results  int64 `db:"n_results"`
	Analyses int64 `db:"n_analysis"`
}

type freqRow struct {
	Label any   `db:"label"`
	N     int64 `db:"n"`
}

type datasetRow struct {
	ID           int64           `db:"id"`
	Name         sql.NullString  `db:"name"`
	Datatype     sql.NullString  `db:"datatype"`
	CMSSWRelease sql.NullString  `db:"cmssw_release"`
	Globaltag    sql.NullString  `db:"globaltag"`
	Energy       sql.NullFloat64 `db:"energy"`
	Nevents      sql.NullInt64   `db:"nevents"`
	Dsize        sql.NullInt64   `db:"dsize"`
	CreationTime any             `db:"creation_time"`
	NSamples     int64           `db:"nsamples"`
}

type sampleRow struct {
	ID               int64          `db:"id"`
	Name             sql.NullString `db:"name"`
	Path             sql.NullString `db:"path"`
	SampleType       sql.NullString `db:"sampletype"`
	Author           sql.NullString `db:"author"`
	Nevents          sql.NullInt64  `db:"nevents"`
	NeventsProcessed sql.NullInt64  `db:"nevents_processed"`
	CreationTime     any            `db:"creation_time"`
	SourceDatasetID  sql.NullInt64  `db:"source_dataset_id"`
	SourceSampleID   sql.NullInt64  `db:"source_sample_id"`
	DatasetFound     int64          `db:"dataset_found"`
	ParentFound      int64          `db:"parent_found"`
}

type resultRow struct {
	ID           int64          `db:"id"`
	Path         sql.NullString `db:"path"`
	Description  sql.NullString `db:"description"`
	Author       sql.NullString `db:"author"`
	CreationTime any            `db:"creation_time"`
	NSamples     int64          `db:"nsamples"`
	Dangling     int64          `db:"dangling"`
}

type fileRow struct {
	SampleID int64          `db:"sample_id"`
	PFN      sql.NullString `db:"pfn"`
}

type analysisRow struct {
	ID          int64          `db:"id"`
	Description sql.NullString `db:"description"`
	Cadiline    sql.NullString `db:"cadiline"`
	Contact     sql.NullString `db:"contact"`
	NResults    int64          `db:"nresults"`
}

const generalQuery = `
SELECT
  (SELECT COUNT(*) FROM dataset) AS n_datasets,
  (SELECT COUNT(*) FROM sample) AS n_samples,
  (SELECT COUNT(*) FROM result) AS n_results,
  (SELECT COUNT(*) FROM analysis) AS n_analysis`

const datasetsQuery = `
SELECT
  d.dataset_id AS id, d.name, d.datatype, d.cmssw_release, d.globaltag, d.energy,
  d.nevents, d.dsize, d.creation_time,
  (SELECT COUNT(*) FROM sample s WHERE s.source_dataset_id = d.dataset_id) AS nsamples
FROM dataset d
ORDER BY d.creation_time, d.dataset_id`

const samplesQuery = `
SELECT
  s.sample_id AS id, s.name, s.path, s.sampletype, s.author, s.nevents, s.nevents_processed,
  s.creation_time, s.source_dataset_id, s.source_sample_id,
  (SELECT COUNT(*) FROM dataset d WHERE d.dataset_id = s.source_dataset_id) AS dataset_found,
  (SELECT COUNT(*) FROM sample p WHERE p.sample_id = s.source_sample_id) AS parent_found
FROM sample s
ORDER BY s.creation_time, s.sample_id`

// fileBackedQuery lists the physical file names of samples stored without a
// directory path.
const fileBackedQuery = `
SELECT f.sample_id, f.pfn
FROM file f
JOIN sample s ON s.sample_id = f.sample_id
WHERE s.path IS NULL OR s.path = ''
ORDER BY f.sample_id, f.id`

const resultsQuery = `
SELECT
  r.result_id AS id, r.path, r.description, r.author, r.creation_time,
  (SELECT COUNT(*) FROM sampleresult sr WHERE sr.result_id = r.result_id) AS nsamples,
  (SELECT COUNT(*) FROM sampleresult sr
     LEFT JOIN sample s ON s.sample_id = sr.sample_id
   WHERE sr.result_id = r.result_id AND s.sample_id IS NULL) AS dangling
FROM result r
ORDER BY r.creation_time, r.result_id`

const analysesQuery = `
SELECT
  a.analysis_id AS id, a.description, a.cadiline, a.contact,
  (SELECT COUNT(*) FROM result r WHERE r.analysis_id = a.analysis_id) AS nresults
FROM analysis a
ORDER BY a.analysis_id`

// groupedColumns whitelists the columns frequency queries may group on.
var groupedColumns = map[string]map[string]bool{
	"dataset":  {"cmssw_release": true, "globaltag": true, "datatype": true, "energy": true},
	"sample":   {"author": true, "sampletype": true},
	"result":   {"author": true},
	"analysis": {"contact": true},
}

// floatColumns are grouped columns declared FLOAT in the catalogue schema.
var floatColumns = map[string]bool{"energy": true}

func (s *Store) general(ctx context.Context) (generalRow, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()
	var row generalRow
	err := s.db.GetContext(ctx, &row, generalQuery)
	return row, err
}

// freqs counts rows per value of one column; NULL groups become Unknown.
func (s *Store) freqs(ctx context.Context, table, column string) ([][2]any, error) {
	if !groupedColumns[table][column] {
		return nil, fmt.Errorf("column %s.%s cannot be grouped", table, column)
	}
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	query := fmt.Sprintf("SELECT %[2]s AS label, COUNT(*) AS n FROM %[1]s GROUP BY %[2]s ORDER BY %[2]s", table, column)
	var rows []freqRow
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("%s frequencies by %s: %w", table, column, err)
	}
	f := newFreqCounter()
	for _, r := range rows {
		if floatColumns[column] {
			f.add(floatLabel(r.Label), r.N)
			continue
		}
		f.add(label(r.Label), r.N)
	}
	return f.pairs(), nil
}

func selectAll[T any](ctx context.Context, s *Store, query string) ([]T, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()
	var rows []T
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, err
	}
	return rows, nil
}
