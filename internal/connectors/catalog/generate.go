package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"golang.org/x/sync/errgroup"

	"samadhi-report-ui/internal/report"
)

// Artifact file names, one per report page plus the general counts.
const (
	GeneralFile  = "stats.json"
	AnalysisFile = "AnalysisAnalysisReport.json"
	DatasetsFile = "DatasetsAnalysisReport.json"
	SamplesFile  = "SamplesAnalysisReport.json"
	ResultsFile  = "ResultsAnalysisReport.json"
)

// Options tunes a generation run.
type Options struct {
	// PreviousDir holds the artifacts of the previous run. Sections that
	// cannot be recomputed from the database are carried forward from it.
	PreviousDir string
	// CheckPaths stats sample and result paths on this host. When false the
	// missing-path sections are carried forward instead.
	CheckPaths bool
}

// Artifacts are the documents one generation run produces.
type Artifacts struct {
	General  report.General
	Analysis map[string]any
	Datasets map[string]any
	Samples  map[string]any
	Results  map[string]any
}

type artifactFile struct {
	name string
	body any
}

func (a *Artifacts) files() []artifactFile {
	return []artifactFile{
		{GeneralFile, a.General},
		{DatasetsFile, a.Datasets},
		{SamplesFile, a.Samples},
		{ResultsFile, a.Results},
		{AnalysisFile, a.Analysis},
	}
}

// ArtifactNames lists the file names WriteArtifacts produces.
func ArtifactNames() []string {
	return []string{GeneralFile, DatasetsFile, SamplesFile, ResultsFile, AnalysisFile}
}

// Generate computes every report document from the catalogue tables.
// Sections are computed concurrently; the first query failure aborts the run.
func (s *Store) Generate(ctx context.Context, opts Options) (*Artifacts, error) {
	out := &Artifacts{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		row, err := s.general(gctx)
		if err != nil {
			return fmt.Errorf("general statistics: %w", err)
		}
		out.General = report.General(row)
		return nil
	})
	g.Go(func() error {
		var err error
		out.Analysis, err = s.analysisReport(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		out.Datasets, err = s.datasetsReport(gctx, opts)
		return err
	})
	g.Go(func() error {
		var err error
		out.Samples, err = s.samplesReport(gctx, opts)
		return err
	})
	g.Go(func() error {
		var err error
		out.Results, err = s.resultsReport(gctx, opts)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) analysisReport(ctx context.Context) (map[string]any, error) {
	contacts, err := s.freqs(ctx, "analysis", "contact")
	if err != nil {
		return nil, err
	}
	rows, err := selectAll[analysisRow](ctx, s, analysesQuery)
	if err != nil {
		return nil, fmt.Errorf("analyses: %w", err)
	}

	sizes := newFreqCounter()
	groups := newFreqCounter()
	for _, a := range rows {
		if a.NResults > 0 {
			sizes.add(nullLabel(a.Description), a.NResults)
		}
		groups.add(physicsGroup(a.Cadiline.String), 1)
	}

	return map[string]any{
		"AnalysisStatistics": map[string]any{
			"analysisContacts": contacts,
			"analysisResults":  sizes.pairs(),
			"physicsGroup":     groups.pairs(),
		},
	}, nil
}

func (s *Store) datasetsReport(ctx context.Context, opts Options) (map[string]any, error) {
	stats := map[string]any{}
	for _, column := range []string{"cmssw_release", "globaltag", "datatype", "energy"} {
		pairs, err := s.freqs(ctx, "dataset", column)
		if err != nil {
			return nil, err
		}
		stats[column] = pairs
	}

	rows, err := selectAll[datasetRow](ctx, s, datasetsQuery)
	if err != nil {
		return nil, fmt.Errorf("datasets: %w", err)
	}

	var (
		times      = make([]int64, 0, len(rows))
		nsamples   = make([]float64, 0, len(rows))
		nevents    = make([]float64, 0, len(rows))
		sizes      = make([]float64, 0, len(rows))
		orphans    = []any{}
		incomplete = []any{}
	)
	for _, d := range rows {
		times = append(times, millis(d.CreationTime))
		nsamples = append(nsamples, float64(d.NSamples))
		nevents = append(nevents, float64(d.Nevents.Int64))
		sizes = append(sizes, float64(d.Dsize.Int64))

		if d.NSamples == 0 {
			orphans = append(orphans, datasetEntity(d))
		}
		switch {
		case !d.CMSSWRelease.Valid:
			incomplete = append(incomplete, []any{datasetEntity(d), "missing CMSSW release"})
		case !d.Energy.Valid:
			incomplete = append(incomplete, []any{datasetEntity(d), "missing Energy"})
		case !d.Globaltag.Valid:
			incomplete = append(incomplete, []any{datasetEntity(d), "missing Globaltag"})
		}
	}
	stats["datasetsNsamples"] = histogram(nsamples, 10, 0, 10)
	stats["datasetsNevents"] = autoHistogram(nevents, 100)
	stats["datasetsDsize"] = autoHistogram(sizes, 100)
	stats["datasetsTimeprof"] = countProfile(times)

	return map[string]any{
		"DatabaseInconsistencies": previousSection(opts.PreviousDir, DatasetsFile, "DatabaseInconsistencies"),
		"Orphans":                 orphans,
		"IncompleteData":          incomplete,
		"DatasetsStatistics":      stats,
	}, nil
}

func (s *Store) samplesReport(ctx context.Context, opts Options) (map[string]any, error) {
	authors, err := s.freqs(ctx, "sample", "author")
	if err != nil {
		return nil, err
	}
	types, err := s.freqs(ctx, "sample", "sampletype")
	if err != nil {
		return nil, err
	}
	rows, err := selectAll[sampleRow](ctx, s, samplesQuery)
	if err != nil {
		return nil, fmt.Errorf("samples: %w", err)
	}

	var fileDirs map[int64][]string
	if opts.CheckPaths {
		files, err := selectAll[fileRow](ctx, s, fileBackedQuery)
		if err != nil {
			return nil, fmt.Errorf("sample files: %w", err)
		}
		fileDirs = sampleFileDirs(files)
	}

	var (
		times        = make([]int64, 0, len(rows))
		nevents      = make([]float64, 0, len(rows))
		processed    = make([]float64, 0, len(rows))
		missing      = []any{}
		inconsistent = []any{}
	)
	for _, smp := range rows {
		times = append(times, millis(smp.CreationTime))
		nevents = append(nevents, float64(smp.Nevents.Int64))
		processed = append(processed, float64(smp.NeventsProcessed.Int64))

		if opts.CheckPaths && anyPathMissing(samplePaths(smp, fileDirs)) {
			missing = append(missing, sampleEntity(smp))
		}
		if smp.SourceDatasetID.Valid && smp.DatasetFound == 0 {
			inconsistent = append(inconsistent, []any{sampleEntity(smp), "inconsistent source dataset"})
		}
		if smp.SourceSampleID.Valid && smp.ParentFound == 0 {
			inconsistent = append(inconsistent, []any{sampleEntity(smp), "inconsistent source sample"})
		}
	}

	var missingSection any = missing
	if !opts.CheckPaths {
		missingSection = previousSection(opts.PreviousDir, SamplesFile, "MissingDirSamples")
	}

	return map[string]any{
		"MissingDirSamples":       missingSection,
		"DatabaseInconsistencies": inconsistent,
		"SampleStatistics": map[string]any{
			"sampleAuthors":                  authors,
			"sampleTypes":                    types,
			"sampleNevents":                  autoHistogram(nevents, 100),
			"sampleNeventsProcessed":         autoHistogram(processed, 100),
			"sampleNeventsTimeprof":          cumulative(times, nevents),
			"sampleNeventsProcessedTimeprof": cumulative(times, processed),
			"samplesTimeprof":                times,
		},
	}, nil
}

func (s *Store) resultsReport(ctx context.Context, opts Options) (map[string]any, error) {
	authors, err := s.freqs(ctx, "result", "author")
	if err != nil {
		return nil, err
	}
	rows, err := selectAll[resultRow](ctx, s, resultsQuery)
	if err != nil {
		return nil, fmt.Errorf("results: %w", err)
	}

	var (
		nsamples     = make([]float64, 0, len(rows))
		missing      = []any{}
		inconsistent = []any{}
	)
	for _, r := range rows {
		nsamples = append(nsamples, float64(r.NSamples))
		if opts.CheckPaths && pathMissing(r.Path) {
			missing = append(missing, resultEntity(r))
		}
		if r.Dangling > 0 {
			inconsistent = append(inconsistent, []any{resultEntity(r), "inconsistent source sample"})
		}
	}

	var missingSection any = missing
	if !opts.CheckPaths {
		missingSection = previousSection(opts.PreviousDir, ResultsFile, "MissingDirSamples")
	}

	return map[string]any{
		"MissingDirSamples":       missingSection,
		"DatabaseInconsistencies": inconsistent,
		"ResultsStatistics": map[string]any{
			"resultsAuthors": authors,
			"resultNsamples": histogram(nsamples, 20, 0, 20),
		},
	}, nil
}

// WriteArtifacts writes every document into dir. Each file is written to a
// temporary name and renamed so readers never see a partial document.
func WriteArtifacts(dir string, a *Artifacts) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for _, f := range a.files() {
		blob, err := json.Marshal(f.body)
		if err != nil {
			return fmt.Errorf("encode %s: %w", f.name, err)
		}
		if err := writeAtomic(filepath.Join(dir, f.name), blob); err != nil {
			return fmt.Errorf("write %s: %w", f.name, err)
		}
	}
	return nil
}

func writeAtomic(path string, blob []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(blob); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// previousSection returns one top-level section of a previous artifact, or
// an empty list when there is none.
func previousSection(dir, file, key string) json.RawMessage {
	empty := json.RawMessage(`[]`)
	if dir == "" {
		return empty
	}
	blob, err := os.ReadFile(filepath.Join(dir, file))
	if err != nil {
		return empty
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(blob, &doc); err != nil {
		return empty
	}
	section, ok := doc[key]
	if !ok || string(section) == "null" {
		return empty
	}
	return section
}

func pathMissing(p sql.NullString) bool {
	if !p.Valid || p.String == "" {
		return false
	}
	_, err := os.Stat(p.String)
	return errors.Is(err, os.ErrNotExist)
}

// sfnPattern extracts the storage file name from an SRM physical file name.
var sfnPattern = regexp.MustCompile(`.*SFN=(.*)`)

// sampleFileDirs groups the distinct directories of each sample's files.
// File names without an SFN part carry no local path and are ignored.
func sampleFileDirs(files []fileRow) map[int64][]string {
	dirs := make(map[int64][]string)
	seen := make(map[int64]map[string]bool)
	for _, f := range files {
		m := sfnPattern.FindStringSubmatch(f.PFN.String)
		if m == nil {
			continue
		}
		dir := filepath.Dir(m[1])
		if seen[f.SampleID] == nil {
			seen[f.SampleID] = map[string]bool{}
		}
		if seen[f.SampleID][dir] {
			continue
		}
		seen[f.SampleID][dir] = true
		dirs[f.SampleID] = append(dirs[f.SampleID], dir)
	}
	return dirs
}

// samplePaths returns the sample directory, or the directories of its files
// when no directory is recorded.
func samplePaths(smp sampleRow, fileDirs map[int64][]string) []sql.NullString {
	if smp.Path.Valid && smp.Path.String != "" {
		return []sql.NullString{smp.Path}
	}
	out := make([]sql.NullString, 0, len(fileDirs[smp.ID]))
	for _, dir := range fileDirs[smp.ID] {
		out = append(out, sql.NullString{String: dir, Valid: true})
	}
	return out
}

func anyPathMissing(paths []sql.NullString) bool {
	for _, p := range paths {
		if pathMissing(p) {
			return true
		}
	}
	return false
}

func nullLabel(v sql.NullString) string {
	if !v.Valid {
		return unknownLabel
	}
	return v.String
}

func nullable[T any](valid bool, v T) any {
	if !valid {
		return nil
	}
	return v
}

func isoTime(v any) any {
	ms := millis(v)
	if ms == 0 {
		return nil
	}
	return time.UnixMilli(ms).UTC().Format("2006-01-02T15:04:05")
}

func datasetEntity(d datasetRow) map[string]any {
	return map[string]any{
		"id":            d.ID,
		"name":          nullable(d.Name.Valid, d.Name.String),
		"datatype":      nullable(d.Datatype.Valid, d.Datatype.String),
		"cmssw_release": nullable(d.CMSSWRelease.Valid, d.CMSSWRelease.String),
		"globaltag":     nullable(d.Globaltag.Valid, d.Globaltag.String),
		"energy":        nullable(d.Energy.Valid, d.Energy.Float64),
		"nevents":       nullable(d.Nevents.Valid, d.Nevents.Int64),
		"dsize":         nullable(d.Dsize.Valid, d.Dsize.Int64),
		"creation_time": isoTime(d.CreationTime),
	}
}

func sampleEntity(s sampleRow) map[string]any {
	return map[string]any{
		"id":                s.ID,
		"name":              nullable(s.Name.Valid, s.Name.String),
		"path":              nullable(s.Path.Valid, s.Path.String),
		"sampletype":        nullable(s.SampleType.Valid, s.SampleType.String),
		"author":            nullable(s.Author.Valid, s.Author.String),
		"nevents":           nullable(s.Nevents.Valid, s.Nevents.Int64),
		"source_dataset_id": nullable(s.SourceDatasetID.Valid, s.SourceDatasetID.Int64),
		"source_sample_id":  nullable(s.SourceSampleID.Valid, s.SourceSampleID.Int64),
		"creation_time":     isoTime(s.CreationTime),
	}
}

func resultEntity(r resultRow) map[string]any {
	return map[string]any{
		"id":            r.ID,
		"description":   nullable(r.Description.Valid, r.Description.String),
		"path":          nullable(r.Path.Valid, r.Path.String),
		"author":        nullable(r.Author.Valid, r.Author.String),
		"creation_time": isoTime(r.CreationTime),
	}
}
