package app

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap/zaptest"

	"roas/internal/config"
	"roas/internal/datasource"
	"roas/internal/export"
	"roas/internal/parser"
	"roas/internal/roas"
	"roas/internal/schema"
	_ "roas/internal/storage/sqlite"
)

var sampleFiles = map[string]string{
	schema.TableInfluencers: "ID,Name,Category,Gender,Follower Count,Platform\n" +
		"A,Alice,Beauty,F,1200,Instagram\n" +
		"B,Bob,Fitness,M,800,YouTube\n" +
		"C,Cara,Beauty,F,5000,YouTube\n",
	schema.TablePosts: "influencer_id,platform,date,url,caption,reach,likes,comments\n" +
		"A,Instagram,2024-05-01,https://x/1,hi,100,10,1\n" +
		"C,YouTube,2024-05-03,https://x/3,hi,100,10,1\n",
	schema.TableTracking: "source,campaign,influencer_id,user_id,product,date,revenue,orders\n" +
		"ig,spring,A,u1,serum,2024-05-01,100,1\n" +
		"ig,spring,A,u2,serum,2024-05-02,50,2\n" +
		"yt,summer,B,u3,shake,2024-05-03,40,1\n" +
		"yt,summer,C,u4,serum,2024-05-04,500,5\n",
	schema.TablePayouts: "influencer_id,basis,rate,total_payout\n" +
		"A,post,30,30\n" +
		"C,post,100,100\n",
}

// writeInputs writes the sample files to dir and returns a pipeline reading
// them. skip names tables whose file is not written.
func writeInputs(t *testing.T, dir string, skip ...string) config.Pipeline {
	t.Helper()
	p := config.Pipeline{Job: "roas-test", Inputs: map[string]config.Source{}}
	for name, body := range sampleFiles {
		path := filepath.Join(dir, name+".csv")
		p.Inputs[name] = config.Source{Kind: "file", File: config.SourceFile{Path: path}}
		if contains(skip, name) {
			continue
		}
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
	return p
}

func contains(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}

func TestRun_ExportsAndStores(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	p := writeInputs(t, dir)
	p.Export = config.Export{Path: filepath.Join(dir, "out", "report.csv"), Format: "csv"}
	p.Storage = config.Storage{Kind: "sqlite", DB: config.DBConfig{
		DSN:             filepath.Join(dir, "report.db"),
		Table:           "roas_report",
		AutoCreateTable: true,
	}}
	p.Runtime = config.RuntimeConfig{LoadConcurrency: 2, BatchSize: 2}

	rep, err := New(p, zaptest.NewLogger(t)).Run(context.Background(), Overrides{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.Outcome.State != roas.Ready {
		t.Fatalf("state=%v message=%q", rep.Outcome.State, rep.Outcome.Message)
	}
	if rep.StoredRows != 3 {
		t.Fatalf("StoredRows=%d, want 3", rep.StoredRows)
	}

	f, err := os.Open(rep.ExportPath)
	if err != nil {
		t.Fatalf("open export: %v", err)
	}
	defer f.Close()
	got, err := export.ReadCSV(f)
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}

	type row struct {
		ID                    string
		Revenue, Payout, ROAS float64
		Platform              string
	}
	var rows []row
	for _, a := range got {
		rows = append(rows, row{a.InfluencerID, a.Revenue, a.TotalPayout, a.ROAS, a.Platform})
	}
	want := []row{
		{"A", 150, 30, 2.5, "Instagram"},
		{"B", 40, 0, 0, "YouTube"},
		{"C", 500, 100, 5, "YouTube"},
	}
	if diff := cmp.Diff(want, rows, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Fatalf("exported report mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_MissingInputFileAwaits(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	p := writeInputs(t, dir, schema.TablePayouts)
	p.Export.Path = filepath.Join(dir, "report.csv")

	rep, err := New(p, nil).Run(context.Background(), Overrides{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.Outcome.State != roas.AwaitingInputs {
		t.Fatalf("state=%v, want awaiting_inputs", rep.Outcome.State)
	}
	if !strings.Contains(rep.Outcome.Message, schema.TablePayouts) {
		t.Fatalf("message %q does not name the missing table", rep.Outcome.Message)
	}
	if rep.ExportPath != "" {
		t.Fatalf("export written while awaiting inputs")
	}
	if _, err := os.Stat(p.Export.Path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("export file exists: %v", err)
	}
}

func TestRun_FacetOverridesAndFormat(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	p := writeInputs(t, dir)
	out := filepath.Join(dir, "report.json")

	rep, err := New(p, nil).Run(context.Background(), Overrides{Platforms: []string{"YouTube"}, OutPath: out})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	var ids []string
	for _, a := range rep.Outcome.Result.Influencers {
		ids = append(ids, a.InfluencerID)
	}
	if diff := cmp.Diff([]string{"B", "C"}, ids); diff != "" {
		t.Fatalf("filtered ids (-want +got):\n%s", diff)
	}
	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if !bytes.HasPrefix(bytes.TrimSpace(b), []byte("[")) {
		t.Fatalf("want json export, got %q", b)
	}
}

func TestRun_SchemaFailure(t *testing.T) {
	t.Parallel()

	srcs := memorySources()
	srcs[schema.TableInfluencers] = datasource.Memory{Name: "influencers.csv", Data: []byte("id,name,gender,follower_count,platform\nA,Alice,F,1,Instagram\n")}

	rep, err := New(config.Pipeline{}, nil).WithSources(srcs).Run(context.Background(), Overrides{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.Outcome.State != roas.Failed {
		t.Fatalf("state=%v, want failed", rep.Outcome.State)
	}
	if !strings.Contains(rep.Outcome.Message, "category") {
		t.Fatalf("message %q does not name the missing column", rep.Outcome.Message)
	}
}

func TestRun_ShortTrackingRowCounted(t *testing.T) {
	t.Parallel()

	srcs := memorySources()
	srcs[schema.TableTracking] = datasource.Memory{Name: "tracking_data.csv", Data: []byte(
		"source,campaign,influencer_id,user_id,product,date,revenue,orders\n" +
			"ig,spring,A,u1,serum,2024-05-01,100,1\n" +
			"ig,spring,A,u2,serum,2024-05-02,50\n")}

	rep, err := New(config.Pipeline{}, zaptest.NewLogger(t)).WithSources(srcs).Run(context.Background(), Overrides{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.Outcome.State != roas.Ready {
		t.Fatalf("state=%v message=%q", rep.Outcome.State, rep.Outcome.Message)
	}
	res := rep.Outcome.Result
	if res.Stats.Joined != 2 || res.Stats.InputRows[schema.TableTracking] != 2 {
		t.Fatalf("stats=%+v, want both tracking rows joined", res.Stats)
	}
	for _, a := range res.Influencers {
		if a.InfluencerID == "A" && a.Revenue != 150 {
			t.Fatalf("A revenue=%v, want 150", a.Revenue)
		}
	}
}

func TestRun_WideRowFails(t *testing.T) {
	t.Parallel()

	srcs := memorySources()
	srcs[schema.TablePayouts] = datasource.Memory{Name: "payouts.csv", Data: []byte(
		"influencer_id,basis,rate,total_payout\n" +
			"A,post,30,30\n" +
			"C,post,100,100,extra\n")}

	rep, err := New(config.Pipeline{}, nil).WithSources(srcs).Run(context.Background(), Overrides{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.Outcome.State != roas.Failed {
		t.Fatalf("state=%v, want failed", rep.Outcome.State)
	}
	var rowErr *parser.RowError
	if !errors.As(rep.Outcome.Err, &rowErr) || rowErr.Table != schema.TablePayouts || rowErr.Line != 3 {
		t.Fatalf("err=%v, want payouts line 3", rep.Outcome.Err)
	}
	if !strings.Contains(rep.Outcome.Message, "payouts line 3") {
		t.Fatalf("message %q does not locate the row", rep.Outcome.Message)
	}
}

func TestRun_StorageFailureLeavesNoExport(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	p := writeInputs(t, dir)
	outDir := filepath.Join(dir, "out")
	p.Export = config.Export{Path: filepath.Join(outDir, "report.csv")}
	p.Storage = config.Storage{Kind: "no-such-store"}

	if _, err := New(p, nil).Run(context.Background(), Overrides{}); err == nil {
		t.Fatal("Run succeeded with an unknown storage kind")
	}
	entries, err := os.ReadDir(outDir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("files left behind: %v", entries)
	}
}

func TestRun_ExportReplacesPreviousReport(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	p := writeInputs(t, dir)
	p.Export.Path = filepath.Join(dir, "report.csv")
	if err := os.WriteFile(p.Export.Path, []byte("stale"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := New(p, nil).Run(context.Background(), Overrides{Format: "bogus"}); err == nil {
		t.Fatal("Run succeeded with an unknown export format")
	}
	if b, _ := os.ReadFile(p.Export.Path); string(b) != "stale" {
		t.Fatalf("previous report changed by a failed export: %q", b)
	}

	rep, err := New(p, nil).Run(context.Background(), Overrides{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	f, err := os.Open(rep.ExportPath)
	if err != nil {
		t.Fatalf("open export: %v", err)
	}
	defer f.Close()
	if got, err := export.ReadCSV(f); err != nil || len(got) != 3 {
		t.Fatalf("ReadCSV = %d rows, %v", len(got), err)
	}
	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".report.csv-") {
			t.Fatalf("temporary file left behind: %s", e.Name())
		}
	}
}

func memorySources() map[string]datasource.Source {
	out := map[string]datasource.Source{}
	for name, body := range sampleFiles {
		out[name] = datasource.Memory{Name: name + ".csv", Data: []byte(body)}
	}
	return out
}

func TestLoadInputs_HTTP(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/"), ".csv")
		body, ok := sampleFiles[name]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = io.WriteString(w, body)
	}))
	srv.Config.SetKeepAlivesEnabled(false)
	defer srv.Close()

	p := config.Pipeline{Inputs: map[string]config.Source{}}
	for name := range sampleFiles {
		p.Inputs[name] = config.Source{Kind: "http", HTTP: config.SourceHTTP{URL: srv.URL + "/" + name + ".csv"}}
	}
	srcs, err := Sources(p, nil)
	if err != nil {
		t.Fatalf("Sources: %v", err)
	}
	in, err := LoadInputs(context.Background(), srcs, config.Parser{}, 4, "roas-test", zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("LoadInputs: %v", err)
	}
	if in.Influencers == nil || in.Posts == nil || in.Tracking == nil || in.Payouts == nil {
		t.Fatalf("missing tables: %+v", in)
	}
	if in.Tracking.Len() != 4 {
		t.Fatalf("tracking rows=%d, want 4", in.Tracking.Len())
	}
	// Headers are normalized on load.
	if !in.Influencers.Has("follower_count") || !in.Influencers.Has("id") {
		t.Fatalf("influencer columns=%v", in.Influencers.Columns)
	}
}

type failingSource struct{ err error }

func (f failingSource) Open(context.Context) (io.ReadCloser, error) { return nil, f.err }
func (f failingSource) Location() string                            { return "broken.csv" }

func TestLoadInputs_FailureAborts(t *testing.T) {
	t.Parallel()

	srcs := memorySources()
	srcs[schema.TablePosts] = failingSource{err: errors.New("connection reset")}

	if _, err := LoadInputs(context.Background(), srcs, config.Parser{}, 1, "", nil); err == nil || !strings.Contains(err.Error(), "connection reset") {
		t.Fatalf("want load error, got %v", err)
	}
}

func TestParseInput_DetectsWorkbook(t *testing.T) {
	t.Parallel()

	f := excelize.NewFile()
	defer f.Close()
	for i, row := range [][]any{
		{"influencer_id", "basis", "rate", "total_payout"},
		{"A", "post", "30", 30},
	} {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}

	// No extension: the zip signature selects the workbook parser.
	tbl, _, err := ParseInput(schema.TablePayouts, "upload", buf, config.Parser{Kind: "auto"}, nil)
	if err != nil {
		t.Fatalf("ParseInput: %v", err)
	}
	if tbl.Len() != 1 || tbl.Rows[0].String("total_payout") != "30" {
		t.Fatalf("rows=%v", tbl.Rows)
	}
}

func TestParseInput_Delimiter(t *testing.T) {
	t.Parallel()

	pc := config.Parser{Kind: "csv", Options: config.Options{"comma": ";", "header_map": map[string]any{"creator": "influencer_id"}}}
	tbl, padded, err := ParseInput(schema.TablePayouts, "p.csv", strings.NewReader("creator;basis;rate;total_payout\nA;post;30;30\nB;flat\n"), pc, nil)
	if err != nil {
		t.Fatalf("ParseInput: %v", err)
	}
	if padded != 1 || tbl.Len() != 2 {
		t.Fatalf("rows=%d padded=%d, want 2 and 1", tbl.Len(), padded)
	}
	if v, ok := tbl.Rows[1]["total_payout"]; !ok || v != nil {
		t.Fatalf("short row not padded with nil: %#v", tbl.Rows[1])
	}
	if !tbl.Has("influencer_id") {
		t.Fatalf("header_map not applied: %v", tbl.Columns)
	}
}

func TestRunOptions(t *testing.T) {
	t.Parallel()

	none := []string{}
	th := 2.0
	p := config.Pipeline{
		Job:       "j",
		Facets:    config.Facets{Categories: &none},
		Views:     config.Views{TopN: 3, LowROASThreshold: &th, IncludeUntracked: true},
		Transform: []config.Transform{{Kind: "dedup", Options: config.Options{"policy": "keep-last"}}, {Kind: "coerce", Options: config.Options{"layout": "02/01/2006"}}},
	}
	o := RunOptions(p, Overrides{})
	if !o.Facets.Platforms.All || o.Facets.Categories.All || o.Facets.Categories.Contains("Beauty") {
		t.Fatalf("facets=%+v", o.Facets)
	}
	if o.TopN != 3 || *o.LowROASThreshold != 2 || !o.IncludeUntracked {
		t.Fatalf("views not mapped: %+v", o)
	}
	if o.PayoutDedupPolicy != "keep-last" || o.DateLayout != "02/01/2006" {
		t.Fatalf("transform options not mapped: %+v", o)
	}

	o = RunOptions(p, Overrides{Categories: []string{"Beauty"}})
	if !o.Facets.Categories.Contains("Beauty") || o.Facets.Categories.Contains("Food") {
		t.Fatalf("override not applied: %+v", o.Facets)
	}
}
