package webui

import (
	"bytes"
	"encoding/json"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap/zaptest"

	"roas/internal/export"
	"roas/internal/roas"
	"roas/internal/schema"
)

var uploads = map[string]string{
	schema.TableInfluencers: "id,name,category,gender,follower_count,platform\n" +
		"A,Alice,Beauty,F,1200,Instagram\n" +
		"B,Bob,Fitness,M,800,YouTube\n" +
		"C,Cara,Beauty,F,5000,YouTube\n",
	schema.TablePosts: "influencer_id,platform,date,url,caption,reach,likes,comments\n" +
		"A,Instagram,2024-05-01,https://x/1,hi,100,10,1\n",
	schema.TableTracking: "source,campaign,influencer_id,user_id,product,date,revenue,orders\n" +
		"ig,spring,A,u1,serum,2024-05-01,100,1\n" +
		"ig,spring,A,u2,serum,2024-05-02,50,2\n" +
		"yt,summer,B,u3,shake,2024-05-03,40,1\n" +
		"yt,summer,C,u4,serum,2024-05-04,500,5\n",
	schema.TablePayouts: "influencer_id,basis,rate,total_payout\n" +
		"A,post,30,30\n" +
		"C,post,100,100\n",
}

// form builds a multipart body with the given files and extra fields.
func form(t *testing.T, files map[string]string, fields map[string][]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, body := range files {
		fw, err := mw.CreateFormFile(name, name+".csv")
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		if _, err := fw.Write([]byte(body)); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	for k, vs := range fields {
		for _, v := range vs {
			if err := mw.WriteField(k, v); err != nil {
				t.Fatalf("WriteField: %v", err)
			}
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func without(files map[string]string, name string) map[string]string {
	out := map[string]string{}
	for k, v := range files {
		if k != name {
			out[k] = v
		}
	}
	return out
}

func do(t *testing.T, srv *Server, method, path string, files map[string]string, fields map[string][]string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if files == nil && fields == nil {
		req = httptest.NewRequest(method, path, nil)
	} else {
		body, ct := form(t, files, fields)
		req = httptest.NewRequest(method, path, body)
		req.Header.Set("Content-Type", ct)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func newTestServer(t *testing.T) *Server {
	return NewServer(Config{Logger: zaptest.NewLogger(t)})
}

func TestIndex(t *testing.T) {
	t.Parallel()

	rec := do(t, newTestServer(t), http.MethodGet, "/", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, roas.MsgAwaitingInputs) {
		t.Fatalf("index missing prompt:\n%s", body)
	}
	for _, name := range schema.TableNames {
		if !strings.Contains(body, `name="`+name+`"`) {
			t.Errorf("index missing upload field %q", name)
		}
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()

	rec := do(t, newTestServer(t), http.MethodGet, "/api/health", nil, nil)
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "ok" {
		t.Fatalf("health=%d %q", rec.Code, rec.Body.String())
	}
}

func TestReportPage(t *testing.T) {
	t.Parallel()

	rec := do(t, newTestServer(t), http.MethodPost, "/report", uploads, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	for _, want := range []string{
		`id="campaigns"`, `id="chart"`, `id="top"`, `id="low"`,
		`download="roas_report.csv"`,
		`value="YouTube" checked`,
		`value="Fitness" checked`,
		"Cara",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("report page missing %q", want)
		}
	}
	if strings.Contains(body, `id="message"`) {
		t.Errorf("ready page shows a state message")
	}
}

func TestReportPage_AwaitingInputs(t *testing.T) {
	t.Parallel()

	rec := do(t, newTestServer(t), http.MethodPost, "/report", without(uploads, schema.TablePayouts), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, roas.MsgAwaitingInputs) || !strings.Contains(body, "payouts") {
		t.Fatalf("want awaiting message naming payouts:\n%s", body)
	}
	if strings.Contains(body, `id="campaigns"`) {
		t.Fatalf("views rendered while awaiting inputs")
	}
}

func TestAPIReport(t *testing.T) {
	t.Parallel()

	rec := do(t, newTestServer(t), http.MethodPost, "/api/report", uploads, map[string][]string{
		"facets":   {"1"},
		"platform": {"YouTube"},
		"category": {"Beauty", "Fitness"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	var resp struct {
		State       string       `json:"state"`
		RunID       string       `json:"run_id"`
		Influencers []export.Row `json:"influencers"`
		Top         []export.Row `json:"top"`
		Campaigns   []struct {
			Campaign string  `json:"campaign"`
			Revenue  float64 `json:"revenue"`
		} `json:"campaigns"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.State != "ready" || resp.RunID == "" {
		t.Fatalf("state=%q run_id=%q", resp.State, resp.RunID)
	}
	var ids []string
	for _, r := range resp.Influencers {
		ids = append(ids, r.InfluencerID)
	}
	if diff := cmp.Diff([]string{"B", "C"}, ids); diff != "" {
		t.Fatalf("filtered influencers (-want +got):\n%s", diff)
	}
	// Facets do not narrow the campaign summary.
	if len(resp.Campaigns) != 2 || resp.Campaigns[0].Revenue != 150 {
		t.Fatalf("campaigns=%+v", resp.Campaigns)
	}
}

func TestAPIReport_NoFacetSelected(t *testing.T) {
	t.Parallel()

	rec := do(t, newTestServer(t), http.MethodPost, "/api/report", uploads, map[string][]string{"facets": {"1"}})
	var resp struct {
		State       string       `json:"state"`
		Influencers []export.Row `json:"influencers"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.State != "ready" || len(resp.Influencers) != 0 {
		t.Fatalf("state=%q influencers=%d, want ready and empty", resp.State, len(resp.Influencers))
	}
}

func TestAPIReport_SchemaFailure(t *testing.T) {
	t.Parallel()

	files := without(uploads, schema.TableInfluencers)
	files[schema.TableInfluencers] = "id,name,gender,follower_count,platform\nA,Alice,F,1,Instagram\n"

	rec := do(t, newTestServer(t), http.MethodPost, "/api/report", files, nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status=%d, want 422", rec.Code)
	}
	var resp struct {
		State   string `json:"state"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.State != "failed" || !strings.Contains(resp.Message, "influencers: missing columns [category]") {
		t.Fatalf("resp=%+v", resp)
	}
}

func TestExport(t *testing.T) {
	t.Parallel()

	rec := do(t, newTestServer(t), http.MethodPost, "/export", uploads, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Disposition"); got != `attachment; filename="roas_report.csv"` {
		t.Fatalf("Content-Disposition=%q", got)
	}
	rows, err := export.ReadCSV(rec.Body)
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(rows) != 3 || rows[0].InfluencerID != "A" || math.Abs(rows[0].ROAS-2.5) > 1e-9 {
		t.Fatalf("rows=%+v", rows)
	}
}

func TestExport_AwaitingInputs(t *testing.T) {
	t.Parallel()

	rec := do(t, newTestServer(t), http.MethodPost, "/export", map[string]string{}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status=%d, want 400", rec.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	t.Parallel()

	rec := do(t, newTestServer(t), http.MethodGet, "/report", nil, nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status=%d, want 405", rec.Code)
	}
}

func TestNotMultipart(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodPost, "/api/report", strings.NewReader("x=1"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	newTestServer(t).Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status=%d, want 400", rec.Code)
	}
}
