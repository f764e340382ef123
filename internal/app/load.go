package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"roas/internal/config"
	"roas/internal/datasource"
	"roas/internal/datasource/file"
	"roas/internal/datasource/httpds"
	"roas/internal/metrics"
	"roas/internal/parser"
	csvparser "roas/internal/parser/csv"
	xlsxparser "roas/internal/parser/xlsx"
	"roas/internal/roas"
	"roas/internal/schema"
	"roas/internal/table"
)

// Sources builds one datasource.Source per configured input table.
func Sources(p config.Pipeline, log *zap.Logger) (map[string]datasource.Source, error) {
	out := make(map[string]datasource.Source, len(p.Inputs))
	for name, s := range p.Inputs {
		switch s.Kind {
		case "", "file":
			out[name] = file.NewLocal(s.File.Path)
		case "http":
			headers := http.Header{}
			for k, v := range s.HTTP.Headers {
				headers.Set(k, v)
			}
			client := httpds.NewClient(httpds.Config{
				Timeout:            time.Duration(s.HTTP.TimeoutSeconds) * time.Second,
				MaxRetries:         s.HTTP.MaxRetries,
				InsecureSkipVerify: s.HTTP.InsecureSkipVerify,
				BaseHeaders:        headers,
				Logger:             log,
			})
			out[name] = httpds.NewSource(client, s.HTTP.URL)
		default:
			return nil, fmt.Errorf("inputs.%s: unknown source kind %q", name, s.Kind)
		}
	}
	return out, nil
}

// ParseInput reads one table from r. The format comes from parser.Kind, or is
// detected from location and the first bytes when the kind is auto.
func ParseInput(name, location string, r io.Reader, pc config.Parser, log *zap.Logger) (table.Table, int, error) {
	br := bufio.NewReader(r)
	format := pc.Kind
	if format == "" || format == "auto" {
		head, _ := br.Peek(4)
		format = parser.Detect(location, head)
	}

	headerMap := pc.Options.StringMap("header_map")
	trim := pc.Options.Bool("trim_space", true)

	var p parser.Parser
	switch format {
	case parser.FormatXLSX:
		p = xlsxparser.NewParser(xlsxparser.Options{
			Sheet:     pc.Options.String("sheet", ""),
			TrimSpace: trim,
			HeaderMap: headerMap,
			Logger:    log,
		})
	case parser.FormatCSV:
		p = csvparser.NewParser(csvparser.Options{
			Comma:     pc.Options.Rune("comma", ','),
			TrimSpace: trim,
			HeaderMap: headerMap,
			Logger:    log,
		})
	default:
		return table.Table{}, 0, fmt.Errorf("%s: unknown parser kind %q", name, format)
	}
	return p.Parse(name, br)
}

// LoadInputs fetches and parses every source concurrently, at most
// concurrency at a time. A source that does not exist yet (missing file,
// HTTP 404) is left unset so the run reports it as missing; any other failure
// aborts the load.
func LoadInputs(
	ctx context.Context,
	sources map[string]datasource.Source,
	pc config.Parser,
	concurrency int,
	job string,
	log *zap.Logger,
) (roas.Inputs, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if concurrency <= 0 {
		concurrency = len(schema.TableNames)
	}

	tables := make([]*table.Table, len(schema.TableNames))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, name := range schema.TableNames {
		src, ok := sources[name]
		if !ok {
			continue
		}
		g.Go(func() error {
			start := time.Now()
			t, err := loadOne(gctx, job, name, src, pc, log)
			metrics.RecordStep(job, "load_"+name, err, time.Since(start))
			if errors.Is(err, os.ErrNotExist) {
				log.Warn("app: input not found", zap.String("table", name), zap.String("location", src.Location()))
				return nil
			}
			if err != nil {
				return err
			}
			tables[i] = &t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return roas.Inputs{}, err
	}

	var in roas.Inputs
	for i, name := range schema.TableNames {
		switch name {
		case schema.TableInfluencers:
			in.Influencers = tables[i]
		case schema.TablePosts:
			in.Posts = tables[i]
		case schema.TableTracking:
			in.Tracking = tables[i]
		case schema.TablePayouts:
			in.Payouts = tables[i]
		}
	}
	return in, nil
}

// InputOutcome maps a load error caused by the content of an input, such as a
// row wider than its header, to a Failed outcome. Other load errors (network,
// I/O) are left to the caller.
func InputOutcome(err error) (roas.Outcome, bool) {
	var rowErr *parser.RowError
	if !errors.As(err, &rowErr) {
		return roas.Outcome{}, false
	}
	return roas.Outcome{
		State:   roas.Failed,
		Message: "Malformed input: " + rowErr.Error() + ".",
		Err:     err,
	}, true
}

func loadOne(ctx context.Context, job, name string, src datasource.Source, pc config.Parser, log *zap.Logger) (table.Table, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		return table.Table{}, fmt.Errorf("%s: %w", name, err)
	}
	defer rc.Close()

	t, padded, err := ParseInput(name, src.Location(), rc, pc, log)
	if err != nil {
		return table.Table{}, fmt.Errorf("%s: %w", name, err)
	}
	if padded > 0 {
		metrics.RecordRows(job, "padded_"+name, padded)
		log.Warn("app: short rows padded", zap.String("table", name), zap.Int("padded", padded))
	}
	log.Debug("app: input loaded",
		zap.String("table", name),
		zap.String("location", src.Location()),
		zap.Int("rows", t.Len()))
	return t, nil
}
