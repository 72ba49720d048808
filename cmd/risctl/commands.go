package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/risclient/internal/version"
	ris "github.com/kailas-cloud/risclient/pkg/sdk"
)

// SearchCmd groups the search modes.
type SearchCmd struct {
	Text   SearchTextCmd   `cmd:"" help:"Free-text search."`
	Image  SearchImageCmd  `cmd:"" help:"Search by an uploaded image."`
	Vector SearchVectorCmd `cmd:"" help:"Search one named vector space."`
	Hybrid SearchHybridCmd `cmd:"" help:"Search several named vector spaces at once."`
}

// SearchFlags are shared by the query-based search commands.
type SearchFlags struct {
	TopK   int      `help:"Maximum number of results (0 = backend default)." name:"top-k"`
	Filter []string `help:"Payload filter as key=v1,v2. Repeatable." sep:"none"`
}

func (f SearchFlags) topK() *int {
	if f.TopK == 0 {
		return nil
	}
	return ris.TopK(f.TopK)
}

// SearchTextCmd runs a free-text search.
type SearchTextCmd struct {
	SearchFlags

	Query string `arg:"" optional:"" help:"Query text."`
}

func (c *SearchTextCmd) Run(rc *runContext) error {
	filters, err := parseFilters(c.Filter)
	if err != nil {
		return err
	}
	a, err := rc.open()
	if err != nil {
		return err
	}
	defer a.Close()

	return a.search(rc.ctx, rc.stdout, func(ctx context.Context) ([]ris.SearchResult, error) {
		return a.client.Search().Text(ctx, ris.TextSearchRequest{
			Query:   c.Query,
			TopK:    c.topK(),
			Filters: filters,
		})
	})
}

// SearchImageCmd uploads an image. Without a file nothing is sent.
type SearchImageCmd struct {
	File string `arg:"" optional:"" help:"Image file to upload." type:"path"`
	TopK int    `help:"Maximum number of results (0 = backend default)." name:"top-k"`
}

func (c *SearchImageCmd) Run(rc *runContext) error {
	a, err := rc.open()
	if err != nil {
		return err
	}
	defer a.Close()

	req := ris.ImageSearchRequest{}
	if c.TopK != 0 {
		req.TopK = ris.TopK(c.TopK)
	}
	if c.File != "" {
		f, err := os.Open(c.File)
		if err != nil {
			return fmt.Errorf("open image: %w", err)
		}
		defer f.Close()
		req.File = f
		req.Filename = filepath.Base(c.File)
	}

	return a.search(rc.ctx, rc.stdout, func(ctx context.Context) ([]ris.SearchResult, error) {
		return a.client.Search().Image(ctx, req)
	})
}

// SearchVectorCmd searches one named vector space.
type SearchVectorCmd struct {
	SearchFlags

	Name   string    `help:"Vector name." default:"text"`
	Vector []float64 `arg:"" optional:"" help:"Query vector, comma or space separated."`
}

func (c *SearchVectorCmd) Run(rc *runContext) error {
	filters, err := parseFilters(c.Filter)
	if err != nil {
		return err
	}
	a, err := rc.open()
	if err != nil {
		return err
	}
	defer a.Close()

	return a.search(rc.ctx, rc.stdout, func(ctx context.Context) ([]ris.SearchResult, error) {
		return a.client.Search().Vector(ctx, ris.VectorSearchRequest{
			Vector:     c.Vector,
			VectorName: c.Name,
			TopK:       c.topK(),
			Filters:    filters,
		})
	})
}

// SearchHybridCmd searches several named vectors. Vectors given as text are embedded first.
type SearchHybridCmd struct {
	SearchFlags

	Vector []string `help:"Named vector as name=0.1,0.2,... Repeatable." sep:"none"`
	Embed  []string `help:"Named text to embed as name=text. Repeatable." sep:"none"`
}

func (c *SearchHybridCmd) Run(rc *runContext) error {
	vectors, err := parseVectors(c.Vector)
	if err != nil {
		return err
	}
	filters, err := parseFilters(c.Filter)
	if err != nil {
		return err
	}
	a, err := rc.open()
	if err != nil {
		return err
	}
	defer a.Close()

	if len(c.Embed) == 0 {
		return a.search(rc.ctx, rc.stdout, func(ctx context.Context) ([]ris.SearchResult, error) {
			return a.client.Search().Hybrid(ctx, ris.HybridSearchRequest{
				Vectors: vectors,
				TopK:    c.topK(),
				Filters: filters,
			})
		})
	}

	b := a.client.Search().NewHybrid()
	for name, v := range vectors {
		b.With(name, v)
	}
	for _, e := range c.Embed {
		name, text, ok := strings.Cut(e, "=")
		if !ok || name == "" {
			return fmt.Errorf("invalid --embed %q: want name=text", e)
		}
		b.Embed(name, text)
	}
	for key, values := range filters {
		b.Filter(key, values...)
	}
	if k := c.topK(); k != nil {
		b.TopK(*k)
	}
	return a.search(rc.ctx, rc.stdout, b.Do)
}

// SemanticCmd embeds a query with the configured provider and runs a vector search.
type SemanticCmd struct {
	SearchFlags

	Name  string `help:"Vector name." default:"text"`
	Query string `arg:"" help:"Query text."`
}

func (c *SemanticCmd) Run(rc *runContext) error {
	filters, err := parseFilters(c.Filter)
	if err != nil {
		return err
	}
	a, err := rc.open()
	if err != nil {
		return err
	}
	defer a.Close()

	return a.search(rc.ctx, rc.stdout, func(ctx context.Context) ([]ris.SearchResult, error) {
		return a.client.Search().Semantic(ctx, ris.SemanticSearchRequest{
			Query:      c.Query,
			VectorName: c.Name,
			TopK:       c.topK(),
			Filters:    filters,
		})
	})
}

// ChatCmd is a line-oriented chat REPL.
//
//	/quit     exit
//	/retry    resend the last failed message
//	/history  print the transcript
type ChatCmd struct {
	Session string `help:"Session id (default: chat.session_id from config, or a new uuid)."`
}

func (c *ChatCmd) Run(rc *runContext) error {
	a, err := rc.open()
	if err != nil {
		return err
	}
	defer a.Close()

	chat := a.client.Chat()
	id := c.Session
	if id == "" {
		id = a.cfg.Chat.SessionID
	}
	var session *ris.ChatSession
	if id != "" {
		session = chat.Session(id)
	} else {
		session = chat.NewSession()
	}
	a.logger.Debug("chat session", zap.String("session_id", session.ID()))
	fmt.Fprintf(rc.stdout, "session %s, /quit to exit\n", session.ID())

	sc := bufio.NewScanner(rc.stdin)
	for {
		fmt.Fprint(rc.stdout, "> ")
		if !sc.Scan() {
			break
		}
		line := strings.TrimSpace(sc.Text())

		var reply ris.ChatReply
		switch line {
		case "":
			continue
		case "/quit":
			return nil
		case "/history":
			for _, msg := range session.Transcript() {
				fmt.Fprintln(rc.stdout, msg)
			}
			continue
		case "/retry":
			if session.Pending() == "" {
				fmt.Fprintln(rc.stdout, "nothing to retry")
				continue
			}
			reply, err = session.SendPending(rc.ctx)
		default:
			reply, err = session.Send(rc.ctx, line)
		}

		if err != nil {
			if rc.ctx.Err() != nil {
				return rc.ctx.Err()
			}
			fmt.Fprintf(rc.stderr, "error: %v (/retry to resend)\n", err)
			continue
		}
		if reply.Reply != "" {
			fmt.Fprintln(rc.stdout, reply.Reply)
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	return nil
}

// SummaryCmd prints the analytics summary.
type SummaryCmd struct {
	JSON bool `help:"Print JSON instead of text."`
}

func (c *SummaryCmd) Run(rc *runContext) error {
	a, err := rc.open()
	if err != nil {
		return err
	}
	defer a.Close()

	s, err := a.client.Summary(rc.ctx)
	if err != nil {
		return err
	}
	if c.JSON {
		return printJSON(rc.stdout, summaryView{TotalProducts: s.TotalProducts, AveragePrice: s.AveragePrice})
	}
	_, err = fmt.Fprintln(rc.stdout, s.String())
	return err
}

// HealthCmd probes the backend.
type HealthCmd struct{}

func (c *HealthCmd) Run(rc *runContext) error {
	a, err := rc.open()
	if err != nil {
		return err
	}
	defer a.Close()

	h, err := a.client.Health(rc.ctx)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(rc.stdout, h.Status)
	return err
}

// VersionCmd prints build metadata.
type VersionCmd struct{}

func (c *VersionCmd) Run(rc *runContext) error {
	_, err := fmt.Fprintf(rc.stdout, "risctl %s (commit %s, built %s)\n", version.Version, version.Commit, version.Date)
	return err
}

// parseFilters turns key=v1,v2 flags into a filter map. Repeated keys accumulate.
func parseFilters(raw []string) (map[string][]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(map[string][]string, len(raw))
	for _, f := range raw {
		key, values, ok := strings.Cut(f, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --filter %q: want key=v1,v2", f)
		}
		out[key] = append(out[key], strings.Split(values, ",")...)
	}
	return out, nil
}

// parseVectors turns name=0.1,0.2 flags into named vectors.
func parseVectors(raw []string) (map[string][]float64, error) {
	out := make(map[string][]float64, len(raw))
	for _, r := range raw {
		name, csv, ok := strings.Cut(r, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --vector %q: want name=0.1,0.2", r)
		}
		var vec []float64
		for _, s := range strings.Split(csv, ",") {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid --vector %q: %w", r, err)
			}
			vec = append(vec, v)
		}
		out[name] = vec
	}
	return out, nil
}
