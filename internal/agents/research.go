package agents

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/agentlab/agentlab/internal/domain"
)

type ResearchStyle string

const (
	StyleBroad  ResearchStyle = "broad"
	StyleDeep   ResearchStyle = "deep"
	StyleHybrid ResearchStyle = "hybrid"
)

// maxConcurrentSummaries bounds parallel per-paper completions so a
// large result set cannot stampede the provider.
const maxConcurrentSummaries = 4

type ResearchAgent struct {
	cfg          Config
	style        ResearchStyle
	maxPapers    int
	minCitations int
	client       Completer
	searcher     PaperSearcher
	budget       BudgetProbe
}

type ResearchOption func(*ResearchAgent)

func WithStyle(style ResearchStyle) ResearchOption {
	return func(a *ResearchAgent) { a.style = style }
}

func WithMaxPapers(n int) ResearchOption {
	return func(a *ResearchAgent) { a.maxPapers = n }
}

func WithMinCitations(n int) ResearchOption {
	return func(a *ResearchAgent) { a.minCitations = n }
}

func WithBudget(probe BudgetProbe) ResearchOption {
	return func(a *ResearchAgent) { a.budget = probe }
}

func NewResearchAgent(cfg Config, client Completer, searcher PaperSearcher, opts ...ResearchOption) *ResearchAgent {
	a := &ResearchAgent{
		cfg:          cfg,
		style:        StyleHybrid,
		maxPapers:    10,
		minCitations: 5,
		client:       client,
		searcher:     searcher,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *ResearchAgent) Config() Config {
	return a.cfg
}

func (a *ResearchAgent) Style() ResearchStyle {
	return a.style
}

// Process runs the three research phases for a query and returns the
// assembled report text.
func (a *ResearchAgent) Process(ctx context.Context, query string) (string, error) {
	var b strings.Builder

	b.WriteString("\n=== Phase 1: Literature Review ===\n")
	papers, err := a.SearchPapers(ctx, query)
	if err != nil {
		return "", err
	}
	fmt.Fprintf(&b, "Found %d relevant papers:\n", len(papers))
	for _, paper := range papers {
		fmt.Fprintf(&b, "- %s\n", paper)
	}

	b.WriteString("\n=== Phase 2: Experimentation ===\n")
	b.WriteString("Experiment Plan:\n")
	b.WriteString(a.experimentPlan())

	b.WriteString("\n=== Phase 3: Report Writing ===\n")
	b.WriteString("Report generation in progress...\n")

	return b.String(), nil
}

func (a *ResearchAgent) experimentPlan() string {
	switch a.style {
	case StyleDeep:
		return "1. In-depth analysis of key papers\n" +
			"2. Implementation of core methods\n" +
			"3. Comparative evaluation\n"
	case StyleBroad:
		return "1. Survey of multiple approaches\n" +
			"2. Meta-analysis of results\n" +
			"3. Synthesis of findings\n"
	default:
		return "1. Initial broad survey\n" +
			"2. Deep dive into promising approaches\n" +
			"3. Selective implementation and evaluation\n"
	}
}

// SearchPapers queries arxiv and summarizes each hit through the
// completion client. Summaries run concurrently but the returned slice
// keeps the search order.
func (a *ResearchAgent) SearchPapers(ctx context.Context, query string) ([]string, error) {
	found, err := a.searcher.FindPapersByQuery(ctx, query, a.maxPapers)
	if err != nil {
		return nil, fmt.Errorf("search papers: %w", err)
	}
	slog.Debug("paper search finished", "query", query, "papers", len(found))

	system := fmt.Sprintf(
		"You are a research assistant tasked with analyzing papers relevant to: %s\n"+
			"For each paper, provide a title and 1-2 sentence summary.\n"+
			"Focus on papers that have:\n"+
			"1. Direct relevance to the query\n"+
			"2. Novel methodologies or findings\n"+
			"3. Recent publication dates when possible\n",
		query)

	summaries := make([]string, len(found))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentSummaries)

	for i, paper := range found {
		g.Go(func() error {
			if a.budget != nil && a.budget.Exceeded() {
				return fmt.Errorf("paper summaries stopped: %w", domain.ErrBudgetExceeded)
			}

			prompt := fmt.Sprintf(
				"Please analyze this paper:\nTitle: %s\nSummary: %s\nPublished: %s\nCategories: %s\n",
				paper.Title, paper.Summary, paper.Published, strings.Join(paper.Categories, ", "))

			resp, err := a.client.Complete(gctx, system, prompt)
			if err != nil {
				return fmt.Errorf("summarize %q: %w", paper.PaperID, err)
			}

			summaries[i] = fmt.Sprintf(
				"Title: %s\nSummary: %s\nArXiv ID: %s\nPublished: %s\nCategories: %s\n",
				paper.Title, strings.TrimSpace(resp.Text), paper.PaperID,
				paper.Published, strings.Join(paper.Categories, ", "))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return summaries, nil
}

// AnalyzePaper produces a full analysis of already-retrieved paper text.
func (a *ResearchAgent) AnalyzePaper(ctx context.Context, paperID, paperText string) (string, error) {
	system := "You are a research assistant tasked with analyzing a scientific paper.\n" +
		"Please provide a comprehensive analysis including:\n" +
		"1. Key findings and contributions\n" +
		"2. Methodology and approach\n" +
		"3. Important equations or algorithms\n" +
		"4. Experimental results and validity\n" +
		"5. Potential applications and limitations\n"

	resp, err := a.client.Complete(ctx, system, "Please analyze this paper:\n"+paperText)
	if err != nil {
		return "", fmt.Errorf("analyze %q: %w", paperID, err)
	}
	return fmt.Sprintf("Analysis of paper %s\n%s", paperID, resp.Text), nil
}
