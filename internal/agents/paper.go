package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/agentlab/agentlab/internal/domain"
)

type AnalysisDepth string

const (
	DepthQuick  AnalysisDepth = "quick"
	DepthNormal AnalysisDepth = "normal"
	DepthDeep   AnalysisDepth = "deep"
)

// sectionHeaders are the headings the section splitter recognizes.
var sectionHeaders = []string{
	"Abstract", "Introduction", "Background", "Related Work",
	"Methods", "Methodology", "Implementation", "Approach",
	"Results", "Evaluation", "Discussion", "Conclusion",
	"Future Work", "References",
}

type PaperAgent struct {
	cfg         Config
	depth       AnalysisDepth
	extractCode bool
	extractMath bool
	client      Completer
	budget      BudgetProbe
}

type PaperOption func(*PaperAgent)

func WithDepth(depth AnalysisDepth) PaperOption {
	return func(a *PaperAgent) { a.depth = depth }
}

func WithCodeExtraction(enable bool) PaperOption {
	return func(a *PaperAgent) { a.extractCode = enable }
}

func WithMathExtraction(enable bool) PaperOption {
	return func(a *PaperAgent) { a.extractMath = enable }
}

func WithPaperBudget(probe BudgetProbe) PaperOption {
	return func(a *PaperAgent) { a.budget = probe }
}

func NewPaperAgent(cfg Config, client Completer, opts ...PaperOption) *PaperAgent {
	a := &PaperAgent{
		cfg:         cfg,
		depth:       DepthNormal,
		extractCode: true,
		extractMath: true,
		client:      client,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *PaperAgent) Config() Config {
	return a.cfg
}

func (a *PaperAgent) Depth() AnalysisDepth {
	return a.depth
}

// Process analyzes paper text section by section, then the extracted
// code and math fragments when enabled.
func (a *PaperAgent) Process(ctx context.Context, content string) (string, error) {
	sections := ExtractSections(content)

	var b strings.Builder
	fmt.Fprintf(&b, "\n=== Paper Analysis ===\n\nSections Found: %d\n", len(sections))

	systemPrompt := a.sectionPrompt()
	for i, section := range sections {
		if err := a.checkBudget(); err != nil {
			return "", err
		}
		resp, err := a.client.Complete(ctx, systemPrompt, section)
		if err != nil {
			return "", fmt.Errorf("analyze section %d: %w", i+1, err)
		}
		fmt.Fprintf(&b, "\nSection %d: %s\n", i+1, resp.Text)
	}

	if a.extractCode {
		snippets := ExtractCodeSnippets(content)
		if len(snippets) > 0 {
			b.WriteString("\n=== Code Analysis ===\n")
			for i, snippet := range snippets {
				if err := a.checkBudget(); err != nil {
					return "", err
				}
				resp, err := a.client.Complete(ctx,
					"Analyze this code snippet and explain its purpose:", snippet)
				if err != nil {
					return "", fmt.Errorf("analyze snippet %d: %w", i+1, err)
				}
				fmt.Fprintf(&b, "\nSnippet %d: %s\n%s\n", i+1, snippet, resp.Text)
			}
		}
	}

	if a.extractMath {
		formulas := ExtractMathFormulas(content)
		if len(formulas) > 0 {
			b.WriteString("\n=== Mathematical Analysis ===\n")
			for i, formula := range formulas {
				if err := a.checkBudget(); err != nil {
					return "", err
				}
				resp, err := a.client.Complete(ctx,
					"Explain this mathematical formula and its significance:", formula)
				if err != nil {
					return "", fmt.Errorf("analyze formula %d: %w", i+1, err)
				}
				fmt.Fprintf(&b, "\nFormula %d: %s\n%s\n", i+1, formula, resp.Text)
			}
		}
	}

	return b.String(), nil
}

func (a *PaperAgent) checkBudget() error {
	if a.budget != nil && a.budget.Exceeded() {
		return fmt.Errorf("paper analysis stopped: %w", domain.ErrBudgetExceeded)
	}
	return nil
}

func (a *PaperAgent) sectionPrompt() string {
	switch a.depth {
	case DepthQuick:
		return "Provide a brief summary of this paper section."
	case DepthDeep:
		return "Provide a comprehensive analysis of this section, including methodology, results, and implications."
	default:
		return "Analyze this paper section, highlighting key points and methodology."
	}
}

// ExtractSections splits paper text on recognized section headers. Text
// before the first header, or with no recognizable headers at all, is
// labeled "Full Content".
func ExtractSections(content string) []string {
	var sections []string
	var current strings.Builder
	currentHeader := "Full Content"

	flush := func() {
		if body := strings.TrimSpace(current.String()); body != "" {
			sections = append(sections, fmt.Sprintf("=== %s ===\n%s", currentHeader, body))
		}
		current.Reset()
	}

	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if isSectionHeader(trimmed) {
			flush()
			currentHeader = trimmed
			continue
		}
		if trimmed != "" {
			current.WriteString(line)
			current.WriteByte('\n')
		}
	}
	flush()

	if len(sections) == 0 {
		sections = append(sections, fmt.Sprintf("=== Full Content ===\n%s", strings.TrimSpace(content)))
	}
	return sections
}

func isSectionHeader(line string) bool {
	lower := strings.ToLower(line)
	for _, header := range sectionHeaders {
		// headers allow a little numbering or formatting around them
		if strings.Contains(lower, strings.ToLower(header)) && len(line) <= len(header)+5 {
			return true
		}
	}
	return false
}

// ExtractCodeSnippets collects fenced (``` or ~~~) and indented code
// blocks from paper text.
func ExtractCodeSnippets(content string) []string {
	var snippets []string
	var current strings.Builder
	inBlock := false

	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			if inBlock {
				if snippet := strings.TrimSpace(current.String()); snippet != "" {
					snippets = append(snippets, snippet)
				}
				current.Reset()
			}
			inBlock = !inBlock
			continue
		}

		indented := strings.HasPrefix(line, "    ") || strings.HasPrefix(line, "\t")
		if inBlock || indented {
			current.WriteString(line)
			current.WriteByte('\n')
		}
	}

	if snippet := strings.TrimSpace(current.String()); snippet != "" {
		snippets = append(snippets, snippet)
	}
	return snippets
}

// ExtractMathFormulas collects display equations (\begin{equation} or
// \[ blocks) and $-delimited inline math from paper text.
func ExtractMathFormulas(content string) []string {
	var formulas []string
	var current strings.Builder
	inEquation := false

	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)

		if strings.Contains(trimmed, `\begin{equation}`) || strings.Contains(trimmed, `\[`) {
			inEquation = true
			continue
		}
		if strings.Contains(trimmed, `\end{equation}`) || strings.Contains(trimmed, `\]`) {
			inEquation = false
			if formula := strings.TrimSpace(current.String()); formula != "" {
				formulas = append(formulas, formula)
			}
			current.Reset()
			continue
		}

		if inEquation {
			current.WriteString(trimmed)
			current.WriteByte('\n')
			continue
		}

		formulas = append(formulas, inlineMath(trimmed)...)
	}

	return formulas
}

// inlineMath pulls out the text between $ or $$ delimiters on one line.
func inlineMath(line string) []string {
	var formulas []string
	var current strings.Builder
	inMath := false

	for i := 0; i < len(line); i++ {
		if line[i] == '$' {
			// treat $$ as a single delimiter
			if i+1 < len(line) && line[i+1] == '$' {
				i++
			}
			if inMath {
				if formula := strings.TrimSpace(current.String()); formula != "" {
					formulas = append(formulas, formula)
				}
				current.Reset()
			}
			inMath = !inMath
			continue
		}
		if inMath {
			current.WriteByte(line[i])
		}
	}
	return formulas
}
