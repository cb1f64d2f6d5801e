package agents

// Factory hands out agents that share one completion client, so every
// agent's usage lands in the same ledger.
type Factory struct {
	cfg      Config
	client   Completer
	searcher PaperSearcher
	budget   BudgetProbe
}

func NewFactory(cfg Config, client Completer, searcher PaperSearcher, budget BudgetProbe) *Factory {
	return &Factory{
		cfg:      cfg,
		client:   client,
		searcher: searcher,
		budget:   budget,
	}
}

func (f *Factory) ResearchAgent(opts ...ResearchOption) *ResearchAgent {
	if f.budget != nil {
		opts = append([]ResearchOption{WithBudget(f.budget)}, opts...)
	}
	return NewResearchAgent(f.cfg, f.client, f.searcher, opts...)
}

func (f *Factory) PaperAgent(opts ...PaperOption) *PaperAgent {
	if f.budget != nil {
		opts = append([]PaperOption{WithPaperBudget(f.budget)}, opts...)
	}
	return NewPaperAgent(f.cfg, f.client, opts...)
}
