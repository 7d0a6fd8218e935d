package catalog

import (
	"github.com/aiox-platform/contextflow/internal/workflow"
)

// Keyword lists deciding which analyses run.
var (
	FundamentalKeywords = []string{
		"valuation", "earnings", "revenue", "profit",
		"fundamental", "financials", "balance sheet", "p/e",
	}
	NewsKeywords = []string{
		"news", "announcement", "earnings report", "sentiment",
		"market", "update", "latest",
	}
	RiskKeywords = []string{
		"risk", "volatility", "beta", "downside",
		"safe", "conservative", "diversification",
	}
)

const (
	stepFundamentals = "FundamentalAnalysis"
	stepNews         = "AnalyzeNews"
	stepRisk         = "AssessRisk"
)

// Financial fetches market data, runs the analyses the query asks for, then
// synthesizes research and a recommendation.
func Financial(d Deps) (*workflow.Workflow, error) {
	mem := d.Memory

	specs := []agentSpec{
		{
			name: "Market Data Analyst",
			role: "You are a market data analyst.",
			instructions: []string{
				"Fetch real-time stock prices, financial metrics, and market data",
				"Analyze historical price trends and trading volumes",
				"Provide technical analysis insights",
				"Always cite the data sources and timestamps",
			},
			tools: []string{ToolMarketQuote},
		},
		{
			name: "Fundamental Analyst",
			role: "You are a fundamental analyst.",
			instructions: []string{
				"Analyze company financials (P/E, EPS, revenue, profit margins)",
				"Evaluate business model and competitive advantages",
				"Assess valuation metrics",
				"Provide data-driven insights",
			},
			tools: []string{ToolMarketQuote},
		},
		{
			name: "Financial News Analyst",
			role: "You are a financial news analyst.",
			instructions: []string{
				"Search for latest financial news and earnings reports",
				"Identify market-moving events and sentiment",
				"Analyze impact of news on stock performance",
				"Focus on recent and relevant information",
			},
			tools: []string{ToolWebSearch},
		},
		{
			name: "Risk Analyst",
			role: "You are a risk analyst.",
			instructions: []string{
				"Assess volatility and beta metrics",
				"Identify potential risks (market, sector, company-specific)",
				"Evaluate diversification needs",
				"Calculate risk-adjusted returns",
				"Be conservative and highlight all major risks",
			},
			tools: []string{ToolMarketQuote},
		},
		{
			name: "Portfolio Strategist",
			role: "You are a portfolio strategist.",
			instructions: []string{
				"Synthesize all research data into actionable insights",
				"Provide investment recommendations with clear reasoning",
				"Suggest position sizing and entry/exit strategies",
				"Create comprehensive investment summaries",
				"Balance growth potential with risk management",
			},
			tools: []string{ToolKnowledgeSearch},
		},
	}

	agents := make([]workflow.Agent, len(specs))
	for i, spec := range specs {
		a, err := d.newAgent(spec, mem)
		if err != nil {
			return nil, err
		}
		agents[i] = a
	}
	market, fundamentals, news, risk, strategist := agents[0], agents[1], agents[2], agents[3], agents[4]

	analysis := workflow.NewConditional("Analysis",
		workflow.KeywordRouter(map[string]func(*workflow.State) bool{
			stepFundamentals: workflow.WhenAny(FundamentalKeywords...),
			stepNews:         workflow.WhenAny(NewsKeywords...),
			stepRisk:         workflow.WhenAny(RiskKeywords...),
		}),
		d.step(stepFundamentals, fundamentals),
		d.step(stepNews, news),
		d.step(stepRisk, risk),
	)

	root := workflow.NewSequential("Financial Analysis",
		d.step("FetchMarketData", market),
		analysis,
		d.step("SynthesizeResearch", strategist).WithInput(func(s *workflow.State) string {
			return "Combine all research findings for the request:\n" + s.Input + "\n\n<research>\n" + s.Previous + "\n</research>"
		}),
		d.step("GenerateRecommendation", strategist).WithInput(func(s *workflow.State) string {
			return "Create the final investment recommendation in the form of a Time magazine article, based on:\n\n" + s.Previous
		}),
	)
	return d.newWorkflow("financial",
		"Comprehensive financial analysis and investment research workflow",
		root, mem), nil
}
