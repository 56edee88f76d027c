// Package agent answers natural-language questions about Athena query
// costs. With an Anthropic API key it drives the Messages API with tool
// definitions; without one it falls back to a keyword router over the same
// tools.
package agent

import (
	"context"
	"encoding/json"
	"strings"
	"time"
)

const systemPrompt = `You are an AI assistant helping users analyze AWS Athena query costs and performance.
You have access to tools that can:
1. Fetch query data from the database
2. Analyze cost increases between time periods
3. Compare expensive queries and find patterns

When interacting with users:
- Be conversational and helpful
- Ask clarifying questions if dates or parameters are unclear
- Use natural language to explain results
- Suggest follow-up analyses when relevant
- If dates are mentioned relatively (like "last week"), calculate the actual dates

Always use the appropriate tool when the user asks for data analysis. If the user is just asking a general question or needs clarification, respond conversationally without using tools.`

// Keep conversations bounded; older turns are dropped.
const historyLimit = 10

// Turn is one prior exchange in the conversation.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Agent routes user messages to the analysis tools, through the Anthropic
// API when available.
type Agent struct {
	tools  *Toolset
	client *AnthropicClient
	now    func() time.Time
}

// New creates an agent. client may be nil, which enables the keyword
// fallback instead of the Messages API.
func New(tools *Toolset, client *AnthropicClient) *Agent {
	return &Agent{tools: tools, client: client, now: time.Now}
}

// Chat processes one user message and returns the assistant's reply.
func (a *Agent) Chat(ctx context.Context, userMessage string, history []Turn) (string, error) {
	if a.client == nil {
		return a.fallback(ctx, userMessage, history), nil
	}

	if len(history) > historyLimit {
		history = history[len(history)-historyLimit:]
	}
	messages := make([]Message, 0, len(history)+1)
	for _, turn := range history {
		messages = append(messages, Message{Role: turn.Role, Content: turn.Content})
	}
	messages = append(messages, Message{Role: "user", Content: userMessage})

	resp, err := a.client.CreateMessage(ctx, systemPrompt, messages, a.tools.Definitions())
	if err != nil {
		return "", err
	}

	var text strings.Builder
	var toolResults []ToolResultBlock
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			text.WriteString(block.Text)
		case "tool_use":
			result, err := a.tools.CallTool(ctx, block.Name, block.Input)
			if err != nil {
				result = "Error: " + err.Error()
			}
			toolResults = append(toolResults, ToolResultBlock{
				Type:      "tool_result",
				ToolUseID: block.ID,
				Content:   result,
			})
		}
	}

	if len(toolResults) == 0 {
		if text.Len() == 0 {
			return "I've processed your request. How can I help you further?", nil
		}
		return text.String(), nil
	}

	// Hand the tool results back for the final natural-language answer.
	messages = append(messages,
		Message{Role: "assistant", Content: resp.Content},
		Message{Role: "user", Content: toolResults},
	)
	final, err := a.client.CreateMessage(ctx, systemPrompt, messages, nil)
	if err != nil {
		return "", err
	}

	text.Reset()
	for _, block := range final.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "I've processed your request. How can I help you further?", nil
	}
	return text.String(), nil
}

// fallback is the keyword router used when no API key is configured. It
// still calls the real tools, it just skips the language model.
func (a *Agent) fallback(ctx context.Context, userMessage string, history []Turn) string {
	lower := strings.ToLower(strings.TrimSpace(userMessage))

	if isGreeting(lower) && len(history) == 0 {
		return "Hi! I'm here to help you analyze your AWS Athena queries and costs.\n\n" +
			"I can help you understand:\n" +
			"- Query patterns and usage\n" +
			"- Cost trends and increases\n" +
			"- Expensive queries and optimization opportunities\n\n" +
			"What would you like to explore today?"
	}

	if isHelpRequest(lower) {
		return "I can help you analyze AWS Athena queries using these tools:\n\n" +
			"1. Fetch queries - export query data to CSV\n" +
			"   Example: \"Fetch queries from last 7 days\"\n\n" +
			"2. Analyze cost increase - compare baseline vs spike periods\n" +
			"   Example: \"Analyze cost increase: baseline 2025-12-01 to 2025-12-07, spike 2025-12-08 to 2025-12-14\"\n\n" +
			"3. Compare expensive queries - find and compare expensive query patterns\n" +
			"   Example: \"Compare expensive queries from last 30 days\"\n\n" +
			"Set ANTHROPIC_API_KEY to enable full natural-language understanding."
	}

	explicitAction := containsAny(lower,
		"fetch", "get me", "show me", "export", "download", "generate",
		"run", "execute", "analyze", "compare")

	if explicitAction {
		if reply, handled := a.routeAction(ctx, lower, userMessage); handled {
			return reply
		}
	}

	costMentioned := containsAny(lower, "cost", "spike", "increase", "went up", "higher", "expensive", "spending")
	if costMentioned {
		return "I can help you investigate the cost increase! To do a proper analysis, I need:\n" +
			"- The period when costs went up (specific dates or \"last week\")\n" +
			"- The baseline period to compare against\n\n" +
			"For example: \"Analyze cost increase: baseline 2025-12-01 to 2025-12-07, spike 2025-12-08 to 2025-12-14\""
	}

	return "I'm here to help you understand your AWS Athena queries and costs! You can ask me about:\n" +
		"- Cost trends and increases\n" +
		"- Query patterns and usage\n" +
		"- Expensive queries\n" +
		"- Optimization opportunities"
}

// routeAction picks a tool from keywords plus any dates found in the text.
func (a *Agent) routeAction(ctx context.Context, lower, original string) (string, bool) {
	dates := datePattern.FindAllString(original, -1)
	relStart, relEnd, hasRelative := relativeDateRange(lower, a.now())

	switch {
	case containsAny(lower, "cost", "spike", "increase") && strings.Contains(lower, "analyze"):
		var in toolInput
		switch {
		case len(dates) >= 4:
			in.BaselineStart, in.BaselineEnd, in.SpikeStart, in.SpikeEnd = dates[0], dates[1], dates[2], dates[3]
		case hasRelative:
			// Spike is the mentioned window, baseline the window before it.
			in.SpikeStart, in.SpikeEnd = relStart, relEnd
			in.BaselineStart, in.BaselineEnd = relativeDates(relStart, relEnd)
		default:
			return "I can help analyze that cost increase! I need both a baseline and a spike period, for example: " +
				"\"Analyze cost increase: baseline 2025-12-01 to 2025-12-07, spike 2025-12-08 to 2025-12-14\"", true
		}
		return a.invoke(ctx, toolAnalyzeCost, in), true

	case containsAny(lower, "expensive", "compare", "pattern"):
		in, ok := rangeInput(dates, relStart, relEnd, hasRelative)
		if !ok {
			return "I'd be happy to compare expensive queries! Could you specify the date range? For example: " +
				"\"Compare expensive queries from last 30 days\"", true
		}
		return a.invoke(ctx, toolCompareCostly, in), true

	case containsAny(lower, "fetch", "export", "download", "get me"):
		in, ok := rangeInput(dates, relStart, relEnd, hasRelative)
		if !ok {
			return "I'd be happy to fetch that data for you! Could you specify the date range? For example: " +
				"\"Fetch queries from last 7 days\"", true
		}
		return a.invoke(ctx, toolFetchQueries, in), true
	}
	return "", false
}

func (a *Agent) invoke(ctx context.Context, tool string, in toolInput) string {
	payload, err := json.Marshal(in)
	if err != nil {
		return "Error: " + err.Error()
	}
	result, err := a.tools.CallTool(ctx, tool, payload)
	if err != nil {
		return "Error: " + err.Error()
	}
	return result
}

func rangeInput(dates []string, relStart, relEnd string, hasRelative bool) (toolInput, bool) {
	switch {
	case len(dates) >= 2:
		return toolInput{StartDate: dates[0], EndDate: dates[1]}, true
	case hasRelative:
		return toolInput{StartDate: relStart, EndDate: relEnd}, true
	}
	return toolInput{}, false
}

// relativeDates shifts a resolved range one window earlier, for deriving a
// baseline period from a spike period.
func relativeDates(start, end string) (string, string) {
	s, err1 := time.Parse("2006-01-02", start)
	e, err2 := time.Parse("2006-01-02", end)
	if err1 != nil || err2 != nil {
		return start, end
	}
	days := int(e.Sub(s).Hours() / 24)
	return s.AddDate(0, 0, -days).Format("2006-01-02"), start
}

func isGreeting(lower string) bool {
	switch lower {
	case "hello", "hi", "hey", "help":
		return true
	}
	return strings.HasPrefix(lower, "hello") ||
		strings.HasPrefix(lower, "hi ") ||
		strings.HasPrefix(lower, "hey ")
}

func isHelpRequest(lower string) bool {
	return containsAny(lower,
		"what can you do", "capabilities", "what tools", "list tools", "how do i", "how can i")
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
