// Package advisor turns a user's ledger into prompts for a text-completion
// model and maps every failure onto a fixed reply.
package advisor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/rupeeflow/internal/common"
	"github.com/Veraticus/rupeeflow/internal/llm"
	"github.com/Veraticus/rupeeflow/internal/model"
	"github.com/Veraticus/rupeeflow/internal/service"
)

// Canned replies.
const (
	MsgNoTransactions = "Add some transactions for this month to get AI feedback! ✨"
	MsgAdviceFailed   = "Unable to connect to AI advisor. Please try later."
	MsgAdviceEmpty    = "Your current tracking is solid. Maintain this discipline."
	MsgChatFailed     = "I'm having trouble connecting to my central brain. Please ask again in a moment!"
	MsgChatEmpty      = "I'm processing that. Could you please rephrase your question?"
)

const (
	// DefaultTimeout bounds one completion call.
	DefaultTimeout = 30 * time.Second
	temperature    = 0.7
	summaryLimit   = 50
	historyLimit   = 5
)

// Advisor implements service.Advisor on top of an llm.Client.
type Advisor struct {
	client  llm.Client
	logger  *slog.Logger
	timeout time.Duration
}

// New creates an advisor. A zero timeout means DefaultTimeout.
func New(client llm.Client, timeout time.Duration, logger *slog.Logger) *Advisor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Advisor{client: client, timeout: timeout, logger: common.LoggerOrDefault(logger)}
}

// Advice returns three short observations about txns. It never fails.
func (a *Advisor) Advice(ctx context.Context, txns []model.Transaction, budgets []model.Budget) string {
	if len(txns) == 0 {
		return MsgNoTransactions
	}

	reply, err := a.complete(ctx, advicePrompt(txns, budgets))
	if err != nil {
		a.logger.WarnContext(ctx, "advisor request failed", "error", err)
		return MsgAdviceFailed
	}
	if strings.TrimSpace(reply) == "" {
		return MsgAdviceEmpty
	}
	return reply
}

// Chat answers query with the ledger and recent history as context. It
// never fails.
func (a *Advisor) Chat(ctx context.Context, query string, txns []model.Transaction, history []model.ChatTurn) string {
	if strings.TrimSpace(query) == "" {
		return MsgChatEmpty
	}

	reply, err := a.complete(ctx, chatPrompt(query, txns, history))
	if err != nil {
		a.logger.WarnContext(ctx, "advisor chat failed", "error", err)
		return MsgChatFailed
	}
	if strings.TrimSpace(reply) == "" {
		return MsgChatEmpty
	}
	return reply
}

func (a *Advisor) complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	return a.client.Complete(ctx, llm.CompletionRequest{Prompt: prompt, Temperature: temperature})
}

// Summary renders up to the first 50 transactions on one line.
func Summary(txns []model.Transaction) string {
	if len(txns) > summaryLimit {
		txns = txns[:summaryLimit]
	}
	parts := make([]string, len(txns))
	for i, t := range txns {
		parts[i] = fmt.Sprintf("%s: ₹%s (%s - %s)", t.Type, t.Amount.String(), t.Category, t.Title)
	}
	return strings.Join(parts, ", ")
}

func budgetLine(budgets []model.Budget) string {
	if len(budgets) == 0 {
		return ""
	}
	parts := make([]string, len(budgets))
	for i, b := range budgets {
		parts[i] = fmt.Sprintf("%s limit ₹%s", b.Category, b.Limit.String())
	}
	return "Budgets: " + strings.Join(parts, ", ")
}

func advicePrompt(txns []model.Transaction, budgets []model.Budget) string {
	var b strings.Builder
	fmt.Fprintf(&b, "User Stats Summary: %s\n", Summary(txns))
	if line := budgetLine(budgets); line != "" {
		b.WriteString(line + "\n")
	}
	b.WriteString(`Context: You are a professional financial strategist for an Indian user managing their income and expenses in INR.
Task: Provide 3 high-impact, punchy financial observations.

Formatting Rules:
- Use **bold** for key numbers or terms.
- Use bullet points (-).
- Use a maximum of 2-3 sentences per point.
- Be direct and objective.
`)
	return b.String()
}

func chatPrompt(query string, txns []model.Transaction, history []model.ChatTurn) string {
	if len(history) > historyLimit {
		history = history[len(history)-historyLimit:]
	}
	if history == nil {
		history = []model.ChatTurn{}
	}
	recent, err := json.Marshal(history)
	if err != nil {
		recent = []byte("[]")
	}

	var b strings.Builder
	fmt.Fprintf(&b, `System Instruction: You are 'RupeeFlow AI', a professional and friendly Indian financial strategist.
The user manages their finances in INR.
Current Context: %s.

Style Rules:
1. Always use **Markdown** (bold, bullet points) to make your response readable.
2. Keep it conversational but data-driven.
3. If identifying a spending problem, suggest a specific **actionable solution**.
4. Focus on Indian context (investments like FD, SIP, Gold, etc. if relevant).
5. Limit responses to 2-3 short paragraphs.

`, Summary(txns))
	fmt.Fprintf(&b, "Recent History: %s\n", recent)
	fmt.Fprintf(&b, "User's Message: %s\n\n", query)
	b.WriteString("Please respond to the user using clear Markdown formatting.\n")
	return b.String()
}

var _ service.Advisor = (*Advisor)(nil)
