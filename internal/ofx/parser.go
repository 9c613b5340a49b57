// Package ofx turns OFX/QFX bank and credit-card statements into ledger
// entries.
package ofx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/Veraticus/rupeeflow/internal/common"
	"github.com/Veraticus/rupeeflow/internal/model"
	"github.com/aclindsa/ofxgo"
	"github.com/shopspring/decimal"
)

var (
	severityRegex = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	// Opening tags missing their closing bracket at the end of a line.
	tagFixRegex = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

// Parser reads OFX statements.
type Parser struct {
	logger *slog.Logger
}

// NewParser creates a parser. A nil logger uses slog.Default.
func NewParser(logger *slog.Logger) *Parser {
	return &Parser{logger: common.LoggerOrDefault(logger)}
}

// preprocessOFX fixes common formatting issues in bank exports.
func preprocessOFX(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")
	content = severityRegex.ReplaceAllStringFunc(content, strings.ToUpper)
	return tagFixRegex.ReplaceAllString(content, "$1>")
}

// Parse reads every bank and credit-card statement in r.
func (p *Parser) Parse(ctx context.Context, r io.Reader) ([]model.NewTransaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(preprocessOFX(string(content))))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}

	var (
		out               []model.NewTransaction
		bankStmts, ccStmts int
	)
	for _, msg := range resp.Bank {
		stmt, ok := msg.(*ofxgo.StatementResponse)
		if !ok || stmt.BankTranList == nil {
			continue
		}
		bankStmts++
		out = append(out, p.convertAll(ctx, stmt.BankTranList.Transactions)...)
	}
	for _, msg := range resp.CreditCard {
		stmt, ok := msg.(*ofxgo.CCStatementResponse)
		if !ok || stmt.BankTranList == nil {
			continue
		}
		ccStmts++
		out = append(out, p.convertAll(ctx, stmt.BankTranList.Transactions)...)
	}

	p.logger.InfoContext(ctx, "parsed OFX file",
		"transactions", len(out),
		"bank_statements", bankStmts,
		"cc_statements", ccStmts)
	return out, nil
}

func (p *Parser) convertAll(ctx context.Context, txns []ofxgo.Transaction) []model.NewTransaction {
	out := make([]model.NewTransaction, 0, len(txns))
	for _, tx := range txns {
		converted, err := convertTransaction(tx)
		if err != nil {
			p.logger.WarnContext(ctx, "skipping OFX transaction", "fitid", string(tx.FiTID), "error", err)
			continue
		}
		out = append(out, converted)
	}
	return out
}

func convertTransaction(tx ofxgo.Transaction) (model.NewTransaction, error) {
	amount, err := decimal.NewFromString(tx.TrnAmt.Rat.FloatString(4))
	if err != nil {
		return model.NewTransaction{}, fmt.Errorf("invalid amount: %w", err)
	}

	typ := model.TypeIncome
	if amount.IsNegative() || isDebit(tx.TrnType) {
		typ = model.TypeExpense
	}

	title := extractPayee(tx)
	if title == "" {
		title = "Bank transaction"
	}

	out := model.NewTransaction{
		Date:     tx.DtPosted.Time,
		Amount:   amount.Abs(),
		Title:    title,
		Type:     typ,
		Category: Categorize(title, typ, tx.TrnType == ofxgo.TrnTypeDirectDep),
		Notes:    notes(tx),
	}
	if err := out.Validate(); err != nil {
		return model.NewTransaction{}, err
	}
	return out, nil
}

func isDebit(t ofxgo.TrnType) bool {
	switch t {
	case ofxgo.TrnTypeDebit, ofxgo.TrnTypeCheck, ofxgo.TrnTypeATM, ofxgo.TrnTypePOS,
		ofxgo.TrnTypeFee, ofxgo.TrnTypeSrvChg, ofxgo.TrnTypeDirectDebit:
		return true
	}
	return false
}

func notes(tx ofxgo.Transaction) string {
	parts := []string{model.StatementIDPrefix + string(tx.FiTID)}
	if memo := strings.TrimSpace(string(tx.Memo)); memo != "" {
		parts = append(parts, memo)
	}
	return strings.Join(parts, "; ")
}

var payeePrefixes = []string{
	"POS PURCHASE ",
	"UPI/",
	"UPI-",
	"NEFT-",
	"IMPS-",
	"ACH DEBIT ",
	"DEBIT CARD PURCHASE ",
	"VISA PURCHASE ",
}

// extractPayee returns a cleaned payee name: PAYEE when present, else NAME
// with bank prefixes stripped, else MEMO.
func extractPayee(tx ofxgo.Transaction) string {
	if tx.Payee != nil && tx.Payee.Name != "" {
		return strings.TrimSpace(string(tx.Payee.Name))
	}

	name := strings.TrimSpace(string(tx.Name))
	if name == "" || isGenericDescription(name) {
		if memo := strings.TrimSpace(string(tx.Memo)); memo != "" {
			name = memo
		}
	}

	for _, prefix := range payeePrefixes {
		if strings.HasPrefix(strings.ToUpper(name), prefix) {
			name = strings.TrimSpace(name[len(prefix):])
			break
		}
	}

	// "MM/DD " date stamps some banks prepend.
	if len(name) > 5 && name[2] == '/' && name[5] == ' ' {
		name = strings.TrimSpace(name[6:])
	}
	return name
}

func isGenericDescription(name string) bool {
	switch strings.ToUpper(name) {
	case "DEBIT", "CREDIT", "PURCHASE", "PAYMENT", "POS TRANSACTION", "CARD PURCHASE":
		return true
	}
	return false
}
