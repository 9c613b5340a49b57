package cli

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Veraticus/rupeeflow/internal/analytics"
	"github.com/Veraticus/rupeeflow/internal/model"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/shopspring/decimal"
)

const (
	barWidth   = 24
	shortIDLen = 8
)

// FormatAmount renders d as rupees with Indian digit grouping, for example
// ₹1,23,456.78.
func FormatAmount(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}
	fixed := d.StringFixed(2)
	whole, frac, _ := strings.Cut(fixed, ".")
	return sign + RupeeIcon + groupIndian(whole) + "." + frac
}

// groupIndian puts a comma after the last three digits and then after
// every two.
func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]
	var parts []string
	for len(head) > 2 {
		parts = append([]string{head[len(head)-2:]}, parts...)
		head = head[:len(head)-2]
	}
	if head != "" {
		parts = append([]string{head}, parts...)
	}
	return strings.Join(parts, ",") + "," + tail
}

// FormatImpact renders a transaction amount with its sign and color.
func FormatImpact(t model.Transaction) string {
	if t.IsExpense() {
		return ExpenseStyle.Render("-" + FormatAmount(t.Amount))
	}
	return IncomeStyle.Render("+" + FormatAmount(t.Amount))
}

// ShortID trims an identifier for display.
func ShortID(id string) string {
	if len(id) <= shortIDLen {
		return id
	}
	return id[:shortIDLen]
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(SubtleStyle).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return BoldStyle.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
}

// Table renders rows under headers with the standard table style.
func Table(headers []string, rows [][]string) string {
	t := newTable(headers...)
	for _, row := range rows {
		t.Row(row...)
	}
	return t.String()
}

// TransactionTable lists transactions in the given order.
func TransactionTable(txns []model.Transaction) string {
	if len(txns) == 0 {
		return SubtleStyle.Render("No transactions found.")
	}
	t := newTable("ID", "Date", "Title", "Category", "Amount")
	for _, txn := range txns {
		info := model.LookupCategory(txn.Category)
		t.Row(
			ShortID(txn.ID),
			txn.Date.Format("02 Jan 2006"),
			txn.Title,
			info.Icon+" "+string(txn.Category),
			FormatImpact(txn),
		)
	}
	return t.String()
}

// StatsLine summarizes income, expense and balance on one line.
func StatsLine(s analytics.Stats) string {
	balance := IncomeStyle.Render(FormatAmount(s.Balance))
	if s.Balance.IsNegative() {
		balance = ExpenseStyle.Render(FormatAmount(s.Balance))
	}
	return fmt.Sprintf("%s %s   %s %s   %s %s   %s",
		SubtleStyle.Render("Income"), IncomeStyle.Render(FormatAmount(s.Income)),
		SubtleStyle.Render("Expense"), ExpenseStyle.Render(FormatAmount(s.Expense)),
		SubtleStyle.Render("Balance"), balance,
		SubtleStyle.Render(fmt.Sprintf("(%d transactions)", s.Count)))
}

// Bar draws a horizontal bar filled to percent of width. percent is
// clamped to [0, 100].
func Bar(percent decimal.Decimal, width int, color lipgloss.Color) string {
	p := percent.IntPart()
	p = max(0, min(100, p))
	filled := int(p * int64(width) / 100)
	return lipgloss.NewStyle().Foreground(color).Render(strings.Repeat("█", filled)) +
		SubtleStyle.Render(strings.Repeat("░", width-filled))
}

// CategoryChart renders category totals as labelled bars.
func CategoryChart(totals []analytics.CategoryTotal) string {
	if len(totals) == 0 {
		return SubtleStyle.Render("Nothing to show for this period.")
	}
	var b strings.Builder
	for _, ct := range totals {
		fmt.Fprintf(&b, "%s %-14s %s %3d%%  %s\n",
			ct.Icon, ct.Category,
			Bar(decimal.NewFromInt(ct.Percent), barWidth, lipgloss.Color(ct.Color)),
			ct.Percent, FormatAmount(ct.Amount))
	}
	return strings.TrimRight(b.String(), "\n")
}

// WeeklyChart renders the five weekly buckets scaled to the largest one.
func WeeklyChart(buckets [5]analytics.WeeklyBucket) string {
	peak := decimal.Zero
	for _, wb := range buckets {
		peak = decimal.Max(peak, wb.Amount)
	}
	var b strings.Builder
	for _, wb := range buckets {
		pct := decimal.Zero
		if peak.IsPositive() {
			pct = wb.Amount.Div(peak).Mul(decimal.NewFromInt(100))
		}
		fmt.Fprintf(&b, "%-7s %s  %s\n", wb.Label, Bar(pct, barWidth, ExpenseColor), FormatAmount(wb.Amount))
	}
	return strings.TrimRight(b.String(), "\n")
}

// TrendTable renders twelve months of income and expense.
func TrendTable(points [12]analytics.MonthPoint) string {
	t := newTable("Month", "Income", "Expense", "Net")
	income, expense := decimal.Zero, decimal.Zero
	for _, p := range points {
		net := p.Income.Sub(p.Expense)
		t.Row(
			fmt.Sprintf("%s %d", p.Label, p.Year),
			IncomeStyle.Render(FormatAmount(p.Income)),
			ExpenseStyle.Render(FormatAmount(p.Expense)),
			FormatAmount(net),
		)
		income = income.Add(p.Income)
		expense = expense.Add(p.Expense)
	}
	t.Row(
		BoldStyle.Render("Total"),
		IncomeStyle.Render(FormatAmount(income)),
		ExpenseStyle.Render(FormatAmount(expense)),
		FormatAmount(income.Sub(expense)),
	)
	return t.String()
}

// BudgetPanel renders one progress bar per budget followed by near-limit
// and over-limit warnings.
func BudgetPanel(report []analytics.BudgetUtilization) string {
	if len(report) == 0 {
		return SubtleStyle.Render("No budgets set.")
	}
	var b strings.Builder
	var warnings []string
	for _, u := range report {
		color := SuccessColor
		switch {
		case u.OverLimit:
			color = ErrorColor
		case u.NearLimit:
			color = WarningColor
		}
		fmt.Fprintf(&b, "%-14s %s %5s%%  %s / %s\n",
			u.Category, Bar(u.Display, barWidth, color), u.Percent.Round(0).String(),
			FormatAmount(u.Spent), FormatAmount(u.Limit))

		switch {
		case u.OverLimit:
			warnings = append(warnings, FormatError(fmt.Sprintf("%s is over its limit by %s", u.Category, FormatAmount(u.Remaining().Neg()))))
		case u.NearLimit:
			warnings = append(warnings, FormatWarning(fmt.Sprintf("%s is at %s%% of its limit", u.Category, u.Percent.Round(0).String())))
		}
	}
	out := strings.TrimRight(b.String(), "\n")
	if len(warnings) > 0 {
		out += "\n\n" + strings.Join(warnings, "\n")
	}
	return out
}

var boldMarkup = regexp.MustCompile(`\*\*(.+?)\*\*`)

// RenderAdvice renders the light markup the advisor replies in: **bold**
// spans and "* " or "- " bullets.
func RenderAdvice(text string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	for i, line := range lines {
		trimmed := strings.TrimLeft(line, " ")
		indent := line[:len(line)-len(trimmed)]
		if strings.HasPrefix(trimmed, "* ") || strings.HasPrefix(trimmed, "- ") {
			line = indent + "• " + trimmed[2:]
		}
		lines[i] = boldMarkup.ReplaceAllStringFunc(line, func(m string) string {
			return BoldStyle.Render(m[2 : len(m)-2])
		})
	}
	return strings.Join(lines, "\n")
}
