package ofx

import (
	"strings"

	"github.com/Veraticus/rupeeflow/internal/model"
)

type keywordRule struct {
	category model.Category
	keywords []string
}

// expenseRules are checked in order; the first match wins.
var expenseRules = []keywordRule{
	{model.CategoryTransport, []string{"uber", "ola", "metro", "rapido", "irctc", "petrol", "fuel"}},
	{model.CategoryFood, []string{"swiggy", "zomato", "restaurant", "cafe", "bigbasket", "blinkit"}},
	{model.CategoryRent, []string{"rent", "electricity", "broadband", "airtel", "jio", "water bill", "gas bill"}},
	{model.CategoryShopping, []string{"amazon", "flipkart", "myntra", "ajio"}},
	{model.CategoryHealth, []string{"pharmacy", "hospital", "apollo", "clinic", "medplus"}},
	{model.CategoryEntertainment, []string{"netflix", "bookmyshow", "spotify", "hotstar", "pvr"}},
	{model.CategoryInvestment, []string{"sip", "mutual fund", "zerodha", "groww", "ppf"}},
}

var (
	salaryKeywords    = []string{"salary", "payroll", "sal cr"}
	freelanceKeywords = []string{"upwork", "fiverr", "freelance", "invoice"}
)

// Categorize guesses a category from a payee name. directDeposit marks an
// OFX DIRECTDEP entry, which is treated as salary.
func Categorize(title string, typ model.TransactionType, directDeposit bool) model.Category {
	name := strings.ToLower(title)

	if typ == model.TypeIncome {
		switch {
		case directDeposit || containsAny(name, salaryKeywords):
			return model.CategorySalary
		case containsAny(name, freelanceKeywords):
			return model.CategoryFreelance
		default:
			return model.CategoryOthers
		}
	}

	for _, rule := range expenseRules {
		if containsAny(name, rule.keywords) {
			return rule.category
		}
	}
	return model.CategoryOthers
}

// containsAny matches keywords on word boundaries so "ola" does not match
// "chocolate".
func containsAny(name string, keywords []string) bool {
	words := strings.FieldsFunc(name, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	joined := " " + strings.Join(words, " ") + " "
	for _, kw := range keywords {
		if strings.Contains(joined, " "+kw+" ") {
			return true
		}
	}
	return false
}
