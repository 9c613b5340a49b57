package ofx

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/Veraticus/rupeeflow/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleBankOFX = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20240315120000[0:GMT]
<LANGUAGE>ENG
</SONRS>
</SIGNONMSGSRSV1>
<BANKMSGSRSV1>
<STMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<STMTRS>
<CURDEF>INR
<BANKACCTFROM>
<BANKID>HDFC0001
<ACCTID>50100012345
<ACCTTYPE>SAVINGS
</BANKACCTFROM>
<BANKTRANLIST>
<DTSTART>20240101120000[0:GMT]
<DTEND>20240131120000[0:GMT]
<STMTTRN>
<TRNTYPE>DIRECTDEP
<DTPOSTED>20240101120000[0:GMT]
<TRNAMT>85000.00
<FITID>B001
<NAME>ACME TECH PVT LTD
<MEMO>January payout
</STMTTRN>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240105120000[0:GMT]
<TRNAMT>-18000.00
<FITID>B002
<NAME>NEFT-Apartment Rent
</STMTTRN>
<STMTTRN>
<TRNTYPE>POS
<DTPOSTED>20240112120000[0:GMT]
<TRNAMT>-850.50
<FITID>B003
<NAME>UPI/ZOMATO
</STMTTRN>
<STMTTRN>
<TRNTYPE>CREDIT
<DTPOSTED>20240120120000[0:GMT]
<TRNAMT>12000.00
<FITID>B004
<NAME>Upwork Escrow
</STMTTRN>
<STMTTRN>
<TRNTYPE>FEE
<DTPOSTED>20240125120000[0:GMT]
<TRNAMT>59.00
<FITID>B005
<NAME>SMS ALERT CHARGES
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>100000.00
<DTASOF>20240131120000[0:GMT]
</LEDGERBAL>
</STMTRS>
</STMTTRNRS>
</BANKMSGSRSV1>
</OFX>`

const sampleCreditCardOFX = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20240315120000[0:GMT]
<LANGUAGE>ENG
</SONRS>
</SIGNONMSGSRSV1>
<CREDITCARDMSGSRSV1>
<CCSTMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<CCSTMTRS>
<CURDEF>INR
<CCACCTFROM>
<ACCTID>4111111111111111
</CCACCTFROM>
<BANKTRANLIST>
<DTSTART>20240201120000[0:GMT]
<DTEND>20240229120000[0:GMT]
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240203120000[0:GMT]
<TRNAMT>-1299.00
<FITID>C001
<NAME>PURCHASE
<MEMO>AMAZON PAY INDIA
</STMTTRN>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240210120000[0:GMT]
<TRNAMT>-649.00
<FITID>C002
<NAME>02/10 NETFLIX.COM
</STMTTRN>
</BANKTRANLIST>
</CCSTMTRS>
</CCSTMTTRNRS>
</CREDITCARDMSGSRSV1>
</OFX>`

func TestParser_BankStatement(t *testing.T) {
	p := NewParser(nil)
	txns, err := p.Parse(context.Background(), strings.NewReader(sampleBankOFX))
	require.NoError(t, err)
	require.Len(t, txns, 5)

	salary := txns[0]
	assert.Equal(t, model.TypeIncome, salary.Type)
	assert.Equal(t, model.CategorySalary, salary.Category)
	assert.True(t, decimal.NewFromInt(85000).Equal(salary.Amount))
	assert.Equal(t, "FITID B001; January payout", salary.Notes)
	assert.Equal(t, time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC), salary.Date.UTC())

	rent := txns[1]
	assert.Equal(t, "Apartment Rent", rent.Title)
	assert.Equal(t, model.TypeExpense, rent.Type)
	assert.Equal(t, model.CategoryRent, rent.Category)
	assert.True(t, decimal.NewFromInt(18000).Equal(rent.Amount))

	food := txns[2]
	assert.Equal(t, "ZOMATO", food.Title)
	assert.Equal(t, model.CategoryFood, food.Category)
	assert.True(t, decimal.RequireFromString("850.5").Equal(food.Amount))

	assert.Equal(t, model.CategoryFreelance, txns[3].Category)
	assert.Equal(t, model.TypeIncome, txns[3].Type)

	// A positive FEE is still money going out.
	assert.Equal(t, model.TypeExpense, txns[4].Type)
	assert.Equal(t, model.CategoryOthers, txns[4].Category)

	for _, txn := range txns {
		assert.NoError(t, txn.Validate())
	}
}

func TestParser_CreditCardStatement(t *testing.T) {
	p := NewParser(nil)
	txns, err := p.Parse(context.Background(), strings.NewReader(sampleCreditCardOFX))
	require.NoError(t, err)
	require.Len(t, txns, 2)

	assert.Equal(t, "AMAZON PAY INDIA", txns[0].Title)
	assert.Equal(t, model.CategoryShopping, txns[0].Category)
	assert.Equal(t, "NETFLIX.COM", txns[1].Title)
	assert.Equal(t, model.CategoryEntertainment, txns[1].Category)
}

func TestParser_Errors(t *testing.T) {
	p := NewParser(nil)

	_, err := p.Parse(context.Background(), strings.NewReader("not ofx"))
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Parse(ctx, strings.NewReader(sampleBankOFX))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCategorize(t *testing.T) {
	tests := []struct {
		title         string
		typ           model.TransactionType
		directDeposit bool
		want          model.Category
	}{
		{"Uber Trip", model.TypeExpense, false, model.CategoryTransport},
		{"OLA CABS", model.TypeExpense, false, model.CategoryTransport},
		{"Chocolate Factory", model.TypeExpense, false, model.CategoryOthers},
		{"Swiggy Instamart", model.TypeExpense, false, model.CategoryFood},
		{"BESCOM Electricity", model.TypeExpense, false, model.CategoryRent},
		{"Flipkart Internet", model.TypeExpense, false, model.CategoryShopping},
		{"Apollo Pharmacy", model.TypeExpense, false, model.CategoryHealth},
		{"BookMyShow", model.TypeExpense, false, model.CategoryEntertainment},
		{"Zerodha Broking", model.TypeExpense, false, model.CategoryInvestment},
		{"HDFC Mutual Fund SIP", model.TypeExpense, false, model.CategoryInvestment},
		{"Random Store", model.TypeExpense, false, model.CategoryOthers},
		{"ACME Payroll", model.TypeIncome, false, model.CategorySalary},
		{"ACME", model.TypeIncome, true, model.CategorySalary},
		{"Fiverr payout", model.TypeIncome, false, model.CategoryFreelance},
		{"Refund", model.TypeIncome, false, model.CategoryOthers},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			got := Categorize(tt.title, tt.typ, tt.directDeposit)
			assert.Equal(t, tt.want, got)
			assert.True(t, got.AllowsType(tt.typ))
		})
	}
}

func TestPreprocessOFX(t *testing.T) {
	in := "\n\n  OFXHEADER:100\n<SEVERITY>Warn</SEVERITY>\n<CODE\n"
	got := preprocessOFX(in)
	assert.True(t, strings.HasPrefix(got, "OFXHEADER:100"))
	assert.Contains(t, got, "<SEVERITY>WARN</SEVERITY>")
	assert.Contains(t, got, "<CODE>")
}
