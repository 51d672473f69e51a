package ofx

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mhodges/ledgermatch/internal/model"
)

// Sample OFX data for testing.
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
<DTSERVER>20260315120000[0:GMT]
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
<CURDEF>EUR
<BANKACCTFROM>
<BANKID>123456789
<ACCTID>1234567890
<ACCTTYPE>CHECKING
</BANKACCTFROM>
<BANKTRANLIST>
<DTSTART>20260601120000[0:GMT]
<DTEND>20260630120000[0:GMT]
<STMTTRN>
<TRNTYPE>CREDIT
<DTPOSTED>20260605120000[0:GMT]
<TRNAMT>1500.00
<FITID>2026060501
<REFNUM>SALARY-JUN
<NAME>ACME Corp Payroll
</STMTTRN>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20260610120000[0:GMT]
<TRNAMT>-25.50
<FITID>2026061001
<NAME>STARBUCKS STORE #1234
</STMTTRN>
<STMTTRN>
<TRNTYPE>CHECK
<DTPOSTED>20260615120000[0:GMT]
<TRNAMT>-500.00
<FITID>2026061501
<CHECKNUM>1234
<NAME>CHECK #1234
</STMTTRN>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20260620120000[0:GMT]
<TRNAMT>-42.00
<FITID>2026062001
<NAME>DEBIT
<MEMO>Paper GmbH invoice 77
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>1000.00
<DTASOF>20260630120000[0:GMT]
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
<DTSERVER>20260315120000[0:GMT]
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
<CURDEF>EUR
<CCACCTFROM>
<ACCTID>4111111111111111
</CCACCTFROM>
<BANKTRANLIST>
<DTSTART>20260601120000[0:GMT]
<DTEND>20260630120000[0:GMT]
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20260608120000[0:GMT]
<TRNAMT>-45.99
<FITID>CC2026060801
<NAME>AMAZON.COM*RT4Y7HG2
</STMTTRN>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20260612120000[0:GMT]
<TRNAMT>-15.00
<FITID>CC2026061201
<NAME>NETFLIX.COM
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>-500.00
<DTASOF>20260630120000[0:GMT]
</LEDGERBAL>
</CCSTMTRS>
</CCSTMTTRNRS>
</CREDITCARDMSGSRSV1>
</OFX>`

func TestParseFile(t *testing.T) {
	tests := []struct {
		name          string
		ofxData       string
		expectedCount int
		expectedError bool
	}{
		{
			name:          "valid bank statement",
			ofxData:       sampleBankOFX,
			expectedCount: 4,
			expectedError: false,
		},
		{
			name:          "valid credit card statement",
			ofxData:       sampleCreditCardOFX,
			expectedCount: 2,
			expectedError: false,
		},
		{
			name:          "invalid OFX data",
			ofxData:       "not valid OFX",
			expectedCount: 0,
			expectedError: true,
		},
		{
			name:          "empty OFX",
			ofxData:       "",
			expectedCount: 0,
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parser := NewParser()
			reader := strings.NewReader(tt.ofxData)

			transactions, err := parser.ParseFile(context.Background(), reader,
				"Checking - ACME Bank", "ACME GmbH")

			if tt.expectedError {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Len(t, transactions, tt.expectedCount)
			}
		})
	}
}

func TestParseBankTransactions(t *testing.T) {
	parser := NewParser()
	reader := strings.NewReader(sampleBankOFX)

	transactions, err := parser.ParseFile(context.Background(), reader,
		"Checking - ACME Bank", "ACME GmbH")
	require.NoError(t, err)
	require.Len(t, transactions, 4)

	// Incoming salary payment.
	tx1 := transactions[0]
	assert.Equal(t, "2026060501", tx1.Name)
	assert.Equal(t, 1500.00, tx1.Deposit)
	assert.Equal(t, 0.0, tx1.Withdrawal)
	assert.Equal(t, 1500.00, tx1.UnallocatedAmount)
	assert.Equal(t, "SALARY-JUN", tx1.ReferenceNumber)
	assert.Equal(t, "ACME Corp Payroll", tx1.Description)
	assert.Equal(t, "EUR", tx1.Currency)
	assert.Equal(t, "Checking - ACME Bank", tx1.BankAccount)
	assert.Equal(t, "ACME GmbH", tx1.Company)
	assert.Equal(t, model.StatusUnreconciled, tx1.Status)
	assert.True(t, tx1.DocStatus.IsSubmitted())
	// Compare just the date components, ignoring timezone
	assert.Equal(t, 2026, tx1.Date.Year())
	assert.Equal(t, time.June, tx1.Date.Month())
	assert.Equal(t, 5, tx1.Date.Day())

	// Card payment, no reference.
	tx2 := transactions[1]
	assert.Equal(t, 25.50, tx2.Withdrawal)
	assert.Equal(t, 0.0, tx2.Deposit)
	assert.Equal(t, "", tx2.ReferenceNumber)
	assert.Equal(t, "STARBUCKS STORE #1234", tx2.Description)

	// Check: the check number becomes the reference.
	tx3 := transactions[2]
	assert.Equal(t, 500.00, tx3.Withdrawal)
	assert.Equal(t, "1234", tx3.ReferenceNumber)

	// Generic name falls back to the memo.
	tx4 := transactions[3]
	assert.Equal(t, "Paper GmbH invoice 77", tx4.Description)
}

func TestParseCreditCardTransactions(t *testing.T) {
	parser := NewParser()
	reader := strings.NewReader(sampleCreditCardOFX)

	transactions, err := parser.ParseFile(context.Background(), reader,
		"Card - ACME Bank", "ACME GmbH")
	require.NoError(t, err)
	require.Len(t, transactions, 2)

	tx1 := transactions[0]
	assert.Equal(t, "CC2026060801", tx1.Name)
	assert.Equal(t, 45.99, tx1.Withdrawal)
	assert.Equal(t, "AMAZON.COM*RT4Y7HG2", tx1.Description)
	assert.Equal(t, "Card - ACME Bank", tx1.BankAccount)

	tx2 := transactions[1]
	assert.Equal(t, "CC2026061201", tx2.Name)
	assert.Equal(t, 15.00, tx2.Withdrawal)
}

func TestPreprocessOFX(t *testing.T) {
	parser := NewParser()

	t.Run("normalizes severity case", func(t *testing.T) {
		fixed := parser.preprocessOFX("<SEVERITY>Info</SEVERITY>")
		assert.Equal(t, "<SEVERITY>INFO</SEVERITY>", fixed)
	})

	t.Run("closes bare tags", func(t *testing.T) {
		fixed := parser.preprocessOFX("<OFX>\n<BANKMSGSRSV1\n</OFX>")
		assert.Contains(t, fixed, "<BANKMSGSRSV1>")
	})

	t.Run("strips leading whitespace", func(t *testing.T) {
		fixed := parser.preprocessOFX("\r\n  OFXHEADER:100")
		assert.True(t, strings.HasPrefix(fixed, "OFXHEADER:100"))
	})

	t.Run("malformed file parses after preprocessing", func(t *testing.T) {
		mangled := strings.Replace(sampleBankOFX,
			"<SEVERITY>INFO", "<SEVERITY>Info</SEVERITY>", 2)
		mangled = strings.Replace(mangled, "<BANKMSGSRSV1>", "<BANKMSGSRSV1", 1)

		transactions, err := parser.ParseFile(context.Background(),
			strings.NewReader(mangled), "Checking - ACME Bank", "ACME GmbH")
		require.NoError(t, err)
		assert.Len(t, transactions, 4)
	})
}

func TestIsGenericDescription(t *testing.T) {
	tests := []struct {
		name    string
		generic bool
	}{
		{"DEBIT", true},
		{"debit", true},
		{"POS TRANSACTION", true},
		{"NETFLIX.COM", false},
		{"CHECK #1234", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.generic, isGenericDescription(tt.name), tt.name)
	}
}
