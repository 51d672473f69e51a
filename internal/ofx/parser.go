// Package ofx imports bank statements from OFX/QFX files as bank
// transactions ready for reconciliation.
package ofx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/aclindsa/ofxgo"

	"github.com/mhodges/ledgermatch/internal/model"
)

// Parser reads OFX/QFX statement files.
type Parser struct{}

// NewParser creates an OFX parser.
func NewParser() *Parser {
	return &Parser{}
}

// preprocessOFX fixes common formatting issues in real-world OFX files
// before handing them to the strict parser.
func (p *Parser) preprocessOFX(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")

	// Mixed-case SEVERITY values (should be INFO, WARN, or ERROR)
	severityRegex := regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	content = severityRegex.ReplaceAllStringFunc(content, func(match string) string {
		return strings.ToUpper(match)
	})

	// SGML-style files sometimes drop the closing bracket on a bare tag
	tagFixRegex := regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
	content = tagFixRegex.ReplaceAllString(content, "$1>")

	return content
}

// ParseFile parses a statement file into bank transactions against the
// given bank account. Both bank and credit-card statements are read.
func (p *Parser) ParseFile(ctx context.Context, reader io.Reader, bankAccount, company string) ([]model.BankTransaction, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(p.preprocessOFX(string(content))))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}

	var transactions []model.BankTransaction
	var bankStmts, ccStmts int

	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok {
			bankStmts++
			if stmt.BankTranList == nil {
				continue
			}
			currency := stmt.CurDef.String()
			for _, ofxTx := range stmt.BankTranList.Transactions {
				transactions = append(transactions,
					p.convertTransaction(ofxTx, bankAccount, company, currency))
			}
		}
	}

	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok {
			ccStmts++
			if stmt.BankTranList == nil {
				continue
			}
			currency := stmt.CurDef.String()
			for _, ofxTx := range stmt.BankTranList.Transactions {
				transactions = append(transactions,
					p.convertTransaction(ofxTx, bankAccount, company, currency))
			}
		}
	}

	slog.Info("Parsed OFX file",
		"total_transactions", len(transactions),
		"bank_statements", bankStmts,
		"cc_statements", ccStmts)

	return transactions, nil
}

// convertTransaction maps one OFX transaction onto the reconciliation
// model. OFX amounts are signed: negative is money out.
func (p *Parser) convertTransaction(ofxTx ofxgo.Transaction, bankAccount, company, currency string) model.BankTransaction {
	amount, _ := ofxTx.TrnAmt.Float64()
	magnitude := amount
	if magnitude < 0 {
		magnitude = -magnitude
	}

	txn := model.BankTransaction{
		Name:              string(ofxTx.FiTID),
		Date:              ofxTx.DtPosted.Time,
		Description:       p.describe(ofxTx),
		Currency:          currency,
		BankAccount:       bankAccount,
		Company:           company,
		Status:            model.StatusUnreconciled,
		UnallocatedAmount: magnitude,
		DocStatus:         model.DocStatusSubmitted,
	}

	if amount < 0 {
		txn.Withdrawal = magnitude
	} else {
		txn.Deposit = magnitude
	}

	// The check number is the closest OFX gets to a bank reference.
	if ofxTx.CheckNum != "" {
		txn.ReferenceNumber = string(ofxTx.CheckNum)
	} else if ofxTx.RefNum != "" {
		txn.ReferenceNumber = string(ofxTx.RefNum)
	}

	return txn
}

// describe picks the most useful description from the OFX fields.
func (p *Parser) describe(tx ofxgo.Transaction) string {
	if tx.Payee != nil && tx.Payee.Name != "" {
		return string(tx.Payee.Name)
	}
	name := strings.TrimSpace(string(tx.Name))
	if tx.Memo != "" && isGenericDescription(name) {
		name = strings.TrimSpace(string(tx.Memo))
	}
	return name
}

// isGenericDescription checks if a transaction name carries no real
// information.
func isGenericDescription(name string) bool {
	generic := []string{
		"DEBIT",
		"CREDIT",
		"PURCHASE",
		"PAYMENT",
		"POS TRANSACTION",
		"CARD PURCHASE",
	}

	upperName := strings.ToUpper(name)
	for _, g := range generic {
		if upperName == g {
			return true
		}
	}
	return false
}
