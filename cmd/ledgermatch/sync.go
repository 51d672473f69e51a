package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mhodges/ledgermatch/internal/kosma"
	"github.com/mhodges/ledgermatch/internal/service"
)

func kosmaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kosma",
		Short: "Kosma open-banking commands",
		Long: `Connect bank accounts and pull their transactions through the Kosma
open-banking backend. Configure the backend under the kosma section of
the config file: url, api_token, customer_id, and ip_address.`,
	}

	cmd.AddCommand(kosmaConnectCmd())
	cmd.AddCommand(kosmaAccountsCmd())
	cmd.AddCommand(kosmaSyncCmd())
	return cmd
}

func initKosmaClient() (*kosma.Client, error) {
	return kosma.NewClient(kosma.Config{
		URL:        viper.GetString("kosma.url"),
		APIToken:   viper.GetString("kosma.api_token"),
		CustomerID: viper.GetString("kosma.customer_id"),
		IPAddress:  viper.GetString("kosma.ip_address"),
		Timeout:    viper.GetDuration("kosma.timeout"),
	})
}

func kosmaConnectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Start a bank authorization flow",
		Long: `Start a Kosma flow and print the client token to complete it in a
browser. Once the flow issues a consent, it is stored for later syncs.`,
		RunE: runKosmaConnect,
	}

	cmd.Flags().String("company", "", "company to store the consent for (required)")
	cmd.Flags().String("flow", "accounts", "flow type (accounts, transactions)")
	cmd.Flags().String("from", "", "transaction flow start date (YYYY-MM-DD)")
	cmd.Flags().String("to", "", "transaction flow end date (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("company")

	return cmd
}

func runKosmaConnect(cmd *cobra.Command, _ []string) error {
	company, _ := cmd.Flags().GetString("company")
	flowType, _ := cmd.Flags().GetString("flow")
	fromDate, _ := cmd.Flags().GetString("from")
	toDate, _ := cmd.Flags().GetString("to")

	client, err := initKosmaClient()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	flow, err := client.GetClientToken(ctx, flowType, nil, fromDate, toDate)
	if err != nil {
		return err
	}

	fmt.Printf("Session:      %s\n", flow.SessionID)
	fmt.Printf("Flow:         %s\n", flow.FlowID)
	fmt.Printf("Client token: %s\n", flow.ClientToken)
	fmt.Println("\nComplete the bank authorization in your browser with this client token.")

	if flow.ConsentID != "" {
		store, err := initStorage(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		syncer := kosma.NewSyncer(client, store, service.RetryOptions{})
		if err := syncer.StoreConsent(ctx, company, flow); err != nil {
			return err
		}
		fmt.Printf("Stored consent for %s (expires %s)\n", company, flow.ConsentExpiry)
	}

	return nil
}

func kosmaAccountsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "List bank accounts available under the stored consent",
		RunE:  runKosmaAccounts,
	}

	cmd.Flags().String("company", "", "company whose consent to use (required)")
	cmd.Flags().String("session", "", "fetch accounts from a completed flow session instead")
	cmd.Flags().String("flow-id", "", "flow id belonging to --session")
	_ = cmd.MarkFlagRequired("company")

	return cmd
}

func runKosmaAccounts(cmd *cobra.Command, _ []string) error {
	company, _ := cmd.Flags().GetString("company")
	sessionID, _ := cmd.Flags().GetString("session")
	flowID, _ := cmd.Flags().GetString("flow-id")

	client, err := initKosmaClient()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	var result *kosma.AccountsResult
	if sessionID != "" {
		result, err = client.FlowAccounts(ctx, sessionID, flowID)
		defer client.EndSession(ctx, sessionID)
	} else {
		consent, consentErr := store.GetConsent(ctx, company)
		if consentErr != nil {
			return consentErr
		}
		result, err = client.ConsentAccounts(ctx, consent)
	}
	if err != nil {
		return err
	}

	if result.BankName != "" {
		fmt.Printf("Bank: %s\n\n", result.BankName)
	}
	for _, account := range result.Accounts {
		fmt.Printf("%-30s %-25s %s\n", account.AccountID, account.AccountName, account.IBAN)
	}
	fmt.Printf("\n%d accounts\n", len(result.Accounts))

	return nil
}

func kosmaSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Pull transactions for a bank account",
		Long: `Fetch transactions from Kosma since the start date and store the
new ones against a local bank account. Already-imported transactions are
left untouched.

Example:
  ledgermatch kosma sync --company "ACME GmbH" --bank-account "Checking - ACME Bank" --account-id acc-123 --from 2026-01-01`,
		RunE: runKosmaSync,
	}

	cmd.Flags().String("company", "", "company whose consent to use (required)")
	cmd.Flags().String("bank-account", "", "local bank account to import into (required)")
	cmd.Flags().String("account-id", "", "Kosma account id to fetch (required)")
	cmd.Flags().String("from", "", "fetch transactions since this date (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("company")
	_ = cmd.MarkFlagRequired("bank-account")
	_ = cmd.MarkFlagRequired("account-id")

	return cmd
}

func runKosmaSync(cmd *cobra.Command, _ []string) error {
	company, _ := cmd.Flags().GetString("company")
	bankAccount, _ := cmd.Flags().GetString("bank-account")
	accountID, _ := cmd.Flags().GetString("account-id")

	startDate := time.Now().AddDate(0, -3, 0)
	if from, err := parseDateFlag(cmd, "from"); err != nil {
		return err
	} else if from != nil {
		startDate = *from
	}

	client, err := initKosmaClient()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	syncer := kosma.NewSyncer(client, store, service.RetryOptions{
		MaxAttempts:  viper.GetInt("kosma.max_retries"),
		InitialDelay: viper.GetDuration("kosma.retry_delay"),
	})

	received, err := syncer.SyncAccount(ctx, company, bankAccount, accountID, startDate)
	if err != nil {
		return err
	}

	fmt.Printf("Received %d transactions for %s\n", received, bankAccount)
	return nil
}
