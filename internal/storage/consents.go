package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mhodges/ledgermatch/internal/model"
)

// SaveConsent upserts the open-banking consent for a company.
func (s *SQLiteStorage) SaveConsent(ctx context.Context, consent *model.Consent) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if consent == nil {
		return fmt.Errorf("consent cannot be nil")
	}
	if err := validateString(consent.Company, "company"); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO consents (company, consent_id, consent_token, consent_expiry, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(company) DO UPDATE SET
			consent_id = excluded.consent_id,
			consent_token = excluded.consent_token,
			consent_expiry = excluded.consent_expiry,
			updated_at = CURRENT_TIMESTAMP`,
		consent.Company, consent.ConsentID, consent.ConsentToken, consent.Expiry)
	if err != nil {
		return fmt.Errorf("failed to save consent: %w", err)
	}
	return nil
}

// GetConsent retrieves the stored consent for a company.
func (s *SQLiteStorage) GetConsent(ctx context.Context, company string) (*model.Consent, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(company, "company"); err != nil {
		return nil, err
	}

	consent := &model.Consent{}
	err := s.db.QueryRowContext(ctx, `
		SELECT company, consent_id, consent_token, consent_expiry
		FROM consents WHERE company = ?`, company).
		Scan(&consent.Company, &consent.ConsentID, &consent.ConsentToken, &consent.Expiry)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrConsentNotFound, company)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query consent: %w", err)
	}
	return consent, nil
}
