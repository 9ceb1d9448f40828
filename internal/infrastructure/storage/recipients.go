package storage

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/acsclub/clubnews/internal/domain"
	"github.com/acsclub/clubnews/internal/ports"
)

// RecipientDirectory reads verified members from the users table, which is
// owned by the account subsystem. The digest pipeline never writes to it.
type RecipientDirectory struct {
	db  *sqlx.DB
	sql sq.StatementBuilderType
}

var _ ports.RecipientDirectory = (*RecipientDirectory)(nil)

// NewRecipientDirectory wires an sqlx connection.
func NewRecipientDirectory(db *sqlx.DB) *RecipientDirectory {
	return &RecipientDirectory{
		db:  db,
		sql: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// VerifiedRecipients returns every member flagged as having confirmed their
// email address.
func (r *RecipientDirectory) VerifiedRecipients(ctx context.Context) ([]domain.Recipient, error) {
	query, args, err := r.sql.
		Select("email", "name").
		From("users").
		Where(sq.Or{
			sq.Eq{"is_verified": true},
			sq.Eq{"email_verified": true},
		}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build recipients query: %w", err)
	}

	recipients := []domain.Recipient{}
	if err := r.db.SelectContext(ctx, &recipients, query, args...); err != nil {
		return nil, fmt.Errorf("load verified recipients: %w", err)
	}
	return recipients, nil
}
