package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/radieske/lottery-central-poc/internal/lottery/bet"
)

// Postgres persiste as apostas na tabela bets, com id serial preservando a
// ordem de append. A exclusão mútua entre writers e a consistência de snapshot
// dos scans vêm do próprio banco (transações + MVCC), sem lock no processo.
//
// Esquema esperado:
//
//	CREATE TABLE bets (
//	  id         BIGSERIAL PRIMARY KEY,
//	  agency     INT  NOT NULL,
//	  first_name TEXT NOT NULL,
//	  last_name  TEXT NOT NULL,
//	  document   TEXT NOT NULL,
//	  birthdate  DATE NOT NULL,
//	  number     INT  NOT NULL
//	);
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// Append insere o lote inteiro em uma transação: ou todos os registros ficam
// visíveis, ou nenhum
func (p *Postgres) Append(ctx context.Context, bets []bet.Bet) error {
	if len(bets) == 0 {
		return nil
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append: %w", err)
	}
	defer tx.Rollback()

	for _, b := range bets {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO bets (agency,first_name,last_name,document,birthdate,number)
			VALUES ($1,$2,$3,$4,$5,$6)`,
			b.Agency, b.FirstName, b.LastName, b.Document,
			b.Birthdate.Format(bet.BirthdateLayout), b.Number,
		)
		if err != nil {
			return fmt.Errorf("insert bet: %w", err)
		}
	}
	return tx.Commit()
}

// ScanAll percorre a tabela em ordem de inserção
func (p *Postgres) ScanAll(ctx context.Context, visit func(bet.Bet) error) error {
	rows, err := p.db.QueryContext(ctx, `
		SELECT agency, first_name, last_name, document,
		       to_char(birthdate, 'YYYY-MM-DD'), number
		FROM bets ORDER BY id`)
	if err != nil {
		return fmt.Errorf("scan bets: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			agency, number                          int
			firstName, lastName, document, birthISO string
		)
		if err := rows.Scan(&agency, &firstName, &lastName, &document, &birthISO, &number); err != nil {
			return fmt.Errorf("scan bet row: %w", err)
		}
		b, err := bet.New(agency, firstName, lastName, document, birthISO, fmt.Sprint(number))
		if err != nil {
			return fmt.Errorf("corrupt bet row: %w", err)
		}
		if err := visit(b); err != nil {
			return err
		}
	}
	return rows.Err()
}
