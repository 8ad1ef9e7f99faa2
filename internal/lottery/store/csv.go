package store

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"

	"github.com/radieske/lottery-central-poc/internal/lottery/bet"
)

// CSV persiste as apostas em um arquivo plano, uma linha por aposta:
// agency,first_name,last_name,document,birthdate,number
//
// O arquivo não oferece escrita multi-registro atômica, então um único mutex
// serializa appends entre si e scans contra appends: um scan nunca observa um
// registro parcialmente escrito.
type CSV struct {
	mu   sync.Mutex
	path string
}

func NewCSV(path string) *CSV {
	return &CSV{path: path}
}

func (s *CSV) Append(_ context.Context, bets []bet.Bet) error {
	if len(bets) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open bet log: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	for _, b := range bets {
		row := []string{
			strconv.Itoa(b.Agency),
			b.FirstName,
			b.LastName,
			b.Document,
			b.Birthdate.Format(bet.BirthdateLayout),
			strconv.Itoa(b.Number),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("append bet: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush bet log: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync bet log: %w", err)
	}
	return nil
}

func (s *CSV) ScanAll(ctx context.Context, visit func(bet.Bet) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		// nenhuma aposta anexada ainda: histórico vazio
		return nil
	}
	if err != nil {
		return fmt.Errorf("open bet log: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 6
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		row, err := r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read bet log: %w", err)
		}

		agency, err := strconv.Atoi(row[0])
		if err != nil {
			return fmt.Errorf("corrupt agency in bet log: %w", err)
		}
		b, err := bet.New(agency, row[1], row[2], row[3], row[4], row[5])
		if err != nil {
			return fmt.Errorf("corrupt row in bet log: %w", err)
		}
		if err := visit(b); err != nil {
			return err
		}
	}
}
