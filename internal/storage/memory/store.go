// Package memory is an in-process row source, used for development and
// tests. Records can be seeded from CSV files in a data directory.
package memory

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"expensetracker/internal/core"
)

type Store struct {
	mu       sync.Mutex
	items    []core.ExpenseRecord
	cats     []core.Category
	settings map[int64]core.Settings
	nextID   int64
}

func New() *Store {
	return &Store{settings: make(map[int64]core.Settings), nextID: 1}
}

// NewFromFiles loads seed_expenses.csv and seed_budgets.csv from base.
// Missing files leave the store empty.
//
// seed_expenses.csv columns: owner_id,date,category,amount,notes
// seed_budgets.csv columns:  owner_id,currency_code,monthly_limit
func NewFromFiles(base string) (*Store, error) {
	s := New()
	if err := s.loadExpenses(filepath.Join(base, "seed_expenses.csv")); err != nil {
		return nil, err
	}
	if err := s.loadSettings(filepath.Join(base, "seed_budgets.csv")); err != nil {
		return nil, err
	}
	return s, nil
}

// Add stores rec under a new id, resolving its category by name.
func (s *Store) Add(rec core.ExpenseRecord) (int64, error) {
	if _, err := core.ParseAmount(rec.Amount); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.ID = s.nextID
	s.nextID++
	if rec.CategoryName != nil && rec.CategoryID == nil {
		c := s.category(*rec.CategoryName)
		rec.CategoryID = &c.ID
		rec.CategoryIcon = c.Icon
	}
	s.items = append(s.items, rec)
	return rec.ID, nil
}

// category returns the named category, creating it. Callers hold mu.
func (s *Store) category(name string) core.Category {
	for _, c := range s.cats {
		if c.Name == name {
			return c
		}
	}
	c := core.Category{ID: int64(len(s.cats) + 1), Name: name}
	s.cats = append(s.cats, c)
	return c
}

func (s *Store) SetSettings(ownerID int64, st core.Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[ownerID] = st
}

// Expenses returns a snapshot of matching records taken when iteration
// starts.
func (s *Store) Expenses(ctx context.Context, f core.FilterCriteria, order core.SortOrder) core.Rows {
	return func(yield func(core.ExpenseRecord, error) bool) {
		s.mu.Lock()
		var matched []core.ExpenseRecord
		for _, rec := range s.items {
			if f.Matches(rec) {
				matched = append(matched, rec)
			}
		}
		s.mu.Unlock()

		slices.SortStableFunc(matched, func(a, b core.ExpenseRecord) int {
			c := a.Date.Compare(b.Date.Time)
			if c == 0 {
				c = cmpInt(a.ID, b.ID)
			}
			if order == core.SortDateDesc {
				return -c
			}
			return c
		})
		if f.Limit > 0 && len(matched) > f.Limit {
			matched = matched[:f.Limit]
		}

		for _, rec := range matched {
			if err := ctx.Err(); err != nil {
				yield(core.ExpenseRecord{}, err)
				return
			}
			if !yield(rec, nil) {
				return
			}
		}
	}
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func (s *Store) Settings(_ context.Context, ownerID int64) (core.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings[ownerID], nil
}

func (s *Store) Categories(_ context.Context) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := slices.Clone(s.cats)
	slices.SortFunc(out, func(a, b core.Category) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

func (s *Store) Ping(context.Context) error { return nil }

func readCSV(path string, fields int, fn func(line int, rec []string) error) error {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comment = '#'
	r.FieldsPerRecord = fields
	r.TrimLeadingSpace = true
	for line := 1; ; line++ {
		rec, err := r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		if line == 1 && rec[0] == "owner_id" {
			continue
		}
		if err := fn(line, rec); err != nil {
			return fmt.Errorf("%s line %d: %w", filepath.Base(path), line, err)
		}
	}
}

func (s *Store) loadExpenses(path string) error {
	return readCSV(path, 5, func(_ int, rec []string) error {
		owner, err := strconv.ParseInt(rec[0], 10, 64)
		if err != nil {
			return fmt.Errorf("owner id: %w", err)
		}
		d, err := core.ParseDate(rec[1])
		if err != nil {
			return err
		}
		e := core.ExpenseRecord{OwnerID: owner, Date: d, Amount: rec[3]}
		if rec[2] != "" {
			e.CategoryName = core.StringPtr(rec[2])
		}
		if rec[4] != "" {
			e.Notes = core.StringPtr(rec[4])
		}
		_, err = s.Add(e)
		return err
	})
}

func (s *Store) loadSettings(path string) error {
	return readCSV(path, 3, func(_ int, rec []string) error {
		owner, err := strconv.ParseInt(rec[0], 10, 64)
		if err != nil {
			return fmt.Errorf("owner id: %w", err)
		}
		st := core.Settings{CurrencyCode: rec[1]}
		if rec[2] != "" {
			limit, err := decimal.NewFromString(rec[2])
			if err != nil {
				return fmt.Errorf("monthly limit: %w", err)
			}
			st.MonthlyLimit = &limit
		}
		s.SetSettings(owner, st)
		return nil
	})
}
