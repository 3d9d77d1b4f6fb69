package remote

import (
	"context"
	"fmt"
	"net/http"
)

// BudgetService wraps the /api/budgets endpoints.
type BudgetService struct {
	client *Client
}

func NewBudgetService(c *Client) *BudgetService {
	return &BudgetService{client: c}
}

func (s *BudgetService) ListBudgets(ctx context.Context) ([]Budget, error) {
	var out []Budget
	if err := s.client.do(ctx, http.MethodGet, "/api/budgets", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *BudgetService) CreateBudget(ctx context.Context, req CreateBudgetRequest) (Budget, error) {
	var out Budget
	if err := s.client.do(ctx, http.MethodPost, "/api/budgets", req, &out); err != nil {
		return Budget{}, err
	}
	return out, nil
}

// EntryService wraps the /api/budgets/{budgetId}/entries endpoints. Budget
// ids are server ids.
type EntryService struct {
	client *Client
}

func NewEntryService(c *Client) *EntryService {
	return &EntryService{client: c}
}

func entriesPath(budgetID int64) string {
	return fmt.Sprintf("/api/budgets/%d/entries", budgetID)
}

func (s *EntryService) ListEntries(ctx context.Context, budgetID int64) ([]Entry, error) {
	var out []Entry
	if err := s.client.do(ctx, http.MethodGet, entriesPath(budgetID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *EntryService) CreateEntry(ctx context.Context, budgetID int64, req CreateEntryRequest) (Entry, error) {
	var out Entry
	if err := s.client.do(ctx, http.MethodPost, entriesPath(budgetID), req, &out); err != nil {
		return Entry{}, err
	}
	return out, nil
}

func (s *EntryService) UpdateEntry(ctx context.Context, budgetID, entryID int64, req UpdateEntryRequest) (Entry, error) {
	var out Entry
	path := fmt.Sprintf("%s/%d", entriesPath(budgetID), entryID)
	if err := s.client.do(ctx, http.MethodPut, path, req, &out); err != nil {
		return Entry{}, err
	}
	return out, nil
}
