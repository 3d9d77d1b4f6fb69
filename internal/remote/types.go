package remote

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"budgetsync/internal/core"
)

// Layouts accepted for server timestamps, tried in order.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Timestamp decodes the date formats the budget API emits. The zero value
// stands for a missing or null timestamp.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}

// Ptr returns nil for a missing timestamp.
func (t Timestamp) Ptr() *time.Time {
	if t.IsZero() {
		return nil
	}
	return core.TimePtr(t.Time)
}

// ParseTimestamp parses s with the first matching layout. Timestamps without
// a zone are read as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// Budget is the server representation of a budget.
type Budget struct {
	ID     int64   `json:"id"`
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

type CreateBudgetRequest struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

// Entry is the server representation of a budget entry.
type Entry struct {
	ID               int64     `json:"id"`
	BudgetID         int64     `json:"budgetId"`
	Amount           float64   `json:"amount"`
	Description      string    `json:"description"`
	Category         string    `json:"category"`
	Type             string    `json:"type"`
	CreatedByEmail   string    `json:"createdByEmail"`
	UpdatedByEmail   string    `json:"updatedByEmail"`
	CreationDate     Timestamp `json:"creationDate"`
	ModificationDate Timestamp `json:"modificationDate"`
}

// EntryType maps the wire type onto the local enum.
func (e Entry) EntryType() core.EntryType {
	return core.EntryType(strings.ToLower(strings.TrimSpace(e.Type)))
}

type CreateEntryRequest struct {
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Type        string  `json:"type"`
}

type UpdateEntryRequest struct {
	ID          int64   `json:"id"`
	BudgetID    int64   `json:"budgetId"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Type        string  `json:"type"`
}

func NewCreateBudgetRequest(b core.Budget) CreateBudgetRequest {
	return CreateBudgetRequest{Name: b.Name, Amount: b.Amount}
}

func NewCreateEntryRequest(e core.BudgetEntry) CreateEntryRequest {
	return CreateEntryRequest{
		Amount:      e.Amount,
		Description: e.Description,
		Category:    e.Category,
		Type:        e.Type.String(),
	}
}

// NewUpdateEntryRequest addresses the entry by its server id within the
// server budget serverBudgetID.
func NewUpdateEntryRequest(e core.BudgetEntry, serverBudgetID int64) UpdateEntryRequest {
	return UpdateEntryRequest{
		ID:          e.ServerIDValue(),
		BudgetID:    serverBudgetID,
		Amount:      e.Amount,
		Description: e.Description,
		Category:    e.Category,
		Type:        e.Type.String(),
	}
}
