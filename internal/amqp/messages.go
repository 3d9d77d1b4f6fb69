package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Sync request scopes
const (
	ScopeBudgets = "budgets"
	ScopeEntries = "entries"
)

// SyncRequestMessage asks the worker to run a full sync. Entries requests
// carry the local id of the budget to refresh.
type SyncRequestMessage struct {
	ID        uuid.UUID `json:"id"`
	Scope     string    `json:"scope"`
	BudgetID  int64     `json:"budget_id,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewBudgetsSyncRequest creates a request for the budget list
func NewBudgetsSyncRequest(reason string) *SyncRequestMessage {
	return &SyncRequestMessage{
		ID:        uuid.New(),
		Scope:     ScopeBudgets,
		Reason:    reason,
		Timestamp: time.Now(),
	}
}

// NewEntriesSyncRequest creates a request for the entries of one budget
func NewEntriesSyncRequest(localBudgetID int64, reason string) *SyncRequestMessage {
	return &SyncRequestMessage{
		ID:        uuid.New(),
		Scope:     ScopeEntries,
		BudgetID:  localBudgetID,
		Reason:    reason,
		Timestamp: time.Now(),
	}
}

func (m *SyncRequestMessage) Validate() error {
	switch m.Scope {
	case ScopeBudgets:
		return nil
	case ScopeEntries:
		if m.BudgetID <= 0 {
			return fmt.Errorf("entries sync request without budget id")
		}
		return nil
	default:
		return fmt.Errorf("unknown sync scope %q", m.Scope)
	}
}

// ToJSON converts the message to JSON bytes
func (m *SyncRequestMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// SyncRequestMessageFromJSON decodes and validates a message
func SyncRequestMessageFromJSON(data []byte) (*SyncRequestMessage, error) {
	var msg SyncRequestMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
