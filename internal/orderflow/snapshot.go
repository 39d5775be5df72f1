package orderflow

import (
	"encoding/json"
	"fmt"
)

// SnapshotKey is the single storage key the flow persists under.
const SnapshotKey = "order-flow-state"

// Snapshot is the persisted subset of State. Payment drafts are never part of it.
type Snapshot struct {
	CurrentStep StepID      `json:"currentStep"`
	Shipping    Shipping    `json:"shipping"`
	Items       []OrderItem `json:"items"`
	Note        string      `json:"note"`
	OrderID     string      `json:"orderId,omitempty"`
	Status      Status      `json:"status"`
}

// SnapshotOf extracts the persistable subset of s.
func SnapshotOf(s State) Snapshot {
	return Snapshot{
		CurrentStep: s.CurrentStep,
		Shipping:    s.Shipping,
		Items:       cloneItems(s.Items),
		Note:        s.Note,
		OrderID:     s.OrderID,
		Status:      s.Status,
	}
}

func encodeSnapshot(s State) (string, error) {
	data, err := json.Marshal(SnapshotOf(s))
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	return string(data), nil
}

// Rehydrate merges a persisted snapshot over defaults. Steps and payment always come
// from defaults; fields absent from the snapshot keep their default values.
func Rehydrate(raw string) (State, error) {
	state := DefaultState()
	if raw == "" {
		return state, nil
	}

	var persisted struct {
		CurrentStep *StepID         `json:"currentStep"`
		Shipping    json.RawMessage `json:"shipping"`
		Items       []OrderItem     `json:"items"`
		Note        *string         `json:"note"`
		OrderID     *string         `json:"orderId"`
		Status      *string         `json:"status"`
	}
	if err := json.Unmarshal([]byte(raw), &persisted); err != nil {
		return DefaultState(), fmt.Errorf("decode snapshot: %w", err)
	}

	if persisted.CurrentStep != nil && IndexOfStep(state.Steps, *persisted.CurrentStep) >= 0 {
		state.CurrentStep = *persisted.CurrentStep
	}
	if len(persisted.Shipping) > 0 && string(persisted.Shipping) != "null" {
		shipping := defaultShipping()
		if err := json.Unmarshal(persisted.Shipping, &shipping); err != nil {
			return DefaultState(), fmt.Errorf("decode snapshot shipping: %w", err)
		}
		if !shipping.Method.Valid() {
			shipping.Method = ShippingHomeDelivery
		}
		state.Shipping = shipping
	}
	if persisted.Items != nil {
		state.Items = persisted.Items
	}
	if persisted.Note != nil {
		state.Note = *persisted.Note
	}
	if persisted.OrderID != nil {
		state.OrderID = *persisted.OrderID
	}
	if persisted.Status != nil {
		if status := NormalizeStatus(*persisted.Status); status != "" {
			state.Status = status
		}
	}
	return state, nil
}
