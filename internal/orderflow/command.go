package orderflow

// Command is a state transition request. The set of commands is closed.
type Command interface {
	commandName() string
}

type NextStep struct{}
type PreviousStep struct{}

type GoToStep struct {
	Step StepID
}

// ResetFlow restores defaults but keeps the doctor and order history.
type ResetFlow struct{}

// ShippingPatch fields left nil are not changed.
type ShippingPatch struct {
	Method         *ShippingMethod `json:"method,omitempty"`
	Address        *string         `json:"address,omitempty"`
	Phone          *string         `json:"phone,omitempty"`
	Note           *string         `json:"note,omitempty"`
	PickupLocation *string         `json:"pickupLocation,omitempty"`
	DeliveryInfoID *string         `json:"deliveryInfoId,omitempty"`
}

type SetShipping struct {
	Patch ShippingPatch
}

type SetNote struct {
	Note string
}

type SetItems struct {
	Items []OrderItem
}

type SetPaymentMethod struct {
	Method PaymentMethod
}

type CardPatch struct {
	CardNumber *string `json:"cardNumber,omitempty"`
	CardHolder *string `json:"cardHolder,omitempty"`
	ExpiryDate *string `json:"expiryDate,omitempty"`
	CVV        *string `json:"cvv,omitempty"`
}

type SetCardDraft struct {
	Patch CardPatch
}

type PromptPayPatch struct {
	PhoneNumber *string `json:"phoneNumber,omitempty"`
}

type SetPromptPayDraft struct {
	Patch PromptPayPatch
}

// SetOrderID assigns the flow's order. Once assigned it only changes through ResetFlow.
type SetOrderID struct {
	OrderID string
}

type SetStatus struct {
	Status Status
}

// BeginFromHistory seeds a new flow from a history entry.
type BeginFromHistory struct {
	HistoryID string
}

type LoadHistory struct {
	Entries []HistoryEntry
}

type SetDoctor struct {
	Doctor DoctorInfo
}

func (NextStep) commandName() string          { return "NextStep" }
func (PreviousStep) commandName() string      { return "PreviousStep" }
func (GoToStep) commandName() string          { return "GoToStep" }
func (ResetFlow) commandName() string         { return "ResetFlow" }
func (SetShipping) commandName() string       { return "SetShipping" }
func (SetNote) commandName() string           { return "SetNote" }
func (SetItems) commandName() string          { return "SetItems" }
func (SetPaymentMethod) commandName() string  { return "SetPaymentMethod" }
func (SetCardDraft) commandName() string      { return "SetCardDraft" }
func (SetPromptPayDraft) commandName() string { return "SetPromptPayDraft" }
func (SetOrderID) commandName() string        { return "SetOrderID" }
func (SetStatus) commandName() string         { return "SetStatus" }
func (BeginFromHistory) commandName() string  { return "BeginFromHistory" }
func (LoadHistory) commandName() string       { return "LoadHistory" }
func (SetDoctor) commandName() string         { return "SetDoctor" }

// Reduce applies cmd to state and returns the next state. It never panics and never
// returns slices shared with its input; commands that make no sense are no-ops.
func Reduce(state State, cmd Command) State {
	next := state.Clone()

	switch c := cmd.(type) {
	case NextStep:
		if len(next.Steps) == 0 {
			return next
		}
		idx := IndexOfStep(next.Steps, next.CurrentStep) + 1
		if idx > len(next.Steps)-1 {
			idx = len(next.Steps) - 1
		}
		next.CurrentStep = next.Steps[idx]

	case PreviousStep:
		if len(next.Steps) == 0 {
			return next
		}
		idx := IndexOfStep(next.Steps, next.CurrentStep) - 1
		if idx < 0 {
			idx = 0
		}
		next.CurrentStep = next.Steps[idx]

	case GoToStep:
		if IndexOfStep(next.Steps, c.Step) >= 0 {
			next.CurrentStep = c.Step
		}

	case ResetFlow:
		fresh := DefaultState()
		fresh.History = next.History
		fresh.Doctor = next.Doctor
		return fresh

	case SetShipping:
		applyShippingPatch(&next.Shipping, c.Patch)

	case SetNote:
		next.Note = c.Note

	case SetItems:
		next.Items = cloneItems(c.Items)

	case SetPaymentMethod:
		if c.Method.Valid() {
			next.Payment.Method = c.Method
		}

	case SetCardDraft:
		card := &next.Payment.Card
		setIf(&card.CardNumber, c.Patch.CardNumber)
		setIf(&card.CardHolder, c.Patch.CardHolder)
		setIf(&card.ExpiryDate, c.Patch.ExpiryDate)
		setIf(&card.CVV, c.Patch.CVV)

	case SetPromptPayDraft:
		setIf(&next.Payment.PromptPay.PhoneNumber, c.Patch.PhoneNumber)

	case SetOrderID:
		if next.OrderID == "" {
			next.OrderID = c.OrderID
		}

	case SetStatus:
		if status := NormalizeStatus(string(c.Status)); status != "" {
			next.Status = status
		}

	case BeginFromHistory:
		for _, entry := range next.History {
			if entry.ID != c.HistoryID {
				continue
			}
			next.CurrentStep = StepShipping
			next.Doctor = entry.Doctor
			next.Items = cloneItems(entry.Items)
			next.Note = entry.Note
			next.Shipping = defaultShipping()
			next.OrderID = ""
			next.Status = StatusPending
			return next
		}

	case LoadHistory:
		next.History = make([]HistoryEntry, len(c.Entries))
		for i, entry := range c.Entries {
			entry.Items = cloneItems(entry.Items)
			next.History[i] = entry
		}

	case SetDoctor:
		next.Doctor = c.Doctor
	}

	return next
}

func applyShippingPatch(s *Shipping, p ShippingPatch) {
	if p.Method != nil && p.Method.Valid() {
		s.Method = *p.Method
	}
	setIf(&s.Address, p.Address)
	setIf(&s.Phone, p.Phone)
	setIf(&s.Note, p.Note)
	setIf(&s.PickupLocation, p.PickupLocation)
	setIf(&s.DeliveryInfoID, p.DeliveryInfoID)
}

func setIf(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

// ptr is shorthand for building patches.
func ptr[T any](v T) *T {
	return &v
}
