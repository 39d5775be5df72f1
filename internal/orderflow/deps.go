package orderflow

import (
	"context"
	"sync/atomic"

	"github.com/wolfman30/clinic-order-portal/internal/gateway"
)

// OrderService is the part of the order service the flow uses.
type OrderService interface {
	CreateOrder(ctx context.Context, req gateway.CreateOrderRequest) (string, error)
	GetOrder(ctx context.Context, id string) (*gateway.OrderEnvelope, error)
}

// HistoryService lists the patient's previous orders.
type HistoryService interface {
	ListOrders(ctx context.Context) ([]gateway.Order, error)
}

type DeliveryService interface {
	CreateDeliveryInfo(ctx context.Context, info gateway.DeliveryInfo) (*gateway.DeliveryInfo, error)
	UpdateDeliveryInfo(ctx context.Context, id string, info gateway.DeliveryInfo) (*gateway.DeliveryInfo, error)
	DeliveryInfoByMethod(ctx context.Context, method gateway.DeliveryMethod) (*gateway.DeliveryInfo, error)
}

type MedicineService interface {
	GetMedicine(ctx context.Context, id string) (*gateway.Medicine, error)
}

type DoctorService interface {
	DoctorsByIDs(ctx context.Context, ids []string) ([]gateway.Doctor, error)
}

type PaymentService interface {
	CreatePaymentInfo(ctx context.Context, req gateway.PaymentInfoRequest) (*gateway.PaymentInfo, error)
	CreatePaymentAttempt(ctx context.Context, req gateway.PaymentAttemptRequest) (*gateway.PaymentAttempt, error)
}

// Gateway is everything the steps and navigator call remotely. *gateway.Client satisfies it.
type Gateway interface {
	OrderService
	HistoryService
	DeliveryService
	MedicineService
	DoctorService
	PaymentService
}

// Orphan is a payment-info record left behind when the attempt for it failed.
type Orphan struct {
	PaymentInfoID string
	OrderID       string
	PaymentMethod PaymentMethod
	Reason        string
}

// OrphanRecorder flags orphaned payment-info records for operators.
type OrphanRecorder interface {
	RecordOrphan(ctx context.Context, orphan Orphan) error
}

// busyGuard rejects a second submit while one is running.
type busyGuard struct {
	busy atomic.Bool
}

func (b *busyGuard) acquire() bool {
	return b.busy.CompareAndSwap(false, true)
}

func (b *busyGuard) release() {
	b.busy.Store(false)
}

// Busy reports whether a submit is running.
func (b *busyGuard) Busy() bool {
	return b.busy.Load()
}
