package orderflow

import (
	"context"
	"errors"
	"sync"

	"github.com/wolfman30/clinic-order-portal/internal/gateway"
)

type fakeGateway struct {
	mu    sync.Mutex
	calls map[string]int

	createOrderID  string
	createOrderErr error
	createdNotes   []string

	orders      map[string]*gateway.OrderEnvelope
	getOrderErr error
	// beforeGetOrder runs before GetOrder returns, e.g. to block a fetch in flight.
	beforeGetOrder func(id string)

	deliveryInfo      map[gateway.DeliveryMethod]*gateway.DeliveryInfo
	deliveryErr       error
	savedDelivery     []gateway.DeliveryInfo
	createdDeliveryID string

	listed  []gateway.Order
	listErr error

	medicines   map[string]*gateway.Medicine
	medicineErr error

	doctors       []gateway.Doctor
	doctorErr     error
	doctorQueries [][]string

	paymentInfoErr error
	attemptErr     error
	paymentInfos   []gateway.PaymentInfoRequest
	attempts       []gateway.PaymentAttemptRequest
	// beforePaymentInfo runs inside CreatePaymentInfo.
	beforePaymentInfo func()
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		calls:        map[string]int{},
		orders:       map[string]*gateway.OrderEnvelope{},
		deliveryInfo: map[gateway.DeliveryMethod]*gateway.DeliveryInfo{},
		medicines:    map[string]*gateway.Medicine{},
	}
}

func (f *fakeGateway) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
}

func (f *fakeGateway) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeGateway) CreateOrder(_ context.Context, req gateway.CreateOrderRequest) (string, error) {
	f.record("CreateOrder")
	if f.createOrderErr != nil {
		return "", f.createOrderErr
	}
	f.mu.Lock()
	f.createdNotes = append(f.createdNotes, req.Note)
	f.mu.Unlock()
	return f.createOrderID, nil
}

func (f *fakeGateway) GetOrder(_ context.Context, id string) (*gateway.OrderEnvelope, error) {
	f.record("GetOrder")
	if f.beforeGetOrder != nil {
		f.beforeGetOrder(id)
	}
	if f.getOrderErr != nil {
		return nil, f.getOrderErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if env, ok := f.orders[id]; ok {
		return env, nil
	}
	return &gateway.OrderEnvelope{}, nil
}

func (f *fakeGateway) ListOrders(context.Context) ([]gateway.Order, error) {
	f.record("ListOrders")
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listed, nil
}

func (f *fakeGateway) CreateDeliveryInfo(_ context.Context, info gateway.DeliveryInfo) (*gateway.DeliveryInfo, error) {
	f.record("CreateDeliveryInfo")
	if f.deliveryErr != nil {
		return nil, f.deliveryErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.savedDelivery = append(f.savedDelivery, info)
	out := info
	out.ID = gateway.ID(f.createdDeliveryID)
	return &out, nil
}

func (f *fakeGateway) UpdateDeliveryInfo(_ context.Context, id string, info gateway.DeliveryInfo) (*gateway.DeliveryInfo, error) {
	f.record("UpdateDeliveryInfo")
	if f.deliveryErr != nil {
		return nil, f.deliveryErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.savedDelivery = append(f.savedDelivery, info)
	return nil, nil
}

func (f *fakeGateway) DeliveryInfoByMethod(_ context.Context, method gateway.DeliveryMethod) (*gateway.DeliveryInfo, error) {
	f.record("DeliveryInfoByMethod")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deliveryInfo[method], nil
}

func (f *fakeGateway) GetMedicine(_ context.Context, id string) (*gateway.Medicine, error) {
	f.record("GetMedicine")
	if f.medicineErr != nil {
		return nil, f.medicineErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	med, ok := f.medicines[id]
	if !ok {
		return nil, errors.New("Failed to fetch medicine details")
	}
	return med, nil
}

func (f *fakeGateway) DoctorsByIDs(_ context.Context, ids []string) ([]gateway.Doctor, error) {
	f.record("DoctorsByIDs")
	f.mu.Lock()
	f.doctorQueries = append(f.doctorQueries, ids)
	f.mu.Unlock()
	if f.doctorErr != nil {
		return nil, f.doctorErr
	}
	return f.doctors, nil
}

func (f *fakeGateway) CreatePaymentInfo(_ context.Context, req gateway.PaymentInfoRequest) (*gateway.PaymentInfo, error) {
	f.record("CreatePaymentInfo")
	if f.beforePaymentInfo != nil {
		f.beforePaymentInfo()
	}
	if f.paymentInfoErr != nil {
		return nil, f.paymentInfoErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paymentInfos = append(f.paymentInfos, req)
	return &gateway.PaymentInfo{ID: "pi-1", PaymentMethod: req.PaymentMethod, Details: req.Details}, nil
}

func (f *fakeGateway) CreatePaymentAttempt(_ context.Context, req gateway.PaymentAttemptRequest) (*gateway.PaymentAttempt, error) {
	f.record("CreatePaymentAttempt")
	if f.attemptErr != nil {
		return nil, f.attemptErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts = append(f.attempts, req)
	return &gateway.PaymentAttempt{ID: "pa-1", OrderID: gateway.ID(req.OrderID), PaymentInfoID: gateway.ID(req.PaymentInfoID)}, nil
}

type fakeOrphans struct {
	mu      sync.Mutex
	records []Orphan
	err     error
}

func (f *fakeOrphans) RecordOrphan(_ context.Context, o Orphan) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, o)
	return f.err
}

// failingStorage rejects every write.
type failingStorage struct {
	MemoryStorage
}

func (f *failingStorage) Set(context.Context, string, string) error {
	return errors.New("storage unavailable")
}

var _ Gateway = (*fakeGateway)(nil)
var _ Gateway = (*gateway.Client)(nil)
