package stockorder

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/stockup/backend/internal/domain/integration"
	"github.com/stockup/backend/internal/domain/notification"
	"github.com/stockup/backend/internal/domain/shared"
	"github.com/stockup/backend/internal/domain/stockorder"
)

// MockStockOrderRepository is a mock implementation of StockOrderRepository
type MockStockOrderRepository struct {
	mock.Mock
}

func (m *MockStockOrderRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*stockorder.StockOrder, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*stockorder.StockOrder), args.Error(1)
}

func (m *MockStockOrderRepository) FindAll(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]stockorder.StockOrder, error) {
	args := m.Called(ctx, tenantID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]stockorder.StockOrder), args.Error(1)
}

func (m *MockStockOrderRepository) FindByState(ctx context.Context, tenantID uuid.UUID, state stockorder.State, filter shared.Filter) ([]stockorder.StockOrder, error) {
	args := m.Called(ctx, tenantID, state, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]stockorder.StockOrder), args.Error(1)
}

func (m *MockStockOrderRepository) Save(ctx context.Context, order *stockorder.StockOrder) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockStockOrderRepository) TransitionState(ctx context.Context, tenantID, id uuid.UUID, from, to stockorder.State) (bool, error) {
	args := m.Called(ctx, tenantID, id, from, to)
	return args.Bool(0), args.Error(1)
}

func (m *MockStockOrderRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	args := m.Called(ctx, tenantID, id)
	return args.Error(0)
}

func (m *MockStockOrderRepository) Count(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).(int64), args.Error(1)
}

var _ stockorder.StockOrderRepository = (*MockStockOrderRepository)(nil)

// MockLineItemRepository is a mock implementation of LineItemRepository
type MockLineItemRepository struct {
	mock.Mock
}

func (m *MockLineItemRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*stockorder.LineItem, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*stockorder.LineItem), args.Error(1)
}

func (m *MockLineItemRepository) FindByOrder(ctx context.Context, tenantID, orderID uuid.UUID) ([]stockorder.LineItem, error) {
	args := m.Called(ctx, tenantID, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]stockorder.LineItem), args.Error(1)
}

func (m *MockLineItemRepository) FindByOrderPaged(ctx context.Context, tenantID, orderID uuid.UUID, fulfilled *bool, filter shared.Filter) ([]stockorder.LineItem, int64, error) {
	args := m.Called(ctx, tenantID, orderID, fulfilled, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]stockorder.LineItem), args.Get(1).(int64), args.Error(2)
}

func (m *MockLineItemRepository) Save(ctx context.Context, item *stockorder.LineItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockLineItemRepository) SaveAll(ctx context.Context, items []stockorder.LineItem) error {
	args := m.Called(ctx, items)
	return args.Error(0)
}

func (m *MockLineItemRepository) ZeroUnreceived(ctx context.Context, tenantID, orderID uuid.UUID) (int64, error) {
	args := m.Called(ctx, tenantID, orderID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLineItemRepository) DeleteByOrder(ctx context.Context, tenantID, orderID uuid.UUID) error {
	args := m.Called(ctx, tenantID, orderID)
	return args.Error(0)
}

var _ stockorder.LineItemRepository = (*MockLineItemRepository)(nil)

// MockPushStatusRepository is a mock implementation of PushStatusRepository
type MockPushStatusRepository struct {
	mock.Mock
}

func (m *MockPushStatusRepository) Create(ctx context.Context, status *integration.PushStatus) error {
	args := m.Called(ctx, status)
	return args.Error(0)
}

func (m *MockPushStatusRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*integration.PushStatus, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.PushStatus), args.Error(1)
}

func (m *MockPushStatusRepository) AddProgress(ctx context.Context, id uuid.UUID, delta float64) error {
	args := m.Called(ctx, id, delta)
	return args.Error(0)
}

func (m *MockPushStatusRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	args := m.Called(ctx, tenantID, id)
	return args.Error(0)
}

var _ integration.PushStatusRepository = (*MockPushStatusRepository)(nil)

// MockTokenProvider is a mock implementation of TokenProvider
type MockTokenProvider struct {
	mock.Mock
}

func (m *MockTokenProvider) EnsureValidCredential(ctx context.Context, tenantID uuid.UUID, provider integration.ProviderKind) (*integration.Credential, error) {
	args := m.Called(ctx, tenantID, provider)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.Credential), args.Error(1)
}

var _ TokenProvider = (*MockTokenProvider)(nil)

// MockERPGateway is a mock implementation of ERPGateway
type MockERPGateway struct {
	mock.Mock
}

func (m *MockERPGateway) ExchangeCode(ctx context.Context, resource, code string) (integration.TokenSet, error) {
	args := m.Called(ctx, resource, code)
	return args.Get(0).(integration.TokenSet), args.Error(1)
}

func (m *MockERPGateway) RefreshTokens(ctx context.Context, credential *integration.Credential) (integration.TokenSet, error) {
	args := m.Called(ctx, credential)
	return args.Get(0).(integration.TokenSet), args.Error(1)
}

func (m *MockERPGateway) FetchEntities(ctx context.Context, credential *integration.Credential, table, companyFilterKey string) ([]integration.Entity, error) {
	args := m.Called(ctx, credential, table, companyFilterKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]integration.Entity), args.Error(1)
}

func (m *MockERPGateway) PushEntity(ctx context.Context, credential *integration.Credential, table string, record integration.Entity) error {
	args := m.Called(ctx, credential, table, record)
	return args.Error(0)
}

func (m *MockERPGateway) PushInBatches(ctx context.Context, credential *integration.Credential, table string, records []integration.Entity, progress integration.ProgressFunc) (*integration.BatchOutcome, error) {
	args := m.Called(ctx, credential, table, records, progress)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.BatchOutcome), args.Error(1)
}

var _ integration.ERPGateway = (*MockERPGateway)(nil)

// MockPOSGateway is a mock implementation of POSGateway
type MockPOSGateway struct {
	mock.Mock
}

func (m *MockPOSGateway) ExchangeCode(ctx context.Context, domainPrefix, code string) (integration.TokenSet, error) {
	args := m.Called(ctx, domainPrefix, code)
	return args.Get(0).(integration.TokenSet), args.Error(1)
}

func (m *MockPOSGateway) RefreshTokens(ctx context.Context, credential *integration.Credential) (integration.TokenSet, error) {
	args := m.Called(ctx, credential)
	return args.Get(0).(integration.TokenSet), args.Error(1)
}

func (m *MockPOSGateway) UpdateConsignmentProduct(ctx context.Context, credential *integration.Credential, update integration.ConsignmentUpdate) error {
	args := m.Called(ctx, credential, update)
	return args.Error(0)
}

func (m *MockPOSGateway) DeleteConsignmentProduct(ctx context.Context, credential *integration.Credential, consignmentProductID string) error {
	args := m.Called(ctx, credential, consignmentProductID)
	return args.Error(0)
}

func (m *MockPOSGateway) MarkConsignmentReceived(ctx context.Context, credential *integration.Credential, consignmentID string) error {
	args := m.Called(ctx, credential, consignmentID)
	return args.Error(0)
}

var _ integration.POSGateway = (*MockPOSGateway)(nil)

// MockStatusNotifier is a mock implementation of StatusNotifier
type MockStatusNotifier struct {
	mock.Mock
}

func (m *MockStatusNotifier) NotifyStatus(ctx context.Context, msg notification.StatusMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

var _ notification.StatusNotifier = (*MockStatusNotifier)(nil)

// terminalStatus matches the terminal event with the given success flag
func terminalStatus(messageID string, success bool) interface{} {
	return mock.MatchedBy(func(msg notification.StatusMessage) bool {
		return msg.MessageID == messageID && msg.Data["success"] == success
	})
}

// orderInState builds an order fixture in the given lifecycle state
func orderInState(tenantID uuid.UUID, state stockorder.State) *stockorder.StockOrder {
	order, err := stockorder.NewStockOrder(tenantID, "Weekly replenishment", uuid.New(), uuid.New())
	if err != nil {
		panic(err)
	}
	order.State = state
	return order
}

// posCredential builds a POS credential fixture
func posCredential(tenantID uuid.UUID) *integration.Credential {
	return &integration.Credential{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Provider:            integration.ProviderKindPOS,
		AccessToken:         "pos-access",
		RefreshToken:        "pos-refresh",
		TokenType:           "Bearer",
		Resource:            "https://examplestore.vendhq.com/",
		DomainPrefix:        "examplestore",
	}
}

// erpWorkerCredential builds an ERP credential fixture
func erpWorkerCredential(tenantID uuid.UUID) *integration.Credential {
	return &integration.Credential{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Provider:            integration.ProviderKindERP,
		AccessToken:         "erp-access",
		RefreshToken:        "erp-refresh",
		TokenType:           "Bearer",
		Resource:            "https://erp.example.com/",
		CompanyID:           "usmf",
	}
}
