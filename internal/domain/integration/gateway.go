package integration

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Entity is a single untyped record exchanged with the ERP's OData endpoints.
// Table schemas live in the ERP; this side treats rows as opaque documents.
type Entity map[string]any

// ProgressFunc reports batch completion progress as percentage-point deltas.
// It is called once per finished batch, whether the batch succeeded or not.
type ProgressFunc func(ctx context.Context, delta float64)

// BatchFailure describes one batch that the ERP rejected
type BatchFailure struct {
	// BatchNumber is the 1-based position of the batch in the push
	BatchNumber int `json:"batch_number"`
	// RecordCount is the number of records the batch carried
	RecordCount int `json:"record_count"`
	// ErrorMessage is the failure description
	ErrorMessage string `json:"error_message"`
}

// BatchOutcome is the result of a batch push. A push with failed batches is
// still a completed push; callers decide what to do with the failures.
type BatchOutcome struct {
	// TotalRecords is the number of records submitted
	TotalRecords int `json:"total_records"`
	// TotalBatches is the number of batches the records were split into
	TotalBatches int `json:"total_batches"`
	// SucceededBatches is the number of batches the ERP accepted
	SucceededBatches int `json:"succeeded_batches"`
	// FailedBatches contains details about rejected batches
	FailedBatches []BatchFailure `json:"failed_batches,omitempty"`
	// FinishedAt is when the last batch completed
	FinishedAt time.Time `json:"finished_at"`
}

// AllSucceeded returns true if every batch was accepted
func (o *BatchOutcome) AllSucceeded() bool {
	return len(o.FailedBatches) == 0
}

// FailedRecordCount returns the total number of records in rejected batches
func (o *BatchOutcome) FailedRecordCount() int {
	n := 0
	for _, f := range o.FailedBatches {
		n += f.RecordCount
	}
	return n
}

// ERPGateway is the port interface for the ERP's OData surface.
// Implementations live in the infrastructure layer.
type ERPGateway interface {
	// ExchangeCode completes the OAuth authorization-code flow against the
	// identity provider for the given resource instance.
	ExchangeCode(ctx context.Context, resource, code string) (TokenSet, error)

	// RefreshTokens exchanges the credential's refresh token for a new token
	// set. The stored credential is not modified; persisting the new tokens
	// is the caller's responsibility.
	RefreshTokens(ctx context.Context, credential *Credential) (TokenSet, error)

	// FetchEntities reads all rows of a data entity across companies. When
	// companyFilterKey is non-empty and the credential has a selected
	// company, results are filtered to that company's rows.
	FetchEntities(ctx context.Context, credential *Credential, table, companyFilterKey string) ([]Entity, error)

	// PushEntity writes a single record to a data entity
	PushEntity(ctx context.Context, credential *Credential, table string, record Entity) error

	// PushInBatches writes records to a data entity through the $batch
	// endpoint. progress may be nil. Rejected batches are reported in the
	// outcome, not as an error.
	PushInBatches(ctx context.Context, credential *Credential, table string, records []Entity, progress ProgressFunc) (*BatchOutcome, error)
}

// ConsignmentUpdate carries the received quantity for one consignment line
type ConsignmentUpdate struct {
	// ConsignmentProductID is the POS-side line identifier
	ConsignmentProductID string
	// ReceivedQuantity is the counted quantity to record
	ReceivedQuantity decimal.Decimal
}

// POSGateway is the port interface for the point-of-sale system.
// Implementations live in the infrastructure layer.
type POSGateway interface {
	// ExchangeCode completes the OAuth authorization-code flow and returns
	// the initial token set for the retailer's domain.
	ExchangeCode(ctx context.Context, domainPrefix, code string) (TokenSet, error)

	// RefreshTokens exchanges the credential's refresh token for a new token set
	RefreshTokens(ctx context.Context, credential *Credential) (TokenSet, error)

	// UpdateConsignmentProduct records the received quantity on a consignment line
	UpdateConsignmentProduct(ctx context.Context, credential *Credential, update ConsignmentUpdate) error

	// DeleteConsignmentProduct removes a consignment line that received nothing
	DeleteConsignmentProduct(ctx context.Context, credential *Credential, consignmentProductID string) error

	// MarkConsignmentReceived closes the consignment on the POS side
	MarkConsignmentReceived(ctx context.Context, credential *Credential, consignmentID string) error
}
