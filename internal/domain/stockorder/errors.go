package stockorder

import "errors"

var (
	ErrOrderNotFound          = errors.New("stockorder: order not found")
	ErrInvalidOrderName       = errors.New("stockorder: order name cannot be empty")
	ErrInvalidStoreReference  = errors.New("stockorder: store and warehouse are required")
	ErrInvalidState           = errors.New("stockorder: invalid state")
	ErrInvalidStateTransition = errors.New("stockorder: state transition not allowed")
	ErrInvalidItemCount       = errors.New("stockorder: item count cannot be negative")
	ErrInvalidLineItem        = errors.New("stockorder: invalid line item")
	ErrInvalidQuantity        = errors.New("stockorder: quantity cannot be negative")
	ErrEditNotAllowed         = errors.New("stockorder: order state does not permit edits")
	ErrLineItemNotFound       = errors.New("stockorder: line item not found")
)
