package service

import (
	"fmt"

	"github.com/google/uuid"
)

// ErrorKind decides how the HTTP layer reports an error.
type ErrorKind int

const (
	KindValidation ErrorKind = iota + 1
	KindConflict
	KindNotFound
	KindInvariant
	KindUnauthorized
	KindForbidden
)

// Error is the recoverable error type returned by every service.
// Two errors match under errors.Is when their codes are equal, so callers
// compare against the sentinels below while still getting the details.
type Error struct {
	Kind      ErrorKind `json:"-"`
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Field     string    `json:"field,omitempty"`
	Invariant string    `json:"invariant,omitempty"`
	ProductID uuid.UUID `json:"product_id,omitempty"`
	ItemID    uuid.UUID `json:"item_id,omitempty"`
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrEmptyCart            = &Error{Kind: KindValidation, Code: "EMPTY_CART", Message: "sale has no line items"}
	ErrInvalidQuantity      = &Error{Kind: KindValidation, Code: "INVALID_QUANTITY", Message: "quantity must be greater than zero"}
	ErrInvalidChannel       = &Error{Kind: KindValidation, Code: "INVALID_CHANNEL", Message: "unknown sales channel"}
	ErrValidation           = &Error{Kind: KindValidation, Code: "VALIDATION_ERROR", Message: "validation failed"}
	ErrBlankSerial          = &Error{Kind: KindValidation, Code: "BLANK_SERIAL", Message: "serial identifiers must not be blank"}
	ErrSerialCount          = &Error{Kind: KindValidation, Code: "SERIAL_COUNT_MISMATCH", Message: "number of identifiers must equal quantity"}
	ErrDuplicateSerial      = &Error{Kind: KindValidation, Code: "DUPLICATE_SERIAL", Message: "identifier used more than once in the sale"}
	ErrInsufficientStock    = &Error{Kind: KindConflict, Code: "INSUFFICIENT_STOCK", Message: "not enough stock"}
	ErrSKUExists            = &Error{Kind: KindConflict, Code: "SKU_EXISTS", Message: "SKU already exists"}
	ErrProductInUse         = &Error{Kind: KindConflict, Code: "PRODUCT_IN_USE", Message: "product is referenced by recorded sales"}
	ErrEmailExists          = &Error{Kind: KindConflict, Code: "EMAIL_EXISTS", Message: "email already exists"}
	ErrProductNotFound      = &Error{Kind: KindNotFound, Code: "PRODUCT_NOT_FOUND", Message: "product not found"}
	ErrSaleNotFound         = &Error{Kind: KindNotFound, Code: "SALE_NOT_FOUND", Message: "sale not found"}
	ErrLineItemNotFound     = &Error{Kind: KindNotFound, Code: "LINE_ITEM_NOT_FOUND", Message: "line item not found on sale"}
	ErrCustomerNotFound     = &Error{Kind: KindNotFound, Code: "CUSTOMER_NOT_FOUND", Message: "customer not found"}
	ErrUserNotFound         = &Error{Kind: KindNotFound, Code: "USER_NOT_FOUND", Message: "user not found"}
	ErrRoleNotFound         = &Error{Kind: KindNotFound, Code: "ROLE_NOT_FOUND", Message: "role not found"}
	ErrIncompleteAllocation = &Error{Kind: KindInvariant, Code: "INCOMPLETE_ALLOCATION", Invariant: "allocation-completeness", Message: "every line item must be allocated before shipping"}
	ErrInvalidTransition    = &Error{Kind: KindInvariant, Code: "INVALID_TRANSITION", Invariant: "sale-status-machine", Message: "status transition not allowed"}
	ErrSerialsImmutable     = &Error{Kind: KindInvariant, Code: "SERIALS_IMMUTABLE", Invariant: "append-only-allocation", Message: "serials of a shipped line can only change through an override"}
	ErrStockDecrease        = &Error{Kind: KindInvariant, Code: "STOCK_DECREASE", Invariant: "stock-moves-through-ledger", Message: "stock can only be lowered by sales"}
	ErrInvalidCredentials   = &Error{Kind: KindUnauthorized, Code: "INVALID_CREDENTIALS", Message: "invalid email or password"}
	ErrUserInactive         = &Error{Kind: KindUnauthorized, Code: "USER_INACTIVE", Message: "user account is inactive"}
	ErrSessionExpired       = &Error{Kind: KindUnauthorized, Code: "SESSION_EXPIRED", Message: "session expired (logged in on another device)"}
	ErrWrongPassword        = &Error{Kind: KindValidation, Code: "WRONG_PASSWORD", Message: "current password is incorrect"}
	ErrForbidden            = &Error{Kind: KindForbidden, Code: "FORBIDDEN", Message: "missing privilege"}
)

// with returns a copy of a sentinel carrying call-specific details.
func (e *Error) with(mod func(*Error)) *Error {
	c := *e
	mod(&c)
	return &c
}

func insufficientStock(productID uuid.UUID, sku string, available, requested int) *Error {
	return ErrInsufficientStock.with(func(e *Error) {
		e.ProductID = productID
		e.Message = fmt.Sprintf("only %d unit(s) of %s available, %d requested", available, sku, requested)
	})
}

func productNotFound(productID uuid.UUID) *Error {
	return ErrProductNotFound.with(func(e *Error) { e.ProductID = productID })
}

func invalidQuantity(field string) *Error {
	return ErrInvalidQuantity.with(func(e *Error) { e.Field = field })
}

func validationFailed(field, tag string) *Error {
	return ErrValidation.with(func(e *Error) {
		e.Field = field
		e.Message = fmt.Sprintf("field '%s' failed on tag '%s'", field, tag)
	})
}

func itemError(base *Error, itemID uuid.UUID, msg string) *Error {
	return base.with(func(e *Error) {
		e.ItemID = itemID
		if msg != "" {
			e.Message = msg
		}
	})
}

func invalidTransition(from, to string) *Error {
	return ErrInvalidTransition.with(func(e *Error) {
		e.Message = fmt.Sprintf("cannot move sale from %s to %s", from, to)
	})
}

func forbidden(privilege string) *Error {
	return ErrForbidden.with(func(e *Error) {
		e.Message = fmt.Sprintf("requires '%s' privilege", privilege)
	})
}
