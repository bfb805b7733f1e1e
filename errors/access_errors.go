// errors/access_errors.go
package errors

import "errors"

var (
	ErrNotOwner          = errors.New("caller is not the owner of the object")
	ErrInvalidObjectType = errors.New("invalid object type")
	ErrGrantNotFound     = errors.New("access grant not found")
	ErrInvalidGrantData  = errors.New("invalid grant data")
	ErrInsufficientRole  = errors.New("insufficient role")

	ErrTokenInvalid     = errors.New("download token invalid")
	ErrTokenAlreadyUsed = errors.New("download token already used")
	ErrObjectNotFound   = errors.New("object not found")

	ErrDatabaseOperation = errors.New("database operation failed")
	ErrInternalServer    = errors.New("internal server error")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrInvalidPagination = errors.New("invalid pagination parameters")
)
