package predicate

import (
	"github.com/pkg/errors"

	"github.com/krew-solutions/ascetic-predicate-go/predicate/domain/operators"
)

var (
	ErrUnknownOperator   = operators.ErrUnknownOperator
	ErrDuplicateOperator = operators.ErrDuplicateOperator

	ErrMalformedTree    = errors.New("malformed tree")
	ErrUnsupportedValue = errors.New("unsupported value")
	// ErrUntrustedCode is returned when a portable tree carries predicate
	// source text for an alias the registry does not know and the codec was
	// not allowed to compile it.
	ErrUntrustedCode = errors.New("refusing to reconstruct code from portable tree")
	ErrKeyNotFound   = errors.New("key not found")
)
