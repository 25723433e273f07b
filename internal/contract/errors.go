package contract

import (
	"errors"
	"fmt"

	"github.com/rbpanama/idbhealth/schema"
)

// ConfigurationError reports invalid static configuration. It is always fatal
// and is raised before any warehouse query is issued.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

// ConnectivityError reports an unusable warehouse handle or a query that timed out.
// Callers may retry; the engine never does.
type ConnectivityError struct {
	Op  string
	Err error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("connectivity error during %s: %v", e.Op, e.Err)
}

func (e *ConnectivityError) Unwrap() error { return e.Err }

// IntrospectionError reports a catalog or data query rejected for one object
// (missing table or column, permission denied, malformed query).
type IntrospectionError struct {
	Object string
	Err    error
}

func (e *IntrospectionError) Error() string {
	return fmt.Sprintf("introspection error on %s: %v", e.Object, e.Err)
}

func (e *IntrospectionError) Unwrap() error { return e.Err }

// ErrUnknownColumn marks an IntrospectionError caused by a column the table does not have.
var ErrUnknownColumn = errors.New("unknown column")

// NewConfigError builds a ConfigurationError with a formatted reason.
func NewConfigError(field, format string, args ...any) error {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// IsConnectivity reports whether err wraps a ConnectivityError.
func IsConnectivity(err error) bool {
	var target *ConnectivityError
	return errors.As(err, &target)
}

// IsIntrospection reports whether err wraps an IntrospectionError.
func IsIntrospection(err error) bool {
	var target *IntrospectionError
	return errors.As(err, &target)
}

// IsUnknownColumn reports whether err was caused by a missing column.
func IsUnknownColumn(err error) bool {
	return errors.Is(err, ErrUnknownColumn)
}

// IsConfiguration reports whether err wraps a ConfigurationError.
func IsConfiguration(err error) bool {
	var target *ConfigurationError
	return errors.As(err, &target)
}

// WarningFromError converts a per-object failure into a snapshot warning.
func WarningFromError(pass schema.Pass, object string, err error) schema.Warning {
	kind := schema.IntrospectionWarning
	if IsConnectivity(err) {
		kind = schema.ConnectivityWarning
	}
	return schema.Warning{Pass: pass, Object: object, Kind: kind, Message: err.Error()}
}
