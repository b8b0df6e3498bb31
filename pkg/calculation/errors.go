package calculation

import "fmt"

type kindError struct {
	msg  string
	kind string
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Kind() string  { return e.kind }

var (
	// ErrReservedName rejects parameters named after built-in constants.
	ErrReservedName error = &kindError{msg: "reserved name", kind: "reserved_name"}
	// ErrSchema rejects structurally invalid definitions.
	ErrSchema error = &kindError{msg: "invalid definition", kind: "schema_error"}
	// ErrInvalidInput rejects form input under strict coercion.
	ErrInvalidInput error = &kindError{msg: "invalid input", kind: "invalid_input"}
)

// FieldError attaches a field path such as "results[1].expression" or
// "parameters[0].name" to an error.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

func fieldErr(field string, err error) *FieldError {
	return &FieldError{Field: field, Err: err}
}

func schemaErr(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrSchema}, args...)...)
}
