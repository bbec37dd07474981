package types

import "fmt"

// ValidationError reports a malformed role map or configuration field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// MissingReferenceError reports an unresolved VPC, subnet, AMI or key pair.
// It is surfaced to the operator, never retried internally.
type MissingReferenceError struct {
	Kind string
	Ref  string
}

func (e *MissingReferenceError) Error() string {
	return fmt.Sprintf("unresolved %s reference %q", e.Kind, e.Ref)
}

// ProviderError reports a cloud API rejection (quota, invalid AMI, missing
// key pair). Re-running apply is the documented remediation.
type ProviderError struct {
	Op   string
	Code string
	Err  error
}

func (e *ProviderError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("provider rejected %s (%s): %v", e.Op, e.Code, e.Err)
	}
	return fmt.Sprintf("provider rejected %s: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
