package aws

import (
	"errors"

	"github.com/aws/smithy-go"

	"github.com/yairfalse/varusta/types"
)

// wrapProvider tags an API failure with its operation and error code so the
// operator sees what the cloud rejected. No retry happens here; re-running
// apply is the remediation.
func wrapProvider(op string, err error) error {
	if err == nil {
		return nil
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return &types.ProviderError{Op: op, Code: apiErr.ErrorCode(), Err: err}
	}
	return &types.ProviderError{Op: op, Err: err}
}

// isNotFound reports whether the API error says the referenced entity does
// not exist (AMI, key pair, group).
func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.ErrorCode() {
	case "InvalidAMIID.NotFound", "InvalidAMIID.Malformed",
		"InvalidKeyPair.NotFound",
		"InvalidGroup.NotFound",
		"InvalidSubnetID.NotFound":
		return true
	}
	return false
}
