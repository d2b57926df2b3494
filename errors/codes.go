// Package errors provides the structured error taxonomy shared by the
// envelope service, the progression ledger and the orchestrators.
package errors

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Key session errors
	CodeNotInitialized Code = "NOT_INITIALIZED"

	// Envelope errors
	CodeEncryptionFailure Code = "ENCRYPTION_FAILURE"
	CodeDecryptionFailure Code = "DECRYPTION_FAILURE"
	CodeProofInvalid      Code = "PROOF_INVALID"

	// Ledger collaborator errors
	CodeTransactionFailure Code = "TRANSACTION_FAILURE"

	// Wallet errors
	CodeNotConnected Code = "NOT_CONNECTED"

	// Selection errors
	CodeInvalidSelection Code = "INVALID_SELECTION"

	// Input and state errors
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodeNotFound        Code = "NOT_FOUND"
	CodePassInactive    Code = "PASS_INACTIVE"
	CodeCancelled       Code = "CANCELLED"
)

var userMessages = map[Code]string{
	CodeNotInitialized:     "Encryption keys are not initialized.",
	CodeEncryptionFailure:  "Encryption failed. Please try again.",
	CodeDecryptionFailure:  "Decryption failed. Please try again.",
	CodeProofInvalid:       "The computation proof could not be verified.",
	CodeTransactionFailure: "Transaction failed. Please try again.",
	CodeNotConnected:       "Please connect your wallet first.",
	CodeInvalidSelection:   "Please select rewards that have not been claimed.",
	CodeInvalidArgument:    "The request is invalid.",
	CodeNotFound:           "The requested item was not found.",
	CodePassInactive:       "This battle pass is not active.",
	CodeCancelled:          "The operation was cancelled.",
}

// UserMessage returns the message shown to a player when a session fails
// with this code.
func (c Code) UserMessage() string {
	if msg, ok := userMessages[c]; ok {
		return msg
	}
	return "Something went wrong."
}

// Retryable reports whether a session that failed with this code can be
// retried from its initial state without user intervention beyond a retry.
func (c Code) Retryable() bool {
	switch c {
	case CodeEncryptionFailure,
		CodeDecryptionFailure,
		CodeTransactionFailure,
		CodeCancelled:
		return true
	default:
		return false
	}
}
