package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsMatchesByCode(t *testing.T) {
	err := New(CodeDecryptionFailure, "bad tag")
	require.True(t, stderrors.Is(err, ErrDecryptionFailure))
	require.False(t, stderrors.Is(err, ErrEncryptionFailure))

	wrapped := fmt.Errorf("reveal 7: %w", err)
	require.True(t, stderrors.Is(wrapped, ErrDecryptionFailure))
	require.Equal(t, CodeDecryptionFailure, CodeOf(wrapped))
}

func TestWrapKeepsCause(t *testing.T) {
	err := Wrap(CodeCancelled, "claim batch", context.Canceled)
	require.True(t, stderrors.Is(err, context.Canceled))
	require.True(t, HasCode(err, CodeCancelled))
	require.Equal(t, "CANCELLED: claim batch: context canceled", err.Error())
}

func TestMetadataInMessage(t *testing.T) {
	err := WithMetadata(CodeInvalidSelection, "reward 4", map[string]string{
		"reason": "tier_locked",
		"tier":   "3",
	})
	require.Equal(t, "INVALID_SELECTION: reward 4 [reason=tier_locked tier=3]", err.Error())
}

func TestCodeOfForeignError(t *testing.T) {
	require.Equal(t, CodeUnknown, CodeOf(stderrors.New("plain")))
	require.Equal(t, CodeUnknown, CodeOf(nil))
}

func TestUserMessages(t *testing.T) {
	for _, code := range []Code{
		CodeNotInitialized, CodeEncryptionFailure, CodeDecryptionFailure,
		CodeProofInvalid, CodeTransactionFailure, CodeNotConnected,
		CodeInvalidSelection, CodeInvalidArgument, CodeNotFound,
		CodePassInactive, CodeCancelled,
	} {
		require.NotEqual(t, CodeUnknown.UserMessage(), code.UserMessage(), code)
	}
	require.True(t, CodeTransactionFailure.Retryable())
	require.False(t, CodeNotConnected.Retryable())
}
