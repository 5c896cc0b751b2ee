package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataFor(t *testing.T) {
	t.Parallel()

	assert.Equal(t, http.StatusPaymentRequired, MetadataFor(CodePaymentDeclined).HTTPStatus)
	assert.Equal(t, http.StatusConflict, MetadataFor(CodeInsufficientStock).HTTPStatus)
	assert.Equal(t, http.StatusUnprocessableEntity, MetadataFor(CodeStateConflict).HTTPStatus)

	// unknown codes fall back to internal
	assert.Equal(t, http.StatusInternalServerError, MetadataFor(Code("NOPE")).HTTPStatus)
}

func TestWrapPreservesCause(t *testing.T) {
	t.Parallel()

	cause := fmt.Errorf("gateway timeout")
	err := Wrap(CodeDependency, cause, "charge payment")

	require.ErrorIs(t, err, cause)
	assert.Equal(t, CodeDependency, err.Code())
	assert.Equal(t, "DEPENDENCY_ERROR: charge payment", err.Error())
}

func TestHasCode(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("outer: %w", New(CodeInsufficientStock, "have 3, need 10"))
	assert.True(t, HasCode(err, CodeInsufficientStock))
	assert.False(t, HasCode(err, CodePaymentDeclined))
	assert.False(t, HasCode(nil, CodeInternal))
}

func TestDumpChain(t *testing.T) {
	t.Parallel()

	err := Wrap(CodeValidation, fmt.Errorf("boom"), "bad input")
	dump := Dump(err)

	assert.Equal(t, CodeValidation, dump.Code)
	require.Len(t, dump.Chain, 2)
	assert.Empty(t, dump.PGCode)
}
