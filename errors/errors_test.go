package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCodeOf_Walks_Wrapped_Chains(t *testing.T) {
	req := require.New(t)

	err := fmt.Errorf("saving chat: %w", NotFound("chat %s does not exist", "c1"))
	req.Equal(CodeNotFound, CodeOf(err))
	req.Equal("chat c1 does not exist", MessageOf(err))

	req.Equal(CodeInternal, CodeOf(errors.New("disk on fire")))
}

func TestMessageOf_Hides_Internal_Causes(t *testing.T) {
	req := require.New(t)

	cause := errors.New("badger: file corrupted")
	err := Internal(cause)
	req.Equal("internal error", MessageOf(err))
	req.ErrorIs(err, cause)

	req.Equal("internal error", MessageOf(errors.New("raw")))
}

func TestHTTPStatus(t *testing.T) {
	req := require.New(t)
	req.Equal(http.StatusBadRequest, HTTPStatus(CodeBadRequest))
	req.Equal(http.StatusUnauthorized, HTTPStatus(CodeUnauthorized))
	req.Equal(http.StatusForbidden, HTTPStatus(CodeForbidden))
	req.Equal(http.StatusNotFound, HTTPStatus(CodeNotFound))
	req.Equal(http.StatusInternalServerError, HTTPStatus(CodeInternal))
	req.Equal(http.StatusInternalServerError, HTTPStatus(Code("SOMETHING_NEW")))
}
