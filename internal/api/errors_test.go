package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/songrequest/server/internal/errors"
)

func TestToHTTPError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		code    string
		message string
	}{
		{
			name:    "malformed line keeps details",
			err:     fmt.Errorf("upload: %w", domainerrors.MalformedLine(3, "missing separator")),
			status:  http.StatusBadRequest,
			code:    "MALFORMED_LINE",
			message: "upload: line 3: missing separator",
		},
		{
			name:    "catalog unavailable",
			err:     domainerrors.ErrCatalogUnavailable,
			status:  http.StatusServiceUnavailable,
			code:    "CATALOG_UNAVAILABLE",
			message: domainerrors.ErrCatalogUnavailable.Message,
		},
		{
			name:    "internal hides cause",
			err:     domainerrors.Wrap(errors.New("disk I/O error"), domainerrors.CodeInternal, "persist catalog"),
			status:  http.StatusInternalServerError,
			code:    "INTERNAL",
			message: "persist catalog",
		},
		{
			name:    "plain error",
			err:     errors.New("boom"),
			status:  http.StatusInternalServerError,
			code:    "INTERNAL",
			message: "internal error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var apiErr *APIError
			require.ErrorAs(t, toHTTPError(tt.err), &apiErr)
			assert.Equal(t, tt.status, apiErr.GetStatus())
			assert.Equal(t, tt.code, apiErr.Code)
			assert.Equal(t, tt.message, apiErr.Message)
		})
	}

	assert.NoError(t, toHTTPError(nil))
}
