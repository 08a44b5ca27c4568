package req

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatrelay/internal/pkg/errs"
)

type profileInput struct {
	Username string `json:"username" validate:"required,max=10"`
}

func newJSONRequest(body string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/api/profile", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	return r
}

func TestBindJSON(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		ctype    string
		wantCode int
	}{
		{"valid", `{"username":"alice"}`, "application/json", 0},
		{"wrong content type", `{"username":"alice"}`, "text/plain", errs.ErrUnsupportedMediaType},
		{"malformed", `{"username":`, "application/json", errs.ErrInvalidJSONFormat},
		{"unknown field", `{"username":"alice","admin":true}`, "application/json", errs.ErrInvalidJSONFormat},
		{"trailing document", `{"username":"alice"}{"username":"bob"}`, "application/json", errs.ErrExtraContentInBody},
		{"fails validation", `{"username":""}`, "application/json", errs.ErrInvalidParams},
		{"too long", `{"username":"abcdefghijk"}`, "application/json", errs.ErrInvalidParams},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newJSONRequest(tt.body)
			r.Header.Set("Content-Type", tt.ctype)

			var dst profileInput
			err := BindJSON(httptest.NewRecorder(), r, &dst)

			if tt.wantCode == 0 {
				require.Nil(t, err)
				assert.Equal(t, "alice", dst.Username)
				return
			}
			require.NotNil(t, err)
			assert.Equal(t, tt.wantCode, err.Code)
		})
	}
}
