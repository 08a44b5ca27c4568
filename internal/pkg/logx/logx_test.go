package logx

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnonymizeIP(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"ipv4 with port", "203.0.113.77:5123", "203.0.113.0"},
		{"ipv4 bare", "198.51.100.9", "198.51.100.0"},
		{"loopback", "127.0.0.1:8080", "127.0.0.1"},
		{"ipv6", "[2001:db8:85a3:1234:5678:8a2e:370:7334]:443", "2001:db8:85a3:1234::"},
		{"garbage", "not-an-ip", "unknown_ip"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AnonymizeIP(tt.in))
		})
	}
}

func TestHelpersWriteStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, zerolog.DebugLevel)

	Error(errors.New("boom"), "store write failed", "user_id", "u-1")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "error", line["level"])
	assert.Equal(t, "boom", line["error"])
	assert.Equal(t, "u-1", line["user_id"])
	assert.Equal(t, "store write failed", line["message"])
}

func TestOddFieldsAreDropped(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, zerolog.DebugLevel)

	Info("hello", "dangling")

	assert.Contains(t, buf.String(), "odd number of fields")
	assert.Contains(t, buf.String(), `"message":"hello"`)
}

func TestRequestLoggerLevelFollowsStatus(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, zerolog.DebugLevel)

	h := RequestLogger()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/messages", nil)
	req.RemoteAddr = "203.0.113.77:5123"
	h.ServeHTTP(httptest.NewRecorder(), req)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, float64(http.StatusUnauthorized), line["status"])
	assert.Equal(t, "203.0.113.0", line["remote_ip"])
	assert.Equal(t, "http", line["component"])
}
