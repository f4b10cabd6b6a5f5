package clientip

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromRequestForwardedFor(t *testing.T) {
	r := httptest.NewRequest("POST", "/api/v1/donors/search", nil)
	r.RemoteAddr = "10.0.0.1:52011"
	r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")

	assert.Equal(t, "203.0.113.7", FromRequest(r))
}

func TestFromRequestRealIP(t *testing.T) {
	r := httptest.NewRequest("POST", "/api/v1/donors/search", nil)
	r.RemoteAddr = "10.0.0.1:52011"
	r.Header.Set("X-Real-IP", "198.51.100.4")

	assert.Equal(t, "198.51.100.4", FromRequest(r))
}

func TestFromRequestRemoteAddrFallback(t *testing.T) {
	r := httptest.NewRequest("POST", "/api/v1/donors/search", nil)
	r.RemoteAddr = "192.0.2.9:41822"

	assert.Equal(t, "192.0.2.9", FromRequest(r))
}
