package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func postCallback(t *testing.T, body string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)

	// Nil orchestrator: these requests must be rejected before the flow is
	// ever reached.
	h := NewRescheduleHandler(nil)
	router := gin.New()
	router.POST("/api/payments/callback", h.PaymentCallbackHandler)

	req := httptest.NewRequest(http.MethodPost, "/api/payments/callback", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestPaymentCallbackRejectsUnknownStatus(t *testing.T) {
	// "pending" (or any unrecognized status) must not abort a hold whose
	// checkout may still be open.
	w := postCallback(t, `{"sessionRef":"sess-1","status":"pending"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postCallback(t, `{"sessionRef":"sess-1","status":"PAID"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPaymentCallbackRejectsMissingFields(t *testing.T) {
	w := postCallback(t, `{"sessionRef":"sess-1"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postCallback(t, `{"status":"paid"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
