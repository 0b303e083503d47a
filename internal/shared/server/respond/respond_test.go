package respond

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestErrorWritesEnvelopeAndAborts(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	reached := false
	r.GET("/x", func(c *gin.Context) {
		Error(c, http.StatusNotFound, "not_found", "document not found", nil)
	}, func(c *gin.Context) {
		reached = true
	})

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/x", nil))

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
	if reached {
		t.Fatal("expected chain to be aborted")
	}
	var body map[string]map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["error"]["code"] != "not_found" || body["error"]["message"] != "document not found" {
		t.Fatalf("unexpected body %v", body)
	}
	if _, ok := body["error"]["details"]; ok {
		t.Fatal("nil details should be omitted")
	}
}
