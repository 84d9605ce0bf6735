package handlers

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"stokado/internal/core/id"
)

func testContext(t *testing.T) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	return c
}

func TestParseID(t *testing.T) {
	h := NewBaseHandler()

	want := id.New()
	c := testContext(t)
	c.Params = gin.Params{{Key: "id", Value: want.String()}}

	got, ok := h.ParseID(c, "id")
	if !ok {
		t.Fatal("valid uuid rejected")
	}
	if got != want {
		t.Errorf("ParseID = %s, want %s", got, want)
	}
}

func TestParseID_Invalid(t *testing.T) {
	h := NewBaseHandler()

	c := testContext(t)
	c.Params = gin.Params{{Key: "id", Value: "not-a-uuid"}}

	got, ok := h.ParseID(c, "id")
	if ok {
		t.Fatal("garbage uuid accepted")
	}
	if !id.IsNil(got) {
		t.Errorf("failed parse should return the zero id, got %s", got)
	}
	if len(c.Errors) == 0 {
		t.Error("validation error not registered on the context")
	}
}
