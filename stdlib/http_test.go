package stdlib

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mna/focus/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHttpGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "hello")
	}))
	defer srv.Close()

	v, err := call(t, httpGet, value.String(srv.URL))
	require.NoError(t, err)
	tbl, ok := v.(*value.Table)
	require.True(t, ok, "Http.get must return a table, got %s", value.TypeName(v))

	status, ok := tbl.Get(value.String("status"))
	require.True(t, ok)
	assert.Equal(t, value.Int(http.StatusOK), status)
	body, ok := tbl.Get(value.String("body"))
	require.True(t, ok)
	assert.Equal(t, value.String("hello"), body)
}

// TestHttpGetNon2xx verifies that a failing status is not an error: it
// comes back in the table for the program to inspect.
func TestHttpGetNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	v, err := call(t, httpGet, value.String(srv.URL))
	require.NoError(t, err)
	tbl := v.(*value.Table)

	status, ok := tbl.Get(value.String("status"))
	require.True(t, ok)
	assert.Equal(t, value.Int(http.StatusNotFound), status)
}

func TestHttpGetTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := call(t, httpGet, value.String(url))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Http.get")
}

func TestHttpGetBadArguments(t *testing.T) {
	_, err := call(t, httpGet, value.Int(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "url string")

	_, err = call(t, httpGet, value.String("a"), value.String("b"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "takes 1 arguments")
}
