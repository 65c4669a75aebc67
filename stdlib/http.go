package stdlib

import (
	"fmt"
	"io"
	"net/http"

	"github.com/mna/focus/value"
)

// httpGet fetches url and returns a {status, body} table. Requests block
// the machine, like every native; there is no async surface.
func httpGet(vm value.VM) (value.Value, error) {
	if vm.Top() != 1 {
		return nil, argCountError("Http.get", 1, vm.Top())
	}
	url, ok := vm.Pop().(value.String)
	if !ok {
		return nil, fmt.Errorf("Http.get takes a url string")
	}

	resp, err := http.Get(string(url))
	if err != nil {
		return nil, fmt.Errorf("Http.get: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("Http.get: %w", err)
	}

	t := value.NewTable(2)
	t.Set(value.String("status"), value.Int(resp.StatusCode))
	t.Set(value.String("body"), value.String(body))
	return t, nil
}

func httpModule() *value.Module {
	return nativeModule("Http",
		nativeEntry{"get", httpGet},
	)
}
