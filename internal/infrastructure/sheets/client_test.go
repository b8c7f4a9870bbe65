package sheets

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dominv "github.com/Zhima-Mochi/honeyshop/internal/domain/inventory"
)

func TestFetch(t *testing.T) {
	t.Run("decodes numeric and string stock", func(t *testing.T) {
		// given
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"百花蜜(300g)": {"stock": 12}, "百花蜜(500g)": {"stock": "3"}}`))
		}))
		defer server.Close()
		client := New(server.URL, time.Second, nil)

		// when
		got, err := client.Fetch(context.Background())

		// then
		require.NoError(t, err)
		assert.Equal(t, map[string]int{"百花蜜(300g)": 12, "百花蜜(500g)": 3}, got)
	})

	t.Run("non-2xx fails", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		_, err := New(server.URL, time.Second, nil).Fetch(context.Background())

		assert.ErrorIs(t, err, dominv.ErrFetchFailed)
	})

	t.Run("malformed body fails", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`<html>error</html>`))
		}))
		defer server.Close()

		_, err := New(server.URL, time.Second, nil).Fetch(context.Background())

		assert.ErrorIs(t, err, dominv.ErrFetchFailed)
	})

	t.Run("network failure fails", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
		url := server.URL
		server.Close()

		_, err := New(url, time.Second, nil).Fetch(context.Background())

		assert.ErrorIs(t, err, dominv.ErrFetchFailed)
	})

	t.Run("timeout fails", func(t *testing.T) {
		release := make(chan struct{})
		server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			<-release
		}))
		defer server.Close()
		defer close(release)

		_, err := New(server.URL, 50*time.Millisecond, nil).Fetch(context.Background())

		assert.ErrorIs(t, err, dominv.ErrFetchFailed)
	})
}

func TestDecode(t *testing.T) {
	t.Run("entries coerce to non-negative integers", func(t *testing.T) {
		got, err := Decode([]byte(`{
			"a": {"stock": 4.9},
			"b": {"stock": "7個"},
			"c": {"stock": "abc"},
			"d": {"stock": -3},
			"e": {},
			"f": null,
			"g": "5",
			"h": {"stock": true},
			"i": {"stock": " 8 "}
		}`))

		require.NoError(t, err)
		assert.Equal(t, map[string]int{
			"a": 4, "b": 7, "c": 0, "d": 0, "e": 0, "f": 0, "g": 0, "h": 0, "i": 8,
		}, got)
	})

	t.Run("top level must be an object", func(t *testing.T) {
		for _, body := range []string{`[]`, `null`, `42`, ``} {
			_, err := Decode([]byte(body))
			assert.ErrorIs(t, err, dominv.ErrFetchFailed, body)
		}
	})
}

func TestParseStock(t *testing.T) {
	tests := map[string]int{
		`12`:          12,
		`"12"`:        12,
		`"-2"`:        0,
		`"+5"`:        5,
		`1e3`:         1000,
		`"3.7"`:       3,
		`""`:          0,
		`null`:        0,
		`99999999999`: 2147483647,
	}
	for raw, want := range tests {
		t.Run(raw, func(t *testing.T) {
			assert.Equal(t, want, ParseStock(json.RawMessage(raw)))
		})
	}
}
