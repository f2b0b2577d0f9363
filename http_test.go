package multiio

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hubertat/multiio/board"
)

func doRequest(t testing.TB, handler http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()

	request := httptest.NewRequest(method, target, nil)
	response := httptest.NewRecorder()
	handler.ServeHTTP(response, request)
	return response
}

func TestHttpToken(t *testing.T) {
	mio, _ := newTestMultiIO(t)
	mio.HttpToken = "secret"
	handler := mio.Handler()

	t.Run("missing", func(t *testing.T) {
		response := doRequest(t, handler, http.MethodGet, "/status")
		assertInts(t, response.Code, http.StatusUnauthorized)
	})

	t.Run("query", func(t *testing.T) {
		response := doRequest(t, handler, http.MethodGet, "/status?token=secret")
		assertInts(t, response.Code, http.StatusOK)
	})

	t.Run("bearer", func(t *testing.T) {
		request := httptest.NewRequest(http.MethodGet, "/status", nil)
		request.Header.Set("Authorization", "Bearer secret")
		response := httptest.NewRecorder()
		handler.ServeHTTP(response, request)
		assertInts(t, response.Code, http.StatusOK)
	})
}

func TestHttpStatus(t *testing.T) {
	mio, emu := newTestMultiIO(t)
	emu.PokeFloat32(0, board.RegRtdVal, 21.5)
	handler := mio.Handler()

	response := doRequest(t, handler, http.MethodPost, "/relay/1/on")
	assertInts(t, response.Code, http.StatusOK)
	if response.Body.String() != "done\n" {
		t.Errorf("got body %q", response.Body.String())
	}

	response = doRequest(t, handler, http.MethodGet, "/status")
	assertInts(t, response.Code, http.StatusOK)

	var status Status
	if err := json.NewDecoder(response.Body).Decode(&status); err != nil {
		t.Fatal(err)
	}
	if status.Name != "test" || !status.Connected {
		t.Errorf("got status %+v", status)
	}
	if len(status.Relays) != board.RelayChannels || status.Relays[0] != 1 {
		t.Errorf("got relays %v", status.Relays)
	}
	if len(status.Rtd) == 0 || status.Rtd[0] != 21.5 {
		t.Errorf("got rtd %v", status.Rtd)
	}
}

func TestHttpActions(t *testing.T) {
	mio, emu := newTestMultiIO(t)
	handler := mio.Handler()

	tests := []struct {
		name   string
		target string
		code   int
	}{
		{"relay off", "/relay/2/off", http.StatusOK},
		{"relay channel", "/relay/3/on", http.StatusBadRequest},
		{"relay state", "/relay/1/maybe", http.StatusBadRequest},
		{"led", "/led/6/on", http.StatusOK},
		{"uout", "/uout/1/5.5", http.StatusOK},
		{"uout range", "/uout/1/12", http.StatusBadRequest},
		{"uout value", "/uout/1/abc", http.StatusBadRequest},
		{"iout", "/iout/1/12", http.StatusOK},
		{"motor", "/motor/-40", http.StatusOK},
		{"motor range", "/motor/140", http.StatusBadRequest},
		{"push unknown pin", "/push/3/single", http.StatusNotFound},
		{"push unknown event", "/push/10/triple", http.StatusBadRequest},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			response := doRequest(t, handler, http.MethodPost, test.target)
			assertInts(t, response.Code, test.code)
		})
	}

	t.Run("wdt reload", func(t *testing.T) {
		response := doRequest(t, handler, http.MethodPost, "/wdt/reload")
		assertInts(t, response.Code, http.StatusOK)
		assertInts(t, emu.Reloads(), 1)
	})

	t.Run("push toggles outlet", func(t *testing.T) {
		response := doRequest(t, handler, http.MethodPost, "/push/10/single")
		assertInts(t, response.Code, http.StatusOK)
		assertBools(t, mio.Outlets[0].State, true)
	})

	t.Run("method", func(t *testing.T) {
		response := doRequest(t, handler, http.MethodGet, "/relay/1/on")
		assertInts(t, response.Code, http.StatusMethodNotAllowed)
	})
}

func TestHttpNotConnected(t *testing.T) {
	mio := &MultiIO{}
	response := doRequest(t, mio.Handler(), http.MethodPost, "/relay/1/on")
	assertInts(t, response.Code, http.StatusServiceUnavailable)
}
