package multiio

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/pkg/errors"

	"github.com/hubertat/multiio/board"
	"github.com/hubertat/multiio/drivers"
	"github.com/hubertat/multiio/panel"
)

const httpTimeoutsMs = 3000

// Handler returns the HTTP API. With HttpToken set every request must carry
// it in the token query parameter or as a bearer token.
func (mio *MultiIO) Handler() http.Handler {
	router := httprouter.New()
	router.GET("/status", mio.withToken(mio.handleStatus))
	router.POST("/relay/:ch/:state", mio.withToken(mio.handleRelay))
	router.POST("/led/:ch/:state", mio.withToken(mio.handleLed))
	router.POST("/uout/:ch/:value", mio.withToken(mio.handleUOut))
	router.POST("/iout/:ch/:value", mio.withToken(mio.handleIOut))
	router.POST("/motor/:value", mio.withToken(mio.handleMotor))
	router.POST("/wdt/reload", mio.withToken(mio.handleWdtReload))
	router.POST("/push/:pin/:event", mio.withToken(mio.handlePush))

	return router
}

// StartHttp serves the HTTP API on HttpAddr until ctx is done.
func (mio *MultiIO) StartHttp(ctx context.Context) error {
	if len(mio.HttpAddr) == 0 {
		return errors.New("http address not set")
	}

	httpTimeout := httpTimeoutsMs * time.Millisecond
	server := &http.Server{
		Addr:              mio.HttpAddr,
		Handler:           mio.Handler(),
		ReadTimeout:       httpTimeout,
		ReadHeaderTimeout: httpTimeout,
		WriteTimeout:      httpTimeout,
		IdleTimeout:       2 * httpTimeout,
	}

	go func() {
		<-ctx.Done()
		server.Close()
	}()

	err := server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (mio *MultiIO) withToken(handle httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		if len(mio.HttpToken) > 0 {
			token := r.URL.Query().Get("token")
			if bearer := r.Header.Get("Authorization"); strings.HasPrefix(bearer, "Bearer ") {
				token = strings.TrimPrefix(bearer, "Bearer ")
			}
			if token != mio.HttpToken {
				http.Error(w, "token mismatch", http.StatusUnauthorized)
				return
			}
		}
		handle(w, r, p)
	}
}

func httpStatusFor(err error) int {
	switch {
	case errors.Is(err, board.ErrChannel), errors.Is(err, board.ErrRange):
		return http.StatusBadRequest
	case errors.Is(err, panel.ErrNotConnected):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (mio *MultiIO) respond(w http.ResponseWriter, err error) {
	if err != nil {
		mio.getLogger().Warn("http request failed", "err", err)
		http.Error(w, err.Error(), httpStatusFor(err))
		return
	}
	w.Write([]byte("done\n"))
}

func (mio *MultiIO) action(do func(p *panel.Panel) error) error {
	if mio.panel == nil {
		return panel.ErrNotConnected
	}
	return do(mio.panel)
}

func parseChannel(p httprouter.Params) (int, error) {
	ch, err := strconv.Atoi(p.ByName("ch"))
	if err != nil {
		return 0, errors.Wrapf(board.ErrChannel, "invalid channel %q", p.ByName("ch"))
	}
	return ch, nil
}

func parseState(p httprouter.Params) (bool, error) {
	switch strings.ToLower(p.ByName("state")) {
	case "on", "1", "true":
		return true, nil
	case "off", "0", "false":
		return false, nil
	}
	return false, errors.Wrapf(board.ErrRange, "invalid state %q", p.ByName("state"))
}

func parseValue(p httprouter.Params) (float64, error) {
	v, err := strconv.ParseFloat(p.ByName("value"), 64)
	if err != nil {
		return 0, errors.Wrapf(board.ErrRange, "invalid value %q", p.ByName("value"))
	}
	return v, nil
}

func (mio *MultiIO) handleStatus(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(mio.Status()); err != nil {
		mio.getLogger().Warn("failed to encode status", "err", err)
	}
}

func (mio *MultiIO) handleOnOff(w http.ResponseWriter, p httprouter.Params, set func(p *panel.Panel, ch int, on bool) error) {
	ch, err := parseChannel(p)
	if err != nil {
		mio.respond(w, err)
		return
	}
	on, err := parseState(p)
	if err != nil {
		mio.respond(w, err)
		return
	}
	mio.respond(w, mio.action(func(pn *panel.Panel) error {
		return set(pn, ch, on)
	}))
}

func (mio *MultiIO) handleRelay(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	mio.handleOnOff(w, p, (*panel.Panel).SetRelay)
}

func (mio *MultiIO) handleLed(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	mio.handleOnOff(w, p, (*panel.Panel).SetLed)
}

func (mio *MultiIO) handleAnalogOut(w http.ResponseWriter, p httprouter.Params, set func(p *panel.Panel, ch int, v float64) error) {
	ch, err := parseChannel(p)
	if err != nil {
		mio.respond(w, err)
		return
	}
	v, err := parseValue(p)
	if err != nil {
		mio.respond(w, err)
		return
	}
	mio.respond(w, mio.action(func(pn *panel.Panel) error {
		return set(pn, ch, v)
	}))
}

func (mio *MultiIO) handleUOut(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	mio.handleAnalogOut(w, p, (*panel.Panel).SetUOut)
}

func (mio *MultiIO) handleIOut(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	mio.handleAnalogOut(w, p, (*panel.Panel).SetIOut)
}

func (mio *MultiIO) handleMotor(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	v, err := parseValue(p)
	if err != nil {
		mio.respond(w, err)
		return
	}
	mio.respond(w, mio.action(func(pn *panel.Panel) error {
		return pn.SetMotor(v)
	}))
}

func (mio *MultiIO) handleWdtReload(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	mio.respond(w, mio.action((*panel.Panel).ReloadWdt))
}

func (mio *MultiIO) handlePush(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	pinNo, err := strconv.Atoi(p.ByName("pin"))
	if err != nil {
		http.Error(w, "invalid pin", http.StatusBadRequest)
		return
	}

	var button *Button
	for _, but := range mio.Buttons {
		if int(but.InPin) == pinNo {
			button = but
		}
	}
	if button == nil {
		http.Error(w, "pin not found", http.StatusNotFound)
		return
	}

	switch p.ByName("event") {
	case "single":
		button.FireEvent(drivers.PushEventSinglePress)
	case "double":
		button.FireEvent(drivers.PushEventDoublePress)
	case "long":
		button.FireEvent(drivers.PushEventLongPress)
	default:
		http.Error(w, "unrecognized push event type", http.StatusBadRequest)
		return
	}
	mio.respond(w, nil)
}
