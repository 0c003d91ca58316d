package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"rdr-dashboard/backend"
	"rdr-dashboard/controller"
	"rdr-dashboard/viewstate"
)

// apiPrefix serves every screen's view model as JSON
const apiPrefix = "/api"

// LoadingView is rendered while the first fetch of a screen is still
// outstanding after the page wait.
type LoadingView struct {
	Page
	Loading bool   `json:"loading"`
	Message string `json:"message"`
	Refresh int    `json:"refresh_seconds"`
}

func errorLine(err error) string {
	return "Error: " + backend.Message(err)
}

// statusFor passes backend client errors through and reports everything
// else as a bad gateway.
func statusFor(err error) int {
	var te *backend.TransportError
	if errors.As(err, &te) && te.StatusCode >= 400 && te.StatusCode < 500 {
		return te.StatusCode
	}
	return http.StatusBadGateway
}

// serveScreen handles both the HTML page and its JSON mirror under /api.
//
// A request carrying op is an action: it is reduced against the decoded
// state and answered with a redirect to the resulting address, so actions
// never render. A request whose query is not canonical is redirected to the
// canonical form. Anything else mounts a controller and renders once its
// fetch settled.
func serveScreen[S, P any](h *DashboardHandler, sc screen[S, P], api bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		escaped := r.URL.EscapedPath()
		path := escaped
		if api {
			path = strings.TrimPrefix(escaped, apiPrefix)
		}
		raw := r.URL.RawQuery
		state := viewstate.Decode[S](raw)

		query := r.URL.Query()
		if query.Get(opParam) != "" {
			mutate, err := parseAction[S](query)
			if err != nil {
				log.Warn().Err(err).Str("screen", sc.name).Str("query", raw).Msg("Rejected action")
				h.sendError(w, api, http.StatusBadRequest, err)
				return
			}
			next, refetch := controller.Reduce(state, mutate)
			log.Debug().
				Str("screen", sc.name).
				Str("op", query.Get(opParam)).
				Bool("refetch", refetch).
				Msg("Applied action")
			http.Redirect(w, r, withQuery(escaped, viewstate.Encode(next)), http.StatusSeeOther)
			return
		}
		if !viewstate.IsCanonical(raw, state) {
			http.Redirect(w, r, withQuery(escaped, viewstate.Encode(state)), http.StatusSeeOther)
			return
		}

		vars := mux.Vars(r)
		var address string
		ctrl := controller.New(sc.fetch(h, vars),
			controller.HistoryFunc(func(q string) { address = withQuery(path, q) }),
			controller.Options{Fence: h.config.Display.FenceRequests, Name: sc.name})
		ctrl.Mount(raw)

		ctx, cancel := context.WithTimeout(r.Context(), h.pageWait)
		snap, err := ctrl.Wait(ctx)
		cancel()
		if err != nil {
			// The fetch keeps running so the refresh finds the response cached.
			go func() {
				defer ctrl.Close()
				_, _ = ctrl.Wait(context.Background())
			}()
			log.Info().Str("screen", sc.name).Str("address", address).Msg("Page still loading")
			h.sendLoading(w, api, sc.name, sc.loading, address)
			return
		}
		ctrl.Close()

		v := newViewContext(sc.name, path, vars, ctrl, snap, h.now())
		v.ticks, v.zones = h.config.Display.TickCount, h.config.Display.Timezones
		view := sc.view(v)

		status := http.StatusOK
		if snap.Err != nil {
			status = statusFor(snap.Err)
		}
		if api {
			SendJSON(w, status, view)
			return
		}
		h.render(w, status, sc.name, view)
	}
}

func (h *DashboardHandler) sendLoading(w http.ResponseWriter, api bool, name, message, address string) {
	view := LoadingView{
		Page: Page{
			Screen:  name,
			Title:   message,
			URL:     address,
			ShareQR: qrHref(address),
			Nav:     navLinks,
		},
		Loading: true,
		Message: message,
		Refresh: loadingRefreshSeconds,
	}
	if api {
		SendJSON(w, http.StatusAccepted, view)
		return
	}
	w.Header().Set("Refresh", strconv.Itoa(loadingRefreshSeconds)+"; url="+address)
	h.render(w, http.StatusOK, "loading", view)
}

func (h *DashboardHandler) sendError(w http.ResponseWriter, api bool, status int, err error) {
	if api {
		SendJSONError(w, status, err, http.StatusText(status))
		return
	}
	h.render(w, status, "error", Page{
		Title: http.StatusText(status),
		Error: "Error: " + err.Error(),
		Nav:   navLinks,
	})
}
