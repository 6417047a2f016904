package ingress

import (
	"io"
	"net/http"

	"github.com/jmartin-dev/musiccast-hub-go/internal/upnp/event"
)

// UpnpHandler handles GENA NOTIFY callbacks for every subscribed device.
// The MusicCast hub exposes a single callback URL; NOTIFYs are routed by
// their SID header rather than by path.
type UpnpHandler struct {
	dir *Directory
}

// NewUpnpHandler builds a handler that routes NOTIFYs via dir.
func NewUpnpHandler(dir *Directory) *UpnpHandler {
	return &UpnpHandler{dir: dir}
}

func (h *UpnpHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	notify, ok := event.ParseNotify(r, body)
	if !ok {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	ag, ok := h.dir.FindBySessionID(notify.SID)
	if !ok {
		w.WriteHeader(http.StatusGone)
		return
	}

	ag.PushUpnpEvent(notify.SID, notify.Properties)
	w.WriteHeader(http.StatusOK)
}
