package api

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/zoravur/bookshelf-live/internal/live"
	"github.com/zoravur/bookshelf-live/internal/logutil"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsTransport adapts a gorilla connection to live.Transport. The upgrade
// happens in Accept so the registry owns the handshake.
type wsTransport struct {
	w    http.ResponseWriter
	r    *http.Request
	conn *websocket.Conn
}

func (t *wsTransport) Accept() error {
	conn, err := upgrader.Upgrade(t.w, t.r, nil)
	if err != nil {
		return err
	}
	t.conn = conn
	return nil
}

func (t *wsTransport) ReadText() (string, error) {
	_, msg, err := t.conn.ReadMessage()
	if err != nil {
		if websocket.IsCloseError(err,
			websocket.CloseNormalClosure,
			websocket.CloseGoingAway,
			websocket.CloseNoStatusReceived,
		) {
			return "", fmt.Errorf("%w: %w", live.ErrDisconnected, err)
		}
		return "", err
	}
	return string(msg), nil
}

func (t *wsTransport) WriteText(text string) error {
	return t.conn.WriteMessage(websocket.TextMessage, []byte(text))
}

func (t *wsTransport) Close() error {
	if t.conn == nil {
		return nil
	}
	return t.conn.Close()
}

// HandleChat serves /ws/chat/{clientID}. The client id becomes the display
// label as given; it is not checked for uniqueness.
func (h *Handlers) HandleChat(w http.ResponseWriter, r *http.Request) {
	label := chi.URLParam(r, "clientID")
	c := live.NewConn(label, &wsTransport{w: w, r: r})
	if err := h.Registry.Serve(r.Context(), c, h.Registry.ChatHandler()); err != nil {
		logutil.FromContext(r.Context()).Warn("chat connection rejected",
			zap.String("label", label),
			zap.Error(err),
		)
	}
}

// HandleImages serves /ws/images: an anonymous connection that keeps an
// image generator running while it stays open.
func (h *Handlers) HandleImages(w http.ResponseWriter, r *http.Request) {
	c := live.NewConn("", &wsTransport{w: w, r: r})
	if err := h.Registry.Serve(r.Context(), c, h.Images.Handler()); err != nil {
		logutil.FromContext(r.Context()).Warn("image stream rejected", zap.Error(err))
	}
}

type connView struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	State string `json:"state"`
}

func (h *Handlers) listConnections(w http.ResponseWriter, r *http.Request) {
	views := lo.Map(h.Registry.Snapshot(), func(c *live.Conn, _ int) connView {
		return connView{ID: c.ID.String(), Label: c.Label, State: c.State().String()}
	})
	sort.Slice(views, func(i, j int) bool { return views[i].Label < views[j].Label })
	writeJSON(w, http.StatusOK, map[string]any{
		"count":       len(views),
		"connections": views,
	})
}
