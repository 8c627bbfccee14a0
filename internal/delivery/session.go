package delivery

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"bookfinder/internal/logger"
	"bookfinder/internal/metrics"
	"bookfinder/internal/parser"
	"bookfinder/internal/query"
	"bookfinder/internal/search"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 << 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 16384,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client operations.
const (
	OpSetFilters = "setFilters"
	OpSearch     = "search"
	OpParse      = "parse"
	OpLoadMore   = "loadMore"
	OpReset      = "reset"
)

// ClientMessage is what the page sends over the socket.
type ClientMessage struct {
	Op      string            `json:"op"`
	Filters map[string]string `json:"filters,omitempty"`
	Field   string            `json:"field,omitempty"`
	Query   string            `json:"query,omitempty"`
	Input   string            `json:"input,omitempty"`
}

// ServerMessage is pushed to the page: "session" once, then "state" after
// every change, "error" for rejected operations.
type ServerMessage struct {
	Type    string            `json:"type"`
	Session string            `json:"session,omitempty"`
	Fields  []query.FieldInfo `json:"fields,omitempty"`
	State   *StateView        `json:"state,omitempty"`
	Error   *ErrorBody        `json:"error,omitempty"`
}

// StateView is a controller snapshot with documents flattened for display.
type StateView struct {
	Filters query.FilterSet  `json:"filters"`
	Page    int              `json:"page"`
	Books   []search.BookDTO `json:"books"`
	Total   *int             `json:"total"`
	Loading bool             `json:"loading"`
	Error   string           `json:"error,omitempty"`
	HasMore bool             `json:"hasMore"`
	Status  search.Status    `json:"status"`
}

func (s *Server) view(st search.State) *StateView {
	return &StateView{
		Filters: st.Filters,
		Page:    st.Page,
		Books:   s.Service.Books(st.Results),
		Total:   st.Total,
		Loading: st.Loading,
		Error:   st.Err,
		HasMore: st.HasMore,
		Status:  st.Status,
	}
}

// wsConn serializes writes; gorilla allows one concurrent writer.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) send(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(v)
}

func (c *wsConn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// Session upgrades to a WebSocket and hosts one search controller for the
// lifetime of the connection.
func (s *Server) Session(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Log.WithError(err).Warn("ws.upgrade failed")
		return
	}
	conn := &wsConn{conn: ws}
	defer ws.Close()

	id := logger.NewID()
	ctx, cancel := context.WithCancel(logger.ContextWithID(context.Background(), id))
	defer cancel()
	log := s.Log.WithField("session", id)

	metrics.SessionsActive.Inc()
	defer metrics.SessionsActive.Dec()
	log.Info("ws.session opened")

	opts := []search.Option{search.WithContext(ctx), search.WithLogger(s.Log)}
	if s.Debounce > 0 {
		opts = append(opts, search.WithDebounce(s.Debounce))
	}
	ctrl := s.Service.NewController(opts...)
	defer ctrl.Close()

	if err := conn.send(ServerMessage{Type: "session", Session: id, Fields: query.SearchableFields()}); err != nil {
		return
	}
	ctrl.Subscribe(func(st search.State) {
		if err := conn.send(ServerMessage{Type: "state", State: s.view(st)}); err != nil {
			log.WithError(err).Debug("ws.push failed")
			_ = ws.Close()
		}
	})
	if err := conn.send(ServerMessage{Type: "state", State: s.view(ctrl.Snapshot())}); err != nil {
		return
	}

	go s.keepAlive(ctx, conn, log)
	go func() {
		// Shutdown does not track hijacked connections; the server's base context does.
		select {
		case <-r.Context().Done():
			_ = ws.Close()
		case <-ctx.Done():
		}
	}()

	ws.SetReadLimit(maxMessageSize)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for ctx.Err() == nil {
		var msg ClientMessage
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.WithError(err).Warn("ws.read failed")
			}
			break
		}
		if body := apply(ctrl, msg); body != nil {
			if err := conn.send(ServerMessage{Type: "error", Error: body}); err != nil {
				break
			}
		}
	}
	log.Info("ws.session closed")
}

func (s *Server) keepAlive(ctx context.Context, conn *wsConn, log *logrus.Entry) {
	t := time.NewTicker(pingPeriod)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := conn.ping(); err != nil {
				log.WithError(err).Debug("ws.ping failed")
				return
			}
		}
	}
}

// apply runs one client operation against the controller. A non-nil result
// describes a rejected operation.
func apply(ctrl *search.Controller, msg ClientMessage) *ErrorBody {
	switch msg.Op {
	case OpSetFilters:
		fs, err := query.FromMap(msg.Filters)
		if err != nil {
			return &ErrorBody{Code: CodeBadRequest, Message: "invalid filters", Details: err.Error()}
		}
		ctrl.SetFilters(fs)
	case OpSearch:
		f, ok := query.ParseField(msg.Field)
		if !ok {
			return &ErrorBody{Code: CodeBadRequest, Message: "unknown field", Details: msg.Field}
		}
		ctrl.SetFilters(query.One(f, msg.Query))
	case OpParse:
		ctrl.SetFilters(parser.Parse(msg.Input))
	case OpLoadMore:
		ctrl.LoadMore()
	case OpReset:
		ctrl.Reset()
	default:
		return &ErrorBody{Code: CodeBadRequest, Message: "unknown op", Details: msg.Op}
	}
	return nil
}
