package ws

import (
	"net/http"
	"sync"
	"time"

	"github.com/GriffinCanCode/WebDesk/internal/domain/events"
	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 256
	maxMessage = 4096
)

// Message types
const (
	TypeEvent     = "event"
	TypeSubscribe = "subscribe"
	TypePing      = "ping"
	TypePong      = "pong"
	TypeError     = "error"
	TypeWelcome   = "welcome"
)

// Message is a frame in either direction
type Message struct {
	Type    string        `json:"type"`
	Event   *events.Event `json:"event,omitempty"`
	Names   []string      `json:"names,omitempty"`
	Message string        `json:"message,omitempty"`
	Dropped uint64        `json:"dropped,omitempty"`
}

// Counter receives connection and message counts (metrics)
type Counter interface {
	IncWSConnections()
	DecWSConnections()
	RecordWSMessage(direction string)
}

// Handler upgrades inspector requests to event streams
type Handler struct {
	bus      *events.Bus
	counter  Counter
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewHandler creates a handler over bus. counter may be nil.
func NewHandler(bus *events.Bus, counter Counter, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		bus:     bus,
		counter: counter,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// the inspector listens on loopback and CORS already vetted the page
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// HandleConnection upgrades the request and streams until either side
// closes
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	s := newStream(conn, h.counter, h.logger.With(zap.String("remote", c.ClientIP())))
	sub := h.bus.Tap(func(ev events.Event) error {
		s.push(ev)
		return nil
	})
	if h.counter != nil {
		h.counter.IncWSConnections()
	}
	h.logger.Debug("Event stream opened")

	go s.writeLoop()
	s.send(Message{Type: TypeWelcome, Message: "connected"})
	s.readLoop()

	sub.Unsubscribe()
	s.close()
	if h.counter != nil {
		h.counter.DecWSConnections()
	}
	h.logger.Debug("Event stream closed", zap.Uint64("dropped", s.droppedCount()))
}

// stream is one connection. Only writeLoop writes to conn.
type stream struct {
	conn    *websocket.Conn
	counter Counter
	logger  *zap.Logger
	out     chan Message
	done    chan struct{}
	once    sync.Once

	mu      sync.RWMutex
	filter  map[events.Name]bool // Protected by mu; nil means everything
	dropped uint64               // Protected by mu
}

func newStream(conn *websocket.Conn, counter Counter, logger *zap.Logger) *stream {
	return &stream{
		conn:    conn,
		counter: counter,
		logger:  logger,
		out:     make(chan Message, sendBuffer),
		done:    make(chan struct{}),
	}
}

// push queues ev unless it is filtered out or the client is behind
func (s *stream) push(ev events.Event) {
	s.mu.RLock()
	wanted := s.filter == nil || s.filter[ev.Name]
	s.mu.RUnlock()
	if !wanted {
		return
	}
	if !s.send(Message{Type: TypeEvent, Event: &ev}) {
		s.mu.Lock()
		s.dropped++
		s.mu.Unlock()
	}
}

func (s *stream) send(m Message) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.out <- m:
		return true
	default:
		return false
	}
}

func (s *stream) subscribe(names []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(names) == 0 {
		s.filter = nil
		return
	}
	s.filter = make(map[events.Name]bool, len(names))
	for _, n := range names {
		s.filter[events.Name(n)] = true
	}
}

func (s *stream) droppedCount() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dropped
}

func (s *stream) close() {
	s.once.Do(func() {
		close(s.done)
	})
}

func (s *stream) readLoop() {
	s.conn.SetReadLimit(maxMessage)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("WebSocket read error", zap.Error(err))
			}
			return
		}
		if s.counter != nil {
			s.counter.RecordWSMessage("in")
		}

		var msg Message
		if err := sonic.ConfigStd.Unmarshal(data, &msg); err != nil {
			s.send(Message{Type: TypeError, Message: "invalid message"})
			continue
		}
		switch msg.Type {
		case TypePing:
			s.send(Message{Type: TypePong, Dropped: s.droppedCount()})
		case TypeSubscribe:
			s.subscribe(msg.Names)
			s.send(Message{Type: TypeSubscribe, Names: msg.Names})
		default:
			s.send(Message{Type: TypeError, Message: "unknown message type " + msg.Type})
		}
	}
}

func (s *stream) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case m := <-s.out:
			if err := s.write(m); err != nil {
				s.logger.Debug("WebSocket write failed", zap.Error(err))
				s.close()
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.close()
				return
			}
		case <-s.done:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = s.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (s *stream) write(m Message) error {
	data, err := sonic.ConfigStd.Marshal(m)
	if err != nil {
		return err
	}
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return err
	}
	if s.counter != nil {
		s.counter.RecordWSMessage("out")
	}
	return nil
}
