package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sharedcanvas/internal/canvas"
	"sharedcanvas/internal/config"
	"sharedcanvas/internal/export"
	"sharedcanvas/internal/feed"
	"sharedcanvas/internal/metrics"
)

const healthMessage = "Backend is running!"

var errServerClosed = errors.New("server has exited")

type registration struct {
	client *Client
	rsp    chan error
}

type inbound struct {
	src *Client
	msg IncomingMessage
	err error
}

// Server routes participant events into the shared board and fans the
// results back out. All board access happens on the goroutine running Run.
type Server struct {
	cfg      *config.Config
	logger   *slog.Logger
	metrics  *metrics.Collectors
	gatherer prometheus.Gatherer
	feed     feed.Publisher
	upgrader websocket.Upgrader

	register   chan registration
	unregister chan *Client
	inbound    chan inbound
	snapshots  chan chan canvas.Snapshot
	done       chan struct{}

	// Owned by Run.
	board     *canvas.Board
	clients   map[*Client]struct{}
	admission *admission
	dropped   []*Client
}

// NewServer builds a server whose metrics are registered on reg. A nil pub
// disables the event feed.
func NewServer(cfg *config.Config, logger *slog.Logger, reg *prometheus.Registry, pub feed.Publisher) *Server {
	if pub == nil {
		pub = feed.Nop{}
	}
	naming, err := canvas.ParseNaming(cfg.Canvas.Naming)
	if err != nil {
		naming = canvas.NamingLive
	}

	s := &Server{
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "event_router")),
		metrics:  metrics.New(reg),
		gatherer: reg,
		feed:     pub,

		register:   make(chan registration),
		unregister: make(chan *Client),
		inbound:    make(chan inbound),
		snapshots:  make(chan chan canvas.Snapshot),
		done:       make(chan struct{}),

		board:     canvas.NewBoard(naming),
		clients:   make(map[*Client]struct{}),
		admission: newAdmission(cfg.Limits),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if s.cfg.Server.Environment == "development" {
		return true
	}
	origin := r.Header.Get("Origin")
	return origin == "" || origin == s.cfg.Server.AllowedOrigin
}

// Run applies events one at a time until ctx is cancelled. Every handler
// runs to completion before the next event is taken, so broadcast order is
// the order in which mutations were applied.
func (s *Server) Run(ctx context.Context) {
	select {
	case <-s.done:
		panic("server has already been run")
	default:
	}
	defer close(s.done)
	defer s.closeAll()

	for {
		select {
		case <-ctx.Done():
			return

		case r := <-s.register:
			r.rsp <- s.join(r.client)

		case c := <-s.unregister:
			s.leave(c)

		case in := <-s.inbound:
			s.dispatch(in)

		case rsp := <-s.snapshots:
			rsp <- s.board.Snapshot()
		}

		s.flushDropped()
	}
}

func (s *Server) Register(c *Client) error {
	rsp := make(chan error, 1)
	select {
	case <-s.done:
		return errServerClosed
	case s.register <- registration{client: c, rsp: rsp}:
	}
	return <-rsp
}

func (s *Server) Unregister(c *Client) {
	select {
	case <-s.done:
	case s.unregister <- c:
	}
}

// Receive decodes a raw frame from c and queues it for the loop.
func (s *Server) Receive(c *Client, data []byte) {
	msg, err := decodeIncoming(data)
	select {
	case <-s.done:
	case s.inbound <- inbound{src: c, msg: msg, err: err}:
	}
}

// Snapshot returns a copy of the board as seen by the loop.
func (s *Server) Snapshot(ctx context.Context) (canvas.Snapshot, error) {
	rsp := make(chan canvas.Snapshot, 1)
	select {
	case <-s.done:
		return canvas.Snapshot{}, errServerClosed
	case <-ctx.Done():
		return canvas.Snapshot{}, ctx.Err()
	case s.snapshots <- rsp:
	}
	return <-rsp, nil
}

func (s *Server) join(c *Client) error {
	if err := s.admission.admit(c.Addr); err != nil {
		return err
	}
	s.clients[c] = struct{}{}
	s.metrics.Connections.Set(float64(len(s.clients)))

	name := s.board.Join(c.ID)
	c.logger.Info("User connected", slog.String("name", name))

	initMsg, err := newMessageWith(TypeInitializeCanvas, InitialMessage{
		History:  s.board.Strokes.History(),
		Presence: s.board.Presence.Snapshot(),
	})
	if err != nil {
		c.logger.Error("error marshaling initial state", slog.Any("error", err))
	} else {
		s.sendTo(c, initMsg)
	}
	s.broadcastUsers()
	return nil
}

// leave removes c and releases everything it held. It is safe to call more
// than once for the same client.
func (s *Server) leave(c *Client) {
	if _, ok := s.clients[c]; !ok {
		return
	}
	delete(s.clients, c)
	close(c.send)
	s.admission.release(c.Addr)
	s.metrics.Connections.Set(float64(len(s.clients)))

	name, _, writerCleared := s.board.Leave(c.ID)
	c.logger.Info("User disconnected", slog.String("name", name))

	s.broadcastUsers()
	if writerCleared {
		s.broadcastWriter()
	}
}

func (s *Server) dispatch(in inbound) {
	c := in.src
	if _, ok := s.clients[c]; !ok {
		return
	}
	if !s.admission.allow(c.Addr) {
		s.reject(c, "rate_limited", errRateLimited)
		return
	}
	if in.err != nil {
		s.reject(c, "malformed", in.err)
		return
	}

	s.metrics.Events.WithLabelValues(in.msg.Type).Inc()
	defer func() {
		s.metrics.ObserveBoard(s.board.Strokes.Len(), s.board.Strokes.RedoDepth())
	}()

	switch in.msg.Type {
	case TypeStartDrawing:
		if _, ok := s.board.StartDrawing(c.ID); ok {
			s.broadcastWriter()
		}

	case TypeStopDrawing:
		s.board.StopDrawing()
		s.broadcastWriter()

	case TypeDraw:
		stroke, err := canvas.ParseStroke(in.msg.Data)
		if err != nil {
			s.reject(c, "invalid_stroke", err)
			return
		}
		s.board.Strokes.Append(stroke)
		s.broadcastValue(TypeDraw, stroke)

	case TypeUndo:
		history, ok := s.board.Strokes.PopToRedo()
		if !ok {
			return
		}
		s.broadcastValue(TypeUndo, history)

	case TypeRedo:
		stroke, ok := s.board.Strokes.PopToHistory()
		if !ok {
			return
		}
		s.broadcastValue(TypeDraw, stroke)

	case TypeClearAll:
		s.board.Strokes.Clear()
		s.broadcast(newMessage(TypeClearCanvas))
	}
}

func (s *Server) reject(c *Client, reason string, err error) {
	c.logger.Warn("Rejected client event", slog.String("reason", reason), slog.Any("error", err))
	s.metrics.Rejected.WithLabelValues(reason).Inc()

	msg, mErr := newMessageWith(TypeError, err.Error())
	if mErr != nil {
		return
	}
	s.sendTo(c, msg)
}

func (s *Server) broadcastUsers() {
	s.broadcastValue(TypeUpdateUsers, s.board.Presence.Snapshot())
}

func (s *Server) broadcastWriter() {
	s.broadcastValue(TypeWhoIsWriting, s.board.Writer.Ptr())
}

func (s *Server) broadcastValue(typ string, data any) {
	msg, err := newMessageWith(typ, data)
	if err != nil {
		s.logger.Error("error marshaling broadcast", slog.String("type", typ), slog.Any("error", err))
		return
	}
	s.broadcast(msg)
}

func (s *Server) broadcast(msg OutgoingMessage) {
	jsonMsg, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error("error marshaling json", slog.Any("error", err))
		return
	}
	s.metrics.Broadcasts.Inc()
	s.feed.Publish(jsonMsg)

	for c := range s.clients {
		if c.dropped {
			continue
		}
		if !c.enqueue(jsonMsg) {
			s.drop(c)
		}
	}
}

func (s *Server) sendTo(c *Client, msg OutgoingMessage) {
	jsonMsg, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error("error marshaling json", slog.Any("error", err))
		return
	}
	if !c.dropped && !c.enqueue(jsonMsg) {
		s.drop(c)
	}
}

// drop marks a client whose queue is full. Removal is deferred to
// flushDropped so a broadcast never mutates the client set it is iterating.
func (s *Server) drop(c *Client) {
	if c.dropped {
		return
	}
	c.dropped = true
	s.dropped = append(s.dropped, c)
	s.metrics.Dropped.Inc()
	c.logger.Warn("Send queue full, dropping client")
}

func (s *Server) flushDropped() {
	for len(s.dropped) > 0 {
		c := s.dropped[0]
		s.dropped = s.dropped[1:]
		s.leave(c)
	}
}

func (s *Server) closeAll() {
	for c := range s.clients {
		delete(s.clients, c)
		close(c.send)
	}
	s.metrics.Connections.Set(0)
}

// Routes returns the HTTP surface: health check, websocket endpoint,
// history and export downloads, and metrics.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{s.cfg.Server.AllowedOrigin},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/", s.handleHealth)
	r.Get("/ws", s.handleConnections)
	r.Get("/history", s.handleHistory)
	r.Get("/export.pdf", s.handleExport)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.logger.Debug("Incoming HTTP request",
			slog.String("method", r.Method),
			slog.String("uri", r.RequestURI),
			slog.String("remoteAddr", r.RemoteAddr),
		)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(rw http.ResponseWriter, req *http.Request) {
	rw.Header().Set("Content-Type", "text/plain; charset=utf-8")
	rw.Write([]byte(healthMessage))
}

func (s *Server) handleConnections(rw http.ResponseWriter, req *http.Request) {
	addr, ok := getIP(req)
	if !ok {
		s.logger.Warn("could not determine IP address for connection", slog.String("remoteAddr", req.RemoteAddr))
		http.Error(rw, "could not determine necessary information", http.StatusBadRequest)
		return
	}

	conn, err := s.upgrader.Upgrade(rw, req, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		s.logger.Warn("error upgrading connection", slog.Any("error", err))
		return
	}

	client := newClient(conn, addr, s.cfg.Transport.SendBuffer, s.logger)
	if err := s.Register(client); err != nil {
		client.logger.Warn("Connection refused", slog.Any("error", err))
		refuse(conn, err, s.cfg.Transport.WriteWait)
		return
	}

	go client.writePump(s.cfg.Transport)
	s.readPump(client)
}

// readPump forwards frames from c to the loop until the connection fails,
// then unregisters c.
func (s *Server) readPump(c *Client) {
	defer s.Unregister(c)

	tc := s.cfg.Transport
	c.SetReadLimit(tc.MaxMessageSize)
	c.SetReadDeadline(time.Now().Add(tc.PongWait))
	c.SetPongHandler(func(string) error {
		return c.SetReadDeadline(time.Now().Add(tc.PongWait))
	})

	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				c.logger.Info("error reading message", slog.Any("error", err))
			}
			return
		}
		s.Receive(c, data)
	}
}

// refuse tells a client why it was not admitted and closes the connection.
func refuse(conn *websocket.Conn, reason error, wait time.Duration) {
	defer conn.Close()

	deadline := time.Now().Add(wait)
	if msg, err := newMessageWith(TypeError, reason.Error()); err == nil {
		if data, err := json.Marshal(msg); err == nil {
			conn.SetWriteDeadline(deadline)
			conn.WriteMessage(websocket.TextMessage, data)
		}
	}
	conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason.Error()), deadline)
}

func (s *Server) handleHistory(rw http.ResponseWriter, req *http.Request) {
	snap, err := s.Snapshot(req.Context())
	if err != nil {
		http.Error(rw, "canvas unavailable", http.StatusServiceUnavailable)
		return
	}

	rw.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(rw).Encode(snap); err != nil {
		s.logger.Warn("error writing history", slog.Any("error", err))
	}
}

func (s *Server) handleExport(rw http.ResponseWriter, req *http.Request) {
	snap, err := s.Snapshot(req.Context())
	if err != nil {
		http.Error(rw, "canvas unavailable", http.StatusServiceUnavailable)
		return
	}

	var buf bytes.Buffer
	if err := export.PDF(&buf, snap.History); err != nil {
		s.logger.Error("error rendering PDF", slog.Any("error", err))
		http.Error(rw, "could not render canvas", http.StatusInternalServerError)
		return
	}

	rw.Header().Set("Content-Type", "application/pdf")
	rw.Header().Set("Content-Disposition", `attachment; filename="canvas.pdf"`)
	rw.Write(buf.Bytes())
}
