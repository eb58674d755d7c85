package transport

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait      = 5 * time.Second
	maxClientFrame = 512
)

type subscriber struct {
	conn *websocket.Conn
	addr string
}

// Server broadcasts frames to every connected websocket client. Clients only
// listen; anything they send is discarded.
type Server struct {
	upgrader websocket.Upgrader
	log      logrus.FieldLogger

	mu          sync.Mutex
	subscribers map[*subscriber]struct{}
}

func NewServer(log logrus.FieldLogger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Server{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		log:         log.WithField("component", "transport"),
		subscribers: map[*subscriber]struct{}{},
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	sub := &subscriber{conn: conn, addr: r.RemoteAddr}
	s.mu.Lock()
	s.subscribers[sub] = struct{}{}
	s.mu.Unlock()
	s.log.WithField("addr", sub.addr).Info("client subscribed")

	conn.SetReadLimit(maxClientFrame)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	s.drop(sub)
}

func (s *Server) drop(sub *subscriber) {
	s.mu.Lock()
	_, ok := s.subscribers[sub]
	delete(s.subscribers, sub)
	s.mu.Unlock()
	if ok {
		sub.conn.Close()
		s.log.WithField("addr", sub.addr).Info("client unsubscribed")
	}
}

// Subscribers is the number of connected clients.
func (s *Server) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subscribers)
}

// Broadcast encodes f once and writes it to every subscriber. A subscriber
// whose write fails is dropped.
func (s *Server) Broadcast(f Frame) error {
	data, err := Encode(f)
	if err != nil {
		return err
	}
	s.mu.Lock()
	subs := make([]*subscriber, 0, len(s.subscribers))
	for sub := range s.subscribers {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		err := sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err == nil {
			err = sub.conn.WriteMessage(websocket.BinaryMessage, data)
		}
		if err != nil {
			s.log.WithError(err).WithField("addr", sub.addr).Warn("dropping subscriber")
			s.drop(sub)
		}
	}
	return nil
}

// ListenAndServe serves the websocket endpoint at /ws on addr until ctx is
// cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/ws", s)
	srv := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.log.WithField("addr", addr).Info("listening")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), writeWait)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
