package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"crypto-backtest/internal/backtest"
	"crypto-backtest/internal/logger"
)

const (
	wsWriteWait   = 10 * time.Second
	wsPongWait    = 60 * time.Second
	wsPingPeriod  = 30 * time.Second
	wsReadLimit   = 16 << 10
	wsMaxInFlight = 4
)

var upgrader = websocket.Upgrader{
	CheckOrigin:       func(r *http.Request) bool { return true },
	EnableCompression: true,
}

// wsSession is one WebSocket peer. Each text frame is a backtest.Request;
// each reply is a backtest.Response echoing the request id. Up to
// wsMaxInFlight requests run concurrently per session.
type wsSession struct {
	conn   *websocket.Conn
	send   chan []byte
	server *Server
	ctx    context.Context
	cancel context.CancelFunc
}

// handleWS serves GET /ws/backtest.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("ws upgrade failed", append(logger.Attrs(r.Context()), slog.String("error", err.Error()))...)
		return
	}

	ctx, cancel := context.WithCancel(logger.WithRequestID(context.Background(), logger.RequestID(r.Context())))
	sess := &wsSession{
		conn:   conn,
		send:   make(chan []byte, wsMaxInFlight),
		server: s,
		ctx:    ctx,
		cancel: cancel,
	}
	s.metrics.WSOpened()
	s.log.Info("ws client connected", append(logger.Attrs(ctx), slog.String("remote", r.RemoteAddr))...)

	done := make(chan struct{})
	go func() {
		sess.writePump()
		close(done)
	}()

	sess.readPump()
	close(sess.send)
	<-done

	s.metrics.WSClosed()
	s.log.Info("ws client disconnected", logger.Attrs(ctx)...)
}

func (c *wsSession) readPump() {
	var wg sync.WaitGroup
	sem := make(chan struct{}, wsMaxInFlight)
	defer wg.Wait()
	// in-flight runs and pending replies stop once the peer is gone
	defer c.cancel()

	c.conn.SetReadLimit(wsReadLimit)
	c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var req backtest.Request
		if err := json.Unmarshal(msg, &req); err != nil {
			c.reply(backtest.Response{Error: "invalid JSON: " + err.Error(), Kind: backtest.KindInvalidConfig})
			continue
		}

		select {
		case sem <- struct{}{}:
		case <-c.ctx.Done():
			return
		}
		wg.Add(1)
		go func() {
			defer func() {
				<-sem
				wg.Done()
			}()
			rep, err := c.server.runner.Run(c.ctx, req)
			if err == nil {
				c.server.health.MarkBacktest(time.Now())
			}
			c.reply(backtest.NewResponse(req.ID, rep, err))
		}()
	}
}

func (c *wsSession) reply(resp backtest.Response) {
	b, err := json.Marshal(resp)
	if err != nil {
		return
	}
	select {
	case c.send <- b:
	case <-c.ctx.Done():
	}
}

func (c *wsSession) writePump() {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
