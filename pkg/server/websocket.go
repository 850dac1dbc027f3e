package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

// handleLive upgrades the connection and drives the session's mutation loop.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "session")

	sess, err := s.Session(id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		s.logger.Error("websocket upgrade failed", "session", id, "error", err)
		return
	}

	s.logger.Info("live connection opened", "session", id)
	s.readLoop(r, conn, sess)
}

// readLoop reads client messages until the connection closes. Each mutation
// is applied and flushed before the next one is read, so a connection
// observes its own writes in order.
func (s *Server) readLoop(r *http.Request, conn *websocket.Conn, sess *Session) {
	defer conn.Close()

	for {
		conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))

		var mut Mutation
		if err := conn.ReadJSON(&mut); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				sess.logger.Error("read error", "error", err)
			}
			return
		}

		var reply Reply
		switch mut.Op {
		case "ping":
			reply = Reply{Op: "pong"}
		default:
			ran, err := sess.Apply(r.Context(), mut)
			if err != nil {
				sess.logger.Warn("mutation rejected", "op", mut.Op, "target", mut.Target, "error", err)
				reply = Reply{Op: "error", Error: err.Error()}
			} else {
				reply = Reply{Op: "flushed", Ran: ran}
			}
		}

		conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
		if err := conn.WriteJSON(reply); err != nil {
			sess.logger.Error("write error", "error", err)
			return
		}
	}
}
