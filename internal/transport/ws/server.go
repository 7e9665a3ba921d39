// Package ws connects clansd to a game server over a websocket. The game
// server reports presence, commands and combat; clansd answers and pushes
// messages, effects and item changes back.
package ws

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/notdash999-netizen/simple-clans-mod/internal/clans/engine"
	"github.com/notdash999-netizen/simple-clans-mod/internal/protocol"
)

type Config struct {
	// Token, when set, must match the HELLO token.
	Token             string
	CommandsPerSecond float64
	CommandBurst      int
	OutQueue          int
}

type Server struct {
	engine    *engine.Engine
	bridge    *Bridge
	dispatch  *Dispatcher
	validator *protocol.Validator
	cfg       Config
	log       *log.Logger

	upgrader websocket.Upgrader

	mu     sync.Mutex
	active *websocket.Conn
}

func NewServer(e *engine.Engine, b *Bridge, cfg Config, logger *log.Logger) (*Server, error) {
	v, err := protocol.NewValidator()
	if err != nil {
		return nil, err
	}
	if cfg.CommandsPerSecond <= 0 {
		cfg.CommandsPerSecond = 5
	}
	if cfg.CommandBurst <= 0 {
		cfg.CommandBurst = 10
	}
	if cfg.OutQueue <= 0 {
		cfg.OutQueue = 1024
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		engine:    e,
		bridge:    b,
		dispatch:  NewDispatcher(e),
		validator: v,
		cfg:       cfg,
		log:       logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}, nil
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		name, ok := s.handshake(conn)
		if !ok {
			return
		}
		s.replace(conn)
		s.log.Printf("bridge: game server %q connected from %s", name, r.RemoteAddr)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		out := make(chan []byte, s.cfg.OutQueue)
		s.bridge.Attach(out)

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b := <-out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		limiter := rate.NewLimiter(rate.Limit(s.cfg.CommandsPerSecond), s.cfg.CommandBurst)

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				break
			}
			s.handle(ctx, out, limiter, msg)
		}

		// Cleanup.
		if s.bridge.Detach(out) {
			for _, id := range s.bridge.Clear() {
				s.engine.OnDisconnect(id)
			}
		}
		s.release(conn)
		s.log.Printf("bridge: game server %q disconnected", name)
	}
}

// replace makes conn the active game server, closing any previous one.
func (s *Server) replace(conn *websocket.Conn) {
	s.mu.Lock()
	prev := s.active
	s.active = conn
	s.mu.Unlock()
	if prev != nil {
		_ = prev.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "replaced"), time.Now().Add(time.Second))
		_ = prev.Close()
	}
}

func (s *Server) release(conn *websocket.Conn) {
	s.mu.Lock()
	if s.active == conn {
		s.active = nil
	}
	s.mu.Unlock()
}

// Close disconnects the active game server, if any.
func (s *Server) Close() {
	s.mu.Lock()
	conn := s.active
	s.active = nil
	s.mu.Unlock()
	if conn != nil {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutdown"), time.Now().Add(time.Second))
		_ = conn.Close()
	}
}

func (s *Server) handshake(conn *websocket.Conn) (string, bool) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", false
	}
	reject := func(reason string) (string, bool) {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason), time.Now().Add(time.Second))
		return "", false
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		return reject("expected HELLO")
	}
	if err := s.validator.Validate(protocol.TypeHello, msg); err != nil {
		return reject("bad HELLO")
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return reject("bad HELLO")
	}
	if hello.ProtocolVersion != protocol.Version {
		return reject("bad protocol_version")
	}
	if s.cfg.Token != "" && subtle.ConstantTimeCompare([]byte(hello.Token), []byte(s.cfg.Token)) != 1 {
		return reject("bad token")
	}

	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       uuid.NewString(),
		Commands:        s.dispatch.Commands(),
	}
	if err := writeJSON(conn, welcome); err != nil {
		return "", false
	}
	return hello.ServerName, true
}

func (s *Server) handle(ctx context.Context, out chan []byte, limiter *rate.Limiter, msg []byte) {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		s.reply(ctx, out, protocol.ErrorMsg{Type: protocol.TypeError, Code: protocol.ErrProtoBadRequest, Message: "malformed frame"})
		return
	}
	if err := s.validator.Validate(base.Type, msg); err != nil {
		s.reply(ctx, out, protocol.ErrorMsg{Type: protocol.TypeError, Code: protocol.ErrProtoBadRequest, Message: err.Error()})
		return
	}

	switch base.Type {
	case protocol.TypePresence:
		var m protocol.PresenceMsg
		if err := json.Unmarshal(msg, &m); err != nil {
			return
		}
		joined, left, bad := s.bridge.ApplyPresence(m)
		for _, raw := range bad {
			s.log.Printf("bridge: presence: malformed player id %q skipped", raw)
		}
		for _, p := range joined {
			s.engine.OnJoin(p)
		}
		for _, id := range left {
			s.engine.OnDisconnect(id)
		}

	case protocol.TypeGone:
		var m protocol.GoneMsg
		if err := json.Unmarshal(msg, &m); err != nil {
			return
		}
		if id, err := uuid.Parse(m.Player); err == nil && s.bridge.Drop(id) {
			s.engine.OnDisconnect(id)
		}

	case protocol.TypeCmd:
		var m protocol.CmdMsg
		if err := json.Unmarshal(msg, &m); err != nil {
			return
		}
		s.reply(ctx, out, s.command(limiter, m))

	case protocol.TypeAttack:
		var m protocol.AttackMsg
		if err := json.Unmarshal(msg, &m); err != nil {
			return
		}
		attacker, err1 := uuid.Parse(m.Attacker)
		victim, err2 := uuid.Parse(m.Victim)
		if err1 != nil || err2 != nil {
			return
		}
		d := s.engine.OnAttack(attacker, victim)
		s.reply(ctx, out, protocol.DamageMsg{
			Type:       protocol.TypeDamage,
			ReqID:      m.ReqID,
			Blocked:    d.Blocked,
			Reason:     string(d.Reason),
			Multiplier: d.Multiplier,
		})

	case protocol.TypeDeath:
		var m protocol.DeathMsg
		if err := json.Unmarshal(msg, &m); err != nil {
			return
		}
		victim, err := uuid.Parse(m.Victim)
		if err != nil {
			return
		}
		last := uuid.Nil
		if m.LastAttacker != "" {
			if id, err := uuid.Parse(m.LastAttacker); err == nil {
				last = id
			}
		}
		s.engine.OnDeath(victim, last)

	case protocol.TypeHello:
		s.reply(ctx, out, protocol.ErrorMsg{Type: protocol.TypeError, Code: protocol.ErrProtoBadRequest, Message: "already connected"})
	}
}

func (s *Server) command(limiter *rate.Limiter, m protocol.CmdMsg) protocol.ResultMsg {
	res := protocol.ResultMsg{Type: protocol.TypeResult, ReqID: m.ReqID}
	if !limiter.Allow() {
		res.Code = protocol.ErrRateLimit
		return res
	}
	actor, err := uuid.Parse(m.Player)
	if err != nil {
		res.Code = protocol.ErrProtoBadRequest
		return res
	}
	r, err := s.dispatch.Dispatch(actor, m.Name, m.Args)
	if err != nil {
		var ue *UsageError
		switch {
		case errors.As(err, &ue):
			res.Code = protocol.ErrUsage
		case errors.Is(err, ErrUnknownCommand):
			res.Code = protocol.ErrUnknownCommand
		default:
			res.Code = protocol.CodeFor(err)
			if res.Code == protocol.ErrInternal {
				s.log.Printf("bridge: command %s: %v", m.Name, err)
			}
		}
		res.Message = err.Error()
		return res
	}
	res.OK = true
	res.Key = r.Key
	res.Args = r.Args
	return res
}

// reply queues a direct answer, waiting for room unless the connection is
// going away.
func (s *Server) reply(ctx context.Context, out chan []byte, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		s.log.Printf("bridge: encode %T: %v", v, err)
		return
	}
	select {
	case out <- b:
	case <-ctx.Done():
	}
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
