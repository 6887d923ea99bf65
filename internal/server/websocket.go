package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/sparod/melo/internal/event"
)

// handleRequestWS serves JSON-RPC over a websocket. Each incoming frame is
// one request or batch; frames without an id-bearing request produce no
// response frame. A socket opened under /api/request/{kind}/{id} scopes the
// connection: requests lacking an id param inherit the path's.
func (s *Server) handleRequestWS(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	if _, ok := event.ParseKind(kind); !ok {
		// an unknown kind is a bad path, refused before the handshake
		http.Error(w, "unknown kind", http.StatusBadRequest)
		return
	}
	subject := chi.URLParam(r, "id")

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.log.Debug("websocket accept failed", zap.Error(err))
		return
	}
	defer conn.Close(websocket.StatusInternalError, "")

	ctx := r.Context()
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		if subject != "" {
			data = injectID(data, subject)
		}
		resp := s.rpc.Handle(ctx, data)
		if resp == nil {
			continue
		}
		if err := conn.Write(ctx, websocket.MessageText, resp); err != nil {
			return
		}
	}
}

// injectID adds the socket's path id to every request object whose params
// lack one. Malformed frames pass through untouched for the JSON-RPC layer
// to reject.
func injectID(data []byte, id string) []byte {
	var batch []json.RawMessage
	if err := json.Unmarshal(data, &batch); err == nil && len(batch) > 0 {
		changed := false
		for i, raw := range batch {
			if out, ok := injectOne(raw, id); ok {
				batch[i] = out
				changed = true
			}
		}
		if !changed {
			return data
		}
		out, err := json.Marshal(batch)
		if err != nil {
			return data
		}
		return out
	}
	if out, ok := injectOne(data, id); ok {
		return out
	}
	return data
}

func injectOne(raw json.RawMessage, id string) (json.RawMessage, bool) {
	var req map[string]json.RawMessage
	if err := json.Unmarshal(raw, &req); err != nil {
		return raw, false
	}
	var params map[string]json.RawMessage
	if p, ok := req["params"]; ok {
		if err := json.Unmarshal(p, &params); err != nil {
			return raw, false
		}
	}
	if params == nil {
		params = map[string]json.RawMessage{}
	}
	if _, ok := params["id"]; ok {
		return raw, false
	}
	idJSON, err := json.Marshal(id)
	if err != nil {
		return raw, false
	}
	params["id"] = idJSON
	p, err := json.Marshal(params)
	if err != nil {
		return raw, false
	}
	req["params"] = p
	out, err := json.Marshal(req)
	if err != nil {
		return raw, false
	}
	return out, true
}

// handleEventWS streams bus events for one kind, optionally scoped to a
// subject, until the client goes away. Client frames are ignored.
func (s *Server) handleEventWS(w http.ResponseWriter, r *http.Request) {
	kind, ok := event.ParseKind(chi.URLParam(r, "kind"))
	if !ok {
		// an unknown kind is a bad path, refused before the handshake
		http.Error(w, "unknown kind", http.StatusBadRequest)
		return
	}
	subject := chi.URLParam(r, "id")

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.log.Debug("websocket accept failed", zap.Error(err))
		return
	}

	if subject != "" && !s.subjectExists(kind, subject) {
		conn.Close(websocket.StatusUnsupportedData, "unknown subject")
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// send from one goroutine only; an erroring sink detaches the listener.
	// The sink must never block the emitting player or playlist, so a full
	// buffer detaches the subscriber instead of stalling the source.
	frames := make(chan []byte, 16)
	var stalled atomic.Bool
	token := s.bus.AddListener(kind, subject, func(payload []byte) error {
		select {
		case frames <- payload:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		default:
			stalled.Store(true)
			cancel()
			return errors.New("subscriber not keeping up")
		}
	})
	defer s.bus.RemoveListener(kind, token)

	go func() {
		// drain client frames, detect disconnect
		defer cancel()
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			if stalled.Load() {
				conn.Close(websocket.StatusInternalError, "event overflow")
				return
			}
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case payload := <-frames:
			if err := conn.Write(ctx, websocket.MessageText, payload); err != nil {
				conn.Close(websocket.StatusInternalError, "")
				return
			}
		}
	}
}

// subjectExists checks the registry for the event subject.
func (s *Server) subjectExists(kind event.Kind, id string) bool {
	switch kind {
	case event.KindBrowser:
		if _, release, ok := s.reg.GetBrowser(id); ok {
			release()
			return true
		}
	case event.KindPlayer:
		if _, release, ok := s.reg.GetPlayer(id); ok {
			release()
			return true
		}
	case event.KindPlaylist:
		if _, release, ok := s.reg.GetPlaylist(id); ok {
			release()
			return true
		}
	}
	return false
}
