package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/akshatvasisht/oversite/internal/model"
	"github.com/akshatvasisht/oversite/internal/track"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024 * 64,
	WriteBufferSize: 1024 * 64,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local dev; restrict in production
	},
}

// WebSocket message types from client.
const (
	wsMsgLoadSession = "load_session"
	wsMsgDecide      = "decide"
	wsMsgResolve     = "resolve"
	wsMsgFinish      = "finish"
)

// WebSocket message types to client.
const (
	wsMsgSession  = "session"
	wsMsgDecision = "decision"
	wsMsgResolved = "resolved"
	wsMsgScore    = "score"
	wsMsgError    = "error"
)

// wsMessage is the envelope for WebSocket messages in both directions.
type wsMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// wsLoadSession is the payload for "load_session" messages.
type wsLoadSession struct {
	SessionID string `json:"session_id"`
}

// wsDecideMsg is the payload for "decide" messages.
type wsDecideMsg struct {
	SuggestionID  string `json:"suggestion_id"`
	ChunkIndex    int    `json:"chunk_index"`
	Decision      string `json:"decision"`
	FinalCode     string `json:"final_code"`
	TimeOnChunkMS int    `json:"time_on_chunk_ms"`
}

// wsResolveMsg is the payload for "resolve" messages.
type wsResolveMsg struct {
	SuggestionID string `json:"suggestion_id"`
	FinalContent string `json:"final_content"`
	AllAccepted  bool   `json:"all_accepted"`
	AnyModified  bool   `json:"any_modified"`
}

// wsSessionResponse is sent after a session is loaded.
type wsSessionResponse struct {
	SessionID string `json:"session_id"`
	Username  string `json:"username"`
	Events    int    `json:"events"`
	Ended     bool   `json:"ended"`
}

// wsDecisionResponse confirms a chunk decision.
type wsDecisionResponse struct {
	SuggestionID  string `json:"suggestion_id"`
	ChunkIndex    int    `json:"chunk_index"`
	Decision      string `json:"decision"`
	TimeOnChunkMS int    `json:"time_on_chunk_ms"`
	Resolved      bool   `json:"resolved"`
}

// wsResolvedResponse confirms a forced resolution.
type wsResolvedResponse struct {
	SuggestionID string `json:"suggestion_id"`
	AllAccepted  bool   `json:"all_accepted"`
	AnyModified  bool   `json:"any_modified"`
}

// wsFeedSession holds the state for one WebSocket connection.
type wsFeedSession struct {
	session *model.Session
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	feed := &wsFeedSession{}

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("websocket read: %v", err)
			}
			return
		}

		var msg wsMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			sendWSError(conn, "invalid message format")
			continue
		}

		switch msg.Type {
		case wsMsgLoadSession:
			s.handleWSLoadSession(conn, feed, msg.Data, r)
		case wsMsgDecide:
			s.handleWSDecide(conn, feed, msg.Data, r)
		case wsMsgResolve:
			s.handleWSResolve(conn, feed, msg.Data, r)
		case wsMsgFinish:
			s.handleWSFinish(conn, feed, r)
		default:
			sendWSError(conn, "unknown message type: "+msg.Type)
		}
	}
}

func (s *Server) handleWSLoadSession(conn *websocket.Conn, feed *wsFeedSession, data json.RawMessage, r *http.Request) {
	var req wsLoadSession
	if err := json.Unmarshal(data, &req); err != nil {
		sendWSError(conn, "invalid load_session data")
		return
	}

	session, err := s.store.GetSession(r.Context(), req.SessionID)
	if err != nil {
		sendWSError(conn, "loading session: "+err.Error())
		return
	}
	feed.session = session

	events, err := s.store.ListEvents(r.Context(), session.ID)
	if err != nil {
		sendWSError(conn, "loading events: "+err.Error())
		return
	}

	sendWSMessage(conn, wsMsgSession, wsSessionResponse{
		SessionID: session.ID,
		Username:  session.Username,
		Events:    len(events),
		Ended:     session.EndedAt != nil,
	})
}

func (s *Server) handleWSDecide(conn *websocket.Conn, feed *wsFeedSession, data json.RawMessage, r *http.Request) {
	if feed.session == nil {
		sendWSError(conn, "no session loaded")
		return
	}

	var req wsDecideMsg
	if err := json.Unmarshal(data, &req); err != nil {
		sendWSError(conn, "invalid decide data")
		return
	}

	res, err := s.tracker.Decide(r.Context(), track.DecideRequest{
		SessionID:     feed.session.ID,
		SuggestionID:  req.SuggestionID,
		ChunkIndex:    req.ChunkIndex,
		Decision:      model.Decision(req.Decision),
		FinalCode:     req.FinalCode,
		TimeOnChunkMS: req.TimeOnChunkMS,
		Actor:         feed.session.Username,
	})
	if err != nil {
		sendWSError(conn, "deciding chunk: "+err.Error())
		return
	}

	sendWSMessage(conn, wsMsgDecision, wsDecisionResponse{
		SuggestionID:  req.SuggestionID,
		ChunkIndex:    req.ChunkIndex,
		Decision:      string(res.Decision.Decision),
		TimeOnChunkMS: res.Decision.TimeOnChunkMS,
		Resolved:      res.Resolution != nil,
	})
}

func (s *Server) handleWSResolve(conn *websocket.Conn, feed *wsFeedSession, data json.RawMessage, r *http.Request) {
	if feed.session == nil {
		sendWSError(conn, "no session loaded")
		return
	}

	var req wsResolveMsg
	if err := json.Unmarshal(data, &req); err != nil {
		sendWSError(conn, "invalid resolve data")
		return
	}

	res, err := s.tracker.Resolve(r.Context(), track.ResolveRequest{
		SessionID:    feed.session.ID,
		SuggestionID: req.SuggestionID,
		FinalContent: req.FinalContent,
		AllAccepted:  req.AllAccepted,
		AnyModified:  req.AnyModified,
		Actor:        feed.session.Username,
	})
	if err != nil {
		sendWSError(conn, "resolving suggestion: "+err.Error())
		return
	}

	sendWSMessage(conn, wsMsgResolved, wsResolvedResponse{
		SuggestionID: res.SuggestionID,
		AllAccepted:  res.AllAccepted,
		AnyModified:  res.AnyModified,
	})
}

func (s *Server) handleWSFinish(conn *websocket.Conn, feed *wsFeedSession, r *http.Request) {
	if feed.session == nil {
		sendWSError(conn, "no session loaded")
		return
	}

	sc, err := s.pipeline.Run(r.Context(), feed.session.ID)
	if err != nil {
		sendWSError(conn, "scoring session: "+err.Error())
		return
	}
	sendWSMessage(conn, wsMsgScore, scoreJSON(sc))
}

func sendWSMessage(conn *websocket.Conn, msgType string, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		log.Printf("ws marshal: %v", err)
		return
	}
	msg := wsMessage{Type: msgType, Data: raw}
	if err := conn.WriteJSON(msg); err != nil {
		log.Printf("ws write: %v", err)
	}
}

func sendWSError(conn *websocket.Conn, errMsg string) {
	sendWSMessage(conn, wsMsgError, map[string]string{"message": errMsg})
}
