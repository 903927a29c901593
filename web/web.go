// Package web is the HTTP and websocket surface: a small JSON API for room
// discovery and identity, and a websocket endpoint carrying every in-room
// intent.
package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	katmannames "github.com/katmannames/katmannames"
	"github.com/katmannames/katmannames/hub"
	"github.com/katmannames/katmannames/room"
)

const identityCookie = "katmannames_identity"

// ResultStore archives finished games and serves them back for the results
// listing. *sqldb.DB satisfies it.
type ResultStore interface {
	katmannames.GameStore
	Recent(limit int) ([]*katmannames.GameResult, error)
}

// Config wires the server.
type Config struct {
	Source rand.Source
	Words  []string
	// Results is optional; without it finished games aren't archived and the
	// results endpoint serves an empty list.
	Results ResultStore
	// KeyDir is where the cookie keys live. Generated on first run.
	KeyDir string

	BotDelay    time.Duration
	GracePeriod time.Duration
	MaxPlayers  int
}

type Srv struct {
	sc      *securecookie.SecureCookie
	h       *hub.Hub
	mux     *mux.Router
	reg     *room.Registry
	results ResultStore
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The API is same-origin in production and proxied in development, so
	// origin checking buys nothing here.
	CheckOrigin: func(*http.Request) bool { return true },
}

// New returns an initialized server with its own registry and hub.
func New(cfg Config) (*Srv, error) {
	sc, err := loadKeys(cfg.KeyDir)
	if err != nil {
		return nil, err
	}

	s := &Srv{
		sc:      sc,
		results: cfg.Results,
	}
	s.h = hub.New(s.handleIntent)

	var store katmannames.GameStore
	if cfg.Results != nil {
		store = cfg.Results
	}
	s.reg = room.NewRegistry(room.RegistryConfig{
		Source:      cfg.Source,
		Words:       cfg.Words,
		Notifier:    s.h,
		Store:       store,
		BotDelay:    cfg.BotDelay,
		GracePeriod: cfg.GracePeriod,
		MaxPlayers:  cfg.MaxPlayers,
	})

	s.mux = s.initMux()
	return s, nil
}

func (s *Srv) initMux() *mux.Router {
	m := mux.NewRouter()
	// Open rooms, for the room list page.
	m.HandleFunc("/api/rooms", s.serveRooms).Methods("GET")
	// Finished-game archive.
	m.HandleFunc("/api/results", s.serveResults).Methods("GET")
	// Reconnect identity cookie.
	m.HandleFunc("/api/identity", s.serveSetIdentity).Methods("POST")
	m.HandleFunc("/api/identity", s.serveIdentity).Methods("GET")
	// The websocket carrying all room intents.
	m.HandleFunc("/ws", s.serveWS).Methods("GET")
	return m
}

func (s *Srv) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Close shuts down the registry. In-flight connections are left to die on
// their own.
func (s *Srv) Close() {
	s.reg.Close()
}

func (s *Srv) serveRooms(w http.ResponseWriter, r *http.Request) {
	jsonResp(w, s.reg.Lobbies())
}

func (s *Srv) serveResults(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			http.Error(w, "limit must be 1-100", http.StatusBadRequest)
			return
		}
		limit = n
	}

	if s.results == nil {
		jsonResp(w, []*katmannames.GameResult{})
		return
	}
	results, err := s.results.Recent(limit)
	if err != nil {
		zap.L().Error("failed to load results", zap.Error(err))
		http.Error(w, "failed to load results", http.StatusInternalServerError)
		return
	}
	if results == nil {
		results = []*katmannames.GameResult{}
	}
	jsonResp(w, results)
}

// serveSetIdentity stores the caller's seat in a tamper-proof cookie so a
// fresh browser session can reclaim it.
func (s *Srv) serveSetIdentity(w http.ResponseWriter, r *http.Request) {
	var req identity
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.RoomCode == "" || req.PlayerID == "" {
		http.Error(w, "roomCode and playerId are required", http.StatusBadRequest)
		return
	}

	encoded, err := s.sc.Encode(identityCookie, req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     identityCookie,
		Value:    encoded,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	jsonResp(w, struct {
		Success bool `json:"success"`
	}{true})
}

func (s *Srv) serveIdentity(w http.ResponseWriter, r *http.Request) {
	id, ok := s.loadIdentity(r)
	if !ok {
		http.Error(w, "no identity", http.StatusNotFound)
		return
	}
	jsonResp(w, id)
}

func (s *Srv) loadIdentity(r *http.Request) (identity, bool) {
	c, err := r.Cookie(identityCookie)
	if err != nil {
		return identity{}, false
	}
	var id identity
	if err := s.sc.Decode(identityCookie, c.Value, &id); err != nil {
		// Can't parse it, assume it's stale and treat them as new.
		return identity{}, false
	}
	return id, true
}

// serveWS upgrades the connection and waits for a create_room or join_room
// before handing the socket to the hub. Everything after that first
// successful intent flows through handleIntent.
func (s *Srv) serveWS(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.L().Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	cookieID, hasCookieID := s.loadIdentity(r)

	for {
		ws.SetReadDeadline(time.Now().Add(time.Minute))
		var env hub.Envelope
		if err := ws.ReadJSON(&env); err != nil {
			ws.Close()
			return
		}

		var (
			rm     *room.Room
			player *katmannames.Player
		)
		switch env.Type {
		case "create_room":
			var msg createRoomMsg
			rm, player, err = func() (*room.Room, *katmannames.Player, error) {
				if err := json.Unmarshal(env.Payload, &msg); err != nil {
					return nil, nil, errors.New("malformed payload")
				}
				if msg.Username == "" {
					return nil, nil, errors.New("username is required")
				}
				return s.reg.CreateRoom(msg.Username)
			}()
		case "join_room":
			var msg joinRoomMsg
			rm, player, err = func() (*room.Room, *katmannames.Player, error) {
				if err := json.Unmarshal(env.Payload, &msg); err != nil {
					return nil, nil, errors.New("malformed payload")
				}
				if msg.Username == "" {
					return nil, nil, errors.New("username is required")
				}
				existing := katmannames.PlayerID(msg.PlayerID)
				if existing == "" && hasCookieID &&
					cookieID.RoomCode == katmannames.NormalizeRoomCode(msg.RoomCode) {
					existing = cookieID.PlayerID
				}
				return s.reg.Join(msg.RoomCode, msg.Username, existing)
			}()
		default:
			err = fmt.Errorf("join a room before sending %q", env.Type)
		}

		if err != nil {
			writeEnvelope(ws, "error", hub.ErrorPayload{Message: err.Error()})
			continue
		}

		writeEnvelope(ws, "joined", joinedMsg{RoomCode: rm.Code(), PlayerID: player.ID})

		// The hub owns the socket from here. The join broadcast went out
		// before this connection was registered, so push a fresh view.
		ws.SetReadDeadline(time.Time{})
		s.h.Register(ws, rm.Code(), player.ID)
		if view, err := rm.ViewFor(player.ID); err == nil {
			s.h.GameState(rm.Code(), player.ID, view)
		}
		return
	}
}

func writeEnvelope(ws *websocket.Conn, typ string, payload interface{}) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return
	}
	ws.SetWriteDeadline(time.Now().Add(10 * time.Second))
	ws.WriteJSON(hub.Envelope{Type: typ, Payload: raw})
}

// handleIntent dispatches one in-room intent from the hub. Errors are
// reported to the sending connection only.
func (s *Srv) handleIntent(code katmannames.RoomCode, player katmannames.PlayerID, kind string, payload json.RawMessage) error {
	rm, err := s.reg.Room(string(code))
	if err != nil {
		return err
	}

	switch kind {
	case "select_team":
		var msg selectTeamMsg
		if err := json.Unmarshal(payload, &msg); err != nil {
			return errors.New("malformed payload")
		}
		return rm.SelectTeam(player, msg.Team)
	case "select_role":
		var msg selectRoleMsg
		if err := json.Unmarshal(payload, &msg); err != nil {
			return errors.New("malformed payload")
		}
		return rm.SelectRole(player, msg.Role)
	case "update_team_name":
		var msg updateTeamNameMsg
		if err := json.Unmarshal(payload, &msg); err != nil {
			return errors.New("malformed payload")
		}
		return rm.UpdateTeamName(player, msg.Team, msg.Name)
	case "update_timer_settings":
		var msg updateTimerSettingsMsg
		if err := json.Unmarshal(payload, &msg); err != nil {
			return errors.New("malformed payload")
		}
		return rm.UpdateTimerSettings(player, msg.TimedMode, msg.SpymasterTime, msg.GuesserTime)
	case "update_chaos_mode":
		var msg updateChaosModeMsg
		if err := json.Unmarshal(payload, &msg); err != nil {
			return errors.New("malformed payload")
		}
		return rm.UpdateChaosMode(player, msg.ChaosMode)
	case "add_bot":
		var msg addBotMsg
		if err := json.Unmarshal(payload, &msg); err != nil {
			return errors.New("malformed payload")
		}
		_, err := rm.AddBot(player, msg.Team, msg.Role)
		return err
	case "remove_bot":
		var msg removeBotMsg
		if err := json.Unmarshal(payload, &msg); err != nil {
			return errors.New("malformed payload")
		}
		return rm.RemoveBot(player, katmannames.PlayerID(msg.BotID))
	case "start_game":
		return rm.StartGame(player)
	case "restart_game":
		return rm.RestartGame(player)
	case "give_clue":
		var msg giveClueMsg
		if err := json.Unmarshal(payload, &msg); err != nil {
			return errors.New("malformed payload")
		}
		return rm.GiveClue(player, msg.Word, msg.Count)
	case "reveal_card":
		var msg revealCardMsg
		if err := json.Unmarshal(payload, &msg); err != nil {
			return errors.New("malformed payload")
		}
		return rm.RevealCard(player, msg.CardID)
	case "pass_turn":
		return rm.PassTurn(player)
	case "leave_room":
		return rm.Leave(player)
	case "create_room", "join_room":
		return errors.New("already in a room")
	default:
		return fmt.Errorf("unknown message type %q", kind)
	}
}

func loadKeys(dir string) (*securecookie.SecureCookie, error) {
	hashKey, err := loadOrGenKey(filepath.Join(dir, "hashKey"))
	if err != nil {
		return nil, err
	}

	blockKey, err := loadOrGenKey(filepath.Join(dir, "blockKey"))
	if err != nil {
		return nil, err
	}

	return securecookie.New(hashKey, blockKey), nil
}

func loadOrGenKey(name string) ([]byte, error) {
	f, err := os.ReadFile(name)
	if err == nil {
		return f, nil
	}

	dat := securecookie.GenerateRandomKey(32)
	if dat == nil {
		return nil, errors.New("failed to generate key")
	}

	if err := os.WriteFile(name, dat, 0600); err != nil {
		return nil, fmt.Errorf("failed to write key file: %w", err)
	}
	return dat, nil
}

func jsonResp(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("failed to encode response", zap.Error(err))
	}
}
