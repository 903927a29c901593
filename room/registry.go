package room

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	katmannames "github.com/katmannames/katmannames"
	"github.com/katmannames/katmannames/bot"
)

const (
	// DefaultGracePeriod is how long an empty room survives before the
	// janitor removes it, riding out page reloads and brief disconnects.
	DefaultGracePeriod = 5 * time.Minute

	defaultSweepInterval = 30 * time.Second
)

// RegistryConfig wires the registry's collaborators. Only Source is
// required.
type RegistryConfig struct {
	// Source seeds room codes, boards and bot policies. Hand it a
	// cryptorand.Source in production and a fixed seed in tests.
	Source rand.Source
	// Words is the deck word pool. Defaults to the built-in list.
	Words    []string
	Notifier Notifier
	// Store archives finished games. Optional.
	Store katmannames.GameStore

	BotDelay      time.Duration
	GracePeriod   time.Duration
	SweepInterval time.Duration
	MaxPlayers    int
}

// Registry owns the code-to-room mapping. It is the only structure touched by
// multiple rooms' lifecycles at once; everything else is per-room.
type Registry struct {
	mu    sync.Mutex
	rooms map[katmannames.RoomCode]*Room
	r     *rand.Rand

	cfg       RegistryConfig
	spymaster katmannames.SpymasterAI
	operative katmannames.OperativeAI

	done      chan struct{}
	closeOnce sync.Once
}

// NewRegistry creates the registry and starts its janitor. The registry is a
// single long-lived instance constructed at process start and passed in as an
// explicit dependency; Close it at shutdown.
func NewRegistry(cfg RegistryConfig) *Registry {
	if cfg.Words == nil {
		cfg.Words = katmannames.Words
	}
	if cfg.BotDelay == 0 {
		cfg.BotDelay = DefaultBotDelay
	}
	if cfg.GracePeriod == 0 {
		cfg.GracePeriod = DefaultGracePeriod
	}
	if cfg.SweepInterval == 0 {
		cfg.SweepInterval = defaultSweepInterval
	}
	if cfg.MaxPlayers == 0 {
		cfg.MaxPlayers = DefaultMaxPlayers
	}

	r := rand.New(cfg.Source)
	reg := &Registry{
		rooms:     make(map[katmannames.RoomCode]*Room),
		r:         r,
		cfg:       cfg,
		spymaster: bot.NewRandom(rand.New(rand.NewSource(r.Int63()))),
		operative: bot.NewRandom(rand.New(rand.NewSource(r.Int63()))),
		done:      make(chan struct{}),
	}
	go reg.janitor()
	return reg
}

// CreateRoom makes a room with a fresh unique code and its creator seated as
// owner.
func (reg *Registry) CreateRoom(ownerUsername string) (*Room, *katmannames.Player, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	code, err := reg.freeCodeLocked()
	if err != nil {
		return nil, nil, err
	}

	rm, owner := New(Config{
		Code:       code,
		Rand:       rand.New(rand.NewSource(reg.r.Int63())),
		Words:      reg.cfg.Words,
		Notifier:   reg.cfg.Notifier,
		Store:      reg.cfg.Store,
		Spymaster:  reg.spymaster,
		Operative:  reg.operative,
		BotDelay:   reg.cfg.BotDelay,
		MaxPlayers: reg.cfg.MaxPlayers,
	}, ownerUsername)
	reg.rooms[code] = rm

	zap.L().Info("room created",
		zap.String("room", string(code)),
		zap.String("owner", ownerUsername))
	return rm, owner, nil
}

// freeCodeLocked generates codes until one is unused. Duplicate creation is
// rejected here deterministically, under the registry lock.
func (reg *Registry) freeCodeLocked() (katmannames.RoomCode, error) {
	for i := 0; i < 100; i++ {
		code := katmannames.RandomRoomCode(reg.r)
		if _, taken := reg.rooms[code]; !taken {
			return code, nil
		}
	}
	return "", fmt.Errorf("could not find a free room code after 100 tries")
}

// Room looks up a room by code, case-insensitively.
func (reg *Registry) Room(code string) (*Room, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	rm, ok := reg.rooms[katmannames.NormalizeRoomCode(code)]
	if !ok {
		return nil, katmannames.ErrRoomNotFound
	}
	return rm, nil
}

// Join routes a join intent: look the room up, seat the player. A non-empty
// existing ID reattaches a reconnecting player to their seat.
func (reg *Registry) Join(code, username string, existing katmannames.PlayerID) (*Room, *katmannames.Player, error) {
	rm, err := reg.Room(code)
	if err != nil {
		return nil, nil, err
	}
	p, err := rm.Join(username, existing)
	if err != nil {
		return nil, nil, err
	}
	return rm, p, nil
}

// Lobbies lists the rooms currently joinable from the room list.
func (reg *Registry) Lobbies() []katmannames.LobbySummary {
	reg.mu.Lock()
	rooms := make([]*Room, 0, len(reg.rooms))
	for _, rm := range reg.rooms {
		rooms = append(rooms, rm)
	}
	reg.mu.Unlock()

	// Summaries take each room's lock, so collect them outside ours.
	out := []katmannames.LobbySummary{}
	for _, rm := range rooms {
		if s, ok := rm.Summary(); ok {
			out = append(out, s)
		}
	}
	return out
}

// Len reports how many rooms exist.
func (reg *Registry) Len() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.rooms)
}

// Close stops the janitor.
func (reg *Registry) Close() {
	reg.closeOnce.Do(func() { close(reg.done) })
}

// janitor destroys rooms that have been empty of humans for the grace
// period.
func (reg *Registry) janitor() {
	t := time.NewTicker(reg.cfg.SweepInterval)
	defer t.Stop()

	for {
		select {
		case <-reg.done:
			return
		case <-t.C:
			reg.sweep(time.Now())
		}
	}
}

func (reg *Registry) sweep(now time.Time) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	for code, rm := range reg.rooms {
		since := rm.EmptySince()
		if since.IsZero() || now.Sub(since) < reg.cfg.GracePeriod {
			continue
		}
		delete(reg.rooms, code)
		zap.L().Info("room destroyed", zap.String("room", string(code)))
	}
}
