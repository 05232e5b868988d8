package server

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/dicecrawl/dicecrawl/internal/engine"
	"github.com/dicecrawl/dicecrawl/internal/models"
	"github.com/dicecrawl/dicecrawl/internal/stats"
)

// ========================= Practice Server =========================
// A deliberately small game server that speaks the same wire contract
// as the public one. Good enough for local play and for exercising the
// client end to end; not a balance-tuned ruleset.

const sessionCookie = "crawl_sid"

var startingPurse = models.DicePool{6, 4, 2, 1, 0, 0}

// session is one logged-in player's live dungeon state. Persistent
// state (dice, items) lives in the store; the floor and any running
// battle are in memory only.
type session struct {
	playerID int64
	username string

	floor  *Floor
	battle *Battle
	hp     int
	guard  int // temporary defense from the last defend action
}

type Server struct {
	store *Store
	stats *stats.Tracker
	log   *log.Logger

	mu       sync.Mutex // guards sessions and rng
	sessions map[string]*session
	rng      *rand.Rand

	hub      *hub
	upgrader websocket.Upgrader
}

func New(store *Store, logger *log.Logger) *Server {
	return NewWithRNG(store, logger, engine.NewRNG())
}

// NewWithRNG lets tests pin the dice.
func NewWithRNG(store *Store, logger *log.Logger, rng *rand.Rand) *Server {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Server{
		store:    store,
		stats:    stats.New(),
		log:      logger,
		sessions: make(map[string]*session),
		rng:      rng,
		hub:      newHub(),
	}
}

// Stats exposes the tracker, mainly for tests.
func (s *Server) Stats() *stats.Tracker { return s.stats }

func (s *Server) Routes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/register", s.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)

	r.HandleFunc("/dungeon", s.auth(s.handleDungeon)).Methods(http.MethodGet)
	r.HandleFunc("/dungeon/events", s.auth(s.handleEvents)).Methods(http.MethodGet)
	r.HandleFunc("/dungeon/move", s.auth(s.handleMove)).Methods(http.MethodPut)
	r.HandleFunc("/dungeon/attack", s.auth(s.handleAttack)).Methods(http.MethodPut)
	r.HandleFunc("/dungeon/defend", s.auth(s.handleDefend)).Methods(http.MethodPut)
	r.HandleFunc("/dungeon/retreat", s.auth(s.handleRetreat)).Methods(http.MethodPut)

	r.HandleFunc("/sell_item", s.auth(s.handleSell)).Methods(http.MethodPost)
	r.HandleFunc("/buy_item", s.auth(s.handleBuy)).Methods(http.MethodPost)
	r.HandleFunc("/equip_item", s.auth(s.handleEquip)).Methods(http.MethodPost)
	r.HandleFunc("/unequip_item", s.auth(s.handleUnequip)).Methods(http.MethodPost)
	r.HandleFunc("/move_vault", s.auth(s.handleMoveVault)).Methods(http.MethodPut)
	r.HandleFunc("/move_inv", s.auth(s.handleMoveInv)).Methods(http.MethodPut)

	r.HandleFunc("/character", s.auth(s.handleCharacter)).Methods(http.MethodGet)
	r.HandleFunc("/market", s.auth(s.handleMarket)).Methods(http.MethodGet)
	r.HandleFunc("/stats", s.auth(s.handleStats)).Methods(http.MethodGet)
	return r
}

// ========================= Auth & plumbing =========================

// auth resolves the session cookie. Anything unauthenticated gets the
// redirect signal: 302 with the login route in both the Location
// header and the body.
func (s *Server) auth(next func(http.ResponseWriter, *http.Request, *session)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ck, err := r.Cookie(sessionCookie)
		if err != nil {
			s.redirectLogin(w)
			return
		}
		s.mu.Lock()
		sess, ok := s.sessions[ck.Value]
		s.mu.Unlock()
		if !ok {
			s.redirectLogin(w)
			return
		}
		next(w, r, sess)
	}
}

func (s *Server) redirectLogin(w http.ResponseWriter) {
	w.Header().Set("Location", "/login")
	w.WriteHeader(http.StatusFound)
	io.WriteString(w, "/login")
}

func decode(r *http.Request, dst any) error {
	return json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(dst)
}

func textError(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	io.WriteString(w, msg)
}

// say sends the log line back as the response body and fans it out to
// the event feed.
func (s *Server) say(w http.ResponseWriter, lines ...string) {
	joined := strings.Join(lines, " ")
	for _, l := range lines {
		s.hub.broadcast(l)
	}
	io.WriteString(w, joined)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// ========================= Accounts =========================

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var c struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decode(r, &c); err != nil || c.Username == "" || c.Password == "" {
		textError(w, http.StatusBadRequest, "username and password required")
		return
	}
	if _, err := s.store.Register(r.Context(), c.Username, c.Password, startingPurse); err != nil {
		textError(w, http.StatusConflict, err.Error())
		return
	}
	s.log.Printf("registered %s", c.Username)
	io.WriteString(w, "welcome, "+c.Username)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var c struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decode(r, &c); err != nil {
		textError(w, http.StatusBadRequest, "bad login payload")
		return
	}
	id, err := s.store.Authenticate(r.Context(), c.Username, c.Password)
	if err != nil {
		textError(w, http.StatusUnauthorized, "unknown username or wrong password")
		return
	}
	token := uuid.NewString()
	s.mu.Lock()
	s.sessions[token] = &session{
		playerID: id,
		username: c.Username,
		floor:    GenerateFloor(s.rng, 1),
		hp:       baseHealth,
	}
	s.mu.Unlock()
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: token, Path: "/", HttpOnly: true})
	s.log.Printf("login %s", c.Username)
	io.WriteString(w, "logged in")
}

// ========================= Dungeon =========================

func (s *Server) handleDungeon(w http.ResponseWriter, r *http.Request, sess *session) {
	s.mu.Lock()
	view := sess.floor.ClientView()
	s.mu.Unlock()
	writeJSON(w, view)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request, sess *session) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.hub.add(conn)
	// Reader loop only exists to notice the peer going away.
	go func() {
		defer s.hub.remove(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request, sess *session) {
	var p struct {
		Direction string `json:"direction"`
	}
	if err := decode(r, &p); err != nil || !models.ValidDirection(p.Direction) {
		textError(w, http.StatusBadRequest, "bad direction")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if sess.battle != nil {
		textError(w, http.StatusConflict, "you are locked in combat")
		return
	}
	if !sess.floor.Move(p.Direction) {
		s.say(w, "A cold wall of rock blocks the way "+p.Direction+".")
		return
	}

	lines := []string{"You move " + p.Direction + "."}

	if sess.floor.TakeLoot() {
		it := randItem(s.rng, sess.floor.Number)
		if _, err := s.store.AddItem(r.Context(), sess.playerID, it); err != nil {
			textError(w, http.StatusInternalServerError, "storage failure")
			return
		}
		lines = append(lines, "You find a "+it.Name+"!")
	}

	switch {
	case sess.floor.AtBoss():
		sess.battle = NewBattle(s.rng, sess.floor.Number, true)
		s.startBattle(r, sess)
		lines = append(lines, "The "+sess.battle.Name+" bars the stairs!")
	case sess.floor.AtExit():
		next := sess.floor.Number + 1
		sess.floor = GenerateFloor(s.rng, next)
		s.stats.RecordFloor(sess.username, next)
		lines = append(lines, fmt.Sprintf("You descend to floor %d.", next))
	case s.rng.Intn(100) < 20:
		sess.battle = NewBattle(s.rng, sess.floor.Number, false)
		s.startBattle(r, sess)
		lines = append(lines, "A "+sess.battle.Name+" blocks your path!")
	}

	s.say(w, lines...)
}

// startBattle resets per-fight player state from the current loadout.
func (s *Server) startBattle(r *http.Request, sess *session) {
	sess.guard = 0
	sess.hp = baseHealth
	items, err := s.store.ItemsFor(r.Context(), sess.playerID)
	if err != nil {
		return
	}
	if _, _, armor := loadout(items); armor != nil {
		sess.hp += armor.Health
	}
}

func (s *Server) handleAttack(w http.ResponseWriter, r *http.Request, sess *session) {
	s.combat(w, r, sess, true)
}

func (s *Server) handleDefend(w http.ResponseWriter, r *http.Request, sess *session) {
	s.combat(w, r, sess, false)
}

// combat resolves one player action plus the enemy's answer. Spent
// dice are real currency: they leave the purse whether or not the
// blow lands.
func (s *Server) combat(w http.ResponseWriter, r *http.Request, sess *session, attack bool) {
	var p struct {
		SpentDice models.DicePool `json:"spent_dice"`
	}
	if err := decode(r, &p); err != nil || p.SpentDice.Total() == 0 {
		textError(w, http.StatusBadRequest, "spent_dice required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if sess.battle == nil {
		textError(w, http.StatusConflict, "there is nothing to fight")
		return
	}

	held, err := s.store.Dice(r.Context(), sess.playerID)
	if err != nil {
		textError(w, http.StatusInternalServerError, "storage failure")
		return
	}
	if !held.Contains(p.SpentDice) {
		textError(w, http.StatusConflict, "you do not hold those dice")
		return
	}

	items, err := s.store.ItemsFor(r.Context(), sess.playerID)
	if err != nil {
		textError(w, http.StatusInternalServerError, "storage failure")
		return
	}
	weapon, shield, armor := loadout(items)

	// Equipment caps the spend per action.
	spend := p.SpentDice
	if attack && weapon != nil {
		spend, _ = engine.SpendUpTo(weapon.Budget, spend)
	}
	if !attack && shield != nil {
		spend, _ = engine.SpendUpTo(shield.Budget, spend)
	}
	if spend.Total() == 0 {
		textError(w, http.StatusConflict, "your equipment cannot channel those dice")
		return
	}
	if err := s.store.SetDice(r.Context(), sess.playerID, held.Sub(spend)); err != nil {
		textError(w, http.StatusInternalServerError, "storage failure")
		return
	}

	b := sess.battle
	total, roll := engine.RollPool(s.rng, spend)
	var lines []string
	if attack {
		bonus := 0
		if weapon != nil {
			bonus = weapon.Attack
		}
		dmg := total + bonus - b.Defense - b.Guard
		if dmg < 0 {
			dmg = 0
		}
		b.HP -= dmg
		s.stats.RecordAttack(sess.username, total, roll)
		lines = append(lines, fmt.Sprintf("You attack: %s; %d damage.", roll, dmg))
	} else {
		sess.guard += total
		lines = append(lines, fmt.Sprintf("You guard: %s.", roll))
	}

	if b.HP <= 0 {
		loot := b.Pool
		held, _ = s.store.Dice(r.Context(), sess.playerID)
		s.store.SetDice(r.Context(), sess.playerID, held.Add(loot))
		if sess.floor.AtBoss() {
			sess.floor.BossDead = true
		}
		s.stats.RecordBattle(sess.username, true)
		sess.battle = nil
		sess.guard = 0
		lines = append(lines, fmt.Sprintf("The %s falls! You scoop up %s.", b.Name, loot))
		s.say(w, lines...)
		return
	}

	dmg, enemyLine := b.EnemyTurn(s.rng)
	lines = append(lines, enemyLine)
	if dmg > 0 {
		mitigation := sess.guard
		if armor != nil {
			mitigation += armor.Defense
		}
		taken := dmg - mitigation
		if taken < 0 {
			taken = 0
		}
		sess.guard = 0
		sess.hp -= taken
		lines = append(lines, fmt.Sprintf("You take %d damage.", taken))
	}

	if sess.hp <= 0 {
		s.store.DropInventory(r.Context(), sess.playerID)
		s.stats.RecordBattle(sess.username, false)
		s.stats.RecordDeath(sess.username)
		sess.battle = nil
		sess.guard = 0
		sess.floor = GenerateFloor(s.rng, 1)
		sess.hp = baseHealth
		lines = append(lines, "You are slain. Your gear is lost and you wake on floor 1.")
	}
	s.say(w, lines...)
}

func (s *Server) handleRetreat(w http.ResponseWriter, r *http.Request, sess *session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess.battle == nil {
		// Out of combat, retreating leaves the dungeon for the lobby.
		w.Header().Set("Location", "/lobby")
		w.WriteHeader(http.StatusFound)
		io.WriteString(w, "/lobby")
		return
	}

	items, _ := s.store.ItemsFor(r.Context(), sess.playerID)
	_, _, armor := loadout(items)
	speed := 3
	if armor != nil {
		speed += armor.Speed
	}
	ok, roll := engine.RetreatCheck(s.rng, speed, sess.battle.Speed)
	if ok {
		s.stats.RecordRetreat(sess.username)
		sess.battle = nil
		sess.guard = 0
		s.say(w, "You slip away! "+roll)
		return
	}

	lines := []string{"You fail to escape! " + roll}
	dmg, enemyLine := sess.battle.EnemyTurn(s.rng)
	lines = append(lines, enemyLine)
	if dmg > 0 {
		taken := dmg
		if armor != nil {
			taken -= armor.Defense
		}
		if taken < 0 {
			taken = 0
		}
		sess.hp -= taken
		lines = append(lines, fmt.Sprintf("You take %d damage.", taken))
	}
	if sess.hp <= 0 {
		s.store.DropInventory(r.Context(), sess.playerID)
		s.stats.RecordBattle(sess.username, false)
		s.stats.RecordDeath(sess.username)
		sess.battle = nil
		sess.floor = GenerateFloor(s.rng, 1)
		sess.hp = baseHealth
		lines = append(lines, "You are slain. Your gear is lost and you wake on floor 1.")
	}
	s.say(w, lines...)
}

// ========================= Inventory & market =========================

func (s *Server) handleSell(w http.ResponseWriter, r *http.Request, sess *session) {
	var p struct {
		ID    int64 `json:"id"`
		Price int   `json:"price"`
	}
	if err := decode(r, &p); err != nil || p.ID <= 0 || p.Price < 0 {
		textError(w, http.StatusBadRequest, "id and non-negative price required")
		return
	}
	it, owner, err := s.store.Item(r.Context(), p.ID)
	if err != nil {
		textError(w, http.StatusNotFound, "no such item")
		return
	}
	if owner != sess.playerID {
		textError(w, http.StatusForbidden, "not your item")
		return
	}
	if it.Location == models.LocEquipped {
		textError(w, http.StatusConflict, "unequip it first")
		return
	}
	if it.Location == models.LocMarket {
		textError(w, http.StatusConflict, "already listed")
		return
	}
	if err := s.store.SetLocation(r.Context(), p.ID, models.LocMarket, p.Price); err != nil {
		textError(w, http.StatusInternalServerError, "storage failure")
		return
	}
	s.say(w, fmt.Sprintf("%s listed for %d.", it.Name, p.Price))
}

func (s *Server) handleBuy(w http.ResponseWriter, r *http.Request, sess *session) {
	var p struct {
		ID     int64           `json:"id"`
		Paying models.DicePool `json:"paying"`
	}
	if err := decode(r, &p); err != nil || p.ID <= 0 {
		textError(w, http.StatusBadRequest, "id required")
		return
	}
	it, owner, err := s.store.Item(r.Context(), p.ID)
	if err != nil || it.Location != models.LocMarket {
		textError(w, http.StatusNotFound, "not on the market")
		return
	}
	if owner == sess.playerID {
		textError(w, http.StatusConflict, "that is your own listing")
		return
	}
	if p.Paying.Value() < it.Price {
		textError(w, http.StatusConflict, "payment too small")
		return
	}
	held, err := s.store.Dice(r.Context(), sess.playerID)
	if err != nil {
		textError(w, http.StatusInternalServerError, "storage failure")
		return
	}
	if !held.Contains(p.Paying) {
		textError(w, http.StatusConflict, "you do not hold those dice")
		return
	}

	// The whole payment changes hands; the seller is credited in
	// standard change, overpayment included.
	if err := s.store.SetDice(r.Context(), sess.playerID, held.Sub(p.Paying)); err != nil {
		textError(w, http.StatusInternalServerError, "storage failure")
		return
	}
	sellerHeld, err := s.store.Dice(r.Context(), owner)
	if err == nil {
		s.store.SetDice(r.Context(), owner, sellerHeld.Add(engine.ChangeFor(p.Paying.Value())))
	}
	if err := s.store.Transfer(r.Context(), p.ID, sess.playerID); err != nil {
		textError(w, http.StatusInternalServerError, "storage failure")
		return
	}
	s.say(w, fmt.Sprintf("You buy %s for %s.", it.Name, p.Paying))
}

func (s *Server) handleEquip(w http.ResponseWriter, r *http.Request, sess *session) {
	it, ok := s.ownedItem(w, r, sess, models.LocInventory)
	if !ok {
		return
	}
	items, err := s.store.ItemsFor(r.Context(), sess.playerID)
	if err != nil {
		textError(w, http.StatusInternalServerError, "storage failure")
		return
	}
	weapon, shield, armor := loadout(items)
	switch {
	case it.Kind == models.KindWeapon && weapon != nil,
		it.Kind == models.KindShield && shield != nil,
		it.Kind == models.KindArmor && armor != nil:
		textError(w, http.StatusConflict, "unequip your current "+it.Kind.String()+" first")
		return
	case it.Kind == models.KindWeapon && it.TwoHanded && shield != nil:
		textError(w, http.StatusConflict, "a two-handed weapon leaves no room for a shield")
		return
	case it.Kind == models.KindShield && weapon != nil && weapon.TwoHanded:
		textError(w, http.StatusConflict, "your weapon needs both hands")
		return
	}
	if err := s.store.SetLocation(r.Context(), it.ID, models.LocEquipped, 0); err != nil {
		textError(w, http.StatusInternalServerError, "storage failure")
		return
	}
	s.say(w, "You equip "+it.Name+".")
}

func (s *Server) handleUnequip(w http.ResponseWriter, r *http.Request, sess *session) {
	it, ok := s.ownedItem(w, r, sess, models.LocEquipped)
	if !ok {
		return
	}
	if err := s.store.SetLocation(r.Context(), it.ID, models.LocInventory, 0); err != nil {
		textError(w, http.StatusInternalServerError, "storage failure")
		return
	}
	s.say(w, "You unequip "+it.Name+".")
}

func (s *Server) handleMoveVault(w http.ResponseWriter, r *http.Request, sess *session) {
	it, ok := s.ownedItem(w, r, sess, models.LocInventory)
	if !ok {
		return
	}
	if err := s.store.SetLocation(r.Context(), it.ID, models.LocVault, 0); err != nil {
		textError(w, http.StatusInternalServerError, "storage failure")
		return
	}
	s.say(w, it.Name+" stored in the vault.")
}

func (s *Server) handleMoveInv(w http.ResponseWriter, r *http.Request, sess *session) {
	it, ok := s.ownedItem(w, r, sess, models.LocVault)
	if !ok {
		return
	}
	if err := s.store.SetLocation(r.Context(), it.ID, models.LocInventory, 0); err != nil {
		textError(w, http.StatusInternalServerError, "storage failure")
		return
	}
	s.say(w, it.Name+" taken from the vault.")
}

// ownedItem decodes an {"id": n} payload and checks the item belongs
// to the player and sits in the expected location.
func (s *Server) ownedItem(w http.ResponseWriter, r *http.Request, sess *session, want models.ItemLocation) (models.Item, bool) {
	var p struct {
		ID int64 `json:"id"`
	}
	if err := decode(r, &p); err != nil || p.ID <= 0 {
		textError(w, http.StatusBadRequest, "id required")
		return models.Item{}, false
	}
	it, owner, err := s.store.Item(r.Context(), p.ID)
	if err != nil {
		textError(w, http.StatusNotFound, "no such item")
		return models.Item{}, false
	}
	if owner != sess.playerID {
		textError(w, http.StatusForbidden, "not your item")
		return models.Item{}, false
	}
	if it.Location != want {
		textError(w, http.StatusConflict, "item is in your "+it.Location.String())
		return models.Item{}, false
	}
	return it, true
}

// ========================= Views =========================

func (s *Server) handleCharacter(w http.ResponseWriter, r *http.Request, sess *session) {
	dice, err := s.store.Dice(r.Context(), sess.playerID)
	if err != nil {
		textError(w, http.StatusInternalServerError, "storage failure")
		return
	}
	items, err := s.store.ItemsFor(r.Context(), sess.playerID)
	if err != nil {
		textError(w, http.StatusInternalServerError, "storage failure")
		return
	}
	s.mu.Lock()
	floor := sess.floor.Number
	s.mu.Unlock()
	writeJSON(w, models.Character{
		Username: sess.username,
		Dice:     dice,
		Floor:    floor,
		Items:    items,
	})
}

func (s *Server) handleMarket(w http.ResponseWriter, r *http.Request, sess *session) {
	items, err := s.store.Market(r.Context())
	if err != nil {
		textError(w, http.StatusInternalServerError, "storage failure")
		return
	}
	if items == nil {
		items = []models.Item{}
	}
	writeJSON(w, items)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request, sess *session) {
	writeJSON(w, s.stats.SnapshotFor(sess.username))
}
