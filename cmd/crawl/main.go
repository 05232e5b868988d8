package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/dicecrawl/dicecrawl/internal/api"
	"github.com/dicecrawl/dicecrawl/internal/config"
	"github.com/dicecrawl/dicecrawl/internal/engine"
	"github.com/dicecrawl/dicecrawl/internal/game"
	"github.com/dicecrawl/dicecrawl/internal/gamelog"
	"github.com/dicecrawl/dicecrawl/internal/mapexport"
	"github.com/dicecrawl/dicecrawl/internal/models"
	"github.com/dicecrawl/dicecrawl/internal/render"
)

// Build metadata injected via -ldflags at build time
var (
	buildVersion = "dev"
	buildTime    = ""
)

// ========================= Terminal view =========================

// view keeps the last map both as drawn text and as raw codes, the
// latter for PDF export.
type view struct {
	mu   sync.Mutex
	text string
	raw  models.DungeonMap
}

func (v *view) Render(m models.DungeonMap) {
	g := render.Render(m)
	v.mu.Lock()
	v.text = g.Text()
	v.raw = m
	v.mu.Unlock()
	fmt.Println(g.Text())
}

func (v *view) snapshot() (string, models.DungeonMap) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.text, v.raw
}

// nav reports session redirects; the player logs back in by hand.
type nav struct{}

func (nav) Navigate(route string) {
	fmt.Printf("session moved to %s; use the login command to resume\n", route)
}

// ========================= Command loop =========================

const usage = `commands:
  move <north|south|east|west>   attack <dice>    defend <dice>
  retreat                        map              log
  char                           market           stats
  sell <id> <price>              buy <id> <dice>  equip <id>
  unequip <id>                   vault <id>       unvault <id>
  export <file.pdf>              login            register
  help                           quit

dice expressions look like "2d4 1d6"`

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("crawl %s %s\n", buildVersion, buildTime)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()
	client := api.NewClient(cfg.Client.ServerURL, cfg.Client.Timeout())
	buf := gamelog.New()
	v := &view{}
	dispatcher := game.NewDispatcher(client, buf, v, nav{})

	var sheet struct {
		mu sync.Mutex
		ch models.Character
	}
	resync := game.FullResync{
		API:  client,
		View: v,
		Nav:  nav{},
		Sheet: func(ch models.Character) {
			sheet.mu.Lock()
			sheet.ch = ch
			sheet.mu.Unlock()
		},
	}
	inventory := game.NewInventory(client, resync)

	streamCtx, stopStream := context.WithCancel(ctx)
	defer stopStream()
	var streamOnce sync.Once
	startStream := func() {
		streamOnce.Do(func() {
			go client.StreamEvents(streamCtx, func(line string) {
				buf.Append(line)
			})
		})
	}

	login := func() bool {
		if cfg.Client.Username == "" {
			fmt.Println("set username/password in config or CRAWL_USERNAME/CRAWL_PASSWORD")
			return false
		}
		if err := client.Login(ctx, cfg.Client.Username, cfg.Client.Password); err != nil {
			fmt.Printf("login failed: %v\n", err)
			return false
		}
		fmt.Printf("logged in as %s\n", cfg.Client.Username)
		if err := dispatcher.RefreshMap(ctx); err != nil {
			fmt.Printf("map: %v\n", err)
		}
		startStream()
		return true
	}

	fmt.Printf("crawl %s connected to %s\n", buildVersion, cfg.Client.ServerURL)
	login()

	report := func(err error) {
		if err != nil {
			fmt.Printf("! %v\n", err)
		}
	}
	parseID := func(s string) (int64, bool) {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil || id <= 0 {
			fmt.Printf("bad item id %q\n", s)
			return 0, false
		}
		return id, true
	}
	parseDice := func(args []string) (models.DicePool, bool) {
		pool, err := engine.ParsePool(strings.Join(args, " "))
		if err != nil {
			fmt.Printf("! %v\n", err)
			return pool, false
		}
		return pool, true
	}

	sc := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !sc.Scan() {
			break
		}
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		cmd, args := strings.ToLower(fields[0]), fields[1:]

		switch cmd {
		case "quit", "exit":
			if cfg.Client.TranscriptPath != "" {
				if err := buf.WriteArchive(cfg.Client.TranscriptPath); err != nil {
					fmt.Printf("transcript: %v\n", err)
				}
			}
			return

		case "help":
			fmt.Println(usage)

		case "login":
			login()

		case "register":
			if cfg.Client.Username == "" {
				fmt.Println("set username/password in config or CRAWL_USERNAME/CRAWL_PASSWORD")
				continue
			}
			if err := client.Register(ctx, cfg.Client.Username, cfg.Client.Password); err != nil {
				fmt.Printf("register failed: %v\n", err)
				continue
			}
			login()

		case "move":
			if len(args) != 1 || !models.ValidDirection(strings.ToLower(args[0])) {
				fmt.Println("usage: move <north|south|east|west>")
				continue
			}
			report(dispatcher.Move(ctx, strings.ToLower(args[0])))

		case "attack":
			if pool, ok := parseDice(args); ok {
				report(dispatcher.Attack(ctx, pool))
			}

		case "defend":
			if pool, ok := parseDice(args); ok {
				report(dispatcher.Defend(ctx, pool))
			}

		case "retreat":
			report(dispatcher.Retreat(ctx))

		case "map":
			report(dispatcher.RefreshMap(ctx))

		case "log":
			fmt.Println(buf.Render())

		case "char":
			ch, res, err := client.Character(ctx)
			if err != nil || !res.OK() {
				fmt.Printf("character unavailable (status %d): %v\n", res.Status, err)
				continue
			}
			printSheet(ch)

		case "market":
			items, res, err := client.Market(ctx)
			if err != nil || !res.OK() {
				fmt.Printf("market unavailable (status %d): %v\n", res.Status, err)
				continue
			}
			for _, it := range items {
				fmt.Printf("  #%d %s (%s) price %d\n", it.ID, it.Name, it.Kind, it.Price)
			}

		case "stats":
			snap, res, err := client.Stats(ctx)
			if err != nil || !res.OK() {
				fmt.Printf("stats unavailable (status %d): %v\n", res.Status, err)
				continue
			}
			p := snap.Player
			fmt.Printf("battles %d  victories %d  retreats %d  deaths %d  deepest floor %d\n",
				p.Battles, p.Victories, p.Retreats, p.Deaths, p.DeepestFloor)
			if snap.BestToday.Username != "" {
				fmt.Printf("best attack today: %s with %s\n", snap.BestToday.Username, snap.BestToday.Rolled)
			}

		case "sell":
			if len(args) != 2 {
				fmt.Println("usage: sell <id> <price>")
				continue
			}
			id, ok := parseID(args[0])
			if !ok {
				continue
			}
			price, err := strconv.Atoi(args[1])
			if err != nil || price < 0 {
				fmt.Printf("bad price %q\n", args[1])
				continue
			}
			report(inventory.Sell(ctx, id, price))

		case "buy":
			if len(args) < 2 {
				fmt.Println("usage: buy <id> <dice>")
				continue
			}
			id, ok := parseID(args[0])
			if !ok {
				continue
			}
			if pool, ok := parseDice(args[1:]); ok {
				report(inventory.Buy(ctx, id, pool))
			}

		case "equip", "unequip", "vault", "unvault":
			if len(args) != 1 {
				fmt.Printf("usage: %s <id>\n", cmd)
				continue
			}
			id, ok := parseID(args[0])
			if !ok {
				continue
			}
			switch cmd {
			case "equip":
				report(inventory.Equip(ctx, id))
			case "unequip":
				report(inventory.Unequip(ctx, id))
			case "vault":
				report(inventory.MoveToVault(ctx, id))
			case "unvault":
				report(inventory.MoveToInventory(ctx, id))
			}

		case "export":
			if len(args) != 1 {
				fmt.Println("usage: export <file.pdf>")
				continue
			}
			_, raw := v.snapshot()
			sheet.mu.Lock()
			floor := sheet.ch.Floor
			sheet.mu.Unlock()
			if err := mapexport.WriteFile(args[0], raw, floor); err != nil {
				fmt.Printf("export: %v\n", err)
				continue
			}
			fmt.Printf("wrote %s\n", args[0])

		default:
			fmt.Printf("unknown command %q; try help\n", cmd)
		}
	}
}

func printSheet(ch models.Character) {
	fmt.Printf("%s, floor %d, holding %s\n", ch.Username, ch.Floor, ch.Dice)
	for _, it := range ch.Items {
		extra := ""
		switch it.Kind {
		case models.KindWeapon:
			extra = fmt.Sprintf("atk %d, budget %s", it.Attack, it.Budget)
			if it.TwoHanded {
				extra += ", two-handed"
			}
		case models.KindShield:
			extra = "budget " + it.Budget.String()
		case models.KindArmor:
			extra = fmt.Sprintf("hp %d, def %d, spd %d", it.Health, it.Defense, it.Speed)
		}
		fmt.Printf("  #%d %s [%s] %s\n", it.ID, it.Name, it.Location, extra)
	}
}
