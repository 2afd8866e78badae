package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"trade-viewer/internal/config"
	"trade-viewer/internal/export"
	"trade-viewer/internal/fetcher"
	"trade-viewer/internal/filter"
	"trade-viewer/internal/logger"
	"trade-viewer/internal/models"
	"trade-viewer/internal/viewer"
	"trade-viewer/internal/viewstate"
)

var (
	configPath    = flag.String("config", "viewer.yaml", "viewer config file")
	mode          = flag.String("view", "cards", "cards | favorites | prices")
	query         = flag.String("q", "", "commodity name filter")
	sortOrder     = flag.String("sort", "", "default | price-high | price-low (persisted)")
	columnSort    = flag.String("col-sort", "", "order the price table by a station column: <stationId>[:asc|:desc]")
	station       = flag.String("station", "", "select a station for the cards view; \"-\" clears it")
	favCard       = flag.String("fav-card", "", "toggle a card favorite: <stationId>:<goodsJp>")
	favPrice      = flag.String("fav-price", "", "toggle a price-table favorite by commodity name")
	toggleStation = flag.String("toggle-station", "", "toggle a station column in the price table")
	allStations   = flag.Bool("all-stations", false, "show every station column in the price table again")
	listState     = flag.Bool("list", false, "print the saved favorites and station columns and exit")
	percent       = flag.String("percent", "", "on | off: show quota in the price table (persisted)")
	exportPath    = flag.String("export", "", "write the price table to this xlsx file and exit")
	watch         = flag.Bool("watch", false, "keep running and redraw on every update")
	waitReady     = flag.Duration("wait", 30*time.Second, "how long to wait for the first snapshot")
)

func main() {
	flag.Parse()
	log := logger.GetLogger()

	cfg, err := config.LoadViewer(*configPath)
	if err != nil {
		log.WithError(err).Fatal("cannot load viewer config")
	}

	storage, err := viewstate.NewFileStorage(cfg.StoragePath)
	if err != nil {
		log.WithError(err).Fatal("cannot open view state storage")
	}
	notifier, closeNotifier := newNotifier(cfg, storage, log)
	defer closeNotifier()

	store := viewstate.New(storage, notifier, log)
	defer store.Close()

	if err := applyFlags(store); err != nil {
		log.WithError(err).Fatal("cannot update view state")
	}
	if *listState {
		printState(store)
		return
	}
	byColumn, err := parseColumnSort(*columnSort)
	if err != nil {
		log.WithError(err).Fatal("invalid flag")
	}

	client := fetcher.NewClient(fetcher.Endpoints{
		Trade:       cfg.ServerURL + "/api/trade",
		Commodities: cfg.TradeDBURL,
		Stations:    cfg.CityDBURL,
	}, cfg.RequestTimeout)
	poller := fetcher.NewPoller(client, cfg.RefreshInterval, log)
	view := viewer.New(poller, store)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ready := make(chan struct{})
	var once sync.Once
	poller.OnUpdate(func() {
		if _, _, _, ok := poller.State(); ok {
			once.Do(func() { close(ready) })
		}
	})

	if err := poller.Start(ctx); err != nil {
		log.WithError(err).Fatal("cannot start fetcher")
	}
	defer poller.Stop()

	select {
	case <-ready:
	case <-ctx.Done():
		return
	case <-time.After(*waitReady):
		fmt.Fprintln(os.Stderr, "trade data did not load in time; is the server running at", cfg.ServerURL, "?")
		os.Exit(1)
	}

	if *exportPath != "" {
		if err := writeExport(view, *exportPath, byColumn); err != nil {
			log.WithError(err).Fatal("export failed")
		}
		fmt.Println("wrote", *exportPath)
		return
	}

	draw(view, store, byColumn)
	if !*watch {
		return
	}

	redraw := make(chan struct{}, 1)
	trigger := func() {
		select {
		case redraw <- struct{}{}:
		default:
		}
	}
	poller.OnUpdate(trigger)
	store.OnChange(func(string) { trigger() })

	// Keep the "N分前" label current between snapshots.
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-redraw:
		case <-ticker.C:
		}
		fmt.Print("\033[H\033[2J")
		draw(view, store, byColumn)
	}
}

// newNotifier picks how this process hears about writes made by other viewers
// sharing the storage file. Redis falls back to polling the file.
func newNotifier(cfg *config.ViewerConfig, storage *viewstate.FileStorage, log *logger.Log) (viewstate.Notifier, func()) {
	switch cfg.Notifier {
	case config.NotifierRedis:
		bus, err := viewstate.NewRedisBus(cfg.RedisAddr, cfg.RedisChannel, log)
		if err == nil {
			return bus, func() { _ = bus.Close() }
		}
		log.WithError(err).Warn("redis notifier unavailable, watching the storage file instead")
	case config.NotifierMemory:
		log.Warn("memory notifier only syncs within this process; other viewers will not see changes until restart")
		return viewstate.NewMemoryBus(), func() {}
	case config.NotifierFile:
	default:
		log.WithFields(logger.Fields{"notifier": cfg.Notifier}).Warn("unknown notifier, watching the storage file")
	}
	watcher := viewstate.NewFileWatcher(storage, cfg.WatchInterval, log)
	return watcher, func() { _ = watcher.Close() }
}

func applyFlags(store *viewstate.Store) error {
	if *sortOrder != "" {
		if err := store.SetSortOrder(*sortOrder); err != nil {
			return err
		}
	}
	switch *station {
	case "":
	case "-":
		if err := store.SetSelectedStation(""); err != nil {
			return err
		}
	default:
		if err := store.SetSelectedStation(*station); err != nil {
			return err
		}
	}
	if *favCard != "" {
		sid, name, ok := strings.Cut(*favCard, ":")
		if !ok || sid == "" || name == "" {
			return fmt.Errorf("fav-card must look like <stationId>:<goodsJp>, got %q", *favCard)
		}
		key := models.BestOffer{StationID: sid, GoodsJp: name}.FavoriteKey()
		if _, err := store.Toggle(viewstate.SetFavoritesOverview, key); err != nil {
			return err
		}
	}
	if *favPrice != "" {
		if _, err := store.Toggle(viewstate.SetFavoritesPrices, *favPrice); err != nil {
			return err
		}
	}
	if *allStations {
		if err := store.Replace(viewstate.SetVisibleStations, nil); err != nil {
			return err
		}
	}
	if *toggleStation != "" {
		if _, err := store.Toggle(viewstate.SetVisibleStations, *toggleStation); err != nil {
			return err
		}
	}
	switch strings.ToLower(*percent) {
	case "":
	case "on", "true", "1":
		return store.SetShowPercent(true)
	case "off", "false", "0":
		return store.SetShowPercent(false)
	default:
		return fmt.Errorf("percent must be on or off, got %q", *percent)
	}
	return nil
}

func parseColumnSort(raw string) (filter.ColumnSort, error) {
	if raw == "" {
		return filter.ColumnSort{}, nil
	}
	by, ok := filter.ParseColumnSort(raw)
	if !ok {
		return filter.ColumnSort{}, fmt.Errorf("col-sort must look like <stationId>[:asc|:desc], got %q", raw)
	}
	return by, nil
}

func printState(store *viewstate.Store) {
	for _, set := range []string{viewstate.SetFavoritesOverview, viewstate.SetFavoritesPrices, viewstate.SetVisibleStations} {
		members := store.Members(set)
		if len(members) == 0 {
			fmt.Printf("%s: -\n", set)
			continue
		}
		fmt.Printf("%s: %s\n", set, strings.Join(members, ", "))
	}
}

func draw(view *viewer.View, store *viewstate.Store, byColumn filter.ColumnSort) {
	switch *mode {
	case "prices":
		table, err := view.PriceTable(*query, byColumn)
		if errors.Is(err, fetcher.ErrNotReady) {
			fmt.Println("読み込み中...")
			return
		}
		favorites := store.Set(viewstate.SetFavoritesPrices)
		fmt.Println(renderTable(table, view.StationNames(), favorites.Has, view.ShowPercent(), byColumn, view.FetchTime()))
	case "favorites":
		favs, err := view.Favorites(*query)
		if errors.Is(err, fetcher.ErrNotReady) {
			fmt.Println("読み込み中...")
			return
		}
		fmt.Println(renderFavorites(favs, view.StationNames(), view.FetchTime()))
	default:
		cards, err := view.Cards(*query, filter.SortOrder(""))
		if errors.Is(err, fetcher.ErrNotReady) {
			fmt.Println("読み込み中...")
			return
		}
		favorites := store.Set(viewstate.SetFavoritesOverview)
		isFav := func(o models.BestOffer) bool { return favorites.Has(o.FavoriteKey()) }
		fmt.Println(renderCards("最高買取価格", cards, view.StationNames(), isFav, view.FetchTime()))
	}
}

func writeExport(view *viewer.View, path string, byColumn filter.ColumnSort) error {
	table, err := view.PriceTable(*query, byColumn)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := export.WritePivot(f, table, view.StationNames()); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
