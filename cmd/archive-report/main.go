package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"

	"trade-viewer/internal/config"
	"trade-viewer/internal/database"
	"trade-viewer/internal/logger"
	"trade-viewer/internal/models"
	"trade-viewer/internal/refdata"
)

var (
	itemID   = flag.String("item", "", "commodity id or display name to report on (required)")
	days     = flag.Int("days", 7, "how many days of history to show")
	pruneOld = flag.Int("prune-days", 0, "delete snapshots older than this many days first (0 = keep all)")
)

func main() {
	flag.Parse()
	log := logger.GetLogger()

	if err := godotenv.Load(); err != nil {
		log.Debug("No .env file found")
	}
	cfg := config.Load()

	if *itemID == "" {
		fmt.Fprintln(os.Stderr, "usage: archive-report -item <commodityId> [-days N]")
		os.Exit(2)
	}
	if cfg.DatabaseURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is not set")
		os.Exit(2)
	}

	db, err := database.Initialize(cfg.DatabaseURL, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	archive := database.NewSnapshotArchive(db)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if *pruneOld > 0 {
		removed, err := archive.Prune(ctx, time.Now().AddDate(0, 0, -*pruneOld))
		if err != nil {
			log.WithError(err).Fatal("prune failed")
		}
		log.WithFields(logger.Fields{"snapshots": removed}).Info("pruned archive")
	}

	commodities, _ := refdata.LoadFile(cfg.RefdataDir, refdata.Commodities)
	stations, _ := refdata.LoadFile(cfg.RefdataDir, refdata.Stations)

	since := time.Now().AddDate(0, 0, -*days)
	for _, id := range resolveItem(commodities, *itemID) {
		points, err := archive.History(ctx, id, since)
		if err != nil {
			log.WithError(err).Fatal("history query failed")
		}
		fmt.Printf("%s (%s), last %d days, %d observations\n\n",
			commodities.NameOr(id), id, *days, len(points))
		if len(points) == 0 {
			continue
		}
		printHistory(os.Stdout, points, stations)
		fmt.Println()
	}
}

// resolveItem treats arg as an id when the name table knows it or has no
// entry by that name; several ids may share one display name.
func resolveItem(commodities refdata.Names, arg string) []string {
	if _, ok := commodities.Lookup(arg); ok {
		return []string{arg}
	}
	ids := commodities.IDsFor(arg)
	if len(ids) == 0 {
		return []string{arg}
	}
	sort.Strings(ids)
	return ids
}

// printHistory writes one line per fetch with a price column per station.
func printHistory(out io.Writer, points []models.TradePricePoint, stations refdata.Names) {
	var columns []string
	seen := make(map[string]bool)
	byTime := make(map[time.Time]map[string]models.TradePricePoint)
	var times []time.Time

	for _, p := range points {
		if !seen[p.StationID] {
			seen[p.StationID] = true
			columns = append(columns, p.StationID)
		}
		row, ok := byTime[p.FetchTime]
		if !ok {
			row = make(map[string]models.TradePricePoint)
			byTime[p.FetchTime] = row
			times = append(times, p.FetchTime)
		}
		row[p.StationID] = p
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	header := []string{"fetched"}
	for _, sid := range columns {
		header = append(header, stations.NameOr(sid))
	}
	fmt.Fprintln(w, strings.Join(header, "\t")+"\t")

	for _, t := range times {
		cells := []string{t.Local().Format("01-02 15:04")}
		for _, sid := range columns {
			p, ok := byTime[t][sid]
			if !ok {
				cells = append(cells, "-")
				continue
			}
			mark := "▼"
			if models.TrendFromFlag(p.IsRise) == models.Rising {
				mark = "▲"
			}
			cells = append(cells, fmt.Sprintf("%.0f%s %d%%", p.Price, mark, int(math.Round(p.Quota*100))))
		}
		fmt.Fprintln(w, strings.Join(cells, "\t")+"\t")
	}
	w.Flush()
}
