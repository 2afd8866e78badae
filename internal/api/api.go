package api

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"trade-viewer/internal/aggregate"
	"trade-viewer/internal/export"
	"trade-viewer/internal/filter"
	"trade-viewer/internal/logger"
	"trade-viewer/internal/models"
	"trade-viewer/internal/refdata"
)

const fetchFailed = "Failed to fetch trade data"

// TradeSource serves the filtered trade snapshot and can drop its cache.
type TradeSource interface {
	Snapshot(ctx context.Context) (*models.TradeSnapshot, error)
	Revalidate(ctx context.Context) error
}

// Reference holds the display-name tables used by the aggregated views.
type Reference struct {
	Commodities refdata.Names
	Stations    refdata.Names
}

type APIHandler struct {
	trade   TradeSource
	ref     Reference
	limiter *rate.Limiter
	log     *logger.Entry

	writeWorkbook func(io.Writer, *models.PivotTable, refdata.Names) error
}

type overviewResponse struct {
	Items     []models.BestOffer `json:"items"`
	FetchTime time.Time          `json:"fetchTime"`
}

type pricesResponse struct {
	Stations     []string          `json:"stations"`
	StationNames map[string]string `json:"stationNames"`
	Rows         []models.PivotRow `json:"rows"`
	FetchTime    time.Time         `json:"fetchTime"`
}

// SetupRoutes registers the trade endpoints on r. A nil limiter disables
// throttling of the revalidation endpoints.
func SetupRoutes(r *gin.RouterGroup, trade TradeSource, ref Reference, limiter *rate.Limiter, log *logger.Log) *APIHandler {
	handler := &APIHandler{
		trade:   trade,
		ref:     ref,
		limiter: limiter,
		log:     log.WithComponent("api"),

		writeWorkbook: export.WritePivot,
	}

	r.GET("/trade", handler.GetTrade)
	r.POST("/trade", handler.rateLimit(), handler.Revalidate)
	r.POST("/updateTrade", handler.rateLimit(), handler.Revalidate)

	r.GET("/overview", handler.GetOverview)

	prices := r.Group("/prices")
	{
		prices.GET("", handler.GetPrices)
		prices.GET("/export", handler.ExportPrices)
	}

	return handler
}

func (h *APIHandler) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.limiter != nil && !h.limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many revalidation requests"})
			return
		}
		c.Next()
	}
}

// snapshot loads the current snapshot or writes the 500 response itself.
func (h *APIHandler) snapshot(c *gin.Context) (*models.TradeSnapshot, bool) {
	snap, err := h.trade.Snapshot(c.Request.Context())
	if err != nil {
		h.log.WithError(err).WithFields(logger.Fields{"path": c.FullPath()}).Error("trade snapshot unavailable")
		c.JSON(http.StatusInternalServerError, gin.H{"error": fetchFailed})
		return nil, false
	}
	return snap, true
}

// GetTrade returns the flattened station list with exclusions applied.
func (h *APIHandler) GetTrade(c *gin.Context) {
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, snap)
}

// Revalidate drops the cached upstream response.
func (h *APIHandler) Revalidate(c *gin.Context) {
	if err := h.trade.Revalidate(c.Request.Context()); err != nil {
		h.log.WithError(err).Error("revalidation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to revalidate trade data"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"revalidated": true})
}

// GetOverview returns the best buy offer per commodity name, optionally for
// a single station. favorites lists card keys (<stationId>-<goodsJp>) the
// client wants ordered first.
func (h *APIHandler) GetOverview(c *gin.Context) {
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}
	station := strings.TrimSpace(c.Query("station"))
	query := strings.TrimSpace(c.Query("q"))
	order := filter.ParseSortOrder(c.Query("sort"))

	offers := aggregate.BestOffers(snap.Stations, h.ref.Commodities, aggregate.Options{
		StationFilter: station,
		OnUnmapped:    aggregate.Drop,
	})
	c.JSON(http.StatusOK, overviewResponse{
		Items:     filter.FilterAndSort(offers, query, order, parseFavorites(c.Query("favorites"))),
		FetchTime: snap.FetchTime,
	})
}

// GetPrices returns the station x commodity table.
func (h *APIHandler) GetPrices(c *gin.Context) {
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}
	table, ok := h.priceTable(c, snap)
	if !ok {
		return
	}

	names := make(map[string]string, len(table.Stations))
	for _, sid := range table.Stations {
		names[sid] = h.ref.Stations.NameOr(sid)
	}
	c.JSON(http.StatusOK, pricesResponse{
		Stations:     table.Stations,
		StationNames: names,
		Rows:         table.Rows,
		FetchTime:    snap.FetchTime,
	})
}

// ExportPrices returns the price table as an xlsx workbook. The workbook is
// rendered in full before anything is sent.
func (h *APIHandler) ExportPrices(c *gin.Context) {
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}
	table, ok := h.priceTable(c, snap)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := h.writeWorkbook(&buf, table, h.ref.Stations); err != nil {
		h.log.WithError(err).Error("price export failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export prices"})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="prices.xlsx"`)
	c.Data(http.StatusOK, export.ContentType, buf.Bytes())
}

// priceTable builds the table for the stations, q, favorites and sort query
// parameters. An unreadable sort writes a 400 response.
func (h *APIHandler) priceTable(c *gin.Context, snap *models.TradeSnapshot) (*models.PivotTable, bool) {
	var by filter.ColumnSort
	if raw := c.Query("sort"); raw != "" {
		var valid bool
		if by, valid = filter.ParseColumnSort(raw); !valid {
			c.JSON(http.StatusBadRequest, gin.H{"error": "sort must be <stationId>:asc or <stationId>:desc"})
			return nil, false
		}
	}
	favorites := parseFavorites(c.Query("favorites"))

	table := aggregate.PivotTable(snap.Stations, h.ref.Commodities, aggregate.FallbackToID)
	table = table.Project(parseStations(c.Query("stations")))
	rows := filter.FilterRows(table.Rows, strings.TrimSpace(c.Query("q")), favorites)
	if !by.IsZero() {
		rows = filter.SortRows(rows, by, favorites)
	}
	return table.WithRows(rows), true
}

func parseStations(raw string) map[string]bool {
	visible := make(map[string]bool)
	for _, id := range splitList(raw) {
		visible[id] = true
	}
	return visible
}

// parseFavorites returns nil when no favorites were sent so callers keep
// their plain ordering.
func parseFavorites(raw string) filter.KeySet {
	keys := splitList(raw)
	if len(keys) == 0 {
		return nil
	}
	return filter.NewKeys(keys...)
}

func splitList(raw string) []string {
	var out []string
	for _, v := range strings.Split(raw, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
