package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/aegis-rs/internal/backtest"
	"github.com/wonny/aegis-rs/internal/contracts"
	"github.com/wonny/aegis-rs/internal/report"
	"github.com/wonny/aegis-rs/pkg/logger"
)

// ResultsHandler serves stored rankings, screens, trades and timelines read-only
// ⭐ SSOT: 결과 조회 API 핸들러는 이 구조체에서만
type ResultsHandler struct {
	store  contracts.ResultsStore
	ledger backtest.LedgerConfig
	loc    *time.Location
	logger *logger.Logger
}

// NewResultsHandler creates a new results handler
func NewResultsHandler(store contracts.ResultsStore, ledger backtest.LedgerConfig, loc *time.Location, log *logger.Logger) *ResultsHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &ResultsHandler{
		store:  store,
		ledger: ledger,
		loc:    loc,
		logger: log.WithField("module", "results_handler"),
	}
}

// GetRanking returns the RS ranking of one session
// GET /api/rankings/{date}?min_percentile=85&format=tradingview
func (h *ResultsHandler) GetRanking(w http.ResponseWriter, r *http.Request) {
	session, err := parseDate(mux.Vars(r)["date"], h.loc)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	minPercentile, err := queryFloat(r, "min_percentile", 0)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	table, err := h.store.LoadRanking(r.Context(), session)
	if err != nil {
		h.storeError(w, err, "ranking", session)
		return
	}

	if r.URL.Query().Get("format") == "tradingview" {
		w.Header().Set("Content-Type", "text/csv")
		w.WriteHeader(http.StatusOK)
		_ = report.WriteTradingViewRating(w, table, session.AddDate(0, 0, 1))
		return
	}

	rows := make([]contracts.RankedTicker, 0, len(table.Rows))
	for _, row := range table.Rows {
		if float64(row.Percentile) >= minPercentile {
			rows = append(rows, row)
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"session_date": session.Format(dateLayout),
		"count":        len(rows),
		"rows":         rows,
	})
}

// GetScreen returns the passing candidates of one session
// GET /api/screens/{date}?format=csv
func (h *ResultsHandler) GetScreen(w http.ResponseWriter, r *http.Request) {
	session, err := parseDate(mux.Vars(r)["date"], h.loc)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	results, err := h.store.LoadScreen(r.Context(), session)
	if err != nil {
		h.storeError(w, err, "screen", session)
		return
	}

	if r.URL.Query().Get("format") == "csv" {
		w.Header().Set("Content-Type", "text/csv")
		w.WriteHeader(http.StatusOK)
		rows := report.BuildSheet(r.Context(), results, nil, report.DefaultSheetOptions(), h.loc)
		_ = report.WriteScreenSheet(w, rows)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"session_date": session.Format(dateLayout),
		"count":        len(results),
		"results":      results,
	})
}

// GetTrades returns simulated trades of sessions in [from, to]
// GET /api/trades?from=2024-01-01&to=2024-12-31
func (h *ResultsHandler) GetTrades(w http.ResponseWriter, r *http.Request) {
	trades, ok := h.loadTrades(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":  len(trades),
		"trades": trades,
	})
}

// GetTimeline replays stored trades through the portfolio ledger
// GET /api/timeline?from=&to=&initial_cash=100&format=csv
func (h *ResultsHandler) GetTimeline(w http.ResponseWriter, r *http.Request) {
	cfg := h.ledger
	cash, err := queryFloat(r, "initial_cash", cfg.InitialCash)
	if err != nil || cash <= 0 {
		respondError(w, http.StatusBadRequest, "initial_cash must be a positive number")
		return
	}
	cfg.InitialCash = cash

	trades, ok := h.loadTrades(w, r)
	if !ok {
		return
	}

	summary, err := backtest.NewLedger(cfg, h.logger).Run(trades)
	if err != nil {
		h.logger.WithError(err).Error("Failed to replay timeline")
		respondError(w, http.StatusInternalServerError, "Failed to replay timeline")
		return
	}

	if r.URL.Query().Get("format") == "csv" {
		w.Header().Set("Content-Type", "text/csv")
		w.WriteHeader(http.StatusOK)
		_ = report.WriteTimelineCSV(w, summary)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

func (h *ResultsHandler) loadTrades(w http.ResponseWriter, r *http.Request) ([]contracts.Trade, bool) {
	from, err := queryDate(r, "from", time.Time{}, h.loc)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	to, err := queryDate(r, "to", time.Now().In(h.loc), h.loc)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	if to.Before(from) {
		respondError(w, http.StatusBadRequest, "to must not be before from")
		return nil, false
	}

	trades, err := h.store.LoadTrades(r.Context(), from, to)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load trades")
		respondError(w, http.StatusInternalServerError, "Failed to load trades")
		return nil, false
	}
	return trades, true
}

func (h *ResultsHandler) storeError(w http.ResponseWriter, err error, kind string, session time.Time) {
	if errors.Is(err, contracts.ErrNotFound) {
		respondError(w, http.StatusNotFound, "no "+kind+" stored for "+session.Format(dateLayout))
		return
	}
	h.logger.WithError(err).WithField("session", session.Format(dateLayout)).Error("Failed to load " + kind)
	respondError(w, http.StatusInternalServerError, "Failed to load "+kind)
}
