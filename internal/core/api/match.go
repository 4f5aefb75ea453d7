package api

import (
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/agrimatch/agrimatch/internal/core/store"
	"github.com/agrimatch/agrimatch/internal/engine"
	"github.com/agrimatch/agrimatch/internal/types"
)

// matchRequest asks for one business to be scored against the catalogue.
type matchRequest struct {
	BusinessID string `json:"business_id"`
}

// matchResponse is a persisted run: the full ranking plus the top slice
// the frontend shows as recommendations.
type matchResponse struct {
	RunID           string            `json:"run_id"`
	BusinessID      string            `json:"business_id"`
	CreatedAt       string            `json:"created_at"`
	Recommendations []store.MatchItem `json:"recommendations"`
	All             []store.MatchItem `json:"all"`
}

// handleMatch loads the business dataset, evaluates every stored rule set
// against it, ranks the outcomes and persists the run.
func (a *API) handleMatch(c *gin.Context) {
	var req matchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	if req.BusinessID == "" {
		badRequest(c, "business_id is required")
		return
	}

	dataset, err := a.store.LoadDataset(req.BusinessID)
	if err != nil {
		a.respondError(c, err)
		return
	}

	ruleSets, err := a.store.RuleSets()
	if err != nil {
		a.respondError(c, err)
		return
	}

	items := make([]store.MatchItem, 0, len(ruleSets))
	for code, rs := range ruleSets {
		start := time.Now()
		result := engine.Evaluate(rs, dataset)
		a.collector.RecordEvaluation(time.Since(start), result.Score, result.Passed)

		items = append(items, store.MatchItem{
			SubsidyCode: code,
			Passed:      result.Passed,
			Score:       result.Score,
			Details:     result.Details,
		})
	}

	rankItems(items)

	run, err := a.store.CreateMatchRun(req.BusinessID, items)
	if err != nil {
		a.respondError(c, err)
		return
	}
	a.collector.RecordMatchRun()

	c.JSON(http.StatusOK, matchResponse{
		RunID:           run.ID,
		BusinessID:      run.BusinessID,
		CreatedAt:       run.CreatedAt,
		Recommendations: recommend(items, a.cfg.RecommendationLimit),
		All:             items,
	})
}

// handleGetMatchRun reads back a persisted run; items come back ranked.
func (a *API) handleGetMatchRun(c *gin.Context) {
	runID, err := types.ParseMatchRunID(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid run id")
		return
	}

	run, err := a.store.GetMatchRun(string(runID))
	if err != nil {
		a.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, matchResponse{
		RunID:           run.ID,
		BusinessID:      run.BusinessID,
		CreatedAt:       run.CreatedAt,
		Recommendations: recommend(run.Items, a.cfg.RecommendationLimit),
		All:             run.Items,
	})
}

// rankItems orders passed-first, then score descending, then code for a
// stable tiebreak.
func rankItems(items []store.MatchItem) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].Passed != items[j].Passed {
			return items[i].Passed
		}
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return items[i].SubsidyCode < items[j].SubsidyCode
	})
}

// recommend returns the top passed items, at most limit. Failed programs
// are never recommended regardless of score.
func recommend(ranked []store.MatchItem, limit int) []store.MatchItem {
	out := []store.MatchItem{}
	for _, item := range ranked {
		if !item.Passed || len(out) == limit {
			break
		}
		out = append(out, item)
	}
	return out
}
