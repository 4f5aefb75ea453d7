package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/agrimatch/agrimatch/internal/engine"
	"github.com/agrimatch/agrimatch/internal/types"
)

// eligibilityRequest is the boundary JSON for a one-off evaluation.
type eligibilityRequest struct {
	RuleSet types.RuleSet `json:"rule_set"`
	Dataset types.Dataset `json:"dataset"`
}

// handleEligibility evaluates a posted rule set against a posted dataset.
// The evaluation itself cannot fail, so the only rejections are malformed
// JSON and oversized rule sets.
func (a *API) handleEligibility(c *gin.Context) {
	var req eligibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	if err := a.validateRuleSet(req.RuleSet); err != nil {
		badRequest(c, err.Error())
		return
	}

	start := time.Now()
	result := engine.Evaluate(req.RuleSet, req.Dataset)
	a.collector.RecordEvaluation(time.Since(start), result.Score, result.Passed)

	c.JSON(http.StatusOK, result)
}
