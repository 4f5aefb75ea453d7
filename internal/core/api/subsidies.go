package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/agrimatch/agrimatch/internal/types"
)

// saveRulesRequest upserts a subsidy program together with its rule set.
type saveRulesRequest struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	RuleSet     types.RuleSet `json:"rule_set"`
}

// subsidyResponse is a program with its stored rule set.
type subsidyResponse struct {
	Code        string        `json:"code"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	RuleSet     types.RuleSet `json:"rule_set"`
}

// handleSaveRules creates or updates the program for :code and replaces
// its rule set wholesale.
func (a *API) handleSaveRules(c *gin.Context) {
	code := strings.TrimSpace(c.Param("code"))
	if code == "" {
		badRequest(c, "subsidy code is required")
		return
	}

	var req saveRulesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	if req.Name == "" {
		badRequest(c, "name is required")
		return
	}
	if err := a.validateRuleSet(req.RuleSet); err != nil {
		badRequest(c, err.Error())
		return
	}

	if _, err := a.store.UpsertSubsidy(code, req.Name, req.Description); err != nil {
		a.respondError(c, err)
		return
	}
	if err := a.store.SaveRuleSet(code, req.RuleSet); err != nil {
		a.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, subsidyResponse{
		Code:        code,
		Name:        req.Name,
		Description: req.Description,
		RuleSet:     req.RuleSet,
	})
}

// handleListSubsidies returns the full catalogue with rule sets.
func (a *API) handleListSubsidies(c *gin.Context) {
	subsidies, err := a.store.ListSubsidies()
	if err != nil {
		a.respondError(c, err)
		return
	}

	ruleSets, err := a.store.RuleSets()
	if err != nil {
		a.respondError(c, err)
		return
	}

	out := make([]subsidyResponse, 0, len(subsidies))
	for _, sub := range subsidies {
		out = append(out, subsidyResponse{
			Code:        sub.Code,
			Name:        sub.Name,
			Description: sub.Description,
			RuleSet:     ruleSets[sub.Code],
		})
	}

	c.JSON(http.StatusOK, gin.H{"subsidies": out})
}
