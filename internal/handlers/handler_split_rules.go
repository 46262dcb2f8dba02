package handlers

import (
	"net/http"

	"github.com/SscSPs/shared_expense_bot/internal/core/domain"
	portssvc "github.com/SscSPs/shared_expense_bot/internal/core/ports/services"
	"github.com/SscSPs/shared_expense_bot/internal/dto"
	"github.com/gin-gonic/gin"
)

type splitRuleHandler struct {
	rules portssvc.SplitRuleSvc
}

// RegisterSplitRuleRoutes registers the split rule routes.
func RegisterSplitRuleRoutes(rg *gin.RouterGroup, rules portssvc.SplitRuleSvc) {
	registerValidators()
	h := &splitRuleHandler{rules: rules}

	sr := rg.Group("/split-rules")
	{
		sr.GET("", h.listRules)
		sr.PUT("/:category", h.updateRule)
		sr.DELETE("/:category", h.removeRule)
		sr.DELETE("", h.resetRules)
	}
}

// listRules godoc
// @Summary List the default split and every category override
// @Tags split-rules
// @Produce json
// @Success 200 {array} dto.SplitRuleResponse
// @Security BearerAuth
// @Router /split-rules [get]
func (h *splitRuleHandler) listRules(c *gin.Context) {
	c.JSON(http.StatusOK, dto.ToSplitRuleResponses(h.rules.ListRules(c.Request.Context())))
}

// updateRule godoc
// @Summary Set the split for a category
// @Tags split-rules
// @Accept json
// @Param category path string true "Category"
// @Param rule body dto.UpdateSplitRuleRequest true "Share of participant A"
// @Success 204
// @Failure 400 {object} ErrorResponse
// @Security BearerAuth
// @Router /split-rules/{category} [put]
func (h *splitRuleHandler) updateRule(c *gin.Context) {
	var req dto.UpdateSplitRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return
	}
	actor, ok := actorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}
	if err := h.rules.Update(c.Request.Context(), c.Param("category"), domain.SplitFromA(req.SplitA), actor); err != nil {
		respondError(c, err, "update split rule")
		return
	}
	c.Status(http.StatusNoContent)
}

// removeRule godoc
// @Summary Remove the override for a category
// @Tags split-rules
// @Param category path string true "Category"
// @Success 204
// @Security BearerAuth
// @Router /split-rules/{category} [delete]
func (h *splitRuleHandler) removeRule(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}
	if err := h.rules.Remove(c.Request.Context(), c.Param("category"), actor); err != nil {
		respondError(c, err, "remove split rule")
		return
	}
	c.Status(http.StatusNoContent)
}

// resetRules godoc
// @Summary Remove every category override
// @Tags split-rules
// @Success 204
// @Security BearerAuth
// @Router /split-rules [delete]
func (h *splitRuleHandler) resetRules(c *gin.Context) {
	if err := h.rules.ResetAll(c.Request.Context()); err != nil {
		respondError(c, err, "reset split rules")
		return
	}
	c.Status(http.StatusNoContent)
}
