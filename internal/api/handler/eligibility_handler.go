package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/gasanashema/Saving-and-credits-MS-sub000/internal/api/handler/dto"
	"github.com/gasanashema/Saving-and-credits-MS-sub000/internal/domain/eligibility"
	"github.com/gasanashema/Saving-and-credits-MS-sub000/internal/pkg/apperrors"
)

type EligibilityHandler struct {
	service eligibility.Service
	logger  *slog.Logger
}

func NewEligibilityHandler(s eligibility.Service, l *slog.Logger) *EligibilityHandler {
	return &EligibilityHandler{
		service: s,
		logger:  l.With("component", "EligibilityHandler"),
	}
}

// GetEligibility evaluates a member's current borrowing eligibility.
//
// @Summary Evaluate member eligibility
// @Description Computes the member's borrowing limit and eligibility decision. Read-only with respect to loan state; safe to call repeatedly.
// @Tags Eligibility
// @Produce json
// @Param memberID path int true "Member ID"
// @Success 200 {object} dto.EligibilityResponse "Current eligibility decision"
// @Failure 404 {object} dto.ErrorResponse "Member not found"
// @Router /members/{memberID}/eligibility [get]
// @Security BearerAuth
func (h *EligibilityHandler) GetEligibility(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "memberID")
	memberID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || memberID <= 0 {
		respondError(w, fmt.Errorf("%w: invalid member ID %q", apperrors.ErrInvalidArgument, idStr))
		return
	}

	decision, err := h.service.Evaluate(r.Context(), memberID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewEligibilityResponse(decision))
}
