// points.go — баланс, журнал баллов и вознаграждения.
package handlers

import (
	"net/http"

	"github.com/civicwatch/civicwatch/internal/domain/model"
)

// GetMyPoints — GET /api/v1/me/points.
func (h *APIHandler) GetMyPoints(w http.ResponseWriter, r *http.Request) {
	subject := actor(r)
	balance, err := h.ledger.Balance(r.Context(), subject)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, balanceDTO{UserID: subject.ID, Balance: balance})
}

// ListMyTransactions — GET /api/v1/me/transactions. Новые записи первыми.
func (h *APIHandler) ListMyTransactions(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := pagination(w, r)
	if !ok {
		return
	}

	entries, err := h.ledger.History(r.Context(), actor(r), limit, offset)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(entries, func(e *model.LedgerEntry) ledgerEntryDTO {
		return ledgerEntryDTO{
			ID:          e.ID,
			Amount:      e.Amount,
			Reason:      e.Reason,
			ReferenceID: e.ReferenceID,
			CreatedAt:   e.CreatedAt,
		}
	}))
}

// ListMyClaims — GET /api/v1/me/claims.
func (h *APIHandler) ListMyClaims(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := pagination(w, r)
	if !ok {
		return
	}

	claims, err := h.rewards.MyClaims(r.Context(), actor(r), limit, offset)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(claims, toClaimDTO))
}

// ListRewards — GET /api/v1/rewards. Публичный каталог.
func (h *APIHandler) ListRewards(w http.ResponseWriter, r *http.Request) {
	rewards, err := h.rewards.Catalog(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(rewards, func(rw *model.Reward) rewardDTO {
		return rewardDTO{
			ID:             rw.ID,
			Name:           rw.Name,
			Partners:       rw.Partners,
			Services:       rw.Services,
			ValueEUR:       rw.ValueEUR,
			PointsRequired: rw.PointsRequired,
		}
	}))
}

// ClaimReward — POST /api/v1/rewards/{id}/claim.
// 422 INSUFFICIENT_BALANCE — баллов меньше стоимости вознаграждения.
func (h *APIHandler) ClaimReward(w http.ResponseWriter, r *http.Request) {
	rewardID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	claim, err := h.rewards.Claim(r.Context(), actor(r), rewardID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toClaimDTO(claim))
}
