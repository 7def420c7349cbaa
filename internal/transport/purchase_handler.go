package transport

import (
	"errors"
	"net/http"

	"marketplace-api/internal/domain"
	"marketplace-api/internal/middleware"
	"marketplace-api/internal/pricing"
	"marketplace-api/internal/repository"
	"marketplace-api/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PurchaseItemRequest is one requested line item of a checkout.
type PurchaseItemRequest struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Amount    int   `json:"amount" validate:"required,gt=0"`
}

// MakePurchaseRequest represents the checkout request payload. The
// payment method is restricted here so an unknown method never reaches
// the purchase engine.
type MakePurchaseRequest struct {
	PaymentMethod string                `json:"payment_method" validate:"required,oneof=cash debit credit"`
	Products      []PurchaseItemRequest `json:"products" validate:"required,min=1,dive"`
}

// PurchaseResponse represents a committed purchase with its total
type PurchaseResponse struct {
	Purchase *service.PurchaseWithTotal `json:"purchase"`
	Message  string                     `json:"message"`
}

// PurchaseListResponse represents a buyer's purchase history
type PurchaseListResponse struct {
	Purchases []*service.PurchaseWithTotal `json:"purchases"`
}

// PurchaseHandler handles HTTP requests for checkouts and purchase history
type PurchaseHandler struct {
	purchaseService service.PurchaseService
	logger          *zap.Logger
}

// NewPurchaseHandler creates a new PurchaseHandler
func NewPurchaseHandler(purchaseService service.PurchaseService, logger *zap.Logger) *PurchaseHandler {
	return &PurchaseHandler{
		purchaseService: purchaseService,
		logger:          logger,
	}
}

// RegisterRoutes registers all purchase routes. Both endpoints are
// buyer-only.
func (h *PurchaseHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/purchases", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Use(middleware.RequireRole(h.logger, domain.RoleBuyer))

		r.Post("/", h.Checkout)
		r.Get("/mine", h.ListMine)
	})
}

// Checkout handles a bulk purchase request
func (h *PurchaseHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	buyerID, ok := authenticatedUserID(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req MakePurchaseRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Checkout validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	items := make([]service.LineItemRequest, 0, len(req.Products))
	for _, p := range req.Products {
		items = append(items, service.LineItemRequest{
			ProductID: p.ProductID,
			Amount:    p.Amount,
		})
	}

	purchase, err := h.purchaseService.Checkout(r.Context(), buyerID, pricing.PaymentMethod(req.PaymentMethod), items)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrProductNotFound):
			middleware.RespondWithError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, repository.ErrOutOfStock):
			middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrEmptyPurchase):
			middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
		default:
			// Includes an unvalidated payment method slipping through:
			// a server-side defect, not a client error.
			h.logger.Error("Checkout failed", zap.Error(err), zap.String("buyer_id", buyerID.String()))
			middleware.RespondWithError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, PurchaseResponse{
		Purchase: purchase,
		Message:  "purchase completed successfully",
	})
}

// ListMine handles listing the authenticated buyer's purchases
func (h *PurchaseHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	buyerID, ok := authenticatedUserID(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	purchases, err := h.purchaseService.ListForBuyer(r.Context(), buyerID)
	if err != nil {
		h.logger.Error("Failed to list purchases", zap.Error(err), zap.String("buyer_id", buyerID.String()))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list purchases")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, PurchaseListResponse{Purchases: purchases})
}

// authenticatedUserID pulls the verified user id injected by the auth
// middleware out of the request context.
func authenticatedUserID(r *http.Request) (uuid.UUID, bool) {
	userIDStr, ok := middleware.GetUserID(r.Context())
	if !ok {
		return uuid.Nil, false
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return uuid.Nil, false
	}

	return userID, true
}
