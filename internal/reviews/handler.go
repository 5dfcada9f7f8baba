package reviews

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/segundop/segundop/internal/catalog"
	"github.com/segundop/segundop/internal/identity"
	"github.com/segundop/segundop/internal/platform/httpx"
)

// Handler exposes review endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	identity  identity.Middleware
	validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, idmw identity.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		service:   service,
		identity:  idmw,
		validator: validator.New(),
	}
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	actor, _ := identity.ActorFromContext(r.Context())

	var form ReviewForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	review, err := h.service.Create(r.Context(), actor.ID, form)
	if err != nil {
		switch {
		case errors.Is(err, catalog.ErrNotFound):
			httpx.Problem(w, http.StatusNotFound, "Not Found", "product not found")
		case errors.Is(err, ErrNotEligible):
			httpx.Problem(w, http.StatusUnprocessableEntity, "Not Eligible", err.Error())
		default:
			h.logger.Error("create review failed", slog.Any("error", err))
			httpx.RespondError(w, err)
		}
		return
	}
	httpx.JSON(w, http.StatusCreated, review)
}

func (h *Handler) listByProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid product id")
		return
	}

	reviews, err := h.service.ListForProduct(r.Context(), id)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "product not found")
			return
		}
		h.logger.Error("list reviews failed", slog.Any("error", err), slog.Int64("product_id", id))
		httpx.RespondError(w, err)
		return
	}
	if reviews == nil {
		reviews = []Review{}
	}
	httpx.JSON(w, http.StatusOK, reviews)
}
