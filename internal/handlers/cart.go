package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/domain"
	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/platform/auth"
	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/platform/httpx"
	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/platform/requestctx"
	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/services"
)

// CartHandlers exposes authenticated cart endpoints for the current user.
type CartHandlers struct {
	authn *auth.Authenticator
	carts services.CartService
}

const (
	maxCartBodySize    = 8 * 1024
	cartUnavailableMsg = "cart service is unavailable"
)

// NewCartHandlers constructs handlers enforcing Firebase authentication before invoking the cart service.
func NewCartHandlers(authn *auth.Authenticator, carts services.CartService) *CartHandlers {
	return &CartHandlers{
		authn: authn,
		carts: carts,
	}
}

// Routes wires the /cart endpoints onto the provided router.
func (h *CartHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireFirebaseAuth())
	}
	r.Get("/", h.getCart)
	r.Post("/add", h.addItem)
	r.Put("/update", h.updateItem)
	r.Delete("/remove", h.removeItem)
	r.Delete("/clear", h.clearCart)
}

type addCartItemRequest struct {
	ProductID string `json:"productId" validate:"required"`
	Variant   string `json:"variant"`
	Quantity  int    `json:"quantity" validate:"required,min=1,max=99"`
}

// Quantity zero or below removes the line, so only the upper bound is validated.
type updateCartItemRequest struct {
	ProductID string `json:"productId" validate:"required"`
	Variant   string `json:"variant"`
	Quantity  int    `json:"quantity" validate:"max=99"`
}

type removeCartItemRequest struct {
	ProductID string `json:"productId" validate:"required"`
	Variant   string `json:"variant"`
}

func (h *CartHandlers) getCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.begin(w, r)
	if !ok {
		return
	}
	cart, err := h.carts.GetCart(ctx, identity.UID)
	h.respond(ctx, w, cart, err)
}

func (h *CartHandlers) addItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.begin(w, r)
	if !ok {
		return
	}
	var req addCartItemRequest
	if !decodeRequest(w, r, maxCartBodySize, false, &req) {
		return
	}
	requestctx.Annotate(ctx, "productId", strings.TrimSpace(req.ProductID))
	cart, err := h.carts.AddItem(ctx, services.AddCartItemCommand{
		UserID:    identity.UID,
		ProductID: strings.TrimSpace(req.ProductID),
		Variant:   strings.TrimSpace(req.Variant),
		Quantity:  req.Quantity,
	})
	h.respond(ctx, w, cart, err)
}

func (h *CartHandlers) updateItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.begin(w, r)
	if !ok {
		return
	}
	var req updateCartItemRequest
	if !decodeRequest(w, r, maxCartBodySize, false, &req) {
		return
	}
	cart, err := h.carts.UpdateQuantity(ctx, services.UpdateCartItemCommand{
		UserID:    identity.UID,
		ProductID: strings.TrimSpace(req.ProductID),
		Variant:   strings.TrimSpace(req.Variant),
		Quantity:  req.Quantity,
	})
	h.respond(ctx, w, cart, err)
}

// removeItem accepts the line key either as a JSON body or as query parameters, since some
// clients and proxies drop DELETE bodies.
func (h *CartHandlers) removeItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.begin(w, r)
	if !ok {
		return
	}
	query := r.URL.Query()
	req := removeCartItemRequest{
		ProductID: query.Get("productId"),
		Variant:   query.Get("variant"),
	}
	if !decodeRequest(w, r, maxCartBodySize, true, &req) {
		return
	}
	cart, err := h.carts.RemoveItem(ctx, services.RemoveCartItemCommand{
		UserID:    identity.UID,
		ProductID: strings.TrimSpace(req.ProductID),
		Variant:   strings.TrimSpace(req.Variant),
	})
	h.respond(ctx, w, cart, err)
}

func (h *CartHandlers) clearCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.begin(w, r)
	if !ok {
		return
	}
	cart, err := h.carts.Clear(ctx, identity.UID)
	h.respond(ctx, w, cart, err)
}

func (h *CartHandlers) begin(w http.ResponseWriter, r *http.Request) (*auth.Identity, bool) {
	if h.carts == nil {
		httpx.WriteError(r.Context(), w, httpx.NewError(httpx.CodeInternal, cartUnavailableMsg, http.StatusServiceUnavailable))
		return nil, false
	}
	return requireIdentity(w, r)
}

func (h *CartHandlers) respond(ctx context.Context, w http.ResponseWriter, cart domain.Cart, err error) {
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSONResponse(w, http.StatusOK, cartResponse{
		Success:   true,
		StoreMode: storeModeFrom(ctx),
		Cart:      buildCartPayload(cart),
	})
}
