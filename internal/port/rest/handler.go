package rest

import (
	"net/http"
	"strconv"

	"github.com/donaldmo/pandopot-api/internal/domain/apperr"
	"github.com/donaldmo/pandopot-api/internal/domain/entity"
	"github.com/donaldmo/pandopot-api/internal/platform/logger"
	"github.com/donaldmo/pandopot-api/internal/service"
	"github.com/go-chi/chi/v5"
)

const idempotencyHeader = "Idempotency-Key"

type Services struct {
	Listings      service.ListingService
	Carts         service.CartService
	Orders        service.OrderService
	Boosts        service.BoostService
	Search        service.SearchService
	Catalog       service.CatalogService
	Subscriptions service.SubscriptionService
	Notifier      service.Notifier
}

type Handler struct {
	svc Services
	log logger.Logger
}

func NewHandler(svc Services, log logger.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

func (h *Handler) userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := UserIDFrom(r.Context())
	if !ok {
		writeStatusError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "missing caller identity")
	}
	return id, ok
}

func queryInt(r *http.Request, key string) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0
	}
	return v
}

// listings

type createProductRequest struct {
	SubscriptionID string   `json:"subscriptionId"`
	CategoryID     string   `json:"categoryId"`
	Category       string   `json:"category"`
	SubCategory    string   `json:"subCategory"`
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	Price          float64  `json:"price"`
	ReducedPrice   float64  `json:"reducedPrice"`
	DeliveryTerms  string   `json:"deliveryTerms"`
	DeliveryPrice  float64  `json:"deliveryPrice"`
	Units          int      `json:"units"`
	Province       string   `json:"province"`
	City           string   `json:"city"`
	Images         []string `json:"images"`
}

func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	var req createProductRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	product, err := h.svc.Listings.CreateProduct(r.Context(), service.CreateProductInput{
		OwnerID:        userID,
		SubscriptionID: req.SubscriptionID,
		CategoryID:     req.CategoryID,
		CategoryName:   req.Category,
		SubCategory:    req.SubCategory,
		Name:           req.Name,
		Description:    req.Description,
		Price:          req.Price,
		ReducedPrice:   req.ReducedPrice,
		DeliveryTerms:  req.DeliveryTerms,
		DeliveryPrice:  req.DeliveryPrice,
		Units:          req.Units,
		Province:       req.Province,
		City:           req.City,
		Images:         req.Images,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, product)
}

type createMarketRequest struct {
	CategoryID     string                `json:"categoryId"`
	SubCategory    string                `json:"subCategory"`
	OrganisationID string                `json:"organisationId"`
	Name           string                `json:"name"`
	Description    string                `json:"description"`
	Location       string                `json:"location"`
	Phone          string                `json:"phone"`
	Email          string                `json:"email"`
	Website        string                `json:"website"`
	Images         []string              `json:"images"`
	Hiking         *entity.HikingProfile `json:"hiking"`
}

func (h *Handler) CreateMarket(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	var req createMarketRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	market, err := h.svc.Listings.CreateMarket(r.Context(), service.CreateMarketInput{
		OwnerID:        userID,
		CategoryID:     req.CategoryID,
		SubCategory:    req.SubCategory,
		OrganisationID: req.OrganisationID,
		Name:           req.Name,
		Description:    req.Description,
		Location:       req.Location,
		Phone:          req.Phone,
		Email:          req.Email,
		Website:        req.Website,
		Images:         req.Images,
		Hiking:         req.Hiking,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, market)
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.svc.Listings.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (h *Handler) GetMarket(w http.ResponseWriter, r *http.Request) {
	market, err := h.svc.Listings.GetMarket(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, market)
}

func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Listings.DeleteProduct(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) DeleteMarket(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Listings.DeleteMarket(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// boosts

type purchaseBoostRequest struct {
	PaymentToken string                `json:"token"`
	Boosts       []entity.BoostRequest `json:"boosts"`
}

func (h *Handler) PurchaseBoost(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	var req purchaseBoostRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	boosts, err := h.svc.Boosts.PurchaseBoost(r.Context(), service.PurchaseBoostInput{
		ListingID:      chi.URLParam(r, "id"),
		OwnerID:        userID,
		Boosts:         req.Boosts,
		PaymentToken:   req.PaymentToken,
		IdempotencyKey: r.Header.Get(idempotencyHeader),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"boostInfo": boosts})
}

func (h *Handler) SelectBoosted(w http.ResponseWriter, r *http.Request) {
	products, err := h.svc.Boosts.SelectBoosted(r.Context(), chi.URLParam(r, "slot"), queryInt(r, "limit"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"products": products})
}

// cart

type cartItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

func (h *Handler) ListCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	view, err := h.svc.Carts.List(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	var req cartItemRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	cart, err := h.svc.Carts.AddItem(r.Context(), userID, req.ProductID, req.Quantity)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

func (h *Handler) GetCartItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	item, err := h.svc.Carts.GetItem(r.Context(), userID, chi.URLParam(r, "itemId"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *Handler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	var req cartItemRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	cart, err := h.svc.Carts.UpdateItemQuantity(r.Context(), userID, req.ProductID, req.Quantity)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	cart, err := h.svc.Carts.RemoveItem(r.Context(), userID, chi.URLParam(r, "itemId"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

// orders

type buyProductRequest struct {
	ProductID    string `json:"productId"`
	Quantity     int    `json:"quantity"`
	PaymentToken string `json:"token"`
}

func (h *Handler) BuyProduct(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	var req buyProductRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	order, err := h.svc.Orders.BuyProduct(r.Context(), service.BuyProductInput{
		BuyerID:        userID,
		ProductID:      req.ProductID,
		Quantity:       req.Quantity,
		PaymentToken:   req.PaymentToken,
		IdempotencyKey: r.Header.Get(idempotencyHeader),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

func (h *Handler) PreviewOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	order, err := h.svc.Orders.PreviewOrder(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// ListOrders lists the caller's purchases, or sales with ?as=owner.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	page, size := queryInt(r, "page"), queryInt(r, "size")

	var (
		orders []*entity.Order
		err    error
	)
	switch r.URL.Query().Get("as") {
	case "", "buyer":
		orders, err = h.svc.Orders.ListBuyerOrders(r.Context(), userID, page, size)
	case "owner":
		orders, err = h.svc.Orders.ListOwnerOrders(r.Context(), userID, page, size)
	default:
		err = apperr.NewValidation("ListOrders", "as must be buyer or owner")
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"orders": orders})
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	order, err := h.svc.Orders.GetOrder(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// subscriptions

func (h *Handler) ConsumeSubscription(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	var item entity.UsageItem
	if err := decodeJSON(r, &item); err != nil {
		h.writeError(w, r, err)
		return
	}
	if item.ItemID == "" || item.ItemType == "" {
		h.writeError(w, r, apperr.NewValidation("ConsumeSubscription", "itemType and itemId are required"))
		return
	}
	if err := h.svc.Subscriptions.Consume(r.Context(), userID, chi.URLParam(r, "id"), item); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// search and reference data

func searchQuery(r *http.Request) service.SearchQuery {
	q := r.URL.Query()
	return service.SearchQuery{
		Query:        q.Get("q"),
		CategoryID:   q.Get("categoryId"),
		CategoryName: q.Get("categoryName"),
		SubCategory:  q.Get("subCategory"),
		CategoryType: q.Get("categoryType"),
		Page:         queryInt(r, "page"),
		Size:         queryInt(r, "size"),
	}
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.Search.Search(r.Context(), searchQuery(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"listings": result.Listings()})
}

// MyListings lists the caller's own products and markets with the same filters as Search.
func (h *Handler) MyListings(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	result, err := h.svc.Search.ListOwned(r.Context(), userID, searchQuery(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"listings": result.Listings()})
}

func (h *Handler) GetCategory(w http.ResponseWriter, r *http.Request) {
	category, err := h.svc.Catalog.CategoryByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, category)
}

func (h *Handler) ResyncCategory(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.Catalog.ResyncCategorySnapshots(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) ContactUs(w http.ResponseWriter, r *http.Request) {
	var msg service.ContactMessage
	if err := decodeJSON(r, &msg); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.svc.Notifier.SendContactMessage(r.Context(), msg); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"message": "Your message has been sent"})
}
