package handlers

import (
	"net/http"

	"productboards-backend/internal/models"
	"productboards-backend/internal/services"
	"productboards-backend/pkg/httputil"
)

// ProductHandlers serves products, their retailer links and price history.
type ProductHandlers struct {
	products *services.ProductService
}

func NewProductHandlers(ps *services.ProductService) *ProductHandlers {
	return &ProductHandlers{products: ps}
}

// ListBoardProducts handles GET /v1/boards/{boardID}/products.
func (h *ProductHandlers) ListBoardProducts(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	boardID, ok := uuidParam(w, r, "boardID")
	if !ok {
		return
	}
	products, err := h.products.ListByBoard(r.Context(), userID, boardID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, products)
}

// CreateProduct handles POST /v1/boards/{boardID}/products.
func (h *ProductHandlers) CreateProduct(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	boardID, ok := uuidParam(w, r, "boardID")
	if !ok {
		return
	}
	var req models.CreateProductRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	product, err := h.products.Create(r.Context(), userID, boardID, req)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, product)
}

// CreateProductFromURL handles POST /v1/boards/{boardID}/products/from-url.
func (h *ProductHandlers) CreateProductFromURL(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	boardID, ok := uuidParam(w, r, "boardID")
	if !ok {
		return
	}
	var req models.CreateProductFromURLRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	product, err := h.products.CreateFromURL(r.Context(), userID, boardID, req.URL)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, product)
}

// GetProduct handles GET /v1/products/{productID}.
func (h *ProductHandlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	productID, ok := uuidParam(w, r, "productID")
	if !ok {
		return
	}
	product, err := h.products.Get(r.Context(), userID, productID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, product)
}

// UpdateProduct handles PATCH /v1/products/{productID}.
func (h *ProductHandlers) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	productID, ok := uuidParam(w, r, "productID")
	if !ok {
		return
	}
	var req models.UpdateProductRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	product, err := h.products.Update(r.Context(), userID, productID, req)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, product)
}

// MoveProduct handles POST /v1/products/{productID}/move.
func (h *ProductHandlers) MoveProduct(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	productID, ok := uuidParam(w, r, "productID")
	if !ok {
		return
	}
	var req models.MoveProductRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	product, err := h.products.Move(r.Context(), userID, productID, req.BoardID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, product)
}

// DeleteProduct handles DELETE /v1/products/{productID}.
func (h *ProductHandlers) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	productID, ok := uuidParam(w, r, "productID")
	if !ok {
		return
	}
	if err := h.products.Delete(r.Context(), userID, productID); err != nil {
		respondServiceError(w, r, err)
		return
	}
	httputil.RespondNoContent(w)
}

// AddLink handles POST /v1/products/{productID}/links.
func (h *ProductHandlers) AddLink(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	productID, ok := uuidParam(w, r, "productID")
	if !ok {
		return
	}
	var req models.CreateProductLinkRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	link, err := h.products.AddLink(r.Context(), userID, productID, req)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, link)
}

// GenerateNote handles POST /v1/products/{productID}/ai-note.
func (h *ProductHandlers) GenerateNote(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	productID, ok := uuidParam(w, r, "productID")
	if !ok {
		return
	}
	note, err := h.products.GenerateNote(r.Context(), userID, productID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, models.ProductNoteResponse{Note: note})
}

// ListPrices handles GET /v1/links/{linkID}/prices.
func (h *ProductHandlers) ListPrices(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	linkID, ok := uuidParam(w, r, "linkID")
	if !ok {
		return
	}
	history, err := h.products.PriceHistory(r.Context(), userID, linkID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, history)
}

// RecordPrice handles POST /v1/links/{linkID}/prices.
func (h *ProductHandlers) RecordPrice(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	linkID, ok := uuidParam(w, r, "linkID")
	if !ok {
		return
	}
	var req models.RecordPriceRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	entry, err := h.products.RecordPrice(r.Context(), userID, linkID, req.Price, req.Currency)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, entry)
}
