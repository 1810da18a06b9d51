package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/middleware"
	"github.com/utafrali/storefront/pkg/pagination"
)

// ProductHandler serves the catalog.
type ProductHandler struct {
	service *service.ProductService
	logger  *slog.Logger
}

func NewProductHandler(svc *service.ProductService, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{service: svc, logger: logger}
}

// List handles GET /api/v1/products?q=&page=&per_page=
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	res, err := h.catalog(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, res)
}

func (h *ProductHandler) catalog(r *http.Request) (CatalogResponse, error) {
	p := pagination.FromRequest(r, h.service.PerPage())
	q := r.URL.Query().Get("q")

	win, err := h.service.Catalog(r.Context(), service.CatalogQuery{Query: q, Page: p.Page, PerPage: p.PerPage})
	if err != nil {
		return CatalogResponse{}, err
	}
	return newCatalogResponse(q, win), nil
}

func newCatalogResponse(q string, win pagination.Window[domain.Product]) CatalogResponse {
	items := make([]ProductResponse, 0, len(win.Items))
	for i := range win.Items {
		items = append(items, *newProductResponse(&win.Items[i]))
	}
	return CatalogResponse{
		Items:   items,
		Query:   q,
		Page:    win.Page,
		PerPage: win.PerPage,
		Total:   win.Total,
		HasNext: win.HasNext,
	}
}

// Get handles GET /api/v1/products/{id}
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	p, err := h.service.GetProduct(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, newProductResponse(p))
}

// Create handles POST /api/v1/products
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if err := decode(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	claims := middleware.ClaimsFromContext(r.Context())
	p, err := h.service.CreateProduct(r.Context(), claims.UserID, claims.Role, service.CreateProductInput{
		Title:        req.Title,
		Description:  req.Description,
		Price:        *req.Price,
		QuantityLeft: *req.QuantityLeft,
		Logo:         req.Logo,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, newProductResponse(p))
}
