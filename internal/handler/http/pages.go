package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/service"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/middleware"
)

// Page routes served by the dispatcher.
const (
	RouteIndex        = "/"
	RouteLogin        = "/login"
	RouteRegistration = "/registration"
	RouteProfile      = "/profile"
)

// Page is the data a client needs to draw one screen.
type Page struct {
	Route string `json:"route"`
	Data  any    `json:"data"`
}

// FormField describes one input of a form.
type FormField struct {
	Name      string `json:"name"`
	Label     string `json:"label"`
	Type      string `json:"type"`
	Required  bool   `json:"required"`
	MinLength int    `json:"min_length,omitempty"`
	Min       *int   `json:"min,omitempty"`
}

// Form describes a form and the endpoint it submits to.
type Form struct {
	Action string      `json:"action"`
	Method string      `json:"method"`
	Fields []FormField `json:"fields"`
}

var zero = 0

var (
	loginForm = Form{Action: "/api/v1/auth/login", Method: http.MethodPost, Fields: []FormField{
		{Name: "email", Label: "Эл. почта", Type: "email", Required: true, MinLength: 5},
		{Name: "password", Label: "Пароль", Type: "password", Required: true},
	}}
	registrationForm = Form{Action: "/api/v1/auth/register", Method: http.MethodPost, Fields: []FormField{
		{Name: "email", Label: "Эл. почта", Type: "email", Required: true, MinLength: 5},
		{Name: "password", Label: "Пароль", Type: "password", Required: true, MinLength: service.MinPasswordLength},
		{Name: "first_name", Label: "Имя", Type: "text", Required: true},
		{Name: "last_name", Label: "Фамилия", Type: "text"},
	}}
	productForm = Form{Action: "/api/v1/products", Method: http.MethodPost, Fields: []FormField{
		{Name: "title", Label: "Заголовок", Type: "text", Required: true},
		{Name: "description", Label: "Описание", Type: "textarea"},
		{Name: "price", Label: "Цена", Type: "number", Required: true, Min: &zero},
		{Name: "quantity_left", Label: "Кол-во на складе", Type: "number", Required: true, Min: &zero},
		{Name: "logo", Label: "Фото (ссылка)", Type: "url"},
	}}
)

// IndexPage is the storefront's main screen.
type IndexPage struct {
	Catalog   CatalogResponse `json:"catalog"`
	CartCount *int            `json:"cart_count,omitempty"`
	User      *domain.User    `json:"user,omitempty"`
}

// AuthPage is the login or registration screen.
type AuthPage struct {
	Form Form              `json:"form"`
	Link map[string]string `json:"links"`
}

// ProfilePage shows the account, its orders and, for permitted roles, the
// product creation form.
type ProfilePage struct {
	User        *domain.User    `json:"user"`
	Orders      []OrderResponse `json:"orders"`
	ProductForm *Form           `json:"product_form,omitempty"`
}

type pageFunc func(r *http.Request) (any, error)

// redirect sends the client to another page instead of the requested one.
type redirect struct {
	status  int
	code    string
	message string
	to      string
}

func (e *redirect) Error() string {
	return e.message + ": go to " + e.to
}

// PageHandler resolves page paths to their builders.
type PageHandler struct {
	users    *service.UserService
	products *ProductHandler
	carts    *service.CartService
	orders   *service.OrderService
	logger   *slog.Logger
	routes   map[string]pageFunc
}

func NewPageHandler(
	users *service.UserService,
	products *ProductHandler,
	carts *service.CartService,
	orders *service.OrderService,
	logger *slog.Logger,
) *PageHandler {
	h := &PageHandler{users: users, products: products, carts: carts, orders: orders, logger: logger}
	h.routes = map[string]pageFunc{
		RouteIndex:        h.index,
		RouteLogin:        h.authForm(loginForm, map[string]string{"registration": RouteRegistration}),
		RouteRegistration: h.authForm(registrationForm, map[string]string{"login": RouteLogin}),
		RouteProfile:      h.profile,
	}
	return h
}

// Routes lists the page paths the dispatcher knows.
func (h *PageHandler) Routes() []string {
	return []string{RouteIndex, RouteLogin, RouteRegistration, RouteProfile}
}

// Resolve handles GET /api/v1/pages/*
func (h *PageHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	route := normalizeRoute(chi.URLParam(r, "*"))
	build, ok := h.routes[route]
	if !ok {
		httputil.WriteError(w, r, apperrors.NotFound("page", route), h.logger)
		return
	}

	data, err := build(r)
	if err != nil {
		var rd *redirect
		if errors.As(err, &rd) {
			httputil.WriteRedirect(w, rd.status, rd.code, rd.message, rd.to)
			return
		}
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, Page{Route: route, Data: data})
}

func normalizeRoute(p string) string {
	p = strings.Trim(p, "/")
	if p == "" {
		return RouteIndex
	}
	return "/" + p
}

func (h *PageHandler) index(r *http.Request) (any, error) {
	catalog, err := h.products.catalog(r)
	if err != nil {
		return nil, err
	}
	page := IndexPage{Catalog: catalog}

	if userID := middleware.UserIDFromContext(r.Context()); userID != "" {
		n, err := h.carts.Count(r.Context(), userID)
		if err != nil {
			return nil, err
		}
		page.CartCount = &n

		user, err := h.users.GetProfile(r.Context(), userID)
		if err != nil {
			return nil, err
		}
		page.User = user
	}
	return page, nil
}

func (h *PageHandler) authForm(form Form, links map[string]string) pageFunc {
	return func(r *http.Request) (any, error) {
		if middleware.ClaimsFromContext(r.Context()) != nil {
			return nil, &redirect{http.StatusConflict, "ALREADY_AUTHENTICATED", "already signed in", RouteIndex}
		}
		return AuthPage{Form: form, Link: links}, nil
	}
}

func (h *PageHandler) profile(r *http.Request) (any, error) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		return nil, &redirect{http.StatusUnauthorized, "UNAUTHORIZED", "sign in to view your profile", RouteLogin}
	}

	user, err := h.users.GetProfile(r.Context(), claims.UserID)
	if err != nil {
		return nil, err
	}
	orders, err := h.orders.History(r.Context(), claims.UserID)
	if err != nil {
		return nil, err
	}

	page := ProfilePage{User: user, Orders: newOrderResponses(orders)}
	if domain.CanCreateProducts(user.Role) {
		f := productForm
		page.ProductForm = &f
	}
	return page, nil
}
