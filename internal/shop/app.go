package shop

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"MiniShop/internal/cart"
	"MiniShop/internal/catalog"
	"MiniShop/internal/checkout"
	"MiniShop/internal/order"
	"MiniShop/pkg/kit"
)

const apiPrefix = "/api"

type Checkouter interface {
	Checkout(ctx context.Context) (checkout.Receipt, error)
}

type Server struct {
	Catalog  catalog.Store
	Cart     *cart.Cart
	Checkout Checkouter
	Orders   order.Store
	Log      *zap.Logger
}

// Routes mounts the API. checkoutMW wraps only POST /api/checkout.
func (s *Server) Routes(checkoutMW ...func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", s.ready)

	r.Route(apiPrefix, func(api chi.Router) {
		api.Route("/products", func(pr chi.Router) {
			pr.Get("/", s.listProducts)
			pr.Post("/", s.createProduct)
			pr.Get("/{id}", s.getProduct)
			pr.Patch("/{id}", s.updateProduct)
			pr.Delete("/{id}", s.deleteProduct)
		})

		api.Get("/cart", s.readCart)
		api.Post("/cart/add", s.addToCart)
		api.Patch("/cart/item", s.setCartQuantity)
		api.Delete("/cart/item/{product_id}", s.removeFromCart)

		api.With(checkoutMW...).Post("/checkout", s.checkout)

		api.Get("/orders", s.listOrders)
	})

	return r
}

func (s *Server) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 1*time.Second)
	defer cancel()

	for name, ping := range map[string]func(context.Context) error{
		"catalog": s.Catalog.Ping,
		"orders":  s.Orders.Ping,
	} {
		if err := ping(ctx); err != nil {
			s.log().Warn("readyz failed", zap.String("dependency", name), zap.Error(err))
			kit.WriteError(w, r, http.StatusServiceUnavailable, "not ready", map[string]any{"dependency": name})
			return
		}
	}
	w.WriteHeader(http.StatusOK)
}

type productReq struct {
	Name  *string          `json:"name"`
	Price *decimal.Decimal `json:"price"`
}

func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := s.Catalog.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, products)
}

func (s *Server) createProduct(w http.ResponseWriter, r *http.Request) {
	var req productReq
	if err := kit.DecodeJSON(w, r, &req); err != nil {
		s.writeBadJSON(w, r, err)
		return
	}
	if req.Name == nil || req.Price == nil {
		kit.WriteError(w, r, http.StatusBadRequest, "name and price are required", nil)
		return
	}

	p, err := s.Catalog.Create(r.Context(), *req.Name, *req.Price)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("%s/products/%d", apiPrefix, p.ID))
	kit.WriteJSON(w, http.StatusCreated, p)
}

func (s *Server) getProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	p, err := s.Catalog.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, p)
}

func (s *Server) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	// An empty body is an empty patch.
	var req productReq
	if err := kit.DecodeJSON(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		s.writeBadJSON(w, r, err)
		return
	}

	p, err := s.Catalog.Update(r.Context(), id, catalog.Patch{Name: req.Name, Price: req.Price})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, p)
}

func (s *Server) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := s.Catalog.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type cartLineReq struct {
	ProductID int64 `json:"product_id"`
	Qty       int   `json:"qty"`
}

func (s *Server) readCart(w http.ResponseWriter, r *http.Request) {
	s.writeCart(w, r, http.StatusOK)
}

func (s *Server) addToCart(w http.ResponseWriter, r *http.Request) {
	var req cartLineReq
	if err := kit.DecodeJSON(w, r, &req); err != nil {
		s.writeBadJSON(w, r, err)
		return
	}

	if err := s.Cart.Add(r.Context(), req.ProductID, req.Qty); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeCart(w, r, http.StatusCreated)
}

func (s *Server) setCartQuantity(w http.ResponseWriter, r *http.Request) {
	var req cartLineReq
	if err := kit.DecodeJSON(w, r, &req); err != nil {
		s.writeBadJSON(w, r, err)
		return
	}

	if err := s.Cart.SetQuantity(r.Context(), req.ProductID, req.Qty); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeCart(w, r, http.StatusOK)
}

func (s *Server) removeFromCart(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "product_id")
	if !ok {
		return
	}

	if err := s.Cart.Remove(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeCart(w, r, http.StatusOK)
}

func (s *Server) writeCart(w http.ResponseWriter, r *http.Request, status int) {
	snap, err := s.Cart.Read(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	kit.WriteJSON(w, status, snap)
}

func (s *Server) checkout(w http.ResponseWriter, r *http.Request) {
	receipt, err := s.Checkout.Checkout(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	kit.WriteJSON(w, http.StatusCreated, receipt)
}

func (s *Server) listOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := s.Orders.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, orders)
}

func pathID(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	raw := chi.URLParam(r, param)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		kit.WriteError(w, r, http.StatusBadRequest, "invalid "+param, map[string]any{param: raw})
		return 0, false
	}
	return id, true
}

func (s *Server) log() *zap.Logger {
	if s.Log != nil {
		return s.Log
	}
	return zap.NewNop()
}
