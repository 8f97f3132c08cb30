package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	custommiddleware "github.com/danielkolev/offersrv-sub002/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса предложений.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Route("/api/user", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.authMiddleware.Middleware)

		r.Route("/api/offer", func(r chi.Router) {
			r.Get("/", h.GetOffer)
			r.Get("/events", h.Events)

			r.Get("/draft", h.CheckDraft)
			r.Post("/draft/resume", h.ResumeDraft)

			r.Patch("/client", h.UpdateClient)
			r.Post("/client/import/{clientID}", h.ImportClient)
			r.Patch("/details", h.UpdateDetails)

			r.Post("/products", h.AddProduct)
			r.Put("/products/order", h.ReorderProducts)
			r.Post("/products/import/{productID}", h.ImportProduct)
			r.Patch("/products/{lineID}", h.UpdateProduct)
			r.Delete("/products/{lineID}", h.RemoveProduct)

			r.Post("/save", h.SaveOffer)
			r.Post("/finalize", h.FinalizeOffer)
			r.Post("/new", h.NewOffer)
		})

		r.Get("/api/offers", h.ListOffers)
		r.Get("/api/offers/{offerID}", h.GetSavedOffer)
		r.Delete("/api/offers/{offerID}", h.DeleteOffer)

		r.Get("/api/clients", h.ListClients)
		r.Post("/api/clients/from-offer", h.SaveClientFromOffer)

		r.Get("/api/products", h.ListProducts)
		r.Post("/api/products/from-offer/{lineID}", h.SaveProductFromOffer)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
