package http

import (
	"context"
	"net/http"

	"gastos/internal/core"
)

// The catalog endpoints are identical for categories, tags and accounts;
// these constructors bind them to one CatalogService method each.

func listHandler[T core.Named](list func(context.Context) ([]T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := list(r.Context())
		if err != nil {
			ErrorFor(r, err).Write(w)
			return
		}
		NewJSONResponse().Data(newNamedViews(items)).Write(w)
	}
}

func addHandler[T core.Named](add func(context.Context, string) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req NameRequest
		if err := decodeJSON(r, &req); err != nil {
			BadRequestError(err.Error()).Write(w)
			return
		}
		item, err := add(r.Context(), sanitizeInput(req.Name))
		if err != nil {
			ErrorFor(r, err).Write(w)
			return
		}
		NewJSONResponse().Status(http.StatusCreated).Data(newNamedView(item)).Write(w)
	}
}

func renameHandler[T core.Named](rename func(context.Context, string, string) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req NameRequest
		if err := decodeJSON(r, &req); err != nil {
			BadRequestError(err.Error()).Write(w)
			return
		}
		item, err := rename(r.Context(), r.PathValue("id"), sanitizeInput(req.Name))
		if err != nil {
			ErrorFor(r, err).Write(w)
			return
		}
		NewJSONResponse().Data(newNamedView(item)).Write(w)
	}
}

func deleteHandler(del func(context.Context, string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := del(r.Context(), r.PathValue("id")); err != nil {
			ErrorFor(r, err).Write(w)
			return
		}
		NoContent().Write(w)
	}
}
