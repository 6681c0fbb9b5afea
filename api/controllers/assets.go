package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/cliphive/cliphive-backend/api/responses"
	"github.com/cliphive/cliphive-backend/api/validators"
	"github.com/cliphive/cliphive-backend/internal/records"
	"github.com/cliphive/cliphive-backend/pkg/enums"
	pkgerrors "github.com/cliphive/cliphive-backend/pkg/errors"
	"github.com/cliphive/cliphive-backend/pkg/logger"
)

// AssetList returns the caller's committed assets, newest first.
func AssetList(repo *records.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, _, err := requireIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		assets, err := repo.ListByOwner(r.Context(), owner, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, assets)
	}
}

// AssetGet returns a single asset. Private assets resolve only for their
// owner; other callers see not found.
func AssetGet(repo *records.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, _, err := requireIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		assetID, err := uuid.Parse(chi.URLParam(r, "assetId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid asset id"))
			return
		}

		asset, err := repo.FindByID(r.Context(), assetID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if asset.Visibility == enums.AssetVisibilityPrivate && asset.OwnerID != owner {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "asset not found"))
			return
		}
		responses.WriteSuccess(w, asset)
	}
}
