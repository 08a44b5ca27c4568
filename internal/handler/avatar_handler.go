package handler

import (
	"net/http"

	"chatrelay/internal/app/storage"
	"chatrelay/internal/pkg/errs"
	"chatrelay/internal/pkg/resp"
)

// HandleAvatarDownload redirects to a short-lived presigned URL for the avatar key in ?k.
func HandleAvatarDownload(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Storage == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrStorageUnavailable))
			return
		}

		key := r.URL.Query().Get("k")
		if _, err := storage.ValidateAvatarKey(key); err != nil {
			resp.RespondError(w, r, err)
			return
		}

		url, err := deps.Storage.PresignDownload(r.Context(), key, storage.PresignedURLDuration)
		if err != nil {
			resp.RespondError(w, r, err)
			return
		}

		http.Redirect(w, r, url, http.StatusFound)
	}
}
