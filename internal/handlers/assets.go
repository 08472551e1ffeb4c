// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"io"
	"mime"
	"net/http"

	"backdrop/internal/library"
	"backdrop/internal/models"
)

// maxUploadSize is the maximum accepted background file (200 MB).
const maxUploadSize = 200 << 20

// ListAssets returns registered assets, newest first.
func (a *API) ListAssets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items, err := a.assets.List(r.Context(), queryInt(q.Get("limit"), 50), queryInt(q.Get("offset"), 0))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if items == nil {
		items = []models.BackgroundAsset{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"assets": items})
}

// GetAsset returns one asset with its usage count.
func (a *API) GetAsset(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	asset, err := a.assets.FindByID(r.Context(), id)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, asset)
}

// RegisterAsset accepts a multipart upload and registers it as a reusable
// asset.
func (a *API) RegisterAsset(w http.ResponseWriter, r *http.Request) {
	if a.library == nil {
		writeError(w, http.StatusServiceUnavailable, "storage_unavailable", "object storage is not configured")
		return
	}
	up, ok := readUpload(w, r)
	if !ok {
		return
	}
	asset, err := a.library.Register(r.Context(), up, actor(r))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, asset)
}

// UploadBackground replaces a theme's background with an uploaded file.
func (a *API) UploadBackground(w http.ResponseWriter, r *http.Request) {
	if a.library == nil {
		writeError(w, http.StatusServiceUnavailable, "storage_unavailable", "object storage is not configured")
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	up, ok := readUpload(w, r)
	if !ok {
		return
	}
	t, err := a.library.ReplaceBackground(r.Context(), id, up, actor(r))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// ApplyAsset points a theme at a registered asset.
func (a *API) ApplyAsset(w http.ResponseWriter, r *http.Request) {
	if a.library == nil {
		writeError(w, http.StatusServiceUnavailable, "storage_unavailable", "object storage is not configured")
		return
	}
	themeID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	assetID, ok := pathID(w, r, "assetID")
	if !ok {
		return
	}
	t, err := a.library.Apply(r.Context(), themeID, assetID, actor(r))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// RevertBackground restores a theme's previous background.
func (a *API) RevertBackground(w http.ResponseWriter, r *http.Request) {
	if a.library == nil {
		writeError(w, http.StatusServiceUnavailable, "storage_unavailable", "object storage is not configured")
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	t, err := a.library.Revert(r.Context(), id, actor(r))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// readUpload reads the "file" part of a multipart request. The declared
// content type wins; it is sniffed when missing or generic.
func readUpload(w http.ResponseWriter, r *http.Request) (library.Upload, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize+1024)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "upload_too_large", "File too large. Maximum size is 200 MB.")
		return library.Upload{}, false
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing_file", "No file provided.")
		return library.Upload{}, false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable_file", "Failed to read file.")
		return library.Upload{}, false
	}

	contentType, _, _ := mime.ParseMediaType(header.Header.Get("Content-Type"))
	if contentType == "" || contentType == "application/octet-stream" {
		contentType, _, _ = mime.ParseMediaType(http.DetectContentType(data))
	}
	return library.Upload{Filename: header.Filename, ContentType: contentType, Data: data}, true
}
