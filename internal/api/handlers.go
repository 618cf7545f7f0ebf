package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/scribe/internal/apperr"
	"github.com/starford/scribe/internal/checksum"
	"github.com/starford/scribe/internal/dialog"
	"github.com/starford/scribe/internal/models"
	"github.com/starford/scribe/internal/workspace"
)

// Handler holds API route handlers.
type Handler struct {
	ws     *workspace.Workspace
	files  dialog.Lister
	notify dialog.Notifier
}

// NewHandler creates a new Handler. files lists directories for directory
// imports; notify receives import feedback for the user.
func NewHandler(ws *workspace.Workspace, files dialog.Lister, notify dialog.Notifier) *Handler {
	return &Handler{ws: ws, files: files, notify: notify}
}

func documentID(r *http.Request) models.DocumentID {
	return models.DocumentID(chi.URLParam(r, "id"))
}

func setETag(w http.ResponseWriter, d models.Document) {
	if d.HasBody() {
		w.Header().Set("ETag", checksum.ETag(d.Body))
	}
}

// ListDocuments handles GET /api/documents.
//
//	@Summary		List documents, optionally filtered by title
//	@Tags			documents
//	@Produce		json
//	@Param			q	query		string	false	"Case-sensitive title substring"
//	@Success		200	{object}	DocumentListResponse
//	@Security		BearerAuth
//	@Router			/documents [get]
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	docs := h.ws.Search(r.URL.Query().Get("q"))
	items := make([]DocumentResponse, 0, len(docs))
	for _, d := range docs {
		items = append(items, newDocumentResponse(d, false))
	}
	writeJSON(w, http.StatusOK, DocumentListResponse{Documents: items, Total: len(items)})
}

// CreateDocument handles POST /api/documents.
//
//	@Summary		Create an unnamed draft
//	@Tags			documents
//	@Produce		json
//	@Success		201	{object}	DocumentResponse
//	@Security		BearerAuth
//	@Router			/documents [post]
func (h *Handler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	id := h.ws.CreateDraft()
	doc, err := h.ws.Get(id)
	if err != nil {
		writeError(w, "create document", err)
		return
	}
	setETag(w, doc)
	writeJSON(w, http.StatusCreated, newDocumentResponse(doc, true))
}

// GetDocument handles GET /api/documents/{id}.
//
//	@Summary		Get a document, reading its body from disk if needed
//	@Tags			documents
//	@Produce		json
//	@Param			id	path		string	true	"Document id"
//	@Success		200	{object}	DocumentResponse
//	@Failure		404	{object}	errResponse
//	@Failure		502	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{id} [get]
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.ws.EnsureLoaded(r.Context(), documentID(r))
	if err != nil {
		writeError(w, "get document", err)
		return
	}
	setETag(w, doc)
	writeJSON(w, http.StatusOK, newDocumentResponse(doc, true))
}

// GetOutline handles GET /api/documents/{id}/outline.
//
//	@Summary		Get the frontmatter, headings, tags and wikilinks of a document
//	@Tags			documents
//	@Produce		json
//	@Param			id	path		string	true	"Document id"
//	@Success		200	{object}	OutlineResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{id}/outline [get]
func (h *Handler) GetOutline(w http.ResponseWriter, r *http.Request) {
	id := documentID(r)
	res, err := h.ws.Outline(r.Context(), id)
	if err != nil {
		writeError(w, "outline", err)
		return
	}
	doc, err := h.ws.Get(id)
	if err != nil {
		writeError(w, "outline", err)
		return
	}
	writeJSON(w, http.StatusOK, OutlineResponse{
		ID:           id,
		Title:        doc.Title,
		DerivedTitle: res.Title,
		Frontmatter:  res.Frontmatter,
		Headings:     res.Headings,
		Tags:         res.Tags,
		Links:        res.Links,
	})
}

// UpdateBody handles PUT /api/documents/{id}/body.
//
//	@Summary		Replace a document body and mark it unsaved
//	@Tags			documents
//	@Accept			json
//	@Produce		json
//	@Param			id			path		string				true	"Document id"
//	@Param			If-Match	header		string				false	"Checksum of the body being replaced"
//	@Param			body		body		UpdateBodyRequest	true	"New body"
//	@Success		200			{object}	DocumentResponse
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{id}/body [put]
func (h *Handler) UpdateBody(w http.ResponseWriter, r *http.Request) {
	var req UpdateBodyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	id := documentID(r)
	if err := h.ws.UpdateBodyIfMatch(id, *req.Body, r.Header.Get("If-Match")); err != nil {
		writeError(w, "update body", err)
		return
	}
	doc, err := h.ws.Get(id)
	if err != nil {
		writeError(w, "update body", err)
		return
	}
	setETag(w, doc)
	writeJSON(w, http.StatusOK, newDocumentResponse(doc, true))
}

// SaveDocument handles POST /api/documents/{id}/save.
//
//	@Summary		Write a document body to its file
//	@Tags			documents
//	@Produce		json
//	@Param			id	path		string	true	"Document id"
//	@Success		200	{object}	MutationResponse
//	@Failure		400	{object}	errResponse
//	@Failure		404	{object}	errResponse
//	@Failure		502	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{id}/save [post]
func (h *Handler) SaveDocument(w http.ResponseWriter, r *http.Request) {
	id := documentID(r)
	if err := h.ws.Save(r.Context(), id); err != nil {
		writeError(w, "save document", err)
		return
	}
	h.writeMutation(w, id, "")
}

// SaveActive handles POST /api/save.
//
//	@Summary		Save the active document
//	@Tags			documents
//	@Produce		json
//	@Success		200	{object}	MutationResponse
//	@Failure		400	{object}	errResponse
//	@Failure		502	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/save [post]
func (h *Handler) SaveActive(w http.ResponseWriter, r *http.Request) {
	if err := h.ws.SaveActive(r.Context()); err != nil {
		writeError(w, "save active", err)
		return
	}
	doc, ok := h.ws.Active()
	if !ok {
		writeJSON(w, http.StatusOK, MutationResponse{})
		return
	}
	h.writeMutation(w, doc.ID, "")
}

// RenameDocument handles POST /api/documents/{id}/rename.
//
//	@Summary		Name a draft or rename a document's file
//	@Tags			documents
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Document id"
//	@Param			body	body		RenameRequest	true	"New title"
//	@Success		200		{object}	MutationResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Failure		502		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{id}/rename [post]
func (h *Handler) RenameDocument(w http.ResponseWriter, r *http.Request) {
	var req RenameRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	id := documentID(r)

	var isNew bool
	if req.IsNew != nil {
		isNew = *req.IsNew
	} else {
		doc, err := h.ws.Get(id)
		if err != nil {
			writeError(w, "rename document", err)
			return
		}
		isNew = doc.IsNew
	}

	warning, err := persistenceWarning(h.ws.Rename(r.Context(), id, req.Title, isNew))
	if err != nil {
		writeError(w, "rename document", err)
		return
	}
	h.writeMutation(w, id, warning)
}

// DeleteDocument handles DELETE /api/documents/{id}.
//
//	@Summary		Delete a document and its file
//	@Tags			documents
//	@Param			id	path	string	true	"Document id"
//	@Success		204	"Document deleted"
//	@Success		200	{object}	MutationResponse	"Deleted, with an index warning"
//	@Failure		404	{object}	errResponse
//	@Failure		502	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{id} [delete]
func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	warning, err := persistenceWarning(h.ws.Delete(r.Context(), documentID(r)))
	if err != nil {
		writeError(w, "delete document", err)
		return
	}
	if warning != "" {
		writeJSON(w, http.StatusOK, MutationResponse{Warning: warning})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Import handles POST /api/import.
//
//	@Summary		Import Markdown files by path or from a directory
//	@Tags			documents
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ImportRequest	true	"Paths or directory"
//	@Success		200		{object}	ImportResponse
//	@Failure		400		{object}	errResponse
//	@Failure		502		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/import [post]
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	var req ImportRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	var d dialog.Dialog
	if req.Dir != "" {
		d = &dialog.Directory{Dir: req.Dir, Exclude: req.Exclude, Files: h.files, OnNotify: h.notify}
	} else {
		d = &dialog.Static{Paths: req.Paths, OnNotify: h.notify}
	}

	n, err := h.ws.ImportWithDialog(r.Context(), d)
	resp := ImportResponse{Added: n}
	for _, e := range unwrapJoined(err) {
		switch {
		case errors.Is(e, apperr.ErrInvalidState):
			resp.Skipped = append(resp.Skipped, e.Error())
		case errors.Is(e, apperr.ErrPersistence):
			resp.Warning, _ = persistenceWarning(e)
		default:
			writeError(w, "import", e)
			return
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListTabs handles GET /api/tabs.
//
//	@Summary		List open tabs
//	@Tags			tabs
//	@Produce		json
//	@Success		200	{object}	TabsResponse
//	@Security		BearerAuth
//	@Router			/tabs [get]
func (h *Handler) ListTabs(w http.ResponseWriter, _ *http.Request) {
	h.writeTabs(w)
}

// OpenTab handles POST /api/tabs/{id}.
//
//	@Summary		Load a document and open it in the active tab
//	@Tags			tabs
//	@Produce		json
//	@Param			id	path		string	true	"Document id"
//	@Success		200	{object}	TabsResponse
//	@Failure		404	{object}	errResponse
//	@Failure		502	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tabs/{id} [post]
func (h *Handler) OpenTab(w http.ResponseWriter, r *http.Request) {
	if _, err := h.ws.OpenDocument(r.Context(), documentID(r)); err != nil {
		writeError(w, "open tab", err)
		return
	}
	h.writeTabs(w)
}

// SelectTab handles PUT /api/tabs/{id}/active.
//
//	@Summary		Make an open tab active
//	@Tags			tabs
//	@Produce		json
//	@Param			id	path		string	true	"Document id"
//	@Success		200	{object}	TabsResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tabs/{id}/active [put]
func (h *Handler) SelectTab(w http.ResponseWriter, r *http.Request) {
	if err := h.ws.SelectTab(documentID(r)); err != nil {
		writeError(w, "select tab", err)
		return
	}
	h.writeTabs(w)
}

// CloseTab handles DELETE /api/tabs/{id}.
//
//	@Summary		Close a tab; the document is kept
//	@Tags			tabs
//	@Produce		json
//	@Param			id	path		string	true	"Document id"
//	@Success		200	{object}	TabsResponse
//	@Security		BearerAuth
//	@Router			/tabs/{id} [delete]
func (h *Handler) CloseTab(w http.ResponseWriter, r *http.Request) {
	h.ws.CloseTab(documentID(r))
	h.writeTabs(w)
}

// State handles GET /api/state.
//
//	@Summary		Get the whole workspace state
//	@Tags			workspace
//	@Produce		json
//	@Success		200	{object}	workspace.State
//	@Security		BearerAuth
//	@Router			/state [get]
func (h *Handler) State(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.ws.Snapshot())
}

func (h *Handler) writeTabs(w http.ResponseWriter) {
	resp := TabsResponse{Tabs: h.ws.Tabs()}
	for _, t := range resp.Tabs {
		if t.Active {
			resp.ActiveID = t.ID
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) writeMutation(w http.ResponseWriter, id models.DocumentID, warning string) {
	resp := MutationResponse{Warning: warning}
	if doc, err := h.ws.Get(id); err == nil {
		d := newDocumentResponse(doc, true)
		resp.Document = &d
		setETag(w, doc)
	}
	writeJSON(w, http.StatusOK, resp)
}

// unwrapJoined flattens an errors.Join result.
func unwrapJoined(err error) []error {
	if err == nil {
		return nil
	}
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		return j.Unwrap()
	}
	return []error{err}
}
