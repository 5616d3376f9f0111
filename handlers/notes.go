package handlers

import (
	"errors"
	"io"
	"net/http"

	"plant-disease-api/models"
	"plant-disease-api/store"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

var errMissingContent = errors.New("missing content")

type NoteHandler struct {
	notes store.Store[models.Note]
	log   logrus.FieldLogger
}

func NewNoteHandler(notes store.Store[models.Note], logger logrus.FieldLogger) *NoteHandler {
	return &NoteHandler{notes: notes, log: logger}
}

type NoteRequest struct {
	Content     *string `json:"content"`
	DiagnosisID *int    `json:"diagnosis_id"`
}

func (h *NoteHandler) List(c *gin.Context) {
	notes, err := h.notes.List(c.Request.Context())
	if err != nil {
		h.log.WithError(err).Error("list notes failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database query failed"})
		return
	}
	c.JSON(http.StatusOK, notes)
}

func (h *NoteHandler) Create(c *gin.Context) {
	var req NoteRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Content == nil || req.DiagnosisID == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing fields"})
		return
	}

	note, err := h.notes.Create(c.Request.Context(), models.Note{
		Content:     *req.Content,
		DiagnosisID: *req.DiagnosisID,
	})
	if err != nil {
		h.log.WithError(err).Error("create note failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save note"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Note created", "note": note})
}

func (h *NoteHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		noteNotFound(c)
		return
	}

	note, err := h.notes.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, note)
}

func (h *NoteHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		noteNotFound(c)
		return
	}

	var req NoteRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}

	note, err := h.notes.Update(c.Request.Context(), id, func(n *models.Note) error {
		if req.Content == nil {
			return errMissingContent
		}
		n.Content = *req.Content
		if req.DiagnosisID != nil {
			n.DiagnosisID = *req.DiagnosisID
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, errMissingContent) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing content"})
			return
		}
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Note updated", "note": note})
}

func (h *NoteHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		noteNotFound(c)
		return
	}

	if err := h.notes.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Note deleted"})
}

func (h *NoteHandler) fail(c *gin.Context, err error) {
	if errors.Is(err, store.ErrNotFound) {
		noteNotFound(c)
		return
	}
	h.log.WithError(err).Error("note store failure")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "database query failed"})
}

func noteNotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "Note not found"})
}
