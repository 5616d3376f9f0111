package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"plant-disease-api/services"
	"plant-disease-api/store"

	"github.com/gin-gonic/gin"
)

type PredictionHandler struct {
	predictions *services.PredictionService
	recorder    *services.Recorder
}

func NewPredictionHandler(predictions *services.PredictionService, recorder *services.Recorder) *PredictionHandler {
	return &PredictionHandler{predictions: predictions, recorder: recorder}
}

type CreatePredictionRequest struct {
	Filename   string `json:"filename"`
	Prediction string `json:"prediction"`
}

func (h *PredictionHandler) List(c *gin.Context) {
	records, err := h.predictions.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load predictions"})
		return
	}
	c.JSON(http.StatusOK, records)
}

func (h *PredictionHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		predictionNotFound(c)
		return
	}

	rec, err := h.predictions.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, "failed to load prediction")
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *PredictionHandler) Create(c *gin.Context) {
	var req CreatePredictionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing filename or prediction"})
		return
	}

	rec, err := h.recorder.Record(c.Request.Context(), req.Filename, req.Prediction)
	if err != nil {
		if errors.Is(err, services.ErrMissingField) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing filename or prediction"})
			return
		}
		h.fail(c, err, "failed to save prediction")
		return
	}
	c.JSON(http.StatusCreated, rec)
}

func (h *PredictionHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		predictionNotFound(c)
		return
	}

	var patch services.PredictionPatch
	if err := c.ShouldBindJSON(&patch); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}

	rec, err := h.predictions.Update(c.Request.Context(), id, patch)
	if err != nil {
		h.fail(c, err, "failed to save prediction")
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *PredictionHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		predictionNotFound(c)
		return
	}

	if err := h.predictions.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, err, "failed to save predictions")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Prediction deleted"})
}

func (h *PredictionHandler) fail(c *gin.Context, err error, msg string) {
	if errors.Is(err, store.ErrNotFound) {
		predictionNotFound(c)
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}

func predictionNotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "Prediction not found"})
}

// parseID reads the :id path parameter. Anything but a positive integer
// cannot name a record.
func parseID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
