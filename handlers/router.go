package handlers

import (
	"net/http"

	"plant-disease-api/config"
	"plant-disease-api/inference"
	"plant-disease-api/middleware"
	"plant-disease-api/models"
	"plant-disease-api/services"
	"plant-disease-api/store"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

type Dependencies struct {
	Predictions *services.PredictionService
	Notes       store.Store[models.Note]
	Classifier  inference.Classifier
	Events      *services.EventBus
	Server      config.ServerConfig
	CORS        config.CORSConfig
	Logger      logrus.FieldLogger
}

func NewRouter(d Dependencies) *gin.Engine {
	if d.Events == nil {
		d.Events = &services.EventBus{}
	}
	recorder := services.NewRecorder(d.Predictions)

	router := gin.New()
	router.Use(
		middleware.RequestLogger(d.Logger),
		middleware.Metrics(),
		gin.Recovery(),
		middleware.SetupCORS(d.CORS),
	)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "UP",
			"message": "Plant disease API is running",
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	predictions := NewPredictionHandler(d.Predictions, recorder)
	router.GET("/predictions", predictions.List)
	router.POST("/predictions", predictions.Create)
	router.GET("/predictions/:id", predictions.Get)
	router.PUT("/predictions/:id", predictions.Update)
	router.DELETE("/predictions/:id", predictions.Delete)

	classify := NewClassifyHandler(d.Classifier, recorder, d.Server.UploadDir, d.Server.MaxUploadMB, d.Logger)
	router.GET("/predict", classify.Describe)
	router.POST("/predict", classify.Upload)

	if d.Notes != nil {
		notes := NewNoteHandler(d.Notes, d.Logger)
		api := router.Group("/api/notes")
		for _, root := range []string{"", "/"} {
			api.GET(root, notes.List)
			api.POST(root, notes.Create)
		}
		api.GET("/:id", notes.Get)
		api.PUT("/:id", notes.Update)
		api.DELETE("/:id", notes.Delete)
	}

	router.GET("/ws/predictions", LiveWebSocket(d.Events, d.Logger))

	return router
}
