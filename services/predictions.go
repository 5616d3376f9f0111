package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"plant-disease-api/metrics"
	"plant-disease-api/models"
	"plant-disease-api/store"

	"github.com/sirupsen/logrus"
)

const (
	EventCreated = "prediction_created"
	EventUpdated = "prediction_updated"
	EventDeleted = "prediction_deleted"
)

type PredictionEvent struct {
	Type   string            `json:"type"`
	Record models.Prediction `json:"record"`
}

// PredictionPatch lists the fields of an update. Nil fields keep their value.
type PredictionPatch struct {
	Filename   *string `json:"filename"`
	Prediction *string `json:"prediction"`
}

func (p PredictionPatch) apply(rec *models.Prediction) {
	if p.Filename != nil {
		rec.Filename = *p.Filename
	}
	if p.Prediction != nil {
		rec.Prediction = *p.Prediction
	}
}

type PredictionService struct {
	store  store.Store[models.Prediction]
	events Publisher
	log    logrus.FieldLogger
	now    func() time.Time
}

func NewPredictionService(s store.Store[models.Prediction], events Publisher, logger logrus.FieldLogger) *PredictionService {
	return &PredictionService{
		store:  s,
		events: events,
		log:    logger,
		now:    time.Now,
	}
}

// WithClock replaces the clock used to stamp new predictions.
func (s *PredictionService) WithClock(now func() time.Time) *PredictionService {
	s.now = now
	return s
}

func (s *PredictionService) List(ctx context.Context) ([]models.Prediction, error) {
	records, err := s.store.List(ctx)
	if err != nil {
		return nil, s.failed("list", err)
	}
	return records, nil
}

func (s *PredictionService) Get(ctx context.Context, id int) (models.Prediction, error) {
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return models.Prediction{}, s.failed("get", err)
	}
	return rec, nil
}

func (s *PredictionService) Create(ctx context.Context, filename, label string) (models.Prediction, error) {
	rec := models.Prediction{Filename: filename, Prediction: label}
	rec.Stamp(s.now())

	created, err := s.store.Create(ctx, rec)
	if err != nil {
		return models.Prediction{}, s.failed("create", err)
	}

	metrics.PredictionsCreated.Inc()
	s.log.WithFields(logrus.Fields{"id": created.ID, "prediction": created.Prediction}).Info("prediction recorded")
	s.publish(ctx, EventCreated, created)
	return created, nil
}

func (s *PredictionService) Update(ctx context.Context, id int, patch PredictionPatch) (models.Prediction, error) {
	updated, err := s.store.Update(ctx, id, func(rec *models.Prediction) error {
		patch.apply(rec)
		return nil
	})
	if err != nil {
		return models.Prediction{}, s.failed("update", err)
	}

	metrics.PredictionsUpdated.Inc()
	s.publish(ctx, EventUpdated, updated)
	return updated, nil
}

func (s *PredictionService) Delete(ctx context.Context, id int) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return s.failed("delete", err)
	}

	metrics.PredictionsDeleted.Inc()
	s.publish(ctx, EventDeleted, models.Prediction{ID: id})
	return nil
}

func (s *PredictionService) failed(op string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return err
	}
	metrics.StoreFailures.WithLabelValues(op).Inc()
	s.log.WithError(err).WithField("op", op).Error("prediction store failure")
	return fmt.Errorf("%s prediction: %w", op, err)
}

func (s *PredictionService) publish(ctx context.Context, kind string, rec models.Prediction) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, PredictionsChannel, PredictionEvent{Type: kind, Record: rec}); err != nil {
		s.log.WithError(err).WithField("event", kind).Warn("publish prediction event failed")
		return
	}
	metrics.EventsPublished.Inc()
}
