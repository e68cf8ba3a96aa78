package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"gearshed/internal/domain"
	"gearshed/internal/redis"
	"gearshed/internal/repository"
)

var ErrAnomalyResultNotFound = errors.New("anomaly result not found")

// AnomalyService asks the external scoring service whether a borrow
// request looks unusual and records the verdict. Scoring is best
// effort: a dead service never fails the borrow flow.
type AnomalyService struct {
	borrowRepo  *repository.BorrowRepository
	anomalyRepo *repository.AnomalyRepository
	broker      *redis.Broker
	client      *http.Client
	baseURL     string
	location    *time.Location
}

func NewAnomalyService(
	borrowRepo *repository.BorrowRepository,
	anomalyRepo *repository.AnomalyRepository,
	broker *redis.Broker,
	baseURL string,
	timezone string,
) *AnomalyService {
	location, err := time.LoadLocation(timezone)
	if err != nil {
		log.Printf("load timezone %q: %v, falling back to UTC", timezone, err)
		location = time.UTC
	}
	return &AnomalyService{
		borrowRepo:  borrowRepo,
		anomalyRepo: anomalyRepo,
		broker:      broker,
		client:      &http.Client{Timeout: 10 * time.Second},
		baseURL:     baseURL,
		location:    location,
	}
}

type anomalyRequestLine struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

type anomalyRequest struct {
	BorrowRequestID  string               `json:"borrowRequestId"`
	RequestedBy      string               `json:"requestedBy"`
	RequestedAt      string               `json:"requestedAt"`
	ExpectedReturnAt string               `json:"expectedReturnAt"`
	Location         string               `json:"location"`
	Purpose          string               `json:"purpose"`
	Equipments       []anomalyRequestLine `json:"equipments"`
}

type anomalyResponse struct {
	Score     float64 `json:"score"`
	IsAnomaly bool    `json:"isAnomaly"`
}

// Score posts the request to the scoring service and stores the result.
// Meant to run in its own goroutine; failures are logged, not returned.
func (s *AnomalyService) Score(ctx context.Context, requestID uuid.UUID) {
	if s.baseURL == "" {
		return
	}
	if err := s.score(ctx, requestID); err != nil {
		log.Printf("anomaly scoring for %s: %v", requestID, err)
	}
}

func (s *AnomalyService) score(ctx context.Context, requestID uuid.UUID) error {
	view, err := s.borrowRepo.FindTransaction(requestID)
	if err != nil {
		return err
	}

	payload := anomalyRequest{
		BorrowRequestID:  view.ID.String(),
		RequestedBy:      view.RequestedBy.String(),
		RequestedAt:      view.CreatedAt.In(s.location).Format(time.RFC3339),
		ExpectedReturnAt: view.ExpectedReturnAt.In(s.location).Format(time.RFC3339),
		Location:         view.Location,
		Purpose:          view.Purpose,
	}
	for _, item := range view.Items {
		payload.Equipments = append(payload.Equipments, anomalyRequestLine{
			Name:     item.Name,
			Quantity: item.Quantity,
		})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/anomalies", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("scoring service returned %d", resp.StatusCode)
	}

	var verdict anomalyResponse
	if err := json.NewDecoder(resp.Body).Decode(&verdict); err != nil {
		return err
	}

	result := &domain.AnomalyResult{
		BorrowRequestID: requestID,
		Score:           verdict.Score,
		IsAnomaly:       verdict.IsAnomaly,
	}
	if err := s.anomalyRepo.Upsert(result); err != nil {
		return err
	}

	if err := s.broker.Publish(ctx, EventEquipmentAnomaly, map[string]string{"id": requestID.String()}); err != nil {
		log.Printf("publish %s: %v", EventEquipmentAnomaly, err)
	}
	return nil
}

// MarkFalsePositive lets a manager overrule a verdict.
func (s *AnomalyService) MarkFalsePositive(ctx context.Context, requestID uuid.UUID, falsePositive bool) error {
	err := s.anomalyRepo.MarkFalsePositive(requestID, falsePositive)
	if err != nil {
		if errors.Is(err, repository.ErrAnomalyResultNotFound) {
			return ErrAnomalyResultNotFound
		}
		return err
	}
	return nil
}
