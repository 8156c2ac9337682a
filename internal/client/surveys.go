package client

import (
	"context"
	"fmt"

	"github.com/fivetwenty-io/ces-client/pkg/ces"
)

// SurveysClient implements ces.SurveysClient.
type SurveysClient struct {
	session *ces.Session
}

// NewSurveysClient creates a new surveys client.
func NewSurveysClient(session *ces.Session) *SurveysClient {
	return &SurveysClient{session: session}
}

// ListSurveys implements ces.SurveysClient.ListSurveys.
func (c *SurveysClient) ListSurveys(opts *ces.ListOptions) (*ces.Collection[*ces.Survey], error) {
	return ces.List(c.session, ces.EndpointSurveys, ces.WrapSurvey, nil, opts)
}

// GetSurvey implements ces.SurveysClient.GetSurvey.
func (c *SurveysClient) GetSurvey(ctx context.Context, surveyID int64) (*ces.Survey, error) {
	survey, err := ces.Fetch(ctx, c.session, ces.EndpointSurvey, ces.WrapSurvey, nil, nil, surveyID)
	if err != nil {
		return nil, fmt.Errorf("getting survey %d: %w", surveyID, err)
	}

	return survey, nil
}
