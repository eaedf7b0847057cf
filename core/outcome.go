package core

import (
	"context"
	"time"
)

type (
	// OutcomeService an outcome service url of a consumer
	OutcomeService struct {
		ID           int64     `sql:"PRIMARY_KEY;AUTO_INCREMENT" json:"id,omitempty"`
		CreatedAt    time.Time `json:"created_at,omitempty"`
		UpdatedAt    time.Time `json:"updated_at,omitempty"`
		ServiceURL   string    `gorm:"column:lis_outcome_service_url" sql:"size:255;not null" json:"service_url,omitempty"`
		InstanceGUID *string   `sql:"size:255" json:"instance_guid,omitempty"`
		ConsumerKey  string    `sql:"size:32;not null" json:"consumer_key,omitempty"`
	}

	// GradedAssignment a graded launch waiting for score callbacks
	GradedAssignment struct {
		ID               int64     `sql:"PRIMARY_KEY;AUTO_INCREMENT" json:"id,omitempty"`
		CreatedAt        time.Time `json:"created_at,omitempty"`
		UserID           int64     `sql:"not null" json:"user_id,omitempty"`
		CourseKey        string    `sql:"size:255;not null" json:"course_key,omitempty"`
		UsageKey         string    `sql:"size:255;not null" json:"usage_key,omitempty"`
		OutcomeServiceID int64     `sql:"not null" json:"outcome_service_id,omitempty"`
		ResultSourcedID  string    `gorm:"column:lis_result_sourcedid" sql:"size:255;not null" json:"result_sourcedid,omitempty"`
	}

	// LaunchParams the lti launch fields this service cares about
	LaunchParams struct {
		ResultSourcedID      string `schema:"lis_result_sourcedid"`
		OutcomeServiceURL    string `schema:"lis_outcome_service_url"`
		ConsumerKey          string `schema:"oauth_consumer_key"`
		InstanceGUID         string `schema:"tool_consumer_instance_guid"`
		Roles                string `schema:"roles"`
		ContextID            string `schema:"context_id"`
		OAuthVersion         string `schema:"oauth_version"`
		OAuthSignature       string `schema:"oauth_signature"`
		OAuthSignatureMethod string `schema:"oauth_signature_method"`
		OAuthTimestamp       string `schema:"oauth_timestamp"`
		OAuthNonce           string `schema:"oauth_nonce"`

		// resolved from the launch url by the web layer
		CourseKey string `schema:"-"`
		UsageKey  string `schema:"-"`
	}

	// OutcomeStore records which launches expect score callbacks
	OutcomeStore interface {
		RegisterIfGraded(ctx context.Context, params *LaunchParams, user *User) error
		FindOutcomeService(ctx context.Context, id int64) (*OutcomeService, error)
		FindAssignments(ctx context.Context, userID int64, courseKey, usageKey string) ([]*GradedAssignment, error)
	}
)

// TableName gorm table name
func (OutcomeService) TableName() string {
	return "lti_outcome_services"
}

// TableName gorm table name
func (GradedAssignment) TableName() string {
	return "lti_graded_assignments"
}

// MissingRequired returns the name of the first required launch parameter
// that is empty
func (p *LaunchParams) MissingRequired() (string, bool) {
	required := []struct {
		name  string
		value string
	}{
		{"roles", p.Roles},
		{"context_id", p.ContextID},
		{"oauth_version", p.OAuthVersion},
		{"oauth_consumer_key", p.ConsumerKey},
		{"oauth_signature", p.OAuthSignature},
		{"oauth_signature_method", p.OAuthSignatureMethod},
		{"oauth_timestamp", p.OAuthTimestamp},
		{"oauth_nonce", p.OAuthNonce},
	}

	for _, r := range required {
		if r.value == "" {
			return r.name, true
		}
	}

	return "", false
}
