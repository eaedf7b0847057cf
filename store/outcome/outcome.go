package outcome

import (
	"context"
	"fmt"

	"ltiprovider/core"
	lstore "ltiprovider/store"

	"github.com/fox-one/pkg/logger"
	"github.com/fox-one/pkg/store"
	"github.com/fox-one/pkg/store/db"
	"github.com/jinzhu/gorm"
	"github.com/sirupsen/logrus"
)

type outcomeStore struct {
	db *db.DB
}

// New new outcome store
func New(db *db.DB) core.OutcomeStore {
	return &outcomeStore{
		db: db,
	}
}

func init() {
	db.RegisterMigrate(func(db *db.DB) error {
		tx := db.Update().Model(core.OutcomeService{})

		if err := tx.AutoMigrate(core.OutcomeService{}).Error; err != nil {
			return err
		}

		if err := tx.AddUniqueIndex("idx_lti_outcome_services_url_key", "lis_outcome_service_url", "consumer_key").Error; err != nil {
			return err
		}

		if err := tx.AddIndex("idx_lti_outcome_services_key", "consumer_key").Error; err != nil {
			return err
		}

		return nil
	})

	db.RegisterMigrate(func(db *db.DB) error {
		tx := db.Update().Model(core.GradedAssignment{})

		if err := tx.AutoMigrate(core.GradedAssignment{}).Error; err != nil {
			return err
		}

		if err := tx.AddUniqueIndex("idx_lti_graded_assignments_launch", "user_id", "course_key", "usage_key", "outcome_service_id").Error; err != nil {
			return err
		}

		if err := tx.AddUniqueIndex("idx_lti_graded_assignments_sourcedid", "outcome_service_id", "lis_result_sourcedid").Error; err != nil {
			return err
		}

		if err := tx.AddIndex("idx_lti_graded_assignments_usage", "usage_key").Error; err != nil {
			return err
		}

		return nil
	})
}

// RegisterIfGraded records that the launch expects score callbacks. Launches
// without lis_result_sourcedid are not graded and leave no trace. Calling it
// again with the same parameters changes nothing.
func (s *outcomeStore) RegisterIfGraded(ctx context.Context, params *core.LaunchParams, user *core.User) error {
	if params.ResultSourcedID == "" {
		return nil
	}

	log := logger.FromContext(ctx).WithFields(logrus.Fields{
		"lis_result_sourcedid":        params.ResultSourcedID,
		"oauth_consumer_key":          params.ConsumerKey,
		"tool_consumer_instance_guid": params.InstanceGUID,
		"course_key":                  params.CourseKey,
		"usage_key":                   params.UsageKey,
		"user_id":                     user.ID,
	})

	if params.OutcomeServiceURL == "" {
		log.Warnln("Outcome Service: lis_outcome_service_url parameter missing from scored assignment; we will be unable to return a score")
		return nil
	}

	if params.ConsumerKey == "" {
		panic("oauth_consumer_key is not an optional parameter")
	}

	if params.CourseKey == "" || params.UsageKey == "" {
		panic(fmt.Sprintf("usage_key (%q) and course_key (%q) should not be empty", params.UsageKey, params.CourseKey))
	}

	service, err := s.findOrCreateOutcomeService(ctx, params.OutcomeServiceURL, params.ConsumerKey)
	if err != nil {
		log.WithError(err).Errorln("findOrCreateOutcomeService")
		return err
	}

	// an earlier launch may have registered the service before the consumer
	// sent its instance guid
	if guid := params.InstanceGUID; guid != "" && service.InstanceGUID == nil {
		if err := s.backfillInstanceGUID(ctx, service, guid); err != nil {
			log.WithError(err).Errorln("backfillInstanceGUID")
			return err
		}
	}

	assignment := &core.GradedAssignment{
		UserID:           user.ID,
		CourseKey:        params.CourseKey,
		UsageKey:         params.UsageKey,
		OutcomeServiceID: service.ID,
		ResultSourcedID:  params.ResultSourcedID,
	}

	if err := s.createAssignmentIfNotExist(ctx, assignment); err != nil {
		log.WithError(err).Errorln("createAssignmentIfNotExist")
		return err
	}

	return nil
}

func (s *outcomeStore) FindOutcomeService(ctx context.Context, id int64) (*core.OutcomeService, error) {
	var service core.OutcomeService
	if err := s.db.View().Where("id = ?", id).First(&service).Error; err != nil {
		return nil, err
	}

	return &service, nil
}

func (s *outcomeStore) FindAssignments(ctx context.Context, userID int64, courseKey, usageKey string) ([]*core.GradedAssignment, error) {
	var assignments []*core.GradedAssignment
	if err := s.db.View().
		Where("user_id = ? AND course_key = ? AND usage_key = ?", userID, courseKey, usageKey).
		Order("id").
		Find(&assignments).Error; err != nil {
		return nil, err
	}

	return assignments, nil
}

// findOrCreateOutcomeService inserts the service unless the unique index on
// (url, consumer key) already holds it
func (s *outcomeStore) findOrCreateOutcomeService(ctx context.Context, serviceURL, consumerKey string) (*core.OutcomeService, error) {
	find := func() (*core.OutcomeService, error) {
		var service core.OutcomeService
		err := s.db.View().
			Where("lis_outcome_service_url = ? AND consumer_key = ?", serviceURL, consumerKey).
			First(&service).Error
		return &service, err
	}

	service, err := find()
	if err == nil {
		return service, nil
	} else if !store.IsErrNotFound(err) {
		return nil, err
	}

	service = &core.OutcomeService{
		ServiceURL:  serviceURL,
		ConsumerKey: consumerKey,
	}

	if err := s.db.Update().Create(service).Error; err != nil {
		if !lstore.IsErrUniqueViolation(err) {
			return nil, err
		}

		// lost the race against a concurrent launch
		return find()
	}

	return service, nil
}

func (s *outcomeStore) backfillInstanceGUID(ctx context.Context, service *core.OutcomeService, guid string) error {
	tx := s.db.Update().Model(&core.OutcomeService{}).
		Where("id = ? AND instance_guid IS NULL", service.ID).
		Updates(map[string]interface{}{
			"instance_guid": guid,
		})
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected == 0 {
		// filled by a concurrent launch
		current, err := s.FindOutcomeService(ctx, service.ID)
		if err != nil {
			return err
		}

		service.InstanceGUID = current.InstanceGUID
		return nil
	}

	service.InstanceGUID = &guid
	return nil
}

func (s *outcomeStore) createAssignmentIfNotExist(ctx context.Context, assignment *core.GradedAssignment) error {
	if exist, err := s.findAssignmentOfLaunch(ctx, assignment); err == nil {
		*assignment = *exist
		return nil
	} else if !gorm.IsRecordNotFoundError(err) {
		return err
	}

	err := s.db.Update().Create(assignment).Error
	if err == nil || !lstore.IsErrUniqueViolation(err) {
		return err
	}

	// a concurrent launch inserted the same row, or the sourcedid belongs to
	// another launch of this outcome service
	exist, findErr := s.findAssignmentOfLaunch(ctx, assignment)
	if findErr == nil {
		logger.FromContext(ctx).Debugln("graded assignment already registered")
		*assignment = *exist
		return nil
	} else if !gorm.IsRecordNotFoundError(findErr) {
		return findErr
	}

	logger.FromContext(ctx).WithError(err).WithFields(logrus.Fields{
		"user_id":              assignment.UserID,
		"course_key":           assignment.CourseKey,
		"usage_key":            assignment.UsageKey,
		"outcome_service_id":   assignment.OutcomeServiceID,
		"lis_result_sourcedid": assignment.ResultSourcedID,
	}).Warnln("Outcome Service: lis_result_sourcedid already registered for another launch, scores of this launch will not be sent")

	return nil
}

func (s *outcomeStore) findAssignmentOfLaunch(ctx context.Context, assignment *core.GradedAssignment) (*core.GradedAssignment, error) {
	var exist core.GradedAssignment
	if err := s.db.View().
		Where("user_id = ? AND course_key = ? AND usage_key = ? AND outcome_service_id = ?",
			assignment.UserID, assignment.CourseKey, assignment.UsageKey, assignment.OutcomeServiceID).
		First(&exist).Error; err != nil {
		return nil, err
	}

	return &exist, nil
}
