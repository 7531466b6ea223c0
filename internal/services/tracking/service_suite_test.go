package tracking

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/qrmint/scantrack/internal/integrations/geo/noop"
	"github.com/qrmint/scantrack/internal/models"
)

type repoMock struct {
	mock.Mock
}

func (m *repoMock) CreateTracking(ctx context.Context, rec *models.TrackingRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *repoMock) GetTracking(ctx context.Context, id string) (*models.TrackingRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TrackingRecord), args.Error(1)
}

func (m *repoMock) AppendScan(ctx context.Context, id string, scan *models.ScanEvent) (*models.UsageLimitConfig, error) {
	args := m.Called(ctx, id, scan)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UsageLimitConfig), args.Error(1)
}

func (m *repoMock) ListTrackings(ctx context.Context) ([]*models.TrackingRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.TrackingRecord), args.Error(1)
}

type ServiceSuite struct {
	suite.Suite
	repo *repoMock
	svc  *Service
}

func (s *ServiceSuite) SetupTest() {
	s.repo = &repoMock{}
	s.svc = New(s.repo, noop.New(), nil, 0, "https://qr.example.com")
}

func (s *ServiceSuite) TestMint_PassesRecordToRepo() {
	s.repo.
		On("CreateTracking", mock.Anything, mock.MatchedBy(func(rec *models.TrackingRecord) bool {
			return rec.OriginalURL == "https://example.com" && rec.ID != "" && rec.Scans != nil
		})).
		Return(nil).
		Once()

	rec, err := s.svc.Mint(context.Background(), models.TrackingCreateInput{OriginalURL: "https://example.com"})
	s.Require().NoError(err)
	s.Require().NotEmpty(rec.ID)
	s.repo.AssertExpectations(s.T())
}

func (s *ServiceSuite) TestMint_RepoErrorPropagates() {
	want := errors.New("storage down")
	s.repo.On("CreateTracking", mock.Anything, mock.Anything).Return(want).Once()

	_, err := s.svc.Mint(context.Background(), models.TrackingCreateInput{OriginalURL: "https://example.com"})
	s.Require().ErrorIs(err, want)
}

func (s *ServiceSuite) TestRecordScan_SkipsAppendWhenPrecheckFails() {
	rec := &models.TrackingRecord{
		ID:          "t1",
		OriginalURL: "https://example.com",
		UsageLimit:  &models.UsageLimitConfig{Enabled: true, MaxScans: 1, CurrentScans: 1},
	}
	s.repo.On("GetTracking", mock.Anything, "t1").Return(rec, nil).Once()

	_, err := s.svc.RecordScan(context.Background(), "t1", "ua", "1.2.3.4")
	var lim *models.LimitExceededError
	s.Require().ErrorAs(err, &lim)
	s.repo.AssertNotCalled(s.T(), "AppendScan", mock.Anything, mock.Anything, mock.Anything)
}

func (s *ServiceSuite) TestRecordScan_AppendRejectionWins() {
	// запись прошла пре-чек, но проиграла гонку в сторадже
	rec := &models.TrackingRecord{
		ID:          "t1",
		OriginalURL: "https://example.com",
		UsageLimit:  &models.UsageLimitConfig{Enabled: true, MaxScans: 5, CurrentScans: 4},
	}
	s.repo.On("GetTracking", mock.Anything, "t1").Return(rec, nil).Once()
	s.repo.
		On("AppendScan", mock.Anything, "t1", mock.Anything).
		Return(nil, &models.LimitExceededError{MaxScans: 5, CurrentScans: 5}).
		Once()

	_, err := s.svc.RecordScan(context.Background(), "t1", "ua", "1.2.3.4")
	var lim *models.LimitExceededError
	s.Require().ErrorAs(err, &lim)
	s.Require().Equal(5, lim.CurrentScans)
	s.repo.AssertExpectations(s.T())
}

func (s *ServiceSuite) TestDashboard_RepoErrorPropagates() {
	want := errors.New("list failed")
	s.repo.On("ListTrackings", mock.Anything).Return(nil, want).Once()

	_, err := s.svc.Dashboard(context.Background(), "")
	s.Require().ErrorIs(err, want)
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}
