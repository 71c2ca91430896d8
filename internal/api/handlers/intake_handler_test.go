package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"github.com/welldanyogia/webrana-crm-intake/internal/api/middleware"
	"github.com/welldanyogia/webrana-crm-intake/internal/api/response"
	"github.com/welldanyogia/webrana-crm-intake/internal/domain"
	apperrors "github.com/welldanyogia/webrana-crm-intake/internal/errors"
	"github.com/welldanyogia/webrana-crm-intake/internal/intake"
	"github.com/welldanyogia/webrana-crm-intake/internal/repository"
	"github.com/welldanyogia/webrana-crm-intake/tests/mocks"
)

// IntakeHandlerTestSuite is the test suite for IntakeHandler
type IntakeHandlerTestSuite struct {
	suite.Suite
	echo          *echo.Echo
	handler       *IntakeHandler
	mockProcessor *mocks.MockEmailProcessor
	mockSubmitter *mocks.MockDecisionSubmitter
	mockRepo      *mocks.MockIntakeRepository
}

func (s *IntakeHandlerTestSuite) SetupTest() {
	s.echo = echo.New()
	s.mockProcessor = new(mocks.MockEmailProcessor)
	s.mockSubmitter = new(mocks.MockDecisionSubmitter)
	s.mockRepo = new(mocks.MockIntakeRepository)
	s.handler = NewIntakeHandler(s.mockProcessor, s.mockSubmitter, s.mockRepo)
}

func (s *IntakeHandlerTestSuite) TearDownTest() {
	s.mockProcessor.AssertExpectations(s.T())
	s.mockSubmitter.AssertExpectations(s.T())
	s.mockRepo.AssertExpectations(s.T())
}

func TestIntakeHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(IntakeHandlerTestSuite))
}

func (s *IntakeHandlerTestSuite) createContext(method, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := s.echo.NewContext(req, rec)
	return c, rec
}

func testIntakeRecord(id uint, status domain.Status, body string) *domain.IntakeRecord {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &domain.IntakeRecord{
		ID: id,
		NormalizedEmail: domain.NormalizedEmail{
			From:    domain.EmailAddress{Email: "jane.doe@acme.com", Name: "Jane Doe"},
			To:      []domain.EmailAddress{{Email: "sales@example.com"}},
			Headers: domain.EmailHeaders{Subject: "Pricing for 50 seats"},
			Body:    domain.EmailBody{RawText: body, NormalizedText: body},
		},
		AIResult: domain.AIIntakeResult{
			Summary:    domain.Summary{Text: "Wants a quote", KeyPoints: []string{"50 seats"}},
			Intent:     domain.IntentInquiry,
			Entities:   []domain.ExtractedEntity{{EntityType: "QUANTITY", Value: "50", Confidence: 0.9}},
			Confidence: domain.Confidence{OverallScore: 0.6, Reasoning: "clear ask"},
		},
		Recommendations: domain.Recommendations{
			Tasks: []domain.TaskRecommendation{
				{Title: "Send quote", Description: "50 seats", Priority: domain.PriorityHigh},
				{Title: "Schedule call", Description: "demo", Priority: domain.PriorityMedium},
			},
			Deals: []domain.DealRecommendation{
				{ContactEmail: "jane.doe@acme.com", DealStage: "qualification", Value: 5000},
			},
		},
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *IntakeHandlerTestSuite) decodeDetail(rec *httptest.ResponseRecorder) IntakeDetail {
	var resp struct {
		Success bool         `json:"success"`
		Data    IntakeDetail `json:"data"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.True(resp.Success)
	return resp.Data
}

func (s *IntakeHandlerTestSuite) decodeError(rec *httptest.ResponseRecorder) response.ErrorResponse {
	var resp response.ErrorResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

// ==================== Process Tests ====================

func (s *IntakeHandlerTestSuite) TestProcess_Success() {
	body := `{"raw_email":{"from":"jane.doe@acme.com","to":["sales@example.com"],"subject":"Pricing","text":"hello"}}`
	c, rec := s.createContext(http.MethodPost, "/api/email-intakes/process", body)

	s.mockProcessor.On("Execute", mock.Anything, mock.MatchedBy(func(raw domain.RawEmail) bool {
		return raw["from"] == "jane.doe@acme.com" && raw["subject"] == "Pricing"
	})).Return(testIntakeRecord(7, domain.StatusPendingReview, "hello"), nil)

	err := s.handler.Process(c)

	s.NoError(err)
	s.Equal(http.StatusCreated, rec.Code)
	detail := s.decodeDetail(rec)
	s.Equal(uint(7), detail.ID)
	s.Equal(domain.StatusPendingReview, detail.Status)
	s.Equal("jane.doe@acme.com", detail.SenderEmail)
	s.Equal("Wants a quote", detail.Summary)
	s.Len(detail.TaskRecommendations, 2)
	s.Len(detail.DealRecommendations, 1)
}

func (s *IntakeHandlerTestSuite) TestProcess_MissingRawEmail() {
	c, rec := s.createContext(http.MethodPost, "/api/email-intakes/process", `{}`)

	err := s.handler.Process(c)

	s.NoError(err)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *IntakeHandlerTestSuite) TestProcess_InvalidEmailFormat() {
	c, rec := s.createContext(http.MethodPost, "/api/email-intakes/process", `{"raw_email":{"to":["b@y.com"]}}`)

	s.mockProcessor.On("Execute", mock.Anything, mock.Anything).
		Return(nil, apperrors.Validation("Missing or invalid 'from' address"))

	err := s.handler.Process(c)

	s.NoError(err)
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("Missing or invalid 'from' address", s.decodeError(rec).Error)
}

func (s *IntakeHandlerTestSuite) TestProcess_AIUnavailable() {
	c, rec := s.createContext(http.MethodPost, "/api/email-intakes/process", `{"raw_email":{"from":"a@x.com","to":["b@y.com"],"text":"x"}}`)

	s.mockProcessor.On("Execute", mock.Anything, mock.Anything).
		Return(nil, apperrors.ServiceUnavailable(errors.New("timeout"), "AI service unavailable"))

	err := s.handler.Process(c)

	s.NoError(err)
	s.Equal(http.StatusServiceUnavailable, rec.Code)
	s.Equal(apperrors.CodeServiceUnavailable, s.decodeError(rec).Code)
}

// ==================== ListPending Tests ====================

func (s *IntakeHandlerTestSuite) TestListPending_Defaults() {
	c, rec := s.createContext(http.MethodGet, "/api/email-intakes/pending", "")
	records := []domain.IntakeRecord{
		*testIntakeRecord(3, domain.StatusPendingReview, "b"),
		*testIntakeRecord(2, domain.StatusPendingReview, "a"),
	}

	s.mockRepo.On("ListPendingReviews", mock.Anything, 0, 50).Return(records, nil)
	s.mockRepo.On("CountPending", mock.Anything).Return(int64(2), nil)

	err := s.handler.ListPending(c)

	s.NoError(err)
	s.Equal(http.StatusOK, rec.Code)

	var resp struct {
		Data []IntakeListItem `json:"data"`
		Meta response.Meta    `json:"meta"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Len(resp.Data, 2)
	s.Equal(uint(3), resp.Data[0].ID)
	s.Equal(2, resp.Data[0].TaskCount)
	s.Equal(1, resp.Data[0].DealCount)
	s.Equal(int64(2), resp.Meta.Total)
	s.Equal(50, resp.Meta.Limit)
	s.Equal(0, resp.Meta.Skip)
}

func (s *IntakeHandlerTestSuite) TestListPending_CustomPaging() {
	c, rec := s.createContext(http.MethodGet, "/api/email-intakes/pending?skip=10&limit=5", "")

	s.mockRepo.On("ListPendingReviews", mock.Anything, 10, 5).Return([]domain.IntakeRecord{}, nil)
	s.mockRepo.On("CountPending", mock.Anything).Return(int64(10), nil)

	err := s.handler.ListPending(c)

	s.NoError(err)
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), `"data":[]`)
}

func (s *IntakeHandlerTestSuite) TestListPending_InvalidPaging() {
	for _, query := range []string{"skip=-1", "limit=0", "limit=101", "limit=abc"} {
		c, rec := s.createContext(http.MethodGet, "/api/email-intakes/pending?"+query, "")

		err := s.handler.ListPending(c)

		s.NoError(err)
		s.Equal(http.StatusBadRequest, rec.Code, query)
	}
}

func (s *IntakeHandlerTestSuite) TestListPending_RepositoryError() {
	c, rec := s.createContext(http.MethodGet, "/api/email-intakes/pending", "")

	s.mockRepo.On("ListPendingReviews", mock.Anything, 0, 50).Return(nil, errors.New("db down"))

	err := s.handler.ListPending(c)

	s.NoError(err)
	s.Equal(http.StatusInternalServerError, rec.Code)
}

// ==================== Get Tests ====================

func (s *IntakeHandlerTestSuite) TestGet_Success() {
	longBody := strings.Repeat("a", 250)
	c, rec := s.createContext(http.MethodGet, "/api/email-intakes/5", "")
	c.SetParamNames("id")
	c.SetParamValues("5")

	s.mockRepo.On("GetByID", mock.Anything, uint(5)).Return(testIntakeRecord(5, domain.StatusAutoApproved, longBody), nil)

	err := s.handler.Get(c)

	s.NoError(err)
	s.Equal(http.StatusOK, rec.Code)
	detail := s.decodeDetail(rec)
	s.Equal(strings.Repeat("a", 200)+"...", detail.BodyPreview)
	s.Equal("Jane Doe", detail.SenderName)
	s.Equal([]string{"50 seats"}, detail.KeyPoints)
	s.Len(detail.KeyEntities, 1)
	s.False(detail.HighConfidence)
	s.False(detail.LowConfidence)
	s.False(detail.IsReply)
}

func (s *IntakeHandlerTestSuite) TestGet_NotFound() {
	c, rec := s.createContext(http.MethodGet, "/api/email-intakes/999", "")
	c.SetParamNames("id")
	c.SetParamValues("999")

	s.mockRepo.On("GetByID", mock.Anything, uint(999)).Return(nil, repository.ErrNotFound)

	err := s.handler.Get(c)

	s.NoError(err)
	s.Equal(http.StatusNotFound, rec.Code)
	s.Equal("Intake record not found: 999", s.decodeError(rec).Error)
}

func (s *IntakeHandlerTestSuite) TestGet_InvalidID() {
	c, rec := s.createContext(http.MethodGet, "/api/email-intakes/abc", "")
	c.SetParamNames("id")
	c.SetParamValues("abc")

	err := s.handler.Get(c)

	s.NoError(err)
	s.Equal(http.StatusBadRequest, rec.Code)
}

// ==================== SubmitDecision Tests ====================

func (s *IntakeHandlerTestSuite) TestSubmitDecision_Success() {
	body := `{"approved_task_indices":[0,1],"approved_deal_indices":[0],"decided_by":"alice","notes":"looks good"}`
	c, rec := s.createContext(http.MethodPost, "/api/email-intakes/5/decision", body)
	c.SetParamNames("id")
	c.SetParamValues("5")

	updated := testIntakeRecord(5, domain.StatusUserApproved, "x")
	s.mockSubmitter.On("Execute", mock.Anything, intake.DecisionRequest{
		IntakeID:            5,
		ApprovedTaskIndices: []int{0, 1},
		ApprovedDealIndices: []int{0},
		DecidedBy:           "alice",
		Notes:               "looks good",
	}).Return(updated, nil)

	err := s.handler.SubmitDecision(c)

	s.NoError(err)
	s.Equal(http.StatusOK, rec.Code)
	s.Equal(domain.StatusUserApproved, s.decodeDetail(rec).Status)
}

func (s *IntakeHandlerTestSuite) TestSubmitDecision_DecidedByFromReviewerToken() {
	c, rec := s.createContext(http.MethodPost, "/api/email-intakes/5/decision", `{"approved_task_indices":[]}`)
	c.SetParamNames("id")
	c.SetParamValues("5")

	token, err := middleware.GenerateReviewerToken("bob", "", "secret", time.Hour)
	s.Require().NoError(err)
	c.Request().Header.Set(middleware.ReviewerTokenHeader, token)

	s.mockSubmitter.On("Execute", mock.Anything, mock.MatchedBy(func(req intake.DecisionRequest) bool {
		return req.IntakeID == 5 && req.DecidedBy == "bob"
	})).Return(testIntakeRecord(5, domain.StatusRejected, "x"), nil)

	err = middleware.ReviewerJWT("secret", nil)(s.handler.SubmitDecision)(c)

	s.NoError(err)
	s.Equal(http.StatusOK, rec.Code)
}

func (s *IntakeHandlerTestSuite) TestSubmitDecision_NotFound() {
	c, rec := s.createContext(http.MethodPost, "/api/email-intakes/999/decision", `{}`)
	c.SetParamNames("id")
	c.SetParamValues("999")

	s.mockSubmitter.On("Execute", mock.Anything, mock.Anything).
		Return(nil, apperrors.NotFound("Intake 999 not found"))

	err := s.handler.SubmitDecision(c)

	s.NoError(err)
	s.Equal(http.StatusNotFound, rec.Code)
	s.Contains(s.decodeError(rec).Error, "999")
}

func (s *IntakeHandlerTestSuite) TestSubmitDecision_InvalidIndex() {
	c, rec := s.createContext(http.MethodPost, "/api/email-intakes/5/decision", `{"approved_task_indices":[2]}`)
	c.SetParamNames("id")
	c.SetParamValues("5")

	s.mockSubmitter.On("Execute", mock.Anything, mock.Anything).
		Return(nil, apperrors.Validation("Invalid task index: 2"))

	err := s.handler.SubmitDecision(c)

	s.NoError(err)
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("Invalid task index: 2", s.decodeError(rec).Error)
}

func (s *IntakeHandlerTestSuite) TestSubmitDecision_InvalidBody() {
	c, rec := s.createContext(http.MethodPost, "/api/email-intakes/5/decision", `{"approved_task_indices":"nope"}`)
	c.SetParamNames("id")
	c.SetParamValues("5")

	err := s.handler.SubmitDecision(c)

	s.NoError(err)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func TestToDetail_ThreadAndConfidenceFlags(t *testing.T) {
	r := testIntakeRecord(9, domain.StatusPendingReview, "thanks")
	r.NormalizedEmail.Headers = domain.EmailHeaders{
		Subject:    "Re: Pricing",
		MessageID:  "<m2@acme.com>",
		InReplyTo:  "<m1@example.com>",
		References: []string{"<m0@example.com>", "<m1@example.com>"},
	}
	r.AIResult.Entities = []domain.ExtractedEntity{
		{EntityType: "PERSON", Value: "Jane", Confidence: 0.95},
		{EntityType: "DATE", Value: "Friday", Confidence: 0.3},
	}
	r.AIResult.Confidence.OverallScore = 0.3

	detail := toDetail(r)

	assert.True(t, detail.IsReply)
	assert.Equal(t, "<m0@example.com>", detail.ThreadID)
	assert.Len(t, detail.Entities, 2)
	assert.Equal(t, []domain.ExtractedEntity{{EntityType: "PERSON", Value: "Jane", Confidence: 0.95}}, detail.KeyEntities)
	assert.True(t, detail.LowConfidence)
	assert.False(t, detail.HighConfidence)
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "short", preview("short", 200))
	assert.Equal(t, "héll...", preview("héllo", 4))
}
