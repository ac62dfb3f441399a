package httptransport

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"trapper/internal/classify"
	entitymodels "trapper/internal/entity/models"
	identsvc "trapper/internal/identifier/service"
	"trapper/internal/jwt"
	"trapper/internal/match"
	requestmodels "trapper/internal/request/models"
	"trapper/internal/platform/secrets"
	"trapper/internal/transport/http/mocks"
	id "trapper/pkg/domain"
	dErrors "trapper/pkg/domain-errors"
)

const schedulerSecret = "batch-scheduler-secret"

type RouterSuite struct {
	suite.Suite

	ctrl        *gomock.Controller
	merger      *mocks.MockMerger
	batch       *mocks.MockBatchRunner
	classifier  *mocks.MockClassifier
	identifiers *mocks.MockIdentifierService
	entities    *mocks.MockEntityService
	requests    *mocks.MockRequestService
	reviewer    *mocks.MockReviewer
	picker      *mocks.MockPicker

	jwtSvc *jwt.Service
	server *httptest.Server
	token  string
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.merger = mocks.NewMockMerger(s.ctrl)
	s.batch = mocks.NewMockBatchRunner(s.ctrl)
	s.classifier = mocks.NewMockClassifier(s.ctrl)
	s.identifiers = mocks.NewMockIdentifierService(s.ctrl)
	s.entities = mocks.NewMockEntityService(s.ctrl)
	s.requests = mocks.NewMockRequestService(s.ctrl)
	s.reviewer = mocks.NewMockReviewer(s.ctrl)
	s.picker = mocks.NewMockPicker(s.ctrl)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.jwtSvc = jwt.NewService("test-signing-key", "trapper", "trapper-api")

	hash, err := secrets.Hash(schedulerSecret)
	s.Require().NoError(err)

	handler := NewHandler(s.merger, s.batch, s.picker, s.classifier, s.identifiers, s.entities, s.requests, s.reviewer, s.jwtSvc, hash, logger)
	s.server = httptest.NewServer(NewRouter(handler, s.jwtSvc, logger))

	token, err := s.jwtSvc.GenerateAccessToken("scheduler", time.Hour)
	s.Require().NoError(err)
	s.token = token
}

func (s *RouterSuite) TearDownTest() {
	s.server.Close()
	s.ctrl.Finish()
}

func (s *RouterSuite) do(method, path string, body any, authed bool) (*http.Response, map[string]any) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequest(method, s.server.URL+path, reader)
	s.Require().NoError(err)
	if authed {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.server.Client().Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	var decoded map[string]any
	raw, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	if len(raw) > 0 {
		s.Require().NoError(json.Unmarshal(raw, &decoded))
	}
	return resp, decoded
}

func (s *RouterSuite) TestHealthAndAuthBoundary() {
	s.Run("healthz is open", func() {
		resp, body := s.do(http.MethodGet, "/healthz", nil, false)
		s.Equal(http.StatusOK, resp.StatusCode)
		s.Equal("ok", body["status"])
	})

	s.Run("protected route rejects missing token", func() {
		resp, _ := s.do(http.MethodPost, "/resolution/merge", mergeRequest{}, false)
		s.Equal(http.StatusUnauthorized, resp.StatusCode)
	})

	s.Run("protected route rejects garbage token", func() {
		req, err := http.NewRequest(http.MethodPost, s.server.URL+"/people/canonical/refresh", nil)
		s.Require().NoError(err)
		req.Header.Set("Authorization", "Bearer not-a-jwt")
		resp, err := s.server.Client().Do(req)
		s.Require().NoError(err)
		resp.Body.Close()
		s.Equal(http.StatusUnauthorized, resp.StatusCode)
	})
}

func (s *RouterSuite) TestTokenExchange() {
	s.Run("valid secret issues a usable token", func() {
		resp, body := s.do(http.MethodPost, "/auth/token", tokenRequest{ClientID: "airtable-sync", Secret: schedulerSecret}, false)
		s.Equal(http.StatusOK, resp.StatusCode)
		s.Equal("Bearer", body["token_type"])

		actor, err := s.jwtSvc.ValidateToken(body["access_token"].(string))
		s.NoError(err)
		s.Equal("airtable-sync", actor)
	})

	s.Run("wrong secret is rejected", func() {
		resp, body := s.do(http.MethodPost, "/auth/token", tokenRequest{ClientID: "airtable-sync", Secret: "nope"}, false)
		s.Equal(http.StatusUnauthorized, resp.StatusCode)
		s.Equal("unauthorized", body["error"])
	})

	s.Run("missing fields fail validation", func() {
		resp, _ := s.do(http.MethodPost, "/auth/token", tokenRequest{ClientID: "airtable-sync"}, false)
		s.Equal(http.StatusBadRequest, resp.StatusCode)
	})
}

func (s *RouterSuite) TestPick() {
	verified := &entitymodels.Entity{ID: id.NewEntityID(), Kind: id.KindPlace, GeocodeVerified: true}
	lat, lng := 38.29, -123.0
	verified.Latitude, verified.Longitude = &lat, &lng
	plain := &entitymodels.Entity{ID: id.NewEntityID(), Kind: id.KindPlace}

	s.Run("verified geocode wins", func() {
		s.entities.EXPECT().Get(gomock.Any(), plain.ID).Return(plain, nil)
		s.entities.EXPECT().Get(gomock.Any(), verified.ID).Return(verified, nil)
		s.picker.EXPECT().Pick(gomock.Any(), plain, verified).Return(verified.ID, nil)

		resp, body := s.do(http.MethodPost, "/resolution/pick",
			pickRequest{Kind: "place", A: plain.ID.String(), B: verified.ID.String()}, true)
		s.Equal(http.StatusOK, resp.StatusCode)
		s.Equal(verified.ID.String(), body["winner"])
	})

	s.Run("kind mismatch fails validation", func() {
		person := &entitymodels.Entity{ID: id.NewEntityID(), Kind: id.KindPerson}
		s.entities.EXPECT().Get(gomock.Any(), person.ID).Return(person, nil)
		s.entities.EXPECT().Get(gomock.Any(), verified.ID).Return(verified, nil)

		resp, _ := s.do(http.MethodPost, "/resolution/pick",
			pickRequest{Kind: "place", A: person.ID.String(), B: verified.ID.String()}, true)
		s.Equal(http.StatusBadRequest, resp.StatusCode)
	})

	s.Run("unknown kind fails validation", func() {
		resp, _ := s.do(http.MethodPost, "/resolution/pick",
			pickRequest{Kind: "rock", A: plain.ID.String(), B: verified.ID.String()}, true)
		s.Equal(http.StatusBadRequest, resp.StatusCode)
	})

	s.Run("missing entity is 404", func() {
		s.entities.EXPECT().Get(gomock.Any(), plain.ID).Return(nil, dErrors.New(dErrors.CodeNotFound, "entity not found"))

		resp, _ := s.do(http.MethodPost, "/resolution/pick",
			pickRequest{Kind: "place", A: plain.ID.String(), B: verified.ID.String()}, true)
		s.Equal(http.StatusNotFound, resp.StatusCode)
	})
}

func (s *RouterSuite) TestMerge() {
	winner, loser := id.NewEntityID(), id.NewEntityID()

	s.Run("merge applies", func() {
		s.merger.EXPECT().
			Merge(gomock.Any(), winner, loser, "manual_review", "scheduler").
			Return(true, nil)

		resp, body := s.do(http.MethodPost, "/resolution/merge",
			mergeRequest{Winner: winner.String(), Loser: loser.String(), Reason: "manual_review"}, true)
		s.Equal(http.StatusOK, resp.StatusCode)
		s.Equal(true, body["applied"])
	})

	s.Run("replayed merge answers false", func() {
		s.merger.EXPECT().
			Merge(gomock.Any(), winner, loser, "manual_review", "scheduler").
			Return(false, nil)

		resp, body := s.do(http.MethodPost, "/resolution/merge",
			mergeRequest{Winner: winner.String(), Loser: loser.String(), Reason: "manual_review"}, true)
		s.Equal(http.StatusOK, resp.StatusCode)
		s.Equal(false, body["applied"])
	})

	s.Run("empty reason fails validation", func() {
		resp, _ := s.do(http.MethodPost, "/resolution/merge",
			mergeRequest{Winner: winner.String(), Loser: loser.String()}, true)
		s.Equal(http.StatusBadRequest, resp.StatusCode)
	})

	s.Run("self merge surfaces service validation", func() {
		s.merger.EXPECT().
			Merge(gomock.Any(), winner, winner, "manual_review", "scheduler").
			Return(false, dErrors.New(dErrors.CodeValidation, "winner and loser are the same entity"))

		resp, body := s.do(http.MethodPost, "/resolution/merge",
			mergeRequest{Winner: winner.String(), Loser: winner.String(), Reason: "manual_review"}, true)
		s.Equal(http.StatusBadRequest, resp.StatusCode)
		s.Equal("validation", body["error"])
	})
}

func (s *RouterSuite) TestBatch() {
	s.Run("single kind", func() {
		s.batch.EXPECT().Run(gomock.Any(), id.KindPlace, 0.9).Return(7, nil)

		resp, body := s.do(http.MethodPost, "/resolution/batch",
			batchRequest{Kind: "place", Threshold: 0.9}, true)
		s.Equal(http.StatusOK, resp.StatusCode)
		s.Equal(float64(7), body["merged"])
	})

	s.Run("all kinds when kind omitted", func() {
		s.batch.EXPECT().RunAll(gomock.Any(), 0.95).Return(12, nil)

		resp, body := s.do(http.MethodPost, "/resolution/batch",
			batchRequest{Threshold: 0.95}, true)
		s.Equal(http.StatusOK, resp.StatusCode)
		s.Equal(float64(12), body["merged"])
	})

	s.Run("concurrent run is 409", func() {
		s.batch.EXPECT().Run(gomock.Any(), id.KindAnimal, 0.9).
			Return(0, dErrors.New(dErrors.CodeConflict, "batch already running for animal"))

		resp, _ := s.do(http.MethodPost, "/resolution/batch",
			batchRequest{Kind: "animal", Threshold: 0.9}, true)
		s.Equal(http.StatusConflict, resp.StatusCode)
	})

	s.Run("threshold out of range", func() {
		resp, _ := s.do(http.MethodPost, "/resolution/batch",
			batchRequest{Kind: "place", Threshold: 1.5}, true)
		s.Equal(http.StatusBadRequest, resp.StatusCode)
	})
}

func (s *RouterSuite) TestPeople() {
	personID := id.NewEntityID()

	s.Run("canonical flag", func() {
		s.classifier.EXPECT().IsCanonical(gomock.Any(), personID).Return(true, nil)

		resp, body := s.do(http.MethodGet, "/people/"+personID.String()+"/canonical", nil, true)
		s.Equal(http.StatusOK, resp.StatusCode)
		s.Equal(true, body["canonical"])
	})

	s.Run("refresh reports counts", func() {
		s.classifier.EXPECT().RefreshFlags(gomock.Any()).
			Return(classify.RefreshResult{Total: 40, Canonical: 31, NonCanonical: 9}, nil)

		resp, body := s.do(http.MethodPost, "/people/canonical/refresh", nil, true)
		s.Equal(http.StatusOK, resp.StatusCode)
		s.Equal(float64(40), body["total"])
		s.Equal(float64(31), body["canonical"])
		s.Equal(float64(9), body["non_canonical"])
	})

	s.Run("malformed person id", func() {
		resp, _ := s.do(http.MethodGet, "/people/not-a-uuid/canonical", nil, true)
		s.Equal(http.StatusBadRequest, resp.StatusCode)
	})
}

func (s *RouterSuite) TestIdentifierUpdates() {
	personID := id.NewEntityID()

	s.Run("logged update answers 201", func() {
		updateID := id.NewUpdateID()
		s.identifiers.EXPECT().
			LogUpdate(gomock.Any(), identsvc.LogUpdateInput{
				PersonID: personID,
				Type:     "phone",
				OldValue: "(707) 555-0101",
				NewValue: "(707) 555-0199",
				Source:   "airtable",
				Actor:    "scheduler",
				Reason:   "caller corrected number",
			}).
			Return(&updateID, nil)

		resp, body := s.do(http.MethodPost, "/identifiers/updates", logUpdateRequest{
			PersonID: personID.String(),
			Type:     "phone",
			OldValue: "(707) 555-0101",
			NewValue: "(707) 555-0199",
			Source:   "airtable",
			Reason:   "caller corrected number",
		}, true)
		s.Equal(http.StatusCreated, resp.StatusCode)
		s.Equal(updateID.String(), body["update_id"])
	})

	s.Run("cosmetic change answers 204", func() {
		s.identifiers.EXPECT().LogUpdate(gomock.Any(), gomock.Any()).Return(nil, nil)

		resp, _ := s.do(http.MethodPost, "/identifiers/updates", logUpdateRequest{
			PersonID: personID.String(),
			Type:     "phone",
			OldValue: "707-555-0101",
			NewValue: "(707) 555-0101",
		}, true)
		s.Equal(http.StatusNoContent, resp.StatusCode)
	})

	s.Run("apply answers applied flag", func() {
		updateID := id.NewUpdateID()
		s.identifiers.EXPECT().ApplyUpdate(gomock.Any(), updateID, "scheduler").Return(true, nil)

		resp, body := s.do(http.MethodPost, "/identifiers/updates/"+updateID.String()+"/apply", nil, true)
		s.Equal(http.StatusOK, resp.StatusCode)
		s.Equal(true, body["applied"])
	})

	s.Run("classify value", func() {
		s.classifier.EXPECT().ClassifyIdentifier(gomock.Any(), "info@rescue.org").
			Return(classify.Organizational, nil)

		resp, body := s.do(http.MethodPost, "/identifiers/classify", classifyRequest{Value: "info@rescue.org"}, true)
		s.Equal(http.StatusOK, resp.StatusCode)
		s.Equal("organizational", body["classification"])
	})
}

func (s *RouterSuite) TestLiving() {
	living := &entitymodels.Entity{ID: id.NewEntityID(), Kind: id.KindPlace}
	start := id.NewEntityID()

	s.Run("resolves through the chain", func() {
		s.entities.EXPECT().ResolveLiving(gomock.Any(), start).
			Return(living, []id.EntityID{start, living.ID}, nil)

		resp, body := s.do(http.MethodGet, "/entities/"+start.String()+"/living", nil, true)
		s.Equal(http.StatusOK, resp.StatusCode)
		s.Equal(living.ID.String(), body["id"])
		s.Equal("place", body["kind"])
		s.Len(body["path"], 2)
	})

	s.Run("unknown entity is 404", func() {
		s.entities.EXPECT().ResolveLiving(gomock.Any(), start).
			Return(nil, nil, dErrors.New(dErrors.CodeNotFound, "entity not found"))

		resp, _ := s.do(http.MethodGet, "/entities/"+start.String()+"/living", nil, true)
		s.Equal(http.StatusNotFound, resp.StatusCode)
	})
}

func (s *RouterSuite) TestClearAssignments() {
	requestID := id.NewEntityID()

	s.Run("terminal archive reason keeps terminal status", func() {
		s.requests.EXPECT().ClearAssignments(gomock.Any(), requestID).
			Return(requestmodels.StatusClosed, nil)

		resp, body := s.do(http.MethodPost, "/requests/"+requestID.String()+"/assignments/clear", nil, true)
		s.Equal(http.StatusOK, resp.StatusCode)
		s.Equal("closed", body["status"])
	})

	s.Run("unknown request is 404", func() {
		s.requests.EXPECT().ClearAssignments(gomock.Any(), requestID).
			Return(requestmodels.Status(""), dErrors.New(dErrors.CodeNotFound, "request not found"))

		resp, _ := s.do(http.MethodPost, "/requests/"+requestID.String()+"/assignments/clear", nil, true)
		s.Equal(http.StatusNotFound, resp.StatusCode)
	})
}

func (s *RouterSuite) TestQueueMatchCandidates() {
	personID := id.NewEntityID()

	s.Run("queues scored candidates", func() {
		s.reviewer.EXPECT().
			Queue(gomock.Any(),
				match.SourceRecord{
					SourceSystem:   "airtable",
					SourceRecordID: "rec42",
					DisplayName:    "Jane Doe",
					Phone:          "(707) 555-0101",
				},
				[]match.CandidatePerson{{
					PersonID:    personID,
					DisplayName: "Jane M Doe",
					Phone:       "707-555-0101",
				}}).
			Return(1, nil)

		resp, body := s.do(http.MethodPost, "/people/match-candidates", queueCandidatesRequest{
			SourceSystem:   "airtable",
			SourceRecordID: "rec42",
			DisplayName:    "Jane Doe",
			Phone:          "(707) 555-0101",
			People: []candidatePerson{{
				PersonID:    personID.String(),
				DisplayName: "Jane M Doe",
				Phone:       "707-555-0101",
			}},
		}, true)
		s.Equal(http.StatusOK, resp.StatusCode)
		s.Equal(float64(1), body["queued"])
	})

	s.Run("missing source key fails validation", func() {
		resp, _ := s.do(http.MethodPost, "/people/match-candidates", queueCandidatesRequest{SourceSystem: "airtable"}, true)
		s.Equal(http.StatusBadRequest, resp.StatusCode)
	})
}
