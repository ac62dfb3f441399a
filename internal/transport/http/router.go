// Package httptransport is the thin HTTP layer over the resolution
// services. Handlers parse, delegate, and translate errors; business
// rules stay in the services.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"trapper/internal/classify"
	entitymodels "trapper/internal/entity/models"
	identsvc "trapper/internal/identifier/service"
	"trapper/internal/match"
	"trapper/internal/platform/middleware"
	requestmodels "trapper/internal/request/models"
	id "trapper/pkg/domain"
)

//go:generate mockgen -source=router.go -destination=mocks/mocks.go -package=mocks

// Merger executes a single winner/loser merge.
type Merger interface {
	Merge(ctx context.Context, winnerID, loserID id.EntityID, reason, actor string) (bool, error)
}

// Picker runs canonical selection over a candidate pair.
type Picker interface {
	Pick(ctx context.Context, a, b *entitymodels.Entity) (id.EntityID, error)
}

// BatchRunner drives detection and merging for one kind or all kinds.
type BatchRunner interface {
	Run(ctx context.Context, kind id.Kind, threshold float64) (int, error)
	RunAll(ctx context.Context, threshold float64) (int, error)
}

// Classifier answers canonical-person and identifier classification queries.
type Classifier interface {
	IsCanonical(ctx context.Context, personID id.EntityID) (bool, error)
	ClassifyIdentifier(ctx context.Context, value string) (classify.Classification, error)
	RefreshFlags(ctx context.Context) (classify.RefreshResult, error)
}

// IdentifierService manages the two-phase identifier update trail.
type IdentifierService interface {
	LogUpdate(ctx context.Context, in identsvc.LogUpdateInput) (*id.UpdateID, error)
	ApplyUpdate(ctx context.Context, updateID id.UpdateID, actor string) (bool, error)
}

// EntityService reads entities and follows merge chains.
type EntityService interface {
	Get(ctx context.Context, entityID id.EntityID) (*entitymodels.Entity, error)
	ResolveLiving(ctx context.Context, entityID id.EntityID) (*entitymodels.Entity, []id.EntityID, error)
}

// Reviewer queues person match candidates for human review.
type Reviewer interface {
	Queue(ctx context.Context, source match.SourceRecord, people []match.CandidatePerson) (int, error)
}

// RequestService settles case record status when assignments are removed.
type RequestService interface {
	ClearAssignments(ctx context.Context, requestID id.EntityID) (requestmodels.Status, error)
}

// TokenIssuer mints scheduler access tokens.
type TokenIssuer interface {
	GenerateAccessToken(actor string, expiresIn time.Duration) (string, error)
}

// Handler bundles the services the routes delegate to.
type Handler struct {
	merger      Merger
	batch       BatchRunner
	picker      Picker
	classifier  Classifier
	identifiers IdentifierService
	entities    EntityService
	requests    RequestService
	reviewer    Reviewer
	tokens      TokenIssuer

	// schedulerSecretHash is the bcrypt hash the /auth/token exchange
	// verifies against. Empty disables the exchange.
	schedulerSecretHash string
	logger              *slog.Logger
}

func NewHandler(
	merger Merger,
	batch BatchRunner,
	picker Picker,
	classifier Classifier,
	identifiers IdentifierService,
	entities EntityService,
	requests RequestService,
	reviewer Reviewer,
	tokens TokenIssuer,
	schedulerSecretHash string,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		merger:              merger,
		batch:               batch,
		picker:              picker,
		classifier:          classifier,
		identifiers:         identifiers,
		entities:            entities,
		requests:            requests,
		reviewer:            reviewer,
		tokens:              tokens,
		schedulerSecretHash: schedulerSecretHash,
		logger:              logger,
	}
}

// NewRouter assembles the full route tree. Everything except health,
// metrics, and the token exchange sits behind bearer auth.
func NewRouter(h *Handler, validator middleware.TokenValidator, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Post("/auth/token", h.handleToken)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(validator, logger))

		r.Post("/resolution/pick", h.handlePick)
		r.Post("/resolution/merge", h.handleMerge)
		r.Post("/resolution/batch", h.handleBatch)

		r.Get("/people/{id}/canonical", h.handleCanonical)
		r.Post("/people/canonical/refresh", h.handleRefreshFlags)
		r.Post("/people/match-candidates", h.handleQueueCandidates)

		r.Post("/identifiers/updates", h.handleLogUpdate)
		r.Post("/identifiers/updates/{id}/apply", h.handleApplyUpdate)
		r.Post("/identifiers/classify", h.handleClassifyIdentifier)

		r.Get("/entities/{id}/living", h.handleLiving)

		r.Post("/requests/{id}/assignments/clear", h.handleClearAssignments)
	})

	return r
}
