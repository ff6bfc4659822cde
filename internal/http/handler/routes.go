package handler

import (
	"database/sql"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"safetyagent/internal/allowlist"
	"safetyagent/internal/http/middleware"
	"safetyagent/internal/service"
)

// Deps are the collaborators the HTTP layer needs.
type Deps struct {
	DB        *sql.DB
	Agent     service.AgentService
	Proposals service.ProposalService
	Documents service.DocumentService
	AllowList *allowlist.AllowList
	Log       *zap.Logger
}

// APIPrefix is where the agent workflow is mounted.
const APIPrefix = "/api/safety/agent"

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// Handlers only translate HTTP; the workflow rules live in the services.
func RegisterRoutes(app *fiber.App, d Deps) {
	app.Get("/health", HealthCheck(d.DB))
	app.Get("/healthz", LivenessProbe())

	api := app.Group(APIPrefix, middleware.Actor())

	api.Post("/upload", UploadDocument(d.Agent, d.Log))
	api.Post("/propose", ProposeFromText(d.Agent, d.Log))

	api.Post("/proposals", CreateProposal(d.Proposals, d.Log))
	api.Get("/proposals", ListProposals(d.Proposals, d.Log))
	api.Get("/proposals/:id", GetProposal(d.Proposals, d.Log))
	api.Post("/proposals/:id/approve", ApproveProposal(d.Proposals, d.Log))
	api.Post("/proposals/:id/reject", RejectProposal(d.Proposals, d.Log))
	api.Get("/proposals/:id/audit", ProposalAudit(d.Proposals, d.Log))

	api.Get("/documents/:id", GetDocument(d.Documents, d.Log))
	api.Get("/documents/:id/content", DownloadDocument(d.Documents, d.Log))

	api.Get("/collections", ListCollections(d.AllowList))
}
