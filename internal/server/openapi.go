package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"

	"github.com/codenameh8m/plasticboy-sub000/internal/handler/health"
	"github.com/codenameh8m/plasticboy-sub000/internal/leaderboard"
)

type AdminAuthHeader struct {
	Password string `header:"X-Admin-Password" description:"Admin password. A bearer token is accepted instead."`
}

type AdminPointParams struct {
	AdminAuthHeader
	PointIDParams
}

type AdminCreatePointRequest struct {
	AdminAuthHeader
	CreatePointRequest
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "Plasticboy API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Backend API for the plastic boy point hunt.")

	// GET /healthz
	getHealthz, _ := r.NewOperationContext(http.MethodGet, "/healthz")
	getHealthz.SetSummary("Health check")
	getHealthz.SetDescription("Returns the health status of backend dependencies.")
	getHealthz.AddRespStructure(health.Report{}, openapi.WithHTTPStatus(http.StatusOK))
	getHealthz.AddRespStructure(health.Report{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(getHealthz)

	// GET /api/points
	listPoints, _ := r.NewOperationContext(http.MethodGet, "/api/points")
	listPoints.SetSummary("List points")
	listPoints.SetDescription("Returns every point, newest first, without secrets. Points not yet revealed are included with their scheduled time.")
	listPoints.AddRespStructure([]PointResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(listPoints)

	// GET /api/points/{id}
	getPoint, _ := r.NewOperationContext(http.MethodGet, "/api/points/{id}")
	getPoint.SetSummary("Get point")
	getPoint.AddReqStructure(PointIDParams{})
	getPoint.AddRespStructure(PointResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getPoint.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getPoint)

	// POST /api/points/{id}/collect
	collect, _ := r.NewOperationContext(http.MethodPost, "/api/points/{id}/collect")
	collect.SetSummary("Collect point")
	collect.SetDescription("Claims a point with the secret from its QR code. Include the Telegram login payload to appear on the leaderboard.")
	collect.AddReqStructure(CollectRequest{})
	collect.AddRespStructure(PointResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	collect.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	collect.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	collect.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusForbidden))
	collect.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	collect.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	collect.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusTooEarly))
	_ = r.AddOperation(collect)

	// GET /api/leaderboard
	getLeaderboard, _ := r.NewOperationContext(http.MethodGet, "/api/leaderboard")
	getLeaderboard.SetSummary("Leaderboard")
	getLeaderboard.SetDescription("Ranks Telegram-identified collectors by number of points collected.")
	getLeaderboard.AddRespStructure(leaderboard.Leaderboard{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(getLeaderboard)

	// GET /api/stats
	getStats, _ := r.NewOperationContext(http.MethodGet, "/api/stats")
	getStats.SetSummary("Point statistics")
	getStats.AddRespStructure(leaderboard.PointStats{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(getStats)

	// GET /api/events
	getEvents, _ := r.NewOperationContext(http.MethodGet, "/api/events")
	getEvents.SetSummary("SSE event stream")
	getEvents.SetDescription("Server-Sent Events stream of point.created, point.collected and point.deleted.")
	getEvents.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("text/event-stream"))
	_ = r.AddOperation(getEvents)

	// GET /ws/points
	getFeed, _ := r.NewOperationContext(http.MethodGet, "/ws/points")
	getFeed.SetSummary("WebSocket point feed")
	getFeed.SetDescription("Upgrades to a WebSocket connection that receives point events as JSON messages.")
	getFeed.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusSwitchingProtocols),
		openapi.WithContentType("application/json"))
	_ = r.AddOperation(getFeed)

	// GET /api/admin/points
	adminList, _ := r.NewOperationContext(http.MethodGet, "/api/admin/points")
	adminList.SetSummary("List points (admin)")
	adminList.SetDescription("Returns every point with its secret, QR code and collector.")
	adminList.AddReqStructure(AdminAuthHeader{})
	adminList.AddRespStructure([]AdminPointResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	adminList.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(adminList)

	// POST /api/admin/points
	adminCreate, _ := r.NewOperationContext(http.MethodPost, "/api/admin/points")
	adminCreate.SetSummary("Create point")
	adminCreate.SetDescription("Creates a point revealed after delayMinutes and returns it with its QR code.")
	adminCreate.AddReqStructure(AdminCreatePointRequest{})
	adminCreate.AddRespStructure(AdminPointResponse{}, openapi.WithHTTPStatus(http.StatusCreated))
	adminCreate.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	adminCreate.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(adminCreate)

	// DELETE /api/admin/points/{id}
	adminDelete, _ := r.NewOperationContext(http.MethodDelete, "/api/admin/points/{id}")
	adminDelete.SetSummary("Delete point")
	adminDelete.AddReqStructure(AdminPointParams{})
	adminDelete.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusNoContent))
	adminDelete.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	adminDelete.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(adminDelete)

	// GET /api/admin/points/{id}/qr.png
	adminQR, _ := r.NewOperationContext(http.MethodGet, "/api/admin/points/{id}/qr.png")
	adminQR.SetSummary("Point QR code")
	adminQR.SetDescription("Renders the point's claim link as a PNG for printing.")
	adminQR.AddReqStructure(AdminPointParams{})
	adminQR.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK), openapi.WithContentType("image/png"))
	adminQR.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(adminQR)

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
