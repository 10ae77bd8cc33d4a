package api

import (
	"time"

	"github.com/labstack/echo/v4"

	"WattCast/internal/domain/models"
	domrepo "WattCast/internal/domain/repository"
	apimetrics "WattCast/internal/service/metrics"
	"WattCast/internal/services/advisor"
	"WattCast/internal/usecase"
	xhttp "WattCast/pkg/http"
	xlogger "WattCast/pkg/logger"
)

// LoopStatusProvider exposes the running loop's counters.
type LoopStatusProvider interface {
	Status() usecase.LoopStatus
}

// EnergyEchoHandler serves health, the latest cycle report and ad-hoc advice.
type EnergyEchoHandler struct {
	logger *xlogger.Logger
	loop   LoopStatusProvider
	store  domrepo.ReportStore
	mw     []echo.MiddlewareFunc
}

// NewEnergyEchoHandler builds the handler. mw wraps the /api/v1 group only,
// so health checks and scrapes are never throttled.
func NewEnergyEchoHandler(logger *xlogger.Logger, loop LoopStatusProvider, store domrepo.ReportStore, mw ...echo.MiddlewareFunc) *EnergyEchoHandler {
	if logger == nil {
		logger = xlogger.NewNop()
	}
	apimetrics.Register()
	return &EnergyEchoHandler{logger: logger, loop: loop, store: store, mw: mw}
}

func (h *EnergyEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)
	g := e.Group("/api/v1", h.mw...)
	g.GET("/status", h.Status)
	g.GET("/advice", h.Advice)
}

// Health is 200 while the loop runs and 503 once it stopped.
func (h *EnergyEchoHandler) Health(c echo.Context) error {
	st := h.loop.Status()
	res := models.HealthResponse{
		RunID:       st.RunID,
		State:       st.State.String(),
		Cycles:      st.Cycles,
		HistorySize: st.HistorySize,
	}
	if st.State == usecase.StateStopped {
		return xhttp.ServiceUnavailableResponse(c, res)
	}
	return xhttp.SuccessResponse(c, res)
}

// Status returns the newest cycle report.
func (h *EnergyEchoHandler) Status(c echo.Context) error {
	start := time.Now()
	defer observe("status", start)

	if h.store == nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("no report store configured"))
	}
	report, ok, err := h.store.Latest(c.Request().Context())
	if err != nil {
		apimetrics.APIErrors.WithLabelValues("status").Inc()
		h.logger.Error("latest report lookup failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("report store unavailable").WithError(err))
	}
	if !ok {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("no cycle has completed yet"))
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return xhttp.SuccessResponse(c, report)
}

// Advice applies the threshold rule to a caller-supplied value.
func (h *EnergyEchoHandler) Advice(c echo.Context) error {
	start := time.Now()
	defer observe("advice", start)

	if c.QueryParam("value") == "" {
		apimetrics.APIErrors.WithLabelValues("advice").Inc()
		return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("value", "value is required"))
	}
	req := &models.AdviceRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		apimetrics.APIErrors.WithLabelValues("advice").Inc()
		return xhttp.BadRequestResponse(c, verr)
	}

	rec := advisor.NewThreshold(req.Threshold).Advise(req.Value)
	return xhttp.SuccessResponse(c, models.AdviceResponse{
		Value:          req.Value,
		Threshold:      req.Threshold,
		Recommendation: rec,
		Message:        rec.Message(),
	})
}

func observe(endpoint string, start time.Time) {
	apimetrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

var _ xhttp.Handler = (*EnergyEchoHandler)(nil)

