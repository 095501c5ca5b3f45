package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietanh2810/fuelticket-api/internal/api/middleware"
	"github.com/vietanh2810/fuelticket-api/internal/domain"
	"github.com/vietanh2810/fuelticket-api/internal/service"
)

var (
	citizen = domain.Actor{UserID: 1, Role: domain.RoleCitizen, Email: "awa@example.com", FirstName: "Awa", LastName: "Diop"}
	manager = domain.Actor{UserID: 10, Role: domain.RoleStation, StationIDs: []uint{1}}
)

// newTestRouter builds a router whose requests are authenticated as actor.
// A zero actor leaves the request anonymous.
func newTestRouter(actor domain.Actor) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(ctx *gin.Context) {
		if actor.UserID != 0 {
			ctx.Set(middleware.ActorKey, actor)
		}
		ctx.Next()
	})

	return r
}

type errBody struct {
	StatusCode int            `json:"status_code"`
	ErrorCode  string         `json:"error_code"`
	Message    string         `json:"message"`
	Details    map[string]any `json:"details"`
}

func do(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var payload bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&payload).Encode(body))
	}

	req := httptest.NewRequest(method, path, &payload)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	return rec
}

func decodeErr(t *testing.T, rec *httptest.ResponseRecorder) errBody {
	t.Helper()

	var body errBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	return body
}

type stubTickets struct {
	TicketService

	lastRequest service.TicketRequest
	createErr   error
	hasOpen     bool
	receipt     domain.Ticket
	receiptErr  error
	statusErr   error
	lastStatus  domain.TicketStatus
	deleted     []uint
}

func (s *stubTickets) CreateTicket(_ context.Context, _ domain.Actor, req service.TicketRequest) (domain.Ticket, error) {
	s.lastRequest = req
	if s.createErr != nil {
		return domain.Ticket{}, s.createErr
	}

	return domain.Ticket{
		ID:          7,
		Number:      "AB12CD34",
		OrderNumber: "001",
		StationID:   req.StationID,
		FuelType:    req.FuelType,
		Quantity:    req.Quantity,
		Status:      domain.StatusPending,
		SupplyDate:  time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
	}, nil
}

func (s *stubTickets) HasOpenTicket(_ context.Context, _ domain.Actor, _ string) (bool, error) {
	return s.hasOpen, nil
}

func (s *stubTickets) Receipt(_ context.Context, _ domain.Actor, _ uint) (domain.Ticket, error) {
	return s.receipt, s.receiptErr
}

func (s *stubTickets) UpdateStatus(_ context.Context, _ domain.Actor, id uint, to domain.TicketStatus) (domain.Ticket, error) {
	s.lastStatus = to
	if s.statusErr != nil {
		return domain.Ticket{}, s.statusErr
	}

	return domain.Ticket{ID: id, Status: to}, nil
}

func (s *stubTickets) Delete(_ context.Context, _ domain.Actor, id uint) error {
	s.deleted = append(s.deleted, id)
	return nil
}

func ticketRouter(actor domain.Actor, svc TicketService) *gin.Engine {
	h := NewTicketHandler(svc)
	r := newTestRouter(actor)
	r.POST("/tickets", h.HandleCreateTicket)
	r.GET("/tickets/has-open", h.HandleHasOpenTicket)
	r.GET("/tickets/:id/receipt", h.HandleGetReceipt)
	r.PUT("/tickets/:id/status", h.HandleUpdateTicketStatus)
	r.DELETE("/tickets/:id", h.HandleDeleteTicket)

	return r
}

func TestHandleCreateTicket(t *testing.T) {
	svc := &stubTickets{}
	r := ticketRouter(citizen, svc)

	rec := do(t, r, http.MethodPost, "/tickets", map[string]any{
		"station_id": 1,
		"fuel_type":  "ESSENCE",
		"quantity":   20,
		"date":       "2025-03-10",
	})

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "AB12CD34", body["number"])
	assert.Equal(t, "001", body["order_number"])
	assert.Equal(t, "2025-03-10", body["supply_date"])
	assert.Equal(t, "EN_ATTENTE", body["status"])

	require.NotNil(t, svc.lastRequest.Date)
	assert.Equal(t, "2025-03-10", svc.lastRequest.Date.Format(domain.DateLayout))
	assert.Equal(t, domain.FuelEssence, svc.lastRequest.FuelType)
}

func TestHandleCreateTicket_Errors(t *testing.T) {
	valid := map[string]any{"station_id": 1, "fuel_type": "ESSENCE", "quantity": 20}

	tests := []struct {
		name      string
		actor     domain.Actor
		body      any
		svcErr    error
		status    int
		errorCode string
	}{
		{"anonymous", domain.Actor{}, valid, nil, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"malformed json", citizen, "not an object", nil, http.StatusBadRequest, "BAD_REQUEST"},
		{"invalid fields", citizen, map[string]any{"station_id": 1, "fuel_type": "WATER", "quantity": 0}, nil, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"quota exhausted", citizen, valid, domain.ErrNoTicketsLeft, http.StatusBadRequest, "CAPACITY_EXCEEDED"},
		{"open ticket", citizen, valid, domain.ErrOpenTicketExists, http.StatusConflict, "DUPLICATE"},
		{"no schedule", citizen, valid, domain.ErrNoActiveSchedule, http.StatusNotFound, "NOT_FOUND"},
		{"wrong role", manager, valid, domain.ErrRoleNotAllowed, http.StatusForbidden, "PERMISSION_DENIED"},
		{"storage failure", citizen, valid, errors.New("connection reset"), http.StatusInternalServerError, "INTERNAL_SERVER_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := ticketRouter(tt.actor, &stubTickets{createErr: tt.svcErr})

			rec := do(t, r, http.MethodPost, "/tickets", tt.body)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.errorCode, decodeErr(t, rec).ErrorCode)
		})
	}
}

func TestHandleCreateTicket_MessageHidesInternals(t *testing.T) {
	r := ticketRouter(citizen, &stubTickets{createErr: errors.New("pq: password authentication failed")})

	rec := do(t, r, http.MethodPost, "/tickets", map[string]any{"station_id": 1, "fuel_type": "ESSENCE", "quantity": 20})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal server error", decodeErr(t, rec).Message)
}

func TestHandleCreateTicket_ValidationDetails(t *testing.T) {
	r := ticketRouter(citizen, &stubTickets{})

	rec := do(t, r, http.MethodPost, "/tickets", map[string]any{"fuel_type": "ESSENCE", "quantity": 20, "date": "10/03/2025"})

	body := decodeErr(t, rec)
	assert.Equal(t, http.StatusBadRequest, body.StatusCode)
	assert.Contains(t, body.Details, "station_id")
	assert.Contains(t, body.Details, "date")
}

func TestHandleHasOpenTicket(t *testing.T) {
	r := ticketRouter(citizen, &stubTickets{hasOpen: true})

	rec := do(t, r, http.MethodGet, "/tickets/has-open", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"has_open_ticket":true}`, rec.Body.String())
}

func TestHandleGetReceipt(t *testing.T) {
	t.Run("validated ticket", func(t *testing.T) {
		ticket := domain.Ticket{ID: 3, Number: "ZX98YU76", Status: domain.StatusValidated, QRPayload: "TICKET:ZX98YU76"}
		r := ticketRouter(citizen, &stubTickets{receipt: ticket})

		rec := do(t, r, http.MethodGet, "/tickets/3/receipt", nil)

		require.Equal(t, http.StatusOK, rec.Code)
		var body struct {
			Ticket    map[string]any `json:"ticket"`
			QRPayload string         `json:"qr_payload"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "TICKET:ZX98YU76", body.QRPayload)
		assert.Equal(t, "ZX98YU76", body.Ticket["number"])
	})

	t.Run("pending ticket", func(t *testing.T) {
		r := ticketRouter(citizen, &stubTickets{receiptErr: domain.ErrNoReceipt})

		rec := do(t, r, http.MethodGet, "/tickets/3/receipt", nil)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		body := decodeErr(t, rec)
		assert.Equal(t, "TRANSITION_NOT_ALLOWED", body.ErrorCode)
		assert.Contains(t, body.Message, "receipt")
	})

	t.Run("bad id", func(t *testing.T) {
		r := ticketRouter(citizen, &stubTickets{})

		rec := do(t, r, http.MethodGet, "/tickets/abc/receipt", nil)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandleUpdateTicketStatus(t *testing.T) {
	t.Run("accepted", func(t *testing.T) {
		svc := &stubTickets{}
		r := ticketRouter(manager, svc)

		rec := do(t, r, http.MethodPut, "/tickets/4/status", map[string]string{"status": "VALIDE"})

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, domain.StatusValidated, svc.lastStatus)
	})

	t.Run("unknown status", func(t *testing.T) {
		svc := &stubTickets{}
		r := ticketRouter(manager, svc)

		rec := do(t, r, http.MethodPut, "/tickets/4/status", map[string]string{"status": "PERDU"})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "VALIDATION_ERROR", decodeErr(t, rec).ErrorCode)
		assert.Empty(t, svc.lastStatus)
	})

	t.Run("refused transition", func(t *testing.T) {
		r := ticketRouter(manager, &stubTickets{statusErr: domain.ErrInvalidTransition})

		rec := do(t, r, http.MethodPut, "/tickets/4/status", map[string]string{"status": "EN_ATTENTE"})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "TRANSITION_NOT_ALLOWED", decodeErr(t, rec).ErrorCode)
	})
}

func TestHandleDeleteTicket(t *testing.T) {
	svc := &stubTickets{}
	r := ticketRouter(citizen, svc)

	rec := do(t, r, http.MethodDelete, "/tickets/9", nil)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []uint{9}, svc.deleted)
}

type stubSchedules struct {
	ScheduleService

	calls []string
	from  time.Time
	to    time.Time
}

func (s *stubSchedules) ListByStation(_ context.Context, _ uint) ([]domain.SaleSchedule, error) {
	s.calls = append(s.calls, "all")
	return nil, nil
}

func (s *stubSchedules) ListByStationDate(_ context.Context, _ uint, date time.Time) ([]domain.SaleSchedule, error) {
	s.calls = append(s.calls, "date")
	s.from = date
	return []domain.SaleSchedule{{ID: 1, SaleDate: date, AvailableQuantity: -5, MaxTicketsPerDay: 3, ActiveTickets: 1}}, nil
}

func (s *stubSchedules) ListByStationRange(_ context.Context, _ uint, from, to time.Time) ([]domain.SaleSchedule, error) {
	s.calls = append(s.calls, "range")
	s.from, s.to = from, to
	return nil, nil
}

func scheduleRouter(svc ScheduleService) *gin.Engine {
	h := NewScheduleHandler(svc)
	r := newTestRouter(citizen)
	r.GET("/sale-schedules/stations/:stationID", h.HandleListStationSchedules)
	r.GET("/sale-schedules/stations/:stationID/date/:date", h.HandleListSchedulesByDate)
	r.GET("/sale-schedules/stations/:stationID/range", h.HandleListSchedulesInRange)

	return r
}

func TestHandleListStationSchedules(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		status int
		call   string
	}{
		{"all", "/sale-schedules/stations/1", http.StatusOK, "all"},
		{"one day", "/sale-schedules/stations/1/date/2025-03-12", http.StatusOK, "date"},
		{"range", "/sale-schedules/stations/1/range?start=2025-03-10&end=2025-03-16", http.StatusOK, "range"},
		{"half range", "/sale-schedules/stations/1/range?start=2025-03-10", http.StatusBadRequest, ""},
		{"bad date", "/sale-schedules/stations/1/date/12-03-2025", http.StatusBadRequest, ""},
		{"bad station", "/sale-schedules/stations/x", http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubSchedules{}

			rec := do(t, scheduleRouter(svc), http.MethodGet, tt.path, nil)

			assert.Equal(t, tt.status, rec.Code)
			if tt.call == "" {
				assert.Empty(t, svc.calls)
			} else {
				assert.Equal(t, []string{tt.call}, svc.calls)
			}
		})
	}
}

func TestHandleListStationSchedules_Remaining(t *testing.T) {
	rec := do(t, scheduleRouter(&stubSchedules{}), http.MethodGet, "/sale-schedules/stations/1/date/2025-03-12", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var body []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body, 1)
	assert.Equal(t, "2025-03-12", body[0]["sale_date"])
	assert.EqualValues(t, 0, body[0]["remaining_quantity"])
	assert.EqualValues(t, 2, body[0]["remaining_tickets"])
}

type stubStocks struct {
	StockService

	added    float64
	addErr   error
	from, to *time.Time
}

func (s *stubStocks) AddFuel(_ context.Context, _ domain.Actor, id uint, quantity float64, _ string) (domain.FuelStock, error) {
	if s.addErr != nil {
		return domain.FuelStock{}, s.addErr
	}
	s.added += quantity

	return domain.FuelStock{ID: id, Available: 1000 + s.added}, nil
}

func (s *stubStocks) RemoveFuel(_ context.Context, _ domain.Actor, _ uint, _ float64, _ string) (domain.FuelStock, error) {
	return domain.FuelStock{}, domain.ErrStockWouldGoNegative
}

func (s *stubStocks) MovementsByStation(_ context.Context, _ domain.Actor, _ uint, from, to *time.Time) ([]domain.FuelMovement, error) {
	s.from, s.to = from, to
	return []domain.FuelMovement{}, nil
}

func stockRouter(actor domain.Actor, svc StockService) *gin.Engine {
	h := NewStockHandler(svc)
	r := newTestRouter(actor)
	r.POST("/fuel-stocks/:id/add", h.HandleAddFuel)
	r.POST("/fuel-stocks/:id/remove", h.HandleRemoveFuel)
	r.GET("/fuel-movements/stations/:stationID", h.HandleListStationMovements)

	return r
}

func TestHandleStockMovements(t *testing.T) {
	t.Run("add", func(t *testing.T) {
		svc := &stubStocks{}
		r := stockRouter(manager, svc)

		rec := do(t, r, http.MethodPost, "/fuel-stocks/2/add", map[string]any{"quantity": 2000, "description": "livraison"})

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 2000.0, svc.added)
	})

	t.Run("zero quantity", func(t *testing.T) {
		svc := &stubStocks{}
		r := stockRouter(manager, svc)

		rec := do(t, r, http.MethodPost, "/fuel-stocks/2/add", map[string]any{"quantity": 0})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Zero(t, svc.added)
	})

	t.Run("stranger", func(t *testing.T) {
		r := stockRouter(manager, &stubStocks{addErr: domain.ErrNotStationManager})

		rec := do(t, r, http.MethodPost, "/fuel-stocks/2/add", map[string]any{"quantity": 10})

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("remove below zero", func(t *testing.T) {
		r := stockRouter(manager, &stubStocks{})

		rec := do(t, r, http.MethodPost, "/fuel-stocks/2/remove", map[string]any{"quantity": 10})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "INSUFFICIENT_STOCK", decodeErr(t, rec).ErrorCode)
	})

	t.Run("station movements with range", func(t *testing.T) {
		svc := &stubStocks{}
		r := stockRouter(manager, svc)

		rec := do(t, r, http.MethodGet, "/fuel-movements/stations/1?start=2025-03-01", nil)

		require.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, svc.from)
		assert.Equal(t, "2025-03-01", svc.from.Format(domain.DateLayout))
		assert.Nil(t, svc.to)
	})
}

type stubTrigger struct {
	report domain.ExpirationReport
	err    error
}

func (s stubTrigger) Trigger(context.Context) (domain.ExpirationReport, error) {
	return s.report, s.err
}

func TestHandleExpireTickets(t *testing.T) {
	t.Run("report", func(t *testing.T) {
		r := newTestRouter(domain.Actor{UserID: 99, Role: domain.RoleAdmin})
		r.POST("/admin/tickets/expire", NewAdminHandler(stubTrigger{report: domain.ExpirationReport{Expired: 2, Renewed: 1, Unallocated: 1}}).HandleExpireTickets)

		rec := do(t, r, http.MethodPost, "/admin/tickets/expire", nil)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"expired":2,"renewed":1,"unallocated":1,"failed":0}`, rec.Body.String())
	})

	t.Run("already running", func(t *testing.T) {
		r := newTestRouter(domain.Actor{UserID: 99, Role: domain.RoleAdmin})
		r.POST("/admin/tickets/expire", NewAdminHandler(stubTrigger{err: domain.ErrExpirationRunning}).HandleExpireTickets)

		rec := do(t, r, http.MethodPost, "/admin/tickets/expire", nil)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

type nopHub struct{}

func (nopHub) Serve(*websocket.Conn, uint) error { return nil }

func TestHandleStationFeed_Forbidden(t *testing.T) {
	r := newTestRouter(manager)
	r.GET("/stations/:stationID/feed", NewFeedHandler(nopHub{}, nil).HandleStationFeed)

	rec := do(t, r, http.MethodGet, "/stations/2/feed", nil)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHandleHealthcheck(t *testing.T) {
	r := newTestRouter(domain.Actor{})
	r.GET("/", HandleHealthcheck)

	rec := do(t, r, http.MethodGet, "/", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
