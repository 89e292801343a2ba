package transport

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"billing-ledger/internal/domain"
	"billing-ledger/internal/infrastructure/gateway"
	"billing-ledger/internal/repo"
	"billing-ledger/internal/service"
)

const maxImageBytes = 10 << 20

// HealthChecker reports on the backing database.
type HealthChecker interface {
	Health(ctx context.Context) map[string]string
}

type Handler struct {
	Ledger    service.Ledger
	Assistant service.Assistant
	Customers repo.CustomerRepo
	Orders    repo.OrderRepo
	Goods     repo.GoodsRepo
	Settings  repo.SettingsRepo
	Health    HealthChecker
	Location  *time.Location
	Now       func() time.Time
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h *Handler) location() *time.Location {
	if h.Location != nil {
		return h.Location
	}
	return time.UTC
}

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
	// Item is the 1-based line item the error refers to.
	Item int `json:"item,omitempty"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrRecognition), errors.Is(err, domain.ErrAnalysis):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, err error) {
	_ = c.Error(err)
	resp := errorResponse{Error: err.Error()}

	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		resp.Field = verr.Field
		if verr.Index >= 0 {
			resp.Item = verr.Index + 1
		}
	}
	c.AbortWithStatusJSON(statusFor(err), resp)
}

func badRequest(c *gin.Context, err error) {
	respondError(c, domain.NewValidationError("body", err.Error()))
}

func (h *Handler) health(c *gin.Context) {
	status := map[string]string{"status": "up"}
	if h.Health != nil {
		status = h.Health.Health(c.Request.Context())
	}
	code := http.StatusOK
	if status["status"] == "down" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, status)
}

// Customers

type createCustomerRequest struct {
	Name  string `json:"name" binding:"required"`
	Phone string `json:"phone"`
	Email string `json:"email" binding:"omitempty,email"`
}

func (h *Handler) listCustomers(c *gin.Context) {
	c.JSON(http.StatusOK, h.Customers.Search(c.Request.Context(), c.Query("q")))
}

func (h *Handler) createCustomer(c *gin.Context) {
	var req createCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	customer, err := h.Customers.Add(c.Request.Context(), req.Name, req.Phone, req.Email)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, customer)
}

func (h *Handler) getCustomer(c *gin.Context) {
	customer, err := h.Customers.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, customer)
}

// Orders

type placeOrderRequest struct {
	Items      []domain.LineItemInput `json:"items" binding:"required"`
	CustomerID string                 `json:"customerId"`
}

type placeOrderFailure struct {
	errorResponse
	Order *domain.Order `json:"order"`
}

func (h *Handler) listOrders(c *gin.Context) {
	c.JSON(http.StatusOK, h.Orders.List(c.Request.Context()))
}

func (h *Handler) placeOrder(c *gin.Context) {
	var req placeOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	order, err := h.Ledger.PlaceOrder(c.Request.Context(), req.Items, req.CustomerID)
	if err != nil && order != nil {
		// saved, but the customer was not updated
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, placeOrderFailure{
			errorResponse: errorResponse{Error: err.Error()},
			Order:         order,
		})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (h *Handler) getOrder(c *gin.Context) {
	order, err := h.Orders.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// Status stays a plain string so unknown values reach ParseOrderStatus
// instead of being read leniently like stored data.
type setStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *Handler) setOrderStatus(c *gin.Context) {
	var req setStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	order, err := h.Ledger.SetOrderStatus(c.Request.Context(), c.Param("id"), domain.OrderStatus(req.Status))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) receipt(c *gin.Context) {
	text, err := h.Ledger.Receipt(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.String(http.StatusOK, text)
}

// Reports

func (h *Handler) dashboard(c *gin.Context) {
	c.JSON(http.StatusOK, h.Ledger.Dashboard(c.Request.Context(), h.now()))
}

func (h *Handler) dailySales(c *gin.Context) {
	ref := h.now()
	if date := c.Query("date"); date != "" {
		parsed, err := time.ParseInLocation(domain.DateLayout, date, h.location())
		if err != nil {
			respondError(c, domain.NewValidationError("date", "date must be YYYY-MM-DD"))
			return
		}
		ref = parsed
	}
	c.JSON(http.StatusOK, h.Orders.DailySales(c.Request.Context(), ref))
}

func (h *Handler) salesTrend(c *gin.Context) {
	days := 7
	if raw := c.Query("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 366 {
			respondError(c, domain.NewValidationError("days", "days must be between 1 and 366"))
			return
		}
		days = n
	}
	c.JSON(http.StatusOK, h.Orders.SalesTrend(c.Request.Context(), h.now(), days))
}

func (h *Handler) debts(c *gin.Context) {
	c.JSON(http.StatusOK, h.Ledger.DebtSummary(c.Request.Context()))
}

// Goods

type addGoodsRequest struct {
	Name string `json:"name" binding:"required"`
}

func (h *Handler) listGoods(c *gin.Context) {
	c.JSON(http.StatusOK, h.Goods.List(c.Request.Context()))
}

func (h *Handler) addGoods(c *gin.Context) {
	var req addGoodsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	goods, err := h.Goods.Add(c.Request.Context(), req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, goods)
}

// Settings

func (h *Handler) getSettings(c *gin.Context) {
	c.JSON(http.StatusOK, h.Settings.Get(c.Request.Context()).Masked())
}

func (h *Handler) saveSettings(c *gin.Context) {
	var req repo.SettingsUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	settings, err := h.Settings.Save(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings.Masked())
}

// Assistant

func (h *Handler) recognize(c *gin.Context) {
	header, err := c.FormFile("image")
	if err != nil {
		respondError(c, domain.NewValidationError("image", "multipart field image is required"))
		return
	}
	if header.Size > maxImageBytes {
		respondError(c, domain.NewValidationError("image", "image is too large"))
		return
	}
	f, err := header.Open()
	if err != nil {
		respondError(c, errors.Wrap(err, "open upload"))
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxImageBytes))
	if err != nil {
		respondError(c, errors.Wrap(err, "read upload"))
		return
	}
	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}

	drafts, err := h.Assistant.RecognizeOrder(c.Request.Context(), gateway.Image{Data: data, MimeType: mimeType})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": drafts})
}

type analyzeRequest struct {
	Question string `json:"question" binding:"required"`
}

func (h *Handler) analyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	answer, err := h.Assistant.AnalyzeDemand(c.Request.Context(), req.Question)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"answer": answer})
}

func (h *Handler) reset(c *gin.Context) {
	if err := h.Ledger.Reset(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
