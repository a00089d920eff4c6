package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"pos-server/internal/logger"
	"pos-server/internal/models"
)

// Handler handles HTTP requests for the billing service
type Handler struct {
	service *Service
	logger  *logger.Logger
}

// NewHandler creates a new billing handler
func NewHandler(service *Service, log *logger.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  log,
	}
}

// CloseResponse is returned when a PUT triggers (or retries) a close.
type CloseResponse struct {
	Message string       `json:"message"`
	Bill    *models.Bill `json:"bill,omitempty"`
}

// PrintResponse is returned by the print-bill dispatch endpoint.
type PrintResponse struct {
	Status string `json:"status"`
	SeatNo int    `json:"seat_no"`
}

// Orders handles GET /orders and POST /orders
func (h *Handler) Orders(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listOrders(w, r)
	case http.MethodPost:
		h.createOrder(w, r)
	default:
		h.writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed", "")
	}
}

// listOrders returns the full active seat -> order mapping.
func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	requestID := logger.GenerateRequestID()
	orders := h.service.ListOrders(r.Context(), requestID)
	h.writeJSON(w, http.StatusOK, orders, requestID)
}

// createOrder opens a new order for a seat.
func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	requestID := logger.GenerateRequestID()

	if r.Header.Get("Content-Type") != "application/json" {
		h.writeErrorResponse(w, http.StatusBadRequest, "Content-Type must be application/json", requestID)
		return
	}

	// Unknown fields are deliberately allowed: client-carried keys pass
	// through the order document untouched.
	var order models.Order
	if err := json.NewDecoder(r.Body).Decode(&order); err != nil {
		h.logger.Error("validation_failed", "Failed to parse request body", requestID, err, nil)
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid JSON format", requestID)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	created, err := h.service.CreateOrder(ctx, order, requestID)
	if err != nil {
		var vErr models.ValidationError
		switch {
		case errors.As(err, &vErr):
			h.logger.Error("validation_failed", "Order creation validation failed", requestID, err, map[string]interface{}{
				"seat_no": order.SeatNo,
			})
			h.writeErrorResponse(w, http.StatusBadRequest, err.Error(), requestID)
		case errors.Is(err, ErrSeatActive):
			h.writeErrorResponse(w, http.StatusConflict,
				fmt.Sprintf("Seat %d already has an active order", order.SeatNo), requestID)
		default:
			h.logger.Error("order_creation_failed", "Failed to create order", requestID, err, map[string]interface{}{
				"seat_no": order.SeatNo,
			})
			h.writeErrorResponse(w, http.StatusInternalServerError, "Internal server error", requestID)
		}
		return
	}

	h.writeJSON(w, http.StatusCreated, created, requestID)
}

// UpdateOrder handles PUT /orders/{seatNo}: wholesale replace, or close when
// the payload carries the closed flag.
func (h *Handler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	requestID := logger.GenerateRequestID()

	if r.Method != http.MethodPut {
		h.writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed", requestID)
		return
	}

	seatNo, ok := extractSeatNo(r.URL.Path)
	if !ok {
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid seat number", requestID)
		return
	}

	var incoming models.Order
	if err := json.NewDecoder(r.Body).Decode(&incoming); err != nil {
		h.logger.Error("validation_failed", "Failed to parse request body", requestID, err, nil)
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid JSON format", requestID)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	result, err := h.service.UpdateOrder(ctx, seatNo, incoming, requestID)
	if err != nil {
		var vErr models.ValidationError
		switch {
		case errors.As(err, &vErr):
			h.writeErrorResponse(w, http.StatusBadRequest, err.Error(), requestID)
		case errors.Is(err, ErrOrderNotFound):
			h.writeErrorResponse(w, http.StatusNotFound,
				fmt.Sprintf("No active order for seat %d", seatNo), requestID)
		default:
			h.logger.Error("order_update_failed", "Failed to update order", requestID, err, map[string]interface{}{
				"seat_no": seatNo,
			})
			h.writeErrorResponse(w, http.StatusInternalServerError, "Internal server error", requestID)
		}
		return
	}

	if result.Bill != nil || result.AlreadyClosed {
		h.writeJSON(w, http.StatusOK, CloseResponse{Message: result.Message, Bill: result.Bill}, requestID)
		return
	}

	h.writeJSON(w, http.StatusOK, result.Order, requestID)
}

// PrintedBills handles GET /printed-bills
func (h *Handler) PrintedBills(w http.ResponseWriter, r *http.Request) {
	requestID := logger.GenerateRequestID()

	if r.Method != http.MethodGet {
		h.writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed", requestID)
		return
	}

	bills := h.service.PrintedBills(r.Context(), requestID)
	h.writeJSON(w, http.StatusOK, bills, requestID)
}

// PrintBill handles POST /print-bill: dispatches an archived bill to the
// receipt sink. This path never mutates billing data.
func (h *Handler) PrintBill(w http.ResponseWriter, r *http.Request) {
	requestID := logger.GenerateRequestID()

	if r.Method != http.MethodPost {
		h.writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed", requestID)
		return
	}

	var bill models.Bill
	if err := json.NewDecoder(r.Body).Decode(&bill); err != nil {
		h.logger.Error("validation_failed", "Failed to parse request body", requestID, err, nil)
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid JSON format", requestID)
		return
	}

	if err := bill.ValidateForPrint(); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, err.Error(), requestID)
		return
	}

	outcome, err := h.service.PrintBill(r.Context(), &bill, requestID)
	if err != nil {
		h.writeErrorResponse(w, http.StatusInternalServerError, "Failed to print bill", requestID)
		return
	}

	h.writeJSON(w, http.StatusOK, PrintResponse{Status: outcome, SeatNo: bill.SeatNo}, requestID)
}

// PrinterStatus handles GET /printers/status
func (h *Handler) PrinterStatus(w http.ResponseWriter, r *http.Request) {
	requestID := logger.GenerateRequestID()

	if r.Method != http.MethodGet {
		h.writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed", requestID)
		return
	}

	printers := h.service.ListPrinters(r.Context(), requestID)
	h.writeJSON(w, http.StatusOK, printers, requestID)
}

// HealthCheck handles GET /health requests
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed", "")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	healthy := h.service.HealthCheck(ctx)

	response := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "pos-server",
		"healthy":   healthy,
	}

	w.Header().Set("Content-Type", "application/json")

	if healthy {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
		response["status"] = "unhealthy"
	}

	json.NewEncoder(w).Encode(response)
}

// extractSeatNo parses the seat number from an /orders/{seatNo} path.
func extractSeatNo(path string) (int, bool) {
	rest := strings.TrimPrefix(path, "/orders/")
	if rest == "" || strings.Contains(rest, "/") {
		return 0, false
	}
	seatNo, err := strconv.Atoi(rest)
	if err != nil || seatNo <= 0 {
		return 0, false
	}
	return seatNo, true
}

// writeJSON writes a successful JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, statusCode int, payload interface{}, requestID string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("response_encoding_failed", "Failed to encode response", requestID, err, nil)
	}
}

// writeErrorResponse writes an error response in JSON format
func (h *Handler) writeErrorResponse(w http.ResponseWriter, statusCode int, message, requestID string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	errorResponse := map[string]interface{}{
		"error":      message,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"request_id": requestID,
	}

	json.NewEncoder(w).Encode(errorResponse)
}

// SetupRoutes sets up the HTTP routes
func (h *Handler) SetupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/orders", h.withLogging(h.Orders))
	mux.HandleFunc("/orders/", h.withLogging(h.UpdateOrder))
	mux.HandleFunc("/printed-bills", h.withLogging(h.PrintedBills))
	mux.HandleFunc("/print-bill", h.withLogging(h.PrintBill))
	mux.HandleFunc("/printers/status", h.withLogging(h.PrinterStatus))
	mux.HandleFunc("/health", h.withLogging(h.HealthCheck))

	return mux
}

// withLogging adds request logging middleware
func (h *Handler) withLogging(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := logger.GenerateRequestID()

		h.logger.Debug("request_started",
			fmt.Sprintf("%s %s", r.Method, r.URL.Path),
			requestID,
			map[string]interface{}{
				"method":      r.Method,
				"path":        r.URL.Path,
				"remote_addr": r.RemoteAddr,
				"user_agent":  r.Header.Get("User-Agent"),
			})

		rw := &responseWriter{ResponseWriter: w, statusCode: 200}

		next(rw, r)

		duration := time.Since(start)
		h.logger.Debug("request_completed",
			fmt.Sprintf("%s %s - %d", r.Method, r.URL.Path, rw.statusCode),
			requestID,
			map[string]interface{}{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status_code": rw.statusCode,
				"duration_ms": duration.Milliseconds(),
			})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
