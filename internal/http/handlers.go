package http

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/utilityops/ums-backend/internal/domain"
	"github.com/utilityops/ums-backend/internal/service"
	"github.com/utilityops/ums-backend/internal/store"
)

// Register mounts every API route. Handlers parse typed requests, call
// the injected services and map domain errors to HTTP statuses; no
// business logic lives here.
func Register(app *fiber.App, svcs *service.Services) {
	api := app.Group("/api")

	api.Get("/initial-data", func(c *fiber.Ctx) error {
		snap, err := svcs.Store.Snapshot(c.Context())
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(snap)
	})

	api.Get("/dashboard/stats", func(c *fiber.Ctx) error {
		stats, err := svcs.Reports.Dashboard(c.Context())
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(stats)
	})

	registerCustomers(api, svcs)
	registerMeters(api, svcs)
	registerBilling(api, svcs)
	registerPayments(api, svcs)
	registerTariffs(api, svcs)
	registerComplaints(api, svcs)
	registerReports(api, svcs)

	api.Post("/auth/login", func(c *fiber.Ctx) error {
		var req struct {
			Username string `json:"username"`
		}
		if err := c.BodyParser(&req); err != nil {
			return fail(c, err)
		}
		user, err := svcs.Auth.Login(c.Context(), req.Username)
		if errors.Is(err, domain.ErrNotFound) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "error": "Invalid credentials"})
		}
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"success": true, "user": user})
	})
}

type customerRequest struct {
	Name           string  `json:"name"`
	FirstName      string  `json:"firstName"`
	LastName       string  `json:"lastName"`
	Address        string  `json:"address"`
	Phone          string  `json:"phone"`
	Email          *string `json:"email"`
	CustomerTypeID int     `json:"customerTypeId"`
}

// splitName falls back to splitting a single display name when the
// caller does not send first/last separately.
func (r *customerRequest) splitName() (string, string) {
	first, last := r.FirstName, r.LastName
	if first == "" && r.Name != "" {
		parts := strings.SplitN(r.Name, " ", 2)
		first = parts[0]
		if len(parts) > 1 && last == "" {
			last = parts[1]
		}
	}
	return first, last
}

func registerCustomers(api fiber.Router, svcs *service.Services) {
	api.Get("/customers", func(c *fiber.Ctx) error {
		items, err := svcs.Store.ListCustomers(c.Context())
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(items)
	})

	api.Get("/customers/:id", func(c *fiber.Ctx) error {
		cust, err := svcs.Store.GetCustomer(c.Context(), c.Params("id"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(cust)
	})

	api.Post("/customers", func(c *fiber.Ctx) error {
		var req customerRequest
		if err := c.BodyParser(&req); err != nil {
			return fail(c, err)
		}
		first, last := req.splitName()
		if req.CustomerTypeID == 0 {
			req.CustomerTypeID = 1
		}
		id := domain.NewID(domain.PrefixCustomer)
		email := strings.ToLower(id) + "@email.com"
		if req.Email != nil {
			email = *req.Email
		}
		cust := &domain.Customer{
			ID:             id,
			FirstName:      first,
			LastName:       last,
			Name:           strings.TrimSpace(first + " " + last),
			Address:        req.Address,
			Phone:          req.Phone,
			Email:          email,
			CustomerTypeID: req.CustomerTypeID,
			Status:         domain.CustomerActive,
		}
		if err := svcs.Store.CreateCustomer(c.Context(), cust); err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"success": true, "message": "Customer added", "id": id})
	})

	api.Put("/customers/:id", func(c *fiber.Ctx) error {
		var req customerRequest
		if err := c.BodyParser(&req); err != nil {
			return fail(c, err)
		}
		first, last := req.splitName()
		upd := store.CustomerUpdate{
			FirstName: first,
			LastName:  last,
			Address:   req.Address,
			Phone:     req.Phone,
			Email:     req.Email,
		}
		if err := svcs.Store.UpdateCustomer(c.Context(), c.Params("id"), upd); err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"success": true, "message": "Customer updated"})
	})

	api.Delete("/customers/:id", func(c *fiber.Ctx) error {
		if err := svcs.Store.DeleteCustomer(c.Context(), c.Params("id")); err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"success": true, "message": "Customer and all related data deleted"})
	})
}

func registerMeters(api fiber.Router, svcs *service.Services) {
	api.Get("/meters", func(c *fiber.Ctx) error {
		items, err := svcs.Store.ListMeters(c.Context())
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(items)
	})

	api.Post("/meters", func(c *fiber.Ctx) error {
		var req struct {
			ID          string          `json:"id"`
			CustomerID  string          `json:"customerId"`
			TypeID      int             `json:"typeId"`
			LastReading decimal.Decimal `json:"lastReading"`
			Status      string          `json:"status"`
		}
		if err := c.BodyParser(&req); err != nil {
			return fail(c, err)
		}
		if req.ID == "" {
			req.ID = domain.NewID(domain.PrefixMeter)
		}
		if req.Status == "" {
			req.Status = string(domain.MeterActive)
		}
		m := &domain.Meter{
			ID:          req.ID,
			CustomerID:  req.CustomerID,
			TypeID:      req.TypeID,
			LastReading: req.LastReading,
			Status:      domain.MeterStatus(req.Status),
		}
		if err := svcs.Store.CreateMeter(c.Context(), m); err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"success": true, "message": "Meter added", "id": m.ID})
	})

	api.Delete("/meters/:id", func(c *fiber.Ctx) error {
		if err := svcs.Store.DeleteMeter(c.Context(), c.Params("id")); err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"success": true, "message": "Meter removed"})
	})
}

func registerBilling(api fiber.Router, svcs *service.Services) {
	api.Post("/add-reading", func(c *fiber.Ctx) error {
		var req struct {
			MeterID        string          `json:"meterId"`
			CurrentReading decimal.Decimal `json:"currentReading"`
			ReadBy         string          `json:"readBy"`
		}
		if err := c.BodyParser(&req); err != nil {
			return fail(c, err)
		}
		if req.ReadBy == "" {
			req.ReadBy = "Field Officer"
		}
		res, err := svcs.Billing.SubmitReading(c.Context(), req.MeterID, req.CurrentReading, req.ReadBy)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{
			"success": true,
			"billId":  res.BillID,
			"amount":  res.Amount,
			"message": "Reading submitted and bill generated",
		})
	})

	api.Get("/readings", func(c *fiber.Ctx) error {
		items, err := svcs.Store.ListReadings(c.Context())
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(items)
	})

	api.Get("/bills", func(c *fiber.Ctx) error {
		items, err := svcs.Store.ListBills(c.Context())
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(items)
	})

	api.Get("/bills/unpaid", func(c *fiber.Ctx) error {
		items, err := svcs.Store.ListUnpaidBills(c.Context())
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(items)
	})

	api.Get("/bills/overdue", func(c *fiber.Ctx) error {
		items, err := svcs.Store.ListOverdueBills(c.Context())
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(items)
	})
}

func registerPayments(api fiber.Router, svcs *service.Services) {
	api.Post("/pay-bill", func(c *fiber.Ctx) error {
		var req struct {
			BillID        string          `json:"billId"`
			Amount        decimal.Decimal `json:"amount"`
			PaymentMethod string          `json:"paymentMethod"`
			ProcessedBy   string          `json:"processedBy"`
		}
		if err := c.BodyParser(&req); err != nil {
			return fail(c, err)
		}
		payment, _, err := svcs.Payments.PayBill(c.Context(), req.BillID, req.Amount,
			domain.PaymentMethod(req.PaymentMethod), req.ProcessedBy)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"success": true, "message": "Payment processed", "paymentId": payment.ID})
	})

	api.Get("/payments", func(c *fiber.Ctx) error {
		items, err := svcs.Store.ListPayments(c.Context())
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(items)
	})
}

func registerTariffs(api fiber.Router, svcs *service.Services) {
	api.Get("/tariffs", func(c *fiber.Ctx) error {
		items, err := svcs.Store.ListTariffs(c.Context())
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(items)
	})

	api.Put("/tariffs/:id", func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil {
			return fail(c, err)
		}
		var req struct {
			Name  string          `json:"name"`
			Rate  decimal.Decimal `json:"rate"`
			Fixed decimal.Decimal `json:"fixed"`
		}
		if err := c.BodyParser(&req); err != nil {
			return fail(c, err)
		}
		upd := store.TariffUpdate{Name: req.Name, Rate: req.Rate, Fixed: req.Fixed}
		if err := svcs.Store.UpdateTariff(c.Context(), int64(id), upd); err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"success": true, "message": "Tariff updated"})
	})
}

func registerComplaints(api fiber.Router, svcs *service.Services) {
	api.Get("/complaints", func(c *fiber.Ctx) error {
		items, err := svcs.Complaints.List(c.Context())
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(items)
	})

	api.Post("/complaints", func(c *fiber.Ctx) error {
		var req struct {
			CustomerID  string  `json:"customerId"`
			MeterID     *string `json:"meterId"`
			Category    string  `json:"category"`
			Subject     string  `json:"subject"`
			Description string  `json:"description"`
			Priority    string  `json:"priority"`
		}
		if err := c.BodyParser(&req); err != nil {
			return fail(c, err)
		}
		complaint, err := svcs.Complaints.Register(c.Context(), service.RegisterInput{
			CustomerID:  req.CustomerID,
			MeterID:     req.MeterID,
			Category:    req.Category,
			Subject:     req.Subject,
			Description: req.Description,
			Priority:    domain.ComplaintPriority(req.Priority),
		})
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"success": true, "message": "Complaint registered", "id": complaint.ID})
	})

	api.Put("/complaints/:id", func(c *fiber.Ctx) error {
		var req struct {
			Status     string  `json:"status"`
			Resolution *string `json:"resolution"`
			AssignedTo *string `json:"assignedTo"`
		}
		if err := c.BodyParser(&req); err != nil {
			return fail(c, err)
		}
		_, err := svcs.Complaints.Update(c.Context(), c.Params("id"), store.ComplaintUpdate{
			Status:     domain.ComplaintStatus(req.Status),
			Resolution: req.Resolution,
			AssignedTo: req.AssignedTo,
		})
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"success": true, "message": "Complaint updated"})
	})
}

func registerReports(api fiber.Router, svcs *service.Services) {
	api.Get("/reports/revenue", func(c *fiber.Ctx) error {
		year := c.QueryInt("year")
		month := c.QueryInt("month")
		items, err := svcs.Reports.Revenue(c.Context(), year, month)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(items)
	})

	api.Get("/reports/defaulters", func(c *fiber.Ctx) error {
		items, err := svcs.Reports.Defaulters(c.Context(), c.QueryInt("minDays", 30))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(items)
	})

	api.Post("/reports/defaulters/notify", func(c *fiber.Ctx) error {
		n, err := svcs.Reports.NotifyDefaulters(c.Context(), c.QueryInt("minDays", 30))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"success": true, "message": "Defaulter summary published", "notified": n})
	})

	api.Get("/reports/top-consumers", func(c *fiber.Ctx) error {
		items, err := svcs.Reports.TopConsumers(c.Context(),
			c.QueryInt("utilityType"), c.QueryInt("limit", 10))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(items)
	})

	api.Get("/reports/monthly/:year/:month", func(c *fiber.Ctx) error {
		year, err := c.ParamsInt("year")
		if err != nil {
			return fail(c, err)
		}
		month, err := c.ParamsInt("month")
		if err != nil {
			return fail(c, err)
		}
		rep, err := svcs.Reports.Monthly(c.Context(), year, month)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(rep)
	})

	api.Post("/reports/monthly/:year/:month/export", func(c *fiber.Ctx) error {
		year, err := c.ParamsInt("year")
		if err != nil {
			return fail(c, err)
		}
		month, err := c.ParamsInt("month")
		if err != nil {
			return fail(c, err)
		}
		url, err := svcs.Reports.ExportMonthly(c.Context(), year, month)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"success": true, "url": url})
	})

	api.Get("/reports/exports", func(c *fiber.Ctx) error {
		keys, err := svcs.Reports.ListExports(c.Context())
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"success": true, "reports": keys})
	})
}

// fail maps domain errors to HTTP statuses. Everything unexpected is a 500.
func fail(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		code = fiber.StatusNotFound
	case errors.Is(err, domain.ErrInvalidReading), errors.Is(err, domain.ErrInvalidAmount):
		code = fiber.StatusBadRequest
	case errors.Is(err, domain.ErrNoTariff):
		code = fiber.StatusConflict
	case errors.Is(err, service.ErrCloudDisabled):
		code = fiber.StatusNotImplemented
	}
	return c.Status(code).JSON(fiber.Map{"success": false, "error": err.Error()})
}
