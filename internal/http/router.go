package http

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cable-backend/internal/handlers"
	"cable-backend/internal/middleware"
)

func NewRouter(
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	customerHandler *handlers.CustomerHandler,
	actionRequestHandler *handlers.ActionRequestHandler,
	vcInventoryHandler *handlers.VCInventoryHandler,
	paymentHandler *handlers.PaymentHandler,
	planHandler *handlers.PlanHandler,
	reportHandler *handlers.ReportHandler,
	razorpayHandler *handlers.RazorpayHandler,
	dashboardHandler *handlers.DashboardHandler,
	systemSettingHandler *handlers.SystemSettingHandler,
	totpHandler *handlers.TOTPHandler,
	adminActionLogHandler *handlers.AdminActionLogHandler,
	loginLogHandler *handlers.LoginLogHandler,
	backupHandler *handlers.BackupHandler,
	healthHandler *handlers.HealthHandler,
	authMiddleware *middleware.AuthMiddleware,
) *mux.Router {
	r := mux.NewRouter()

	admin := authMiddleware.RequireAdmin

	// Public API routes - Authentication
	r.HandleFunc("/auth/signup", authHandler.Signup).Methods("POST")
	r.HandleFunc("/auth/login", authHandler.Login).Methods("POST")

	// Razorpay webhook is called by the gateway, authenticated by signature
	r.HandleFunc("/api/razorpay/webhook", razorpayHandler.HandleWebhook).Methods("POST")

	// Protected API routes - current session
	authAPI := r.PathPrefix("/api/auth").Subrouter()
	authAPI.Use(authMiddleware.Authenticate)
	authAPI.HandleFunc("/me", authHandler.Me).Methods("GET")
	authAPI.HandleFunc("/logout", authHandler.Logout).Methods("POST")

	// Protected API routes - Customers
	customersAPI := r.PathPrefix("/api/customers").Subrouter()
	customersAPI.Use(authMiddleware.Authenticate)
	customersAPI.HandleFunc("", customerHandler.ListCustomers).Methods("GET")
	customersAPI.HandleFunc("", customerHandler.CreateCustomer).Methods("POST")
	customersAPI.HandleFunc("/search", customerHandler.SearchByVC).Methods("GET")
	customersAPI.HandleFunc("/areas", customerHandler.ListAreas).Methods("GET")
	customersAPI.HandleFunc("/{id}", customerHandler.GetCustomer).Methods("GET")
	customersAPI.HandleFunc("/{id}", customerHandler.UpdateCustomer).Methods("PUT")
	customersAPI.HandleFunc("/{id}", admin(http.HandlerFunc(customerHandler.DeleteCustomer)).ServeHTTP).Methods("DELETE")

	// Protected API routes - Action Requests (approval workflow)
	requestsAPI := r.PathPrefix("/api/action-requests").Subrouter()
	requestsAPI.Use(authMiddleware.Authenticate)
	requestsAPI.HandleFunc("", actionRequestHandler.Submit).Methods("POST")
	requestsAPI.HandleFunc("", actionRequestHandler.List).Methods("GET")
	requestsAPI.HandleFunc("/pending", actionRequestHandler.ListPending).Methods("GET")
	requestsAPI.HandleFunc("/{id}", actionRequestHandler.Get).Methods("GET")
	requestsAPI.HandleFunc("/{id}/approve", admin(http.HandlerFunc(actionRequestHandler.Approve)).ServeHTTP).Methods("POST")
	requestsAPI.HandleFunc("/{id}/reject", admin(http.HandlerFunc(actionRequestHandler.Reject)).ServeHTTP).Methods("POST")

	// Protected API routes - VC Inventory
	vcAPI := r.PathPrefix("/api/vc-inventory").Subrouter()
	vcAPI.Use(authMiddleware.Authenticate)
	vcAPI.HandleFunc("", vcInventoryHandler.ListItems).Methods("GET")
	vcAPI.HandleFunc("", admin(http.HandlerFunc(vcInventoryHandler.CreateItem)).ServeHTTP).Methods("POST")
	vcAPI.HandleFunc("/status-counts", vcInventoryHandler.StatusCounts).Methods("GET")
	vcAPI.HandleFunc("/number/{vc}", vcInventoryHandler.GetByNumber).Methods("GET")
	vcAPI.HandleFunc("/{id}", vcInventoryHandler.GetItem).Methods("GET")
	vcAPI.HandleFunc("/{id}", admin(http.HandlerFunc(vcInventoryHandler.DeleteItem)).ServeHTTP).Methods("DELETE")
	vcAPI.HandleFunc("/{id}/status", vcInventoryHandler.ChangeStatus).Methods("POST")
	vcAPI.HandleFunc("/{id}/reassign", vcInventoryHandler.Reassign).Methods("POST")
	vcAPI.HandleFunc("/{id}/release", vcInventoryHandler.Release).Methods("POST")
	vcAPI.HandleFunc("/{id}/package", vcInventoryHandler.UpdatePackage).Methods("PUT")

	// Protected API routes - Payments and ledger
	paymentsAPI := r.PathPrefix("/api/payments").Subrouter()
	paymentsAPI.Use(authMiddleware.Authenticate)
	paymentsAPI.HandleFunc("", paymentHandler.RecordPayment).Methods("POST")
	paymentsAPI.HandleFunc("", paymentHandler.ListPayments).Methods("GET")
	paymentsAPI.HandleFunc("/summary", paymentHandler.CollectionSummary).Methods("GET")
	paymentsAPI.HandleFunc("/receipt/{receipt}", paymentHandler.GetByReceipt).Methods("GET")
	paymentsAPI.HandleFunc("/monthly-charges", admin(http.HandlerFunc(paymentHandler.PostMonthlyCharges)).ServeHTTP).Methods("POST")
	paymentsAPI.HandleFunc("/ledger/{id}", paymentHandler.CustomerLedger).Methods("GET")
	paymentsAPI.HandleFunc("/{id}", paymentHandler.GetPayment).Methods("GET")

	// Protected API routes - Plans
	plansAPI := r.PathPrefix("/api/plans").Subrouter()
	plansAPI.Use(authMiddleware.Authenticate)
	plansAPI.HandleFunc("", planHandler.ListPlans).Methods("GET")
	plansAPI.HandleFunc("", admin(http.HandlerFunc(planHandler.CreatePlan)).ServeHTTP).Methods("POST")
	plansAPI.HandleFunc("/{id}", planHandler.GetPlan).Methods("GET")
	plansAPI.HandleFunc("/{id}", admin(http.HandlerFunc(planHandler.UpdatePlan)).ServeHTTP).Methods("PUT")
	plansAPI.HandleFunc("/{id}", admin(http.HandlerFunc(planHandler.DeletePlan)).ServeHTTP).Methods("DELETE")

	// Protected API routes - Reports
	reportsAPI := r.PathPrefix("/api/reports").Subrouter()
	reportsAPI.Use(authMiddleware.Authenticate)
	reportsAPI.HandleFunc("/collection/pdf", reportHandler.GetCollectionPDF).Methods("GET")
	reportsAPI.HandleFunc("/collection/csv", reportHandler.GetCollectionCSV).Methods("GET")
	reportsAPI.HandleFunc("/outstanding/csv", reportHandler.GetOutstandingCSV).Methods("GET")
	reportsAPI.HandleFunc("/statement/{id}", reportHandler.GetCustomerStatement).Methods("GET")
	reportsAPI.HandleFunc("/receipt/{receipt}", reportHandler.GetReceiptPDF).Methods("GET")

	// Protected API routes - Online payments (Razorpay)
	razorpayAPI := r.PathPrefix("/api/razorpay").Subrouter()
	razorpayAPI.Use(authMiddleware.Authenticate)
	razorpayAPI.HandleFunc("/status", razorpayHandler.CheckPaymentStatus).Methods("GET")
	razorpayAPI.HandleFunc("/order", razorpayHandler.CreateOrder).Methods("POST")
	razorpayAPI.HandleFunc("/verify", razorpayHandler.VerifyPayment).Methods("POST")
	razorpayAPI.HandleFunc("/transactions", admin(http.HandlerFunc(razorpayHandler.ListTransactions)).ServeHTTP).Methods("GET")
	razorpayAPI.HandleFunc("/transactions/summary", admin(http.HandlerFunc(razorpayHandler.TransactionSummary)).ServeHTTP).Methods("GET")

	// Protected API routes - Dashboard
	dashboardAPI := r.PathPrefix("/api/dashboard").Subrouter()
	dashboardAPI.Use(authMiddleware.Authenticate)
	dashboardAPI.HandleFunc("/stats", dashboardHandler.GetStats).Methods("GET")

	// Protected API routes - Users (admin only)
	usersAPI := r.PathPrefix("/api/users").Subrouter()
	usersAPI.Use(admin)
	usersAPI.HandleFunc("", userHandler.ListUsers).Methods("GET")
	usersAPI.HandleFunc("", userHandler.CreateUser).Methods("POST")
	usersAPI.HandleFunc("/{id}", userHandler.GetUser).Methods("GET")
	usersAPI.HandleFunc("/{id}", userHandler.UpdateUser).Methods("PUT")
	usersAPI.HandleFunc("/{id}", userHandler.DeleteUser).Methods("DELETE")
	usersAPI.HandleFunc("/{id}/active", userHandler.SetActive).Methods("PATCH")

	// Protected API routes - System Settings
	settingsAPI := r.PathPrefix("/api/settings").Subrouter()
	settingsAPI.Use(authMiddleware.Authenticate)
	settingsAPI.HandleFunc("", systemSettingHandler.ListSettings).Methods("GET")
	settingsAPI.HandleFunc("/{key}", systemSettingHandler.GetSetting).Methods("GET")
	settingsAPI.HandleFunc("/{key}", admin(http.HandlerFunc(systemSettingHandler.UpdateSetting)).ServeHTTP).Methods("PUT")

	// Protected API routes - TOTP (2FA for admins)
	totpAPI := r.PathPrefix("/api/totp").Subrouter()
	totpAPI.Use(admin)
	totpAPI.HandleFunc("/setup", totpHandler.Setup).Methods("POST")
	totpAPI.HandleFunc("/enable", totpHandler.Enable).Methods("POST")
	totpAPI.HandleFunc("/disable", totpHandler.Disable).Methods("POST")
	totpAPI.HandleFunc("/status", totpHandler.Status).Methods("GET")

	// Protected API routes - Logs (admin only)
	actionLogsAPI := r.PathPrefix("/api/admin-action-logs").Subrouter()
	actionLogsAPI.Use(admin)
	actionLogsAPI.HandleFunc("", adminActionLogHandler.ListActionLogs).Methods("GET")

	loginLogsAPI := r.PathPrefix("/api/login-logs").Subrouter()
	loginLogsAPI.Use(admin)
	loginLogsAPI.HandleFunc("", loginLogHandler.ListLoginLogs).Methods("GET")

	// Protected API routes - Backups (admin only)
	backupAPI := r.PathPrefix("/api/backup").Subrouter()
	backupAPI.Use(admin)
	backupAPI.HandleFunc("/run", backupHandler.TriggerBackup).Methods("POST")
	backupAPI.HandleFunc("/status", backupHandler.BackupStatus).Methods("GET")

	// Health endpoints (no auth required - for probes)
	r.HandleFunc("/health", healthHandler.BasicHealth).Methods("GET")
	r.HandleFunc("/health/ready", healthHandler.ReadinessHealth).Methods("GET")
	r.HandleFunc("/health/detailed", healthHandler.DetailedHealth).Methods("GET")

	// Metrics endpoint (Prometheus format)
	r.Handle("/metrics", promhttp.Handler())

	return r
}
