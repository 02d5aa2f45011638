// api-mock is a development stand-in for the production backend. It serves
// the same envelope API the mobile apps talk to, backed by Postgres, with
// live updates over WebSocket and optional Kafka event publishing.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/shivdhaba/delivery-core/internal/events"
	"github.com/shivdhaba/delivery-core/internal/websocket"
)

type server struct {
	store    *store
	tokens   *tokenRegistry
	hub      *websocket.Hub
	producer *events.KafkaProducer
	logger   *logrus.Logger
}

var requestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "apimock_http_requests_total",
		Help: "HTTP requests served, by method, route and status code.",
	},
	[]string{"method", "route", "status"},
)

var requestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "apimock_http_request_duration_seconds",
		Help:    "HTTP request latency, by route.",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"route"},
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)

	dbHost := getEnv("DB_HOST", "localhost")
	dbPort := getEnv("DB_PORT", "5432")
	dbUser := getEnv("DB_USER", "shivdhaba")
	dbPassword := getEnv("DB_PASSWORD", "shivdhaba")
	dbName := getEnv("DB_NAME", "shivdhaba")

	// Kafka is optional for local work; leave KAFKA_BROKERS empty to run
	// without a broker.
	kafkaBrokers := getEnv("KAFKA_BROKERS", "")

	port := getEnv("API_MOCK_PORT", "8080")

	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		dbHost, dbPort, dbUser, dbPassword, dbName)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	for i := 0; i < 30; i++ {
		if err := db.Ping(); err == nil {
			logger.Info("Database connection established")
			break
		}
		logger.Info("Waiting for database...")
		time.Sleep(2 * time.Second)
	}

	if err := createTables(db); err != nil {
		logger.WithError(err).Fatal("Failed to create tables")
	}

	st := &store{db: db}
	if err := st.seedMenu(); err != nil {
		logger.WithError(err).Fatal("Failed to seed menu")
	}

	var producer *events.KafkaProducer
	if kafkaBrokers != "" {
		producer, err = events.NewKafkaProducer(kafkaBrokers, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to create Kafka producer")
		}
		defer producer.Close()
	} else {
		logger.Info("Kafka publishing disabled")
	}

	hub := websocket.NewHub(logger)
	go hub.Run()

	svc := &server{
		store:    st,
		tokens:   newTokenRegistry(),
		hub:      hub,
		producer: producer,
		logger:   logger,
	}

	router := mux.NewRouter()
	router.HandleFunc("/health", svc.handleHealth).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	router.HandleFunc("/ws", hub.HandleWebSocket)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(loggingMiddleware(logger))
	api.Use(metricsMiddleware)

	// Auth.
	api.HandleFunc("/auth/otp/send", svc.handleSendOtp("CUSTOMER")).Methods("POST")
	api.HandleFunc("/auth/otp/verify/customer", svc.handleVerifyOtp("CUSTOMER")).Methods("POST")
	api.HandleFunc("/auth/otp/verify/delivery", svc.handleVerifyOtp("DELIVERY")).Methods("POST")
	api.HandleFunc("/auth/admin/otp/send", svc.handleSendOtp("ADMIN")).Methods("POST")
	api.HandleFunc("/auth/admin/otp/verify", svc.handleVerifyOtp("ADMIN")).Methods("POST")
	api.HandleFunc("/auth/refresh", svc.handleRefresh).Methods("POST")

	// Customer app.
	customer := api.PathPrefix("/customer").Subrouter()
	customer.Use(svc.requireRole("CUSTOMER"))
	customer.HandleFunc("/menu/categories", svc.handleCustomerCategories).Methods("GET")
	customer.HandleFunc("/menu/items", svc.handleCustomerMenuItems).Methods("GET")
	customer.HandleFunc("/orders", svc.handlePlaceOrder).Methods("POST")
	customer.HandleFunc("/orders", svc.handleCustomerOrders).Methods("GET")
	customer.HandleFunc("/orders/{id:[0-9]+}", svc.handleCustomerOrder).Methods("GET")
	customer.HandleFunc("/orders/{id:[0-9]+}/cancel", svc.handleCustomerCancel).Methods("POST")

	// Delivery app.
	delivery := api.PathPrefix("/delivery").Subrouter()
	delivery.Use(svc.requireRole("DELIVERY"))
	delivery.HandleFunc("/orders/available", svc.handleAvailableOrders).Methods("GET")
	delivery.HandleFunc("/orders/my-orders", svc.handleMyOrders).Methods("GET")
	delivery.HandleFunc("/orders/{id:[0-9]+}/accept", svc.handleAcceptOrder).Methods("POST")
	delivery.HandleFunc("/orders/{id:[0-9]+}/update-location", svc.handleUpdateLocation).Methods("POST")
	delivery.HandleFunc("/orders/{id:[0-9]+}/deliver", svc.handleDeliverOrder).Methods("POST")
	delivery.HandleFunc("/status", svc.handleDutyStatus).Methods("PUT")
	delivery.HandleFunc("/fcm-token", svc.handleFCMToken).Methods("PUT")

	// Admin app.
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(svc.requireRole("ADMIN"))
	admin.HandleFunc("/orders", svc.handleAdminOrders).Methods("GET")
	admin.HandleFunc("/orders/{id:[0-9]+}", svc.handleAdminOrder).Methods("GET")
	admin.HandleFunc("/orders/{id:[0-9]+}/accept", svc.handleAdminAccept).Methods("POST")
	admin.HandleFunc("/orders/{id:[0-9]+}/reject", svc.handleAdminReject).Methods("POST")
	admin.HandleFunc("/orders/{id:[0-9]+}/status", svc.handleAdminStatus).Methods("PUT")
	admin.HandleFunc("/orders/{id:[0-9]+}/assign-delivery", svc.handleAdminAssign).Methods("PUT")
	admin.HandleFunc("/dashboard/stats", svc.handleDashboardStats).Methods("GET")
	admin.HandleFunc("/dashboard/sales-report", svc.handleSalesReport).Methods("GET")
	admin.HandleFunc("/menu/categories", svc.handleAdminCategories).Methods("GET")
	admin.HandleFunc("/menu/categories", svc.handleCreateCategory).Methods("POST")
	admin.HandleFunc("/menu/categories/{id:[0-9]+}", svc.handleUpdateCategory).Methods("PUT")
	admin.HandleFunc("/menu/categories/{id:[0-9]+}", svc.handleDeleteCategory).Methods("DELETE")
	admin.HandleFunc("/menu/categories/{id:[0-9]+}/toggle", svc.handleToggleCategory).Methods("PUT")
	admin.HandleFunc("/menu/items", svc.handleAdminMenuItems).Methods("GET")
	admin.HandleFunc("/menu/items", svc.handleCreateMenuItem).Methods("POST")
	admin.HandleFunc("/menu/items/{id:[0-9]+}", svc.handleUpdateMenuItem).Methods("PUT")
	admin.HandleFunc("/menu/items/{id:[0-9]+}", svc.handleDeleteMenuItem).Methods("DELETE")
	admin.HandleFunc("/menu/items/{id:[0-9]+}/toggle", svc.handleToggleMenuItem).Methods("PUT")
	admin.HandleFunc("/delivery-boys", svc.handleDeliveryBoys).Methods("GET")

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.WithField("port", port).Info("Starting api-mock")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server gracefully stopped")
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := r.URL.Path
		if current := mux.CurrentRoute(r); current != nil {
			if tmpl, err := current.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}

		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(recorder, r)

		requestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(recorder.status)).Inc()
		requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

func loggingMiddleware(logger *logrus.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			next.ServeHTTP(w, r)

			logger.WithFields(logrus.Fields{
				"method":   r.Method,
				"path":     r.URL.Path,
				"remote":   r.RemoteAddr,
				"duration": time.Since(start).Milliseconds(),
			}).Info("Request completed")
		})
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
