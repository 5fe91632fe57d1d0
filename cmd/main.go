package main

import (
	"net/http"
	_ "time/tzdata"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/sendgrid/sendgrid-go"
	twilio "github.com/twilio/twilio-go"

	"github.com/rentora/applications-service/internal/app"
	"github.com/rentora/applications-service/internal/config"
	"github.com/rentora/applications-service/internal/controllers"
	"github.com/rentora/applications-service/internal/middleware"
	"github.com/rentora/applications-service/internal/repositories"
	"github.com/rentora/applications-service/internal/routes"
	"github.com/rentora/applications-service/internal/services"
	"github.com/rentora/applications-service/internal/utils"
)

func main() {
	utils.InitLogger(config.AppName)
	cfg := config.LoadConfig()

	application, err := app.NewApp(cfg)
	if err != nil {
		utils.Logger.Fatal("Failed to initialize applications-service:", err)
	}
	defer application.Close()

	appRepo := repositories.NewApplicationRepository(application.DB, cfg.DBEncryptionKey)
	propRepo := repositories.NewPropertyRepository(application.DB)
	userRepo := repositories.NewUserRepository(application.DB)
	sigRepo := repositories.NewLeaseSignatureRepository(application.DB)
	auditRepo := repositories.NewAuditLogRepository(application.DB)

	var bureau services.CreditBureau
	if cfg.LDFlag_UseRealCreditBureau {
		bureau = services.NewHTTPCreditBureau(cfg.CreditBureauURL, cfg.CreditBureauAPIKey)
	} else {
		bureau = services.NewMockCreditBureau()
	}

	var docs services.DocumentGenerator
	if cfg.LDFlag_UseDocGenService {
		docs = services.NewHTTPDocumentGenerator(cfg.DocGenURL, cfg.DocGenAPIKey)
	} else {
		docs = services.NewLocalDocumentGenerator(cfg.DocStorageBase)
	}

	twClient := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.TwilioAccountSID,
		Password: cfg.TwilioAuthToken,
	})
	sgClient := sendgrid.NewSendClient(cfg.SendGridAPIKey)

	notifier := services.NewNotifier(
		sgClient,
		twClient,
		cfg.LDFlag_SendgridFromEmail,
		cfg.LDFlag_TwilioFromPhone,
		cfg.OrganizationName,
		cfg.LDFlag_SendgridSandboxMode,
	)

	auth := services.NewAuthorizer(userRepo)
	scoring := services.NewScoringService(bureau)
	disclosures := services.NewDisclosureRegistry()

	appService := services.NewApplicationService(
		appRepo,
		propRepo,
		sigRepo,
		auditRepo,
		auth,
		scoring,
		disclosures,
		docs,
		notifier,
	)

	appsController := controllers.NewApplicationsController(appService)
	paymentsController := controllers.NewPaymentsController(appService)
	leasesController := controllers.NewLeasesController(appService)
	healthController := controllers.NewHealthController(application.DB)

	router := mux.NewRouter()

	// Public
	router.HandleFunc(routes.Health, healthController.HealthHandler).Methods(http.MethodGet)

	secured := router.NewRoute().Subrouter()
	secured.Use(middleware.AuthMiddleware(cfg.RSAPublicKey))

	secured.HandleFunc(routes.ApplicationsBase, appsController.CreateApplicationHandler).Methods(http.MethodPost)
	secured.HandleFunc(routes.ApplicationsMy, appsController.ListMyApplicationsHandler).Methods(http.MethodGet)
	secured.HandleFunc(routes.ApplicationByID, appsController.GetApplicationHandler).Methods(http.MethodGet)
	secured.HandleFunc(routes.ApplicationDraft, appsController.UpdateDraftHandler).Methods(http.MethodPatch)
	secured.HandleFunc(routes.ApplicationTransition, appsController.TransitionHandler).Methods(http.MethodPost)
	secured.HandleFunc(routes.ApplicationScore, appsController.ScoreApplicationHandler).Methods(http.MethodPost)
	secured.HandleFunc(routes.ApplicationVerifyDoc, appsController.VerifyDocumentHandler).Methods(http.MethodPost)
	secured.HandleFunc(routes.PropertyApplications, appsController.ListPropertyApplicationsHandler).Methods(http.MethodGet)

	secured.HandleFunc(routes.PaymentRequest, paymentsController.RequestPaymentHandler).Methods(http.MethodPost)
	secured.HandleFunc(routes.PaymentInitiate, paymentsController.InitiatePaymentHandler).Methods(http.MethodPost)
	secured.HandleFunc(routes.PaymentComplete, paymentsController.CompletePaymentHandler).Methods(http.MethodPost)
	secured.HandleFunc(routes.PaymentVerify, paymentsController.VerifyPaymentHandler).Methods(http.MethodPost)

	secured.HandleFunc(routes.LeaseSign, leasesController.SignLeaseHandler).Methods(http.MethodPost)
	secured.HandleFunc(routes.LeaseSignatures, leasesController.ListSignaturesHandler).Methods(http.MethodGet)
	secured.HandleFunc(routes.LeaseDisclosures, leasesController.ListDisclosuresHandler).Methods(http.MethodGet)

	co := cors.New(cors.Options{
		AllowedOrigins:   []string{"https://app.rentora.app", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Platform"},
		AllowCredentials: true,
	})

	utils.Logger.Infof("Starting %s on port: %s", cfg.AppName, cfg.AppPort)
	if err := http.ListenAndServe(":"+cfg.AppPort, co.Handler(router)); err != nil {
		utils.Logger.Fatal("applications-service failed to start:", err)
	}
}
