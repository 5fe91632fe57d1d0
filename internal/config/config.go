package config

import (
	"crypto/rsa"
	"encoding/base64"
	"encoding/pem"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/launchdarkly/go-sdk-common/v3/ldcontext"
	ld "github.com/launchdarkly/go-server-sdk/v7"

	"github.com/rentora/applications-service/internal/utils"
)

type Config struct {
	OrganizationName string
	AppName          string
	AppPort          string

	// Database
	DBUrl           string
	DBEncryptionKey []byte

	// Twilio / SendGrid for applicant notifications
	TwilioAccountSID string
	TwilioAuthToken  string
	SendGridAPIKey   string

	// External collaborators
	CreditBureauURL    string
	CreditBureauAPIKey string
	DocGenURL          string
	DocGenAPIKey       string
	DocStorageBase     string

	// Auth
	RSAPublicKey *rsa.PublicKey

	// LaunchDarkly flags
	LDFlag_UseRealCreditBureau bool
	LDFlag_UseDocGenService    bool
	LDFlag_TwilioFromPhone     string
	LDFlag_SendgridFromEmail   string
	LDFlag_SendgridSandboxMode bool
}

const (
	OrganizationName    = "Rentora"
	AppName             = "applications-service"
	LDConnectionTimeout = 5 * time.Second
)

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		utils.Logger.Fatalf("%s env var is missing", key)
	}
	return v
}

func LoadConfig() *Config {
	utils.Logger.Info("Loading config for app: ", AppName)

	cfg := &Config{
		OrganizationName:   OrganizationName,
		AppName:            AppName,
		AppPort:            mustEnv("APP_PORT"),
		DBUrl:              mustEnv("DB_URL"),
		TwilioAccountSID:   mustEnv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:    mustEnv("TWILIO_AUTH_TOKEN"),
		SendGridAPIKey:     mustEnv("SENDGRID_API_KEY"),
		CreditBureauURL:    os.Getenv("CREDIT_BUREAU_URL"),
		CreditBureauAPIKey: os.Getenv("CREDIT_BUREAU_API_KEY"),
		DocGenURL:          os.Getenv("DOCGEN_URL"),
		DocGenAPIKey:       os.Getenv("DOCGEN_API_KEY"),
		DocStorageBase:     mustEnv("DOC_STORAGE_BASE_URL"),
	}

	dbEncB64 := mustEnv("DB_ENCRYPTION_KEY_BASE64")
	dbEncKey, err := base64.StdEncoding.DecodeString(dbEncB64)
	if err != nil || len(dbEncKey) != 32 {
		utils.Logger.Fatal("DB_ENCRYPTION_KEY_BASE64 invalid – expect 32-byte key")
	}
	cfg.DBEncryptionKey = dbEncKey

	pubB64 := mustEnv("RSA_PUBLIC_KEY_BASE64")
	pubPEM, _ := base64.StdEncoding.DecodeString(pubB64)
	if block, _ := pem.Decode(pubPEM); block == nil {
		utils.Logger.Fatal("Failed to decode PEM block for public key")
	}
	pubKey, err := jwt.ParseRSAPublicKeyFromPEM(pubPEM)
	if err != nil {
		utils.Logger.WithError(err).Fatal("Failed to parse RSA public key")
	}
	cfg.RSAPublicKey = pubKey

	loadLDFlags(cfg)

	return cfg
}

func loadLDFlags(cfg *Config) {
	ldSDKKey := mustEnv("LD_SDK_KEY")
	ldContextKey := mustEnv("LD_CONTEXT_KEY")

	ldClient, err := ld.MakeClient(ldSDKKey, LDConnectionTimeout)
	if err != nil {
		utils.Logger.WithError(err).Fatal("Failed to create LaunchDarkly client")
	}
	if !ldClient.Initialized() {
		ldClient.Close()
		utils.Logger.Fatal("LaunchDarkly client failed to initialize")
	}
	defer ldClient.Close()

	ctx := ldcontext.NewWithKind("service", ldContextKey)

	useRealBureau, err := ldClient.BoolVariation("use_real_credit_bureau", ctx, false)
	if err != nil {
		utils.Logger.WithError(err).Fatal("Error retrieving use_real_credit_bureau flag")
	}
	utils.Logger.Debugf("use_real_credit_bureau flag: %t", useRealBureau)
	cfg.LDFlag_UseRealCreditBureau = useRealBureau

	useDocGen, err := ldClient.BoolVariation("use_docgen_service", ctx, false)
	if err != nil {
		utils.Logger.WithError(err).Fatal("Error retrieving use_docgen_service flag")
	}
	utils.Logger.Debugf("use_docgen_service flag: %t", useDocGen)
	cfg.LDFlag_UseDocGenService = useDocGen

	twilioFromFlag, err := ldClient.StringVariation("twilio_from_phone", ctx, "")
	if err != nil {
		utils.Logger.WithError(err).Fatal("Error retrieving twilio_from_phone flag")
	}
	if twilioFromFlag == "" {
		utils.Logger.Warn("twilio_from_phone flag is empty, defaulting to +10005550006")
		twilioFromFlag = "+10005550006"
	}
	cfg.LDFlag_TwilioFromPhone = twilioFromFlag

	sgFromFlag, err := ldClient.StringVariation("sendgrid_from_email", ctx, "")
	if err != nil {
		utils.Logger.WithError(err).Fatal("Error retrieving sendgrid_from_email flag")
	}
	if sgFromFlag == "" {
		utils.Logger.Warn("sendgrid_from_email flag is empty, defaulting to no-reply@rentora.app")
		sgFromFlag = "no-reply@rentora.app"
	}
	cfg.LDFlag_SendgridFromEmail = sgFromFlag

	sgSandbox, err := ldClient.BoolVariation("sendgrid_sandbox_mode", ctx, true)
	if err != nil {
		utils.Logger.WithError(err).Fatal("Error retrieving sendgrid_sandbox_mode flag")
	}
	utils.Logger.Debugf("sendgrid_sandbox_mode flag: %t", sgSandbox)
	cfg.LDFlag_SendgridSandboxMode = sgSandbox

	if cfg.LDFlag_UseRealCreditBureau && cfg.CreditBureauURL == "" {
		utils.Logger.Fatal("use_real_credit_bureau is on but CREDIT_BUREAU_URL is missing")
	}
	if cfg.LDFlag_UseDocGenService && cfg.DocGenURL == "" {
		utils.Logger.Fatal("use_docgen_service is on but DOCGEN_URL is missing")
	}
}
