package config

import (
	"os"
	"strconv"
	"time"
)

// parseEnv populates selected Config fields from environment variables.
//
// Supported variables:
//
//	ENDPOINT_ADDR                 HTTP bind address
//	STORAGE_BACKEND               "memory" | "dynamodb" | "postgres"
//	DYNAMODB_TABLE                DynamoDB table name
//	DYNAMODB_REGION               DynamoDB region
//	DYNAMODB_ENDPOINT             DynamoDB endpoint override (local emulators)
//	AWS_ACCESS_KEY_ID             static AWS credentials
//	AWS_SECRET_ACCESS_KEY
//	DATABASE_DSN                  PostgreSQL DSN
//	APP_NAME                      TOTP issuer label
//	JWT_TEMP_TOKEN_SECRET         per-variant JWT HMAC secrets
//	JWT_ACCESS_TOKEN_SECRET
//	JWT_REFRESH_TOKEN_SECRET
//	JWT_TEMP_TOKEN_EXPIRES_IN     per-variant lifetimes, in seconds
//	JWT_ACCESS_TOKEN_EXPIRES_IN
//	JWT_REFRESH_TOKEN_EXPIRES_IN
func parseEnv(config *Config) {
	envString(&config.EndpointAddr, "ENDPOINT_ADDR")
	envString(&config.StorageBackend, "STORAGE_BACKEND")
	envString(&config.DynamoDBTable, "DYNAMODB_TABLE")
	envString(&config.DynamoDBRegion, "DYNAMODB_REGION")
	envString(&config.DynamoDBEndpoint, "DYNAMODB_ENDPOINT")
	envString(&config.AWSAccessKeyID, "AWS_ACCESS_KEY_ID")
	envString(&config.AWSSecretAccessKey, "AWS_SECRET_ACCESS_KEY")
	envString(&config.DatabaseDSN, "DATABASE_DSN")
	envString(&config.AppName, "APP_NAME")
	envString(&config.TempTokenSecret, "JWT_TEMP_TOKEN_SECRET")
	envString(&config.AccessTokenSecret, "JWT_ACCESS_TOKEN_SECRET")
	envString(&config.RefreshTokenSecret, "JWT_REFRESH_TOKEN_SECRET")
	envSeconds(&config.TempTokenValidityDuration, "JWT_TEMP_TOKEN_EXPIRES_IN")
	envSeconds(&config.AccessTokenValidityDuration, "JWT_ACCESS_TOKEN_EXPIRES_IN")
	envSeconds(&config.RefreshTokenValidityDuration, "JWT_REFRESH_TOKEN_EXPIRES_IN")
}

func envString(dst *string, name string) {
	if v, ok := os.LookupEnv(name); ok && v != "" {
		*dst = v
	}
}

func envSeconds(dst *time.Duration, name string) {
	v, ok := os.LookupEnv(name)
	if !ok || v == "" {
		return
	}
	seconds, err := strconv.Atoi(v)
	if err != nil {
		panic(err)
	}
	*dst = time.Duration(seconds) * time.Second
}
