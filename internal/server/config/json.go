package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/keygate/internal/flagx"
	"github.com/dmitrijs2005/keygate/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON
// unmarshalling. It uses timex.Duration for lifetime fields, which allows
// parsing both string values such as "15m" and integer nanoseconds.
//
// This struct is an intermediate DTO used only for reading JSON
// configuration files. After unmarshalling, its fields are copied into the
// runtime Config struct which uses time.Duration.
type JsonConfig struct {
	EndpointAddr                 string         `json:"endpoint_addr"`
	StorageBackend               string         `json:"storage_backend"`
	DynamoDBTable                string         `json:"dynamodb_table"`
	DynamoDBRegion               string         `json:"dynamodb_region"`
	DynamoDBEndpoint             string         `json:"dynamodb_endpoint"`
	AWSAccessKeyID               string         `json:"aws_access_key_id"`
	AWSSecretAccessKey           string         `json:"aws_secret_access_key"`
	DatabaseDSN                  string         `json:"database_dsn"`
	AppName                      string         `json:"app_name"`
	TempTokenSecret              string         `json:"temp_token_secret"`
	TempTokenValidityDuration    timex.Duration `json:"temp_token_validity_duration"`
	AccessTokenSecret            string         `json:"access_token_secret"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenSecret           string         `json:"refresh_token_secret"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The file path comes from the -c or -config command-line flags; if neither
// is set, no JSON file is loaded. Only fields present in the file override
// the current values. If the file cannot be read or contains invalid JSON,
// the function panics.
func parseJson(config *Config) {

	// try flags
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	setString(&config.EndpointAddr, c.EndpointAddr)
	setString(&config.StorageBackend, c.StorageBackend)
	setString(&config.DynamoDBTable, c.DynamoDBTable)
	setString(&config.DynamoDBRegion, c.DynamoDBRegion)
	setString(&config.DynamoDBEndpoint, c.DynamoDBEndpoint)
	setString(&config.AWSAccessKeyID, c.AWSAccessKeyID)
	setString(&config.AWSSecretAccessKey, c.AWSSecretAccessKey)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.AppName, c.AppName)
	setString(&config.TempTokenSecret, c.TempTokenSecret)
	setString(&config.AccessTokenSecret, c.AccessTokenSecret)
	setString(&config.RefreshTokenSecret, c.RefreshTokenSecret)
	setDuration(&config.TempTokenValidityDuration, c.TempTokenValidityDuration)
	setDuration(&config.AccessTokenValidityDuration, c.AccessTokenValidityDuration)
	setDuration(&config.RefreshTokenValidityDuration, c.RefreshTokenValidityDuration)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}
