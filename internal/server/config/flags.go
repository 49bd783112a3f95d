package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/keygate/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-b string   storage backend ("memory", "dynamodb", "postgres")
//	-d string   PostgreSQL DSN
//	-t string   DynamoDB table name
//	-g string   DynamoDB region
//	-e string   DynamoDB endpoint override (e.g., "http://127.0.0.1:8000/")
//	-n string   application name used as the TOTP issuer
//
// Notes:
//   - The function first filters os.Args to only the flags it recognizes using
//     flagx.FilterArgs, avoiding collisions with other components.
//   - Token secrets and lifetimes have no flags; set them via the JSON file
//     or the environment.
func parseFlags(config *Config) {
	// Filter args to include only the flags handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-b", "-d", "-t", "-g", "-e", "-n"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddr, "a", config.EndpointAddr, "address and port to run server")
	fs.StringVar(&config.StorageBackend, "b", config.StorageBackend, "storage backend")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.DynamoDBTable, "t", config.DynamoDBTable, "DynamoDB table")
	fs.StringVar(&config.DynamoDBRegion, "g", config.DynamoDBRegion, "DynamoDB region")
	fs.StringVar(&config.DynamoDBEndpoint, "e", config.DynamoDBEndpoint, "DynamoDB endpoint")
	fs.StringVar(&config.AppName, "n", config.AppName, "application name")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
